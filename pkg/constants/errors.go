package constants

import "errors"

// Errors absorbed or surfaced by the reconciliation core.
var (
	ErrMissingID           = errors.New("event has no entity id")
	ErrUndecodable         = errors.New("event payload could not be decoded")
	ErrUnknownAction       = errors.New("event has an unknown action")
	ErrPageClosed          = errors.New("page is closed")
	ErrNoScope             = errors.New("no scope has been established")
	ErrStaleScope          = errors.New("scope was replaced before the operation completed")
	ErrNoMutator           = errors.New("page has no mutator")
	ErrNotFound            = errors.New("entity not found")
	ErrSubscriptionDropped = errors.New("subscription dropped by transport")
)

// Errors returned by the transport.
var (
	ErrIDInUse            = errors.New("id already in use")
	ErrTimeout            = errors.New("timeout")
	ErrNoBaseURL          = errors.New("base url not set")
	ErrNoMarshaler        = errors.New("marshaler is not set")
	ErrNoUnmarshaler      = errors.New("unmarshaler is not set")
	ErrConnectionClosed   = errors.New("connection closed")
	ErrMethodNotAvailable = errors.New("method not available on this connection")
)
