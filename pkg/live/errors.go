package live

import (
	"fmt"

	"github.com/junaikey/livecache/pkg/models"
)

// FetchError is returned when the initial or refresh fetch of a scope fails.
// The cache keeps its last-known-good contents.
type FetchError struct {
	Table models.Table
	Scope string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s for scope %s: %v", e.Table, e.Scope, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// SubscriptionError reports that a subscription could not be opened or was
// dropped by the transport. The page is not re-subscribed automatically.
type SubscriptionError struct {
	Table  models.Table
	Action models.Action
	Scope  string
	Err    error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("subscription %s on %s for scope %s: %v", e.Action, e.Table, e.Scope, e.Err)
}

func (e *SubscriptionError) Unwrap() error {
	return e.Err
}

// MutationError is returned when the entity service rejects a create, update or delete.
type MutationError struct {
	Table models.Table
	Verb  string
	ID    string
	Err   error
}

func (e *MutationError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s on %s: %v", e.Verb, e.Table, e.Err)
	}
	return fmt.Sprintf("%s %s on %s: %v", e.Verb, e.ID, e.Table, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}
