package connection

import (
	"github.com/junaikey/livecache/internal/codec"
	"github.com/junaikey/livecache/pkg/models"
)

// Notification is the result of an RPC response without an ID: one change
// delivered to the live subscription named by ID.
//
// Result holds the encoded entity for CREATE and UPDATE. It is decoded by the
// subscriber, so a payload that does not fit the entity type is reported as a
// malformed event instead of failing the whole connection.
type Notification struct {
	ID     string           `json:"id"`
	Action models.Action    `json:"action"`
	Record string           `json:"record"`
	Owner  string           `json:"owner,omitempty"`
	Result codec.RawMessage `json:"result,omitempty"`
}
