package reconcile

import (
	"fmt"

	"github.com/junaikey/livecache/pkg/models"
)

// MalformedEventError describes an event that could not be reconciled.
type MalformedEventError struct {
	Action models.Action
	ID     string
	Err    error
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed %s event %q: %v", e.Action, e.ID, e.Err)
}

func (e *MalformedEventError) Unwrap() error {
	return e.Err
}
