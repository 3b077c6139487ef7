package models

import "fmt"

// Action is the kind of change an event reports.
type Action string

const (
	CreateAction Action = "CREATE"
	UpdateAction Action = "UPDATE"
	DeleteAction Action = "DELETE"
)

// Actions lists every action a page subscribes to, in subscription order.
var Actions = []Action{CreateAction, UpdateAction, DeleteAction}

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case CreateAction, UpdateAction, DeleteAction:
		return true
	}
	return false
}

// Verb returns the lowercase event-bus verb for a: insert, update or delete.
func (a Action) Verb() string {
	switch a {
	case CreateAction:
		return "insert"
	case UpdateAction:
		return "update"
	case DeleteAction:
		return "delete"
	default:
		return "unknown"
	}
}

// Event is one change notification for an entity of type E.
//
// CREATE and UPDATE events carry the full Entity. DELETE events carry only ID and OwnerID.
// Err is set by transports that received the event but could not decode it; such events are
// dropped by the reconciler.
type Event[E Entity] struct {
	Action  Action
	ID      string
	OwnerID string
	Entity  E
	Err     error
}

// InsertEvent reports that e was created.
func InsertEvent[E Entity](e E) Event[E] {
	return Event[E]{Action: CreateAction, ID: e.GetID(), OwnerID: e.GetOwnerID(), Entity: e}
}

// UpdateEvent reports that e now has the given attributes.
func UpdateEvent[E Entity](e E) Event[E] {
	return Event[E]{Action: UpdateAction, ID: e.GetID(), OwnerID: e.GetOwnerID(), Entity: e}
}

// DeleteEvent reports that the entity with id was deleted.
func DeleteEvent[E Entity](id, ownerID string) Event[E] {
	return Event[E]{Action: DeleteAction, ID: id, OwnerID: ownerID}
}

// HasEntity reports whether the event carries attributes.
func (ev Event[E]) HasEntity() bool {
	return ev.Action == CreateAction || ev.Action == UpdateAction
}

func (ev Event[E]) String() string {
	return fmt.Sprintf("%s %s", ev.Action, ev.ID)
}
