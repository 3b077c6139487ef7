package live

import (
	"github.com/gofrs/uuid"

	"github.com/junaikey/livecache/pkg/filter"
	"github.com/junaikey/livecache/pkg/models"
)

// Scope is the viewer and filter a page renders for. Each establishment gets a
// fresh ID, so two scopes with equal viewer and filter are still distinct.
type Scope struct {
	ID     string
	Table  models.Table
	Viewer models.Viewer
	Filter filter.Filter
}

func newScope(table models.Table, viewer models.Viewer, f filter.Filter) *Scope {
	return &Scope{
		ID:     uuid.Must(uuid.NewV4()).String(),
		Table:  table,
		Viewer: viewer,
		Filter: f.Clone(),
	}
}

// Predicate returns the inclusion predicate of the scope.
func (s Scope) Predicate() filter.Predicate {
	return filter.NewPredicate(s.Viewer, s.Filter)
}
