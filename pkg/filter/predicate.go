package filter

import "github.com/junaikey/livecache/pkg/models"

// Visible reports whether viewer may read e: it is public, or the viewer owns it.
func Visible(viewer models.Viewer, e models.Entity) bool {
	if e.GetVisibility() == models.Public {
		return true
	}
	owner := e.GetOwnerID()
	return owner != "" && owner == viewer.ID
}

// Predicate is the inclusion rule of one scope: a viewer and the filter active for it.
type Predicate struct {
	Viewer models.Viewer
	Filter Filter
}

// NewPredicate binds viewer and a private copy of f.
func NewPredicate(viewer models.Viewer, f Filter) Predicate {
	return Predicate{Viewer: viewer, Filter: f.Clone()}
}

// Visible reports whether the predicate's viewer may read e.
func (p Predicate) Visible(e models.Entity) bool {
	return Visible(p.Viewer, e)
}

// Matches reports whether e passes the predicate's filter.
func (p Predicate) Matches(e models.Entity) bool {
	return p.Filter.Matches(e)
}

// Includes reports whether e belongs in a cache governed by p.
func (p Predicate) Includes(e models.Entity) bool {
	return p.Visible(e) && p.Matches(e)
}
