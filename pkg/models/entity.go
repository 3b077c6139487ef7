package models

// Visibility determines whether viewers other than the owner may read an entity.
type Visibility string

const (
	Public  Visibility = "public"
	Private Visibility = "private"
)

// VisibilityOf maps the is_public flag used by the entity service to a Visibility.
func VisibilityOf(isPublic bool) Visibility {
	if isPublic {
		return Public
	}
	return Private
}

// Viewer identifies the user a page renders for.
type Viewer struct {
	ID string `json:"id"`
}

// Anonymous reports whether the viewer is not signed in.
// An anonymous viewer only ever sees public entities.
func (v Viewer) Anonymous() bool {
	return v.ID == ""
}

// Entity is the capability set the reconciliation engine needs from a record.
//
// GetID must be stable for the entity's lifetime. GetOwnerID is empty for
// system-owned or table-level public rows. GetSortKey defines display order;
// equal keys are ordered by id.
type Entity interface {
	GetID() string
	GetOwnerID() string
	GetVisibility() Visibility
	GetSortKey() string
}

// Typed entities can be matched by a type filter.
type Typed interface {
	GetType() string
}

// Tagged entities can be matched by a tag filter.
type Tagged interface {
	GetTags() []string
}

// Readable entities can be matched by an unread-only filter.
type Readable interface {
	IsRead() bool
}
