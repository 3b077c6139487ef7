// Package filter decides which entities belong in a page's cache.
//
// An entity is included iff it is visible to the viewer (public, or owned by the viewer)
// and it matches the page's active [Filter]. The decision is re-made for every event, since
// an update can flip either half.
package filter

import (
	"slices"
	"strings"

	"github.com/junaikey/livecache/pkg/models"
)

// Filter is a predicate over entity attributes. The zero Filter accepts everything.
//
// Filters are replaced wholesale; a page never patches the one it holds.
type Filter struct {
	// Type requires GetType() to equal it. Entities that are not models.Typed never match.
	Type string `json:"type,omitempty" mapstructure:"type"`
	// Tags requires at least one common tag. Entities that are not models.Tagged never match.
	Tags []string `json:"tags,omitempty" mapstructure:"tags"`
	// UnreadOnly requires !IsRead(). Entities that are not models.Readable never match.
	UnreadOnly bool `json:"unread_only,omitempty" mapstructure:"unread_only"`
}

// IsEmpty reports whether f accepts every entity.
func (f Filter) IsEmpty() bool {
	return f.Type == "" && len(f.Tags) == 0 && !f.UnreadOnly
}

// Clone returns a copy of f that shares no memory with it.
func (f Filter) Clone() Filter {
	f.Tags = slices.Clone(f.Tags)
	return f
}

// Matches reports whether e satisfies every predicate set on f.
func (f Filter) Matches(e models.Entity) bool {
	if f.Type != "" {
		typed, ok := e.(models.Typed)
		if !ok || typed.GetType() != f.Type {
			return false
		}
	}

	if len(f.Tags) > 0 {
		tagged, ok := e.(models.Tagged)
		if !ok || !intersects(tagged.GetTags(), f.Tags) {
			return false
		}
	}

	if f.UnreadOnly {
		readable, ok := e.(models.Readable)
		if !ok || readable.IsRead() {
			return false
		}
	}

	return true
}

func (f Filter) String() string {
	if f.IsEmpty() {
		return "all"
	}

	parts := make([]string, 0, 3)
	if f.Type != "" {
		parts = append(parts, "type="+f.Type)
	}
	if len(f.Tags) > 0 {
		parts = append(parts, "tags="+strings.Join(f.Tags, ","))
	}
	if f.UnreadOnly {
		parts = append(parts, "unread")
	}
	return strings.Join(parts, " ")
}

func intersects(have, want []string) bool {
	for _, tag := range have {
		if slices.Contains(want, tag) {
			return true
		}
	}
	return false
}

// ParseTags splits comma-separated tag input, trimming blanks and dropping empty and
// repeated tags. It returns nil when no tag remains.
func ParseTags(input string) []string {
	var tags []string
	for _, raw := range strings.Split(input, ",") {
		tag := strings.TrimSpace(raw)
		if tag == "" || slices.Contains(tags, tag) {
			continue
		}
		tags = append(tags, tag)
	}
	return tags
}
