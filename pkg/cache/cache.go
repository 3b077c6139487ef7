// Package cache implements the ordered, deduplicated entity store behind a page.
//
// A [Cache] keeps its entities sorted by (sort key, id) and unique by id after every
// operation. It does no locking: a cache is owned by exactly one goroutine, the page's run
// loop, and anything handed out of it is a copy.
package cache

import (
	"fmt"
	"slices"
	"strings"

	"github.com/junaikey/livecache/pkg/models"
)

// Outcome tells what Upsert did.
type Outcome int

const (
	Inserted Outcome = iota + 1
	Replaced
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Replaced:
		return "replaced"
	default:
		return "unknown"
	}
}

type Cache[E models.Entity] struct {
	compare models.Compare[E]

	// items is sorted by cmp.
	items []E
	// index maps an id to the element currently stored for it, which is what
	// locates the element in items.
	index map[string]E
}

// New returns an empty cache ordered by compare, with ties broken by id ascending.
func New[E models.Entity](compare models.Compare[E]) *Cache[E] {
	if compare == nil {
		compare = models.Lexical[E]()
	}
	return &Cache[E]{
		compare: compare,
		index:   make(map[string]E),
	}
}

func (c *Cache[E]) cmp(a, b E) int {
	if r := c.compare(a, b); r != 0 {
		return r
	}
	return strings.Compare(a.GetID(), b.GetID())
}

// position finds where e is, or would be inserted.
func (c *Cache[E]) position(e E) (int, bool) {
	return slices.BinarySearchFunc(c.items, e, c.cmp)
}

// locate returns the index of the stored element with the given id.
func (c *Cache[E]) locate(id string) (int, bool) {
	stored, ok := c.index[id]
	if !ok {
		return 0, false
	}
	if i, found := c.position(stored); found {
		return i, true
	}
	// Only reachable if the comparator is not a strict weak order.
	i := slices.IndexFunc(c.items, func(e E) bool { return e.GetID() == id })
	return i, i >= 0
}

// ReplaceAll discards the current contents and stores entities instead.
// When several entities share an id the last one wins.
func (c *Cache[E]) ReplaceAll(entities []E) {
	index := make(map[string]E, len(entities))
	for _, e := range entities {
		index[e.GetID()] = e
	}

	items := make([]E, 0, len(index))
	for _, e := range index {
		items = append(items, e)
	}
	slices.SortFunc(items, c.cmp)

	c.items = items
	c.index = index
}

// Upsert inserts e, or replaces the stored entity with the same id and moves it to its new
// position.
func (c *Cache[E]) Upsert(e E) Outcome {
	outcome := Inserted
	if i, ok := c.locate(e.GetID()); ok {
		c.items = slices.Delete(c.items, i, i+1)
		outcome = Replaced
	}

	i, _ := c.position(e)
	c.items = slices.Insert(c.items, i, e)
	c.index[e.GetID()] = e

	return outcome
}

// Remove deletes the entity with id and reports whether it was present.
// Removing an absent id is a no-op.
func (c *Cache[E]) Remove(id string) bool {
	i, ok := c.locate(id)
	if !ok {
		return false
	}
	c.items = slices.Delete(c.items, i, i+1)
	delete(c.index, id)
	return true
}

// Get returns the stored entity with id.
func (c *Cache[E]) Get(id string) (E, bool) {
	e, ok := c.index[id]
	return e, ok
}

// Contains reports whether an entity with id is stored.
func (c *Cache[E]) Contains(id string) bool {
	_, ok := c.index[id]
	return ok
}

func (c *Cache[E]) Len() int {
	return len(c.items)
}

// Snapshot returns the entities in order. The slice is a copy and never changes afterwards.
func (c *Cache[E]) Snapshot() []E {
	out := make([]E, len(c.items))
	copy(out, c.items)
	return out
}

// IDs returns the ids in order.
func (c *Cache[E]) IDs() []string {
	ids := make([]string, len(c.items))
	for i, e := range c.items {
		ids[i] = e.GetID()
	}
	return ids
}

// Check verifies the cache invariants and returns the first violation found.
func (c *Cache[E]) Check() error {
	if len(c.items) != len(c.index) {
		return fmt.Errorf("cache holds %d items but indexes %d ids", len(c.items), len(c.index))
	}
	for i, e := range c.items {
		if _, ok := c.index[e.GetID()]; !ok {
			return fmt.Errorf("item %q at %d is not indexed", e.GetID(), i)
		}
		if i > 0 && c.cmp(c.items[i-1], e) >= 0 {
			return fmt.Errorf("items %q and %q at %d are out of order or duplicated", c.items[i-1].GetID(), e.GetID(), i)
		}
	}
	return nil
}
