package models

// Table names an entity collection on the entity service.
type Table string

func (t Table) String() string {
	return string(t)
}

// Kind describes one entity kind: where it lives, how it is ordered, and how its page is
// named in action records.
type Kind[E Entity] struct {
	Table Table
	Page  string
	// Record names one entity on the event bus, e.g. "template".
	Record string
	// Order builds the comparator for a new cache.
	Order func() Compare[E]
}

// Compare returns a fresh comparator, falling back to lexical order.
func (k Kind[E]) Compare() Compare[E] {
	if k.Order == nil {
		return Lexical[E]()
	}
	return k.Order()
}

// Topic returns the event-bus topic for action on this kind, e.g. "template_insert".
// Kinds without a Record name fall back to the table name.
func (k Kind[E]) Topic(action Action) string {
	name := k.Record
	if name == "" {
		name = string(k.Table)
	}
	return name + "_" + action.Verb()
}
