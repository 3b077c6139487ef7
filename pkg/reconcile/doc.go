// Package reconcile turns change events into cache mutations.
//
// A [Reconciler] is bound to one cache and to the predicate of the scope that owns it. For
// each event it applies exactly one of the following rules:
//
//   - CREATE: upsert when the predicate includes the entity, otherwise ignore it.
//   - UPDATE: upsert when the predicate includes the new attributes, otherwise remove the id.
//     This covers entities that became visible, stayed visible, or stopped being visible.
//   - DELETE: remove the id unconditionally. Removing an absent id is a no-op.
//
// Every rule is idempotent, so an event that repeats information already present (from a
// fetch, from an optimistic write, or from duplicate delivery) leaves the cache unchanged.
//
// Malformed events are dropped and logged. Nothing in this package performs I/O, and Apply
// never panics: the cache invariants hold after every call.
package reconcile
