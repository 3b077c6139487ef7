// Package live keeps one page's entity cache in step with the entity service.
//
// A Page owns a cache, the reconciler bound to its current scope, and the
// subscriptions opened for that scope. Every cache mutation happens on the
// page's run loop; fetches, subscription callbacks and mutation calls only
// enqueue work for it. Readers take immutable snapshots with Page.Snapshot and
// learn about changes through Page.Changes.
//
// A scope is the (viewer, filter) pair the page renders for. Changing either
// closes the old scope's subscriptions, fetches anew and opens fresh
// subscriptions bound to the new scope. Work still in flight for an older scope
// is discarded when it reaches the run loop.
package live
