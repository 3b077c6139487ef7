// Package models defines the entity contract the reconciliation engine works against and the
// concrete entity kinds of the knowledge-management pages.
//
// The engine itself only needs four capabilities from an entity, expressed by [Entity]:
// a stable id, an optional owner, a [Visibility], and a sort key. Everything else about a
// record (definition text, template content, tags, ...) is opaque to it, except for the
// optional [Typed], [Tagged] and [Readable] capabilities that filters may inspect.
//
// The kinds shipped here mirror the application's pages:
//
//   - [GlossaryTerm], ordered by term
//   - [Template], ordered by name and filterable by type and tags
//   - [KnowledgeCollection], newest first
//   - [Notification], newest first, always private to its recipient
//
// Each kind has a [Kind] descriptor that carries its table name, the page name used in
// action records, and the ordering to use for its cache.
//
// Changes to entities travel as [Event] values tagged with an [Action], mirroring the
// CREATE/UPDATE/DELETE notifications of the entity service.
package models
