// Package catalog defines the read-only entities served by the catalog API
// (films, genres and persons), the per-type Kind configuration that drives the
// generic cache-aside repositories, and the error taxonomy shared by every
// layer.
//
// # Kinds
//
// A Kind carries everything that differs between entity types:
//
//   - Name: used in cache keys ("film_id_42") and error messages
//   - Collection: the search index or table holding the documents
//   - SearchFields: one field yields a match predicate, several a multi_match
//   - SortFields and DefaultSort: what listings may be ordered by
//
// The three built-in kinds are returned by Films, Genres and Persons. Their
// collection names can be overridden with WithCollection, which is how the
// configured index names reach the repositories.
//
// # Errors
//
// Errors are go-errors values. NotFound is a negative result and is never
// cached; BackendUnavailable wraps any other search backend failure. Cache
// failures are recovered by the repositories and never reach callers.
package catalog
