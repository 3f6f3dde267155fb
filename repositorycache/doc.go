// Package repositorycache serves catalog entities through a cache-aside
// repository.
//
// # Overview
//
// Repository[T] is a single generic component used for every entity kind.
// The catalog.Kind it is built with supplies the entity name used in cache
// keys, the backend collection, the fields matched by free-text search and
// the fields listings may be sorted by.
//
//	films := repositorycache.New[catalog.Film](catalog.Films(), store, backend,
//		repositorycache.WithLogger(logger),
//	)
//
//	film, err := films.GetByID(ctx, "1")
//	page, err := films.List(ctx, repositorycache.ListParams{PageSize: 10, Sort: "-imdb_rating"})
//	page, err := films.Search(ctx, repositorycache.SearchParams{Query: "star", PageSize: 10})
//
// # Reads by id
//
// GetByID looks up "<kind>_id_<id>". On a miss the document is fetched from
// the backend, decoded, and written back with the configured TTL. Missing
// entities are reported with an error satisfying catalog.IsNotFound and are
// never cached.
//
// # Listings and searches
//
// List and Search build a search.Query, derive its cache key with
// cache.KeyBuilder and cache the raw backend response under it. The page is
// assembled from that response on hits and misses alike, so cached entries do
// not depend on the shape of Page.
//
// Sort expressions are inverted relative to their literal reading: "rating"
// orders descending (best first) and "-rating" ascending.
//
// # Failures
//
// Cache failures never fail a read. They are logged, counted in
// catalog_cache_requests_total{result="error"} or
// catalog_cache_fill_errors_total, and the backend answers instead. Backend
// failures other than not-found surface as catalog.ErrBackendUnavailable and
// are not retried.
//
// # Pagination
//
// Paginate is the pure boundary calculation behind every Page. Pages are zero
// based, First is always 0 and an empty result set has Last == -1.
package repositorycache
