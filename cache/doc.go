// Package cache implements the cache-aside read used by the catalog
// repositories, together with the key scheme and the value codecs.
//
// # Overview
//
// A Store maps string keys to opaque bytes with a per-key expiration. Two
// implementations live in internal/cacheinfra: a Redis store shared between
// processes and an in-process sturdyc store. A tiered combination of both is
// also available.
//
// GetOrFetch is the read path:
//
//	film, outcome, err := cache.GetOrFetch(ctx, store, codec, key, cache.DefaultTTL,
//		func(ctx context.Context) (catalog.Film, error) {
//			return load(ctx, id)
//		})
//
// A hit is decoded and returned without calling the fetch function. On a miss
// the fetch function runs and its result is written back. Fetch errors are
// returned unchanged and never cached, so a not-found is re-evaluated on the
// next request. Cache failures never fail a read: they are reported in
// Outcome.GetErr and Outcome.FillErr for the caller to log.
//
// # Keys
//
// KeyBuilder produces two kinds of keys:
//
//	film_id_<id>                                 single entity
//	search_film_query_params_<canonical query>   one page of a listing or search
//
// The canonical query is a compact sorted-key encoding of the backend request
// body, so two requests produce the same key exactly when they would send
// structurally equal bodies. When WithMaxCanonicalLength is set, longer forms
// are replaced with an xxhash digest.
//
// # Codecs
//
// Entries are encoded with msgpack by default. The JSON codec is available
// when entries must be readable from redis-cli.
package cache
