package cache

import (
	"context"
	"time"
)

// DefaultTTL is the lifetime of every cache entry written by the repositories.
const DefaultTTL = 300 * time.Second

// Store is a key to bytes store with per-key expiration.
// Get reports a miss with ok=false and a nil error.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// FetchFn is the function signature GetOrFetch expects when fetching from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// Outcome describes how GetOrFetch resolved a key.
// GetErr and FillErr are cache failures that were recovered locally.
type Outcome struct {
	Hit     bool
	GetErr  error
	FillErr error
}

// GetOrFetch implements the cache-aside read: it returns the decoded value
// stored under key, or calls fetchFn on a miss and writes the result back with
// ttl. Cache failures never fail the read; they are reported in Outcome. An
// entry that cannot be decoded is treated as a miss and overwritten.
// Errors from fetchFn are returned unchanged and nothing is cached.
func GetOrFetch[T any](ctx context.Context, store Store, codec Codec, key string, ttl time.Duration, fetchFn FetchFn[T]) (T, Outcome, error) {
	var out Outcome

	data, ok, err := store.Get(ctx, key)
	switch {
	case err != nil:
		out.GetErr = err
	case ok:
		var cached T
		err := codec.Unmarshal(data, &cached)
		if err == nil {
			out.Hit = true
			return cached, out, nil
		}
		out.GetErr = err
	}

	value, err := fetchFn(ctx)
	if err != nil {
		var zero T
		return zero, out, err
	}

	encoded, err := codec.Marshal(value)
	if err != nil {
		out.FillErr = err
		return value, out, nil
	}
	if err := store.Set(ctx, key, encoded, ttl); err != nil {
		out.FillErr = err
	}

	return value, out, nil
}
