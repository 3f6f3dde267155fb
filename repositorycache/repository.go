package repositorycache

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/search"
)

// ListParams selects one page of a sorted listing.
// Sort is a field name, optionally prefixed with "-"; empty uses the kind's default.
type ListParams struct {
	PageSize   int
	PageNumber int
	Sort       string
}

// SearchParams selects one page of a free-text search.
type SearchParams struct {
	Query      string
	PageSize   int
	PageNumber int
}

type settings struct {
	codec  cache.Codec
	keys   *cache.KeyBuilder
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures a Repository.
type Option func(*settings)

// WithCodec sets the codec used for cache entries. Default msgpack.
func WithCodec(c cache.Codec) Option {
	return func(s *settings) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithKeyBuilder sets the key builder.
func WithKeyBuilder(kb *cache.KeyBuilder) Option {
	return func(s *settings) {
		if kb != nil {
			s.keys = kb
		}
	}
}

// WithTTL sets the lifetime of cache entries. Default cache.DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *settings) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithLogger sets the logger used for recovered cache failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// Repository serves one entity kind from the cache, falling back to the
// search backend on misses. It holds no mutable state and is safe for
// concurrent use.
type Repository[T any] struct {
	kind    catalog.Kind
	store   cache.Store
	backend search.Backend
	decode  DecodeFn[T]
	settings
}

// New creates a repository for kind. Documents are decoded from JSON into T.
func New[T any](kind catalog.Kind, store cache.Store, backend search.Backend, opts ...Option) *Repository[T] {
	s := settings{
		codec:  cache.NewMsgpackCodec(),
		keys:   cache.NewKeyBuilder(),
		ttl:    cache.DefaultTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	s.logger = s.logger.With(slog.String("component", "repository"), slog.String("kind", kind.Name))

	return &Repository[T]{
		kind:     kind,
		store:    store,
		backend:  backend,
		decode:   DecodeJSON[T],
		settings: s,
	}
}

// Kind returns the entity kind served by r.
func (r *Repository[T]) Kind() catalog.Kind { return r.kind }

// GetByID returns the entity with id. A missing entity yields an error
// satisfying catalog.IsNotFound and is not cached.
func (r *Repository[T]) GetByID(ctx context.Context, id string) (T, error) {
	key := r.keys.EntityKey(r.kind.Name, id)

	v, out, err := cache.GetOrFetch(ctx, r.store, r.codec, key, r.ttl, func(ctx context.Context) (T, error) {
		var zero T

		doc, err := r.backend.Get(ctx, r.kind.Collection, id)
		if err != nil {
			if catalog.IsNotFound(err) {
				backendRequests.WithLabelValues(r.kind.Name, opGet, "not_found").Inc()
				return zero, catalog.NotFound(r.kind.Name, id)
			}
			backendRequests.WithLabelValues(r.kind.Name, opGet, "error").Inc()
			return zero, backendFailure("get", err)
		}
		backendRequests.WithLabelValues(r.kind.Name, opGet, "ok").Inc()

		entity, err := r.decode(doc.Source)
		if err != nil {
			return zero, catalog.InvalidDocument(r.kind.Name, err)
		}
		return entity, nil
	})
	r.observe(opGet, key, out)

	return v, err
}

// List returns one page of all entities of the kind, ordered by params.Sort.
func (r *Repository[T]) List(ctx context.Context, params ListParams) (Page[T], error) {
	if err := validatePage(params.PageSize, params.PageNumber); err != nil {
		return Page[T]{}, err
	}

	expr := params.Sort
	if expr == "" {
		expr = r.kind.DefaultSort
	}
	clause := search.ParseSort(expr)
	if !r.kind.Sortable(clause.Field) {
		return Page[T]{}, catalog.InvalidQuery("%s cannot be sorted by %q", r.kind.Name, clause.Field)
	}

	q := search.ListQuery(params.PageSize, params.PageNumber, clause)
	return r.query(ctx, opList, q)
}

// Search returns one page of entities matching params.Query.
func (r *Repository[T]) Search(ctx context.Context, params SearchParams) (Page[T], error) {
	if err := validatePage(params.PageSize, params.PageNumber); err != nil {
		return Page[T]{}, err
	}
	if strings.TrimSpace(params.Query) == "" {
		return Page[T]{}, catalog.InvalidQuery("search query is empty")
	}

	q := search.MatchQuery(params.PageSize, params.PageNumber, params.Query, r.kind.SearchFields...)
	return r.query(ctx, opSearch, q)
}

// query caches the raw backend response under the canonical form of q and
// assembles the page from it on both hits and misses.
func (r *Repository[T]) query(ctx context.Context, op string, q search.Query) (Page[T], error) {
	key := r.keys.QueryKey(r.kind.Name, q)

	resp, out, err := cache.GetOrFetch(ctx, r.store, r.codec, key, r.ttl, func(ctx context.Context) (search.Response, error) {
		resp, err := r.backend.Search(ctx, r.kind.Collection, q)
		if err != nil {
			backendRequests.WithLabelValues(r.kind.Name, op, "error").Inc()
			return search.Response{}, backendFailure(op, err)
		}
		backendRequests.WithLabelValues(r.kind.Name, op, "ok").Inc()
		return resp, nil
	})
	r.observe(op, key, out)
	if err != nil {
		return Page[T]{}, err
	}

	return Assemble(r.kind.Name, resp, q.Size, q.From/q.Size, r.decode)
}

func (r *Repository[T]) observe(op, key string, out cache.Outcome) {
	switch {
	case out.Hit:
		cacheRequests.WithLabelValues(r.kind.Name, op, "hit").Inc()
	case out.GetErr != nil:
		cacheRequests.WithLabelValues(r.kind.Name, op, "error").Inc()
		r.logger.Warn("cache read failed, using backend",
			slog.String("op", op),
			slog.String("key", key),
			slog.Any("error", out.GetErr),
		)
	default:
		cacheRequests.WithLabelValues(r.kind.Name, op, "miss").Inc()
	}

	if out.FillErr != nil {
		cacheFillErrors.WithLabelValues(r.kind.Name).Inc()
		r.logger.Warn("cache fill failed",
			slog.String("op", op),
			slog.String("key", key),
			slog.Any("error", out.FillErr),
		)
	}
}

func validatePage(size, number int) error {
	if size < 1 {
		return catalog.InvalidQuery("page size must be at least 1, got %d", size)
	}
	if number < 0 {
		return catalog.InvalidQuery("page number must not be negative, got %d", number)
	}
	return nil
}

// backendFailure keeps classified backend errors and wraps the rest.
func backendFailure(op string, err error) error {
	if catalog.IsBackendUnavailable(err) || catalog.IsInvalidQuery(err) || catalog.IsNotFound(err) {
		return err
	}
	return catalog.BackendUnavailable(op, err)
}
