package di

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/internal/cacheinfra"
	"github.com/goliatone/go-catalog-cache/internal/config"
	"github.com/goliatone/go-catalog-cache/internal/searchinfra"
	"github.com/goliatone/go-catalog-cache/repositorycache"
	"github.com/goliatone/go-catalog-cache/search"
)

// tieredNearTTL bounds how long the in-process tier keeps a shared entry.
const tieredNearTTL = 30 * time.Second

// Dependencies are the collaborators a Container is assembled from.
type Dependencies struct {
	Store   cache.Store
	Backend search.Backend
	Cache   cache.Config

	// Collection overrides per kind. Empty keeps the kind's default.
	FilmsIndex   string
	GenresIndex  string
	PersonsIndex string

	Logger *slog.Logger
}

// Container holds the process-wide store, backend and the three catalog
// repositories. It is built once at startup and shared by every request.
type Container struct {
	store   cache.Store
	backend search.Backend
	config  cache.Config
	logger  *slog.Logger

	films   *repositorycache.Repository[catalog.Film]
	genres  *repositorycache.Repository[catalog.Genre]
	persons *repositorycache.Repository[catalog.Person]
}

// NewContainer creates the store and the backend described by cfg, waits
// until both answer (bounded by cfg.StartupTimeout) and builds the repositories.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cacheCfg := cfg.CacheConfig()
	if err := cacheCfg.Validate(); err != nil {
		return nil, fmt.Errorf("cache config: %w", err)
	}

	store, err := newStore(cfg, cacheCfg, logger)
	if err != nil {
		return nil, err
	}

	backend, err := newBackend(cfg, logger)
	if err != nil {
		closeAll(store)
		return nil, err
	}

	for name, dep := range map[string]any{"cache": store, "search": backend} {
		p, ok := dep.(interface{ Ping(context.Context) error })
		if !ok {
			continue
		}
		if err := WaitFor(ctx, name, cfg.StartupTimeout, p.Ping, logger); err != nil {
			closeAll(store, backend)
			return nil, err
		}
	}

	if sqlBackend, ok := backend.(*searchinfra.SQLBackend); ok {
		if err := sqlBackend.Migrate(ctx); err != nil {
			closeAll(store, backend)
			return nil, err
		}
	}

	return NewContainerFrom(Dependencies{
		Store:        store,
		Backend:      backend,
		Cache:        cacheCfg,
		FilmsIndex:   cfg.FilmsIndex,
		GenresIndex:  cfg.GenresIndex,
		PersonsIndex: cfg.PersonsIndex,
		Logger:       logger,
	})
}

// NewContainerFrom builds the repositories over existing collaborators.
func NewContainerFrom(deps Dependencies) (*Container, error) {
	if deps.Store == nil {
		return nil, errors.New("di: cache store is required")
	}
	if deps.Backend == nil {
		return nil, errors.New("di: search backend is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Cache.TTL <= 0 {
		deps.Cache.TTL = cache.DefaultTTL
	}

	codec, err := cache.CodecByName(deps.Cache.Codec)
	if err != nil {
		return nil, err
	}

	opts := []repositorycache.Option{
		repositorycache.WithCodec(codec),
		repositorycache.WithKeyBuilder(cache.NewKeyBuilderFromConfig(deps.Cache)),
		repositorycache.WithTTL(deps.Cache.TTL),
		repositorycache.WithLogger(deps.Logger),
	}

	return &Container{
		store:   deps.Store,
		backend: deps.Backend,
		config:  deps.Cache,
		logger:  deps.Logger,
		films: repositorycache.New[catalog.Film](
			catalog.Films().WithCollection(deps.FilmsIndex), deps.Store, deps.Backend, opts...),
		genres: repositorycache.New[catalog.Genre](
			catalog.Genres().WithCollection(deps.GenresIndex), deps.Store, deps.Backend, opts...),
		persons: repositorycache.New[catalog.Person](
			catalog.Persons().WithCollection(deps.PersonsIndex), deps.Store, deps.Backend, opts...),
	}, nil
}

// Films returns the film repository.
func (c *Container) Films() *repositorycache.Repository[catalog.Film] { return c.films }

// Genres returns the genre repository.
func (c *Container) Genres() *repositorycache.Repository[catalog.Genre] { return c.genres }

// Persons returns the person repository.
func (c *Container) Persons() *repositorycache.Repository[catalog.Person] { return c.persons }

// Store returns the cache store shared by the repositories.
func (c *Container) Store() cache.Store { return c.store }

// Backend returns the search backend shared by the repositories.
func (c *Container) Backend() search.Backend { return c.backend }

// Config returns a copy of the cache configuration in use.
func (c *Container) Config() cache.Config { return c.config }

// Ready pings the store and the backend when they support it.
func (c *Container) Ready(ctx context.Context) error {
	var errs []error
	if p, ok := c.store.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("cache: %w", err))
		}
	}
	if p, ok := c.backend.(search.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("search: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Close releases the store and the backend.
func (c *Container) Close() error {
	return closeAll(c.store, c.backend)
}

// WaitFor calls ping with exponential backoff until it succeeds or timeout
// elapses. A zero timeout tries once.
func WaitFor(ctx context.Context, name string, timeout time.Duration, ping func(context.Context) error, logger *slog.Logger) error {
	if timeout <= 0 {
		if err := ping(ctx); err != nil {
			return fmt.Errorf("%s not ready: %w", name, err)
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = timeout

	err := backoff.RetryNotify(
		func() error { return ping(ctx) },
		backoff.WithContext(b, ctx),
		func(err error, next time.Duration) {
			logger.Warn("dependency not ready",
				slog.String("dependency", name),
				slog.Duration("retry_in", next),
				slog.Any("error", err),
			)
		},
	)
	if err != nil {
		return fmt.Errorf("%s not ready after %s: %w", name, timeout, err)
	}
	logger.Info("dependency ready", slog.String("dependency", name))
	return nil
}

func newStore(cfg *config.Config, cacheCfg cache.Config, logger *slog.Logger) (cache.Store, error) {
	switch cacheCfg.Backend {
	case cache.BackendMemory:
		return cache.NewMemoryStore(cacheCfg)
	case cache.BackendTiered:
		near, err := cache.NewMemoryStore(cacheCfg)
		if err != nil {
			return nil, err
		}
		return cacheinfra.NewTieredStore(near, newRedisStore(cfg, logger), tieredNearTTL, logger), nil
	default:
		return newRedisStore(cfg, logger), nil
	}
}

func newRedisStore(cfg *config.Config, logger *slog.Logger) *cacheinfra.RedisStore {
	return cacheinfra.NewRedisStore(cacheinfra.RedisConfig{
		Addr:         cfg.RedisAddr(),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}, logger)
}

func newBackend(cfg *config.Config, logger *slog.Logger) (search.Backend, error) {
	switch cfg.SearchBackend {
	case config.SearchSQL:
		db, err := searchinfra.OpenSQL(cfg.SQLDriver, cfg.SQLDSN)
		if err != nil {
			return nil, err
		}
		return searchinfra.NewSQLBackend(db, logger), nil
	default:
		esCfg := searchinfra.DefaultElasticConfig()
		esCfg.Addresses = []string{cfg.ElasticURL()}
		esCfg.Username = cfg.ElasticUser
		esCfg.Password = cfg.ElasticPassword
		return searchinfra.NewElasticBackend(esCfg, logger)
	}
}

func closeAll(deps ...any) error {
	var errs []error
	for _, d := range deps {
		if c, ok := d.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
