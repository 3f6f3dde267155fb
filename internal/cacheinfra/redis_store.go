package cacheinfra

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-catalog-cache/catalog"
)

// RedisConfig holds connection settings for the Redis store.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

// RedisStore implements the cache store contract on top of Redis.
type RedisStore struct {
	rdb    redis.UniversalClient
	logger *slog.Logger
}

// NewRedisStore creates a store with its own client.
func NewRedisStore(cfg RedisConfig, logger *slog.Logger) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})
	return NewRedisStoreFromClient(rdb, logger)
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(rdb redis.UniversalClient, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{rdb: rdb, logger: logger.With(slog.String("component", "redis_store"))}
}

// Get returns the bytes stored under key. redis.Nil is reported as a miss.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		s.logger.Debug("GET miss", slog.String("key", key))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, catalog.CacheUnavailable("redis get", err)
	}
	s.logger.Debug("GET hit", slog.String("key", key), slog.Int("bytes", len(b)))
	return b, true, nil
}

// Set stores value under key with the given expiration.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return catalog.CacheUnavailable("redis set", err)
	}
	s.logger.Debug("SET ok", slog.String("key", key), slog.Duration("ttl", ttl))
	return nil
}

// Delete removes keys.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return catalog.CacheUnavailable("redis del", err)
	}
	return nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return catalog.CacheUnavailable("redis ping", err)
	}
	return nil
}

// Close releases the client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
