package cacheinfra

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

type byteStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// TieredStore reads through a near store (in process) to a far store (shared).
// Far hits are copied into the near store with nearTTL.
type TieredStore struct {
	near    byteStore
	far     byteStore
	nearTTL time.Duration
	logger  *slog.Logger
}

// NewTieredStore combines near and far. nearTTL bounds back-filled entries.
func NewTieredStore(near, far byteStore, nearTTL time.Duration, logger *slog.Logger) *TieredStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &TieredStore{
		near:    near,
		far:     far,
		nearTTL: nearTTL,
		logger:  logger.With(slog.String("component", "tiered_store")),
	}
}

// Get checks the near store first. A near failure falls through to the far store.
func (s *TieredStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok, err := s.near.Get(ctx, key); err == nil && ok {
		return v, true, nil
	}

	v, ok, err := s.far.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}

	// the far hit is still served when the near tier cannot take it
	if err := s.near.Set(ctx, key, v, s.nearTTL); err != nil {
		s.logger.Debug("near back-fill failed", slog.String("key", key), slog.Any("error", err))
	}
	return v, true, nil
}

// Set writes both tiers and reports every failure.
func (s *TieredStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	nearTTL := ttl
	if s.nearTTL > 0 && (nearTTL <= 0 || s.nearTTL < nearTTL) {
		nearTTL = s.nearTTL
	}
	return errors.Join(
		s.near.Set(ctx, key, value, nearTTL),
		s.far.Set(ctx, key, value, ttl),
	)
}

// Ping checks the far store when it supports it.
func (s *TieredStore) Ping(ctx context.Context) error {
	if p, ok := s.far.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close closes both tiers when they support it.
func (s *TieredStore) Close() error {
	var errs []error
	for _, st := range []byteStore{s.near, s.far} {
		if c, ok := st.(interface{ Close() error }); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
