package cache

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-catalog-cache/internal/cacheinfra"
)

// Store backends selectable through Config.Backend.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
	BackendTiered = "tiered"
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Backend            string
	Codec              string
	TTL                time.Duration
	KeyMaxLength       int
	Capacity           int
	NumShards          int
	EvictionPercentage int
	EvictionInterval   time.Duration
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	mem := cacheinfra.DefaultConfig()
	return Config{
		Backend:            BackendRedis,
		Codec:              CodecMsgpack,
		TTL:                DefaultTTL,
		Capacity:           mem.Capacity,
		NumShards:          mem.NumShards,
		EvictionPercentage: mem.EvictionPercentage,
		EvictionInterval:   mem.EvictionInterval,
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendRedis, BackendMemory, BackendTiered)),
		validation.Field(&c.Codec, validation.In(CodecMsgpack, CodecJSON)),
		validation.Field(&c.TTL, validation.Required),
		validation.Field(&c.KeyMaxLength, validation.Min(0)),
	)
	if err != nil {
		return err
	}

	if c.Backend == BackendRedis {
		return nil
	}
	return c.toInternal().Validate()
}

// NewMemoryStore constructs the in-process store using the provided configuration.
func NewMemoryStore(cfg Config) (Store, error) {
	return cacheinfra.NewSturdycStore(cfg.toInternal())
}

// NewKeyBuilderFromConfig builds the KeyBuilder described by cfg.
func NewKeyBuilderFromConfig(cfg Config) *KeyBuilder {
	return NewKeyBuilder(WithMaxCanonicalLength(cfg.KeyMaxLength))
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}
