package config

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/catalog"
)

// Search backends selectable through SEARCH_BACKEND.
const (
	SearchElastic = "elastic"
	SearchSQL     = "sql"
)

var urlPattern = regexp.MustCompile(`^https?://[^\s/]+(/\S*)?$`)

// Config is the process configuration, read from environment variables.
type Config struct {
	ProjectName string `mapstructure:"PROJECT_NAME"`
	AppPort     string `mapstructure:"APP_PORT"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogFormat   string `mapstructure:"LOG_FORMAT"`

	RedisHost     string `mapstructure:"REDIS_HOST"`
	RedisPort     int    `mapstructure:"REDIS_PORT"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	ElasticHost     string `mapstructure:"ELASTIC_HOST"`
	ElasticPort     int    `mapstructure:"ELASTIC_PORT"`
	ElasticUser     string `mapstructure:"ELASTIC_USER"`
	ElasticPassword string `mapstructure:"ELASTIC_PASSWORD"`

	CacheBackend      string        `mapstructure:"CACHE_BACKEND"`
	CacheCodec        string        `mapstructure:"CACHE_CODEC"`
	CacheTTL          time.Duration `mapstructure:"CACHE_TTL"`
	CacheCapacity     int           `mapstructure:"CACHE_CAPACITY"`
	CacheShards       int           `mapstructure:"CACHE_SHARDS"`
	CacheKeyMaxLength int           `mapstructure:"CACHE_KEY_MAX_LENGTH"`

	SearchBackend string `mapstructure:"SEARCH_BACKEND"`
	SQLDriver     string `mapstructure:"SQL_DRIVER"`
	SQLDSN        string `mapstructure:"SQL_DSN"`

	FilmsIndex   string `mapstructure:"FILMS_INDEX"`
	GenresIndex  string `mapstructure:"GENRES_INDEX"`
	PersonsIndex string `mapstructure:"PERSONS_INDEX"`

	AuthVerifyURL  string        `mapstructure:"AUTH_VERIFY_URL"`
	StartupTimeout time.Duration `mapstructure:"STARTUP_TIMEOUT"`
}

var defaults = map[string]any{
	"PROJECT_NAME":         "movies",
	"APP_PORT":             ":8000",
	"LOG_LEVEL":            "info",
	"LOG_FORMAT":           "text",
	"REDIS_HOST":           "127.0.0.1",
	"REDIS_PORT":           6379,
	"REDIS_DB":             0,
	"ELASTIC_HOST":         "http://127.0.0.1",
	"ELASTIC_PORT":         9200,
	"CACHE_BACKEND":        cache.BackendRedis,
	"CACHE_CODEC":          cache.CodecMsgpack,
	"CACHE_TTL":            "300s",
	"CACHE_CAPACITY":       10000,
	"CACHE_SHARDS":         256,
	"CACHE_KEY_MAX_LENGTH": 0,
	"SEARCH_BACKEND":       SearchElastic,
	"SQL_DRIVER":           "sqlite3",
	"SQL_DSN":              "file:catalog.db?cache=shared",
	"FILMS_INDEX":          catalog.Films().Collection,
	"GENRES_INDEX":         catalog.Genres().Collection,
	"PERSONS_INDEX":        catalog.Persons().Collection,
	"AUTH_VERIFY_URL":      "",
	"STARTUP_TIMEOUT":      "30s",
}

// LoadFromEnv reads the configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment variables
// take precedence over it.
func LoadFromEnv() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()

	for k, d := range defaults {
		v.SetDefault(k, d)
		_ = v.BindEnv(k)
	}
	for _, k := range []string{"REDIS_PASSWORD", "ELASTIC_USER", "ELASTIC_PASSWORD"} {
		_ = v.BindEnv(k)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the values LoadFromEnv produced.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.AppPort, validation.Required),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.LogFormat, validation.In("text", "json")),
		validation.Field(&c.RedisPort, validation.Min(0), validation.Max(65535)),
		validation.Field(&c.ElasticPort, validation.Min(0), validation.Max(65535)),
		validation.Field(&c.CacheBackend, validation.Required, validation.In(cache.BackendRedis, cache.BackendMemory, cache.BackendTiered)),
		validation.Field(&c.CacheCodec, validation.In(cache.CodecMsgpack, cache.CodecJSON)),
		validation.Field(&c.CacheTTL, validation.Required),
		validation.Field(&c.SearchBackend, validation.Required, validation.In(SearchElastic, SearchSQL)),
		validation.Field(&c.SQLDriver, validation.When(c.SearchBackend == SearchSQL,
			validation.Required, validation.In("sqlite3", "postgres"))),
		validation.Field(&c.SQLDSN, validation.When(c.SearchBackend == SearchSQL, validation.Required)),
		validation.Field(&c.AuthVerifyURL, validation.When(c.AuthVerifyURL != "",
			validation.Match(urlPattern).Error("must be an http or https URL"))),
		validation.Field(&c.StartupTimeout, validation.Min(time.Duration(0))),
	)
}

// RedisAddr returns host:port of the Redis server.
func (c *Config) RedisAddr() string {
	return net.JoinHostPort(c.RedisHost, strconv.Itoa(c.RedisPort))
}

// ElasticURL returns the Elasticsearch node address.
func (c *Config) ElasticURL() string {
	host := c.ElasticHost
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	return fmt.Sprintf("%s:%d", strings.TrimRight(host, "/"), c.ElasticPort)
}

// CacheConfig returns the cache package settings.
func (c *Config) CacheConfig() cache.Config {
	cfg := cache.DefaultConfig()
	cfg.Backend = c.CacheBackend
	cfg.Codec = c.CacheCodec
	cfg.TTL = c.CacheTTL
	cfg.KeyMaxLength = c.CacheKeyMaxLength
	if c.CacheCapacity > 0 {
		cfg.Capacity = c.CacheCapacity
	}
	if c.CacheShards > 0 {
		cfg.NumShards = c.CacheShards
	}
	return cfg
}

// String implements fmt.Stringer. Secrets are masked.
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  ProjectName: %s\n", c.ProjectName))
	sb.WriteString(fmt.Sprintf("  AppPort: %s\n", c.AppPort))
	sb.WriteString(fmt.Sprintf("  LogLevel: %s (%s)\n", c.LogLevel, c.LogFormat))
	sb.WriteString(fmt.Sprintf("  Redis: %s db=%d\n", c.RedisAddr(), c.RedisDB))
	sb.WriteString(fmt.Sprintf("  RedisPassword: %s\n", mask(c.RedisPassword)))
	sb.WriteString(fmt.Sprintf("  Elastic: %s\n", c.ElasticURL()))
	sb.WriteString(fmt.Sprintf("  ElasticUser: %s\n", c.ElasticUser))
	sb.WriteString(fmt.Sprintf("  ElasticPassword: %s\n", mask(c.ElasticPassword)))
	sb.WriteString(fmt.Sprintf("  Cache: backend=%s codec=%s ttl=%s capacity=%d shards=%d keyMax=%d\n",
		c.CacheBackend, c.CacheCodec, c.CacheTTL, c.CacheCapacity, c.CacheShards, c.CacheKeyMaxLength))
	sb.WriteString(fmt.Sprintf("  Search: backend=%s\n", c.SearchBackend))
	if c.SearchBackend == SearchSQL {
		sb.WriteString(fmt.Sprintf("  SQL: driver=%s dsn=%s\n", c.SQLDriver, mask(c.SQLDSN)))
	}
	sb.WriteString(fmt.Sprintf("  Indices: films=%s genres=%s persons=%s\n", c.FilmsIndex, c.GenresIndex, c.PersonsIndex))
	sb.WriteString(fmt.Sprintf("  AuthVerifyURL: %s\n", orEmpty(c.AuthVerifyURL)))
	sb.WriteString(fmt.Sprintf("  StartupTimeout: %s\n", c.StartupTimeout))
	return sb.String()
}

func mask(s string) string {
	if s == "" {
		return "(empty)"
	}
	return "********"
}

func orEmpty(s string) string {
	if s == "" {
		return "(disabled)"
	}
	return s
}
