package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-catalog-cache/cache"
)

func chdirTemp(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "movies", cfg.ProjectName)
	assert.Equal(t, ":8000", cfg.AppPort)
	assert.Equal(t, "127.0.0.1:6379", cfg.RedisAddr())
	assert.Equal(t, "http://127.0.0.1:9200", cfg.ElasticURL())
	assert.Equal(t, cache.BackendRedis, cfg.CacheBackend)
	assert.Equal(t, 300*time.Second, cfg.CacheTTL)
	assert.Equal(t, SearchElastic, cfg.SearchBackend)
	assert.Equal(t, "movies", cfg.FilmsIndex)
	assert.Equal(t, "genre", cfg.GenresIndex)
	assert.Equal(t, "person", cfg.PersonsIndex)
	assert.Equal(t, 30*time.Second, cfg.StartupTimeout)
	assert.Empty(t, cfg.AuthVerifyURL)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("ELASTIC_HOST", "es")
	t.Setenv("CACHE_BACKEND", "tiered")
	t.Setenv("CACHE_TTL", "1m")
	t.Setenv("SEARCH_BACKEND", "sql")
	t.Setenv("SQL_DRIVER", "postgres")
	t.Setenv("SQL_DSN", "postgres://u:p@db/catalog")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "redis:6380", cfg.RedisAddr())
	assert.Equal(t, "http://es:9200", cfg.ElasticURL())
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, SearchSQL, cfg.SearchBackend)

	cc := cfg.CacheConfig()
	assert.Equal(t, cache.BackendTiered, cc.Backend)
	assert.Equal(t, time.Minute, cc.TTL)
	assert.NoError(t, cc.Validate())
}

func TestLoadFromEnv_DotEnvFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PROJECT_NAME=catalog\nCACHE_BACKEND=memory\n"), 0644))
	t.Cleanup(func() {
		os.Unsetenv("PROJECT_NAME")
		os.Unsetenv("CACHE_BACKEND")
	})

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "catalog", cfg.ProjectName)
	assert.Equal(t, cache.BackendMemory, cfg.CacheBackend)
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown cache backend", env: map[string]string{"CACHE_BACKEND": "memcached"}},
		{name: "unknown search backend", env: map[string]string{"SEARCH_BACKEND": "solr"}},
		{name: "sql with unsupported driver", env: map[string]string{"SEARCH_BACKEND": "sql", "SQL_DRIVER": "oracle"}},
		{name: "bad log level", env: map[string]string{"LOG_LEVEL": "verbose"}},
		{name: "bad verify url", env: map[string]string{"AUTH_VERIFY_URL": "not a url"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdirTemp(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadFromEnv()
			assert.Error(t, err)
		})
	}
}

func TestConfig_StringMasksSecrets(t *testing.T) {
	cfg := &Config{
		RedisHost:       "redis",
		RedisPort:       6379,
		RedisPassword:   "hunter2",
		ElasticHost:     "es",
		ElasticPort:     9200,
		ElasticPassword: "s3cret",
		SearchBackend:   SearchSQL,
		SQLDSN:          "postgres://u:pw@db/catalog",
	}

	out := cfg.String()
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "s3cret")
	assert.NotContains(t, out, "pw@db")
	assert.True(t, strings.Contains(out, "********"))
	assert.Contains(t, out, "(disabled)")
}
