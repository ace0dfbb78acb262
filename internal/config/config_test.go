package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/finplan/internal/config"
	"github.com/rshade/finplan/internal/kvstore"
)

// isolate points FINPLAN_HOME at a fresh directory and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv(config.EnvHome, home)
	for _, env := range []string{
		config.EnvProjectDir, config.EnvLogLevel, config.EnvCacheEnabled, config.EnvCacheTTLHours,
		config.EnvCacheMaxEntries, config.EnvCacheDir, config.EnvRecommenderURL,
	} {
		t.Setenv(env, "")
	}
	config.ResetGlobalConfigForTest()
	t.Cleanup(config.ResetGlobalConfigForTest)
	return home
}

func TestNew_Defaults(t *testing.T) {
	home := isolate(t)

	cfg := config.New()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, filepath.Join(home, "config.yaml"), cfg.Path())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "file", cfg.Cache.Backend)
	assert.Equal(t, filepath.Join(home, "cache"), cfg.Cache.Directory)
	assert.Equal(t, 50, cfg.Cache.MaxEntries)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL())
	assert.Equal(t, time.Hour, cfg.Cache.CleanupInterval)
	assert.Equal(t, "1.0.0", cfg.Cache.SchemaVersion)
	assert.Equal(t, 3*time.Second, cfg.Planner.Debounce)
	assert.Equal(t, uint32(3), cfg.Recommender.FailureThreshold)
}

func TestNew_FileAndEnv(t *testing.T) {
	home := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte(`
logging:
  level: debug
cache:
  backend: badger
  max_entries: 10
  ttl_hours: 6
  cleanup_interval: 15m
recommender:
  base_url: http://localhost:8080
  timeout: 5s
planner:
  debounce: 500ms
`), 0o600))
	t.Setenv(config.EnvCacheTTLHours, "2")
	t.Setenv(config.EnvCacheEnabled, "false")
	t.Setenv(config.EnvCacheMaxEntries, "not-a-number")

	cfg := config.New()
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "badger", cfg.Cache.Backend)
	assert.Equal(t, 10, cfg.Cache.MaxEntries)
	assert.Equal(t, 2*time.Hour, cfg.Cache.TTL())
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 15*time.Minute, cfg.Cache.CleanupInterval)
	assert.Equal(t, "1.0.0", cfg.Cache.SchemaVersion, "fields absent from the file keep defaults")
	assert.Equal(t, "http://localhost:8080", cfg.Recommender.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Recommender.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Planner.Debounce)
	require.NoError(t, cfg.Validate())

	kv := cfg.Cache.KVOptions()
	assert.Equal(t, kvstore.BackendBadger, kv.Backend)
	assert.Len(t, cfg.Cache.StoreOptions(), 4)
	assert.Equal(t, "http://localhost:8080", cfg.Recommender.ClientOptions().BaseURL)
}

func TestLoad_Errors(t *testing.T) {
	isolate(t)
	cfg := config.New()

	require.NoError(t, cfg.Load(filepath.Join(t.TempDir(), "missing.yaml")))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("cache: [unclosed"), 0o600))
	assert.Error(t, cfg.Load(bad))
}

func TestSave_RoundTrip(t *testing.T) {
	home := isolate(t)

	cfg := config.New()
	cfg.Cache.MaxEntries = 7
	cfg.Planner.Debounce = 2 * time.Second
	require.NoError(t, cfg.Save())

	loaded := config.New()
	assert.Equal(t, filepath.Join(home, "config.yaml"), loaded.Path())
	assert.Equal(t, 7, loaded.Cache.MaxEntries)
	assert.Equal(t, 2*time.Second, loaded.Planner.Debounce)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"bad level", func(c *config.Config) { c.Logging.Level = "loud" }, "Logging.Level must be one of"},
		{"bad backend", func(c *config.Config) { c.Cache.Backend = "redis" }, "Cache.Backend must be one of"},
		{"zero max entries", func(c *config.Config) { c.Cache.MaxEntries = 0 }, "Cache.MaxEntries must be at least 1"},
		{"ttl too long", func(c *config.Config) { c.Cache.TTLHours = 1000 }, "Cache.TTLHours must be at most 720"},
		{"bad schema", func(c *config.Config) { c.Cache.SchemaVersion = "v1" }, "Cache.SchemaVersion must be a semantic version"},
		{"file without dir", func(c *config.Config) { c.Cache.Directory = "" }, "Cache.Directory is required"},
		{"bad url", func(c *config.Config) { c.Recommender.BaseURL = "not a url" }, "Recommender.BaseURL must be an http(s) URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			cfg := config.New()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("memory needs no directory", func(t *testing.T) {
		isolate(t)
		cfg := config.New()
		cfg.Cache.Backend = "memory"
		cfg.Cache.Directory = ""
		assert.NoError(t, cfg.Validate())
	})
}

func TestLoggingConfig_ToLoggingConfig(t *testing.T) {
	lc := config.LoggingConfig{Level: "debug", Format: "json"}
	got := lc.ToLoggingConfig()
	assert.Equal(t, "stderr", got.Output)
	assert.Equal(t, "debug", got.Level)

	lc.File = "/tmp/finplan.log"
	got = lc.ToLoggingConfig()
	assert.Equal(t, "file", got.Output)
	assert.Equal(t, "/tmp/finplan.log", got.File)
}

func TestGlobalConfig(t *testing.T) {
	isolate(t)
	t.Setenv(config.EnvLogLevel, "warn")

	assert.Equal(t, "warn", config.GetLogLevel())
	assert.Equal(t, "warn", config.GetLoggingConfig().Level)
	assert.Equal(t, 50, config.GetCacheConfig().MaxEntries)

	custom := config.New()
	custom.Cache.MaxEntries = 3
	config.SetGlobalConfig(custom)
	assert.Equal(t, 3, config.GetCacheConfig().MaxEntries)
}
