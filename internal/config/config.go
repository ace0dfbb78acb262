// Package config loads finplan's YAML configuration.
//
// The global file lives at $FINPLAN_HOME/config.yaml (default
// ~/.finplan/config.yaml). A project-local .finplan/config.yaml is
// shallow-merged on top of it, and FINPLAN_* environment variables override
// both.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rshade/finplan/internal/engine/cache"
	"github.com/rshade/finplan/internal/kvstore"
	"github.com/rshade/finplan/internal/planner"
	"github.com/rshade/finplan/internal/recommender"
)

const (
	configFileName = "config.yaml"
	dirName        = ".finplan"
	outputTypeFile = "file"
)

// Environment variables read by applyEnvOverrides.
const (
	EnvHome            = "FINPLAN_HOME"
	EnvProjectDir      = "FINPLAN_PROJECT_DIR"
	EnvLogLevel        = "FINPLAN_LOG_LEVEL"
	EnvCacheEnabled    = "FINPLAN_CACHE_ENABLED"
	EnvCacheTTLHours   = "FINPLAN_CACHE_TTL_HOURS"
	EnvCacheMaxEntries = "FINPLAN_CACHE_MAX_ENTRIES"
	EnvCacheDir        = "FINPLAN_CACHE_DIR"
	EnvRecommenderURL  = "FINPLAN_RECOMMENDER_URL"
)

// Config is the complete application configuration.
type Config struct {
	Logging     LoggingConfig     `yaml:"logging"`
	Cache       CacheConfig       `yaml:"cache"`
	Recommender RecommenderConfig `yaml:"recommender"`
	Planner     PlannerConfig     `yaml:"planner"`

	configPath string
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"  validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
	File   string `yaml:"file,omitempty"`
}

// CacheConfig controls the recommendation cache.
type CacheConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Backend         string        `yaml:"backend"                validate:"oneof=memory file badger"`
	Directory       string        `yaml:"directory,omitempty"    validate:"required_unless=Backend memory"`
	MaxEntries      int           `yaml:"max_entries"            validate:"min=1,max=10000"`
	TTLHours        int           `yaml:"ttl_hours"              validate:"min=0,max=720"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"       validate:"min=0"`
	SchemaVersion   string        `yaml:"schema_version"         validate:"required,semver"`
	QuotaBytes      int64         `yaml:"quota_bytes,omitempty"  validate:"min=0"`
}

// RecommenderConfig configures the recommendation service client.
type RecommenderConfig struct {
	BaseURL          string        `yaml:"base_url,omitempty"  validate:"omitempty,http_url"`
	Timeout          time.Duration `yaml:"timeout"             validate:"min=0"`
	FailureThreshold uint32        `yaml:"failure_threshold"   validate:"min=1"`
	OpenTimeout      time.Duration `yaml:"open_timeout"        validate:"min=0"`
}

// PlannerConfig configures planning orchestration.
type PlannerConfig struct {
	Debounce time.Duration `yaml:"debounce" validate:"min=0"`
}

// TTL returns the configured cache TTL.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// KVOptions returns the storage options for the cache backend.
func (c CacheConfig) KVOptions() kvstore.Options {
	return kvstore.Options{
		Backend:    c.Backend,
		Directory:  c.Directory,
		QuotaBytes: c.QuotaBytes,
	}
}

// StoreOptions returns the cache.Store options for this configuration.
func (c CacheConfig) StoreOptions() []cache.Option {
	return []cache.Option{
		cache.WithMaxEntries(c.MaxEntries),
		cache.WithDefaultTTL(c.TTL()),
		cache.WithCleanupInterval(c.CleanupInterval),
		cache.WithSchemaVersion(c.SchemaVersion),
	}
}

// ClientOptions returns recommender options for this configuration.
func (r RecommenderConfig) ClientOptions() recommender.Options {
	return recommender.Options{
		BaseURL:          r.BaseURL,
		Timeout:          r.Timeout,
		FailureThreshold: r.FailureThreshold,
		OpenTimeout:      r.OpenTimeout,
	}
}

// Options returns planner options for this configuration.
func (p PlannerConfig) Options() []planner.Option {
	return []planner.Option{planner.WithDebounce(p.Debounce)}
}

// HomeDir returns the finplan home directory: $FINPLAN_HOME or ~/.finplan.
func HomeDir() (string, error) {
	if home := os.Getenv(EnvHome); home != "" {
		return home, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(userHome, dirName), nil
}

// Defaults returns the built-in configuration without reading any file or
// environment variable.
func Defaults(home string) *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Cache: CacheConfig{
			Enabled:         true,
			Backend:         kvstore.BackendFile,
			Directory:       filepath.Join(home, "cache"),
			MaxEntries:      cache.DefaultMaxEntries,
			TTLHours:        int(cache.DefaultTTL / time.Hour),
			CleanupInterval: cache.DefaultCleanupInterval,
			SchemaVersion:   cache.DefaultSchemaVersion,
		},
		Recommender: RecommenderConfig{
			Timeout:          recommender.DefaultTimeout,
			FailureThreshold: recommender.DefaultFailureThreshold,
			OpenTimeout:      recommender.DefaultOpenTimeout,
		},
		Planner: PlannerConfig{
			Debounce: planner.DefaultDebounce,
		},
		configPath: filepath.Join(home, configFileName),
	}
}

// New returns the global configuration: defaults, then the config file if
// present, then environment overrides. Unreadable files leave defaults in
// place; use Load to surface the error.
func New() *Config {
	home, err := HomeDir()
	if err != nil {
		home = dirName
	}
	cfg := Defaults(home)
	_ = cfg.Load(cfg.configPath)
	cfg.applyEnvOverrides()
	return cfg
}

// Path returns the file the configuration was loaded from or will be saved to.
func (c *Config) Path() string {
	return c.configPath
}

// SetPath sets the file Save writes to.
func (c *Config) SetPath(path string) {
	c.configPath = path
}

// Load reads path onto c. A missing file is not an error.
func (c *Config) Load(path string) error {
	c.configPath = path
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err = yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// Save writes c to its path, creating the directory.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.New("config has no path")
	}
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err = os.WriteFile(c.configPath, data, 0o600); err != nil {
		return fmt.Errorf("writing config %s: %w", c.configPath, err)
	}
	return nil
}

// applyEnvOverrides applies FINPLAN_* variables. Unparsable values are
// ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvCacheEnabled); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Cache.Enabled = enabled
		}
	}
	if v := os.Getenv(EnvCacheTTLHours); v != "" {
		if hours, err := strconv.Atoi(v); err == nil {
			c.Cache.TTLHours = hours
		}
	}
	if v := os.Getenv(EnvCacheMaxEntries); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Cache.MaxEntries = n
		}
	}
	if v := os.Getenv(EnvCacheDir); v != "" {
		c.Cache.Directory = v
	}
	if v := os.Getenv(EnvRecommenderURL); v != "" {
		c.Recommender.BaseURL = v
	}
}
