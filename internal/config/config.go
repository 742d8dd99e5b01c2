package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all countrydash configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Source    SourceConfig    `yaml:"source"`
	Cache     CacheConfig     `yaml:"cache"`
	Logging   LoggingConfig   `yaml:"logging"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ReadTimeout     string `yaml:"read_timeout"`
	WriteTimeout    string `yaml:"write_timeout"`
	IdleTimeout     string `yaml:"idle_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// SourceConfig configures the upstream country API.
type SourceConfig struct {
	URL       string   `yaml:"url"`
	Fields    []string `yaml:"fields"`
	Timeout   string   `yaml:"timeout"`
	UserAgent string   `yaml:"user_agent"`
	// Retries repeats a failed fetch on 5xx and transport errors.
	Retries uint64 `yaml:"retries"`
}

// CacheConfig configures memoization of the fetched table.
type CacheConfig struct {
	// TTL is a duration string; empty or "0" keeps the table for the process lifetime.
	TTL string `yaml:"ttl"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DashboardConfig tunes the HTML pages.
type DashboardConfig struct {
	PreviewRows  int    `yaml:"preview_rows"`
	DefaultChart string `yaml:"default_chart"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8000",
			ReadTimeout:     "5s",
			WriteTimeout:    "30s",
			IdleTimeout:     "120s",
			ShutdownTimeout: "15s",
		},
		Source: SourceConfig{
			URL: "https://restcountries.com/v3.1/all",
			Fields: []string{
				"name", "region", "population", "area",
				"borders", "languages", "timezones",
			},
			Timeout:   "10s",
			UserAgent: "countrydash/1.0",
			Retries:   2,
		},
		Cache: CacheConfig{
			TTL: "",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Dashboard: DashboardConfig{
			PreviewRows:  5,
			DefaultChart: "bar",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("COUNTRYDASH_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("COUNTRYDASH_SOURCE_URL"); v != "" {
		c.Source.URL = v
	}
	if v := os.Getenv("COUNTRYDASH_CACHE_TTL"); v != "" {
		c.Cache.TTL = v
	}
	if v := os.Getenv("COUNTRYDASH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

var validLevels = []string{"debug", "info", "warn", "error"}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Source.URL == "" {
		return errors.New("source.url is required")
	}
	u, err := url.Parse(c.Source.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("source.url must be an absolute http(s) URL: %q", c.Source.URL)
	}
	if c.Cache.TTL != "" {
		d, err := time.ParseDuration(c.Cache.TTL)
		if err != nil {
			return fmt.Errorf("cache.ttl: %w", err)
		}
		if d < 0 {
			return errors.New("cache.ttl must not be negative")
		}
	}

	level := strings.ToLower(c.Logging.Level)
	valid := false
	for _, l := range validLevels {
		if level == l {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid logging.level: %s (valid: %v)", c.Logging.Level, validLevels)
	}

	if c.Dashboard.PreviewRows < 0 {
		return errors.New("dashboard.preview_rows must not be negative")
	}
	return nil
}

// GetCacheTTL returns the cache TTL. Zero means the table never expires.
func (c *Config) GetCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// GetSourceTimeout returns the upstream request timeout.
func (c *Config) GetSourceTimeout() time.Duration {
	return parseDuration(c.Source.Timeout, 10*time.Second)
}

// GetReadTimeout returns the server read timeout.
func (c *Config) GetReadTimeout() time.Duration {
	return parseDuration(c.Server.ReadTimeout, 5*time.Second)
}

// GetWriteTimeout returns the server write timeout.
func (c *Config) GetWriteTimeout() time.Duration {
	return parseDuration(c.Server.WriteTimeout, 30*time.Second)
}

// GetIdleTimeout returns the server idle timeout.
func (c *Config) GetIdleTimeout() time.Duration {
	return parseDuration(c.Server.IdleTimeout, 120*time.Second)
}

// GetShutdownTimeout returns how long graceful shutdown may take.
func (c *Config) GetShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 15*time.Second)
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
