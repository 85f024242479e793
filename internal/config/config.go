// Package config loads process configuration following the teacher's
// internal/config/config.go shape: viper defaults + BindEnv per field, an
// optional .env file, and a Validate() enforcing cross-field invariants.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full set of settings consumed by the gateway, the search
// engine, the pagination cache, and the HTTP server, per spec §6's
// Configuration list.
type Config struct {
	Port int    `mapstructure:"port"`
	Env  string `mapstructure:"env"`

	CouchbaseConnStr string `mapstructure:"couchbase_conn_str"`
	CouchbaseUsername string `mapstructure:"couchbase_username"`
	CouchbasePassword string `mapstructure:"couchbase_password"`
	DefaultTenant     string `mapstructure:"default_tenant"`

	CircuitResetTimeoutMs int `mapstructure:"circuit_reset_timeout_ms"`

	PaginationDefaultPageSize int `mapstructure:"pagination_page_size_default"`
	PaginationTTLSeconds      int `mapstructure:"pagination_ttl_seconds"`

	SearchFTSLimit int `mapstructure:"search_fts_limit"`

	WorkerMax       int `mapstructure:"worker_max"`
	WorkerMinSpare  int `mapstructure:"worker_min_spare"`
	RequestTimeoutMs int `mapstructure:"request_timeout_ms"`

	CORSOrigins []string `mapstructure:"cors_origins"`
}

// Load reads configuration from environment variables (and an optional
// .env file in the working directory), applying defaults for anything
// unset, mirroring the teacher's Load().
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read .env: %w", err)
			}
		}
	}

	v.SetDefault("port", 8080)
	v.SetDefault("env", "development")
	v.SetDefault("couchbase_conn_str", "couchbase://localhost")
	v.SetDefault("couchbase_username", "Administrator")
	v.SetDefault("couchbase_password", "")
	v.SetDefault("default_tenant", "demo")
	v.SetDefault("circuit_reset_timeout_ms", 30000)
	v.SetDefault("pagination_page_size_default", 50)
	v.SetDefault("pagination_ttl_seconds", 300)
	v.SetDefault("search_fts_limit", 1000)
	v.SetDefault("worker_max", 64)
	v.SetDefault("worker_min_spare", 8)
	v.SetDefault("request_timeout_ms", 30000)
	v.SetDefault("cors_origins", []string{"*"})

	for _, key := range []string{
		"port", "env", "couchbase_conn_str", "couchbase_username", "couchbase_password",
		"default_tenant", "circuit_reset_timeout_ms", "pagination_page_size_default",
		"pagination_ttl_seconds", "search_fts_limit", "worker_max", "worker_min_spare",
		"request_timeout_ms", "cors_origins",
	} {
		_ = v.BindEnv(key, strings.ToUpper(key))
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CouchbaseConnStr == "" {
		return nil, fmt.Errorf("COUCHBASE_CONN_STR is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsDev reports whether the configured environment is "development".
func (c *Config) IsDev() bool { return c.Env == "development" }

// IsProduction reports whether the configured environment is "production".
func (c *Config) IsProduction() bool { return c.Env == "production" }

// CircuitResetTimeout is CircuitResetTimeoutMs as a time.Duration.
func (c *Config) CircuitResetTimeout() time.Duration {
	return time.Duration(c.CircuitResetTimeoutMs) * time.Millisecond
}

// PaginationTTL is PaginationTTLSeconds as a time.Duration.
func (c *Config) PaginationTTL() time.Duration {
	return time.Duration(c.PaginationTTLSeconds) * time.Second
}

// RequestTimeout is RequestTimeoutMs as a time.Duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// Validate enforces the cross-field invariants the teacher's Validate()
// checks for its own settings, adapted to this core's knobs.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.CircuitResetTimeoutMs <= 0 {
		return fmt.Errorf("circuit_reset_timeout_ms must be positive")
	}
	if c.PaginationDefaultPageSize <= 0 {
		return fmt.Errorf("pagination_page_size_default must be positive")
	}
	if c.PaginationTTLSeconds <= 0 {
		return fmt.Errorf("pagination_ttl_seconds must be positive")
	}
	if c.SearchFTSLimit <= 0 {
		return fmt.Errorf("search_fts_limit must be positive")
	}
	if c.WorkerMax <= 0 || c.WorkerMinSpare < 0 || c.WorkerMinSpare > c.WorkerMax {
		return fmt.Errorf("invalid worker sizing: max=%d minSpare=%d", c.WorkerMax, c.WorkerMinSpare)
	}
	if c.RequestTimeoutMs <= 0 {
		return fmt.Errorf("request_timeout_ms must be positive")
	}
	if c.IsProduction() && c.CouchbasePassword == "" {
		return fmt.Errorf("couchbase_password is required in production")
	}
	return nil
}
