package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	Addr           string   `mapstructure:"app_addr"`
	DataFile       string   `mapstructure:"data_file"`
	CORSOriginsRaw string   `mapstructure:"cors_origins"`
	CORSOrigins    []string `mapstructure:"-"`

	LookupBaseURL        string        `mapstructure:"lookup_base_url"`
	LookupTimeoutSeconds int64         `mapstructure:"lookup_timeout_seconds"`
	LookupTimeout        time.Duration `mapstructure:"-"`
	LookupMaxRetries     int           `mapstructure:"lookup_max_retries"`
	LookupRPS            int           `mapstructure:"lookup_rps"`

	CacheTTLSeconds int64         `mapstructure:"lookup_cache_ttl_seconds"`
	CacheTTL        time.Duration `mapstructure:"-"`
	CacheCapacity   int           `mapstructure:"lookup_cache_capacity"`
}

// Load reads configuration from environment variables and an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load(".env.local")

	v := viper.New()

	v.SetDefault("app_name", "booklib")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("app_addr", ":8080")
	v.SetDefault("data_file", "data/library.json")
	v.SetDefault("cors_origins", "")
	v.SetDefault("lookup_base_url", "https://openlibrary.org")
	v.SetDefault("lookup_timeout_seconds", 10)
	v.SetDefault("lookup_max_retries", 3)
	v.SetDefault("lookup_rps", 2)
	v.SetDefault("lookup_cache_ttl_seconds", 3600)
	v.SetDefault("lookup_cache_capacity", 1000)

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DataFile == "" {
		return nil, fmt.Errorf("data_file must not be empty")
	}
	if cfg.LookupTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid lookup_timeout_seconds (must be positive seconds)")
	}
	if cfg.LookupMaxRetries <= 0 {
		return nil, fmt.Errorf("invalid lookup_max_retries (must be positive)")
	}
	if cfg.LookupRPS <= 0 {
		return nil, fmt.Errorf("invalid lookup_rps (must be positive)")
	}
	if cfg.CacheTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid lookup_cache_ttl_seconds (must be positive seconds)")
	}
	if cfg.CacheCapacity <= 0 {
		return nil, fmt.Errorf("invalid lookup_cache_capacity (must be positive)")
	}
	cfg.LookupTimeout = time.Duration(cfg.LookupTimeoutSeconds) * time.Second
	cfg.CacheTTL = time.Duration(cfg.CacheTTLSeconds) * time.Second

	if cfg.CORSOriginsRaw != "" {
		for _, origin := range strings.Split(cfg.CORSOriginsRaw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
			}
		}
	}

	return &cfg, nil
}
