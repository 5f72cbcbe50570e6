// Package config loads process settings and store credentials.
// Settings come from environment variables. Store credentials come from
// CONFIG_FILE (YAML or JSON), else STORES_JSON, else GCP Secret Manager in
// production.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/order-export/pkg/client"
	"github.com/Sternrassler/order-export/pkg/enrich"
	"github.com/Sternrassler/order-export/pkg/pagination"
	"github.com/Sternrassler/order-export/pkg/reconcile"
	"github.com/redis/go-redis/v9"
)

// ErrInvalidConfig is returned when a setting cannot be parsed or is missing.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all service configuration.
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"
	LogLevel    string
	LogPretty   bool
	StaticDir   string

	// Upstream platform
	PlatformHost string
	APIVersion   string
	PageSize     int
	Concurrency  int
	MaxRetries   int
	RetryDelay   time.Duration
	ChromeTLS    bool

	// CrossRoleContactFallback lets billing and shipping borrow each
	// other's contact when their own is empty.
	CrossRoleContactFallback bool

	// Optional response cache
	RedisURL string
	CacheTTL time.Duration

	// GCP settings (production store credentials)
	GCPProject   string
	StoresSecret string

	Stores Stores
}

// Load reads settings from the environment and resolves store credentials.
func Load(ctx context.Context) (*Config, error) {
	cfg := &Config{
		Port:         envOrDefault("PORT", "8080"),
		Environment:  envOrDefault("ENVIRONMENT", "development"),
		LogLevel:     envOrDefault("LOG_LEVEL", "info"),
		StaticDir:    os.Getenv("STATIC_DIR"),
		PlatformHost: os.Getenv("PLATFORM_HOST"),
		APIVersion:   envOrDefault("PLATFORM_API_VERSION", "v2"),
		RedisURL:     os.Getenv("REDIS_URL"),
		GCPProject:   os.Getenv("GCP_PROJECT"),
		StoresSecret: envOrDefault("STORES_SECRET", "order-export-stores"),
	}

	var err error
	if cfg.LogPretty, err = envBool("LOG_PRETTY", false); err != nil {
		return nil, err
	}
	if cfg.ChromeTLS, err = envBool("CHROME_TLS", false); err != nil {
		return nil, err
	}
	if cfg.CrossRoleContactFallback, err = envBool("CROSS_ROLE_CONTACT_FALLBACK", true); err != nil {
		return nil, err
	}
	if cfg.PageSize, err = envInt("PAGE_SIZE", pagination.DefaultConfig().PageSize); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = envInt("CONCURRENCY", enrich.DefaultConcurrency); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = envInt("MAX_RETRIES", client.DefaultMaxRetries); err != nil {
		return nil, err
	}
	if cfg.RetryDelay, err = envDuration("RETRY_DELAY", client.DefaultRetryDelay); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = envDuration("CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}

	if cfg.Stores, err = cfg.loadStores(ctx); err != nil {
		return nil, fmt.Errorf("loading stores: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadStores resolves credentials. Priority: CONFIG_FILE, STORES_JSON,
// Secret Manager (production only).
func (c *Config) loadStores(ctx context.Context) (Stores, error) {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		return LoadStoresFile(path)
	}
	if raw := os.Getenv("STORES_JSON"); raw != "" {
		stores, err := ParseStores([]byte(raw), FormatJSON)
		if err != nil {
			return nil, fmt.Errorf("parsing STORES_JSON: %w", err)
		}
		return stores, nil
	}
	if c.Environment == "production" {
		if c.GCPProject == "" {
			return nil, fmt.Errorf("%w: GCP_PROJECT required in production environment", ErrInvalidConfig)
		}
		return loadStoresFromSecretManager(ctx, c.GCPProject, c.StoresSecret)
	}
	return Stores{}, nil
}

func (c *Config) validate() error {
	if c.APIVersion == "" {
		return fmt.Errorf("%w: PLATFORM_API_VERSION must not be empty", ErrInvalidConfig)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("%w: PAGE_SIZE must be > 0 (got %d)", ErrInvalidConfig, c.PageSize)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("%w: CONCURRENCY must be > 0 (got %d)", ErrInvalidConfig, c.Concurrency)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: MAX_RETRIES must be >= 0 (got %d)", ErrInvalidConfig, c.MaxRetries)
	}
	for _, key := range c.Stores.Keys() {
		store := c.Stores[key]
		if err := store.Validate(); err != nil {
			return fmt.Errorf("%w: store %q: %v", ErrInvalidConfig, key, err)
		}
		if store.BaseURL == "" && c.PlatformHost == "" {
			return fmt.Errorf("%w: PLATFORM_HOST required for store %q", ErrInvalidConfig, key)
		}
	}
	return nil
}

// ClientConfig builds the platform client configuration. rdb may be nil,
// which disables response caching.
func (c *Config) ClientConfig(rdb *redis.Client) client.Config {
	cfg := client.DefaultConfig(c.PlatformHost)
	cfg.APIVersion = c.APIVersion
	cfg.MaxRetries = c.MaxRetries
	cfg.RetryDelay = c.RetryDelay
	cfg.ChromeTLS = c.ChromeTLS
	if rdb != nil {
		cfg.Redis = rdb
		cfg.CacheTTL = c.CacheTTL
	}
	return cfg
}

// ReconcileOptions returns the reconciliation policy.
func (c *Config) ReconcileOptions() reconcile.Options {
	return reconcile.Options{CrossRoleContactFallback: c.CrossRoleContactFallback}
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func envInt(key string, defaultVal int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, raw)
	}
	return n, nil
}

func envBool(key string, defaultVal bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidConfig, key, raw)
	}
	return b, nil
}

func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a duration", ErrInvalidConfig, key, raw)
	}
	return d, nil
}
