// Package config provides environment-driven configuration for the
// integration service: downstream base URLs, per-service timeouts, and
// shared-storage paths.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Defaults mirror the docker-compose service names the three downstream
// services are reachable under.
const (
	DefaultBuilderURL    = "http://atomspace-api:8000"
	DefaultMinerURL      = "http://neural-miner:5000"
	DefaultAnnotationURL = "http://annotation-service:6000"

	DefaultBuilderTimeout    = 1800 * time.Second
	DefaultMinerTimeout      = 600 * time.Second
	DefaultAnnotationTimeout = 300 * time.Second

	DefaultSharedOutputPath = "/shared/output"
	DefaultCSVCachePath     = "/tmp/csv_cache"
	DefaultPort             = 8080
)

// Config holds the integration service settings. All values are externally
// supplied via environment variables; a missing service URL is a fatal
// startup error, not a runtime retry condition.
type Config struct {
	BuilderURL    string
	MinerURL      string
	AnnotationURL string

	BuilderTimeout    time.Duration
	MinerTimeout      time.Duration
	AnnotationTimeout time.Duration

	SharedOutputPath string
	CSVCachePath     string

	// DatabaseURL is optional; when empty, run records are not persisted.
	DatabaseURL string

	Port int
}

// Load reads configuration from the environment, applying defaults for any
// unset variable, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		BuilderURL:       getEnv("ATOMSPACE_API_URL", DefaultBuilderURL),
		MinerURL:         getEnv("NEURAL_MINER_URL", DefaultMinerURL),
		AnnotationURL:    getEnv("ANNOTATION_SERVICE_URL", DefaultAnnotationURL),
		SharedOutputPath: getEnv("SHARED_OUTPUT_PATH", DefaultSharedOutputPath),
		CSVCachePath:     getEnv("CSV_CACHE_PATH", DefaultCSVCachePath),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
	}

	var err error
	if cfg.BuilderTimeout, err = getSeconds("ATOMSPACE_TIMEOUT", DefaultBuilderTimeout); err != nil {
		return nil, err
	}
	if cfg.MinerTimeout, err = getSeconds("MINER_TIMEOUT", DefaultMinerTimeout); err != nil {
		return nil, err
	}
	if cfg.AnnotationTimeout, err = getSeconds("ANNOTATION_TIMEOUT", DefaultAnnotationTimeout); err != nil {
		return nil, err
	}
	if cfg.Port, err = getInt("PORT", DefaultPort); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every downstream service URL is present and parseable
// and that timeouts are positive.
func (c *Config) Validate() error {
	for name, value := range map[string]string{
		"ATOMSPACE_API_URL":      c.BuilderURL,
		"NEURAL_MINER_URL":       c.MinerURL,
		"ANNOTATION_SERVICE_URL": c.AnnotationURL,
	} {
		if value == "" {
			return fmt.Errorf("config error: %s must not be empty", name)
		}
		parsed, err := url.Parse(value)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("config error: %s is not a valid URL: %q", name, value)
		}
	}

	for name, d := range map[string]time.Duration{
		"ATOMSPACE_TIMEOUT":  c.BuilderTimeout,
		"MINER_TIMEOUT":      c.MinerTimeout,
		"ANNOTATION_TIMEOUT": c.AnnotationTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("config error: %s must be positive", name)
		}
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config error: PORT must be in (0, 65535]")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config error: %s must be an integer: %q", key, v)
	}
	return n, nil
}

// getSeconds reads a timeout expressed in whole seconds, matching the
// convention of the downstream deployment environment.
func getSeconds(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config error: %s must be an integer number of seconds: %q", key, v)
	}
	return time.Duration(n) * time.Second, nil
}
