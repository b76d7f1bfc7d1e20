// Package config handles gateway configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config holds the gateway's runtime configuration, loaded once at
// startup and read-only thereafter.
type Config struct {
	DownstreamURL      string // DB_ENDPOINT / PGREST_ENDPOINT
	ServerName         string // host used to build absolute links
	Scheme             string // "http" or "https" for absolute links
	ListenAddr         string // HTTP bind address (default ":8080")
	LogLevel           string // debug|info|warn|error (default "info")
	LogFormat          string // json|text
	Env                string // development|production

	PageSizeDefault int
	PageSizeMax     int

	// AllowAggregation overlays the directory-derived aggregation_allowed
	// flag with a config-level allow-list of resource ids.
	AllowAggregation map[string]bool

	DownstreamTimeout  time.Duration
	DownstreamMaxConns int

	CORSAllowedOrigins []string

	RateLimitRPS   float64
	RateLimitBurst int

	MetricsEnabled bool

	SentryDSN string
	SentryEnv string

	// Warnings collects non-fatal warnings generated during config
	// loading, logged by the caller once the logger is initialised.
	Warnings []string
}

// SlogLevel maps LogLevel to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// BaseURL builds the scheme+host prefix used to construct absolute links.
func (c *Config) BaseURL() string {
	return c.Scheme + "://" + c.ServerName
}

// LoadFromEnv loads configuration from environment variables, applying
// defaults and validating production-mode requirements.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		DownstreamURL: firstNonEmpty(os.Getenv("DB_ENDPOINT"), os.Getenv("PGREST_ENDPOINT")),
		ServerName:    os.Getenv("SERVER_NAME"),
		Scheme:        os.Getenv("SCHEME"),
		ListenAddr:    os.Getenv("LISTEN_ADDR"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
		LogFormat:     os.Getenv("LOG_FORMAT"),
		Env:           os.Getenv("ENV"),
		SentryDSN:     os.Getenv("SENTRY_DSN"),
		SentryEnv:     os.Getenv("SENTRY_ENV"),
	}

	if cfg.DownstreamURL == "" {
		return nil, fmt.Errorf("DB_ENDPOINT (or PGREST_ENDPOINT) is required")
	}

	if v := os.Getenv("PAGE_SIZE_DEFAULT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("PAGE_SIZE_DEFAULT: %w", err)
		}
		cfg.PageSizeDefault = n
	}
	if v := os.Getenv("PAGE_SIZE_MAX"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("PAGE_SIZE_MAX: %w", err)
		}
		cfg.PageSizeMax = n
	}

	cfg.AllowAggregation = map[string]bool{}
	if v := os.Getenv("ALLOW_AGGREGATION"); v != "" {
		for _, raw := range strings.Split(v, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			id, err := uuid.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("ALLOW_AGGREGATION: %q is not a UUID: %w", raw, err)
			}
			cfg.AllowAggregation[id.String()] = true
		}
	}

	if v := os.Getenv("DOWNSTREAM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("DOWNSTREAM_TIMEOUT: %w", err)
		}
		cfg.DownstreamTimeout = d
	}
	if v := os.Getenv("DOWNSTREAM_MAX_CONNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("DOWNSTREAM_MAX_CONNS: %w", err)
		}
		cfg.DownstreamMaxConns = n
	}

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
		cfg.RateLimitRPS = f
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("RATE_LIMIT_BURST: %w", err)
		}
		cfg.RateLimitBurst = n
	}

	cfg.MetricsEnabled = parseBoolEnvDefault("METRICS_ENABLED", true)

	// Defaults
	if cfg.ServerName == "" {
		cfg.ServerName = "localhost:8080"
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "http"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		if cfg.IsProduction() {
			cfg.LogFormat = "json"
		} else {
			cfg.LogFormat = "text"
		}
	}
	if cfg.PageSizeDefault <= 0 {
		cfg.PageSizeDefault = 20
	}
	if cfg.PageSizeMax <= 0 {
		cfg.PageSizeMax = 50
	}
	if cfg.PageSizeDefault > cfg.PageSizeMax {
		return nil, fmt.Errorf("PAGE_SIZE_DEFAULT (%d) exceeds PAGE_SIZE_MAX (%d)", cfg.PageSizeDefault, cfg.PageSizeMax)
	}
	if cfg.DownstreamTimeout <= 0 {
		cfg.DownstreamTimeout = 10 * time.Second
	}
	if cfg.DownstreamMaxConns <= 0 {
		cfg.DownstreamMaxConns = 100
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	if cfg.IsProduction() {
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			cfg.Warnings = append(cfg.Warnings, "CORS wildcard (*) is permissive for production — set CORS_ALLOWED_ORIGINS")
		}
		if cfg.Scheme != "https" {
			cfg.Warnings = append(cfg.Warnings, "SCHEME is not https in production — absolute links will be insecure")
		}
	}

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return defaultVal
}

// LoadDotEnv reads a .env file and sets any variables not already in the
// environment. Lines must be in KEY=VALUE format. Comments (#) and blank
// lines are skipped. A missing file is not an error.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
