package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/use-agent/scrubber/cache"
	"github.com/use-agent/scrubber/extract"
)

// Configuration validation errors.
var (
	ErrInvalidBaseURL   = errors.New("scraper.base_url must be an absolute http(s) URL")
	ErrInvalidTimeout   = errors.New("scraper.timeout must be positive")
	ErrInvalidKeyMode   = errors.New("cache.key_mode must be 'sanitize' or 'hash'")
	ErrInvalidLogLevel  = errors.New("log.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat = errors.New("log.format must be 'json' or 'text'")
	ErrInvalidPort      = errors.New("server.port must be between 1 and 65535")
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Scraper   ScraperConfig
	Cache     CacheConfig
	Extractor ExtractorConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// ScraperConfig controls fetching.
type ScraperConfig struct {
	// BaseURL is prefixed to every resource path.
	BaseURL string // default: "https://www.tripadvisor.com"

	// Timeout bounds each fetch.
	Timeout time.Duration // default: 200s

	// InsecureSkipVerify disables TLS certificate verification of the
	// target host.
	InsecureSkipVerify bool // default: true

	// MaxTranslationFetches caps network fetches of translated reviews per
	// scrape. Translations already in the raw cache do not count.
	MaxTranslationFetches int // default: 1
}

// CacheConfig controls the on-disk cache.
type CacheConfig struct {
	// Dir is the cache root.
	Dir string // default: "scrubber_cache"

	// KeyMode is "sanitize" or "hash".
	KeyMode cache.KeyMode // default: "sanitize"

	// ConsumeDerived deletes a derived record once it has been served, so
	// the next scrape of the same path starts over. False keeps it.
	ConsumeDerived bool // default: true
}

// ExtractorConfig controls field extraction.
type ExtractorConfig struct {
	// SelectorsFile is an optional YAML file overriding selectors.
	SelectorsFile string

	// Selectors is the merged selector set.
	Selectors extract.Selectors

	// CurrencyPrefixes flag price text picked up as cuisines.
	CurrencyPrefixes []string

	// Location anchors human review dates.
	Location *time.Location // default: UTC
}

// WebhookConfig controls delivery of produced records.
type WebhookConfig struct {
	// URL receives a signed POST per produced record. Empty disables delivery.
	URL string

	// Secret signs webhook bodies with HMAC-SHA256 when set.
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults,
// then applies the selector file if one is configured. Variables from the
// env file (SCRUBBER_ENV_FILE, default ".env") fill in unset ones.
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: envOr("SCRUBBER_HOST", "0.0.0.0"),
			Port: envIntOr("SCRUBBER_PORT", 8080),
			Mode: envOr("SCRUBBER_MODE", "release"),
		},
		Scraper: ScraperConfig{
			BaseURL:               strings.TrimRight(envOr("SCRUBBER_BASE_URL", "https://www.tripadvisor.com"), "/"),
			Timeout:               envDurationOr("SCRUBBER_HTTP_TIMEOUT", 200*time.Second),
			InsecureSkipVerify:    envBoolOr("SCRUBBER_INSECURE_TLS", true),
			MaxTranslationFetches: envIntOr("SCRUBBER_MAX_TRANSLATIONS", 1),
		},
		Cache: CacheConfig{
			Dir:            envOr("SCRUBBER_CACHE_DIR", cache.DefaultDir),
			KeyMode:        cache.KeyMode(envOr("SCRUBBER_CACHE_KEY_MODE", string(cache.KeySanitize))),
			ConsumeDerived: envBoolOr("SCRUBBER_CONSUME_DERIVED", true),
		},
		Extractor: ExtractorConfig{
			SelectorsFile:    os.Getenv("SCRUBBER_SELECTORS_FILE"),
			Selectors:        extract.DefaultSelectors(),
			CurrencyPrefixes: envSliceOr("SCRUBBER_CURRENCY_PREFIXES", extract.DefaultCurrencyPrefixes),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("SCRUBBER_WEBHOOK_URL"),
			Secret: os.Getenv("SCRUBBER_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("SCRUBBER_LOG_LEVEL", "info"),
			Format: envOr("SCRUBBER_LOG_FORMAT", "json"),
		},
	}

	loc, err := time.LoadLocation(envOr("SCRUBBER_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone: %w", err)
	}
	cfg.Extractor.Location = loc

	if cfg.Extractor.SelectorsFile != "" {
		sels, err := LoadSelectors(cfg.Extractor.SelectorsFile)
		if err != nil {
			return nil, err
		}
		cfg.Extractor.Selectors = sels.Merge(cfg.Extractor.Selectors)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// loadEnvFile loads the env file if it exists. Variables already set in the
// process environment are not overridden.
func loadEnvFile() error {
	path := envOr("SCRUBBER_ENV_FILE", ".env")
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// LoadSelectors reads selector overrides from a YAML file. Fields left out
// of the file are empty; merge them with extract.DefaultSelectors.
func LoadSelectors(path string) (extract.Selectors, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return extract.Selectors{}, fmt.Errorf("failed to read selectors file: %w", err)
	}

	var sels extract.Selectors
	if err := yaml.Unmarshal(data, &sels); err != nil {
		return extract.Selectors{}, fmt.Errorf("failed to parse selectors YAML: %w", err)
	}
	return sels, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Scraper.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}

	if c.Scraper.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Cache.KeyMode != cache.KeySanitize && c.Cache.KeyMode != cache.KeyHash {
		return ErrInvalidKeyMode
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return ErrInvalidPort
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		return ErrInvalidLogLevel
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return ErrInvalidLogFormat
	}

	return nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
