// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Fetcher modes.
const (
	FetcherColly    = "colly"
	FetcherHeadless = "headless"
)

// Storage backends.
const (
	BackendPostgres = "postgres"
	BackendLocal    = "local"
	BackendGCS      = "gcs"
	BackendMemory   = "memory"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Site      SiteConfig      `mapstructure:"site"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Fetcher   FetcherConfig   `mapstructure:"fetcher"`
	Extract   ExtractConfig   `mapstructure:"extract"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// SiteConfig locates the company directory being crawled.
type SiteConfig struct {
	BaseURL          string `mapstructure:"base_url"`
	ListingPath      string `mapstructure:"listing_path"`
	PagePathTemplate string `mapstructure:"page_path_template"`
}

// CrawlerConfig governs run bounds and politeness.
type CrawlerConfig struct {
	PageLimit       int    `mapstructure:"page_limit"`
	IncludeLastPage bool   `mapstructure:"include_last_page"`
	UserAgent       string `mapstructure:"user_agent"`
	RespectRobots   bool   `mapstructure:"respect_robots"`
}

// HTTPConfig configures the HTTP client. Zero timeout keeps the transport default.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// FetcherConfig picks between the plain HTTP and headless fetchers.
type FetcherConfig struct {
	Mode          string `mapstructure:"mode"`
	NavTimeoutSec int    `mapstructure:"nav_timeout_seconds"`
}

// ExtractConfig holds the selectors used against fetched pages.
type ExtractConfig struct {
	TableSelector   string `mapstructure:"table_selector"`
	PaginationXPath string `mapstructure:"pagination_xpath"`
}

// StorageConfig selects and configures the sink backend.
type StorageConfig struct {
	Backend  string                `mapstructure:"backend"`
	Postgres PostgresStorageConfig `mapstructure:"postgres"`
	Local    LocalStorageConfig    `mapstructure:"local"`
	GCS      GCSStorageConfig      `mapstructure:"gcs"`
}

// PostgresStorageConfig controls the document table in Postgres.
type PostgresStorageConfig struct {
	DSN         string `mapstructure:"dsn"`
	Table       string `mapstructure:"table"`
	MaxConns    int32  `mapstructure:"max_conns"`
	CreateTable bool   `mapstructure:"create_table"`
}

// LocalStorageConfig writes JSON lines under Dir.
type LocalStorageConfig struct {
	Dir string `mapstructure:"dir"`
}

// GCSStorageConfig writes JSON lines objects to a bucket.
type GCSStorageConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// NotifyConfig holds Pub/Sub run notification settings.
type NotifyConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	TracingEnabled bool    `mapstructure:"tracing_enabled"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("site.base_url", "https://www.zaubacorp.com")
	v.SetDefault("site.listing_path", "/company-list-company.html")
	v.SetDefault("site.page_path_template", "/company-list/p-%d-company.html")
	v.SetDefault("crawler.page_limit", 10)
	v.SetDefault("crawler.include_last_page", false)
	v.SetDefault("crawler.user_agent", "company-list-crawler/0.1")
	v.SetDefault("crawler.respect_robots", false)
	v.SetDefault("http.timeout_seconds", 0)
	v.SetDefault("fetcher.mode", FetcherColly)
	v.SetDefault("fetcher.nav_timeout_seconds", 45)
	v.SetDefault("extract.table_selector", "table#table")
	v.SetDefault("extract.pagination_xpath", "//span[contains(text(),'Page')]/text()")
	v.SetDefault("storage.backend", BackendPostgres)
	v.SetDefault("storage.postgres.dsn", "postgres://localhost:5432/zaubacorp?sslmode=disable")
	v.SetDefault("storage.postgres.table", "companies")
	v.SetDefault("storage.postgres.max_conns", 4)
	v.SetDefault("storage.postgres.create_table", true)
	v.SetDefault("storage.local.dir", "data/companies")
	v.SetDefault("storage.gcs.bucket", "")
	v.SetDefault("storage.gcs.prefix", "companies")
	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.project_id", "")
	v.SetDefault("notify.topic", "company-crawl-runs")
	v.SetDefault("server.port", 8080)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("telemetry.tracing_enabled", true)
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Crawler.PageLimit <= 0 {
		return fmt.Errorf("crawler.page_limit must be > 0")
	}
	base, err := url.Parse(c.Site.BaseURL)
	if err != nil || base.Host == "" || (base.Scheme != "http" && base.Scheme != "https") {
		return fmt.Errorf("site.base_url must be an absolute http(s) URL, got %q", c.Site.BaseURL)
	}
	if n := strings.Count(c.Site.PagePathTemplate, "%d"); n != 1 || strings.Count(c.Site.PagePathTemplate, "%") != 1 {
		return fmt.Errorf("site.page_path_template must contain exactly one %%d, got %q", c.Site.PagePathTemplate)
	}
	if c.HTTP.TimeoutSeconds < 0 {
		return fmt.Errorf("http.timeout_seconds must be >= 0")
	}
	switch c.Fetcher.Mode {
	case FetcherColly:
	case FetcherHeadless:
		if c.Fetcher.NavTimeoutSec < 0 {
			return fmt.Errorf("fetcher.nav_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("fetcher.mode must be %q or %q, got %q", FetcherColly, FetcherHeadless, c.Fetcher.Mode)
	}
	switch c.Storage.Backend {
	case BackendPostgres:
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn must be set for the postgres backend")
		}
	case BackendLocal:
		if c.Storage.Local.Dir == "" {
			return fmt.Errorf("storage.local.dir must be set for the local backend")
		}
	case BackendGCS:
		if c.Storage.GCS.Bucket == "" {
			return fmt.Errorf("storage.gcs.bucket must be set for the gcs backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("storage.backend %q is not supported", c.Storage.Backend)
	}
	if c.Notify.Enabled && (c.Notify.ProjectID == "" || c.Notify.Topic == "") {
		return fmt.Errorf("notify.project_id and notify.topic must be set when notify is enabled")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be within [0, 1]")
	}
	return nil
}

// ListingURL is the page that carries the "Page X of N" indicator.
func (c Config) ListingURL() string {
	return strings.TrimRight(c.Site.BaseURL, "/") + c.Site.ListingPath
}

// PageURLTemplate is a fmt template for numbered listing pages.
func (c Config) PageURLTemplate() string {
	return strings.TrimRight(c.Site.BaseURL, "/") + c.Site.PagePathTemplate
}

// HTTPTimeout converts the configured timeout; zero means no explicit timeout.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// NavTimeout is the headless navigation budget.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Fetcher.NavTimeoutSec) * time.Second
}
