// Package config loads and validates application configuration from a
// config file and environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default scraper settings. The worker count and retry policy mirror the
// production scrape pipeline: five concurrent page fetches, three attempts
// per page with exponential backoff starting at one second.
const (
	DefaultWorkers        = 5
	DefaultMaxAttempts    = 3
	DefaultRetryBaseDelay = time.Second
	DefaultRequestTimeout = 15 * time.Second
	DefaultWebhookTimeout = 6 * time.Second
)

// DefaultUserAgents is the fixed identity pool rotated across fetches.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/116.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/116.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/117.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
}

// DefaultBlockMarkers are body substrings that identify a bot-block page.
var DefaultBlockMarkers = []string{
	"api-services-support@amazon.com",
}

// ErrMongoURIRequired is returned when no store connection string is configured.
var ErrMongoURIRequired = errors.New("mongo.uri is required (set MONGO_URI)")

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// LoggerConfig holds logger settings.
type LoggerConfig struct {
	Level       string `mapstructure:"level"`
	Encoding    string `mapstructure:"encoding"`
	Development bool   `mapstructure:"development"`
}

// MongoConfig holds document store connection settings.
type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// ScraperConfig holds scrape pipeline settings.
type ScraperConfig struct {
	ProductURLs    []string      `mapstructure:"product_urls"`
	Workers        int           `mapstructure:"workers"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgents     []string      `mapstructure:"user_agents"`
	BlockMarkers   []string      `mapstructure:"block_markers"`
}

// AlertsConfig holds outbound notification settings.
type AlertsConfig struct {
	WebhookURL     string        `mapstructure:"webhook_url"`
	WebhookTimeout time.Duration `mapstructure:"webhook_timeout"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// SchedulerConfig holds the periodic run schedule.
type SchedulerConfig struct {
	Cron string `mapstructure:"cron"`
}

// Config is the root configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	Server    ServerConfig    `mapstructure:"server"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// Load unmarshals the full configuration from viper and applies fallbacks.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyFallbacks()
	return &cfg, nil
}

// applyFallbacks fills zero values with defaults for settings that must
// never be zero at runtime.
func (c *Config) applyFallbacks() {
	if c.Scraper.Workers <= 0 {
		c.Scraper.Workers = DefaultWorkers
	}
	if c.Scraper.MaxAttempts <= 0 {
		c.Scraper.MaxAttempts = DefaultMaxAttempts
	}
	if c.Scraper.RetryBaseDelay <= 0 {
		c.Scraper.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if c.Scraper.RequestTimeout <= 0 {
		c.Scraper.RequestTimeout = DefaultRequestTimeout
	}
	if len(c.Scraper.UserAgents) == 0 {
		c.Scraper.UserAgents = DefaultUserAgents
	}
	if len(c.Scraper.BlockMarkers) == 0 {
		c.Scraper.BlockMarkers = DefaultBlockMarkers
	}
	if c.Alerts.WebhookTimeout <= 0 {
		c.Alerts.WebhookTimeout = DefaultWebhookTimeout
	}
}

// Validate checks that required settings are present.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Mongo.URI) == "" {
		return ErrMongoURIRequired
	}
	if c.Mongo.Database == "" {
		return errors.New("mongo.database must not be empty")
	}
	return nil
}

// SetDefaults registers default configuration values on viper.
func SetDefaults() {
	viper.SetDefault("app", map[string]any{
		"name":        "pricewatch",
		"environment": "production",
		"debug":       false,
	})

	viper.SetDefault("logger", map[string]any{
		"level":       "info",
		"encoding":    "json",
		"development": false,
	})

	viper.SetDefault("mongo", map[string]any{
		"uri":      "",
		"database": "ecom_tracker",
	})

	viper.SetDefault("scraper", map[string]any{
		"product_urls":     []string{},
		"workers":          DefaultWorkers,
		"max_attempts":     DefaultMaxAttempts,
		"retry_base_delay": DefaultRetryBaseDelay.String(),
		"request_timeout":  DefaultRequestTimeout.String(),
	})

	viper.SetDefault("alerts", map[string]any{
		"webhook_url":     "",
		"webhook_timeout": DefaultWebhookTimeout.String(),
	})

	viper.SetDefault("server", map[string]any{
		"address": ":8080",
	})

	viper.SetDefault("scheduler", map[string]any{
		"cron": "0 */6 * * *",
	})
}
