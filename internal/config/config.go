package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/canpl-analytics/cplodds/pkg/poisson"
)

// Config holds all application configuration
type Config struct {
	// Data locations
	DataDir    string `envconfig:"CPLODDS_DATA_DIR" default:"./data"`
	SQLitePath string `envconfig:"CPLODDS_DB_PATH" default:"./data/cplodds.db"`

	// CanPL SDP API
	APIBaseURL      string        `envconfig:"CPLODDS_API_BASE_URL" default:"https://api-sdp.canpl.ca/v1/cpl/football"`
	APITimeout      time.Duration `envconfig:"CPLODDS_API_TIMEOUT" default:"30s"`
	APIMaxRetries   int           `envconfig:"CPLODDS_API_MAX_RETRIES" default:"3"`
	APIRequestDelay time.Duration `envconfig:"CPLODDS_API_REQUEST_DELAY" default:"1s"`
	FirstSeason     int           `envconfig:"CPLODDS_FIRST_SEASON" default:"2019"`
	LastSeason      int           `envconfig:"CPLODDS_LAST_SEASON" default:"2026"`

	// Model parameters
	HomeAdvantage float64 `envconfig:"CPLODDS_HOME_ADVANTAGE" default:"0.25"`
	MaxGoals      int     `envconfig:"CPLODDS_MAX_GOALS" default:"7"`
	DixonColesRho float64 `envconfig:"CPLODDS_DIXON_COLES_RHO" default:"0"`
	TopScores     int     `envconfig:"CPLODDS_TOP_SCORES" default:"10"`

	// Servers
	HTTPAddr    string `envconfig:"CPLODDS_HTTP_ADDR" default:":8080"`
	MetricsAddr string `envconfig:"CPLODDS_METRICS_ADDR" default:":9090"`

	// Scheduler
	SyncCron    string `envconfig:"CPLODDS_SYNC_CRON" default:"0 3 * * *"`
	InitialSync bool   `envconfig:"CPLODDS_INITIAL_SYNC" default:"true"`

	// Redis prediction cache (optional; empty address disables caching)
	RedisAddr     string        `envconfig:"CPLODDS_REDIS_ADDR" default:""`
	RedisPassword string        `envconfig:"CPLODDS_REDIS_PASSWORD" default:""`
	RedisDB       int           `envconfig:"CPLODDS_REDIS_DB" default:"0"`
	CacheTTL      time.Duration `envconfig:"CPLODDS_CACHE_TTL" default:"10m"`

	// Telegram value alerts (optional; empty token disables alerts)
	TelegramToken  string        `envconfig:"CPLODDS_TELEGRAM_TOKEN" default:""`
	TelegramChatID int64         `envconfig:"CPLODDS_TELEGRAM_CHAT_ID" default:"0"`
	AlertInterval  time.Duration `envconfig:"CPLODDS_ALERT_INTERVAL" default:"3s"`
	ValueThreshold float64       `envconfig:"CPLODDS_VALUE_THRESHOLD" default:"5.0"`

	// Application
	AppEnv   string `envconfig:"CPLODDS_APP_ENV" default:"development"`
	LogLevel string `envconfig:"CPLODDS_LOG_LEVEL" default:"info"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if one is present
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate ensures all configuration values are within reasonable ranges
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("CPLODDS_API_BASE_URL is required")
	}
	if c.FirstSeason < 2019 {
		return fmt.Errorf("FirstSeason must be 2019 or later, got: %d", c.FirstSeason)
	}
	if c.LastSeason < c.FirstSeason {
		return fmt.Errorf("LastSeason must not precede FirstSeason, got: %d", c.LastSeason)
	}
	if c.APIMaxRetries < 1 || c.APIMaxRetries > 10 {
		return fmt.Errorf("APIMaxRetries must be between 1 and 10, got: %d", c.APIMaxRetries)
	}
	if c.ValueThreshold < 0 {
		return fmt.Errorf("ValueThreshold must be non-negative, got: %f", c.ValueThreshold)
	}
	if c.TelegramToken != "" && c.TelegramChatID == 0 {
		return fmt.Errorf("CPLODDS_TELEGRAM_CHAT_ID is required when a Telegram token is set")
	}
	if err := c.ModelParams().Validate(); err != nil {
		return err
	}
	return nil
}

// ModelParams assembles the model parameter set from the configured values.
func (c *Config) ModelParams() poisson.Params {
	return poisson.Params{
		HomeAdvantage: c.HomeAdvantage,
		MaxGoals:      c.MaxGoals,
		Rho:           c.DixonColesRho,
		TopScores:     c.TopScores,
	}
}

// Seasons returns the configured season years in ascending order.
func (c *Config) Seasons() []int {
	years := make([]int, 0, c.LastSeason-c.FirstSeason+1)
	for year := c.FirstSeason; year <= c.LastSeason; year++ {
		years = append(years, year)
	}
	return years
}

// CacheEnabled reports whether a Redis prediction cache is configured.
func (c *Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}

// AlertsEnabled reports whether Telegram value alerts are configured.
func (c *Config) AlertsEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// MustLoad loads configuration or exits on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
