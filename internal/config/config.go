package config

import (
	"os"
	"strconv"
	"time"

	"github.com/codebyjaini/beezify/internal/domain"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Beezie   BeezieConfig   `yaml:"beezie"`
	Alt      AltConfig      `yaml:"alt"`
	Sync     SyncConfig     `yaml:"sync"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// In containers, listen on all interfaces
	if os.Getenv("K_SERVICE") != "" || os.Getenv("ECS_CONTAINER_METADATA_URI") != "" {
		return "0.0.0.0"
	}
	// Allow override via environment
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifeMins int    `yaml:"conn_max_life_mins"`
}

// ConnMaxLifetime returns the connection lifetime as a duration
func (c DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifeMins) * time.Minute
}

// BeezieConfig holds Beezie marketplace API configuration
type BeezieConfig struct {
	BaseURL        string            `yaml:"base_url"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
	PageSize       int               `yaml:"page_size"`
	MaxPages       int               `yaml:"max_pages"`
	PageDelayMs    int               `yaml:"page_delay_ms"`
	DetailDelayMs  int               `yaml:"detail_delay_ms"`
	Categories     []domain.Category `yaml:"categories"`
}

// Timeout returns the configured timeout as a duration
func (c BeezieConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PageDelay returns the inter-page delay as a duration
func (c BeezieConfig) PageDelay() time.Duration {
	return time.Duration(c.PageDelayMs) * time.Millisecond
}

// DetailDelay returns the inter-detail-fetch delay as a duration
func (c BeezieConfig) DetailDelay() time.Duration {
	return time.Duration(c.DetailDelayMs) * time.Millisecond
}

// AltConfig holds ALT valuation API configuration
type AltConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIToken       string `yaml:"api_token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	StepDelayMs    int    `yaml:"step_delay_ms"`
	Enabled        bool   `yaml:"enabled"`
}

// Timeout returns the configured timeout as a duration
func (c AltConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// StepDelay returns the delay between enrichment sub-calls as a duration
func (c AltConfig) StepDelay() time.Duration {
	return time.Duration(c.StepDelayMs) * time.Millisecond
}

// SyncConfig holds sync pipeline configuration
type SyncConfig struct {
	Token           string `yaml:"token"`
	IntervalMinutes int    `yaml:"interval_minutes"`
	RunOnStart      bool   `yaml:"run_on_start"`
	ItemDelayMs     int    `yaml:"item_delay_ms"`
}

// Interval returns the scheduled sync interval as a duration
func (c SyncConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// ItemDelay returns the inter-item delay as a duration
func (c SyncConfig) ItemDelay() time.Duration {
	return time.Duration(c.ItemDelayMs) * time.Millisecond
}

// DefaultCategories returns the category list synced when none is configured.
func DefaultCategories() []domain.Category {
	return []domain.Category{
		{ID: "1", Name: "Pokemon", ExpectedCount: 9439},
		{ID: "2", Name: "One Piece", ExpectedCount: 603},
		{ID: "3", Name: "Basketball", ExpectedCount: 180},
		{ID: "4", Name: "Football", ExpectedCount: 65},
	}
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 3
	}
	if cfg.Database.ConnMaxLifeMins == 0 {
		cfg.Database.ConnMaxLifeMins = 5
	}
	if cfg.Beezie.BaseURL == "" {
		cfg.Beezie.BaseURL = "https://api.beezie.io"
	}
	if cfg.Beezie.TimeoutSeconds == 0 {
		cfg.Beezie.TimeoutSeconds = 30
	}
	if cfg.Beezie.PageSize == 0 {
		cfg.Beezie.PageSize = 40
	}
	if cfg.Beezie.PageDelayMs == 0 {
		cfg.Beezie.PageDelayMs = 500
	}
	if cfg.Beezie.DetailDelayMs == 0 {
		cfg.Beezie.DetailDelayMs = 500
	}
	if len(cfg.Beezie.Categories) == 0 {
		cfg.Beezie.Categories = DefaultCategories()
	}
	if cfg.Alt.TimeoutSeconds == 0 {
		cfg.Alt.TimeoutSeconds = 30
	}
	if cfg.Alt.StepDelayMs == 0 {
		cfg.Alt.StepDelayMs = 1000
	}
	if cfg.Sync.IntervalMinutes == 0 {
		cfg.Sync.IntervalMinutes = 360
	}
	if cfg.Sync.ItemDelayMs == 0 {
		cfg.Sync.ItemDelayMs = 1000
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in production.
// A missing config file is not fatal: defaults plus env are enough to run.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = &Config{}
		cfg.applyDefaults()
	}

	// Override with environment variables if present
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if baseURL := os.Getenv("BEEZIE_BASE_URL"); baseURL != "" {
		cfg.Beezie.BaseURL = baseURL
	}
	if baseURL := os.Getenv("ALT_BASE_URL"); baseURL != "" {
		cfg.Alt.BaseURL = baseURL
	}
	if token := os.Getenv("ALT_API_TOKEN"); token != "" {
		cfg.Alt.APIToken = token
		cfg.Alt.Enabled = true
	}
	if token := os.Getenv("SYNC_TOKEN"); token != "" {
		cfg.Sync.Token = token
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	return cfg, nil
}
