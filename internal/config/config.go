// Package config provides configuration management for the trading assistant.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	API         APIConfig       `mapstructure:"api"`
	Dashboard   DashboardConfig `mapstructure:"dashboard"`
	UI          UIConfig        `mapstructure:"ui"`
	Credentials Credentials     `mapstructure:"-"` // Loaded separately
}

// APIConfig holds remote API configuration.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DashboardConfig holds dashboard synchronization configuration.
type DashboardConfig struct {
	// QuoteBatchSize is the number of symbols per quote request. The
	// remote API rejects requests above 50 symbols.
	QuoteBatchSize int `mapstructure:"quote_batch_size"`
	// QuoteBatchPause is the pause between consecutive quote batches.
	QuoteBatchPause time.Duration `mapstructure:"quote_batch_pause"`
	// RecommendationLimit is the maximum recommendations fetched per sync.
	RecommendationLimit int `mapstructure:"recommendation_limit"`
	// PollInterval is the generation-status polling interval.
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// GenerationTimeout is the wall-clock limit on a generation job.
	GenerationTimeout time.Duration `mapstructure:"generation_timeout"`
	// RecommendationStaleMinutes is how old a cached recommendation
	// snapshot may be before it no longer serves as a fallback.
	RecommendationStaleMinutes int `mapstructure:"recommendation_stale_minutes"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	TimeFormat   string `mapstructure:"time_format"`
}

// Credentials holds API credentials.
type Credentials struct {
	APIToken string `mapstructure:"api_token"`
	UserID   string `mapstructure:"user_id"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/tradedesk"
	}
	return filepath.Join(home, ".config", "tradedesk")
}

// DefaultDashboardConfig returns the default dashboard configuration.
func DefaultDashboardConfig() DashboardConfig {
	return DashboardConfig{
		QuoteBatchSize:             40,
		QuoteBatchPause:            100 * time.Millisecond,
		RecommendationLimit:        500,
		PollInterval:               3 * time.Second,
		GenerationTimeout:          5 * time.Minute,
		RecommendationStaleMinutes: 60,
	}
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir string, target *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	defaults := DefaultDashboardConfig()
	v.SetDefault("api.base_url", "https://api.tradedesk.dev")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("dashboard.quote_batch_size", defaults.QuoteBatchSize)
	v.SetDefault("dashboard.quote_batch_pause", defaults.QuoteBatchPause)
	v.SetDefault("dashboard.recommendation_limit", defaults.RecommendationLimit)
	v.SetDefault("dashboard.poll_interval", defaults.PollInterval)
	v.SetDefault("dashboard.generation_timeout", defaults.GenerationTimeout)
	v.SetDefault("dashboard.recommendation_stale_minutes", defaults.RecommendationStaleMinutes)
	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.time_format", "15:04:05")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if err := createTemplateConfig(configDir); err != nil {
				return err
			}
		} else {
			return err
		}
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRADEDESK_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("TRADEDESK_API_TOKEN"); v != "" {
		cfg.Credentials.APIToken = v
	}
	if v := os.Getenv("TRADEDESK_USER_ID"); v != "" {
		cfg.Credentials.UserID = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url must not be empty")
	}
	if c.Dashboard.QuoteBatchSize <= 0 || c.Dashboard.QuoteBatchSize > 50 {
		return fmt.Errorf("dashboard.quote_batch_size must be between 1 and 50")
	}
	if c.Dashboard.QuoteBatchPause < 0 {
		return fmt.Errorf("dashboard.quote_batch_pause must be non-negative")
	}
	if c.Dashboard.RecommendationLimit <= 0 || c.Dashboard.RecommendationLimit > 500 {
		return fmt.Errorf("dashboard.recommendation_limit must be between 1 and 500")
	}
	if c.Dashboard.PollInterval <= 0 {
		return fmt.Errorf("dashboard.poll_interval must be positive")
	}
	if c.Dashboard.GenerationTimeout <= c.Dashboard.PollInterval {
		return fmt.Errorf("dashboard.generation_timeout must exceed poll_interval")
	}
	return nil
}
