// Package config loads showsync configuration from a YAML file and
// SHOWSYNC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/mmcdole/showsync/internal/retry"
	"github.com/spf13/viper"
)

const envPrefix = "SHOWSYNC"

// Config holds all application configuration
type Config struct {
	Trakt   TraktConfig   `mapstructure:"trakt"`
	TMDB    TMDBConfig    `mapstructure:"tmdb"`
	Storage StorageConfig `mapstructure:"storage"`
	Sync    SyncConfig    `mapstructure:"sync"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// TraktConfig configures the primary provider
type TraktConfig struct {
	BaseURL      string  `mapstructure:"base_url"`
	ClientID     string  `mapstructure:"client_id"`
	ClientSecret string  `mapstructure:"client_secret"`
	RateLimit    float64 `mapstructure:"rate_limit"` // Requests per second, 0 = unlimited
}

// TMDBConfig configures the secondary provider
type TMDBConfig struct {
	BaseURL      string  `mapstructure:"base_url"`
	APIKey       string  `mapstructure:"api_key"`
	ImageBaseURL string  `mapstructure:"image_base_url"`
	RateLimit    float64 `mapstructure:"rate_limit"`
}

// StorageConfig locates the local database
type StorageConfig struct {
	Path string `mapstructure:"path"` // Directory holding showsync.db
}

// SyncConfig holds staleness windows and the retry policy
type SyncConfig struct {
	ShowWindow        time.Duration `mapstructure:"show_window"`
	ImageWindow       time.Duration `mapstructure:"image_window"`
	SeasonsWindow     time.Duration `mapstructure:"seasons_window"`
	EpisodeWindow     time.Duration `mapstructure:"episode_window"`
	TrendingWindow    time.Duration `mapstructure:"trending_window"`
	RecommendedWindow time.Duration `mapstructure:"recommended_window"`
	Retry             RetryConfig   `mapstructure:"retry"`
}

// RetryConfig bounds retries of transient provider failures
type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	AttemptTimeout  time.Duration `mapstructure:"attempt_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File   string `mapstructure:"file"`
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" (to File) or "text" (to stderr)
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // Empty disables the endpoint
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Trakt: TraktConfig{
			BaseURL:   "https://api.trakt.tv",
			RateLimit: 3,
		},
		TMDB: TMDBConfig{
			BaseURL:      "https://api.themoviedb.org/3",
			ImageBaseURL: "https://image.tmdb.org/t/p/original",
			RateLimit:    20,
		},
		Storage: StorageConfig{
			Path: defaultDataPath(),
		},
		Sync: SyncConfig{
			ShowWindow:        14 * 24 * time.Hour,
			ImageWindow:       30 * 24 * time.Hour,
			SeasonsWindow:     7 * 24 * time.Hour,
			EpisodeWindow:     24 * time.Hour,
			TrendingWindow:    6 * time.Hour,
			RecommendedWindow: 6 * time.Hour,
			Retry: RetryConfig{
				MaxAttempts:     3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
				AttemptTimeout:  20 * time.Second,
			},
		},
		Logging: LoggingConfig{
			File:   filepath.Join(defaultDataPath(), "showsync.log"),
			Level:  "INFO",
			Format: "json",
		},
	}
}

// defaultDataPath returns the default data directory for the current OS
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "showsync")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "showsync")
	}
}

// DefaultConfigPath returns the default config directory for the current OS
func DefaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "showsync")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "showsync")
	}
}

func newViper(cfg *Config) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	// Every key needs a default for environment overrides to apply.
	v.SetDefault("trakt.base_url", cfg.Trakt.BaseURL)
	v.SetDefault("trakt.client_id", cfg.Trakt.ClientID)
	v.SetDefault("trakt.client_secret", cfg.Trakt.ClientSecret)
	v.SetDefault("trakt.rate_limit", cfg.Trakt.RateLimit)
	v.SetDefault("tmdb.base_url", cfg.TMDB.BaseURL)
	v.SetDefault("tmdb.api_key", cfg.TMDB.APIKey)
	v.SetDefault("tmdb.image_base_url", cfg.TMDB.ImageBaseURL)
	v.SetDefault("tmdb.rate_limit", cfg.TMDB.RateLimit)
	v.SetDefault("storage.path", cfg.Storage.Path)
	v.SetDefault("sync.show_window", cfg.Sync.ShowWindow.String())
	v.SetDefault("sync.image_window", cfg.Sync.ImageWindow.String())
	v.SetDefault("sync.seasons_window", cfg.Sync.SeasonsWindow.String())
	v.SetDefault("sync.episode_window", cfg.Sync.EpisodeWindow.String())
	v.SetDefault("sync.trending_window", cfg.Sync.TrendingWindow.String())
	v.SetDefault("sync.recommended_window", cfg.Sync.RecommendedWindow.String())
	v.SetDefault("sync.retry.max_attempts", cfg.Sync.Retry.MaxAttempts)
	v.SetDefault("sync.retry.initial_interval", cfg.Sync.Retry.InitialInterval.String())
	v.SetDefault("sync.retry.max_interval", cfg.Sync.Retry.MaxInterval.String())
	v.SetDefault("sync.retry.attempt_timeout", cfg.Sync.Retry.AttemptTimeout.String())
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("metrics.addr", cfg.Metrics.Addr)

	// SHOWSYNC_TRAKT_CLIENT_ID overrides trakt.client_id
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig loads configuration from file and environment. An empty path
// searches the default config directory and the working directory for
// config.yaml; a missing file there is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	v := newViper(cfg)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(DefaultConfigPath())
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later and obscurely
func (c *Config) Validate() error {
	if c.Sync.Retry.MaxAttempts < 1 {
		return fmt.Errorf("sync.retry.max_attempts must be at least 1, got %d", c.Sync.Retry.MaxAttempts)
	}
	for name, window := range map[string]time.Duration{
		"sync.show_window":        c.Sync.ShowWindow,
		"sync.image_window":       c.Sync.ImageWindow,
		"sync.seasons_window":     c.Sync.SeasonsWindow,
		"sync.episode_window":     c.Sync.EpisodeWindow,
		"sync.trending_window":    c.Sync.TrendingWindow,
		"sync.recommended_window": c.Sync.RecommendedWindow,
	} {
		if window <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, window)
		}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}
	return nil
}

// SaveConfig writes cfg as YAML to dir/config.yaml
func SaveConfig(cfg *Config, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := newViper(cfg)
	configFile := filepath.Join(dir, "config.yaml")
	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// IsConfigured returns true if both providers have credentials
func (c *Config) IsConfigured() bool {
	return c.Trakt.ClientID != "" && c.TMDB.APIKey != ""
}

// Policy converts the retry settings
func (r RetryConfig) Policy() retry.Policy {
	return retry.Policy{
		MaxAttempts:     r.MaxAttempts,
		InitialInterval: r.InitialInterval,
		MaxInterval:     r.MaxInterval,
		AttemptTimeout:  r.AttemptTimeout,
	}
}
