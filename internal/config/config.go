package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Last.fm username used when --user is not given
	Username string

	// Default report period: weekly, monthly or yearly
	Period string

	// Tracks per period
	Top int

	// Default output format: xlsx, csv, reddit or table
	Format string

	// Directory report files are written to
	OutputDir string

	// Weekday weekly reports align to; empty keeps the range start as is
	WeekStart string

	// IANA zone bucket boundaries are computed in; empty means local time
	Timezone string

	// Requests per second against the Last.fm API (0 = unlimited)
	RateLimit float64

	LastFM LastFMConfig
	Retry  RetryConfig
	Cache  CacheConfig
}

// LastFMConfig holds Last.fm specific configuration
type LastFMConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// RetryConfig bounds the per-period fetch attempts
type RetryConfig struct {
	MaxRetries int
	Delay      time.Duration
}

// CacheConfig controls the on-disk chart cache
type CacheConfig struct {
	Enabled bool
	Path    string
	MaxAge  time.Duration
}

// ErrMissingAPIKey is returned by Validate when no API key is configured.
var ErrMissingAPIKey = errors.New("Last.fm API key is not configured (run 'toptracks configure' or set TOPTRACKS_LASTFM_API_KEY)")

// Load reads configuration from file and environment
func Load() (*Config, error) {
	// A local .env file is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Config file locations (in order of precedence)
	configDir := getConfigDir()
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v, configDir)

	// Read config file (optional - don't fail if missing)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Read from environment variables, e.g. TOPTRACKS_LASTFM_API_KEY
	v.SetEnvPrefix("TOPTRACKS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Map config to struct
	cfg := &Config{
		Username:  v.GetString("username"),
		Period:    v.GetString("period"),
		Top:       v.GetInt("top"),
		Format:    v.GetString("format"),
		OutputDir: v.GetString("output_dir"),
		WeekStart: v.GetString("week_start"),
		Timezone:  v.GetString("timezone"),
		RateLimit: v.GetFloat64("rate_limit"),
		LastFM: LastFMConfig{
			APIKey:  v.GetString("lastfm.api_key"),
			BaseURL: v.GetString("lastfm.base_url"),
			Timeout: v.GetDuration("lastfm.timeout"),
		},
		Retry: RetryConfig{
			MaxRetries: v.GetInt("retry.max_retries"),
			Delay:      v.GetDuration("retry.delay"),
		},
		Cache: CacheConfig{
			Enabled: v.GetBool("cache.enabled"),
			Path:    v.GetString("cache.path"),
			MaxAge:  v.GetDuration("cache.max_age"),
		},
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("username", "")
	v.SetDefault("period", "monthly")
	v.SetDefault("top", 1)
	v.SetDefault("format", "xlsx")
	v.SetDefault("output_dir", ".")
	v.SetDefault("week_start", "")
	v.SetDefault("timezone", "")
	v.SetDefault("rate_limit", 5.0)
	v.SetDefault("lastfm.api_key", "")
	v.SetDefault("lastfm.base_url", "https://ws.audioscrobbler.com/2.0/")
	v.SetDefault("lastfm.timeout", 30*time.Second)
	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.delay", 2*time.Second)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", filepath.Join(configDir, "charts.db"))
	v.SetDefault("cache.max_age", 0)
}

// Validate checks the values a report run depends on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.LastFM.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if c.Top < 1 {
		return fmt.Errorf("top must be at least 1, got %d", c.Top)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative, got %d", c.Retry.MaxRetries)
	}
	if c.Retry.Delay < 0 {
		return fmt.Errorf("retry.delay must not be negative, got %s", c.Retry.Delay)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative, got %g", c.RateLimit)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone, defaulting to the local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	configDir := filepath.Join(homeDir, ".config", "toptracks")

	// Create config directory if it doesn't exist
	_ = os.MkdirAll(configDir, 0755)

	return configDir
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}

// Save writes configuration to file
func (c *Config) Save() error {
	v := viper.New()

	// Set config file path
	configDir := getConfigDir()
	configFile := filepath.Join(configDir, "config.yaml")

	// Set values in viper
	v.Set("username", c.Username)
	v.Set("period", c.Period)
	v.Set("top", c.Top)
	v.Set("format", c.Format)
	v.Set("output_dir", c.OutputDir)
	v.Set("week_start", c.WeekStart)
	v.Set("timezone", c.Timezone)
	v.Set("rate_limit", c.RateLimit)
	v.Set("lastfm.api_key", c.LastFM.APIKey)
	v.Set("lastfm.base_url", c.LastFM.BaseURL)
	v.Set("lastfm.timeout", c.LastFM.Timeout.String())
	v.Set("retry.max_retries", c.Retry.MaxRetries)
	v.Set("retry.delay", c.Retry.Delay.String())
	v.Set("cache.enabled", c.Cache.Enabled)
	v.Set("cache.path", c.Cache.Path)
	v.Set("cache.max_age", c.Cache.MaxAge.String())

	// Write to file
	return v.WriteConfigAs(configFile)
}
