// Package config loads peek's settings from a YAML file with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appDir     = "peek"
	configFile = "config.yaml"
)

// Config is the persistent application configuration
type Config struct {
	Translate TranslateConfig `yaml:"translate"`
	Cache     CacheConfig     `yaml:"cache"`
	Balloon   BalloonConfig   `yaml:"balloon"`
	History   HistoryConfig   `yaml:"history"`
	Log       LogConfig       `yaml:"log"`
}

// TranslateConfig selects the translation backend
type TranslateConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv      string        `yaml:"api_key_env,omitempty"`
	TargetLanguage string        `yaml:"target_language"`
	RatePerSecond  float64       `yaml:"rate_per_second"`
	Timeout        time.Duration `yaml:"timeout"`
}

// CacheConfig controls the translation cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Path    string        `yaml:"path"`
	TTL     time.Duration `yaml:"ttl"`
}

// BalloonConfig holds the overlay size limits, in cells
type BalloonConfig struct {
	MinWidth  int `yaml:"min_width"`
	MinHeight int `yaml:"min_height"`
	MaxSize   int `yaml:"max_size"`
	PinMargin int `yaml:"pin_margin"`
}

// HistoryConfig controls the pinned panel history file
type HistoryConfig struct {
	Path  string `yaml:"path"`
	Limit int    `yaml:"limit"`
}

// LogConfig controls the debug log
type LogConfig struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Translate: TranslateConfig{
			Provider:       "ollama",
			APIKeyEnv:      "OPENAI_API_KEY",
			TargetLanguage: "Chinese",
			RatePerSecond:  2,
			Timeout:        20 * time.Second,
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    filepath.Join(cacheDir(), "translations.db"),
			TTL:     30 * 24 * time.Hour,
		},
		Balloon: BalloonConfig{
			MinWidth:  30,
			MinHeight: 5,
			MaxSize:   60,
			PinMargin: 1,
		},
		History: HistoryConfig{
			Path:  filepath.Join(dataDir(), "history.json"),
			Limit: 200,
		},
		Log: LogConfig{
			Path:  filepath.Join(cacheDir(), "peek.log"),
			Level: "info",
		},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/peek/config.yaml or the platform
// equivalent.
func DefaultPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = filepath.Join(os.TempDir(), appDir+"-config")
	}
	return filepath.Join(base, appDir, configFile)
}

// Load reads the config at path over the defaults, then applies environment
// overrides. A missing file is not an error. An empty path means
// DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML, creating the directory.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PEEK_PROVIDER"); v != "" {
		c.Translate.Provider = v
	}
	if v := os.Getenv("PEEK_MODEL"); v != "" {
		c.Translate.Model = v
	}
	if v := os.Getenv("PEEK_TARGET_LANG"); v != "" {
		c.Translate.TargetLanguage = v
	}
	if v := os.Getenv("PEEK_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid PEEK_RATE %q: %w", v, err)
		}
		c.Translate.RatePerSecond = rate
	}
	if v := os.Getenv("PEEK_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate rejects settings the program cannot run with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Translate.Provider) {
	case "ollama", "openai":
	default:
		return fmt.Errorf("unknown translate.provider %q (want ollama or openai)", c.Translate.Provider)
	}
	b := c.Balloon
	if b.MinWidth <= 0 || b.MinHeight <= 0 {
		return fmt.Errorf("balloon min_width and min_height must be positive")
	}
	if b.MaxSize > 0 && (b.MaxSize < b.MinWidth || b.MaxSize < b.MinHeight) {
		return fmt.Errorf("balloon max_size %d is below the minimum size", b.MaxSize)
	}
	if c.Translate.RatePerSecond < 0 {
		return fmt.Errorf("translate.rate_per_second must not be negative")
	}
	return nil
}

// APIKey resolves the key from the configured environment variable.
func (t TranslateConfig) APIKey() string {
	if t.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(t.APIKeyEnv)
}

func cacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, appDir)
}

func dataDir() string {
	if base := os.Getenv("XDG_DATA_HOME"); base != "" {
		return filepath.Join(base, appDir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appDir)
	}
	return filepath.Join(home, ".local", "share", appDir)
}
