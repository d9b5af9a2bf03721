// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	window := cfg.Matching.DateWindowDays
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration
type Config struct {
	Matching      MatchingConfig      `yaml:"matching"`
	Amazon        AmazonConfig        `yaml:"amazon"`
	Storage       StorageConfig       `yaml:"storage"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// MatchingConfig holds the matching engine knobs
type MatchingConfig struct {
	DateWindowDays     int     `yaml:"date_window_days"`
	MinConfidence      float64 `yaml:"min_confidence"`
	MaxComboSize       int     `yaml:"max_combo_size"`
	MaxSplitGroups     int     `yaml:"max_split_groups"`
	SplitConfidenceCap float64 `yaml:"split_confidence_cap"`
}

// AmazonConfig holds Amazon-specific settings
type AmazonConfig struct {
	// PayeePatterns are case-insensitive regexes used to select Amazon
	// charges from the ledger cache; empty uses the built-in defaults.
	PayeePatterns []string `yaml:"payee_patterns"`
	AccountName   string   `yaml:"account_name"` // For multi-account support (optional)
}

// StorageConfig holds database and report output configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	ReportsDir   string `yaml:"reports_dir"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${RECON_DB_PATH})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := &Config{
		Storage: StorageConfig{
			DatabasePath: getEnv("RECON_DB_PATH", "amazon_recon.db"),
			ReportsDir:   getEnv("RECON_REPORTS_DIR", "reports"),
		},
		Matching: MatchingConfig{
			DateWindowDays: getEnvInt("MATCH_DATE_WINDOW_DAYS", 2),
			MinConfidence:  getEnvFloat("MATCH_MIN_CONFIDENCE", 0.80),
			MaxComboSize:   getEnvInt("MATCH_MAX_COMBO_SIZE", 4),
			MaxSplitGroups: getEnvInt("MATCH_MAX_SPLIT_GROUPS", 4),
		},
		Amazon: AmazonConfig{
			PayeePatterns: splitList(os.Getenv("AMAZON_PAYEE_PATTERNS")),
			AccountName:   getEnv("AMAZON_ACCOUNT_NAME", ""),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnv_WithPath("config.yaml")
}

// LoadOrEnv_WithPath tries to load from specified path, falls back to environment variables
func LoadOrEnv_WithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// applyDefaults fills zero values with defaults so a sparse YAML file works
func (c *Config) applyDefaults() {
	if c.Matching.DateWindowDays == 0 {
		c.Matching.DateWindowDays = 2
	}
	if c.Matching.MinConfidence == 0 {
		c.Matching.MinConfidence = 0.80
	}
	if c.Matching.MaxComboSize == 0 {
		c.Matching.MaxComboSize = 4
	}
	if c.Matching.MaxSplitGroups == 0 {
		c.Matching.MaxSplitGroups = 4
	}
	if c.Matching.SplitConfidenceCap == 0 {
		c.Matching.SplitConfidenceCap = 0.70
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "amazon_recon.db"
	}
	if c.Storage.ReportsDir == "" {
		c.Storage.ReportsDir = "reports"
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvFloat retrieves a float environment variable with a fallback default
func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		var result float64
		if _, err := fmt.Sscanf(val, "%f", &result); err == nil {
			return result
		}
	}
	return fallback
}

// splitList splits a comma-separated env value into a trimmed slice
func splitList(val string) []string {
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
