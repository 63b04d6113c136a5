// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	token := cfg.YNAB.AccessToken
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/receiptsync/amazon-ynab-sync/internal/domain/extractor"
	"github.com/receiptsync/amazon-ynab-sync/internal/domain/matcher"
)

// Config represents the entire application configuration
type Config struct {
	IMAP          IMAPConfig          `yaml:"imap"`
	YNAB          YNABConfig          `yaml:"ynab"`
	Extraction    ExtractionConfig    `yaml:"extraction"`
	Matching      MatchingConfig      `yaml:"matching"`
	Gemini        GeminiConfig        `yaml:"gemini"`
	Storage       StorageConfig       `yaml:"storage"`
	API           APIConfig           `yaml:"api"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// IMAPConfig holds mail server settings
type IMAPConfig struct {
	Address  string `yaml:"address"` // host:port, TLS assumed
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Mailbox  string `yaml:"mailbox"`

	// LookbackMessages bounds how far back extraction is attempted during
	// a backfill.
	LookbackMessages int `yaml:"lookback_messages"`
}

// YNABConfig holds YNAB API settings
type YNABConfig struct {
	AccessToken string `yaml:"access_token"`
	BudgetName  string `yaml:"budget_name"`
}

// ExtractionConfig holds extraction settings
type ExtractionConfig struct {
	SenderAddress string   `yaml:"sender_address"`
	SkipPhrases   []string `yaml:"skip_phrases"`
}

// MatchingConfig holds matching tolerances. AmountTolerance is in currency
// units (e.g. 0.5 for fifty cents); DateToleranceDays in whole days.
type MatchingConfig struct {
	AmountTolerance   float64 `yaml:"amount_tolerance"`
	DateToleranceDays int     `yaml:"date_tolerance_days"`
}

// GeminiConfig holds settings for the optional category-suggestion add-on
type GeminiConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// APIConfig holds status API settings
type APIConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
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

	// Expand environment variables (e.g., ${YNAB_TOKEN})
	expanded := os.ExpandEnv(string(data))

	cfg := defaults()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := defaults()

	cfg.IMAP.Address = getEnv("IMAP_ADDRESS", cfg.IMAP.Address)
	cfg.IMAP.Username = os.Getenv("IMAP_USERNAME")
	cfg.IMAP.Password = os.Getenv("IMAP_PASSWORD")
	cfg.IMAP.Mailbox = getEnv("IMAP_MAILBOX", cfg.IMAP.Mailbox)
	cfg.IMAP.LookbackMessages = getEnvInt("IMAP_LOOKBACK_MESSAGES", cfg.IMAP.LookbackMessages)

	cfg.YNAB.AccessToken = os.Getenv("YNAB_TOKEN")
	cfg.YNAB.BudgetName = os.Getenv("YNAB_BUDGET_NAME")

	cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	cfg.Gemini.Enabled = os.Getenv("GEMINI_API_KEY") != ""

	cfg.Storage.DatabasePath = getEnv("SYNC_DB_PATH", cfg.Storage.DatabasePath)

	cfg.Observability.Logging.Level = getEnv("LOG_LEVEL", "info")
	cfg.Observability.Logging.Format = getEnv("LOG_FORMAT", "text")

	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// defaults returns a config pre-filled with default values.
func defaults() *Config {
	ex := extractor.DefaultConfig()
	return &Config{
		IMAP: IMAPConfig{
			Address:          "imap.gmail.com:993",
			Mailbox:          "INBOX",
			LookbackMessages: 500,
		},
		Extraction: ExtractionConfig{
			SenderAddress: ex.SenderAddress,
			SkipPhrases:   ex.SkipPhrases,
		},
		Matching: MatchingConfig{
			AmountTolerance:   0.5,
			DateToleranceDays: 4,
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.0-flash",
		},
		Storage: StorageConfig{
			DatabasePath: "amazon_ynab_sync.db",
		},
		API: APIConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  "info",
				Format: "text",
			},
		},
	}
}

// Validate checks the fields the pipeline cannot start without. Failures
// here are fatal; everything else degrades at runtime instead.
func (c *Config) Validate() error {
	if c.YNAB.AccessToken == "" {
		return fmt.Errorf("ynab access token is required (set YNAB_TOKEN or ynab.access_token)")
	}
	if c.YNAB.BudgetName == "" {
		return fmt.Errorf("ynab budget name is required (set YNAB_BUDGET_NAME or ynab.budget_name)")
	}
	if c.IMAP.Username == "" || c.IMAP.Password == "" {
		return fmt.Errorf("imap credentials are required")
	}
	if c.Matching.DateToleranceDays < 0 {
		return fmt.Errorf("date tolerance must not be negative")
	}
	if c.Matching.AmountTolerance < 0 {
		return fmt.Errorf("amount tolerance must not be negative")
	}
	return nil
}

// ExtractorConfig converts extraction settings to the domain config.
func (c *Config) ExtractorConfig() extractor.Config {
	cfg := extractor.DefaultConfig()
	if c.Extraction.SenderAddress != "" {
		cfg.SenderAddress = c.Extraction.SenderAddress
	}
	if len(c.Extraction.SkipPhrases) > 0 {
		cfg.SkipPhrases = c.Extraction.SkipPhrases
	}
	return cfg
}

// MatcherConfig converts matching tolerances to the domain config. The
// amount tolerance is converted to milliunits through decimal arithmetic so
// a value like 0.5 lands on exactly 500.
func (c *Config) MatcherConfig() matcher.Config {
	amount := decimal.NewFromFloat(c.Matching.AmountTolerance).
		Mul(decimal.NewFromInt(1000)).
		IntPart()

	return matcher.Config{
		DateTolerance:   time.Duration(c.Matching.DateToleranceDays) * 24 * time.Hour,
		AmountTolerance: amount,
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
