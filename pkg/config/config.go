// Package config provides configuration management for the receipt journal tools.
// It loads configuration from environment variables and .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/shunichi-ikebuchi/receipt-journal/pkg/tax"
)

// ErrMissingConfig is returned by Validate when required keys are unset.
var ErrMissingConfig = errors.New("missing required configuration")

// Config represents the application configuration.
type Config struct {
	Classifier ClassifierConfig
	History    HistoryConfig
	Journal    JournalConfig
	Server     ServerConfig
	Debug      bool
}

// ClassifierConfig configures account classification and the remote predictor.
type ClassifierConfig struct {
	URL           string        // CLASSIFIER_URL; empty disables the remote predictor
	APIKey        string        // CLASSIFIER_API_KEY
	Timeout       time.Duration // CLASSIFIER_TIMEOUT
	MinConfidence float64       // CLASSIFIER_MIN_CONFIDENCE
	RulesPath     string        // ACCOUNT_RULES_PATH; empty uses the built-in rules
}

// HistoryConfig configures the learned vendor history.
type HistoryConfig struct {
	DBPath     string // HISTORY_DB_PATH
	MinSamples int    // HISTORY_MIN_SAMPLES
}

// JournalConfig configures entry building and rendering.
type JournalConfig struct {
	MappingPath string           // ACCOUNT_MAPPING_PATH
	Currency    string           // CURRENCY
	Timezone    string           // TIMEZONE
	Rounding    tax.RoundingMode // ROUNDING_MODE
	Historical  bool             // HISTORICAL_TAX_RATES
	LedgerRoot  string           // LEDGER_ROOT; empty disables file export
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr  string // SERVER_ADDR
	Token string // SERVER_API_TOKEN; empty disables authentication
}

// Load loads configuration from environment variables.
// It automatically loads .env file from the current directory if available.
// You can optionally specify a custom .env file path.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	timeout, err := parseDurationEnv("CLASSIFIER_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	minConfidence, err := parseFloatEnv("CLASSIFIER_MIN_CONFIDENCE", 0.6)
	if err != nil {
		return nil, err
	}
	if minConfidence < 0 || minConfidence > 1 {
		return nil, fmt.Errorf("invalid CLASSIFIER_MIN_CONFIDENCE: %v is outside [0, 1]", minConfidence)
	}

	minSamples, err := parseIntEnv("HISTORY_MIN_SAMPLES", 2)
	if err != nil {
		return nil, err
	}

	rounding, err := tax.ParseRoundingMode(os.Getenv("ROUNDING_MODE"))
	if err != nil {
		return nil, fmt.Errorf("invalid ROUNDING_MODE: %w", err)
	}

	config := &Config{
		Classifier: ClassifierConfig{
			URL:           os.Getenv("CLASSIFIER_URL"),
			APIKey:        os.Getenv("CLASSIFIER_API_KEY"),
			Timeout:       timeout,
			MinConfidence: minConfidence,
			RulesPath:     os.Getenv("ACCOUNT_RULES_PATH"),
		},
		History: HistoryConfig{
			DBPath:     getEnvOrDefault("HISTORY_DB_PATH", "./data/history.db"),
			MinSamples: minSamples,
		},
		Journal: JournalConfig{
			MappingPath: getEnvOrDefault("ACCOUNT_MAPPING_PATH", "config/account-mapping.yaml"),
			Currency:    getEnvOrDefault("CURRENCY", "JPY"),
			Timezone:    getEnvOrDefault("TIMEZONE", "Asia/Tokyo"),
			Rounding:    rounding,
			Historical:  os.Getenv("HISTORICAL_TAX_RATES") == "true",
			LedgerRoot:  os.Getenv("LEDGER_ROOT"),
		},
		Server: ServerConfig{
			Addr:  getEnvOrDefault("SERVER_ADDR", ":8080"),
			Token: os.Getenv("SERVER_API_TOKEN"),
		},
		Debug: os.Getenv("DEBUG") == "true",
	}

	return config, nil
}

// Location returns the configured time zone for "today".
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Journal.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Journal.Timezone, err)
	}
	return loc, nil
}

// Validate validates the configuration.
// It checks if all required fields are set, e.g. Validate([]string{"classifier", "url"}).
func (c *Config) Validate(required ...[]string) error {
	var missing []string

	for _, path := range required {
		if len(path) < 2 {
			continue
		}

		var value string
		switch path[0] {
		case "classifier":
			switch path[1] {
			case "url":
				value = c.Classifier.URL
			case "apiKey":
				value = c.Classifier.APIKey
			case "rulesPath":
				value = c.Classifier.RulesPath
			}
		case "server":
			switch path[1] {
			case "addr":
				value = c.Server.Addr
			case "token":
				value = c.Server.Token
			}
		case "history":
			switch path[1] {
			case "dbPath":
				value = c.History.DBPath
			}
		case "journal":
			switch path[1] {
			case "mappingPath":
				value = c.Journal.MappingPath
			case "currency":
				value = c.Journal.Currency
			case "ledgerRoot":
				value = c.Journal.LedgerRoot
			}
		}

		if value == "" {
			missing = append(missing, strings.Join(path, "."))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %v\nPlease check your .env file or environment variables", ErrMissingConfig, missing)
	}

	return nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value for %s: %s", key, value)
	}

	return parsed, nil
}

func parseFloatEnv(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number value for %s: %s", key, value)
	}

	return parsed, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration value for %s: %s", key, value)
	}

	return parsed, nil
}
