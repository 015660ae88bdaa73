package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreDriverSQLite  = "sqlite"
	StoreDriverMongoDB = "mongodb"
)

// Config represents the full application configuration surface.
type Config struct {
	Server  ServerConfig
	Store   StoreConfig
	SQLite  SQLiteConfig
	MongoDB MongoDBConfig
	AI      AIConfig
	Jobs    JobsConfig
	Quota   QuotaConfig
	Log     LogConfig

	// Timezone is used to compute calendar days, weeks and expiry dates.
	Timezone string
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// StoreConfig selects the document store backend.
type StoreConfig struct {
	Driver string
}

// SQLiteConfig holds settings for the local SQLite document store.
type SQLiteConfig struct {
	Path string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI          string
	DBName       string
	Transactions bool
}

// AIConfig holds settings for the text generation provider.
type AIConfig struct {
	AnthropicKey     string
	AnthropicBaseURL string
	AnthropicModel   string
}

// JobsConfig holds cron schedules for background maintenance.
type JobsConfig struct {
	ReconcileCron string
}

// QuotaConfig tunes the free-tier quota behaviour.
type QuotaConfig struct {
	// RefundOnFailure gives a unit back when generation fails after it was reserved.
	RefundOnFailure bool
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are fine when configuration comes from the environment.
		_ = godotenv.Load()
	}

	mongoTx, err := getenvBool("MONGODB_TRANSACTIONS", false)
	if err != nil {
		return nil, err
	}
	refund, err := getenvBool("QUOTA_REFUND_ON_FAILURE", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Store: StoreConfig{
			Driver: getenvWithDefault("STORE_DRIVER", StoreDriverSQLite),
		},
		SQLite: SQLiteConfig{
			Path: getenvWithDefault("SQLITE_PATH", "data/saveeat.db"),
		},
		MongoDB: MongoDBConfig{
			URI:          os.Getenv("MONGODB_URI"),
			DBName:       getenvWithDefault("MONGODB_DB_NAME", "saveeat"),
			Transactions: mongoTx,
		},
		AI: AIConfig{
			AnthropicKey:     os.Getenv("ANTHROPIC_API_KEY"),
			AnthropicBaseURL: getenvWithDefault("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
			AnthropicModel:   getenvWithDefault("ANTHROPIC_MODEL", "claude-3-haiku-20240307"),
		},
		Jobs: JobsConfig{
			ReconcileCron: getenvWithDefault("RECONCILE_CRON_SCHEDULE", "30 3 * * *"),
		},
		Quota: QuotaConfig{
			RefundOnFailure: refund,
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Timezone: getenvWithDefault("TIMEZONE", "Europe/Paris"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Store.Driver {
	case StoreDriverSQLite:
		if c.SQLite.Path == "" {
			return errors.New("SQLITE_PATH must be provided")
		}
	case StoreDriverMongoDB:
		if c.MongoDB.URI == "" {
			return errors.New("MONGODB_URI must be provided")
		}
		if c.MongoDB.DBName == "" {
			return errors.New("MONGODB_DB_NAME must be provided")
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver)
	}

	if c.AI.AnthropicKey != "" && c.AI.AnthropicBaseURL == "" {
		return errors.New("ANTHROPIC_BASE_URL must not be empty")
	}

	if c.Jobs.ReconcileCron == "" {
		return errors.New("RECONCILE_CRON_SCHEDULE must be provided")
	}
	if _, err := cron.ParseStandard(c.Jobs.ReconcileCron); err != nil {
		return fmt.Errorf("invalid RECONCILE_CRON_SCHEDULE %q: %w", c.Jobs.ReconcileCron, err)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}

	return nil
}

// Location returns the configured time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvBool(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}
