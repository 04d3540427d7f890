package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/InsiderScan/internal/database"
	"github.com/Alias1177/InsiderScan/models"
)

// Config holds all application configuration
type Config struct {
	Database     database.ConnectionParams
	QueryTimeout time.Duration `env:"DB_QUERY_TIMEOUT" envDefault:"30s"`

	RedisURL string `env:"REDIS_URL"`

	TelegramBotToken string  `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   int64   `env:"TELEGRAM_CHAT_ID"`
	AlertWebhookURL  string  `env:"ALERT_WEBHOOK_URL"`
	AlertMinScore    float64 `env:"ANOMALY_ALERT_MIN_SCORE" envDefault:"7.0"`

	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	DetectionWorkers int    `env:"DETECTION_WORKERS" envDefault:"8"`
	HTTPAddr         string `env:"HTTP_ADDR" envDefault:":8080"`
	MarketTimezone   string `env:"MARKET_TIMEZONE" envDefault:"America/New_York"`
	ThresholdsFile   string `env:"THRESHOLDS_FILE"`

	Thresholds models.Thresholds
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config

	cfg.Database = database.ConnectionParams{
		Host:     getEnvWithDefault("DB_HOST", "localhost"),
		Port:     getEnvWithDefault("DB_PORT", "5432"),
		User:     getEnvWithDefault("DB_USER", "postgres"),
		Password: os.Getenv("DB_PASSWORD"),
		DBName:   getEnvWithDefault("DB_NAME", "options"),
		SSLMode:  getEnvWithDefault("DB_SSLMODE", "disable"),
	}
	cfg.QueryTimeout = getEnvDurationWithDefault("DB_QUERY_TIMEOUT", 30*time.Second)
	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.TelegramChatID = getEnvInt64WithDefault("TELEGRAM_CHAT_ID", 0)
	cfg.AlertWebhookURL = os.Getenv("ALERT_WEBHOOK_URL")
	cfg.AlertMinScore = getEnvFloatWithDefault("ANOMALY_ALERT_MIN_SCORE", 7.0)
	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")
	cfg.DetectionWorkers = getEnvIntWithDefault("DETECTION_WORKERS", 8)
	cfg.HTTPAddr = getEnvWithDefault("HTTP_ADDR", ":8080")
	cfg.MarketTimezone = getEnvWithDefault("MARKET_TIMEZONE", models.DefaultMarketTimezone)
	cfg.ThresholdsFile = os.Getenv("THRESHOLDS_FILE")

	cfg.Thresholds = models.DefaultThresholds()
	if cfg.ThresholdsFile != "" {
		th, err := LoadThresholds(cfg.ThresholdsFile)
		if err != nil {
			return nil, err
		}
		cfg.Thresholds = th
	}
	if days := getEnvIntWithDefault("BASELINE_DAYS", 0); days > 0 {
		cfg.Thresholds.BaselineDays = days
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the detector cannot run with
func (c *Config) Validate() error {
	if c.DetectionWorkers <= 0 {
		return fmt.Errorf("DETECTION_WORKERS must be positive, got %d", c.DetectionWorkers)
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("DB_QUERY_TIMEOUT must be positive, got %s", c.QueryTimeout)
	}
	return ValidateThresholds(c.Thresholds)
}

// Location resolves the market timezone
func (c *Config) Location() *time.Location {
	return models.MarketLocation(c.MarketTimezone)
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		// bare numbers are seconds
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
