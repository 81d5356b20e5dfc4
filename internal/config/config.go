package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Logger    LoggerConfig
	Database  DatabaseConfig
	Processor ProcessorConfig
	Sweep     SweepConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	ConnMaxLifetime time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
}

// ProcessorConfig holds credentials and call policy for the external
// payment processor. SecretKey and WebhookSecret have no defaults:
// the service refuses to start without them.
type ProcessorConfig struct {
	SecretKey      string
	WebhookSecret  string
	BaseURL        string
	RequestTimeout time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
}

// SweepConfig holds timing for the background reconciliation sweep and
// for callers waiting on a concurrent attempt with the same idempotency key.
type SweepConfig struct {
	Interval            time.Duration
	StuckAfter          time.Duration
	IdempotencyKeyTTL   time.Duration
	AwaitResultInterval time.Duration
	AwaitResultTimeout  time.Duration
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level string // debug, info, warn, error
}

// Load loads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", "15s"),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", "60s"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "payments"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", "5m"),
		},
		Processor: ProcessorConfig{
			SecretKey:      os.Getenv("PROCESSOR_SECRET_KEY"),
			WebhookSecret:  os.Getenv("PROCESSOR_WEBHOOK_SECRET"),
			BaseURL:        getEnv("PROCESSOR_BASE_URL", "https://api.processor.example.com"),
			RequestTimeout: getEnvAsDuration("PROCESSOR_REQUEST_TIMEOUT", "10s"),
			MaxRetries:     getEnvAsInt("PROCESSOR_MAX_RETRIES", 3),
			InitialBackoff: getEnvAsDuration("PROCESSOR_INITIAL_BACKOFF", "500ms"),
		},
		Sweep: SweepConfig{
			Interval:            getEnvAsDuration("SWEEP_INTERVAL", "1m"),
			StuckAfter:          getEnvAsDuration("SWEEP_STUCK_AFTER", "5m"),
			IdempotencyKeyTTL:   getEnvAsDuration("IDEMPOTENCY_KEY_TTL", "24h"),
			AwaitResultInterval: getEnvAsDuration("AWAIT_RESULT_INTERVAL", "200ms"),
			AwaitResultTimeout:  getEnvAsDuration("AWAIT_RESULT_TIMEOUT", "15s"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host cannot be empty")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("database name cannot be empty")
	}

	if c.Processor.SecretKey == "" {
		return fmt.Errorf("PROCESSOR_SECRET_KEY must be set")
	}
	if c.Processor.WebhookSecret == "" {
		return fmt.Errorf("PROCESSOR_WEBHOOK_SECRET must be set")
	}
	if c.Processor.BaseURL == "" {
		return fmt.Errorf("processor base URL cannot be empty")
	}
	if c.Processor.MaxRetries < 0 {
		return fmt.Errorf("processor max retries cannot be negative")
	}
	if c.Processor.RequestTimeout <= 0 {
		return fmt.Errorf("processor request timeout must be positive")
	}

	if c.Sweep.Interval <= 0 {
		return fmt.Errorf("sweep interval must be positive")
	}
	if c.Sweep.IdempotencyKeyTTL <= 0 {
		return fmt.Errorf("idempotency key TTL must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to parsing the default if provided value is invalid
		duration, err = time.ParseDuration(defaultValue)
		if err != nil {
			return 0
		}
	}
	return duration
}
