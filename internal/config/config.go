package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port            string
	DBDriver        string
	DBConn          string
	DBTransactions  bool
	LogLevel        string
	JWTSecret       string
	HMACSecret      string
	Location        *time.Location
	DefaultDueDay   int
	FeeSchedule     string
	EmailSchedule   string
	AuditSchedule   string
	AuditRetention  time.Duration
	EmailMaxRetries int
	SMTPHost        string
	SMTPPort        string
	SMTPUsername    string
	SMTPPassword    string
	SenderEmail     string
}

// NewConfig loads configuration from environment variables, reading a .env file first if present
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	dbTx, err := strconv.ParseBool(getEnv("DB_TRANSACTIONS", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_TRANSACTIONS: %w", err)
	}
	dueDay, err := strconv.Atoi(getEnv("DEFAULT_FEE_DUE_DAY", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_FEE_DUE_DAY: %w", err)
	}
	retention, err := time.ParseDuration(getEnv("AUDIT_RETENTION", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUDIT_RETENTION: %w", err)
	}
	maxRetries, err := strconv.Atoi(getEnv("EMAIL_MAX_RETRIES", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid EMAIL_MAX_RETRIES: %w", err)
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		DBDriver:        getEnv("DB_DRIVER", "postgres"),
		DBConn:          getEnv("DB_CONN", "host=localhost port=5432 user=test password=test dbname=tms sslmode=disable"),
		DBTransactions:  dbTx,
		LogLevel:        getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:       getEnv("JWT_SECRET", "secret"),
		HMACSecret:      getEnv("HMAC_SECRET", "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"),
		Location:        loc,
		DefaultDueDay:   dueDay,
		FeeSchedule:     getEnv("FEE_GENERATION_SCHEDULE", "0 0 1 * *"),
		EmailSchedule:   getEnv("EMAIL_QUEUE_SCHEDULE", "@every 1m"),
		AuditSchedule:   getEnv("AUDIT_PURGE_SCHEDULE", "*/5 * * * *"),
		AuditRetention:  retention,
		EmailMaxRetries: maxRetries,
		SMTPHost:        getEnv("SMTP_HOST", ""),
		SMTPPort:        getEnv("SMTP_PORT", "587"),
		SMTPUsername:    getEnv("SMTP_USERNAME", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
		SenderEmail:     getEnv("SENDER_EMAIL", "no-reply@tms.local"),
	}

	if cfg.DBDriver != "postgres" && cfg.DBDriver != "memory" {
		return nil, fmt.Errorf("DB_DRIVER must be postgres or memory, got %q", cfg.DBDriver)
	}
	if cfg.DBDriver == "postgres" && cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.HMACSecret == "" {
		return nil, fmt.Errorf("HMAC_SECRET is required")
	}
	if cfg.DefaultDueDay < 1 || cfg.DefaultDueDay > 28 {
		return nil, fmt.Errorf("DEFAULT_FEE_DUE_DAY must be between 1 and 28, got %d", cfg.DefaultDueDay)
	}
	if cfg.EmailMaxRetries < 1 {
		return nil, fmt.Errorf("EMAIL_MAX_RETRIES must be positive")
	}

	return cfg, nil
}

// SMTPConfigured reports whether real email delivery is possible
func (c *Config) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.SMTPUsername != "" && c.SMTPPassword != ""
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
