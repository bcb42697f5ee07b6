package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port      string
	DBConn    string
	LogLevel  string
	JWTSecret string

	// Timezone is the operating region's zone; scheduling and the nightly
	// accrual job are computed in it rather than in a process-wide default.
	Timezone string
	Location *time.Location

	// RateURL points at the published lending reference-rate feed.
	RateURL string

	// AccrualSchedule is the cron expression of the nightly mora job.
	AccrualSchedule string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string
}

// NewConfig loads configuration from the environment, reading a .env file
// first when one is present.
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		DBConn:          getEnv("DB_CONN", "host=localhost port=5432 user=credit password=credit dbname=credit sslmode=disable"),
		LogLevel:        getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:       getEnv("JWT_SECRET", "secret"),
		Timezone:        getEnv("TIMEZONE", "America/Guatemala"),
		RateURL:         getEnv("RATE_URL", "https://www.banguat.gob.gt/ws/tasas.asmx"),
		AccrualSchedule: getEnv("ACCRUAL_SCHEDULE", "10 0 * * *"),
		SMTPHost:        getEnv("SMTP_HOST", "localhost"),
		SMTPPort:        getEnv("SMTP_PORT", "1025"),
		SMTPUsername:    getEnv("SMTP_USERNAME", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
		SenderEmail:     getEnv("SENDER_EMAIL", "creditos@crediventa.local"),
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
