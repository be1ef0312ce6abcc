package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	DBUrl    string
	AppEnv   string
	AppURL   string
	LogLevel string
	// LogFormat is "json" or "text".
	LogFormat string

	JWTSecret string

	StripeSecretKey     string
	StripeWebhookSecret string
	PaymentCurrency     string

	GoogleClientID     string
	GoogleClientSecret string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	RedisURL string

	WebhookReplaySchedule string
	WebhookMaxAttempts    int
	SideEffectTimeout     time.Duration
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	appEnv := normalizeEnv(getEnv("APP_ENV", "production"))
	defaultLogFormat := "json"
	if appEnv == "development" {
		defaultLogFormat = "text"
	}

	return &Config{
		Port:                  getEnv("PORT", "8080"),
		DBUrl:                 getEnv("DB_URL", ""),
		AppEnv:                appEnv,
		AppURL:                strings.TrimRight(getEnv("APP_URL", "http://localhost:3000"), "/"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", defaultLogFormat),
		JWTSecret:             jwtSecret,
		StripeSecretKey:       getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:   getEnv("STRIPE_WEBHOOK_SECRET", ""),
		PaymentCurrency:       strings.ToLower(getEnv("PAYMENT_CURRENCY", "usd")),
		GoogleClientID:        getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:    getEnv("GOOGLE_CLIENT_SECRET", ""),
		SMTPHost:              getEnv("SMTP_HOST", ""),
		SMTPPort:              getEnvInt("SMTP_PORT", 587),
		SMTPUser:              getEnv("SMTP_USER", ""),
		SMTPPassword:          getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:              getEnv("SMTP_FROM", "Nebula <no-reply@nebula.local>"),
		RedisURL:              getEnv("REDIS_URL", ""),
		WebhookReplaySchedule: getEnv("WEBHOOK_REPLAY_SCHEDULE", "@every 5m"),
		WebhookMaxAttempts:    getEnvInt("WEBHOOK_MAX_ATTEMPTS", 5),
		SideEffectTimeout:     time.Duration(getEnvInt("SIDE_EFFECT_TIMEOUT_SECONDS", 30)) * time.Second,
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}

func (c *Config) IsDevelopment() bool {
	return c != nil && c.AppEnv == "development"
}

// PaymentsEnabled reports whether a Stripe key is configured.
func (c *Config) PaymentsEnabled() bool {
	return c != nil && c.StripeSecretKey != ""
}

func (c *Config) CalendarEnabled() bool {
	return c != nil && c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// InsecureSMTP allows skipping TLS verification against local relays.
func (c *Config) InsecureSMTP() bool {
	return c != nil && c.IsDevelopment() && getEnvBool("SMTP_INSECURE_SKIP_VERIFY", false)
}
