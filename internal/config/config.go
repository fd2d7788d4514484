package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Provider holds one text generation backend's settings. An empty BaseURL
// means the backend's public endpoint.
type Provider struct {
	APIKey  string
	BaseURL string
	Model   string
}

type Config struct {
	TelegramToken   string
	TelegramWebhook bool
	WebhookURL      string

	DatabaseURI string
	SQLitePath  string

	BotMode      string
	BotName      string
	PersonasFile string

	Gemini  Provider
	Groq    Provider
	Mistral Provider

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	CronSecret string
	HTTPAddr   string

	TZOffsetMinutes      int
	ReminderLead         time.Duration
	ReminderRetention    time.Duration
	ReminderSweep        string
	DailySummarySchedule string
	ExtractionMode       string

	LogLevel string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env file is optional in production
	}

	cfg := &Config{
		TelegramToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhook: getEnvBool("TELEGRAM_WEBHOOK", false),
		WebhookURL:      os.Getenv("WEBHOOK_URL"),

		DatabaseURI: os.Getenv("DATABASE_URI"),
		SQLitePath:  getEnvOrDefault("SQLITE_PATH", "./data/amaa.db"),

		BotMode:      getEnvOrDefault("BOT_MODE", "default"),
		BotName:      os.Getenv("BOT_NAME"),
		PersonasFile: os.Getenv("PERSONAS_FILE"),

		Gemini: Provider{
			APIKey:  os.Getenv("GEMINI_API_KEY"),
			BaseURL: os.Getenv("GEMINI_BASE_URL"),
			Model:   getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		Groq: Provider{
			APIKey:  os.Getenv("GROQ_API_KEY"),
			BaseURL: os.Getenv("GROQ_BASE_URL"),
			Model:   getEnvOrDefault("GROQ_MODEL", "llama-3.1-8b-instant"),
		},
		Mistral: Provider{
			APIKey:  os.Getenv("MISTRAL_API_KEY"),
			BaseURL: os.Getenv("MISTRAL_BASE_URL"),
			Model:   getEnvOrDefault("MISTRAL_MODEL", "mistral-small-latest"),
		},

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),

		CronSecret: os.Getenv("CRON_SECRET"),
		HTTPAddr:   getEnvOrDefault("HTTP_ADDR", ":8080"),

		ReminderSweep:        getEnvOrDefault("REMINDER_SWEEP", "@every 1m"),
		DailySummarySchedule: getEnvOrDefault("DAILY_SUMMARY_SCHEDULE", "0 6 * * *"),
		ExtractionMode:       getEnvOrDefault("EXTRACTION_MODE", "rules"),

		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.TZOffsetMinutes, err = getEnvInt("TZ_OFFSET_MINUTES", 7*60); err != nil {
		return nil, err
	}
	if cfg.ReminderLead, err = getEnvDuration("REMINDER_LEAD", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ReminderRetention, err = getEnvDuration("REMINDER_RETENTION", 24*time.Hour); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing or out-of-range setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.TelegramToken == "" {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is required"))
	}
	if c.TelegramWebhook && c.WebhookURL == "" {
		errs = append(errs, errors.New("WEBHOOK_URL is required when TELEGRAM_WEBHOOK is set"))
	}
	if c.DatabaseURI == "" && c.SQLitePath == "" {
		errs = append(errs, errors.New("either DATABASE_URI or SQLITE_PATH must be set"))
	}
	if c.TZOffsetMinutes < -12*60 || c.TZOffsetMinutes > 14*60 {
		errs = append(errs, fmt.Errorf("TZ_OFFSET_MINUTES %d out of range", c.TZOffsetMinutes))
	}
	if c.ReminderLead <= 0 {
		errs = append(errs, errors.New("REMINDER_LEAD must be positive"))
	}
	if c.ReminderRetention <= 0 {
		errs = append(errs, errors.New("REMINDER_RETENTION must be positive"))
	}
	switch strings.ToLower(c.ExtractionMode) {
	case "rules", "ai":
	default:
		errs = append(errs, fmt.Errorf("EXTRACTION_MODE must be rules or ai, got %q", c.ExtractionMode))
	}
	return errors.Join(errs...)
}

// Location is the fixed zone every date is resolved in.
func (c *Config) Location() *time.Location {
	return time.FixedZone("UTC"+formatOffset(c.TZOffsetMinutes), c.TZOffsetMinutes*60)
}

// CalendarConfigured reports whether Google OAuth credentials are present.
func (c *Config) CalendarConfigured() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

func formatOffset(minutes int) string {
	sign := "+"
	if minutes < 0 {
		sign, minutes = "-", -minutes
	}
	if minutes%60 == 0 {
		return sign + strconv.Itoa(minutes/60)
	}
	return fmt.Sprintf("%s%d:%02d", sign, minutes/60, minutes%60)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
