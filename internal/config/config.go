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

type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// Enabled reports whether enough SMTP settings are present to send mail.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.User != "" && s.Pass != ""
}

type Config struct {
	Port        string
	Environment string
	AppId       string
	JWTSecret   string
	SkipAuth    bool

	DBDriver string // sqlite, postgres or pgx
	DBDSN    string

	// Optional MongoDB sink for system log events.
	MongoURI    string
	MongoDBName string

	SMTP SMTPConfig

	WebhookTimeout       time.Duration
	WebhookSigningSecret string

	DeliveryInterval  time.Duration
	SLAInterval       time.Duration
	SchedulerLockPath string

	NotifyWorkers   int
	NotifyQueueSize int
	SystemLogBuffer int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		AppId:       getEnv("APP_ID", "regula"),
		JWTSecret:   getEnv("JWT_SECRET", "secret"),
		SkipAuth:    getEnvBool("SKIP_AUTH", false),

		DBDriver: strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBDSN:    getEnv("DB_DSN", "regula.db"),

		MongoURI:    getEnv("MONGO_URI", ""),
		MongoDBName: getEnv("MONGO_DB_NAME", "regula"),

		SMTP: SMTPConfig{
			Host: getEnv("SMTP_HOST", "smtp.ethereal.email"),
			Port: getEnvInt("SMTP_PORT", 587),
			User: getEnv("SMTP_USER", ""),
			Pass: getEnv("SMTP_PASS", ""),
			From: getEnv("SMTP_FROM", "noreply@regula.app"),
		},

		WebhookTimeout:       getEnvDuration("WEBHOOK_TIMEOUT", 10*time.Second),
		WebhookSigningSecret: getEnv("WEBHOOK_SIGNING_SECRET", ""),

		DeliveryInterval:  getEnvDuration("DELIVERY_INTERVAL", 30*time.Second),
		SLAInterval:       getEnvDuration("SLA_INTERVAL", 60*time.Second),
		SchedulerLockPath: getEnv("SCHEDULER_LOCK_PATH", "regula-scheduler.lock"),

		NotifyWorkers:   getEnvInt("NOTIFY_WORKERS", 4),
		NotifyQueueSize: getEnvInt("NOTIFY_QUEUE_SIZE", 256),
		SystemLogBuffer: getEnvInt("SYSLOG_BUFFER", 1000),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres", "pgx":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want sqlite, postgres or pgx)", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if c.WebhookTimeout <= 0 {
		return fmt.Errorf("WEBHOOK_TIMEOUT must be positive")
	}
	if c.DeliveryInterval <= 0 || c.SLAInterval <= 0 {
		return fmt.Errorf("scheduler intervals must be positive")
	}
	if c.NotifyWorkers < 1 {
		return fmt.Errorf("NOTIFY_WORKERS must be at least 1")
	}
	if c.NotifyQueueSize < 1 || c.SystemLogBuffer < 1 {
		return fmt.Errorf("queue sizes must be at least 1")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		log.Printf("Invalid integer for %s=%q, using %d", key, value, fallback)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return b
}

// getEnvDuration accepts Go durations ("30s") or bare seconds ("30").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("Invalid duration for %s=%q, using %s", key, value, fallback)
	return fallback
}
