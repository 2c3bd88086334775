package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Ledger       LedgerConfig
	Resume       ResumeConfig
	Notification NotificationConfig
	SMTP         SMTPConfig
	Catalog      CatalogConfig
	RateLimit    RateLimitConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig guards the monitoring routes with operator tokens.
type AuthConfig struct {
	Enabled               bool
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// Ledger store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// LedgerConfig selects and tunes the approval ticket store.
type LedgerConfig struct {
	Store                    string
	FilePath                 string
	RetentionHours           int
	RetentionIntervalMinutes int
}

// ResumeConfig points at the agent runtime that paused conversations are resumed on.
type ResumeConfig struct {
	BaseURL        string
	Path           string
	AppName        string
	TimeoutSeconds int
	MaxAttempts    int
	RetryBackoffMS int
}

// NotificationConfig holds outbound notification settings.
type NotificationConfig struct {
	ApprovalPublicURL string
	WebhookURL        string
}

// SMTPConfig holds mail delivery credentials. An empty password means demo mode.
type SMTPConfig struct {
	SenderEmail    string
	SenderPassword string
	Server         string
	Port           int
}

// CatalogConfig points at an optional YAML claim and policy catalog.
type CatalogConfig struct {
	Path string
}

// RateLimitConfig throttles the routes that send email, per client IP.
// A non-positive rate disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	port := getEnv("APP_PORT", getEnv("AGENT_SERVER_PORT", "8086"))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "insurance-notification-agent"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  port,
			Version:               getEnv("APP_VERSION", "2.0.0"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			Enabled:               getEnvAsBool("AUTH_ENABLED", false),
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Ledger: LedgerConfig{
			Store:                    strings.ToLower(getEnv("LEDGER_STORE", StoreFile)),
			FilePath:                 getEnv("LEDGER_FILE_PATH", "/tmp/approval_requests.json"),
			RetentionHours:           getEnvAsInt("LEDGER_RETENTION_HOURS", 24),
			RetentionIntervalMinutes: getEnvAsInt("LEDGER_RETENTION_INTERVAL_MINUTES", 60),
		},
		Resume: ResumeConfig{
			BaseURL:        strings.TrimRight(getEnv("RESUME_BASE_URL", getEnv("ADK_API_URL", "http://127.0.0.1:"+port)), "/"),
			Path:           getEnv("RESUME_PATH", "/run"),
			AppName:        getEnv("RESUME_APP_NAME", "insurance_notification_v2"),
			TimeoutSeconds: getEnvAsInt("RESUME_TIMEOUT_SECONDS", 30),
			MaxAttempts:    getEnvAsInt("RESUME_MAX_ATTEMPTS", 3),
			RetryBackoffMS: getEnvAsInt("RESUME_RETRY_BACKOFF_MS", 500),
		},
		Notification: NotificationConfig{
			ApprovalPublicURL: strings.TrimRight(getEnv("APPROVAL_PUBLIC_URL", getEnv("APPROVAL_API_URL", "http://localhost:"+port)), "/"),
			WebhookURL:        getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
		SMTP: SMTPConfig{
			SenderEmail:    getEnv("SENDER_EMAIL", "noreply@insurance.com"),
			SenderPassword: os.Getenv("SENDER_PASSWORD"),
			Server:         getEnv("SMTP_SERVER", "smtp.gmail.com"),
			Port:           getEnvAsInt("SMTP_PORT", 587),
		},
		Catalog: CatalogConfig{
			Path: os.Getenv("CATALOG_FILE"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsFloat("EMAIL_RATE_LIMIT_RPS", 1),
			Burst:             getEnvAsInt("EMAIL_RATE_LIMIT_BURST", 5),
		},
	}

	switch cfg.Ledger.Store {
	case StoreMemory, StoreFile, StoreRedis:
	default:
		return nil, fmt.Errorf("invalid LEDGER_STORE %q", cfg.Ledger.Store)
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Retention returns how long resolved tickets are kept. Zero disables purging.
func (l LedgerConfig) Retention() time.Duration {
	if l.RetentionHours <= 0 {
		return 0
	}
	return time.Duration(l.RetentionHours) * time.Hour
}

// RetentionInterval returns how often the retention worker runs.
func (l LedgerConfig) RetentionInterval() time.Duration {
	if l.RetentionIntervalMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(l.RetentionIntervalMinutes) * time.Minute
}

// URL returns the absolute resume endpoint.
func (r ResumeConfig) URL() string {
	path := r.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return r.BaseURL + path
}

// Timeout bounds a single resume delivery attempt.
func (r ResumeConfig) Timeout() time.Duration {
	if r.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// RetryBackoff is the base delay between delivery attempts.
func (r ResumeConfig) RetryBackoff() time.Duration {
	if r.RetryBackoffMS < 0 {
		return 0
	}
	return time.Duration(r.RetryBackoffMS) * time.Millisecond
}

// DemoMode reports whether mail is logged instead of sent.
func (s SMTPConfig) DemoMode() bool {
	return s.SenderPassword == ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
