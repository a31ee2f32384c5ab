package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/jimdaga/ki-report/internal/mail"
)

const defaultSessionSecret = "dev-secret-change-in-production-use-openssl-rand-hex-32"

// Config holds application configuration loaded from environment variables
type Config struct {
	Env           string
	Port          string
	SessionSecret string
	CORSOrigins   []string

	DatabaseURL string
	RedisURL    string

	LogLevel  string
	LogFormat string

	// LLM
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	OpenAITemperature float64
	OpenAITimeout     time.Duration
	OpenAIMaxTokens   int
	LLMStubMode       bool

	// PDF service
	PDFServiceURL  string
	PDFTimeout     time.Duration
	PDFMaxBytes    int64
	PDFLocalRender bool

	// Mail
	MailProvider     string
	SMTPHost         string
	SMTPPort         int
	SMTPUser         string
	SMTPPass         string
	SMTPFrom         string
	SMTPFromName     string
	ResendAPIKey     string
	AdminEmails      []string
	ReportAdminEmail string

	// Auth
	JWTSecret           string
	JWTTTL              time.Duration
	LoginCodeTTL        time.Duration
	LoginCodeMaxAttempt int
	LoginCodeRatePerHr  int
	GoogleClientID      string
	GoogleClientSecret  string
	GoogleCallbackURL   string

	EncryptionKey string

	// Report
	ReportTemplatePath string
	AIActInfoPath      string
	DefaultStundensatz int
	DefaultQW1Hours    float64
	DefaultQW2Hours    float64
	FallbackQWMonthlyH float64
	EnableQualityGates bool
	EnableOneLiners    bool
	EnableEnsemble     bool
	IdempotencyTTL     time.Duration
	LeadEventsStream   string
	CleanupSchedule    string
	LocalQueueWorkers  int
	LocalQueueCapacity int
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first if present.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("WARNING: failed to load .env: %v", err)
	}

	cfg := &Config{
		Env:           getEnvWithDefault("ENV", "development"),
		Port:          getEnvWithDefault("PORT", "8080"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		CORSOrigins:   splitList(os.Getenv("CORS_ORIGINS")),

		DatabaseURL: getEnvWithDefault("DATABASE_URL", "sqlite:ki-report.db"),
		RedisURL:    os.Getenv("REDIS_URL"),

		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvWithDefault("LOG_FORMAT", "text"),

		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:     os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:       getEnvWithDefault("OPENAI_MODEL", "gpt-4o"),
		OpenAITemperature: getEnvFloat("OPENAI_TEMPERATURE", 0.2),
		OpenAITimeout:     getEnvDuration("OPENAI_TIMEOUT", 60*time.Second),
		OpenAIMaxTokens:   getEnvInt("OPENAI_MAX_TOKENS", 1500),
		LLMStubMode:       getEnvBool("LLM_STUB_MODE", false),

		PDFServiceURL:  os.Getenv("PDF_SERVICE_URL"),
		PDFTimeout:     getEnvDuration("PDF_TIMEOUT", 90*time.Second),
		PDFMaxBytes:    int64(getEnvInt("PDF_MAX_BYTES", 10*1024*1024)),
		PDFLocalRender: getEnvBool("PDF_LOCAL_RENDER", false),

		MailProvider:     strings.ToLower(getEnvWithDefault("MAIL_PROVIDER", "")),
		SMTPHost:         os.Getenv("SMTP_HOST"),
		SMTPPort:         getEnvInt("SMTP_PORT", 587),
		SMTPUser:         os.Getenv("SMTP_USER"),
		SMTPPass:         os.Getenv("SMTP_PASS"),
		SMTPFrom:         getEnvWithDefault("SMTP_FROM", "noreply@ki-sicherheit.jetzt"),
		SMTPFromName:     getEnvWithDefault("SMTP_FROM_NAME", "KI-Sicherheit"),
		ResendAPIKey:     os.Getenv("RESEND_API_KEY"),
		AdminEmails:      splitList(os.Getenv("ADMIN_EMAILS")),
		ReportAdminEmail: strings.TrimSpace(os.Getenv("REPORT_ADMIN_EMAIL")),

		JWTSecret:           os.Getenv("JWT_SECRET"),
		JWTTTL:              getEnvDuration("JWT_TTL", 24*time.Hour),
		LoginCodeTTL:        getEnvDuration("LOGIN_CODE_TTL", 10*time.Minute),
		LoginCodeMaxAttempt: getEnvInt("LOGIN_CODE_MAX_ATTEMPTS", 5),
		LoginCodeRatePerHr:  getEnvInt("LOGIN_CODE_RATE_PER_HOUR", 3),
		GoogleClientID:      os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:  os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleCallbackURL:   os.Getenv("GOOGLE_CALLBACK_URL"),

		EncryptionKey: os.Getenv("ENCRYPTION_KEY"),

		ReportTemplatePath: os.Getenv("REPORT_TEMPLATE_PATH"),
		AIActInfoPath:      os.Getenv("AI_ACT_INFO_PATH"),
		DefaultStundensatz: getEnvInt("DEFAULT_STUNDENSATZ_EUR", 0),
		DefaultQW1Hours:    getEnvFloat("DEFAULT_QW1_H", 10),
		DefaultQW2Hours:    getEnvFloat("DEFAULT_QW2_H", 8),
		FallbackQWMonthlyH: getEnvFloat("FALLBACK_QW_MONTHLY_H", 18),
		EnableQualityGates: getEnvBool("ENABLE_QUALITY_GATES", true),
		EnableOneLiners:    getEnvBool("ENABLE_ONE_LINERS", true),
		EnableEnsemble:     getEnvBool("ENABLE_ENSEMBLE", true),
		IdempotencyTTL:     getEnvDuration("IDEMPOTENCY_TTL", 600*time.Second),
		LeadEventsStream:   os.Getenv("LEAD_EVENTS_STREAM"),
		CleanupSchedule:    getEnvWithDefault("CLEANUP_SCHEDULE", "@every 15m"),
		LocalQueueWorkers:  getEnvInt("LOCAL_QUEUE_WORKERS", 2),
		LocalQueueCapacity: getEnvInt("LOCAL_QUEUE_CAPACITY", 64),
	}

	// Warn if using default session secret (insecure for production)
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = defaultSessionSecret
		log.Println("WARNING: Using default SESSION_SECRET. Generate a secure secret with: openssl rand -hex 32")
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = cfg.SessionSecret
	}
	if cfg.MailProvider == "" {
		cfg.MailProvider = cfg.detectMailProvider()
	}

	return cfg
}

// Validate rejects configurations that cannot work at runtime.
func (c *Config) Validate() error {
	if c.IsProduction() && c.SessionSecret == defaultSessionSecret {
		return fmt.Errorf("SESSION_SECRET must be set in production")
	}
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	switch c.MailProvider {
	case "smtp":
		if c.SMTPHost == "" {
			return fmt.Errorf("MAIL_PROVIDER=smtp requires SMTP_HOST")
		}
	case "resend":
		if c.ResendAPIKey == "" {
			return fmt.Errorf("MAIL_PROVIDER=resend requires RESEND_API_KEY")
		}
	case "log":
	default:
		return fmt.Errorf("unknown MAIL_PROVIDER %q", c.MailProvider)
	}
	if c.LoginCodeMaxAttempt < 1 {
		return fmt.Errorf("LOGIN_CODE_MAX_ATTEMPTS must be >= 1")
	}
	if c.PDFMaxBytes <= 0 {
		return fmt.Errorf("PDF_MAX_BYTES must be positive")
	}
	return nil
}

// IsProduction reports whether ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// AdminRecipients returns ADMIN_EMAILS plus REPORT_ADMIN_EMAIL, deduplicated in order.
func (c *Config) AdminRecipients() []string {
	return mail.AdminRecipients(c.AdminEmails, c.ReportAdminEmail)
}

// IsAdminEmail reports whether email is listed as an admin recipient.
func (c *Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, a := range c.AdminRecipients() {
		if strings.ToLower(a) == email {
			return true
		}
	}
	return false
}

func (c *Config) detectMailProvider() string {
	switch {
	case c.ResendAPIKey != "":
		return "resend"
	case c.SMTPHost != "":
		return "smtp"
	default:
		return "log"
	}
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		log.Printf("WARNING: invalid integer for %s=%q, using %d", key, v, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		log.Printf("WARNING: invalid number for %s=%q, using %v", key, v, defaultValue)
		return defaultValue
	}
	return f
}

func getEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		log.Printf("WARNING: invalid boolean for %s=%q, using %v", key, v, defaultValue)
		return defaultValue
	}
	return b
}

// getEnvDuration accepts Go durations ("90s") or bare seconds ("90").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("WARNING: invalid duration for %s=%q, using %s", key, v, defaultValue)
		return defaultValue
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
