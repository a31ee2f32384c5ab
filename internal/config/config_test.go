package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_TIMEOUT", "")
	t.Setenv("MAIL_PROVIDER", "")
	t.Setenv("SMTP_HOST", "")
	t.Setenv("RESEND_API_KEY", "")
	t.Setenv("DEFAULT_STUNDENSATZ_EUR", "")

	cfg := Load()

	if cfg.OpenAIModel != "gpt-4o" {
		t.Errorf("expected default model gpt-4o, got %s", cfg.OpenAIModel)
	}
	if cfg.OpenAITimeout != 60*time.Second {
		t.Errorf("expected 60s timeout, got %s", cfg.OpenAITimeout)
	}
	if cfg.MailProvider != "log" {
		t.Errorf("expected log mail provider without credentials, got %s", cfg.MailProvider)
	}
	if cfg.JWTSecret == "" {
		t.Error("expected JWT secret to fall back to session secret")
	}
	if cfg.DefaultStundensatz != 0 {
		t.Errorf("expected no hourly rate override by default, got %d", cfg.DefaultStundensatz)
	}
}

func TestDurationAcceptsSeconds(t *testing.T) {
	t.Setenv("PDF_TIMEOUT", "45")
	if got := getEnvDuration("PDF_TIMEOUT", time.Second); got != 45*time.Second {
		t.Errorf("expected 45s, got %s", got)
	}
	t.Setenv("PDF_TIMEOUT", "2m")
	if got := getEnvDuration("PDF_TIMEOUT", time.Second); got != 2*time.Minute {
		t.Errorf("expected 2m, got %s", got)
	}
}

func TestAdminRecipientsDeduplicates(t *testing.T) {
	cfg := &Config{
		AdminEmails:      []string{"a@example.com", "b@example.com", "a@example.com"},
		ReportAdminEmail: "b@example.com",
	}
	got := cfg.AdminRecipients()
	if len(got) != 2 || got[0] != "a@example.com" || got[1] != "b@example.com" {
		t.Errorf("unexpected recipients: %v", got)
	}
	if !cfg.IsAdminEmail(" A@example.com ") {
		t.Error("expected case-insensitive admin match")
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{Env: "production", Port: "8080", SessionSecret: defaultSessionSecret, MailProvider: "log", LoginCodeMaxAttempt: 5, PDFMaxBytes: 1}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for default secret in production")
	}

	cfg.SessionSecret = "real"
	cfg.MailProvider = "smtp"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for smtp without host")
	}

	cfg.SMTPHost = "mail.example.com"
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}
