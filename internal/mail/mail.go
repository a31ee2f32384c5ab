// Package mail delivers report and login emails through SMTP, the Resend
// HTTP API or the application log.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jimdaga/ki-report/internal/logging"
)

// Attachment is a file added to a Message.
type Attachment struct {
	Filename string
	Content  []byte
	MimeType string
}

// Message is one outgoing email. HTML is the primary body; Text is the
// plain alternative and may be empty.
type Message struct {
	To          []string
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
}

// Transport hands a message to a delivery backend.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// Sender wraps a Transport and reports failures as values so the caller
// can record them next to the report.
type Sender struct {
	transport Transport
	logger    *slog.Logger
}

// NewSender creates a Sender on top of t.
func NewSender(t Transport, logger *slog.Logger) *Sender {
	return &Sender{transport: t, logger: logger}
}

// Send delivers msg. It never panics; a transport panic is reported as an error string.
func (s *Sender) Send(ctx context.Context, msg Message) (ok bool, errMsg string) {
	defer func() {
		if r := recover(); r != nil {
			ok, errMsg = false, fmt.Sprintf("mail transport panic: %v", r)
			s.logger.Error("mail transport panicked", "panic", r)
		}
	}()

	msg.To = compact(msg.To)
	if len(msg.To) == 0 {
		return false, "no recipients"
	}
	if err := s.transport.Send(ctx, msg); err != nil {
		s.logger.Error("failed to send email",
			"to", maskAll(msg.To),
			"subject", msg.Subject,
			"error", err,
		)
		return false, err.Error()
	}
	s.logger.Info("email sent", "to", maskAll(msg.To), "subject", msg.Subject, "attachments", len(msg.Attachments))
	return true, ""
}

// AdminRecipients merges the admin list with the report admin address,
// dropping blanks and case-insensitive duplicates while keeping order.
func AdminRecipients(adminEmails []string, reportAdmin string) []string {
	return compact(append(append([]string{}, adminEmails...), reportAdmin))
}

func compact(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, addr := range in {
		addr = strings.TrimSpace(addr)
		key := strings.ToLower(addr)
		if addr == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, addr)
	}
	return out
}

func maskAll(addrs []string) string {
	masked := make([]string, len(addrs))
	for i, a := range addrs {
		masked[i] = logging.MaskEmail(a)
	}
	return strings.Join(masked, ",")
}

// LogTransport writes messages to the logger instead of delivering them.
// It is the development default when no provider is configured.
type LogTransport struct {
	Logger *slog.Logger
}

// Send logs the message headers and a text preview.
func (t LogTransport) Send(_ context.Context, msg Message) error {
	preview := msg.Text
	if preview == "" {
		preview = msg.HTML
	}
	if r := []rune(preview); len(r) > 300 {
		preview = string(r[:300])
	}
	t.Logger.Warn("mail provider disabled, message logged only",
		"to", strings.Join(msg.To, ","),
		"subject", msg.Subject,
		"attachments", len(msg.Attachments),
		"preview", preview,
	)
	return nil
}

// NewTransport selects the backend named by provider ("smtp", "resend" or "log").
func NewTransport(provider string, smtp SMTPConfig, resendKey string, logger *slog.Logger) Transport {
	switch provider {
	case "smtp":
		return NewSMTPTransport(smtp)
	case "resend":
		return NewResendTransport(resendKey, smtp.From, "")
	default:
		return LogTransport{Logger: logger}
	}
}
