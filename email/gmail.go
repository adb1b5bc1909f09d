package email

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"google.golang.org/api/gmail/v1"
)

// GmailProvider sends emails via the Gmail API.
type GmailProvider struct {
	service *gmail.Service
	logger  *slog.Logger
}

// NewGmailProvider creates a new Gmail email provider.
func NewGmailProvider(service *gmail.Service, logger *slog.Logger) *GmailProvider {
	return &GmailProvider{
		service: service,
		logger:  logger,
	}
}

// sanitizeHeader removes newlines and control characters to prevent header
// injection. RFC 5322 headers are newline-delimited, so any newline in a
// header value allows an attacker to inject arbitrary headers or body content.
func sanitizeHeader(s string) string {
	var result strings.Builder
	for _, r := range s {
		if r >= 32 && r != 127 {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// Send sends a message via the Gmail API.
func (g *GmailProvider) Send(ctx context.Context, msg *Message) error {
	to := sanitizeHeader(msg.To)
	subject := sanitizeHeader(msg.Subject)

	// Build a multipart MIME message. From is set by the Gmail API based on
	// the authenticated account.
	const boundary = "statushub-alt"
	var m strings.Builder
	m.WriteString("MIME-Version: 1.0\r\n")
	m.WriteString(fmt.Sprintf("To: %s\r\n", to))
	m.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	keys := make([]string, 0, len(msg.Headers))
	for k := range msg.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		m.WriteString(fmt.Sprintf("%s: %s\r\n", sanitizeHeader(k), sanitizeHeader(msg.Headers[k])))
	}
	m.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary))
	if msg.Text != "" {
		m.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		m.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		m.WriteString(msg.Text)
		m.WriteString("\r\n")
	}
	m.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	m.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	m.WriteString(msg.HTML)
	m.WriteString(fmt.Sprintf("\r\n--%s--\r\n", boundary))
	encoded := base64.URLEncoding.EncodeToString([]byte(m.String()))

	return retry.Do(
		func() error {
			g.logger.Info("Gmail API request starting",
				"method", "POST",
				"endpoint", "users.messages.send",
				"to", to,
				"subject", subject)

			startTime := time.Now()
			_, err := g.service.Users.Messages.Send("me", &gmail.Message{
				Raw: encoded,
			}).Context(ctx).Do()
			duration := time.Since(startTime)

			if err != nil {
				g.logger.Warn("Gmail API send failed, will retry",
					"to", to,
					"duration_ms", duration.Milliseconds(),
					"error", err)
				return err
			}

			g.logger.Info("Gmail API request completed",
				"endpoint", "users.messages.send",
				"to", to,
				"duration_ms", duration.Milliseconds(),
				"status", "success")

			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(2*time.Minute),
		retry.MaxJitter(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			g.logger.Info("Retrying Gmail email send after error", "attempt", n, "error", err)
		}),
	)
}
