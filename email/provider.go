// Package email renders and sends status notification emails via multiple
// providers.
package email

import (
	"context"
	"log/slog"
)

// Message is one rendered email ready for transport. Headers carry extra
// RFC 5322 headers such as List-Unsubscribe.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
	Headers map[string]string
}

// Provider defines the interface for email sending implementations.
type Provider interface {
	// Send delivers the message, returning an error only after the
	// provider's own retries are exhausted.
	Send(ctx context.Context, msg *Message) error
}

// Sender renders notification emails and hands them to a pluggable provider.
type Sender struct {
	provider Provider
	logger   *slog.Logger
	baseURL  string // for manage/unsubscribe links
	fromAddr string
}

// New creates a new email sender with the given provider.
func New(provider Provider, logger *slog.Logger, baseURL, fromAddr string) *Sender {
	return &Sender{
		provider: provider,
		logger:   logger,
		baseURL:  baseURL,
		fromAddr: fromAddr,
	}
}
