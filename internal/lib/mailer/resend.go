// Package mailer отправляет письма через Resend.
package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v3"
)

// Mailer отправляет HTML-письма. Без API-ключа письма только пишутся в лог.
type Mailer struct {
	client *resend.Client
	from   string
	log    *slog.Logger
}

// New создаёт Mailer.
func New(apiKey, from string, log *slog.Logger) *Mailer {
	m := &Mailer{from: from, log: log}
	if apiKey != "" {
		m.client = resend.NewClient(apiKey)
	}
	return m
}

// Send отправляет письмо одному получателю.
func (m *Mailer) Send(ctx context.Context, to, subject, html string) error {
	const op = "mailer.Send"
	if m.client == nil {
		m.log.Warn("resend api key is not set, email skipped", slog.String("to", to), slog.String("subject", subject))
		return nil
	}

	sent, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	m.log.Info("email sent", slog.String("to", to), slog.String("id", sent.Id))
	return nil
}
