// Package sender превращает события из очереди уведомлений в письма.
package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/magabrotheeeer/geoestate/internal/lib/metrics"
	"github.com/magabrotheeeer/geoestate/internal/lib/sl"
	"github.com/magabrotheeeer/geoestate/internal/models"
)

// Mailer отправляет готовое письмо.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

type letter struct {
	subject string
	body    *template.Template
}

var letters = map[string]letter{
	models.EventUserRegistered: {
		subject: "Welcome to GeoEstate",
		body: template.Must(template.New("welcome").Parse(
			`<p>Hello {{.Email}}!</p><p>Your free trial is active until {{.Until.Format "02 Jan 2006 15:04 MST"}}.</p>`)),
	},
	models.EventSubscriptionActivated: {
		subject: "Your GeoEstate subscription is active",
		body: template.Must(template.New("activated").Parse(
			`<p>Thank you! Your {{.PlanName}} plan is active until {{.Until.Format "02 Jan 2006"}}.</p>`)),
	},
	models.EventTrialEnding: {
		subject: "Your GeoEstate trial ends soon",
		body: template.Must(template.New("trial").Parse(
			`<p>Your free trial ends on {{.Until.Format "02 Jan 2006 15:04 MST"}}. Choose a plan to keep access to the listings.</p>`)),
	},
	models.EventSubscriptionExpiring: {
		subject: "Your GeoEstate subscription expires soon",
		body: template.Must(template.New("expiring").Parse(
			`<p>Your {{.PlanName}} plan expires on {{.Until.Format "02 Jan 2006"}}. Renew to keep access.</p>`)),
	},
}

// Service обрабатывает сообщения очереди уведомлений.
type Service struct {
	mailer Mailer
	log    *slog.Logger
}

// NewService создаёт Service.
func NewService(mailer Mailer, log *slog.Logger) *Service {
	return &Service{
		mailer: mailer,
		log:    log,
	}
}

// Handle разбирает тело сообщения и отправляет соответствующее письмо.
// Неизвестные типы событий пропускаются без ошибки.
func (s *Service) Handle(ctx context.Context, body []byte) error {
	const op = "sender.Handle"
	var n models.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	l, ok := letters[n.Kind]
	if !ok {
		s.log.Warn("unknown notification kind", slog.String("kind", n.Kind))
		return nil
	}
	if n.Email == "" {
		s.log.Warn("notification without recipient", slog.String("kind", n.Kind), slog.String("user_id", n.UserUID))
		return nil
	}

	var buf bytes.Buffer
	if err := l.body.Execute(&buf, n); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.mailer.Send(ctx, n.Email, l.subject, buf.String()); err != nil {
		metrics.NotificationsSent.WithLabelValues(n.Kind, "error").Inc()
		return fmt.Errorf("%s: %w", op, err)
	}
	metrics.NotificationsSent.WithLabelValues(n.Kind, "ok").Inc()
	return nil
}
