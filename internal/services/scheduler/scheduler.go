// Package scheduler периодически ищет заканчивающиеся пробные периоды и подписки
// и публикует напоминания в очередь уведомлений.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/magabrotheeeer/geoestate/internal/lib/sl"
	"github.com/magabrotheeeer/geoestate/internal/models"
)

// Repository источник напоминаний.
type Repository interface {
	ListTrialsEnding(ctx context.Context, from, to time.Time) ([]models.Notification, error)
	ListSubscriptionsExpiring(ctx context.Context, from, to time.Time) ([]models.Notification, error)
}

// Publisher публикует событие в обменник уведомлений.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Marker отмечает уже отправленные напоминания.
type Marker interface {
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unmark(ctx context.Context, key string) error
}

// Window горизонт, на который смотрит планировщик.
const Window = 24 * time.Hour

// Service планировщик напоминаний.
type Service struct {
	repo      Repository
	publisher Publisher
	marker    Marker
	log       *slog.Logger
	now       func() time.Time
	cron      *cron.Cron
}

// NewService создаёт Service.
func NewService(repo Repository, publisher Publisher, marker Marker, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		marker:    marker,
		log:       log,
		now:       time.Now,
		cron:      cron.New(),
	}
}

// Start регистрирует задачу по расписанию spec и запускает cron.
func (s *Service) Start(ctx context.Context, spec string) error {
	const op = "scheduler.Start"
	_, err := s.cron.AddFunc(spec, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.log.Error("reminder run failed", sl.Err(err))
		}
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.cron.Start()
	s.log.Info("scheduler started", slog.String("spec", spec))
	return nil
}

// Stop останавливает cron и ждёт завершения текущей задачи.
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce публикует напоминания для всего, что заканчивается в ближайшие сутки,
// и возвращает число опубликованных сообщений.
func (s *Service) RunOnce(ctx context.Context) (int, error) {
	const op = "scheduler.RunOnce"
	now := s.now()

	trials, err := s.repo.ListTrialsEnding(ctx, now, now.Add(Window))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	subs, err := s.repo.ListSubscriptionsExpiring(ctx, now, now.Add(Window))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	published := 0
	for _, n := range append(trials, subs...) {
		key := fmt.Sprintf("reminder:%s:%s:%d", n.Kind, n.UserUID, n.Until.Unix())
		first, err := s.marker.MarkOnce(ctx, key, 2*Window)
		if err != nil {
			s.log.Error("failed to mark reminder", slog.String("key", key), sl.Err(err))
			continue
		}
		if !first {
			continue
		}
		if err := s.publisher.Publish(ctx, n.Kind, n); err != nil {
			s.log.Error("failed to publish message", slog.String("kind", n.Kind), sl.Err(err))
			if err := s.marker.Unmark(ctx, key); err != nil {
				s.log.Error("failed to unmark reminder", slog.String("key", key), sl.Err(err))
			}
			continue
		}
		published++
	}
	if published > 0 {
		s.log.Info("reminders published", slog.Int("count", published))
	}
	return published, nil
}
