// Package property отдаёт каталог объектов недвижимости с учётом доступа пользователя.
package property

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/geoestate/internal/entitlement"
	"github.com/magabrotheeeer/geoestate/internal/lib/metrics"
	"github.com/magabrotheeeer/geoestate/internal/models"
	"github.com/magabrotheeeer/geoestate/internal/storage/repository"
)

// ErrUserNotFound пользователь из токена отсутствует в базе.
var ErrUserNotFound = errors.New("user not found")

// Repository определяет методы хранилища, нужные сервису.
type Repository interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	GetSubscriptionByUser(ctx context.Context, userUID string) (*models.Subscription, error)
	ListProperties(ctx context.Context, f entitlement.Filter) ([]*models.Property, error)
}

// Decider принимает решение о доступе к каталогу.
type Decider interface {
	Decide(now time.Time, user *models.User, sub *models.Subscription) (entitlement.Filter, error)
}

// Service выдаёт объекты каталога, видимые пользователю.
type Service struct {
	repo    Repository
	decider Decider
	log     *slog.Logger
	now     func() time.Time
}

// NewService создает новый экземпляр Service.
func NewService(repo Repository, decider Decider, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		decider: decider,
		log:     log,
		now:     time.Now,
	}
}

// List возвращает GeoJSON FeatureCollection объектов, доступных пользователю.
// Отказ в доступе возвращается как entitlement.ErrNoSubscription или
// entitlement.ErrSubscriptionExpired.
func (s *Service) List(ctx context.Context, userUID string) (*models.FeatureCollection, error) {
	const op = "property.List"
	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sub, err := s.repo.GetSubscriptionByUser(ctx, userUID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		sub = nil
	}

	filter, err := s.decider.Decide(s.now(), user, sub)
	switch {
	case errors.Is(err, entitlement.ErrNoSubscription):
		metrics.EntitlementDecisions.WithLabelValues("no_subscription").Inc()
		return nil, err
	case errors.Is(err, entitlement.ErrSubscriptionExpired):
		metrics.EntitlementDecisions.WithLabelValues("expired").Inc()
		return nil, err
	case err != nil:
		metrics.EntitlementDecisions.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.EntitlementDecisions.WithLabelValues(filter.Grant).Inc()

	props, err := s.repo.ListProperties(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Debug("properties listed",
		slog.String("user_id", userUID),
		slog.String("grant", filter.Grant),
		slog.String("mode", filter.Mode.String()),
		slog.Int("count", len(props)))

	fc := models.NewFeatureCollection(props)
	return &fc, nil
}
