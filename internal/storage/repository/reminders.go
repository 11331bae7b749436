package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/geoestate/internal/models"
)

// ListTrialsEnding возвращает пользователей, чей пробный период заканчивается в [from, to).
func (s *Storage) ListTrialsEnding(ctx context.Context, from, to time.Time) ([]models.Notification, error) {
	const op = "storage.ListTrialsEnding"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, email, trial_end
			  FROM users
			  WHERE trial_active AND trial_end >= $1 AND trial_end < $2`
	rows, err := s.DB.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.Notification
	for rows.Next() {
		n := models.Notification{Kind: models.EventTrialEnding}
		if err := rows.Scan(&n.UserUID, &n.Email, &n.Until); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListSubscriptionsExpiring возвращает активные подписки, которые истекают в [from, to).
func (s *Storage) ListSubscriptionsExpiring(ctx context.Context, from, to time.Time) ([]models.Notification, error) {
	const op = "storage.ListSubscriptionsExpiring"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT u.uid, u.email, COALESCE(p.name, ''), s.end_date
			  FROM subscriptions s
			  JOIN users u ON u.uid = s.user_uid
			  LEFT JOIN plans p ON p.id = s.plan_id
			  WHERE s.is_active AND s.end_date >= $1 AND s.end_date < $2`
	rows, err := s.DB.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.Notification
	for rows.Next() {
		n := models.Notification{Kind: models.EventSubscriptionExpiring}
		if err := rows.Scan(&n.UserUID, &n.Email, &n.PlanName, &n.Until); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
