package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/geoestate/internal/models"
)

const paymentQuery = `SELECT id, subscription_id, user_uid, plan_id, provider, provider_ref, amount, currency, status,
			      created_at, confirmed_at
			  FROM payments`

// CreatePayment добавляет запись о попытке оплаты в журнал.
func (s *Storage) CreatePayment(ctx context.Context, p *models.Payment) (int64, error) {
	const op = "storage.CreatePayment"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO payments (subscription_id, user_uid, plan_id, provider, provider_ref, amount, currency, status)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  RETURNING id, created_at`
	planID := sql.NullInt64{Int64: p.PlanID, Valid: p.PlanID != 0}
	err := s.DB.QueryRowContext(ctx, query,
		p.SubscriptionID, p.UserUID, planID, string(p.Provider), p.ProviderRef, p.Amount, p.Currency, string(p.Status),
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return p.ID, nil
}

// GetPaymentByRef находит платёж по ссылке провайдера.
func (s *Storage) GetPaymentByRef(ctx context.Context, provider models.PaymentMethod, providerRef string) (*models.Payment, error) {
	const op = "storage.GetPaymentByRef"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := paymentQuery + `
			  WHERE provider = $1 AND provider_ref = $2`
	p, err := scanPayment(s.DB.QueryRowContext(ctx, query, string(provider), providerRef))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// ListPayments возвращает платежи пользователя, новые первыми.
func (s *Storage) ListPayments(ctx context.Context, userUID string) ([]*models.Payment, error) {
	const op = "storage.ListPayments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := paymentQuery + `
			  WHERE user_uid = $1
			  ORDER BY created_at DESC, id DESC`
	rows, err := s.DB.QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := []*models.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func scanPayment(row interface{ Scan(...any) error }) (*models.Payment, error) {
	var p models.Payment
	var (
		planID      sql.NullInt64
		confirmedAt sql.NullTime
	)
	if err := row.Scan(&p.ID, &p.SubscriptionID, &p.UserUID, &planID, &p.Provider, &p.ProviderRef,
		&p.Amount, &p.Currency, &p.Status, &p.CreatedAt, &confirmedAt); err != nil {
		return nil, err
	}
	p.PlanID = planID.Int64
	p.ConfirmedAt = nullTime(confirmedAt)
	return &p, nil
}
