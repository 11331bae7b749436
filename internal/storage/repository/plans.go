package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/geoestate/internal/models"
)

// ListPlans возвращает каталог тарифов по возрастанию цены.
func (s *Storage) ListPlans(ctx context.Context) ([]*models.Plan, error) {
	const op = "storage.ListPlans"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, name, price, duration_days, features
			  FROM plans
			  ORDER BY price, id`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.Plan, 0, 3)
	for rows.Next() {
		var p models.Plan
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.DurationDays, &p.Features); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// GetPlan возвращает тариф по идентификатору.
func (s *Storage) GetPlan(ctx context.Context, id int64) (*models.Plan, error) {
	const op = "storage.GetPlan"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	p, err := getPlan(ctx, s.DB, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func getPlan(ctx context.Context, q queryRower, id int64) (*models.Plan, error) {
	var p models.Plan
	query := `SELECT id, name, price, duration_days, features FROM plans WHERE id = $1`
	err := q.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.Price, &p.DurationDays, &p.Features)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// UpsertPlan создаёт тариф или обновляет существующий с тем же названием.
func (s *Storage) UpsertPlan(ctx context.Context, p models.Plan) (int64, error) {
	const op = "storage.UpsertPlan"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO plans (name, price, duration_days, features)
			  VALUES ($1, $2, $3, $4)
			  ON CONFLICT (name) DO UPDATE
			  SET price = EXCLUDED.price, duration_days = EXCLUDED.duration_days, features = EXCLUDED.features
			  RETURNING id`
	var id int64
	if err := s.DB.QueryRowContext(ctx, query, string(p.Name), p.Price, p.DurationDays, p.Features).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// SetPlanPrice меняет цену тарифа.
func (s *Storage) SetPlanPrice(ctx context.Context, name models.PlanName, price decimal.Decimal) error {
	const op = "storage.SetPlanPrice"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE plans SET price = $2 WHERE name = $1`, string(name), price)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
