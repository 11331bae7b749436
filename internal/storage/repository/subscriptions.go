package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/geoestate/internal/models"
)

const subscriptionQuery = `SELECT s.id, s.user_uid, s.start_date, s.end_date, s.is_active,
			      s.payment_method, s.payment_status,
			      p.id, p.name, p.price, p.duration_days, p.features
			  FROM subscriptions s
			  LEFT JOIN plans p ON p.id = s.plan_id`

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanSubscription(row interface{ Scan(...any) error }) (*models.Subscription, error) {
	sub := &models.Subscription{}
	var (
		endDate      sql.NullTime
		planID       sql.NullInt64
		planName     sql.NullString
		planPrice    decimal.NullDecimal
		planDuration sql.NullInt32
		planFeatures sql.NullString
	)
	if err := row.Scan(&sub.ID, &sub.UserUID, &sub.StartDate, &endDate, &sub.IsActive,
		&sub.PaymentMethod, &sub.PaymentStatus,
		&planID, &planName, &planPrice, &planDuration, &planFeatures); err != nil {
		return nil, err
	}
	sub.EndDate = nullTime(endDate)
	if planID.Valid {
		sub.Plan = &models.Plan{
			ID:           planID.Int64,
			Name:         models.PlanName(planName.String),
			Price:        planPrice.Decimal,
			DurationDays: int(planDuration.Int32),
			Features:     planFeatures.String,
		}
	}
	return sub, nil
}

func getSubscription(ctx context.Context, q queryRower, where string, arg any) (*models.Subscription, error) {
	sub, err := scanSubscription(q.QueryRowContext(ctx, subscriptionQuery+" WHERE "+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sub, nil
}

// GetOrCreateSubscription возвращает подписку пользователя, создавая
// неактивную запись при первом обращении. Повторные вызовы возвращают ту же запись.
func (s *Storage) GetOrCreateSubscription(ctx context.Context, userUID string) (*models.Subscription, error) {
	const op = "storage.GetOrCreateSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscriptions (user_uid)
			  VALUES ($1)
			  ON CONFLICT (user_uid) DO NOTHING`
	if _, err := s.DB.ExecContext(ctx, query, userUID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sub, err := getSubscription(ctx, s.DB, "s.user_uid = $1", userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// GetSubscriptionByUser возвращает подписку пользователя, не создавая её.
func (s *Storage) GetSubscriptionByUser(ctx context.Context, userUID string) (*models.Subscription, error) {
	const op = "storage.GetSubscriptionByUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	sub, err := getSubscription(ctx, s.DB, "s.user_uid = $1", userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// GetSubscription возвращает подписку по идентификатору.
func (s *Storage) GetSubscription(ctx context.Context, id int64) (*models.Subscription, error) {
	const op = "storage.GetSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	sub, err := getSubscription(ctx, s.DB, "s.id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// MarkSubscriptionPending записывает выбранный тариф и провайдера и переводит
// оплату в pending. is_active и end_date не трогаются.
func (s *Storage) MarkSubscriptionPending(ctx context.Context, id, planID int64, method models.PaymentMethod) error {
	const op = "storage.MarkSubscriptionPending"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET plan_id = $2, payment_method = $3, payment_status = 'pending'
			  WHERE id = $1`
	res, err := s.DB.ExecContext(ctx, query, id, planID, string(method))
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

// ConfirmPayment применяет подтверждённый платёж к подписке в одной транзакции.
// Платёж применяется один раз: повтор подтверждения уже оплаченного платежа,
// в том числе после новой попытки оплаты, не меняет подписку, activated == false.
func (s *Storage) ConfirmPayment(ctx context.Context, provider models.PaymentMethod, providerRef string,
	now time.Time) (sub *models.Subscription, activated bool, err error) {
	const op = "storage.ConfirmPayment"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	payment, err := scanPayment(tx.QueryRowContext(ctx, paymentQuery+`
			  WHERE provider = $1 AND provider_ref = $2
			  FOR UPDATE`, string(provider), providerRef))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	sub, err = getSubscription(ctx, tx, "s.id = $1 FOR UPDATE OF s", payment.SubscriptionID)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	plan := sub.Plan
	if payment.PlanID != 0 {
		if plan, err = getPlan(ctx, tx, payment.PlanID); err != nil {
			return nil, false, fmt.Errorf("%s: %w", op, err)
		}
	}

	if !sub.Activate(payment, plan, now) {
		if err = tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("%s: %w", op, err)
		}
		return sub, false, nil
	}

	// failed тоже подтверждается: провайдер может списать деньги после отказа
	if _, err = tx.ExecContext(ctx, `UPDATE payments
			  SET status = $2, confirmed_at = $3
			  WHERE id = $1 AND status IN ('pending', 'failed')`,
		payment.ID, string(payment.Status), payment.ConfirmedAt); err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE subscriptions
			  SET plan_id = $2, is_active = $3, start_date = $4, end_date = $5, payment_status = $6
			  WHERE id = $1`,
		sub.ID, sub.Plan.ID, sub.IsActive, sub.StartDate, sub.EndDate, string(sub.PaymentStatus)); err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return sub, true, nil
}

// FailPayment отмечает платёж и ожидающую оплату подписку как failed.
// Уже оплаченные записи не меняются.
func (s *Storage) FailPayment(ctx context.Context, provider models.PaymentMethod, providerRef string) (sub *models.Subscription, err error) {
	const op = "storage.FailPayment"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var subscriptionID int64
	err = tx.QueryRowContext(ctx, `UPDATE payments
			  SET status = 'failed'
			  WHERE provider = $1 AND provider_ref = $2 AND status = 'pending'
			  RETURNING subscription_id`, string(provider), providerRef).Scan(&subscriptionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE subscriptions
			  SET payment_status = 'failed'
			  WHERE id = $1 AND payment_status = 'pending'`, subscriptionID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sub, err = getSubscription(ctx, tx, "s.id = $1", subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}
