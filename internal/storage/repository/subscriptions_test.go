package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/geoestate/internal/models"
)

func TestStorage_Users(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()

	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	u := &models.User{Email: "ada@example.com", PasswordHash: "hash"}
	require.True(t, u.StartTrial(t0, 7))
	require.NoError(t, s.CreateUser(ctx, u))
	assert.NotEmpty(t, u.UUID)
	assert.False(t, u.CreatedAt.IsZero())
	assert.True(t, u.TrialActive)
	assert.True(t, t0.AddDate(0, 0, 7).Equal(*u.TrialEnd))

	dup := &models.User{Email: "ada@example.com", PasswordHash: "other"}
	require.True(t, dup.StartTrial(t0.AddDate(0, 1, 0), 7))
	assert.ErrorIs(t, s.CreateUser(ctx, dup), ErrEmailTaken)
	assert.Empty(t, dup.UUID)

	got, err := s.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.UUID, got.UUID)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.True(t, got.TrialActive)
	assert.True(t, t0.Equal(*got.TrialStart))
	assert.True(t, t0.AddDate(0, 0, 7).Equal(*got.TrialEnd), "duplicate registration leaves the trial untouched")

	_, err = s.GetUser(ctx, "6f1c1a0e-0000-4000-8000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_CreateUserWithoutTrial(t *testing.T) {
	s := setupTestDatabase(t)

	u := newUser(t, s, "plain@example.com")
	assert.False(t, u.TrialActive)
	assert.Nil(t, u.TrialStart)
	assert.Nil(t, u.TrialEnd)
}

func TestStorage_GetOrCreateSubscriptionIsIdempotent(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()

	u := newUser(t, s, "bob@example.com")

	_, err := s.GetSubscriptionByUser(ctx, u.UUID)
	assert.ErrorIs(t, err, ErrNotFound)

	first, err := s.GetOrCreateSubscription(ctx, u.UUID)
	require.NoError(t, err)
	second, err := s.GetOrCreateSubscription(ctx, u.UUID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.False(t, first.IsActive)
	assert.Nil(t, first.Plan)
	assert.Equal(t, models.StatusPending, first.PaymentStatus)
}

func TestStorage_ConfirmPaymentActivatesOnce(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()

	u := newUser(t, s, "carol@example.com")
	sub, err := s.GetOrCreateSubscription(ctx, u.UUID)
	require.NoError(t, err)

	premium := planID(t, s, "Premium")
	require.NoError(t, s.MarkSubscriptionPending(ctx, sub.ID, premium, models.MethodStripe))

	_, err = s.CreatePayment(ctx, &models.Payment{
		SubscriptionID: sub.ID, UserUID: u.UUID, PlanID: premium, Provider: models.MethodStripe,
		ProviderRef: "cs_test_1", Amount: 2000, Currency: "usd", Status: models.StatusPending,
	})
	require.NoError(t, err)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	got, activated, err := s.ConfirmPayment(ctx, models.MethodStripe, "cs_test_1", now)
	require.NoError(t, err)
	assert.True(t, activated)
	assert.True(t, got.IsActive)
	assert.Equal(t, models.StatusPaid, got.PaymentStatus)
	require.NotNil(t, got.Plan)
	assert.Equal(t, models.PlanPremium, got.Plan.Name)
	assert.True(t, decimal.NewFromInt(20).Equal(got.Plan.Price))
	require.NotNil(t, got.EndDate)
	assert.True(t, now.AddDate(0, 0, 30).Equal(*got.EndDate))

	again, activated, err := s.ConfirmPayment(ctx, models.MethodStripe, "cs_test_1", now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, activated, "duplicate confirmation must not re-activate")
	assert.True(t, got.EndDate.Equal(*again.EndDate))

	payment, err := s.GetPaymentByRef(ctx, models.MethodStripe, "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, payment.Status)
	assert.Equal(t, premium, payment.PlanID)
	require.NotNil(t, payment.ConfirmedAt)
	assert.True(t, now.Equal(*payment.ConfirmedAt), "replay keeps the first confirmation time")

	_, _, err = s.ConfirmPayment(ctx, models.MethodStripe, "cs_unknown", now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_ReinitiationKeepsAccess(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()

	u := newUser(t, s, "dan@example.com")
	sub, err := s.GetOrCreateSubscription(ctx, u.UUID)
	require.NoError(t, err)

	basic := planID(t, s, "Basic")
	require.NoError(t, s.MarkSubscriptionPending(ctx, sub.ID, basic, models.MethodPaystack))
	_, err = s.CreatePayment(ctx, &models.Payment{
		SubscriptionID: sub.ID, UserUID: u.UUID, PlanID: basic, Provider: models.MethodPaystack,
		ProviderRef: "ref-1", Amount: 1000, Currency: "NGN", Status: models.StatusPending,
	})
	require.NoError(t, err)
	now := time.Now().UTC().Truncate(time.Second)
	active, _, err := s.ConfirmPayment(ctx, models.MethodPaystack, "ref-1", now)
	require.NoError(t, err)

	require.NoError(t, s.MarkSubscriptionPending(ctx, sub.ID, planID(t, s, "Enterprise"), models.MethodPayPal))
	got, err := s.GetSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.PaymentStatus)
	assert.Equal(t, models.PlanEnterprise, got.Plan.Name)
	assert.True(t, got.IsActive)
	assert.True(t, active.EndDate.Equal(*got.EndDate))
}

func TestStorage_ConfirmReplayAfterReinitiation(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()

	u := newUser(t, s, "frank@example.com")
	sub, err := s.GetOrCreateSubscription(ctx, u.UUID)
	require.NoError(t, err)

	basic := planID(t, s, "Basic")
	require.NoError(t, s.MarkSubscriptionPending(ctx, sub.ID, basic, models.MethodStripe))
	_, err = s.CreatePayment(ctx, &models.Payment{
		SubscriptionID: sub.ID, UserUID: u.UUID, PlanID: basic, Provider: models.MethodStripe,
		ProviderRef: "cs_basic", Amount: 1000, Currency: "usd", Status: models.StatusPending,
	})
	require.NoError(t, err)
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	first, activated, err := s.ConfirmPayment(ctx, models.MethodStripe, "cs_basic", t0)
	require.NoError(t, err)
	require.True(t, activated)

	enterprise := planID(t, s, "Enterprise")
	require.NoError(t, s.MarkSubscriptionPending(ctx, sub.ID, enterprise, models.MethodStripe))
	_, err = s.CreatePayment(ctx, &models.Payment{
		SubscriptionID: sub.ID, UserUID: u.UUID, PlanID: enterprise, Provider: models.MethodStripe,
		ProviderRef: "cs_enterprise", Amount: 5000, Currency: "usd", Status: models.StatusPending,
	})
	require.NoError(t, err)

	replayed, activated, err := s.ConfirmPayment(ctx, models.MethodStripe, "cs_basic", t0.AddDate(0, 0, 10))
	require.NoError(t, err)
	assert.False(t, activated, "an applied payment is never applied again")
	assert.True(t, first.EndDate.Equal(*replayed.EndDate))
	assert.Equal(t, models.StatusPending, replayed.PaymentStatus)

	stored, err := s.GetSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, first.EndDate.Equal(*stored.EndDate))
	assert.Equal(t, models.PlanEnterprise, stored.Plan.Name)

	upgraded, activated, err := s.ConfirmPayment(ctx, models.MethodStripe, "cs_enterprise", t0.AddDate(0, 0, 10))
	require.NoError(t, err)
	assert.True(t, activated)
	assert.Equal(t, models.PlanEnterprise, upgraded.Plan.Name)
	assert.Equal(t, models.StatusPaid, upgraded.PaymentStatus)
	assert.True(t, t0.AddDate(0, 0, 40).Equal(*upgraded.EndDate))
}

func TestStorage_FailPayment(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()

	u := newUser(t, s, "eve@example.com")
	sub, err := s.GetOrCreateSubscription(ctx, u.UUID)
	require.NoError(t, err)
	basic := planID(t, s, "Basic")
	require.NoError(t, s.MarkSubscriptionPending(ctx, sub.ID, basic, models.MethodPayPal))
	_, err = s.CreatePayment(ctx, &models.Payment{
		SubscriptionID: sub.ID, UserUID: u.UUID, PlanID: basic, Provider: models.MethodPayPal,
		ProviderRef: "ORDER-1", Amount: 1000, Currency: "USD", Status: models.StatusPending,
	})
	require.NoError(t, err)

	got, err := s.FailPayment(ctx, models.MethodPayPal, "ORDER-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.PaymentStatus)
	assert.False(t, got.IsActive)

	_, err = s.FailPayment(ctx, models.MethodPayPal, "ORDER-1")
	assert.ErrorIs(t, err, ErrNotFound, "already failed payments are left alone")

	payments, err := s.ListPayments(ctx, u.UUID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, models.StatusFailed, payments[0].Status)
}

func TestStorage_ConfirmAfterFailure(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()

	u := newUser(t, s, "late@example.com")
	sub, err := s.GetOrCreateSubscription(ctx, u.UUID)
	require.NoError(t, err)
	basic := planID(t, s, "Basic")
	require.NoError(t, s.MarkSubscriptionPending(ctx, sub.ID, basic, models.MethodPayPal))
	_, err = s.CreatePayment(ctx, &models.Payment{
		SubscriptionID: sub.ID, UserUID: u.UUID, PlanID: basic, Provider: models.MethodPayPal,
		ProviderRef: "ORDER-2", Amount: 1000, Currency: "USD", Status: models.StatusPending,
	})
	require.NoError(t, err)
	_, err = s.FailPayment(ctx, models.MethodPayPal, "ORDER-2")
	require.NoError(t, err)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	got, activated, err := s.ConfirmPayment(ctx, models.MethodPayPal, "ORDER-2", now)
	require.NoError(t, err)
	assert.True(t, activated, "capture after a decline is applied")
	assert.True(t, got.IsActive)
	assert.Equal(t, models.StatusPaid, got.PaymentStatus)

	payment, err := s.GetPaymentByRef(ctx, models.MethodPayPal, "ORDER-2")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, payment.Status)

	_, err = s.FailPayment(ctx, models.MethodPayPal, "ORDER-2")
	assert.ErrorIs(t, err, ErrNotFound, "paid payments never go back to failed")
}

func TestStorage_Plans(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()

	plans, err := s.ListPlans(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 3)
	assert.Equal(t, models.PlanBasic, plans[0].Name)
	assert.Equal(t, models.PlanEnterprise, plans[2].Name)

	require.NoError(t, s.SetPlanPrice(ctx, models.PlanBasic, decimal.RequireFromString("12.50")))
	p, err := s.GetPlan(ctx, plans[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1250), p.MinorUnits())

	assert.ErrorIs(t, s.SetPlanPrice(ctx, models.PlanName("Gold"), decimal.NewFromInt(1)), ErrNotFound)

	_, err = s.GetPlan(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_Reminders(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	trialStart := now.AddDate(0, 0, -6)
	trialEnd := now.Add(12 * time.Hour)
	require.NoError(t, s.CreateUser(ctx, &models.User{
		Email: "trial@example.com", PasswordHash: "hash",
		TrialActive: true, TrialStart: &trialStart, TrialEnd: &trialEnd,
	}))

	trials, err := s.ListTrialsEnding(ctx, now, now.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, trials, 1)
	assert.Equal(t, "trial@example.com", trials[0].Email)
	assert.Equal(t, models.EventTrialEnding, trials[0].Kind)

	expiring, err := s.ListSubscriptionsExpiring(ctx, now, now.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, expiring)
}
