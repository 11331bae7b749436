package entitlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/geoestate/internal/models"
)

var t0 = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := NewResolver([]string{"residential"}, []string{"industrial"})
	require.NoError(t, err)
	return r
}

func registeredAt(at time.Time) *models.User {
	u := &models.User{UUID: "u-1", Email: "user@example.com"}
	u.StartTrial(at, 7)
	return u
}

func activeSub(plan models.PlanName, activatedAt time.Time, days int) *models.Subscription {
	s := &models.Subscription{ID: 1, PaymentStatus: models.StatusPending}
	p := &models.Payment{SubscriptionID: 1, PlanID: 1, Status: models.StatusPending}
	s.Activate(p, &models.Plan{ID: 1, Name: plan, DurationDays: days}, activatedAt)
	return s
}

func TestDecide_TrialGrantsFullAccessRegardlessOfSubscription(t *testing.T) {
	r := newResolver(t)
	user := registeredAt(t0)
	now := t0.AddDate(0, 0, 3)

	subs := []*models.Subscription{
		nil,
		{ID: 1},
		activeSub(models.PlanBasic, t0, 30),
		activeSub(models.PlanBasic, t0.AddDate(0, 0, -60), 30),
	}
	for _, sub := range subs {
		f, err := r.Decide(now, user, sub)
		require.NoError(t, err)
		assert.Equal(t, ModeAll, f.Mode)
		assert.Equal(t, "trial", f.Grant)
	}
}

func TestDecide_RegistrationScenario(t *testing.T) {
	r := newResolver(t)
	user := registeredAt(t0)
	require.Equal(t, t0.AddDate(0, 0, 7), *user.TrialEnd)

	f, err := r.Decide(t0.AddDate(0, 0, 3), user, nil)
	require.NoError(t, err)
	assert.Equal(t, ModeAll, f.Mode)

	_, err = r.Decide(t0.AddDate(0, 0, 8), user, nil)
	assert.ErrorIs(t, err, ErrNoSubscription)
}

func TestDecide_UnsetTrialFallsThrough(t *testing.T) {
	r := newResolver(t)
	user := &models.User{UUID: "u-2"}

	_, err := r.Decide(t0, user, nil)
	assert.ErrorIs(t, err, ErrNoSubscription)

	f, err := r.Decide(t0, user, activeSub(models.PlanEnterprise, t0, 30))
	require.NoError(t, err)
	assert.Equal(t, "Enterprise", f.Grant)
}

func TestDecide_ExpiredIsDerivedNotFlagged(t *testing.T) {
	r := newResolver(t)
	user := &models.User{UUID: "u-3"}
	sub := activeSub(models.PlanPremium, t0, 30)

	_, err := r.Decide(t0.AddDate(0, 0, 30), user, sub)
	assert.ErrorIs(t, err, ErrSubscriptionExpired)
	assert.True(t, sub.IsActive)

	_, err = r.Decide(t0.AddDate(0, 0, 45), user, sub)
	assert.ErrorIs(t, err, ErrSubscriptionExpired)
}

func TestDecide_InactiveSubscription(t *testing.T) {
	r := newResolver(t)
	user := &models.User{UUID: "u-4"}
	sub := &models.Subscription{ID: 7, Plan: &models.Plan{Name: models.PlanPremium}, PaymentStatus: models.StatusPending}

	_, err := r.Decide(t0, user, sub)
	assert.ErrorIs(t, err, ErrSubscriptionExpired)
}

func TestDecide_PlanFilters(t *testing.T) {
	r := newResolver(t)
	user := &models.User{UUID: "u-5"}
	now := t0.AddDate(0, 0, 1)

	tests := []struct {
		plan    models.PlanName
		mode    Mode
		visible []string
		hidden  []string
	}{
		{models.PlanBasic, ModeInclude, []string{"residential"}, []string{"commercial", "industrial"}},
		{models.PlanPremium, ModeExclude, []string{"residential", "commercial"}, []string{"industrial"}},
		{models.PlanEnterprise, ModeAll, []string{"residential", "commercial", "industrial"}, nil},
	}
	for _, tt := range tests {
		t.Run(string(tt.plan), func(t *testing.T) {
			f, err := r.Decide(now, user, activeSub(tt.plan, t0, 30))
			require.NoError(t, err)
			assert.Equal(t, tt.mode, f.Mode)
			for _, c := range tt.visible {
				assert.True(t, f.Allows(c), c)
			}
			for _, c := range tt.hidden {
				assert.False(t, f.Allows(c), c)
			}
		})
	}
}

func TestPlanFilters_WidenMonotonically(t *testing.T) {
	r := newResolver(t)
	universe := []string{"residential", "commercial", "industrial", "agricultural", "mixed", ""}

	basic, err := r.PlanFilter(models.PlanBasic)
	require.NoError(t, err)
	premium, err := r.PlanFilter(models.PlanPremium)
	require.NoError(t, err)
	enterprise, err := r.PlanFilter(models.PlanEnterprise)
	require.NoError(t, err)

	for _, c := range universe {
		if basic.Allows(c) {
			assert.True(t, premium.Allows(c), "basic ⊆ premium broken for %q", c)
		}
		if premium.Allows(c) {
			assert.True(t, enterprise.Allows(c), "premium ⊆ enterprise broken for %q", c)
		}
	}
}

func TestNewResolver_RejectsNarrowingConfig(t *testing.T) {
	_, err := NewResolver([]string{"residential", "industrial"}, []string{"industrial"})
	assert.Error(t, err)
}

func TestDecide_ActiveWithoutPlan(t *testing.T) {
	r := newResolver(t)
	end := t0.AddDate(0, 0, 10)
	sub := &models.Subscription{ID: 9, IsActive: true, StartDate: t0, EndDate: &end}

	_, err := r.Decide(t0.AddDate(0, 0, 1), &models.User{}, sub)
	assert.ErrorIs(t, err, ErrNoSubscription)
}

func TestPlanFilter_UnknownPlan(t *testing.T) {
	r := newResolver(t)
	_, err := r.PlanFilter("Gold")
	assert.Error(t, err)
}
