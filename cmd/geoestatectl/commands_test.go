package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/geoestate/internal/cache"
	"github.com/magabrotheeeer/geoestate/internal/models"
	"github.com/magabrotheeeer/geoestate/internal/services/subscription"
	"github.com/magabrotheeeer/geoestate/internal/storage/repository"
)

type PlanStoreMock struct {
	mock.Mock
}

func (m *PlanStoreMock) ListPlans(ctx context.Context) ([]*models.Plan, error) {
	args := m.Called(ctx)
	plans, _ := args.Get(0).([]*models.Plan)
	return plans, args.Error(1)
}

func (m *PlanStoreMock) UpsertPlan(ctx context.Context, p models.Plan) (int64, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(int64), args.Error(1)
}

func (m *PlanStoreMock) SetPlanPrice(ctx context.Context, name models.PlanName, price decimal.Decimal) error {
	args := m.Called(ctx, name, price)
	return args.Error(0)
}

type PropertyStoreMock struct {
	mock.Mock
}

func (m *PropertyStoreMock) UpsertProperty(ctx context.Context, p *models.Property) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func newTestCache(t *testing.T) (*cache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &cache.Cache{Db: client}, mr
}

const sampleGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"id": "P-1", "unit": "Block A", "unitType": "residential", "area": 120.5, "noOfBuildings": 2, "price": 150000},
      "geometry": {"type": "Point", "coordinates": [3.38, 6.52]}
    },
    {
      "type": "Feature",
      "properties": {"id": "P-2", "unit": "Warehouse", "unitType": "industrial"},
      "geometry": null
    }
  ]
}`

func TestParseProperties(t *testing.T) {
	props, err := parseProperties(strings.NewReader(sampleGeoJSON))
	require.NoError(t, err)
	require.Len(t, props, 2)

	assert.Equal(t, "P-1", props[0].ID)
	assert.Equal(t, "residential", props[0].UnitType)
	assert.Equal(t, 120.5, props[0].Area)
	assert.Equal(t, 2, props[0].NoOfBuildings)
	assert.Equal(t, 150000.0, props[0].Price)
	assert.JSONEq(t, `{"type": "Point", "coordinates": [3.38, 6.52]}`, string(props[0].Geometry))

	assert.Equal(t, "industrial", props[1].UnitType)
	assert.Nil(t, props[1].Geometry)
}

func TestParseProperties_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "not json", input: `{`, wantErr: "decode geojson"},
		{name: "wrong type", input: `{"type":"Feature"}`, wantErr: "expected FeatureCollection"},
		{
			name:    "feature type",
			input:   `{"type":"FeatureCollection","features":[{"type":"Point"}]}`,
			wantErr: "feature 0: expected Feature",
		},
		{
			name:    "missing id",
			input:   `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"unitType":"residential"}}]}`,
			wantErr: "feature 0: missing id",
		},
		{
			name:    "missing unit type",
			input:   `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"id":"X"}}]}`,
			wantErr: "missing unitType",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseProperties(strings.NewReader(tt.input))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestImportProperties(t *testing.T) {
	store := new(PropertyStoreMock)
	store.On("UpsertProperty", mock.Anything, mock.AnythingOfType("*models.Property")).Return(nil).Twice()

	var out bytes.Buffer
	n, err := importProperties(context.Background(), store, strings.NewReader(sampleGeoJSON), &out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "imported 2 properties\n", out.String())
	store.AssertExpectations(t)
}

func TestImportProperties_StoreError(t *testing.T) {
	store := new(PropertyStoreMock)
	store.On("UpsertProperty", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

	_, err := importProperties(context.Background(), store, strings.NewReader(sampleGeoJSON), &bytes.Buffer{})
	assert.ErrorContains(t, err, "import P-1: db down")
}

func TestSeedPlans(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set(subscription.PlansCacheKey, "[]"))

	store := new(PlanStoreMock)
	for i, p := range defaultPlans {
		store.On("UpsertPlan", mock.Anything, p).Return(int64(i+1), nil).Once()
	}

	var out bytes.Buffer
	require.NoError(t, seedPlans(context.Background(), store, c, &out))

	assert.Contains(t, out.String(), "Basic      id=1 price=10.00 days=30")
	assert.Contains(t, out.String(), "Premium    id=2 price=20.00 days=30")
	assert.Contains(t, out.String(), "Enterprise id=3 price=50.00 days=30")
	assert.False(t, mr.Exists(subscription.PlansCacheKey))
	store.AssertExpectations(t)
}

func TestSeedPlans_StoreError(t *testing.T) {
	store := new(PlanStoreMock)
	store.On("UpsertPlan", mock.Anything, mock.Anything).Return(int64(0), errors.New("boom")).Once()

	err := seedPlans(context.Background(), store, nil, &bytes.Buffer{})
	assert.ErrorContains(t, err, "seed Basic: boom")
}

func TestListPlans(t *testing.T) {
	store := new(PlanStoreMock)
	store.On("ListPlans", mock.Anything).Return([]*models.Plan{
		{ID: 1, Name: models.PlanBasic, Price: decimal.NewFromInt(10), DurationDays: 30, Features: "Residential listings"},
	}, nil).Once()

	var out bytes.Buffer
	require.NoError(t, listPlans(context.Background(), store, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"ID", "NAME", "PRICE", "DAYS", "FEATURES"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"1", "Basic", "10.00", "30", "Residential", "listings"}, strings.Fields(lines[1]))
}

func TestSetPlanPrice(t *testing.T) {
	t.Run("updates and invalidates cache", func(t *testing.T) {
		c, mr := newTestCache(t)
		require.NoError(t, mr.Set(subscription.PlansCacheKey, "[]"))

		store := new(PlanStoreMock)
		store.On("SetPlanPrice", mock.Anything, models.PlanPremium, mock.MatchedBy(func(d decimal.Decimal) bool {
			return d.Equal(decimal.RequireFromString("25"))
		})).Return(nil).Once()

		var out bytes.Buffer
		require.NoError(t, setPlanPrice(context.Background(), store, c, &out, "Premium", "25"))
		assert.Contains(t, out.String(), "Premium price set to 25.00")
		assert.False(t, mr.Exists(subscription.PlansCacheKey))
		store.AssertExpectations(t)
	})

	t.Run("plan not seeded", func(t *testing.T) {
		store := new(PlanStoreMock)
		store.On("SetPlanPrice", mock.Anything, models.PlanBasic, mock.Anything).
			Return(fmt.Errorf("storage.SetPlanPrice: %w", repository.ErrNotFound)).Once()

		err := setPlanPrice(context.Background(), store, nil, &bytes.Buffer{}, "Basic", "12")
		assert.ErrorContains(t, err, "not seeded yet")
	})

	invalid := []struct {
		name, plan, price, wantErr string
	}{
		{name: "unknown plan", plan: "Gold", price: "10", wantErr: "unknown plan"},
		{name: "bad price", plan: "Basic", price: "ten", wantErr: "invalid price"},
		{name: "negative price", plan: "Basic", price: "-1", wantErr: "must not be negative"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			store := new(PlanStoreMock)
			err := setPlanPrice(context.Background(), store, nil, &bytes.Buffer{}, tt.plan, tt.price)
			assert.ErrorContains(t, err, tt.wantErr)
			store.AssertNotCalled(t, "SetPlanPrice", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestMigrateDown_RejectsBadSteps(t *testing.T) {
	rootCmd.SetArgs([]string{"migrate", "down", "zero"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	err := rootCmd.Execute()
	assert.ErrorContains(t, err, "steps must be a positive integer")
}
