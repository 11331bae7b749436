package plans

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/geoestate/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) ListPlans(ctx context.Context) ([]*models.Plan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Plan), args.Error(1)
}

func TestPlansHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("catalog", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("ListPlans", mock.Anything).Return([]*models.Plan{
			{ID: 1, Name: models.PlanBasic, Price: decimal.RequireFromString("10.00"), DurationDays: 30},
			{ID: 2, Name: models.PlanPremium, Price: decimal.RequireFromString("20.00"), DurationDays: 30},
		}, nil)

		w := httptest.NewRecorder()
		New(logger, svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/plans", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var got struct {
			Status string        `json:"status"`
			Data   []models.Plan `json:"data"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		require.Len(t, got.Data, 2)
		assert.Equal(t, models.PlanPremium, got.Data[1].Name)
		assert.True(t, got.Data[1].Price.Equal(decimal.NewFromInt(20)))
	})

	t.Run("empty catalog", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("ListPlans", mock.Anything).Return(nil, nil)

		w := httptest.NewRecorder()
		New(logger, svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.JSONEq(t, `{"status":"OK","data":[]}`, w.Body.String())
	})

	t.Run("service error", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("ListPlans", mock.Anything).Return(nil, errors.New("db down"))

		w := httptest.NewRecorder()
		New(logger, svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"status":"Error","error":"could not list plans"}`, w.Body.String())
	})
}
