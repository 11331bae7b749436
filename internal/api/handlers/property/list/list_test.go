package list

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/geoestate/internal/api/middlewarectx"
	"github.com/magabrotheeeer/geoestate/internal/entitlement"
	"github.com/magabrotheeeer/geoestate/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) List(ctx context.Context, userUID string) (*models.FeatureCollection, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FeatureCollection), args.Error(1)
}

func TestListHandler(t *testing.T) {
	fc := models.NewFeatureCollection([]*models.Property{{
		FID: 1, ID: "p-1", Unit: "A1", UnitType: "residential", Area: 120.5,
		Geometry: json.RawMessage(`{"type":"Point","coordinates":[3.38,6.52]}`),
	}})

	tests := []struct {
		name           string
		serviceErr     error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "feature collection",
			expectedStatus: http.StatusOK,
			expectedBody: `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"fid":1,"id":"p-1",` +
				`"unit":"A1","parentCompany":"","unitType":"residential","unitUse":"","area":120.5,"noOfBuildings":0,` +
				`"condition":"","unitManager":"","address":"","lastUpdated":"","price":0,"contact":""},` +
				`"geometry":{"type":"Point","coordinates":[3.38,6.52]}}]}`,
		},
		{
			name:           "no subscription",
			serviceErr:     entitlement.ErrNoSubscription,
			expectedStatus: http.StatusForbidden,
			expectedBody:   `{"status":"Error","error":"no active subscription"}`,
		},
		{
			name:           "expired",
			serviceErr:     entitlement.ErrSubscriptionExpired,
			expectedStatus: http.StatusForbidden,
			expectedBody:   `{"status":"Error","error":"subscription expired, please renew"}`,
		},
		{
			name:           "internal",
			serviceErr:     errors.New("db down"),
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"could not list properties"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.serviceErr != nil {
				svc.On("List", mock.Anything, "uid-1").Return(nil, tt.serviceErr)
			} else {
				svc.On("List", mock.Anything, "uid-1").Return(&fc, nil)
			}

			req := httptest.NewRequest(http.MethodGet, "/api/v1/properties/", nil)
			req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, "uid-1"))
			w := httptest.NewRecorder()
			New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}
