package repository

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/geoestate/internal/entitlement"
	"github.com/magabrotheeeer/geoestate/internal/models"
)

func TestFilterClause(t *testing.T) {
	tests := []struct {
		name      string
		filter    entitlement.Filter
		wantWhere string
		wantArgs  int
	}{
		{"all", entitlement.Filter{Mode: entitlement.ModeAll}, "", 0},
		{"include", entitlement.Filter{Mode: entitlement.ModeInclude, Categories: []string{"residential"}}, " WHERE unit_type = ANY($1)", 1},
		{"exclude", entitlement.Filter{Mode: entitlement.ModeExclude, Categories: []string{"industrial"}}, " WHERE unit_type <> ALL($1)", 1},
		{"exclude nothing", entitlement.Filter{Mode: entitlement.ModeExclude}, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := filterClause(tt.filter)
			assert.Equal(t, tt.wantWhere, where)
			assert.Len(t, args, tt.wantArgs)
		})
	}
}

func seedProperties(t *testing.T, s *Storage) {
	t.Helper()
	ctx := context.Background()
	for i, unitType := range []string{"residential", "commercial", "industrial", "residential"} {
		p := &models.Property{
			ID:       "prop-" + string(rune('a'+i)),
			UnitType: unitType,
			Address:  "Lekki",
			Price:    1000 * float64(i+1),
			Geometry: json.RawMessage(`{"type": "Point", "coordinates": [3.4, 6.4]}`),
		}
		require.NoError(t, s.UpsertProperty(ctx, p))
		assert.NotZero(t, p.FID)
	}
}

func TestStorage_ListProperties(t *testing.T) {
	s := setupTestDatabase(t)
	seedProperties(t, s)
	ctx := context.Background()

	count := func(f entitlement.Filter) int {
		props, err := s.ListProperties(ctx, f)
		require.NoError(t, err)
		for _, p := range props {
			assert.True(t, f.Allows(p.UnitType), "%s leaked through %s filter", p.UnitType, f.Mode)
		}
		return len(props)
	}

	basic := count(entitlement.Filter{Mode: entitlement.ModeInclude, Categories: []string{"residential"}})
	premium := count(entitlement.Filter{Mode: entitlement.ModeExclude, Categories: []string{"industrial"}})
	enterprise := count(entitlement.Filter{Mode: entitlement.ModeAll})

	assert.Equal(t, 2, basic)
	assert.Equal(t, 3, premium)
	assert.Equal(t, 4, enterprise)
	assert.Equal(t, 0, count(entitlement.Filter{Mode: entitlement.ModeInclude}))
}

func TestStorage_UpsertPropertyKeepsGeometry(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()

	p := &models.Property{ID: "geo-1", UnitType: "residential", Geometry: json.RawMessage(`{"type":"Point","coordinates":[1,2]}`)}
	require.NoError(t, s.UpsertProperty(ctx, p))
	first := p.FID

	p.Price = 42
	require.NoError(t, s.UpsertProperty(ctx, p))
	assert.Equal(t, first, p.FID, "upsert keeps the row")

	props, err := s.ListProperties(ctx, entitlement.Filter{})
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, 42.0, props[0].Price)
	assert.JSONEq(t, `{"type":"Point","coordinates":[1,2]}`, string(props[0].Geometry))

	noGeo := &models.Property{ID: "geo-2", UnitType: "commercial"}
	require.NoError(t, s.UpsertProperty(ctx, noGeo))
	props, err = s.ListProperties(ctx, entitlement.Filter{Mode: entitlement.ModeInclude, Categories: []string{"commercial"}})
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Empty(t, props[0].Geometry)
}
