package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/geoestate/internal/entitlement"
	"github.com/magabrotheeeer/geoestate/internal/models"
)

const propertyColumns = `fid, id, unit, parent_company, unit_type, unit_use, area, no_of_buildings,
			      condition, unit_manager, address, last_updated, price, contact, geometry`

// filterClause переводит фильтр доступа в условие WHERE по unit_type.
func filterClause(f entitlement.Filter) (string, []any) {
	switch f.Mode {
	case entitlement.ModeInclude:
		return ` WHERE unit_type = ANY($1)`, []any{f.Categories}
	case entitlement.ModeExclude:
		if len(f.Categories) == 0 {
			return "", nil
		}
		return ` WHERE unit_type <> ALL($1)`, []any{f.Categories}
	default:
		return "", nil
	}
}

// ListProperties возвращает объекты каталога, разрешённые фильтром.
func (s *Storage) ListProperties(ctx context.Context, f entitlement.Filter) ([]*models.Property, error) {
	const op = "storage.ListProperties"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	where, args := filterClause(f)
	if f.Mode == entitlement.ModeInclude && len(f.Categories) == 0 {
		return []*models.Property{}, nil
	}
	query := `SELECT ` + propertyColumns + ` FROM properties` + where + ` ORDER BY fid`
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := []*models.Property{}
	for rows.Next() {
		var p models.Property
		var geometry []byte
		if err := rows.Scan(&p.FID, &p.ID, &p.Unit, &p.ParentCompany, &p.UnitType, &p.UnitUse,
			&p.Area, &p.NoOfBuildings, &p.Condition, &p.UnitManager, &p.Address, &p.LastUpdated,
			&p.Price, &p.Contact, &geometry); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		p.Geometry = geometry
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpsertProperty создаёт или обновляет объект по его внешнему id.
func (s *Storage) UpsertProperty(ctx context.Context, p *models.Property) error {
	const op = "storage.UpsertProperty"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var geometry any
	if len(p.Geometry) > 0 {
		geometry = string(p.Geometry)
	}
	query := `INSERT INTO properties (id, unit, parent_company, unit_type, unit_use, area, no_of_buildings,
			      condition, unit_manager, address, last_updated, price, contact, geometry)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14::jsonb)
			  ON CONFLICT (id) DO UPDATE SET
			      unit = EXCLUDED.unit, parent_company = EXCLUDED.parent_company,
			      unit_type = EXCLUDED.unit_type, unit_use = EXCLUDED.unit_use, area = EXCLUDED.area,
			      no_of_buildings = EXCLUDED.no_of_buildings, condition = EXCLUDED.condition,
			      unit_manager = EXCLUDED.unit_manager, address = EXCLUDED.address,
			      last_updated = EXCLUDED.last_updated, price = EXCLUDED.price,
			      contact = EXCLUDED.contact, geometry = EXCLUDED.geometry
			  RETURNING fid`
	err := s.DB.QueryRowContext(ctx, query, p.ID, p.Unit, p.ParentCompany, p.UnitType, p.UnitUse, p.Area,
		p.NoOfBuildings, p.Condition, p.UnitManager, p.Address, p.LastUpdated, p.Price, p.Contact, geometry,
	).Scan(&p.FID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
