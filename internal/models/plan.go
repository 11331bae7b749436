package models

import "github.com/shopspring/decimal"

// PlanName название тарифа.
type PlanName string

const (
	PlanBasic      PlanName = "Basic"
	PlanPremium    PlanName = "Premium"
	PlanEnterprise PlanName = "Enterprise"
)

// Valid проверяет, что название относится к известному тарифу.
func (n PlanName) Valid() bool {
	switch n {
	case PlanBasic, PlanPremium, PlanEnterprise:
		return true
	}
	return false
}

// Plan тарифный план из каталога.
type Plan struct {
	ID           int64           `json:"id"`
	Name         PlanName        `json:"name"`
	Price        decimal.Decimal `json:"price"`
	DurationDays int             `json:"duration_days"`
	Features     string          `json:"features"`
}

// MinorUnits возвращает цену в минимальных единицах валюты (центы, кобо).
func (p Plan) MinorUnits() int64 {
	return p.Price.Shift(2).Round(0).IntPart()
}
