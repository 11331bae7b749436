package models

import "time"

// Payment запись платёжного журнала: одна попытка оплаты у провайдера.
type Payment struct {
	ID             int64         `json:"id"`
	SubscriptionID int64         `json:"subscription_id"`
	UserUID        string        `json:"user_id"`
	PlanID         int64         `json:"plan_id"`
	Provider       PaymentMethod `json:"provider"`
	ProviderRef    string        `json:"provider_payment_id"`
	Amount         int64         `json:"amount"`
	Currency       string        `json:"currency"`
	Status         PaymentStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	ConfirmedAt    *time.Time    `json:"confirmed_at,omitempty"`
}
