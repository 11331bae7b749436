package models

import "time"

// PaymentMethod платёжный провайдер, через который оплачивается подписка.
type PaymentMethod string

const (
	MethodPaystack PaymentMethod = "paystack"
	MethodStripe   PaymentMethod = "stripe"
	MethodPayPal   PaymentMethod = "paypal"
)

// Valid проверяет, что провайдер поддерживается.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodPaystack, MethodStripe, MethodPayPal:
		return true
	}
	return false
}

// PaymentStatus статус оплаты подписки.
type PaymentStatus string

const (
	StatusPending PaymentStatus = "pending"
	StatusPaid    PaymentStatus = "paid"
	StatusFailed  PaymentStatus = "failed"
)

// Subscription подписка пользователя. У пользователя не больше одной записи.
// Истечение не хранится: IsValid вычисляет его на каждый вызов.
type Subscription struct {
	ID            int64         `json:"id"`
	UserUID       string        `json:"user_id"`
	Plan          *Plan         `json:"plan"`
	StartDate     time.Time     `json:"start_date"`
	EndDate       *time.Time    `json:"end_date"`
	IsActive      bool          `json:"is_active"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	PaymentStatus PaymentStatus `json:"payment_status"`
}

// IsValid сообщает, даёт ли подписка доступ в момент now.
func (s *Subscription) IsValid(now time.Time) bool {
	if !s.IsActive || s.EndDate == nil {
		return false
	}
	return now.Before(*s.EndDate)
}

// Activate применяет подтверждённый платёж p: подписка получает тариф plan и окно
// на plan.DurationDays дней с момента now. Каждый платёж применяется один раз,
// для уже оплаченного p ничего не меняется и возвращается false. Платёж в статусе
// failed применяется: провайдер списал деньги после отказа.
func (s *Subscription) Activate(p *Payment, plan *Plan, now time.Time) bool {
	if p.Status == StatusPaid || p.SubscriptionID != s.ID || plan == nil {
		return false
	}
	end := now.AddDate(0, 0, plan.DurationDays)
	s.Plan = plan
	s.IsActive = true
	s.StartDate = now
	s.EndDate = &end
	s.PaymentStatus = StatusPaid

	confirmedAt := now
	p.Status = StatusPaid
	p.ConfirmedAt = &confirmedAt
	return true
}
