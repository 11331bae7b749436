// Package models содержит доменные структуры сервиса: пользователя,
// тарифный план, подписку, платёж и объект недвижимости.
package models

import "time"

// User представляет зарегистрированного пользователя системы.
type User struct {
	UUID         string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	TrialActive  bool       `json:"trial_active"`
	TrialStart   *time.Time `json:"trial_start,omitempty"`
	TrialEnd     *time.Time `json:"trial_end,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// StartTrial открывает пробный период длиной days дней, начиная с now.
// Повторный вызов ничего не меняет: пробный период выдаётся один раз.
func (u *User) StartTrial(now time.Time, days int) bool {
	if u.TrialEnd != nil {
		return false
	}
	start := now
	end := start.AddDate(0, 0, days)
	u.TrialActive = true
	u.TrialStart = &start
	u.TrialEnd = &end
	return true
}

// TrialValid сообщает, действует ли пробный период в момент now.
func (u *User) TrialValid(now time.Time) bool {
	if !u.TrialActive || u.TrialEnd == nil {
		return false
	}
	return now.Before(*u.TrialEnd)
}
