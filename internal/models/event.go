package models

import "time"

// Ключи маршрутизации событий для очереди уведомлений.
const (
	EventUserRegistered        = "user.registered"
	EventSubscriptionActivated = "subscription.activated"
	EventTrialEnding           = "trial.ending"
	EventSubscriptionExpiring  = "subscription.expiring"
)

// Notification сообщение, публикуемое в обменник notifications.
type Notification struct {
	Kind     string    `json:"kind"`
	UserUID  string    `json:"user_id"`
	Email    string    `json:"email"`
	PlanName string    `json:"plan_name,omitempty"`
	Until    time.Time `json:"until"`
}
