package rabbitmq

import "github.com/magabrotheeeer/geoestate/internal/models"

// QueueConfig очередь и ключ, которым она привязана к обменнику.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues очереди, которые читает отправитель уведомлений.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notification.welcome", RoutingKey: models.EventUserRegistered},
		{QueueName: "notification.activated", RoutingKey: models.EventSubscriptionActivated},
		{QueueName: "notification.trial-ending", RoutingKey: models.EventTrialEnding},
		{QueueName: "notification.expiring", RoutingKey: models.EventSubscriptionExpiring},
	}
}
