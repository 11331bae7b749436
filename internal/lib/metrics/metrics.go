// Package metrics объявляет счётчики Prometheus сервиса.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EntitlementDecisions решения о доступе к каталогу по результату.
	EntitlementDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoestate",
		Name:      "entitlement_decisions_total",
		Help:      "Entitlement decisions by outcome.",
	}, []string{"outcome"})

	// PaymentsInitiated созданные платёжные сессии по провайдеру и результату.
	PaymentsInitiated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoestate",
		Name:      "payments_initiated_total",
		Help:      "Checkout sessions created by provider and result.",
	}, []string{"provider", "result"})

	// WebhooksReceived входящие вебхуки по провайдеру и результату обработки.
	WebhooksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoestate",
		Name:      "webhooks_received_total",
		Help:      "Payment webhooks by provider and result.",
	}, []string{"provider", "result"})

	// NotificationsSent отправленные письма по типу события.
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoestate",
		Name:      "notifications_sent_total",
		Help:      "Notification emails by kind and result.",
	}, []string{"kind", "result"})
)
