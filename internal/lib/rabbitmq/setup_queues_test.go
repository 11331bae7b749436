package rabbitmq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/geoestate/internal/models"
)

func TestGetNotificationQueues(t *testing.T) {
	queues := GetNotificationQueues()
	require.NotEmpty(t, queues)

	seen := map[string]bool{}
	keys := map[string]bool{}
	for _, q := range queues {
		assert.Falsef(t, seen[q.QueueName], "duplicate queue name: %s", q.QueueName)
		seen[q.QueueName] = true
		keys[q.RoutingKey] = true
	}

	for _, k := range []string{
		models.EventUserRegistered,
		models.EventSubscriptionActivated,
		models.EventTrialEnding,
		models.EventSubscriptionExpiring,
	} {
		assert.Truef(t, keys[k], "routing key %s has no queue", k)
	}
}
