package websocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_Publish(t *testing.T) {
	hub := NewHub()
	client := newMockClient("client-1", identity(4))
	hub.Register(client)

	var publisher EventPublisher = hub
	publisher.Publish(identity(4), TokenAccountCredited(map[string]string{"amount": "10"}))

	require.Eventually(t, func() bool {
		return len(client.GetMessages()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Contains(t, string(client.GetMessages()[0]), "token_account.credited")
}

func TestNoOpPublisher_Publish(t *testing.T) {
	var publisher EventPublisher = &NoOpPublisher{}
	assert.NotPanics(t, func() {
		publisher.Publish(identity(1), PaymentProcessed(nil))
	})
}
