//go:build integration

//nolint:misspell // Mosquitto is the official Eclipse project name
package containers

import (
	"context"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func retainedTopics(t *testing.T, c *MosquittoContainer, clientID string, wait time.Duration) []string {
	t.Helper()
	client, err := c.CreateClient(clientID)
	require.NoError(t, err)
	defer client.Disconnect(250)

	var mu sync.Mutex
	var topics []string
	token := client.Subscribe("#", 0, func(_ mqtt.Client, msg mqtt.Message) {
		if msg.Retained() {
			mu.Lock()
			topics = append(topics, msg.Topic())
			mu.Unlock()
		}
	})
	require.True(t, token.WaitTimeout(5*time.Second), "subscribe timeout")
	require.NoError(t, token.Error())
	time.Sleep(wait)

	mu.Lock()
	defer mu.Unlock()
	return append([]string(nil), topics...)
}

func TestMosquittoContainer_ClearRetainedMessages(t *testing.T) {
	ctx := context.Background()
	container, err := NewMosquittoContainer(ctx, nil)
	require.NoError(t, err)
	defer func() { assert.NoError(t, container.Terminate(ctx)) }()

	gateway, err := container.CreateClient("gateway")
	require.NoError(t, err)
	defer gateway.Disconnect(250)

	sensors := []string{"coastcare/sensors/wind-dwarka/readings", "coastcare/sensors/wave-okha/readings"}
	for _, topic := range sensors {
		token := gateway.Publish(topic, 0, true, []byte(`{"value":1,"unit":"mph"}`))
		require.True(t, token.WaitTimeout(5*time.Second))
		require.NoError(t, token.Error())
	}

	require.Eventually(t, func() bool {
		return len(retainedTopics(t, container, "before", 200*time.Millisecond)) == len(sensors)
	}, 5*time.Second, 100*time.Millisecond)

	require.NoError(t, container.ClearRetainedMessages(ctx))
	assert.Empty(t, retainedTopics(t, container, "after", 600*time.Millisecond))

	// Clearing an empty broker is a no-op.
	assert.NoError(t, container.ClearRetainedMessages(ctx))
}

func TestMosquittoContainer_ClearRetainedMessagesCancelled(t *testing.T) {
	ctx := context.Background()
	container, err := NewMosquittoContainer(ctx, nil)
	require.NoError(t, err)
	defer func() { assert.NoError(t, container.Terminate(ctx)) }()

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	err = container.ClearRetainedMessages(cancelled)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cancelled")
}
