//go:build integration

//nolint:misspell // Mosquitto is the official Eclipse project name
package containers

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	mosquittoPort       = "1883/tcp"
	mosquittoConfPath   = "/mosquitto-test.conf"
	mosquittoConf       = "listener 1883\nallow_anonymous true\n"
	mqttConnectTimeout  = 10 * time.Second
	mqttTokenTimeout    = 5 * time.Second
	retainedSettleDelay = 100 * time.Millisecond
)

// MosquittoContainer is an anonymous Eclipse Mosquitto broker used by the
// MQTT ingestion and alert publishing tests.
type MosquittoContainer struct {
	container testcontainers.Container
	brokerURL string
}

type MosquittoConfig struct {
	ImageTag string
}

func DefaultMosquittoConfig() MosquittoConfig {
	return MosquittoConfig{ImageTag: "2.0"}
}

// NewMosquittoContainer starts a broker and waits until a client can connect.
// A nil config uses DefaultMosquittoConfig.
func NewMosquittoContainer(ctx context.Context, config *MosquittoConfig) (*MosquittoContainer, error) {
	cfg := DefaultMosquittoConfig()
	if config != nil {
		cfg = *config
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "eclipse-mosquitto:" + cfg.ImageTag,
			ExposedPorts: []string{mosquittoPort},
			Cmd:          []string{"mosquitto", "-c", mosquittoConfPath},
			Files: []testcontainers.ContainerFile{{
				Reader:            strings.NewReader(mosquittoConf),
				ContainerFilePath: mosquittoConfPath,
				FileMode:          0o644,
			}},
			WaitingFor: wait.ForLog("mosquitto version").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start mosquitto container: %w", err)
	}

	mc := &MosquittoContainer{container: container}
	host, err := container.Host(ctx)
	if err != nil {
		_ = mc.Terminate(context.Background())
		return nil, fmt.Errorf("failed to get mosquitto host: %w", err)
	}
	port, err := container.MappedPort(ctx, mosquittoPort)
	if err != nil {
		_ = mc.Terminate(context.Background())
		return nil, fmt.Errorf("failed to get mosquitto port: %w", err)
	}
	mc.brokerURL = "tcp://" + net.JoinHostPort(host, strconv.Itoa(port.Int()))

	probe, err := mc.connect("healthcheck", false)
	if err != nil {
		_ = mc.Terminate(context.Background())
		return nil, fmt.Errorf("mosquitto not accepting clients: %w", err)
	}
	probe.Disconnect(250)
	return mc, nil
}

// GetBrokerURL returns the broker URL, e.g. "tcp://localhost:32771".
func (c *MosquittoContainer) GetBrokerURL(t *testing.T) string {
	t.Helper()
	if c.brokerURL == "" {
		t.Fatal("broker URL is empty")
	}
	return c.brokerURL
}

// CreateClient returns a connected paho client with auto-reconnect. The
// caller disconnects it.
func (c *MosquittoContainer) CreateClient(clientID string, opts ...func(*mqtt.ClientOptions)) (mqtt.Client, error) {
	return c.connect(clientID, true, opts...)
}

func (c *MosquittoContainer) connect(clientID string, reconnect bool, opts ...func(*mqtt.ClientOptions)) (mqtt.Client, error) {
	options := mqtt.NewClientOptions().
		AddBroker(c.brokerURL).
		SetClientID(clientID).
		SetConnectTimeout(mqttConnectTimeout).
		SetAutoReconnect(reconnect)
	for _, opt := range opts {
		opt(options)
	}
	client := mqtt.NewClient(options)
	if err := await(client.Connect(), mqttConnectTimeout); err != nil {
		return nil, fmt.Errorf("client %s failed to connect: %w", clientID, err)
	}
	return client, nil
}

// ClearRetainedMessages empties every retained topic so readings retained by
// one test are not replayed into the next.
func (c *MosquittoContainer) ClearRetainedMessages(ctx context.Context) error {
	client, err := c.connect("retained-cleaner", false)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	var (
		mu     sync.Mutex
		topics []string
	)
	collect := func(_ mqtt.Client, msg mqtt.Message) {
		if msg.Retained() {
			mu.Lock()
			topics = append(topics, msg.Topic())
			mu.Unlock()
		}
	}
	if err := await(client.Subscribe("#", 0, collect), mqttTokenTimeout); err != nil {
		return fmt.Errorf("failed to subscribe to #: %w", err)
	}

	select {
	case <-time.After(retainedSettleDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := await(client.Unsubscribe("#"), mqttTokenTimeout); err != nil {
		return fmt.Errorf("failed to unsubscribe from #: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, topic := range topics {
		// An empty retained payload deletes the retained message.
		if err := await(client.Publish(topic, 0, true, nil), mqttTokenTimeout); err != nil {
			return fmt.Errorf("failed to clear %s: %w", topic, err)
		}
	}
	return nil
}

func (c *MosquittoContainer) Terminate(ctx context.Context) error {
	if c.container == nil {
		return nil
	}
	return c.container.Terminate(ctx)
}

func await(token mqtt.Token, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("timed out after %s", timeout)
	}
	return token.Error()
}
