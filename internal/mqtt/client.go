// Package mqtt connects the pipeline to an MQTT broker: sensor readings are
// ingested from one topic tree and persisted alerts are published to another.
package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coastcare/coastal-alerts/internal/conf"
	"github.com/coastcare/coastal-alerts/internal/errors"
	"github.com/coastcare/coastal-alerts/internal/logger"
	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	defaultConnectTimeout = 10 * time.Second
	disconnectQuiesceMs   = 250
	maxReconnectInterval  = 30 * time.Second
)

var ErrNotConnected = errors.New("mqtt client not connected")

// MessageHandler receives one message. It runs on a paho goroutine.
type MessageHandler func(topic string, payload []byte)

// Client is the broker connection used by the subscriber and publisher.
type Client interface {
	Connect(ctx context.Context) error
	IsConnected() bool
	Publish(ctx context.Context, topic string, qos byte, payload []byte) error
	Subscribe(ctx context.Context, topic string, qos byte, handler MessageHandler) error
	Disconnect()
}

type subscription struct {
	qos     byte
	handler MessageHandler
}

type client struct {
	settings *conf.MQTTSettings
	timeout  time.Duration
	log      logger.Logger

	mu   sync.Mutex
	conn paho.Client
	subs map[string]subscription
}

// NewClient creates a disconnected client for the configured broker.
func NewClient(settings *conf.MQTTSettings, log logger.Logger) (Client, error) {
	if settings.Broker == "" {
		return nil, errors.New("mqtt broker is not configured")
	}
	timeout := settings.ConnectTimeout.Std()
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	return &client{
		settings: settings,
		timeout:  timeout,
		log:      log,
		subs:     make(map[string]subscription),
	}, nil
}

func (c *client) options() *paho.ClientOptions {
	opts := paho.NewClientOptions()
	opts.AddBroker(c.settings.Broker)
	opts.SetClientID(c.settings.ClientID)
	if c.settings.Username != "" {
		opts.SetUsername(c.settings.Username)
		opts.SetPassword(c.settings.Password)
	}
	opts.SetConnectTimeout(c.timeout)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(maxReconnectInterval)
	opts.SetCleanSession(true)
	opts.SetOrderMatters(false)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		c.log.Warn("mqtt connection lost", logger.String("broker", c.settings.Broker), logger.Error(err))
	})
	return opts
}

// Connect dials the broker. Subscriptions made earlier are restored on
// every (re)connect.
func (c *client) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt connect aborted: %w", err)
	}
	c.mu.Lock()
	if c.conn != nil && c.conn.IsConnected() {
		c.mu.Unlock()
		return nil
	}
	conn := paho.NewClient(c.options())
	c.conn = conn
	c.mu.Unlock()

	if err := wait(ctx, conn.Connect(), c.timeout); err != nil {
		return fmt.Errorf("failed to connect to mqtt broker %s: %w", c.settings.Broker, err)
	}
	c.log.Info("connected to mqtt broker", logger.String("broker", c.settings.Broker))
	return nil
}

func (c *client) onConnect(conn paho.Client) {
	c.mu.Lock()
	subs := make(map[string]subscription, len(c.subs))
	for topic, s := range c.subs {
		subs[topic] = s
	}
	c.mu.Unlock()

	for topic, s := range subs {
		token := conn.Subscribe(topic, s.qos, wrap(s.handler))
		if err := wait(context.Background(), token, c.timeout); err != nil {
			c.log.Error("failed to restore mqtt subscription",
				logger.String("topic", topic),
				logger.Error(err))
		}
	}
}

func (c *client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && c.conn.IsConnected()
}

func (c *client) connection() (paho.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.conn.IsConnected() {
		return nil, ErrNotConnected
	}
	return c.conn, nil
}

func (c *client) Publish(ctx context.Context, topic string, qos byte, payload []byte) error {
	conn, err := c.connection()
	if err != nil {
		return err
	}
	if err := wait(ctx, conn.Publish(topic, qos, false, payload), c.timeout); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (c *client) Subscribe(ctx context.Context, topic string, qos byte, handler MessageHandler) error {
	conn, err := c.connection()
	if err != nil {
		return err
	}
	if err := wait(ctx, conn.Subscribe(topic, qos, wrap(handler)), c.timeout); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	c.mu.Lock()
	c.subs[topic] = subscription{qos: qos, handler: handler}
	c.mu.Unlock()
	c.log.Info("subscribed to mqtt topic", logger.String("topic", topic), logger.Int("qos", int(qos)))
	return nil
}

func (c *client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil && conn.IsConnected() {
		conn.Disconnect(disconnectQuiesceMs)
		c.log.Info("disconnected from mqtt broker", logger.String("broker", c.settings.Broker))
	}
}

func wrap(handler MessageHandler) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		handler(msg.Topic(), msg.Payload())
	}
}

// wait blocks until the token completes, ctx ends or timeout elapses.
func wait(ctx context.Context, token paho.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("timed out after %s", timeout)
	}
}
