package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/gofrs/uuid"

	"github.com/oshokin/catpoint/internal/config"
	"github.com/oshokin/catpoint/internal/logger"
)

// quiesceMillis is how long Close waits for in-flight work.
const quiesceMillis = 250

// ErrTimeout is returned when the broker does not acknowledge in time.
var ErrTimeout = errors.New("mqtt operation timed out")

// MessageHandler receives the topic and payload of an incoming message.
type MessageHandler func(topic string, payload []byte)

// Client wraps a paho client with timeouts, context logging and
// re-subscription after reconnects.
type Client struct {
	client  paho.Client
	timeout time.Duration
	// ctx carries the logger for callbacks paho runs on its own goroutines.
	ctx context.Context //nolint:containedctx // Only used for logging from paho callbacks.

	mu            sync.Mutex
	subscriptions map[string]MessageHandler
}

// NewClient configures a client for the broker. It does not connect.
func NewClient(ctx context.Context, cfg config.MQTTConfig, timeout time.Duration) (*Client, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("generate client id: %w", err)
	}

	c := &Client{
		timeout:       timeout,
		ctx:           logger.WithName(ctx, "mqtt"),
		subscriptions: make(map[string]MessageHandler),
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID("catpoint-" + id.String()).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectTimeout(timeout).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.WarnKV(c.ctx, "Connection to broker lost", "error", err)
		}).
		SetReconnectingHandler(func(paho.Client, *paho.ClientOptions) {
			logger.Info(c.ctx, "Reconnecting to broker")
		})

	c.client = paho.NewClient(opts)

	return c, nil
}

// Connect dials the broker and waits for the acknowledgement.
func (c *Client) Connect() error {
	if err := c.wait(c.client.Connect()); err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}

	return nil
}

// Subscribe registers a handler for the topic filter. Subscriptions are
// restored automatically after a reconnect.
func (c *Client) Subscribe(topic string, handler MessageHandler) error {
	c.mu.Lock()
	c.subscriptions[topic] = handler
	c.mu.Unlock()

	if err := c.wait(c.client.Subscribe(topic, 1, wrap(handler))); err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}

	return nil
}

// Publish sends a message without waiting for delivery.
// Failures are logged once the broker answers or the timeout expires.
func (c *Client) Publish(ctx context.Context, topic string, retained bool, payload []byte) {
	token := c.client.Publish(topic, 1, retained, payload)

	go func() {
		if err := c.wait(token); err != nil {
			logger.ErrorKV(ctx, "Publish failed", "topic", topic, "error", err)
		}
	}()
}

// Close disconnects from the broker.
func (c *Client) Close() {
	c.client.Disconnect(quiesceMillis)
}

func (c *Client) onConnect(client paho.Client) {
	logger.Info(c.ctx, "Connected to broker")

	c.mu.Lock()
	defer c.mu.Unlock()

	for topic, handler := range c.subscriptions {
		token := client.Subscribe(topic, 1, wrap(handler))

		go func() {
			if err := c.wait(token); err != nil {
				logger.ErrorKV(c.ctx, "Resubscribe failed", "topic", topic, "error", err)
			}
		}()
	}
}

func (c *Client) wait(token paho.Token) error {
	if !token.WaitTimeout(c.timeout) {
		return ErrTimeout
	}

	return token.Error()
}

func wrap(handler MessageHandler) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		handler(msg.Topic(), msg.Payload())
	}
}
