package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig configures the broker connection.
type MQTTConfig struct {
	Broker   string
	Port     int
	ClientID string
	Topic    string
}

// publishClient is the part of mqtt.Client the publisher uses.
type publishClient interface {
	Connect() mqtt.Token
	Disconnect(quiesce uint)
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTPublisher publishes alert events as JSON to a topic, one message per
// alert, suffixed with the slot id.
type MQTTPublisher struct {
	client publishClient
	topic  string
	logger *slog.Logger
}

// NewMQTTPublisher configures, but does not connect, a publisher.
func NewMQTTPublisher(cfg MQTTConfig, logger *slog.Logger) *MQTTPublisher {
	if logger == nil {
		logger = slog.Default()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		logger.Info("mqtt connected", "broker", cfg.Broker, "port", cfg.Port)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	})

	return newMQTTPublisher(mqtt.NewClient(opts), cfg.Topic, logger)
}

func newMQTTPublisher(client publishClient, topic string, logger *slog.Logger) *MQTTPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &MQTTPublisher{
		client: client,
		topic:  topic,
		logger: logger,
	}
}

// Connect waits for the broker connection or ctx expiry.
func (p *MQTTPublisher) Connect(ctx context.Context) error {
	if p.client.IsConnected() {
		return nil
	}
	token := p.client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			p.client.Disconnect(0)
			return fmt.Errorf("mqtt connect: %w", err)
		}
		return nil
	case <-ctx.Done():
		// With connect retry enabled the client keeps trying in the background.
		return fmt.Errorf("mqtt connect: %w", ctx.Err())
	}
}

// Publish implements Publisher with QoS 1.
func (p *MQTTPublisher) Publish(ctx context.Context, e Event) error {
	if !p.client.IsConnected() {
		return errors.New("mqtt client not connected")
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}

	topic := p.topic + "/" + e.Slot
	if err := wait(ctx, p.client.Publish(topic, 1, false, data)); err != nil {
		return fmt.Errorf("mqtt publish: %w", err)
	}
	p.logger.Debug("alert published", "topic", topic, "id", e.ID)
	return nil
}

// Close disconnects, allowing 250ms for in-flight messages.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

func wait(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
