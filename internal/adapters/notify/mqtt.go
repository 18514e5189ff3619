package notify

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/okian/attendance/internal/domain/model"
)

const (
	mqttQoS             = 1
	mqttConnectTimeout  = 30 * time.Second
	mqttDisconnectQuiet = 250 // ms
)

// MQTTConfig locates the broker and topic.
type MQTTConfig struct {
	Broker   string
	Topic    string
	ClientID string
}

// MQTTPublisher publishes events to an MQTT topic.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
}

// NewMQTTPublisher connects to the broker. Lost connections are
// re-established by the client.
func NewMQTTPublisher(cfg MQTTConfig) (*MQTTPublisher, error) {
	if cfg.Broker == "" || cfg.Topic == "" {
		return nil, fmt.Errorf("%w: mqtt broker and topic are required", ErrInvalidConfig)
	}
	opts := mqtt.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(5 * time.Second)
	opts.SetConnectTimeout(mqttConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("connect to mqtt %s: timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to mqtt %s: %w", cfg.Broker, err)
	}
	return &MQTTPublisher{client: client, topic: cfg.Topic}, nil
}

func newMQTTPublisherWithClient(client mqtt.Client, topic string) *MQTTPublisher {
	return &MQTTPublisher{client: client, topic: topic}
}

func (p *MQTTPublisher) Name() string { return "mqtt" }

// Publish sends e with QoS 1 and waits for the broker or ctx.
func (p *MQTTPublisher) Publish(ctx context.Context, e model.AttendanceEvent) error { //nolint:gocritic // hugeParam: events are passed by value everywhere
	data, err := Encode(e)
	if err != nil {
		return err
	}
	token := p.client.Publish(p.topic, mqttQoS, false, data)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish %s: %w", p.topic, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publish %s: %w", p.topic, ctx.Err())
	}
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(mqttDisconnectQuiet)
	return nil
}
