package sink

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"gpsdjson/internal/gpsd"
)

type MQTTConfig struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	QoS         byte
	Retain      bool
	Format      Format
	Timeout     time.Duration
	Logger      *slog.Logger
}

// publisher is the subset of mqtt.Client the sink needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes each record to <prefix>/<class>, class in lower case.
type MQTT struct {
	cfg    MQTTConfig
	client publisher
}

// DialMQTT connects to the broker and returns a ready sink.
func DialMQTT(cfg MQTTConfig) (*MQTT, error) {
	if strings.TrimSpace(cfg.Broker) == "" {
		return nil, fmt.Errorf("mqtt broker is required")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "gpsd-decode"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	logger := cfg.Logger

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("mqtt connection lost", "broker", cfg.Broker, "error", err)
		}).
		SetOnConnectHandler(func(mqtt.Client) {
			logger.Info("mqtt connected", "broker", cfg.Broker)
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !waitToken(token, cfg.Timeout) {
		return nil, fmt.Errorf("mqtt connect %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, err)
	}
	return newMQTT(client, cfg), nil
}

func newMQTT(client publisher, cfg MQTTConfig) *MQTT {
	cfg.TopicPrefix = strings.Trim(strings.TrimSpace(cfg.TopicPrefix), "/")
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "gpsd"
	}
	if cfg.QoS > 2 {
		cfg.QoS = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &MQTT{cfg: cfg, client: client}
}

func (m *MQTT) Topic(rec gpsd.Record) string {
	return m.cfg.TopicPrefix + "/" + strings.ToLower(rec.Class())
}

func (m *MQTT) Publish(ctx context.Context, rec gpsd.Record) error {
	b, err := Encode(m.cfg.Format, rec)
	if err != nil {
		return err
	}
	token := m.client.Publish(m.Topic(rec), m.cfg.QoS, m.cfg.Retain, b)
	// QoS 0 completes immediately; higher levels wait for the broker ack.
	if m.cfg.QoS == 0 {
		return nil
	}
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.cfg.Timeout):
		return fmt.Errorf("mqtt publish %s: timeout", m.Topic(rec))
	}
}

func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}

func waitToken(t mqtt.Token, d time.Duration) bool {
	if d <= 0 {
		return t.Wait()
	}
	return t.WaitTimeout(d)
}
