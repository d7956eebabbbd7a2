// Package mqtt publishes device levels to an MQTT broker as retained state.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/vanhub/pkg/config"
	"github.com/urmzd/vanhub/pkg/device"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPublishTimeout = 2 * time.Second
	disconnectQuiesce     = 250 // milliseconds
)

// LevelMessage is the retained payload on <prefix>/device/<name>/level.
type LevelMessage struct {
	DeviceID  string    `json:"device_id"`
	Device    string    `json:"device"`
	Level     int       `json:"level"`
	Timestamp time.Time `json:"timestamp"`
}

// client is the part of pahomqtt.Client the publisher uses.
type client interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Disconnect(quiesce uint)
}

// Publisher forwards level reports to the broker.
type Publisher struct {
	client client
	prefix string
	qos    byte
}

// Connect starts a paho client with auto-reconnect. It does not wait for the
// broker: publishes fail with ErrNotConnected until the first connection
// succeeds.
func Connect(cfg config.MQTTConfig) *Publisher {
	prefix := strings.Trim(cfg.TopicPrefix, "/")

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetConnectTimeout(defaultConnectTimeout).
		SetWill(statusTopic(prefix), "offline", 1, true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetOnConnectHandler(func(c pahomqtt.Client) {
		log.Info().Str("broker", cfg.Broker).Msg("MQTT connected")
		c.Publish(statusTopic(prefix), 1, true, "online")
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	})

	c := pahomqtt.NewClient(opts)
	c.Connect()

	return newPublisher(c, prefix, byte(cfg.QoS))
}

func newPublisher(c client, prefix string, qos byte) *Publisher {
	return &Publisher{client: c, prefix: prefix, qos: qos}
}

// LevelChanged publishes a retained level message for d.
func (p *Publisher) LevelChanged(ctx context.Context, d device.Device, level int) error {
	if !p.client.IsConnected() {
		return ErrNotConnected
	}

	payload, err := json.Marshal(LevelMessage{
		DeviceID:  d.ID.String(),
		Device:    d.Name,
		Level:     level,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	token := p.client.Publish(LevelTopic(p.prefix, d.Name), p.qos, true, payload)
	timeout := defaultPublishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if !token.WaitTimeout(timeout) {
		return ErrTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Close marks the hub offline and disconnects.
func (p *Publisher) Close() {
	if p.client.IsConnected() {
		p.client.Publish(statusTopic(p.prefix), 1, true, "offline").WaitTimeout(time.Second)
	}
	p.client.Disconnect(disconnectQuiesce)
}

// LevelTopic returns <prefix>/device/<name>/level with spaces in the name
// replaced by underscores.
func LevelTopic(prefix, name string) string {
	return fmt.Sprintf("%s/device/%s/level", prefix, strings.ReplaceAll(name, " ", "_"))
}

func statusTopic(prefix string) string {
	return prefix + "/status"
}
