//go:build !no_mqtt

// Package mqtt publishes the fan state to an MQTT broker and accepts
// ON/OFF/TOGGLE commands, in the zigbee2mqtt topic convention.
package mqtt

import (
	"fmt"
	"log/slog"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"zigbee-fanswitch/internal/device"
	"zigbee-fanswitch/internal/relay"
)

// Config holds MQTT bridge configuration.
type Config struct {
	Broker      string
	Username    string
	Password    string
	TopicPrefix string
	ClientID    string
}

// Bridge connects the device core to MQTT.
type Bridge struct {
	client pahomqtt.Client
	dev    *device.Device
	prefix string
	logger *slog.Logger
	unsub  func()
}

// NewBridge creates and connects an MQTT bridge.
func NewBridge(dev *device.Device, cfg Config, logger *slog.Logger) (*Bridge, error) {
	b := &Bridge{
		dev:    dev,
		prefix: cfg.TopicPrefix,
		logger: logger.With("component", "mqtt"),
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "zigbee-fanswitch"
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(cfg.TopicPrefix+"/availability", "offline", 1, true).
		SetOnConnectHandler(func(_ pahomqtt.Client) {
			b.logger.Info("MQTT connected")
			b.publish(b.prefix+"/availability", []byte("online"), true)
			b.publishState(b.dev.Relay().Get())
			b.subscribeCommands()
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			b.logger.Warn("MQTT connection lost", "err", err)
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	b.client = client
	return b, nil
}

// Start subscribes to device events and begins MQTT publishing.
func (b *Bridge) Start() {
	b.unsub = b.dev.Events().On(device.EventStateChanged, b.handleStateEvent)
	b.logger.Info("MQTT bridge started", "prefix", b.prefix)
}

// Stop publishes offline state, unsubscribes, and disconnects.
func (b *Bridge) Stop() {
	if b.unsub != nil {
		b.unsub()
	}
	b.publish(b.prefix+"/availability", []byte("offline"), true)
	b.client.Disconnect(1000)
	b.logger.Info("MQTT bridge stopped")
}

func (b *Bridge) handleStateEvent(event device.Event) {
	data, ok := event.Data.(map[string]interface{})
	if !ok {
		return
	}
	state, _ := data["state"].(string)
	if state == "" {
		return
	}
	b.publish(b.prefix+"/state", []byte(state), true)
}

func (b *Bridge) publishState(s relay.State) {
	b.publish(b.prefix+"/state", []byte(s.String()), true)
}

func (b *Bridge) subscribeCommands() {
	topic := b.prefix + "/set"
	b.client.Subscribe(topic, 1, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		b.handleCommand(msg.Payload())
	})
}

func (b *Bridge) handleCommand(payload []byte) {
	target, ok := ParseCommand(payload, b.dev.Relay().Get())
	if !ok {
		b.logger.Warn("invalid command payload", "payload", string(payload))
		return
	}
	b.logger.Info("MQTT command", "state", target)
	if err := b.dev.ApplyLocal(target); err != nil {
		b.logger.Warn("apply command", "state", target, "err", err)
	}
}

func (b *Bridge) publish(topic string, payload []byte, retained bool) {
	token := b.client.Publish(topic, 1, retained, payload)
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			b.logger.Warn("MQTT publish timeout", "topic", topic)
		} else if err := token.Error(); err != nil {
			b.logger.Warn("MQTT publish error", "topic", topic, "err", err)
		}
	}()
}
