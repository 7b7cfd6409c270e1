package mqtt

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/gingerskull/joycore-link/internal/config"
	"github.com/gingerskull/joycore-link/internal/rawstate"
)

// RealPublisher publishes to an actual MQTT broker. While the broker is
// unreachable, messages queue in a bounded ring and replay on reconnect.
type RealPublisher struct {
	client paho.Client
	cfg    config.MQTTConfig
	logger *zap.Logger

	mu     sync.Mutex
	buffer *ringBuffer
}

// NewRealPublisher connects to the configured broker.
func NewRealPublisher(cfg config.MQTTConfig, logger *zap.Logger) (*RealPublisher, error) {
	capacity := cfg.BufferSize
	if capacity <= 0 {
		capacity = 512
	}
	p := &RealPublisher{
		cfg:    cfg,
		logger: logger,
		buffer: newRingBuffer(capacity),
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(p.onConnect)

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(p.connectTimeout()) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	logger.Info("MQTT publisher connected",
		zap.String("broker", cfg.BrokerURL),
		zap.String("client_id", cfg.ClientID))
	return p, nil
}

// PublishTransition sends one accepted state change to the broker.
func (p *RealPublisher) PublishTransition(tr rawstate.Transition) error {
	payload, err := json.Marshal(tr)
	if err != nil {
		return fmt.Errorf("format transition payload: %w", err)
	}
	topic := TransitionTopic(p.cfg.TopicPrefix, tr.Domain)
	return p.publish(topic, byte(p.cfg.QoS), false, payload)
}

// PublishStatus sends a service lifecycle event to the MQTT broker.
// QoS 1 so shutdown notices survive a flaky link.
func (p *RealPublisher) PublishStatus(event SystemEvent) error {
	payload, err := formatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(StatusTopic(p.cfg.TopicPrefix), 1, event.Retained, payload)
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !p.client.IsConnected() {
		p.mu.Lock()
		dropped := p.buffer.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		queued := p.buffer.len()
		p.mu.Unlock()
		if dropped {
			p.logger.Warn("MQTT buffer full, dropped oldest message", zap.Int("capacity", queued))
		}
		return nil
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(p.publishTimeout()) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// onConnect replays everything buffered while the broker was away.
func (p *RealPublisher) onConnect(client paho.Client) {
	p.mu.Lock()
	queued := p.buffer.drainAll()
	p.mu.Unlock()
	if len(queued) == 0 {
		return
	}

	p.logger.Info("Replaying buffered MQTT messages", zap.Int("count", len(queued)))
	for _, msg := range queued {
		token := client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
		token.WaitTimeout(p.publishTimeout())
	}
}

func (p *RealPublisher) connectTimeout() time.Duration {
	if p.cfg.ConnectTimeout > 0 {
		return p.cfg.ConnectTimeout
	}
	return 5 * time.Second
}

func (p *RealPublisher) publishTimeout() time.Duration {
	if p.cfg.PublishTimeout > 0 {
		return p.cfg.PublishTimeout
	}
	return 2 * time.Second
}
