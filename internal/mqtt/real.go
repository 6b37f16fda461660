package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// backlogSize is how many messages are kept while the broker is unreachable.
const backlogSize = 100

// RealPublisher publishes to an actual MQTT broker.
// Messages published while disconnected are buffered and replayed in order
// when the connection comes back.
type RealPublisher struct {
	client paho.Client

	mu      sync.Mutex
	pending *backlog
}

// NewRealPublisher creates a publisher for the given broker. The connection
// keeps retrying in the background; only a definite connect error fails.
func NewRealPublisher(broker, clientID string) (*RealPublisher, error) {
	p := &RealPublisher{pending: newBacklog(backlogSize)}

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "LWT", Reason: "connection lost"})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(func(paho.Client) { p.replay() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if token.WaitTimeout(10 * time.Second) {
		if err := token.Error(); err != nil {
			return nil, fmt.Errorf("connect to broker: %w", err)
		}
	} else {
		log.Printf("mqtt: broker %s not reachable yet, buffering", broker)
	}

	return p, nil
}

// IsConnected reports whether the client currently has a broker connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// PublishLED sends a display update, QoS 0 (at-most-once), not retained.
func (p *RealPublisher) PublishLED(event LEDEvent) error {
	payload, err := FormatLEDPayload(event)
	if err != nil {
		return fmt.Errorf("format led payload: %w", err)
	}
	return p.send(outbound{topic: TopicLEDs, payload: payload, qos: 0})
}

// PublishDirective sends a supervisor directive, QoS 1.
func (p *RealPublisher) PublishDirective(event DirectiveEvent) error {
	payload, err := FormatDirectivePayload(event)
	if err != nil {
		return fmt.Errorf("format directive payload: %w", err)
	}
	return p.send(outbound{topic: TopicDirectives, payload: payload, qos: 1})
}

// PublishSystem sends a system lifecycle event, QoS 1 (at-least-once).
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.send(outbound{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) send(msg outbound) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.pending.push(msg)
		p.mu.Unlock()
		return nil
	}

	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

// replay flushes the backlog after (re)connecting. Runs on paho's
// connect callback goroutine, so publishes are not waited on here.
func (p *RealPublisher) replay() {
	p.mu.Lock()
	msgs := p.pending.flush()
	p.mu.Unlock()

	for _, m := range msgs {
		p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	}
	if len(msgs) > 0 {
		log.Printf("mqtt: replayed %d messages", len(msgs))
	}
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
