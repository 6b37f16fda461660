package mqtt

import "sync"

// FakePublisher records published events for test assertions.
// It is safe for concurrent use.
type FakePublisher struct {
	mu sync.Mutex

	leds       []LEDEvent
	directives []DirectiveEvent
	system     []SystemEvent
	payloads   map[string][][]byte

	// PublishError, if set, will be returned by every Publish method.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{payloads: make(map[string][][]byte)}
}

func (f *FakePublisher) record(topic string, payload []byte, err error) error {
	if err != nil {
		return err
	}
	f.payloads[topic] = append(f.payloads[topic], payload)
	return nil
}

// PublishLED records the display update.
func (f *FakePublisher) PublishLED(event LEDEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.leds = append(f.leds, event)
	payload, err := FormatLEDPayload(event)
	return f.record(TopicLEDs, payload, err)
}

// PublishDirective records the directive.
func (f *FakePublisher) PublishDirective(event DirectiveEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.directives = append(f.directives, event)
	payload, err := FormatDirectivePayload(event)
	return f.record(TopicDirectives, payload, err)
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.system = append(f.system, event)
	payload, err := FormatSystemPayload(event)
	return f.record(TopicSystem, payload, err)
}

// LEDs returns a copy of the recorded display updates.
func (f *FakePublisher) LEDs() []LEDEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]LEDEvent(nil), f.leds...)
}

// Directives returns a copy of the recorded directives.
func (f *FakePublisher) Directives() []DirectiveEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]DirectiveEvent(nil), f.directives...)
}

// SystemEvents returns a copy of the recorded system events.
func (f *FakePublisher) SystemEvents() []SystemEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SystemEvent(nil), f.system...)
}

// Payloads returns the JSON payloads published on topic.
func (f *FakePublisher) Payloads(topic string) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.payloads[topic]...)
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Reset clears recorded events.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leds = nil
	f.directives = nil
	f.system = nil
	f.payloads = make(map[string][][]byte)
	f.Closed = false
	f.PublishError = nil
	f.Connected = false
}
