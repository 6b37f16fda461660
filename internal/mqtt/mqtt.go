// Package mqtt provides MQTT telemetry publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/taskpanel/internal/logic"
)

// Topics for panel telemetry.
const (
	TopicLEDs       = "taskpanel/leds"
	TopicDirectives = "taskpanel/directives"
	TopicSystem     = "taskpanel/system"
)

// Publisher publishes panel telemetry to MQTT.
// Returned errors are for logging only; callers never change behaviour on them.
type Publisher interface {
	// PublishLED sends the LED state after a display update.
	PublishLED(event LEDEvent) error

	// PublishDirective sends a supervisor directive.
	PublishDirective(event DirectiveEvent) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// LEDEvent is one display update.
type LEDEvent struct {
	Timestamp time.Time
	Event     logic.Event
	LEDs      logic.Sample
	Button    logic.Sample
	Switches  logic.Sample
	Mode      string // "ACTIVE" or "ERROR_BLINK"
}

// DirectiveEvent is one supervisor decision and its outcome.
type DirectiveEvent struct {
	Timestamp time.Time
	Group     logic.Group
	Sample    logic.Sample
	Directive logic.Directive
	Err       error
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown,
// heartbeat, watchdog).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "WATCHDOG"
	Reason     string // e.g., "SIGTERM" (shutdown), "PASS"/"FAIL" (watchdog)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

type ledPayload struct {
	LEDs ledInner `json:"leds"`
}

type ledInner struct {
	Timestamp string `json:"timestamp"`
	Mode      string `json:"mode"`
	Mask      string `json:"mask"`
	Event     string `json:"event"`
	Button    string `json:"button"`
	Switches  string `json:"switches"`
}

func bits(s logic.Sample) string {
	return fmt.Sprintf("%04b", uint8(s))
}

// FormatLEDPayload creates the JSON payload for a display update.
func FormatLEDPayload(event LEDEvent) ([]byte, error) {
	return json.Marshal(ledPayload{
		LEDs: ledInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Mode:      event.Mode,
			Mask:      bits(event.LEDs),
			Event:     fmt.Sprintf("%08b", uint8(event.Event)),
			Button:    bits(event.Button),
			Switches:  bits(event.Switches),
		},
	})
}

type directivePayload struct {
	Directive directiveInner `json:"directive"`
}

type directiveInner struct {
	Timestamp string `json:"timestamp"`
	Group     string `json:"group"`
	Sample    string `json:"sample"`
	Action    string `json:"action"`
	Task      string `json:"task"`
	Error     string `json:"error,omitempty"`
}

// FormatDirectivePayload creates the JSON payload for a supervisor directive.
func FormatDirectivePayload(event DirectiveEvent) ([]byte, error) {
	inner := directiveInner{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Group:     string(event.Group),
		Sample:    bits(event.Sample),
		Action:    string(event.Directive.Action),
		Task:      string(event.Directive.Task),
	}
	if event.Err != nil {
		inner.Error = event.Err.Error()
	}
	return json.Marshal(directivePayload{Directive: inner})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// Discard is a Publisher that drops everything. Used when no broker is set.
type Discard struct{}

func (Discard) PublishLED(LEDEvent) error             { return nil }
func (Discard) PublishDirective(DirectiveEvent) error { return nil }
func (Discard) PublishSystem(SystemEvent) error       { return nil }
func (Discard) Close() error                          { return nil }
func (Discard) IsConnected() bool                     { return false }
