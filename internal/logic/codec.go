package logic

import "fmt"

const switchShift = 4

// Event is one transport byte: button nibble in bits 0-3, switch nibble in
// bits 4-7.
type Event uint8

// Encode packs the button and switch nibbles into an Event.
// Bits above the low nibble of each argument are discarded.
func Encode(button, switches Sample) Event {
	return Event(button&NibbleMask) | Event(switches&NibbleMask)<<switchShift
}

// Decode splits an Event back into its button and switch nibbles.
func (e Event) Decode() (button, switches Sample) {
	return Sample(e) & NibbleMask, Sample(e>>switchShift) & NibbleMask
}

func (e Event) String() string {
	b, s := e.Decode()
	return fmt.Sprintf("btn=%04b sw=%04b", b, s)
}

// InitialSwitches is the retained switch field before any switch event
// arrives: all switches treated as on.
const InitialSwitches Sample = 0b1111

// Merger holds the button and switch fields retained across events and
// derives the LED mask from them.
// Not safe for concurrent use; it belongs to the display task.
type Merger struct {
	button   Sample
	switches Sample
}

// NewMerger returns a Merger with no buttons and all switches on.
func NewMerger() *Merger {
	return &Merger{switches: InitialSwitches}
}

// Apply merges a decoded event into the retained fields and returns the LED
// mask. A nonzero button field replaces the retained buttons. A nonzero
// switch field, or a zero button field, replaces the retained switches.
// A button lights its LED only while the matching switch is set.
func (m *Merger) Apply(e Event) Sample {
	b, s := e.Decode()
	if b != 0 {
		m.button = b
	}
	if s != 0 || b == 0 {
		m.switches = s
	}
	return m.LEDs()
}

// LEDs returns the current LED mask.
func (m *Merger) LEDs() Sample {
	return m.button & m.switches
}

// Retained returns the retained button and switch fields.
func (m *Merger) Retained() (button, switches Sample) {
	return m.button, m.switches
}
