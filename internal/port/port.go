// Package port reads input ports and drives output ports as bit-fields.
// The gpiocdev and periph backends talk to real hardware on Linux.
// The fake implementation allows testing and simulation without hardware.
package port

import (
	"fmt"

	"github.com/sweeney/taskpanel/internal/logic"
)

// Channel names one port.
type Channel string

const (
	ChannelButtons  Channel = "buttons"
	ChannelSwitches Channel = "switches"
	ChannelLEDs     Channel = "leds"
)

// Reader reads input ports.
type Reader interface {
	// Read returns the instantaneous state of ch, bit i holding line i.
	Read(ch Channel) (logic.Sample, error)

	// Close releases port resources.
	Close() error
}

// Writer drives output ports.
type Writer interface {
	// Write sets line i of ch to bit i of s.
	Write(ch Channel, s logic.Sample) error
}

// Port is a set of input and output channels.
type Port interface {
	Reader
	Writer
}

// Backends accepted by Open.
const (
	BackendGPIOCDev = "gpiocdev"
	BackendPeriph   = "periph"
	BackendSim      = "sim"
)

// Default line offsets (BCM numbering on a Raspberry Pi header).
var (
	DefaultButtonLines = []int{5, 6, 13, 19}
	DefaultSwitchLines = []int{12, 16, 20, 21}
	DefaultLEDLines    = []int{17, 27, 22, 23}
)

// Line limits per channel. Each input group travels in one nibble of an
// event, so inputs are capped at four lines.
const (
	MaxInputLines  = 4
	MaxOutputLines = 8
)

// Config selects the backend and the lines behind each channel.
type Config struct {
	Backend string
	Chip    string

	Buttons  []int
	Switches []int
	LEDs     []int

	// ActiveLow inverts input lines (pressed pulls the line low).
	ActiveLow bool
}

// DefaultConfig returns the gpiocdev backend on gpiochip0 with the default
// lines.
func DefaultConfig() Config {
	return Config{
		Backend:  BackendGPIOCDev,
		Chip:     "gpiochip0",
		Buttons:  DefaultButtonLines,
		Switches: DefaultSwitchLines,
		LEDs:     DefaultLEDLines,
	}
}

// Validate checks the channel widths.
func (c Config) Validate() error {
	for _, ch := range []struct {
		name  Channel
		lines []int
		max   int
	}{
		{ChannelButtons, c.Buttons, MaxInputLines},
		{ChannelSwitches, c.Switches, MaxInputLines},
		{ChannelLEDs, c.LEDs, MaxOutputLines},
	} {
		if len(ch.lines) == 0 || len(ch.lines) > ch.max {
			return fmt.Errorf("%s: need 1-%d lines, got %d", ch.name, ch.max, len(ch.lines))
		}
	}
	return nil
}

// Open configures every channel's direction and returns the port.
// Any failure here is fatal to the daemon.
func Open(cfg Config) (Port, error) {
	if cfg.Backend == BackendSim {
		return NewSimPort(), nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("port config: %w", err)
	}
	switch cfg.Backend {
	case BackendGPIOCDev, "":
		p, err := NewGPIOCDevPort(cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	case BackendPeriph:
		p, err := NewPeriphPort(cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("unknown port backend %q", cfg.Backend)
}

// Width returns the all-lines-set mask for n lines.
func Width(n int) logic.Sample {
	if n >= 8 {
		return 0xFF
	}
	return logic.Sample(1<<n) - 1
}

func pack(values []int) logic.Sample {
	var s logic.Sample
	for i, v := range values {
		if v != 0 {
			s |= 1 << i
		}
	}
	return s
}

func unpack(s logic.Sample, values []int) {
	for i := range values {
		values[i] = int(s>>i) & 1
	}
}
