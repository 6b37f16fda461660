//go:build linux

package port

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/sweeney/taskpanel/internal/logic"
)

// PeriphPort drives ports through periph.io, addressing lines by name
// ("GPIO17").
type PeriphPort struct {
	pins      map[Channel][]gpio.PinIO
	activeLow bool
}

// NewPeriphPort initialises the periph host drivers and configures every pin.
func NewPeriphPort(cfg Config) (*PeriphPort, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	p := &PeriphPort{
		pins:      make(map[Channel][]gpio.PinIO),
		activeLow: cfg.ActiveLow,
	}

	for _, req := range []struct {
		ch      Channel
		offsets []int
		output  bool
	}{
		{ChannelButtons, cfg.Buttons, false},
		{ChannelSwitches, cfg.Switches, false},
		{ChannelLEDs, cfg.LEDs, true},
	} {
		pins := make([]gpio.PinIO, 0, len(req.offsets))
		for _, n := range req.offsets {
			name := fmt.Sprintf("GPIO%d", n)
			pin := gpioreg.ByName(name)
			if pin == nil {
				return nil, fmt.Errorf("%s: invalid pin %s", req.ch, name)
			}
			var err error
			if req.output {
				err = pin.Out(gpio.Low)
			} else {
				err = pin.In(gpio.PullDown, gpio.NoEdge)
			}
			if err != nil {
				return nil, fmt.Errorf("%s: configure %s: %w", req.ch, name, err)
			}
			pins = append(pins, pin)
		}
		p.pins[req.ch] = pins
	}
	return p, nil
}

// Read returns the logical values of ch's pins.
func (p *PeriphPort) Read(ch Channel) (logic.Sample, error) {
	pins, ok := p.pins[ch]
	if !ok {
		return 0, fmt.Errorf("read %s: no such channel", ch)
	}
	values := make([]int, len(pins))
	for i, pin := range pins {
		if (pin.Read() == gpio.High) != p.activeLow {
			values[i] = 1
		}
	}
	return pack(values), nil
}

// Write sets ch's pins from s.
func (p *PeriphPort) Write(ch Channel, s logic.Sample) error {
	pins, ok := p.pins[ch]
	if !ok {
		return fmt.Errorf("write %s: no such channel", ch)
	}
	for i, pin := range pins {
		if err := pin.Out(gpio.Level(s&(1<<i) != 0)); err != nil {
			return fmt.Errorf("write %s: %s: %w", ch, pin.Name(), err)
		}
	}
	return nil
}

// Close drives the LEDs low and returns every pin to input with pull-down.
func (p *PeriphPort) Close() error {
	var errs []error
	for _, pin := range p.pins[ChannelLEDs] {
		if err := pin.Out(gpio.Low); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", pin.Name(), err))
		}
	}
	for _, pins := range p.pins {
		for _, pin := range pins {
			if err := pin.In(gpio.PullDown, gpio.NoEdge); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", pin.Name(), err))
			}
		}
	}
	p.pins = nil

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
