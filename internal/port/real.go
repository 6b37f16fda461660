//go:build linux

package port

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/taskpanel/internal/logic"
)

const consumer = "taskpanel"

// GPIOCDevPort drives ports through the Linux GPIO character device.
type GPIOCDevPort struct {
	lines map[Channel]*gpiocdev.Lines
	width map[Channel]int
}

// NewGPIOCDevPort requests the button and switch lines as inputs with
// pull-down and the LED lines as outputs driven low.
func NewGPIOCDevPort(cfg Config) (*GPIOCDevPort, error) {
	p := &GPIOCDevPort{
		lines: make(map[Channel]*gpiocdev.Lines),
		width: make(map[Channel]int),
	}

	inOpts := []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullDown, gpiocdev.WithConsumer(consumer)}
	if cfg.ActiveLow {
		inOpts = append(inOpts, gpiocdev.AsActiveLow)
	}

	for _, req := range []struct {
		ch      Channel
		offsets []int
		opts    []gpiocdev.LineReqOption
	}{
		{ChannelButtons, cfg.Buttons, inOpts},
		{ChannelSwitches, cfg.Switches, inOpts},
		{ChannelLEDs, cfg.LEDs, []gpiocdev.LineReqOption{gpiocdev.AsOutput(make([]int, len(cfg.LEDs))...), gpiocdev.WithConsumer(consumer)}},
	} {
		l, err := gpiocdev.RequestLines(cfg.Chip, req.offsets, req.opts...)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("request %s lines %v: %w", req.ch, req.offsets, err)
		}
		p.lines[req.ch] = l
		p.width[req.ch] = len(req.offsets)
	}
	return p, nil
}

// Read returns the logical values of ch's lines.
func (p *GPIOCDevPort) Read(ch Channel) (logic.Sample, error) {
	l, ok := p.lines[ch]
	if !ok {
		return 0, fmt.Errorf("read %s: no such channel", ch)
	}
	values := make([]int, p.width[ch])
	if err := l.Values(values); err != nil {
		return 0, fmt.Errorf("read %s: %w", ch, err)
	}
	return pack(values), nil
}

// Write sets ch's lines from s.
func (p *GPIOCDevPort) Write(ch Channel, s logic.Sample) error {
	l, ok := p.lines[ch]
	if !ok {
		return fmt.Errorf("write %s: no such channel", ch)
	}
	values := make([]int, p.width[ch])
	unpack(s, values)
	if err := l.SetValues(values); err != nil {
		return fmt.Errorf("write %s: %w", ch, err)
	}
	return nil
}

// Close releases GPIO resources.
// Every line is reconfigured to input with pull-down (matching Pi boot
// defaults) before closing, so LEDs are not left driven.
func (p *GPIOCDevPort) Close() error {
	var errs []error
	for ch, l := range p.lines {
		if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s: %w", ch, err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", ch, err))
		}
	}
	p.lines = nil

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
