package tasks

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/taskpanel/internal/logic"
	"github.com/sweeney/taskpanel/internal/mqtt"
	"github.com/sweeney/taskpanel/internal/port"
	"github.com/sweeney/taskpanel/internal/queue"
	"github.com/sweeney/taskpanel/internal/sched"
	"github.com/sweeney/taskpanel/internal/status"
)

// Display modes.
const (
	ModeIdle       = "IDLE"
	ModeActive     = "ACTIVE"
	ModeErrorBlink = "ERROR_BLINK"
)

// DisplayConfig configures the LED display task.
type DisplayConfig struct {
	Name   logic.TaskID
	Period time.Duration // pause after each displayed event
	Block  time.Duration // how long Receive waits before blinking
	Duty   time.Duration // blink half-period
	Lines  int           // LED count
}

// Display is the single queue consumer. It owns the LED output and the
// retained button and switch fields.
type Display struct {
	cfg     DisplayConfig
	q       *queue.Queue
	out     port.Writer
	counter *Counter
	pub     mqtt.Publisher
	tracker *status.Tracker
	now     func() time.Time
	logger  *log.Entry

	merger     *logic.Merger
	mode       string
	leds       logic.Sample
	errPattern logic.Sample
}

// NewDisplay creates the display task in the IDLE mode.
func NewDisplay(cfg DisplayConfig, q *queue.Queue, out port.Writer, counter *Counter, pub mqtt.Publisher, tracker *status.Tracker) *Display {
	return &Display{
		cfg:     cfg,
		q:       q,
		out:     out,
		counter: counter,
		pub:     pub,
		tracker: tracker,
		now:     time.Now,
		logger:  log.WithField("task", cfg.Name),
		merger:  logic.NewMerger(),
		mode:    ModeIdle,
	}
}

// Mode returns IDLE, ACTIVE or ERROR_BLINK.
func (d *Display) Mode() string { return d.mode }

// LEDs returns the last LED mask written.
func (d *Display) LEDs() logic.Sample { return d.leds }

// Step runs one iteration and returns how long to pause before the next.
// It only fails when ctx is done.
func (d *Display) Step(ctx context.Context) (time.Duration, error) {
	e, err := d.q.Receive(ctx, d.cfg.Block)
	d.tracker.SetQueue(d.q.Len(), d.q.Cap(), d.q.Stats())

	switch {
	case errors.Is(err, queue.ErrEmpty):
		return d.blink(), nil
	case err != nil:
		return 0, err
	}

	d.leds = d.merger.Apply(e)
	d.mode = ModeActive
	if err := d.out.Write(port.ChannelLEDs, d.leds); err != nil {
		d.logger.Printf("display: write error: %v", err)
	}
	d.logLEDs()

	n := d.counter.Inc()
	button, switches := d.merger.Retained()
	d.logger.Printf("display: %s -> leds=%04b (progress=%d)", e, d.leds, n)

	d.tracker.SetDisplay(d.leds, button, switches, d.mode)
	d.tracker.SetProgress(n)

	ev := mqtt.LEDEvent{
		Timestamp: d.now(),
		Event:     e,
		LEDs:      d.leds,
		Button:    button,
		Switches:  switches,
		Mode:      d.mode,
	}
	if err := d.pub.PublishLED(ev); err != nil {
		d.logger.Printf("display: publish error: %v", err)
	}
	return d.cfg.Period, nil
}

// blink shows the alarm pattern after a receive timeout: the inverse of the
// last pattern, which then becomes the new pattern.
func (d *Display) blink() time.Duration {
	width := port.Width(d.cfg.Lines)
	pattern := ^d.errPattern & width
	d.errPattern = pattern

	if d.mode != ModeErrorBlink {
		d.logger.Printf("display: queue empty for %v, blinking", d.cfg.Block)
	}
	d.mode = ModeErrorBlink
	if err := d.out.Write(port.ChannelLEDs, pattern); err != nil {
		d.logger.Printf("display: write error: %v", err)
	}

	button, switches := d.merger.Retained()
	d.tracker.SetDisplay(pattern, button, switches, d.mode)
	return d.cfg.Duty
}

func (d *Display) logLEDs() {
	for i := 0; i < d.cfg.Lines; i++ {
		bit := logic.Sample(1) << i
		if d.leds&bit != 0 {
			d.logger.Printf("display: LED %#x on", bit)
		} else {
			d.logger.Printf("display: LED %#x off", bit)
		}
	}
}

// Run consumes events until the task is deleted.
func (d *Display) Run(ctx context.Context, t *sched.Task) error {
	d.logger.Printf("display: waiting for events (period=%v block=%v)", d.cfg.Period, d.cfg.Block)
	for {
		wait, err := d.Step(ctx)
		if err != nil {
			return err
		}
		if err := t.Sleep(wait); err != nil {
			return err
		}
	}
}
