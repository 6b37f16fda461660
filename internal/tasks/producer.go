package tasks

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/taskpanel/internal/logic"
	"github.com/sweeney/taskpanel/internal/port"
	"github.com/sweeney/taskpanel/internal/queue"
	"github.com/sweeney/taskpanel/internal/sched"
)

// ProducerConfig configures one input producer.
type ProducerConfig struct {
	Name   logic.TaskID
	Group  logic.Group
	Poll   time.Duration
	Settle time.Duration
	Block  time.Duration // how long Send may wait for a free slot
	Policy logic.Policy
	Lines  int // input width, used for the all-pressed pattern
}

// Producer polls one input group, debounces it and queues each confirmed
// change as an encoded event.
type Producer struct {
	cfg      ProducerConfig
	channel  port.Channel
	in       port.Reader
	q        *queue.Queue
	debounce *logic.Debouncer
	now      func() time.Time

	sent    int
	dropped int
}

// NewProducer creates a producer for cfg.Group reading from in.
func NewProducer(cfg ProducerConfig, in port.Reader, q *queue.Queue) *Producer {
	ch := port.ChannelButtons
	if cfg.Group == logic.GroupSwitches {
		ch = port.ChannelSwitches
	}
	return &Producer{
		cfg:      cfg,
		channel:  ch,
		in:       in,
		q:        q,
		debounce: logic.NewDebouncer(cfg.Settle, cfg.Policy, port.Width(cfg.Lines)),
		now:      time.Now,
	}
}

// encode places a confirmed sample in this producer's nibble.
func (p *Producer) encode(s logic.Sample) logic.Event {
	if p.cfg.Group == logic.GroupSwitches {
		return logic.Encode(0, s)
	}
	return logic.Encode(s, 0)
}

// Step takes one sample at now. When a change is confirmed it is queued and
// returned. A full queue drops the event and returns queue.ErrFull.
func (p *Producer) Step(ctx context.Context, now time.Time) (logic.Event, bool, error) {
	raw, err := p.in.Read(p.channel)
	if err != nil {
		return 0, false, err
	}
	// Lines above the nibble have no place in an event.
	raw &= logic.NibbleMask

	s, ok := p.debounce.Observe(raw, now)
	if !ok {
		return 0, false, nil
	}

	e := p.encode(s)
	if err := p.q.Send(ctx, e, p.cfg.Block); err != nil {
		if errors.Is(err, queue.ErrFull) {
			p.dropped++
		}
		return e, true, err
	}
	p.sent++
	return e, true, nil
}

// Run polls until the task is deleted.
func (p *Producer) Run(ctx context.Context, t *sched.Task) error {
	logger := log.WithField("task", p.cfg.Name)
	logger.Printf("producer: polling %s every %v (settle=%v policy=%s)", p.channel, p.cfg.Poll, p.cfg.Settle, p.cfg.Policy)

	for {
		e, ok, err := p.Step(ctx, p.now())
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, queue.ErrFull):
			logger.Printf("producer: queue full, dropped %s", e)
		case err != nil:
			logger.Printf("producer: read error: %v", err)
		case ok:
			logger.Printf("producer: sent %s", e)
		}

		if err := t.Sleep(p.cfg.Poll); err != nil {
			return err
		}
	}
}

// Sent returns how many events were queued.
func (p *Producer) Sent() int { return p.sent }

// Dropped returns how many confirmed events were lost to a full queue.
func (p *Producer) Dropped() int { return p.dropped }
