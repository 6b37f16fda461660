package tasks

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/taskpanel/internal/logic"
	"github.com/sweeney/taskpanel/internal/mqtt"
	"github.com/sweeney/taskpanel/internal/port"
	"github.com/sweeney/taskpanel/internal/sched"
	"github.com/sweeney/taskpanel/internal/status"
)

// Controller carries out directives against running tasks.
type Controller interface {
	Apply(d logic.Directive) error
	States() map[string]sched.State
}

// SupervisorConfig configures the supervisor task.
type SupervisorConfig struct {
	Name   logic.TaskID
	Poll   time.Duration
	Settle time.Duration
}

// Outcome is one directive and the result of applying it.
type Outcome struct {
	Group     logic.Group
	Sample    logic.Sample
	Directive logic.Directive
	Err       error
}

// SupervisorTask watches both input groups on its own and turns each
// debounced change into suspend and resume directives.
type SupervisorTask struct {
	cfg     SupervisorConfig
	in      port.Reader
	rules   *logic.Supervisor
	ctl     Controller
	pub     mqtt.Publisher
	tracker *status.Tracker
	now     func() time.Time
	logger  *log.Entry

	groups []watchedGroup
}

type watchedGroup struct {
	group    logic.Group
	channel  port.Channel
	debounce *logic.Debouncer
}

// NewSupervisorTask creates a supervisor task applying rules through ctl.
func NewSupervisorTask(cfg SupervisorConfig, in port.Reader, rules *logic.Supervisor, ctl Controller, pub mqtt.Publisher, tracker *status.Tracker) *SupervisorTask {
	return &SupervisorTask{
		cfg:     cfg,
		in:      in,
		rules:   rules,
		ctl:     ctl,
		pub:     pub,
		tracker: tracker,
		now:     time.Now,
		logger:  log.WithField("task", cfg.Name),
		groups: []watchedGroup{
			{logic.GroupButtons, port.ChannelButtons, logic.NewDebouncer(cfg.Settle, logic.AcceptAll, 0)},
			{logic.GroupSwitches, port.ChannelSwitches, logic.NewDebouncer(cfg.Settle, logic.AcceptAll, 0)},
		},
	}
}

// Step samples both groups at now and applies the directives of every
// confirmed change, buttons first.
func (s *SupervisorTask) Step(now time.Time) []Outcome {
	var out []Outcome
	for _, g := range s.groups {
		raw, err := s.in.Read(g.channel)
		if err != nil {
			s.logger.Printf("supervisor: read %s: %v", g.channel, err)
			continue
		}
		sample, ok := g.debounce.Observe(raw, now)
		if !ok {
			continue
		}

		ch := g.channel
		resample := func() (logic.Sample, error) { return s.in.Read(ch) }
		for _, d := range s.rules.Evaluate(g.group, sample, resample) {
			o := Outcome{Group: g.group, Sample: sample, Directive: d, Err: s.ctl.Apply(d)}
			s.report(o, now)
			out = append(out, o)
		}
	}

	s.tracker.SetTasks(stateStrings(s.ctl.States()))
	return out
}

func (s *SupervisorTask) report(o Outcome, now time.Time) {
	if o.Err != nil {
		s.logger.Printf("supervisor: %s=%04b: %s failed: %v", o.Group, o.Sample, o.Directive, o.Err)
	} else {
		s.logger.Printf("supervisor: %s=%04b: %s", o.Group, o.Sample, o.Directive)
	}
	s.tracker.RecordDirective(o.Directive)

	ev := mqtt.DirectiveEvent{
		Timestamp: now,
		Group:     o.Group,
		Sample:    o.Sample,
		Directive: o.Directive,
		Err:       o.Err,
	}
	if err := s.pub.PublishDirective(ev); err != nil {
		s.logger.Printf("supervisor: publish error: %v", err)
	}
}

// Run polls until the task is deleted.
func (s *SupervisorTask) Run(ctx context.Context, t *sched.Task) error {
	for {
		s.Step(s.now())
		if err := t.Sleep(s.cfg.Poll); err != nil {
			return err
		}
	}
}

func stateStrings(states map[string]sched.State) map[string]string {
	out := make(map[string]string, len(states))
	for name, st := range states {
		out[name] = string(st)
	}
	return out
}
