package tasks

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/taskpanel/internal/logic"
	"github.com/sweeney/taskpanel/internal/mqtt"
	"github.com/sweeney/taskpanel/internal/status"
)

// WatchdogTimerID identifies the liveness timer in its callback.
const WatchdogTimerID = 1

// Deleter tears down a task.
type Deleter interface {
	Delete(name logic.TaskID) error
}

// WatchdogConfig configures the liveness checkpoint.
type WatchdogConfig struct {
	Delay     time.Duration
	Threshold uint64
	// Delete names a task to tear down after the checkpoint; empty keeps
	// every task running.
	Delete logic.TaskID
}

// Watchdog is a single deferred check of the display progress counter.
// It fires once and never reschedules itself.
type Watchdog struct {
	cfg     WatchdogConfig
	counter *Counter
	tasks   Deleter
	pub     mqtt.Publisher
	tracker *status.Tracker
	now     func() time.Time

	mu      sync.Mutex
	timer   *time.Timer
	fired   bool
	verdict logic.Verdict
	done    chan struct{}
}

// NewWatchdog creates an unarmed watchdog.
func NewWatchdog(cfg WatchdogConfig, counter *Counter, tasks Deleter, pub mqtt.Publisher, tracker *status.Tracker) *Watchdog {
	return &Watchdog{
		cfg:     cfg,
		counter: counter,
		tasks:   tasks,
		pub:     pub,
		tracker: tracker,
		now:     time.Now,
		done:    make(chan struct{}),
	}
}

// Start arms the one-shot timer. Calling it again has no effect.
func (w *Watchdog) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil || w.fired {
		return
	}
	w.timer = time.AfterFunc(w.cfg.Delay, func() { w.Fire(WatchdogTimerID) })
	log.Printf("watchdog: armed for %v (threshold=%d)", w.cfg.Delay, w.cfg.Threshold)
}

// Stop disarms a pending timer. It reports whether the timer was stopped
// before firing.
func (w *Watchdog) Stop() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer == nil {
		return false
	}
	return w.timer.Stop()
}

// Fire runs the checkpoint as the timer callback for timerID. Only the
// first call has any effect; later calls return the recorded verdict.
func (w *Watchdog) Fire(timerID int) logic.Verdict {
	w.mu.Lock()
	if w.fired {
		v := w.verdict
		w.mu.Unlock()
		return v
	}
	w.fired = true

	count := w.counter.Load()
	v := logic.VerdictFail
	if timerID == WatchdogTimerID {
		v = logic.CheckProgress(count, w.cfg.Threshold)
	} else {
		log.Printf("watchdog: unexpected timer id %d", timerID)
	}
	w.verdict = v
	w.mu.Unlock()

	at := w.now()
	log.Printf("watchdog: %s (progress=%d threshold=%d)", v, count, w.cfg.Threshold)
	w.tracker.SetWatchdog(v, at)

	ev := mqtt.SystemEvent{
		Timestamp:  at,
		Event:      "WATCHDOG",
		Reason:     string(v),
		RawPayload: status.FormatStatusEvent(w.tracker.Snapshot(), "WATCHDOG", string(v)),
	}
	if err := w.pub.PublishSystem(ev); err != nil {
		log.Printf("watchdog: publish error: %v", err)
	}

	if w.cfg.Delete != "" {
		if err := w.tasks.Delete(w.cfg.Delete); err != nil {
			log.Printf("watchdog: delete %s: %v", w.cfg.Delete, err)
		} else {
			log.Printf("watchdog: deleted task %s", w.cfg.Delete)
		}
	}

	close(w.done)
	return v
}

// Verdict returns the checkpoint outcome, or VerdictPending before it fires.
func (w *Watchdog) Verdict() logic.Verdict {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.verdict
}

// Done is closed once the checkpoint has run.
func (w *Watchdog) Done() <-chan struct{} {
	return w.done
}
