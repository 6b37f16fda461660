// Package status provides a thread-safe status tracker for the taskpanel daemon.
// Tasks write into it; HTTP handlers and heartbeat events read snapshots.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/taskpanel/internal/logic"
	"github.com/sweeney/taskpanel/internal/queue"
)

// NetworkInfo contains network state reported by the host.
type NetworkInfo struct {
	Type   string
	IP     string
	Status string
	SSID   string
}

// Config contains daemon configuration for display.
type Config struct {
	Backend     string
	PollMs      int64
	SettleMs    int64
	DisplayMs   int64
	BlockMs     int64
	QueueLen    int
	WatchdogMs  int64
	Threshold   uint64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	LEDs        logic.Sample
	Button      logic.Sample
	Switches    logic.Sample
	DisplayMode string
	Progress    uint64

	Tasks      map[string]string
	QueueLen   int
	QueueCap   int
	QueueStats queue.Stats

	Directives    int
	LastDirective string

	Watchdog   logic.Verdict
	WatchdogAt time.Time

	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime:   startTime,
			Config:      cfg,
			DisplayMode: "IDLE",
			Switches:    logic.InitialSwitches,
			QueueCap:    cfg.QueueLen,
		},
	}
}

// SetDisplay records the display task's latest output.
func (t *Tracker) SetDisplay(leds, button, switches logic.Sample, mode string) {
	t.mu.Lock()
	t.snap.LEDs = leds
	t.snap.Button = button
	t.snap.Switches = switches
	t.snap.DisplayMode = mode
	t.mu.Unlock()
}

// SetProgress records the consumer progress counter.
func (t *Tracker) SetProgress(n uint64) {
	t.mu.Lock()
	t.snap.Progress = n
	t.mu.Unlock()
}

// SetTasks replaces the task state table.
func (t *Tracker) SetTasks(states map[string]string) {
	cp := make(map[string]string, len(states))
	for k, v := range states {
		cp[k] = v
	}
	t.mu.Lock()
	t.snap.Tasks = cp
	t.mu.Unlock()
}

// SetQueue records queue depth and traffic.
func (t *Tracker) SetQueue(length, capacity int, stats queue.Stats) {
	t.mu.Lock()
	t.snap.QueueLen = length
	t.snap.QueueCap = capacity
	t.snap.QueueStats = stats
	t.mu.Unlock()
}

// RecordDirective counts a supervisor directive.
func (t *Tracker) RecordDirective(d logic.Directive) {
	t.mu.Lock()
	t.snap.Directives++
	t.snap.LastDirective = d.String()
	t.mu.Unlock()
}

// SetWatchdog records the liveness checkpoint outcome.
func (t *Tracker) SetWatchdog(v logic.Verdict, at time.Time) {
	t.mu.Lock()
	t.snap.Watchdog = v
	t.snap.WatchdogAt = at
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if t.snap.Tasks != nil {
		s.Tasks = make(map[string]string, len(t.snap.Tasks))
		for k, v := range t.snap.Tasks {
			s.Tasks[k] = v
		}
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
