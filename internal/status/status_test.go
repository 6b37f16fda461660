package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/taskpanel/internal/logic"
	"github.com/sweeney/taskpanel/internal/queue"
)

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{PollMs: 100, SettleMs: 250, QueueLen: 10, Broker: "tcp://localhost:1883", HTTPAddr: ":80"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.PollMs != 100 {
		t.Errorf("Config.PollMs: got %d, want 100", snap.Config.PollMs)
	}
	if snap.DisplayMode != "IDLE" {
		t.Errorf("DisplayMode: got %q, want IDLE", snap.DisplayMode)
	}
	if snap.Switches != logic.InitialSwitches {
		t.Errorf("Switches: got %04b, want %04b", snap.Switches, logic.InitialSwitches)
	}
	if snap.QueueCap != 10 {
		t.Errorf("QueueCap: got %d, want 10", snap.QueueCap)
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestSetDisplayAndProgress(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetDisplay(0b0100, 0b0101, 0b0100, "ACTIVE")
	tr.SetProgress(7)

	snap := tr.Snapshot()
	if snap.LEDs != 0b0100 || snap.Button != 0b0101 || snap.Switches != 0b0100 {
		t.Errorf("unexpected display fields: %04b %04b %04b", snap.LEDs, snap.Button, snap.Switches)
	}
	if snap.DisplayMode != "ACTIVE" {
		t.Errorf("DisplayMode: got %q", snap.DisplayMode)
	}
	if snap.Progress != 7 {
		t.Errorf("Progress: got %d, want 7", snap.Progress)
	}
}

func TestSnapshotCopiesTasks(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	states := map[string]string{"display": "running"}
	tr.SetTasks(states)
	states["display"] = "mutated"

	snap := tr.Snapshot()
	if snap.Tasks["display"] != "running" {
		t.Errorf("tracker shares caller map: %q", snap.Tasks["display"])
	}
	snap.Tasks["display"] = "mutated"
	if tr.Snapshot().Tasks["display"] != "running" {
		t.Error("snapshot shares tracker map")
	}
}

func TestRecordDirectiveAndWatchdog(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.RecordDirective(logic.Suspend("display"))
	tr.RecordDirective(logic.Resume("display"))

	at := time.Date(2026, 1, 1, 0, 0, 10, 0, time.UTC)
	tr.SetWatchdog(logic.VerdictPass, at)

	snap := tr.Snapshot()
	if snap.Directives != 2 {
		t.Errorf("Directives: got %d, want 2", snap.Directives)
	}
	if snap.LastDirective != "RESUME display" {
		t.Errorf("LastDirective: got %q", snap.LastDirective)
	}
	if snap.Watchdog != logic.VerdictPass || !snap.WatchdogAt.Equal(at) {
		t.Errorf("unexpected watchdog: %s at %v", snap.Watchdog, snap.WatchdogAt)
	}
}

func TestSetQueueMQTTNetwork(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.SetQueue(3, 10, queue.Stats{Sent: 5, Received: 2})
	tr.SetMQTTConnected(true)
	tr.SetNetwork(&NetworkInfo{Type: "wifi", IP: "10.0.0.2", Status: "connected"})

	snap := tr.Snapshot()
	if snap.QueueLen != 3 || snap.QueueCap != 10 || snap.QueueStats.Sent != 5 {
		t.Errorf("unexpected queue: %d/%d %+v", snap.QueueLen, snap.QueueCap, snap.QueueStats)
	}
	if !snap.MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}
	if snap.Network == nil || snap.Network.IP != "10.0.0.2" {
		t.Errorf("unexpected network: %+v", snap.Network)
	}
}

func TestUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{StartTime: start, Now: start.Add(90 * time.Second)}
	if snap.Uptime() != 90*time.Second {
		t.Errorf("Uptime: got %v", snap.Uptime())
	}
}

func TestTrackerConcurrent(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.SetDisplay(logic.Sample(j), 0, 0, "ACTIVE")
				tr.SetProgress(uint64(j))
				tr.SetTasks(map[string]string{"t": "running"})
				_ = tr.Snapshot()
			}
		}(i)
	}
	wg.Wait()
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		LEDs:        0b0100,
		Button:      0b0101,
		Switches:    0b0110,
		DisplayMode: "ACTIVE",
		Progress:    12,
		Tasks:       map[string]string{"display": "running", "buttons": "suspended"},
		QueueLen:    1,
		QueueCap:    10,
		Watchdog:    logic.VerdictFail,
		WatchdogAt:  start.Add(10 * time.Second),
		StartTime:   start,
		Now:         start.Add(65 * time.Second),
		Config:      Config{Backend: "sim", Threshold: 9, Broker: "tcp://b:1883"},
	}

	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(snap), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	s := parsed.Status
	if s.LEDs != "0100" || s.Button != "0101" || s.Switches != "0110" {
		t.Errorf("unexpected nibbles: %s %s %s", s.LEDs, s.Button, s.Switches)
	}
	if s.Display != "ACTIVE" || s.Progress != 12 {
		t.Errorf("unexpected display/progress: %s %d", s.Display, s.Progress)
	}
	if s.Tasks["buttons"] != "suspended" {
		t.Errorf("unexpected tasks: %v", s.Tasks)
	}
	if s.Watchdog == nil || s.Watchdog.Verdict != "FAIL" {
		t.Errorf("unexpected watchdog: %+v", s.Watchdog)
	}
	if s.UptimeSeconds != 65 {
		t.Errorf("UptimeSeconds: got %d, want 65", s.UptimeSeconds)
	}
	if s.Event != "" || s.Reason != "" {
		t.Error("web JSON should not carry event/reason")
	}
	if s.Network != nil {
		t.Error("expected no network block")
	}
	if s.Config.Backend != "sim" || s.Config.Threshold != 9 {
		t.Errorf("unexpected config: %+v", s.Config)
	}
}

func TestFormatJSONPendingWatchdog(t *testing.T) {
	var raw map[string]map[string]any
	if err := json.Unmarshal(FormatJSON(Snapshot{}), &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := raw["status"]["watchdog"]; ok {
		t.Error("watchdog should be omitted before the checkpoint")
	}
	if _, ok := raw["status"]["tasks"]; !ok {
		t.Error("tasks should always be present")
	}
}

func TestFormatStatusEvent(t *testing.T) {
	snap := Snapshot{Now: time.Now(), StartTime: time.Now()}
	var parsed StatusJSON
	if err := json.Unmarshal(FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM"), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" || parsed.Status.Reason != "SIGTERM" {
		t.Errorf("unexpected event/reason: %q %q", parsed.Status.Event, parsed.Status.Reason)
	}
}
