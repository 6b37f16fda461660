package status

import (
	"encoding/json"
	"fmt"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string            `json:"event,omitempty"`
	Reason        string            `json:"reason,omitempty"`
	LEDs          string            `json:"leds"`
	Button        string            `json:"button"`
	Switches      string            `json:"switches"`
	Display       string            `json:"display"`
	Progress      uint64            `json:"progress"`
	Tasks         map[string]string `json:"tasks"`
	Queue         QueueJSON         `json:"queue"`
	Directives    int               `json:"directives"`
	LastDirective string            `json:"last_directive,omitempty"`
	Watchdog      *WatchdogJSON     `json:"watchdog,omitempty"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	StartTime     string            `json:"start_time"`
	Timestamp     string            `json:"timestamp"`
	MQTT          MQTTStatus        `json:"mqtt"`
	Network       *NetworkJSON      `json:"network,omitempty"`
	Config        ConfigJSON        `json:"config"`
}

// QueueJSON reports queue depth and traffic.
type QueueJSON struct {
	Length   int    `json:"length"`
	Capacity int    `json:"capacity"`
	Sent     uint64 `json:"sent"`
	Received uint64 `json:"received"`
	Full     uint64 `json:"full"`
	Empty    uint64 `json:"empty"`
}

// WatchdogJSON reports the liveness checkpoint.
type WatchdogJSON struct {
	Verdict string `json:"verdict"`
	At      string `json:"at"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type   string `json:"type"`
	IP     string `json:"ip"`
	Status string `json:"status"`
	SSID   string `json:"ssid,omitempty"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Backend     string `json:"backend"`
	PollMs      int64  `json:"poll_ms"`
	SettleMs    int64  `json:"settle_ms"`
	DisplayMs   int64  `json:"display_ms"`
	BlockMs     int64  `json:"block_ms"`
	WatchdogMs  int64  `json:"watchdog_ms"`
	Threshold   uint64 `json:"threshold"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
}

func nibble(v uint8) string {
	return fmt.Sprintf("%04b", v)
}

func buildInner(snap Snapshot) StatusInner {
	tasks := snap.Tasks
	if tasks == nil {
		tasks = map[string]string{}
	}

	inner := StatusInner{
		LEDs:          nibble(uint8(snap.LEDs)),
		Button:        nibble(uint8(snap.Button)),
		Switches:      nibble(uint8(snap.Switches)),
		Display:       snap.DisplayMode,
		Progress:      snap.Progress,
		Tasks:         tasks,
		Directives:    snap.Directives,
		LastDirective: snap.LastDirective,
		Queue: QueueJSON{
			Length:   snap.QueueLen,
			Capacity: snap.QueueCap,
			Sent:     snap.QueueStats.Sent,
			Received: snap.QueueStats.Received,
			Full:     snap.QueueStats.Full,
			Empty:    snap.QueueStats.Empty,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			Backend:     snap.Config.Backend,
			PollMs:      snap.Config.PollMs,
			SettleMs:    snap.Config.SettleMs,
			DisplayMs:   snap.Config.DisplayMs,
			BlockMs:     snap.Config.BlockMs,
			WatchdogMs:  snap.Config.WatchdogMs,
			Threshold:   snap.Config.Threshold,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
	if snap.Watchdog != "" {
		inner.Watchdog = &WatchdogJSON{
			Verdict: string(snap.Watchdog),
			At:      snap.WatchdogAt.UTC().Format(time.RFC3339),
		}
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:   snap.Network.Type,
			IP:     snap.Network.IP,
			Status: snap.Network.Status,
			SSID:   snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
