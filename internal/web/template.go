package web

import (
	"fmt"
	"html/template"
	"io"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/taskpanel/internal/logic"
	"github.com/sweeney/taskpanel/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"bits": func(s logic.Sample) string {
		return fmt.Sprintf("%04b", uint8(s))
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Task Panel</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.led { display: inline-block; width: 12px; height: 12px; border-radius: 50%; margin-right: 4px; background: #ccc; }
.led.lit { background: green; }
.running, .PASS, .connected { color: green; }
.suspended, .ERROR_BLINK { color: orange; font-weight: bold; }
.deleted, .exited, .FAIL, .disconnected { color: red; }
</style>
</head>
<body>
<h1>Task Panel</h1>

<h2>Display</h2>
<table>
<tr><th>LEDs</th><td>{{range .LEDLit}}<span class="led{{if .}} lit{{end}}"></span>{{end}} {{bits .LEDs}}</td></tr>
<tr><th>Buttons</th><td>{{bits .Button}}</td></tr>
<tr><th>Switches</th><td>{{bits .Switches}}</td></tr>
<tr><th>Mode</th><td class="{{.DisplayMode}}">{{.DisplayMode}}</td></tr>
<tr><th>Progress</th><td>{{.Progress}}</td></tr>
</table>

<h2>Tasks</h2>
<table>
{{range .TaskRows}}<tr><th>{{.Name}}</th><td class="{{.State}}">{{.State}}</td></tr>
{{end}}<tr><th>Directives</th><td>{{.Directives}}{{if .LastDirective}} (last: {{.LastDirective}}){{end}}</td></tr>
<tr><th>Watchdog</th><td{{if .Watchdog}} class="{{.Watchdog}}"{{end}}>{{if .Watchdog}}{{.Watchdog}} at {{.WatchdogAt.UTC.Format "15:04:05Z"}}{{else}}pending{{end}}</td></tr>
</table>

<h2>Queue</h2>
<table>
<tr><th>Depth</th><td>{{.QueueLen}} / {{.QueueCap}}</td></tr>
<tr><th>Sent / Received</th><td>{{.QueueStats.Sent}} / {{.QueueStats.Received}}</td></tr>
<tr><th>Full / Empty timeouts</th><td>{{.QueueStats.Full}} / {{.QueueStats.Empty}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}{{if .Config.Broker}} ({{.Config.Broker}}){{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}) {{.Network.IP}}</td></tr>{{end}}
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Backend</th><td>{{.Config.Backend}}</td></tr>
<tr><th>Poll / Settle</th><td>{{.Config.PollMs}}ms / {{.Config.SettleMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

type taskRow struct {
	Name  string
	State string
}

func renderHTML(w io.Writer, snap status.Snapshot) {
	rows := make([]taskRow, 0, len(snap.Tasks))
	for name, st := range snap.Tasks {
		rows = append(rows, taskRow{Name: name, State: st})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })

	// LED 0 is drawn rightmost, matching the bit string.
	lit := make([]bool, 4)
	for i := range lit {
		lit[i] = snap.LEDs&(1<<(3-i)) != 0
	}

	data := struct {
		status.Snapshot
		TaskRows []taskRow
		LEDLit   []bool
	}{
		Snapshot: snap,
		TaskRows: rows,
		LEDLit:   lit,
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("web: render index: %v", err)
	}
}
