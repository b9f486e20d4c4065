package web

import (
	"fmt"
	"html/template"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/cdleonard/numato-control/internal/status"
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
	"stateClass": func(s string) string {
		switch s {
		case "ON", "HIGH":
			return "on"
		case "OFF", "LOW":
			return "off"
		case "ERROR":
			return "error"
		}
		return "unknown"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Numato Bridge</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.error { color: red; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Numato Bridge</h1>

<h2>Board</h2>
<table>
<tr><th>Version</th><td>{{if .Board.Version}}{{.Board.Version}}{{else}}unknown{{end}}</td></tr>
<tr><th>Transport</th><td>{{.Board.Transport}}</td></tr>
<tr><th>Address</th><td>{{.Board.Address}}</td></tr>
{{if .LastError}}<tr><th>Last error</th><td class="error">{{.LastError}} ({{.LastErrorTime.UTC.Format "2006-01-02T15:04:05Z"}})</td></tr>{{end}}
</table>

<h2>Channels</h2>
<table>
{{range .Rows}}<tr><th>{{.Name}}</th><td class="{{stateClass .State}}">{{.State}}</td><td>{{.Count}}</td></tr>
{{else}}<tr><td colspan="3">no channels polled</td></tr>
{{end}}<tr><th>Ready</th><td colspan="2">{{if .Baselined}}yes{{else}}no{{end}}</td></tr>
</table>
{{if .Analog}}
<h2>Analog</h2>
<table>
{{range .Analog}}<tr><th>{{.Name}}</th><td>{{.Value}}</td></tr>
{{end}}</table>
{{end}}
<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
<tr><th>Topic prefix</th><td>{{.Config.TopicPrefix}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

type channelRow struct {
	Name  string
	State string
	Count int
}

type analogRow struct {
	Name  string
	Value int
}

func renderHTML(w io.Writer, snap status.Snapshot) {
	rows := make([]channelRow, 0, len(snap.Channels))
	for name, st := range snap.Channels {
		s := string(st)
		if s == "" {
			s = "UNKNOWN"
		}
		rows = append(rows, channelRow{Name: name, State: s, Count: snap.Counts[name]})
	}
	sort.Slice(rows, func(i, j int) bool { return channelLess(rows[i].Name, rows[j].Name) })

	analog := make([]analogRow, 0, len(snap.ADC))
	for name, v := range snap.ADC {
		analog = append(analog, analogRow{Name: name, Value: v})
	}
	sort.Slice(analog, func(i, j int) bool { return channelLess(analog[i].Name, analog[j].Name) })

	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Rows   []channelRow
		Analog []analogRow
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Rows:     rows,
		Analog:   analog,
	}
	indexTmpl.Execute(w, data)
}

// channelLess orders relays before gpios, then by name length so relay10
// follows relay9.
func channelLess(a, b string) bool {
	ra, rb := strings.HasPrefix(a, "relay"), strings.HasPrefix(b, "relay")
	if ra != rb {
		return ra
	}
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
