package status

import (
	"encoding/json"
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
	Board         BoardJSON         `json:"board"`
	Channels      map[string]string `json:"channels"`
	ADC           map[string]int    `json:"adc,omitempty"`
	Ready         bool              `json:"ready"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	StartTime     string            `json:"start_time"`
	Timestamp     string            `json:"timestamp"`
	MQTT          MQTTStatus        `json:"mqtt"`
	Counts        map[string]int    `json:"event_counts"`
	LastError     *ErrorJSON        `json:"last_error,omitempty"`
	Config        ConfigJSON        `json:"config"`
}

// BoardJSON identifies the connected board.
type BoardJSON struct {
	Version   string `json:"version"`
	Transport string `json:"transport"`
	Address   string `json:"address"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ErrorJSON is the most recent board error.
type ErrorJSON struct {
	Message string `json:"message"`
	At      string `json:"at"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	DebounceMs  int64  `json:"debounce_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	TopicPrefix string `json:"topic_prefix"`
	HTTPAddr    string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	channels := make(map[string]string, len(snap.Channels))
	for name, st := range snap.Channels {
		if st == "" {
			st = "UNKNOWN"
		}
		channels[name] = string(st)
	}
	counts := make(map[string]int, len(snap.Counts))
	for name, n := range snap.Counts {
		counts[name] = n
	}

	inner := StatusInner{
		Board: BoardJSON{
			Version:   snap.Board.Version,
			Transport: snap.Board.Transport,
			Address:   snap.Board.Address,
		},
		Channels:      channels,
		ADC:           snap.ADC,
		Ready:         snap.Baselined,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts:        counts,
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			DebounceMs:  snap.Config.DebounceMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			TopicPrefix: snap.Config.TopicPrefix,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
	if snap.LastError != "" {
		inner.LastError = &ErrorJSON{
			Message: snap.LastError,
			At:      snap.LastErrorTime.UTC().Format(time.RFC3339),
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
