// Package logic contains pure change-detection logic for board and host
// channel states. This package has NO external dependencies (no serial, GPIO,
// MQTT, OS, or time.Sleep). Time is always injectable via time.Time parameters.
package logic

import "time"

// State is the logical state of a channel, e.g. "ON", "OFF", "HIGH".
type State string

const (
	StateOn    State = "ON"
	StateOff   State = "OFF"
	StateHigh  State = "HIGH"
	StateLow   State = "LOW"
	StateError State = "ERROR"
)

// BoolState maps true to StateOn and false to StateOff.
func BoolState(b bool) State {
	if b {
		return StateOn
	}
	return StateOff
}

// Event represents a debounced state transition on one channel.
type Event struct {
	Timestamp time.Time
	Channel   string
	From      State
	To        State
}

// ChannelState tracks debounce state for a single channel.
type ChannelState struct {
	// Current stable (debounced) state
	Stable State
	// Pending state during debounce
	Pending State
	// Time when pending state was first observed
	PendingSince time.Time
	// Whether we have established a baseline
	Baselined bool
}

// Input is one sample of channel states, keyed by channel name.
// Channels absent from an input keep their previous state.
type Input struct {
	Values map[string]State
	Time   time.Time
}

// EventCounts holds the number of transitions per channel since startup.
type EventCounts map[string]int

// Total returns the sum of all channel counts.
func (c EventCounts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
