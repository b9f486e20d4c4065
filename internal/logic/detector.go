package logic

import (
	"sort"
	"time"
)

// Detector tracks per-channel state and detects debounced transitions.
type Detector struct {
	debounceDuration time.Duration
	channels         map[string]*ChannelState
	baselined        bool
	startTime        time.Time
	eventCounts      EventCounts
	lastHeartbeat    time.Time
}

// NewDetector creates a new transition detector with the given debounce duration.
// A zero debounce reports every change on the sample it is first seen.
// The startTime is used for calculating uptime in heartbeat events.
func NewDetector(debounceDuration time.Duration, startTime time.Time) *Detector {
	return &Detector{
		debounceDuration: debounceDuration,
		channels:         make(map[string]*ChannelState),
		startTime:        startTime,
		lastHeartbeat:    startTime,
		eventCounts:      make(EventCounts),
	}
}

// Process takes a new input sample and returns any events that should be emitted.
// Events are only returned after every known channel has a baseline, and are
// ordered by channel name.
func (d *Detector) Process(input Input) []Event {
	names := make([]string, 0, len(input.Values))
	for name := range input.Values {
		names = append(names, name)
	}
	sort.Strings(names)

	var events []Event
	for _, name := range names {
		ch, ok := d.channels[name]
		if !ok {
			ch = &ChannelState{}
			d.channels[name] = ch
		}
		from := ch.Stable
		if d.processChannel(ch, input.Values[name], input.Time) {
			events = append(events, Event{
				Timestamp: input.Time,
				Channel:   name,
				From:      from,
				To:        ch.Stable,
			})
		}
	}

	if !d.baselined {
		if !d.allBaselined() {
			return nil // No events until baseline established
		}
		d.baselined = true
		return nil
	}

	for _, e := range events {
		d.eventCounts[e.Channel]++
	}
	return events
}

func (d *Detector) allBaselined() bool {
	if len(d.channels) == 0 {
		return false
	}
	for _, ch := range d.channels {
		if !ch.Baselined {
			return false
		}
	}
	return true
}

// processChannel handles debounce logic for a single channel.
// Returns true if a baselined channel changed its stable state.
func (d *Detector) processChannel(ch *ChannelState, newState State, now time.Time) bool {
	if !ch.Baselined {
		if ch.Pending != newState {
			// Start observing, or restart because the state changed
			ch.Pending = newState
			ch.PendingSince = now
		}
		if now.Sub(ch.PendingSince) >= d.debounceDuration {
			ch.Stable = newState
			ch.Baselined = true
			ch.Pending = ""
		}
		return false
	}

	if newState == ch.Stable {
		// No change from stable state, clear any pending
		ch.Pending = ""
		return false
	}

	if ch.Pending != newState {
		ch.Pending = newState
		ch.PendingSince = now
	}

	if now.Sub(ch.PendingSince) >= d.debounceDuration {
		ch.Stable = newState
		ch.Pending = ""
		return true
	}
	return false
}

// IsBaselined returns whether the detector has established a baseline.
func (d *Detector) IsBaselined() bool {
	return d.baselined
}

// CurrentState returns a copy of the stable state of every baselined channel.
func (d *Detector) CurrentState() map[string]State {
	out := make(map[string]State, len(d.channels))
	for name, ch := range d.channels {
		if ch.Baselined {
			out[name] = ch.Stable
		}
	}
	return out
}

// State returns the stable state of one channel, or "" if it has no baseline.
func (d *Detector) State(channel string) State {
	if ch, ok := d.channels[channel]; ok && ch.Baselined {
		return ch.Stable
	}
	return ""
}

// EventCountsSnapshot returns a copy of the per-channel transition counts.
func (d *Detector) EventCountsSnapshot() EventCounts {
	out := make(EventCounts, len(d.eventCounts))
	for k, v := range d.eventCounts {
		out[k] = v
	}
	return out
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if not yet baselined, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if !d.baselined {
		return nil
	}

	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Counts:    d.EventCountsSnapshot(),
	}
}
