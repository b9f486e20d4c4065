// Package status provides a thread-safe status tracker for the numato-bridge
// daemon. It is read by the HTTP handlers and by the MQTT heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/cdleonard/numato-control/internal/logic"
)

// Board describes the connected device.
type Board struct {
	Version   string
	Transport string
	Address   string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	DebounceMs  int64
	HeartbeatMs int64
	Broker      string
	TopicPrefix string
	HTTPAddr    string
}

// Snapshot is a point-in-time view of daemon state.
// Its maps are private copies and safe to use after the lock is released.
type Snapshot struct {
	Board         Board
	Channels      map[string]logic.State
	ADC           map[string]int
	Baselined     bool
	Counts        logic.EventCounts
	LastError     string
	LastErrorTime time.Time
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
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
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// SetBoard records the identity of the connected board.
func (t *Tracker) SetBoard(b Board) {
	t.mu.Lock()
	t.snap.Board = b
	t.mu.Unlock()
}

// Update sets channel states, baseline status, and event counts.
// Called from runLoop after every poll.
func (t *Tracker) Update(channels map[string]logic.State, baselined bool, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.Channels = copyMap(channels)
	t.snap.Baselined = baselined
	t.snap.Counts = copyMap(counts)
	t.mu.Unlock()
}

// SetADC replaces the latest analog readings.
func (t *Tracker) SetADC(values map[string]int) {
	t.mu.Lock()
	t.snap.ADC = copyMap(values)
	t.mu.Unlock()
}

// SetError records the most recent board error. A nil err is ignored so the
// last failure stays visible after recovery.
func (t *Tracker) SetError(err error, at time.Time) {
	if err == nil {
		return
	}
	t.mu.Lock()
	t.snap.LastError = err.Error()
	t.snap.LastErrorTime = at
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Channels = copyMap(t.snap.Channels)
	s.ADC = copyMap(t.snap.ADC)
	s.Counts = copyMap(t.snap.Counts)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

func copyMap[M ~map[K]V, K comparable, V any](m M) M {
	if m == nil {
		return nil
	}
	out := make(M, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
