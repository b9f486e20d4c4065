// Package mqtt publishes board state changes to MQTT and receives relay and
// GPIO commands, with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cdleonard/numato-control/internal/logic"
)

// DefaultTopicPrefix is the topic root used when none is configured.
const DefaultTopicPrefix = "numato/board"

// EventsTopic is the topic for channel state changes under prefix.
func EventsTopic(prefix string) string { return prefix + "/events" }

// SystemTopic is the topic for lifecycle events under prefix.
func SystemTopic(prefix string) string { return prefix + "/system" }

// CommandFilter is the subscription filter matching every command topic,
// e.g. numato/board/relay/0/set.
func CommandFilter(prefix string) string { return prefix + "/+/+/set" }

// Publisher publishes events to MQTT and delivers incoming commands.
type Publisher interface {
	// Publish sends a channel state change to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Subscribe registers handler for commands arriving on the command
	// topics. The handler may be called from another goroutine.
	Subscribe(handler func(Command)) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Numato EventPayload `json:"numato"`
}

// EventPayload contains the state change details.
type EventPayload struct {
	Timestamp string `json:"timestamp"`
	Channel   string `json:"channel"`
	From      string `json:"from"`
	To        string `json:"to"`
}

// FormatPayload creates the JSON payload for a state change.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Numato: EventPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Channel:   event.Channel,
			From:      string(event.From),
			To:        string(event.To),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// Command kinds.
const (
	CommandRelay = "relay"
	CommandGPIO  = "gpio"
)

// Command is a write request received on a command topic.
type Command struct {
	Kind  string // CommandRelay or CommandGPIO
	Index string
	On    bool
}

// ParseCommand decodes a message on <prefix>/<kind>/<index>/set.
// Accepted payloads (any case, surrounding space ignored): on, off, true,
// false, 1, 0, high, low, set, clear.
func ParseCommand(prefix, topic string, payload []byte) (Command, error) {
	rest, ok := strings.CutPrefix(topic, prefix+"/")
	if !ok {
		return Command{}, fmt.Errorf("topic %q outside prefix %q", topic, prefix)
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[2] != "set" {
		return Command{}, fmt.Errorf("topic %q is not a command topic", topic)
	}
	kind, index := parts[0], parts[1]
	if kind != CommandRelay && kind != CommandGPIO {
		return Command{}, fmt.Errorf("unknown command kind %q", kind)
	}

	var on bool
	switch strings.ToLower(strings.TrimSpace(string(payload))) {
	case "on", "true", "1", "high", "set":
		on = true
	case "off", "false", "0", "low", "clear":
		on = false
	default:
		return Command{}, fmt.Errorf("unknown command payload %q", payload)
	}
	return Command{Kind: kind, Index: index, On: on}, nil
}
