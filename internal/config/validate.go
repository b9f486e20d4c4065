package config

import (
	"fmt"

	"github.com/cdleonard/numato-control/internal/numato"
	"github.com/cdleonard/numato-control/internal/transport"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	// ------------------------------------------------------------
	// DEVICE
	// ------------------------------------------------------------

	kind, err := transport.ParseKind(cfg.Device.Transport)
	if err != nil {
		return fmt.Errorf("device.transport: %w", err)
	}
	if kind != transport.KindLoopback && cfg.Device.Address == "" {
		return fmt.Errorf("device.address is required for %s transport", kind)
	}
	if _, err := numato.ParseResetMode(cfg.Device.Reset); err != nil {
		return fmt.Errorf("device.reset: %w", err)
	}
	if cfg.Device.TimeoutMs < 0 {
		return fmt.Errorf("device.timeout_ms must not be negative")
	}

	// ------------------------------------------------------------
	// POLL
	// ------------------------------------------------------------

	if cfg.Poll.IntervalMs < 0 {
		return fmt.Errorf("poll.interval_ms must not be negative")
	}
	if cfg.Poll.DebounceMs < 0 {
		return fmt.Errorf("poll.debounce_ms must not be negative")
	}
	for _, group := range []struct {
		name    string
		indexes []string
	}{
		{"poll.relays", cfg.Poll.Relays},
		{"poll.gpios", cfg.Poll.GPIOs},
		{"poll.adcs", cfg.Poll.ADCs},
	} {
		if err := validateIndexes(group.name, group.indexes); err != nil {
			return err
		}
	}

	// ------------------------------------------------------------
	// MQTT
	// ------------------------------------------------------------

	if cfg.MQTT.HeartbeatMs < 0 {
		return fmt.Errorf("mqtt.heartbeat_ms must not be negative")
	}
	if cfg.MQTT.BufferSize < 0 {
		return fmt.Errorf("mqtt.buffer_size must not be negative")
	}

	// ------------------------------------------------------------
	// MIRROR
	// ------------------------------------------------------------

	if cfg.Mirror.DebounceMs < 0 {
		return fmt.Errorf("mirror.debounce_ms must not be negative")
	}
	pins := make(map[int]bool)
	relays := make(map[string]int)
	for _, l := range cfg.Mirror.Lines {
		if l.Pin < 0 {
			return fmt.Errorf("mirror: pin %d must not be negative", l.Pin)
		}
		if pins[l.Pin] {
			return fmt.Errorf("mirror: pin %d listed more than once", l.Pin)
		}
		pins[l.Pin] = true

		if _, err := numato.ChannelIndex(l.Relay); err != nil {
			return fmt.Errorf("mirror: pin %d: relay %q: %w", l.Pin, l.Relay, err)
		}
		if prev, ok := relays[l.Relay]; ok {
			return fmt.Errorf("mirror: relay %q driven by pins %d and %d", l.Relay, prev, l.Pin)
		}
		relays[l.Relay] = l.Pin
	}

	return nil
}

func validateIndexes(field string, indexes []string) error {
	seen := make(map[string]bool, len(indexes))
	for _, idx := range indexes {
		if _, err := numato.ChannelIndex(idx); err != nil {
			return fmt.Errorf("%s: %q: %w", field, idx, err)
		}
		if seen[idx] {
			return fmt.Errorf("%s: %q listed more than once", field, idx)
		}
		seen[idx] = true
	}
	return nil
}
