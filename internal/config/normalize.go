package config

import (
	"strings"

	"github.com/cdleonard/numato-control/internal/gpio"
	"github.com/cdleonard/numato-control/internal/mqtt"
)

// Defaults applied by Normalize.
const (
	DefaultPollIntervalMs   = 1000
	DefaultClientID         = "numato-bridge"
	DefaultMirrorDebounceMs = 50
)

// Normalize applies post-validation defaults.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Device.Transport = strings.ToLower(strings.TrimSpace(cfg.Device.Transport))
	if cfg.Device.Transport == "" {
		cfg.Device.Transport = "serial"
	}
	if cfg.Device.Reset == "" {
		cfg.Device.Reset = "auto"
	}

	if cfg.Poll.IntervalMs == 0 {
		cfg.Poll.IntervalMs = DefaultPollIntervalMs
	}

	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = DefaultClientID
	}
	cfg.MQTT.TopicPrefix = strings.TrimSuffix(cfg.MQTT.TopicPrefix, "/")
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = mqtt.DefaultTopicPrefix
	}
	if cfg.MQTT.BufferSize == 0 {
		cfg.MQTT.BufferSize = mqtt.DefaultBufferSize
	}

	if cfg.Mirror.Enabled() {
		if cfg.Mirror.Chip == "" {
			cfg.Mirror.Chip = gpio.DefaultChip
		}
		if cfg.Mirror.DebounceMs == 0 {
			cfg.Mirror.DebounceMs = DefaultMirrorDebounceMs
		}
	}
}
