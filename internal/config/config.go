// Package config loads the numato-bridge YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cdleonard/numato-control/internal/numato"
	"github.com/cdleonard/numato-control/internal/transport"
)

type Config struct {
	Device DeviceConfig `yaml:"device"`
	Poll   PollConfig   `yaml:"poll"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	HTTP   HTTPConfig   `yaml:"http"`
	Mirror MirrorConfig `yaml:"mirror"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	Transport string `yaml:"transport"` // serial | network | loopback
	Address   string `yaml:"address"`   // port path, host[:port] or loop://
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Reset     string `yaml:"reset"`      // auto | always | never
	TimeoutMs int    `yaml:"timeout_ms"` // 0 = per-transport default
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs int      `yaml:"interval_ms"`
	DebounceMs int      `yaml:"debounce_ms"`
	Relays     []string `yaml:"relays"`
	GPIOs      []string `yaml:"gpios"`
	ADCs       []string `yaml:"adcs"`
}

// ---- MQTT ----

type MQTTConfig struct {
	Broker      string `yaml:"broker"` // empty disables MQTT
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	HeartbeatMs int    `yaml:"heartbeat_ms"` // 0 disables heartbeats
	BufferSize  int    `yaml:"buffer_size"`
}

// ---- HTTP ----

type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables the status server
}

// ---- MIRROR ----

// MirrorConfig copies host GPIO inputs onto board relays.
type MirrorConfig struct {
	Chip       string       `yaml:"chip"`
	DebounceMs int          `yaml:"debounce_ms"`
	Lines      []MirrorLine `yaml:"lines"`
}

type MirrorLine struct {
	Pin       int    `yaml:"pin"`
	Relay     string `yaml:"relay"`
	ActiveLow bool   `yaml:"active_low"`
}

// Enabled reports whether any mirror lines are configured.
func (m MirrorConfig) Enabled() bool { return len(m.Lines) > 0 }

// Load reads and decodes the YAML file at path. Unknown keys are rejected.
// The result is neither validated nor normalized.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config bytes. An empty document yields a zero Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// ControllerOptions converts the device section into numato.Options.
// It must be called after Validate.
func (d DeviceConfig) ControllerOptions(logger *log.Logger) (numato.Options, error) {
	kind, err := transport.ParseKind(d.Transport)
	if err != nil {
		return numato.Options{}, err
	}
	reset, err := numato.ParseResetMode(d.Reset)
	if err != nil {
		return numato.Options{}, err
	}
	return numato.Options{
		Kind:    kind,
		Address: d.Address,
		Credentials: transport.Credentials{
			Username: d.Username,
			Password: d.Password,
		},
		Reset:   reset,
		Timeout: time.Duration(d.TimeoutMs) * time.Millisecond,
		Logger:  logger,
	}, nil
}
