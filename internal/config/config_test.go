package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/cdleonard/numato-control/internal/numato"
	"github.com/cdleonard/numato-control/internal/transport"
)

const sampleYAML = `
device:
  transport: network
  address: 192.168.0.50
  username: admin
  password: secret
  timeout_ms: 500
poll:
  interval_ms: 250
  relays: ["0", "1", "A"]
  gpios: ["0"]
  adcs: ["2"]
mqtt:
  broker: tcp://localhost:1883
  topic_prefix: lab/numato/
  heartbeat_ms: 60000
http:
  addr: ":8080"
mirror:
  lines:
    - pin: 17
      relay: "2"
    - pin: 27
      relay: "3"
      active_low: true
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "numato.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeFile(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := &Config{
		Device: DeviceConfig{
			Transport: "network",
			Address:   "192.168.0.50",
			Username:  "admin",
			Password:  "secret",
			TimeoutMs: 500,
		},
		Poll: PollConfig{
			IntervalMs: 250,
			Relays:     []string{"0", "1", "A"},
			GPIOs:      []string{"0"},
			ADCs:       []string{"2"},
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			TopicPrefix: "lab/numato/",
			HeartbeatMs: 60000,
		},
		HTTP: HTTPConfig{Addr: ":8080"},
		Mirror: MirrorConfig{
			Lines: []MirrorLine{
				{Pin: 17, Relay: "2"},
				{Pin: 27, Relay: "3", ActiveLow: true},
			},
		},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("device:\n  transprot: serial\n"))
	if err == nil {
		t.Fatal("expected error for misspelled key")
	}
	if !strings.Contains(err.Error(), "transprot") {
		t.Errorf("error should name the unknown key: %v", err)
	}
}

func TestParseEmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(&Config{}, cfg); diff != "" {
		t.Errorf("expected zero config (-want +got):\n%s", diff)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := &Config{
		Device: DeviceConfig{Transport: " Serial ", Address: "/dev/ttyACM0"},
		Mirror: MirrorConfig{Lines: []MirrorLine{{Pin: 4, Relay: "0"}}},
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	Normalize(cfg)

	if cfg.Device.Transport != "serial" {
		t.Errorf("Transport: got %q, want serial", cfg.Device.Transport)
	}
	if cfg.Device.Reset != "auto" {
		t.Errorf("Reset: got %q, want auto", cfg.Device.Reset)
	}
	if cfg.Poll.IntervalMs != DefaultPollIntervalMs {
		t.Errorf("IntervalMs: got %d", cfg.Poll.IntervalMs)
	}
	if cfg.MQTT.TopicPrefix != "numato/board" {
		t.Errorf("TopicPrefix: got %q", cfg.MQTT.TopicPrefix)
	}
	if cfg.MQTT.ClientID != DefaultClientID {
		t.Errorf("ClientID: got %q", cfg.MQTT.ClientID)
	}
	if cfg.MQTT.BufferSize != 100 {
		t.Errorf("BufferSize: got %d, want 100", cfg.MQTT.BufferSize)
	}
	if cfg.MQTT.HeartbeatMs != 0 {
		t.Errorf("HeartbeatMs: got %d, want 0 (disabled)", cfg.MQTT.HeartbeatMs)
	}
	if cfg.Mirror.Chip != "gpiochip0" {
		t.Errorf("Mirror.Chip: got %q", cfg.Mirror.Chip)
	}
	if cfg.Mirror.DebounceMs != DefaultMirrorDebounceMs {
		t.Errorf("Mirror.DebounceMs: got %d", cfg.Mirror.DebounceMs)
	}
}

func TestNormalizeTrimsTopicSlash(t *testing.T) {
	cfg := &Config{MQTT: MQTTConfig{TopicPrefix: "lab/numato/"}}
	Normalize(cfg)
	if cfg.MQTT.TopicPrefix != "lab/numato" {
		t.Errorf("TopicPrefix: got %q", cfg.MQTT.TopicPrefix)
	}
}

func TestNormalizeLeavesMirrorOff(t *testing.T) {
	cfg := &Config{}
	Normalize(cfg)
	if cfg.Mirror.Chip != "" || cfg.Mirror.DebounceMs != 0 {
		t.Errorf("mirror defaults applied without lines: %+v", cfg.Mirror)
	}
}

func TestNormalizeNil(t *testing.T) {
	Normalize(nil)
}

func TestControllerOptions(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatal(err)
	}
	Normalize(cfg)

	opts, err := cfg.Device.ControllerOptions(nil)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Kind != transport.KindNetwork {
		t.Errorf("Kind: got %v", opts.Kind)
	}
	if opts.Address != "192.168.0.50" {
		t.Errorf("Address: got %q", opts.Address)
	}
	if opts.Credentials != (transport.Credentials{Username: "admin", Password: "secret"}) {
		t.Errorf("Credentials: got %+v", opts.Credentials)
	}
	if opts.Reset != numato.ResetAuto {
		t.Errorf("Reset: got %v", opts.Reset)
	}
	if opts.Timeout != 500*time.Millisecond {
		t.Errorf("Timeout: got %v", opts.Timeout)
	}
}
