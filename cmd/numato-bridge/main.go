// Command numato-bridge polls a Numato relay/GPIO board, publishes state
// changes to MQTT, applies relay and GPIO commands received over MQTT, and
// optionally mirrors host GPIO inputs onto board relays.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/cdleonard/numato-control/internal/config"
	"github.com/cdleonard/numato-control/internal/gpio"
	"github.com/cdleonard/numato-control/internal/logic"
	"github.com/cdleonard/numato-control/internal/mqtt"
	"github.com/cdleonard/numato-control/internal/numato"
	"github.com/cdleonard/numato-control/internal/status"
	"github.com/cdleonard/numato-control/internal/web"
)

// mirrorPollInterval is how often host input lines are sampled.
const mirrorPollInterval = 20 * time.Millisecond

// commandQueue bounds MQTT commands waiting for the loop.
const commandQueue = 16

func main() {
	cfgPath := flag.String("config", "/etc/numato-bridge.yaml", "Path to YAML config")
	printState := flag.Bool("print-state", false, "Print current board state and exit")
	verbose := flag.Bool("v", false, "Log every exchange with the board")

	flag.Parse()

	if err := run(*cfgPath, *printState, *verbose); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfgPath string, printState, verbose bool) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)

	var trace *log.Logger
	if verbose {
		trace = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)
	}
	opts, err := cfg.Device.ControllerOptions(trace)
	if err != nil {
		return err
	}

	// Initialize board
	ctrl, err := numato.Open(opts)
	if err != nil {
		return fmt.Errorf("open board: %w", err)
	}
	defer ctrl.Close()

	version, err := ctrl.BoardVersion()
	if err != nil {
		return fmt.Errorf("read board version: %w", err)
	}
	log.Printf("connected to board %q over %s %s", version, ctrl.Kind(), cfg.Device.Address)

	poll := time.Duration(cfg.Poll.IntervalMs) * time.Millisecond
	debounce := time.Duration(cfg.Poll.DebounceMs) * time.Millisecond
	heartbeat := time.Duration(cfg.MQTT.HeartbeatMs) * time.Millisecond

	lc := loopConfig{
		board:          ctrl,
		relays:         cfg.Poll.Relays,
		gpios:          cfg.Poll.GPIOs,
		adcs:           cfg.Poll.ADCs,
		debounce:       debounce,
		heartbeat:      heartbeat,
		mirrorDebounce: time.Duration(cfg.Mirror.DebounceMs) * time.Millisecond,
		now:            time.Now,
	}

	// Print state mode
	if printState {
		printBoardState(lc)
		return nil
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      poll.Milliseconds(),
		DebounceMs:  debounce.Milliseconds(),
		HeartbeatMs: heartbeat.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		TopicPrefix: cfg.MQTT.TopicPrefix,
		HTTPAddr:    cfg.HTTP.Addr,
	})
	tracker.SetBoard(status.Board{Version: version, Transport: ctrl.Kind().String(), Address: cfg.Device.Address})
	lc.tracker = tracker

	// Initialize MQTT
	cmds := make(chan mqtt.Command, commandQueue)
	if cfg.MQTT.Broker != "" {
		publisher, err := mqtt.NewRealPublisher(mqtt.Config{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			BufferSize:  cfg.MQTT.BufferSize,
		})
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer publisher.Close()
		if err := publisher.Subscribe(queueCommand(cmds)); err != nil {
			return fmt.Errorf("subscribe commands: %w", err)
		}
		lc.publisher = publisher
		lc.mqttStatus = publisher
	} else {
		log.Printf("mqtt disabled: no broker configured")
		lc.publisher = nopPublisher{}
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := lc.publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	// Initialize host GPIO mirror
	var mirrorTick <-chan time.Time
	if cfg.Mirror.Enabled() {
		lines := make([]gpio.Line, 0, len(cfg.Mirror.Lines))
		lc.mirrorRelays = make(map[int]string, len(cfg.Mirror.Lines))
		for _, l := range cfg.Mirror.Lines {
			lines = append(lines, gpio.Line{Pin: l.Pin, ActiveLow: l.ActiveLow})
			lc.mirrorRelays[l.Pin] = l.Relay
		}
		reader, err := gpio.NewRealReader(cfg.Mirror.Chip, lines)
		if err != nil {
			return fmt.Errorf("init gpio mirror: %w", err)
		}
		defer reader.Close()
		lc.mirror = reader

		mirrorTicker := time.NewTicker(mirrorPollInterval)
		defer mirrorTicker.Stop()
		mirrorTick = mirrorTicker.C
		log.Printf("mirroring %d host lines from %s", len(lines), cfg.Mirror.Chip)
	}

	log.Printf("started: poll=%v debounce=%v broker=%s heartbeat=%v", poll, debounce, cfg.MQTT.Broker, heartbeat)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(lc, ticker.C, mirrorTick, cmds, sigCh)
}

// queueCommand returns an MQTT handler that hands commands to the loop
// without blocking the client's delivery goroutine.
func queueCommand(cmds chan<- mqtt.Command) func(mqtt.Command) {
	return func(cmd mqtt.Command) {
		select {
		case cmds <- cmd:
		default:
			log.Printf("command queue full, dropping %s %s", cmd.Kind, cmd.Index)
		}
	}
}

func printBoardState(lc loopConfig) {
	values := pollBoard(lc, lc.now())
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%s: %s\n", name, values[name])
	}
	readings := pollADC(lc, lc.now())
	for _, idx := range lc.adcs {
		if v, ok := readings[adcChannel(idx)]; ok {
			fmt.Printf("%s: %d\n", adcChannel(idx), v)
		}
	}
}

// nopPublisher stands in when no broker is configured.
type nopPublisher struct{}

func (nopPublisher) Publish(logic.Event) error            { return nil }
func (nopPublisher) PublishSystem(mqtt.SystemEvent) error { return nil }
func (nopPublisher) Subscribe(func(mqtt.Command)) error   { return nil }
func (nopPublisher) Close() error                         { return nil }
