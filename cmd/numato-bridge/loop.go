package main

import (
	"errors"
	"log"
	"os"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/cdleonard/numato-control/internal/gpio"
	"github.com/cdleonard/numato-control/internal/logic"
	"github.com/cdleonard/numato-control/internal/mqtt"
	"github.com/cdleonard/numato-control/internal/numato"
	"github.com/cdleonard/numato-control/internal/status"
)

// board is the part of *numato.Controller the loop drives.
type board interface {
	RelayState(index any) (numato.RelayState, error)
	GPIOState(index any) (numato.GPIOState, error)
	ReadADC(index any) (int, error)
	WriteRelayState(index, state any) error
	WriteGPIOState(index, state any) error
}

// loopConfig holds everything runLoop needs besides its input channels.
type loopConfig struct {
	board      board
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus // may be nil
	tracker    *status.Tracker       // may be nil

	relays []string
	gpios  []string
	adcs   []string

	debounce  time.Duration
	heartbeat time.Duration

	// mirror is nil when no host lines are configured.
	mirror         gpio.Reader
	mirrorRelays   map[int]string // host pin -> board relay index
	mirrorDebounce time.Duration

	now func() time.Time
}

// runLoop owns the board. Every Controller call happens on this goroutine:
// polls on tick, MQTT commands from cmds, and host line mirroring on
// mirrorTick. It returns after publishing SHUTDOWN when a signal arrives.
func runLoop(cfg loopConfig, tick, mirrorTick <-chan time.Time, cmds <-chan mqtt.Command, sig <-chan os.Signal) error {
	startTime := cfg.now()
	detector := logic.NewDetector(cfg.debounce, startTime)
	mirrorDetector := logic.NewDetector(cfg.mirrorDebounce, startTime)

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: cfg.now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if cfg.tracker != nil {
				if cfg.mqttStatus != nil {
					cfg.tracker.SetMQTTConnected(cfg.mqttStatus.IsConnected())
				}
				event.RawPayload = status.FormatStatusEvent(cfg.tracker.Snapshot(), "SHUTDOWN", signalName)
			}
			if err := cfg.publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case cmd := <-cmds:
			applyCommand(cfg, cmd)

		case <-mirrorTick:
			mirrorOnce(cfg, mirrorDetector)

		case <-tick:
			t := cfg.now()
			values := pollBoard(cfg, t)
			if len(cfg.adcs) > 0 && cfg.tracker != nil {
				cfg.tracker.SetADC(pollADC(cfg, t))
			}

			events := detector.Process(logic.Input{Values: values, Time: t})
			for _, event := range events {
				log.Printf("event: %s %s -> %s", event.Channel, event.From, event.To)
				if err := cfg.publisher.Publish(event); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
			}

			if detector.IsBaselined() {
				if hb := detector.CheckHeartbeat(t, cfg.heartbeat); hb != nil {
					log.Printf("heartbeat: uptime=%v transitions=%d", hb.Uptime, hb.Counts.Total())
					hbEvent := mqtt.SystemEvent{
						Timestamp: hb.Timestamp,
						Event:     "HEARTBEAT",
					}
					if cfg.tracker != nil {
						updateTracker(cfg, detector)
						hbEvent.RawPayload = status.FormatStatusEvent(cfg.tracker.Snapshot(), "HEARTBEAT", "")
					}
					if err := cfg.publisher.PublishSystem(hbEvent); err != nil {
						log.Printf("heartbeat publish error: %v", err)
					}
				}
			}

			// Update status tracker for HTTP consumers
			if cfg.tracker != nil {
				updateTracker(cfg, detector)
			}
		}
	}
}

func updateTracker(cfg loopConfig, detector *logic.Detector) {
	cfg.tracker.Update(detector.CurrentState(), detector.IsBaselined(), detector.EventCountsSnapshot())
	if cfg.mqttStatus != nil {
		cfg.tracker.SetMQTTConnected(cfg.mqttStatus.IsConnected())
	}
}

// pollBoard reads every configured channel. Channels whose read fails are
// left out of the sample so the detector keeps their previous state.
func pollBoard(cfg loopConfig, t time.Time) map[string]logic.State {
	values := make(map[string]logic.State, len(cfg.relays)+len(cfg.gpios))

	for _, idx := range cfg.relays {
		s, err := cfg.board.RelayState(idx)
		if err != nil {
			boardError(cfg, t, "relay read "+idx, err)
			continue
		}
		values[relayChannel(idx)] = relayLogicState(s)
	}

	for _, idx := range cfg.gpios {
		s, err := cfg.board.GPIOState(idx)
		if err != nil {
			boardError(cfg, t, "gpio read "+idx, err)
			continue
		}
		values[gpioChannel(idx)] = gpioLogicState(s)
	}

	return values
}

// pollADC reads every configured analog input.
func pollADC(cfg loopConfig, t time.Time) map[string]int {
	readings := make(map[string]int, len(cfg.adcs))
	for _, idx := range cfg.adcs {
		v, err := cfg.board.ReadADC(idx)
		if err != nil {
			boardError(cfg, t, "adc read "+idx, err)
			continue
		}
		readings[adcChannel(idx)] = v
	}
	return readings
}

// applyCommand performs a write received over MQTT.
func applyCommand(cfg loopConfig, cmd mqtt.Command) {
	var err error
	switch cmd.Kind {
	case mqtt.CommandRelay:
		err = cfg.board.WriteRelayState(cmd.Index, cmd.On)
	case mqtt.CommandGPIO:
		err = cfg.board.WriteGPIOState(cmd.Index, cmd.On)
	default:
		err = errors.New("unknown command kind")
	}
	if err != nil {
		boardError(cfg, cfg.now(), cmd.Kind+" write "+cmd.Index, err)
		return
	}
	log.Printf("command: %s %s on=%v", cmd.Kind, cmd.Index, cmd.On)
}

// mirrorOnce samples the host lines and drives the mapped relays. Once the
// lines first settle every mapped relay is synced to its line; after that
// only debounced transitions cause writes.
func mirrorOnce(cfg loopConfig, detector *logic.Detector) {
	if cfg.mirror == nil {
		return
	}
	lines, err := cfg.mirror.Read()
	if err != nil {
		log.Printf("mirror read error: %v", err)
		return
	}

	t := cfg.now()
	values := make(map[string]logic.State, len(lines))
	for pin, on := range lines {
		values[pinChannel(pin)] = logic.BoolState(on)
	}

	wasBaselined := detector.IsBaselined()
	events := detector.Process(logic.Input{Values: values, Time: t})

	if !wasBaselined && detector.IsBaselined() {
		pins := make([]int, 0, len(cfg.mirrorRelays))
		for pin := range cfg.mirrorRelays {
			pins = append(pins, pin)
		}
		sort.Ints(pins)
		for _, pin := range pins {
			if st := detector.State(pinChannel(pin)); st != "" {
				driveRelay(cfg, t, pin, st == logic.StateOn)
			}
		}
		return
	}

	for _, e := range events {
		pin, err := strconv.Atoi(e.Channel[len("pin"):])
		if err != nil {
			continue
		}
		log.Printf("mirror: %s %s -> %s", e.Channel, e.From, e.To)
		driveRelay(cfg, t, pin, e.To == logic.StateOn)
	}
}

func driveRelay(cfg loopConfig, t time.Time, pin int, on bool) {
	relay, ok := cfg.mirrorRelays[pin]
	if !ok {
		return
	}
	if err := cfg.board.WriteRelayState(relay, on); err != nil {
		boardError(cfg, t, "mirror relay "+relay, err)
	}
}

func boardError(cfg loopConfig, t time.Time, what string, err error) {
	log.Printf("%s: %v", what, err)
	if cfg.tracker != nil {
		cfg.tracker.SetError(err, t)
	}
}

func relayChannel(idx string) string { return "relay" + idx }
func gpioChannel(idx string) string  { return "gpio" + idx }
func adcChannel(idx string) string   { return "adc" + idx }
func pinChannel(pin int) string      { return "pin" + strconv.Itoa(pin) }

func relayLogicState(s numato.RelayState) logic.State {
	switch s {
	case numato.RelayOn:
		return logic.StateOn
	case numato.RelayOff:
		return logic.StateOff
	}
	return logic.StateError
}

func gpioLogicState(s numato.GPIOState) logic.State {
	switch s {
	case numato.GPIOHigh:
		return logic.StateHigh
	case numato.GPIOLow:
		return logic.StateLow
	}
	return logic.StateError
}
