// Package numato implements the host side of the ASCII line protocol spoken by
// Numato relay and GPIO boards.
//
// A Controller issues one command at a time over a Transport and parses the
// prompt-terminated response into typed values. Responses that cannot be
// classified map to RelayError, GPIOError or -1 (ADC) rather than to an error;
// errors are reserved for caller mistakes and transport faults.
//
// A Controller is not safe for concurrent use. The protocol has no request
// ids, so callers sharing one must serialize access themselves.
package numato

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/cdleonard/numato-control/internal/transport"
)

// Transport is the capability set a Controller needs from a connection.
type Transport interface {
	// Write sends p in full.
	Write(p []byte) error

	// ReadUntil returns bytes up to and including term. If timeout lapses
	// first it returns whatever was received and a nil error.
	ReadUntil(term byte, timeout time.Duration) ([]byte, error)

	// Flush discards any buffered input and pending output.
	Flush() error

	// Close releases the connection.
	Close() error
}

// ResetMode selects whether the reset step runs before each command.
type ResetMode int

const (
	// ResetAuto resets on serial and loopback transports only.
	ResetAuto ResetMode = iota
	ResetAlways
	ResetNever
)

// ParseResetMode parses "auto", "always" or "never", ignoring case. Empty
// means auto.
func ParseResetMode(s string) (ResetMode, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return ResetAuto, nil
	case "always":
		return ResetAlways, nil
	case "never":
		return ResetNever, nil
	}
	return ResetAuto, fmt.Errorf("unknown reset mode %q", s)
}

// Default response timeouts per transport kind.
const (
	DefaultSerialTimeout  = 100 * time.Millisecond
	DefaultNetworkTimeout = time.Second
)

// Options configures a Controller.
type Options struct {
	Kind    transport.Kind
	Address string

	// Credentials are used by the network login handshake.
	// Zero value means transport.DefaultCredentials.
	Credentials transport.Credentials

	Reset ResetMode

	// Timeout bounds each response read. Zero picks a per-kind default.
	Timeout time.Duration

	// LoginTimeout bounds each step of the network login. Zero means the
	// transport default.
	LoginTimeout time.Duration

	// Logger receives a trace of every exchange. Nil disables tracing.
	Logger *log.Logger
}

// Controller drives one board over one transport.
type Controller struct {
	t       Transport
	kind    transport.Kind
	framing Framing
	reset   bool
	timeout time.Duration
	log     *log.Logger
}

var errClosed = errors.New("controller closed")

// Open constructs the transport named by opts and returns a ready Controller.
// Failures to open or log in match ErrTransportUnavailable.
func Open(opts Options) (*Controller, error) {
	kind := opts.Kind
	if kind == transport.KindSerial && opts.Address == transport.LoopbackAddress {
		kind = transport.KindLoopback
	}
	opts.Kind = kind

	var (
		t   Transport
		err error
	)
	switch kind {
	case transport.KindSerial:
		t, err = transport.OpenSerial(transport.SerialConfig{Port: opts.Address})
	case transport.KindNetwork:
		t, err = transport.DialNetwork(transport.NetworkConfig{
			Address:      opts.Address,
			Credentials:  opts.Credentials,
			LoginTimeout: opts.LoginTimeout,
		})
	case transport.KindLoopback:
		t = transport.NewLoopback()
	default:
		return nil, fmt.Errorf("numato: unsupported transport kind %v", kind)
	}
	if err != nil {
		return nil, err
	}
	return New(t, opts), nil
}

// New wraps an already open transport. opts.Kind selects framing, the reset
// default and the response timeout; opts.Address is ignored.
func New(t Transport, opts Options) *Controller {
	c := &Controller{
		t:       t,
		kind:    opts.Kind,
		framing: SerialFraming,
		reset:   true,
		timeout: DefaultSerialTimeout,
		log:     opts.Logger,
	}
	if opts.Kind == transport.KindNetwork {
		c.framing = NetworkFraming
		c.reset = false
		c.timeout = DefaultNetworkTimeout
	}
	switch opts.Reset {
	case ResetAlways:
		c.reset = true
	case ResetNever:
		c.reset = false
	}
	if opts.Timeout > 0 {
		c.timeout = opts.Timeout
	}
	if c.log == nil {
		c.log = log.New(io.Discard, "", 0)
	}
	return c
}

// Kind reports the transport kind the controller was built for.
func (c *Controller) Kind() transport.Kind { return c.kind }

// Close releases the transport. It is safe to call more than once.
func (c *Controller) Close() error {
	if c.t == nil {
		return nil
	}
	err := c.t.Close()
	c.t = nil
	return err
}

// BoardVersion queries the firmware version string.
func (c *Controller) BoardVersion() (string, error) {
	resp, err := c.exchange(versionCommand)
	if err != nil {
		return "", err
	}
	return ParseVersion(resp), nil
}

// WriteRelayState switches relay index to state. See CoerceRelayState for the
// accepted state values.
func (c *Controller) WriteRelayState(index, state any) error {
	idx, err := ChannelIndex(index)
	if err != nil {
		return err
	}
	s, err := CoerceRelayState(state)
	if err != nil {
		return err
	}
	_, err = c.exchange(relayWriteCommand(idx, s))
	return err
}

// TurnOnRelay is WriteRelayState(index, RelayOn).
func (c *Controller) TurnOnRelay(index any) error {
	return c.WriteRelayState(index, RelayOn)
}

// TurnOffRelay is WriteRelayState(index, RelayOff).
func (c *Controller) TurnOffRelay(index any) error {
	return c.WriteRelayState(index, RelayOff)
}

// RelayState reads relay index. An unrecognised response yields RelayError
// with a nil error.
func (c *Controller) RelayState(index any) (RelayState, error) {
	idx, err := ChannelIndex(index)
	if err != nil {
		return RelayError, err
	}
	resp, err := c.exchange(relayReadCommand(idx))
	if err != nil {
		return RelayError, err
	}
	return ParseRelayState(resp), nil
}

// WriteGPIOState drives gpio index to state. See CoerceGPIOState.
func (c *Controller) WriteGPIOState(index, state any) error {
	idx, err := ChannelIndex(index)
	if err != nil {
		return err
	}
	s, err := CoerceGPIOState(state)
	if err != nil {
		return err
	}
	_, err = c.exchange(gpioWriteCommand(idx, s))
	return err
}

// SetGPIO is WriteGPIOState(index, GPIOHigh).
func (c *Controller) SetGPIO(index any) error {
	return c.WriteGPIOState(index, GPIOHigh)
}

// ClearGPIO is WriteGPIOState(index, GPIOLow).
func (c *Controller) ClearGPIO(index any) error {
	return c.WriteGPIOState(index, GPIOLow)
}

// GPIOState reads gpio index. An unrecognised response yields GPIOError with
// a nil error.
func (c *Controller) GPIOState(index any) (GPIOState, error) {
	idx, err := ChannelIndex(index)
	if err != nil {
		return GPIOError, err
	}
	resp, err := c.exchange(gpioReadCommand(idx))
	if err != nil {
		return GPIOError, err
	}
	return ParseGPIOState(resp), nil
}

// ReadADC reads analog input index. A response that does not parse yields -1
// with a nil error; -1 is never a valid reading.
func (c *Controller) ReadADC(index any) (int, error) {
	idx, err := ChannelIndex(index)
	if err != nil {
		return -1, err
	}
	resp, err := c.exchange(adcReadCommand(idx))
	if err != nil {
		return -1, err
	}
	return ParseADC(resp), nil
}

// exchange runs one request/response cycle and returns the raw response.
func (c *Controller) exchange(cmd string) ([]byte, error) {
	if c.t == nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, errClosed)
	}
	if c.reset {
		if err := c.resetLine(); err != nil {
			return nil, err
		}
	}

	out := c.framing.Frame(cmd)
	c.log.Printf("numato: send %q", out)
	if err := c.t.Write(out); err != nil {
		return nil, fmt.Errorf("%w: write %q: %w", ErrTransport, cmd, err)
	}

	resp, err := c.t.ReadUntil(Prompt, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: read %q: %w", ErrTransport, cmd, err)
	}
	c.log.Printf("numato: recv %q", resp)
	return resp, nil
}

// resetLine discards stale bytes, then sends a bare carriage return and
// consumes the board's echo so the next response starts clean.
func (c *Controller) resetLine() error {
	if err := c.t.Flush(); err != nil {
		return fmt.Errorf("%w: flush: %w", ErrTransport, err)
	}
	if err := c.t.Write([]byte("\r")); err != nil {
		return fmt.Errorf("%w: reset: %w", ErrTransport, err)
	}
	if _, err := c.t.ReadUntil(Prompt, c.timeout); err != nil {
		return fmt.Errorf("%w: reset: %w", ErrTransport, err)
	}
	return nil
}
