package transport

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"
)

// Serial line settings used by Numato USB boards.
const (
	SerialBaudRate    = 9600
	SerialPollTimeout = 100 * time.Millisecond
)

// SerialConfig holds configuration for opening a serial port.
type SerialConfig struct {
	Port     string
	BaudRate int           // zero means SerialBaudRate
	Poll     time.Duration // per-read timeout; zero means SerialPollTimeout
}

// Serial is a transport over a local serial device.
type Serial struct {
	port    serial.Port
	name    string
	poll    time.Duration
	pending []byte // bytes read past the last terminator
}

// serialOpener is swapped out in tests.
var serialOpener = func(name string, mode *serial.Mode) (serial.Port, error) {
	return serial.Open(name, mode)
}

// OpenSerial opens and configures the named port (8N1, no flow control).
// Any failure returns an *UnavailableError.
func OpenSerial(cfg SerialConfig) (*Serial, error) {
	if cfg.Port == "" {
		return nil, unavailable(cfg.Port, errors.New("serial port path is required"))
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = SerialBaudRate
	}
	if cfg.Poll <= 0 {
		cfg.Poll = SerialPollTimeout
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serialOpener(cfg.Port, mode)
	if err != nil {
		return nil, unavailable(cfg.Port, describePortError(err))
	}

	if err := port.SetReadTimeout(cfg.Poll); err != nil {
		port.Close()
		return nil, unavailable(cfg.Port, fmt.Errorf("set read timeout: %w", err))
	}

	return &Serial{port: port, name: cfg.Port, poll: cfg.Poll}, nil
}

// describePortError adds a short reason for the port error codes a user can
// act on. Other errors pass through unchanged.
func describePortError(err error) error {
	var portErr *serial.PortError
	if !errors.As(err, &portErr) {
		return err
	}
	switch portErr.Code() {
	case serial.PortBusy:
		return fmt.Errorf("already in use: %w", err)
	case serial.PortNotFound:
		return fmt.Errorf("no such port: %w", err)
	case serial.PermissionDenied:
		return fmt.Errorf("permission denied: %w", err)
	}
	return err
}

// Name returns the port path.
func (s *Serial) Name() string { return s.name }

// Write sends p in full.
func (s *Serial) Write(p []byte) error {
	for len(p) > 0 {
		n, err := s.port.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

// ReadUntil polls the port until term arrives or timeout lapses. Bytes read
// past term are kept for the next call.
func (s *Serial) ReadUntil(term byte, timeout time.Duration) ([]byte, error) {
	out := s.pending
	s.pending = nil
	if i := bytes.IndexByte(out, term); i >= 0 {
		s.pending = append(s.pending, out[i+1:]...)
		return out[:i+1], nil
	}
	buf := make([]byte, 128)
	deadline := time.Now().Add(timeout)
	for {
		n, err := s.port.Read(buf)
		if err != nil {
			return out, err
		}
		if n > 0 {
			if i := bytes.IndexByte(buf[:n], term); i >= 0 {
				s.pending = append(s.pending, buf[i+1:n]...)
				return append(out, buf[:i+1]...), nil
			}
			out = append(out, buf[:n]...)
		}
		if !time.Now().Before(deadline) {
			return out, nil
		}
	}
}

// Flush discards carried-over bytes and both directions of the driver buffers.
func (s *Serial) Flush() error {
	s.pending = nil
	if err := s.port.ResetOutputBuffer(); err != nil {
		return fmt.Errorf("reset output buffer: %w", err)
	}
	if err := s.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("reset input buffer: %w", err)
	}
	return nil
}

// Close closes the port.
func (s *Serial) Close() error {
	return s.port.Close()
}
