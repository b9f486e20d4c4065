// Package transport provides the byte-stream connections a Numato board can
// be reached over: a USB serial line, a telnet-style network session, and an
// in-memory loopback for testing.
//
// Every transport offers the same small capability set: Write, ReadUntil a
// terminator byte with a timeout, Flush and Close.
package transport

import (
	"errors"
	"fmt"
	"strings"
)

// Kind names a transport variant.
type Kind int

const (
	KindSerial Kind = iota
	KindNetwork
	KindLoopback
)

// LoopbackAddress selects the loopback transport when given as a serial port.
const LoopbackAddress = "loop://"

func (k Kind) String() string {
	switch k {
	case KindSerial:
		return "serial"
	case KindNetwork:
		return "network"
	case KindLoopback:
		return "loopback"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind parses "serial", "network" (or "telnet") and "loopback",
// ignoring case.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "serial", "":
		return KindSerial, nil
	case "network", "telnet":
		return KindNetwork, nil
	case "loopback", "loop":
		return KindLoopback, nil
	}
	return KindSerial, fmt.Errorf("unknown transport %q", s)
}

// ErrUnavailable is matched (via errors.Is) by *UnavailableError.
var ErrUnavailable = errors.New("transport unavailable")

// UnavailableError reports that a transport could not be opened or claimed.
type UnavailableError struct {
	Address string
	Err     error
}

func (e *UnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("transport unavailable: %s", e.Address)
	}
	return fmt.Sprintf("transport unavailable: %s: %v", e.Address, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Is reports whether target is ErrUnavailable.
func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

func unavailable(addr string, err error) error {
	return &UnavailableError{Address: addr, Err: err}
}
