package numato

import (
	"errors"

	"github.com/cdleonard/numato-control/internal/transport"
)

var (
	// ErrTransportUnavailable is matched by errors returned from Open when the
	// device cannot be opened or the network login fails. The concrete error is
	// a *transport.UnavailableError naming the address.
	ErrTransportUnavailable = transport.ErrUnavailable

	// ErrInvalidChannelIndex is returned, before any I/O, when an index does
	// not render to exactly one printable character.
	ErrInvalidChannelIndex = errors.New("invalid channel index")

	// ErrInvalidStateValue is returned, before any I/O, when a write state
	// cannot be coerced to a writable on/off value.
	ErrInvalidStateValue = errors.New("invalid state value")

	// ErrTransport wraps I/O faults raised by an open transport.
	ErrTransport = errors.New("transport fault")
)
