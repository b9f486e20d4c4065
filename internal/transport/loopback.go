package transport

import (
	"bytes"
	"errors"
	"time"
)

var errClosed = errors.New("transport closed")

// Loopback echoes every write back as readable input, like a serial port with
// RX wired to TX. Reads never block: once the echoed bytes are consumed the
// read returns as if the timeout had lapsed.
type Loopback struct {
	buf    bytes.Buffer
	closed bool
}

// NewLoopback returns an empty loopback transport.
func NewLoopback() *Loopback {
	return &Loopback{}
}

// Write appends p to the echo buffer.
func (l *Loopback) Write(p []byte) error {
	if l.closed {
		return errClosed
	}
	l.buf.Write(p)
	return nil
}

// ReadUntil returns echoed bytes up to and including term, or everything
// buffered when term is absent.
func (l *Loopback) ReadUntil(term byte, _ time.Duration) ([]byte, error) {
	if l.closed {
		return nil, errClosed
	}
	// io.EOF here only means term was not found, which the caller treats
	// like a lapsed timeout.
	b, _ := l.buf.ReadBytes(term)
	return b, nil
}

// Flush discards buffered echo.
func (l *Loopback) Flush() error {
	l.buf.Reset()
	return nil
}

// Close marks the loopback closed.
func (l *Loopback) Close() error {
	l.closed = true
	return nil
}
