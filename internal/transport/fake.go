package transport

import (
	"bytes"
	"strings"
	"time"
)

// Fake is a scripted test double. Each write is trimmed of line breaks and
// looked up in Responses; a match queues that canned response for the next
// read. Unmatched writes queue nothing, so the next read returns empty.
type Fake struct {
	// Responses maps a command line (e.g. "relay read 0") to the raw bytes
	// the board would send back.
	Responses map[string]string

	// Writes records every write verbatim.
	Writes [][]byte

	// Flushes counts calls to Flush.
	Flushes int

	// WriteError and ReadError, if set, are returned by Write and ReadUntil.
	WriteError error
	ReadError  error

	// Closed tracks if Close was called.
	Closed bool

	pending bytes.Buffer
}

// NewFake creates a Fake with the given scripted responses.
func NewFake(responses map[string]string) *Fake {
	if responses == nil {
		responses = map[string]string{}
	}
	return &Fake{Responses: responses}
}

// Write records p and queues the scripted response, if any.
func (f *Fake) Write(p []byte) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Writes = append(f.Writes, append([]byte(nil), p...))
	if resp, ok := f.Responses[strings.Trim(string(p), "\r\n")]; ok {
		f.pending.WriteString(resp)
	}
	return nil
}

// ReadUntil returns queued bytes up to and including term.
func (f *Fake) ReadUntil(term byte, _ time.Duration) ([]byte, error) {
	if f.ReadError != nil {
		return nil, f.ReadError
	}
	b, _ := f.pending.ReadBytes(term)
	return b, nil
}

// Flush drops queued bytes.
func (f *Fake) Flush() error {
	f.Flushes++
	f.pending.Reset()
	return nil
}

// Close marks the fake as closed.
func (f *Fake) Close() error {
	f.Closed = true
	return nil
}

// Commands returns the recorded writes with framing removed, skipping the
// bare carriage returns sent by the reset step.
func (f *Fake) Commands() []string {
	var out []string
	for _, w := range f.Writes {
		s := strings.Trim(string(w), "\r\n")
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Reset clears recorded writes and queued bytes.
func (f *Fake) Reset() {
	f.Writes = nil
	f.Flushes = 0
	f.Closed = false
	f.pending.Reset()
}
