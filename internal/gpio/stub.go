//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: host line mirroring needs the Linux GPIO character device")

// RealReader is a placeholder so the bridge builds off Linux. Mirror mode
// fails at startup instead.
type RealReader struct{}

func NewRealReader(chipName string, lines []Line) (*RealReader, error) {
	return nil, errUnsupported
}

func (r *RealReader) Read() (map[int]bool, error) { return nil, errUnsupported }

func (r *RealReader) Close() error { return nil }
