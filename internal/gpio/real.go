//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads GPIO from actual hardware using Linux GPIO character device.
type RealReader struct {
	chip  *gpiocdev.Chip
	lines map[int]*gpiocdev.Line
}

// NewRealReader requests every line in lines as an input on the named chip.
func NewRealReader(chipName string, lines []Line) (*RealReader, error) {
	if chipName == "" {
		chipName = DefaultChip
	}
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	r := &RealReader{chip: chip, lines: make(map[int]*gpiocdev.Line, len(lines))}
	for _, l := range lines {
		// Pull-down matches Pi boot defaults, so an unwired input reads inactive.
		opts := []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullDown}
		if l.ActiveLow {
			opts = append(opts, gpiocdev.AsActiveLow)
		}
		line, err := chip.RequestLine(l.Pin, opts...)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request pin %d: %w", l.Pin, err)
		}
		r.lines[l.Pin] = line
	}
	return r, nil
}

// Read returns the logical state of each line. Active-low lines are already
// inverted by the kernel.
func (r *RealReader) Read() (map[int]bool, error) {
	out := make(map[int]bool, len(r.lines))
	for pin, line := range r.lines {
		v, err := line.Value()
		if err != nil {
			return nil, fmt.Errorf("read pin %d: %w", pin, err)
		}
		out[pin] = v == 1
	}
	return out, nil
}

// Close releases GPIO resources.
// Lines are reconfigured to input with pull-down (matching Pi boot defaults)
// before closing.
func (r *RealReader) Close() error {
	var errs []error

	for pin, line := range r.lines {
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", pin, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", pin, err))
		}
	}
	r.lines = nil
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		r.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
