// Package gpio reads host GPIO input lines with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
//
// Input lines are mirrored onto board relays: a switch wired to the host
// can drive a relay on the Numato board.
package gpio

// Reader reads host GPIO input states.
type Reader interface {
	// Read returns the logical (active = true) state of every configured
	// line, keyed by pin offset.
	Read() (map[int]bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Line configures one input line.
type Line struct {
	Pin       int  // line offset on the chip (BCM number on a Raspberry Pi)
	ActiveLow bool // invert the raw level
}

// DefaultChip is the GPIO chip used when none is configured.
const DefaultChip = "gpiochip0"
