package numato

import (
	"fmt"
	"strings"
)

// Framing describes how a command line is wrapped on the wire.
type Framing struct {
	Prefix     string
	Terminator string
}

var (
	// SerialFraming leads with a carriage return to discard any partial line
	// the board may be holding.
	SerialFraming = Framing{Prefix: "\r", Terminator: "\r"}

	// NetworkFraming terminates lines the way a terminal session expects.
	NetworkFraming = Framing{Terminator: "\r\n"}
)

// Frame wraps cmd for the wire.
func (f Framing) Frame(cmd string) []byte {
	return []byte(f.Prefix + cmd + f.Terminator)
}

// ChannelIndex renders index as text with fmt.Sprint and checks that it is
// exactly one printable, non-space ASCII character. A rune is an integer and
// renders as its number, so 'A' is rejected as "65"; pass "A" or string(r).
func ChannelIndex(index any) (string, error) {
	s := fmt.Sprint(index)
	if len(s) != 1 || s[0] <= ' ' || s[0] > '~' {
		return "", fmt.Errorf("%w: %q", ErrInvalidChannelIndex, s)
	}
	return s, nil
}

func relayWriteCommand(index string, s RelayState) string {
	return command("relay", s.Text(), index)
}

func relayReadCommand(index string) string {
	return command("relay", "read", index)
}

func gpioWriteCommand(index string, s GPIOState) string {
	return command("gpio", s.Text(), index)
}

func gpioReadCommand(index string) string {
	return command("gpio", "read", index)
}

func adcReadCommand(index string) string {
	return command("adc", "read", index)
}

const versionCommand = "ver"

func command(words ...string) string {
	return strings.Join(words, " ")
}
