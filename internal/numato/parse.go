package numato

import (
	"bytes"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Prompt is the byte the board emits when it is ready for the next command.
const Prompt = '>'

// versionEchoLen is the fixed-width echo that precedes the version string.
const versionEchoLen = 5

// ParseRelayState classifies a relay read response.
// "off" is tested first: a response may carry both tokens and "off" wins.
func ParseRelayState(resp []byte) RelayState {
	switch {
	case bytes.Contains(resp, []byte("off")):
		return RelayOff
	case bytes.Contains(resp, []byte("on")):
		return RelayOn
	default:
		return RelayError
	}
}

// ParseGPIOState classifies a gpio read response. The digit must sit between
// line breaks; both \r\n and \n\r orderings occur across firmware revisions.
func ParseGPIOState(resp []byte) GPIOState {
	switch {
	case bytes.Contains(resp, []byte("\r0\n")) || bytes.Contains(resp, []byte("\n0\r")):
		return GPIOLow
	case bytes.Contains(resp, []byte("\r1\n")) || bytes.Contains(resp, []byte("\n1\r")):
		return GPIOHigh
	default:
		return GPIOError
	}
}

// ParseADC extracts the reading from an adc read response: the second-to-last
// newline-separated segment, as a decimal integer. Any failure yields -1.
func ParseADC(resp []byte) int {
	if !utf8.Valid(resp) {
		return -1
	}
	parts := bytes.Split(resp, []byte("\n"))
	if len(parts) < 2 {
		return -1
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(parts[len(parts)-2])))
	if err != nil {
		return -1
	}
	return v
}

// ParseVersion drops the echoed command prefix and returns the text up to the
// first \n\r. The content is not validated.
func ParseVersion(resp []byte) string {
	if len(resp) <= versionEchoLen {
		return ""
	}
	rest := resp[versionEchoLen:]
	if i := bytes.Index(rest, []byte("\n\r")); i >= 0 {
		rest = rest[:i]
	}
	return string(rest)
}
