package numato

import (
	"fmt"
	"math"
	"strings"
)

// RelayState is the state of a single relay as reported by, or written to, the board.
type RelayState int

const (
	RelayOff RelayState = iota
	RelayOn
	// RelayError is returned when a read response cannot be classified.
	// It is never a valid write target.
	RelayError
)

// Numeric returns the numeric code of the state (0, 1 or 2).
func (s RelayState) Numeric() int { return int(s) }

// Text returns the protocol token for the state.
func (s RelayState) Text() string {
	switch s {
	case RelayOff:
		return "off"
	case RelayOn:
		return "on"
	default:
		return "error"
	}
}

func (s RelayState) String() string {
	switch s {
	case RelayOff:
		return "RELAY_OFF"
	case RelayOn:
		return "RELAY_ON"
	default:
		return "RELAY_ERROR"
	}
}

// GPIOState is the level of a single GPIO line.
type GPIOState int

const (
	GPIOLow GPIOState = iota
	GPIOHigh
	// GPIOError is returned when a read response cannot be classified.
	// It is never a valid write target.
	GPIOError
)

// Numeric returns the numeric code of the state (0, 1 or 2).
func (s GPIOState) Numeric() int { return int(s) }

// Text returns the protocol token for the state. Writes use "set" and "clear".
func (s GPIOState) Text() string {
	switch s {
	case GPIOLow:
		return "clear"
	case GPIOHigh:
		return "set"
	default:
		return "error"
	}
}

func (s GPIOState) String() string {
	switch s {
	case GPIOLow:
		return "GPIO_LOW"
	case GPIOHigh:
		return "GPIO_HIGH"
	default:
		return "GPIO_ERROR"
	}
}

// coerceBool maps a loosely typed state value onto on/off.
// onTokens are the upper-case strings treated as on; every other string is off.
// ok is false when v has a type that cannot be coerced.
func coerceBool(v any, onTokens ...string) (on bool, ok bool) {
	switch x := v.(type) {
	case string:
		up := strings.ToUpper(x)
		for _, tok := range onTokens {
			if up == tok {
				return true, true
			}
		}
		return false, true
	case bool:
		return x, true
	case float32:
		return coerceFloat(float64(x))
	case float64:
		return coerceFloat(x)
	case int:
		return x != 0, true
	case int8:
		return x != 0, true
	case int16:
		return x != 0, true
	case int32:
		return x != 0, true
	case int64:
		return x != 0, true
	case uint:
		return x != 0, true
	case uint8:
		return x != 0, true
	case uint16:
		return x != 0, true
	case uint32:
		return x != 0, true
	case uint64:
		return x != 0, true
	}
	return false, false
}

// coerceFloat truncates x toward zero. NaN and infinities have no integer
// value and are rejected.
func coerceFloat(x float64) (on bool, ok bool) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return false, false
	}
	return math.Trunc(x) != 0, true
}

// CoerceRelayState converts v into a writable RelayState.
//
// Accepted inputs: RelayState (on/off only), strings ("ON" and "TRUE" in any
// case are on, anything else is off), bools, integers (nonzero is on) and
// floats (truncated, then as integers; NaN and infinities are rejected).
func CoerceRelayState(v any) (RelayState, error) {
	if s, ok := v.(RelayState); ok {
		if s != RelayOn && s != RelayOff {
			return RelayError, fmt.Errorf("%w: %v", ErrInvalidStateValue, s)
		}
		return s, nil
	}
	on, ok := coerceBool(v, "ON", "TRUE")
	if !ok {
		return RelayError, fmt.Errorf("%w: %#v", ErrInvalidStateValue, v)
	}
	if on {
		return RelayOn, nil
	}
	return RelayOff, nil
}

// CoerceGPIOState converts v into a writable GPIOState.
// The rules match CoerceRelayState, with "HIGH" also accepted as on.
func CoerceGPIOState(v any) (GPIOState, error) {
	if s, ok := v.(GPIOState); ok {
		if s != GPIOHigh && s != GPIOLow {
			return GPIOError, fmt.Errorf("%w: %v", ErrInvalidStateValue, s)
		}
		return s, nil
	}
	on, ok := coerceBool(v, "ON", "TRUE", "HIGH")
	if !ok {
		return GPIOError, fmt.Errorf("%w: %#v", ErrInvalidStateValue, v)
	}
	if on {
		return GPIOHigh, nil
	}
	return GPIOLow, nil
}
