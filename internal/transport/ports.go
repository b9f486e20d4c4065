package transport

import (
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// NumatoVID is the USB vendor id used by Numato Lab boards.
const NumatoVID = "2A19"

// PortInfo describes one serial port found on the host.
type PortInfo struct {
	Name    string
	USB     bool
	VID     string
	PID     string
	Serial  string
	Product string
}

// IsNumato reports whether the port belongs to a Numato board.
func (p PortInfo) IsNumato() bool {
	return p.USB && strings.EqualFold(p.VID, NumatoVID)
}

func (p PortInfo) String() string {
	if !p.USB {
		return p.Name
	}
	s := fmt.Sprintf("%s usb %s:%s", p.Name, p.VID, p.PID)
	if p.Product != "" {
		s += " " + p.Product
	}
	if p.Serial != "" {
		s += " sn=" + p.Serial
	}
	return s
}

// portLister is swapped out in tests.
var portLister = enumerator.GetDetailedPortsList

// ListPorts enumerates serial ports on the host.
func ListPorts() ([]PortInfo, error) {
	details, err := portLister()
	if err != nil {
		return nil, fmt.Errorf("enumerate ports: %w", err)
	}
	out := make([]PortInfo, 0, len(details))
	for _, d := range details {
		out = append(out, PortInfo{
			Name:    d.Name,
			USB:     d.IsUSB,
			VID:     d.VID,
			PID:     d.PID,
			Serial:  d.SerialNumber,
			Product: d.Product,
		})
	}
	return out, nil
}
