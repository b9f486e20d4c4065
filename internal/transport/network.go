package transport

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"time"
)

// Network defaults.
const (
	DefaultNetworkPort  = "23"
	DefaultLoginTimeout = 5 * time.Second
	DefaultDialTimeout  = 5 * time.Second

	// LoginSuccessMarker is printed by the board once the password is accepted.
	LoginSuccessMarker = "successfully"

	flushTimeout = 20 * time.Millisecond
)

// Credentials authenticate a network session.
type Credentials struct {
	Username string
	Password string
}

// DefaultCredentials are the factory login of Numato Ethernet boards.
var DefaultCredentials = Credentials{Username: "admin", Password: "admin"}

// NetworkConfig configures DialNetwork.
type NetworkConfig struct {
	// Address is host or host:port; the port defaults to 23.
	Address      string
	Credentials  Credentials
	DialTimeout  time.Duration
	LoginTimeout time.Duration
}

// Network is a transport over a telnet-style TCP session.
type Network struct {
	conn    net.Conn
	addr    string
	pending []byte // bytes read past the last terminator
	iac     iacFilter
}

// DialNetwork connects to the board and runs the login handshake:
// "login" prompt, username, "Password:" prompt, password, success marker,
// idle prompt. Any failure returns an *UnavailableError.
func DialNetwork(cfg NetworkConfig) (*Network, error) {
	if cfg.Address == "" {
		return nil, unavailable(cfg.Address, errors.New("network address is required"))
	}
	addr := cfg.Address
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, DefaultNetworkPort)
	}
	if cfg.Credentials == (Credentials{}) {
		cfg.Credentials = DefaultCredentials
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.LoginTimeout <= 0 {
		cfg.LoginTimeout = DefaultLoginTimeout
	}

	conn, err := net.DialTimeout("tcp", addr, cfg.DialTimeout)
	if err != nil {
		return nil, unavailable(cfg.Address, err)
	}

	n := newNetwork(conn, cfg.Address)
	if err := n.login(cfg.Credentials, cfg.LoginTimeout); err != nil {
		conn.Close()
		return nil, unavailable(cfg.Address, err)
	}
	return n, nil
}

func newNetwork(conn net.Conn, addr string) *Network {
	n := &Network{conn: conn, addr: addr}
	n.iac.reply = conn
	return n
}

func (n *Network) login(cred Credentials, timeout time.Duration) error {
	steps := []struct {
		expect string
		send   string
	}{
		{expect: "login", send: cred.Username},
		{expect: "Password:", send: cred.Password},
		{expect: LoginSuccessMarker},
		{expect: ">"},
	}
	for _, st := range steps {
		if err := n.waitFor(st.expect, timeout); err != nil {
			return err
		}
		if st.send != "" {
			if err := n.Write([]byte(st.send + "\r\n")); err != nil {
				return fmt.Errorf("login: send: %w", err)
			}
		}
	}
	return nil
}

// waitFor reads until marker has been seen or timeout lapses.
func (n *Network) waitFor(marker string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var seen []byte
	for {
		if i := bytes.Index(seen, []byte(marker)); i >= 0 {
			n.pending = append(seen[i+len(marker):], n.pending...)
			return nil
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("login: timed out waiting for %q", marker)
		}
		chunk, err := n.readChunk(deadline)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			return fmt.Errorf("login: waiting for %q: %w", marker, err)
		}
		seen = append(seen, chunk...)
	}
}

// readChunk returns pending bytes if any, otherwise one read from the socket
// with telnet negotiation stripped.
func (n *Network) readChunk(deadline time.Time) ([]byte, error) {
	if len(n.pending) > 0 {
		p := n.pending
		n.pending = nil
		return p, nil
	}
	if err := n.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	buf := make([]byte, 256)
	c, err := n.conn.Read(buf)
	if c > 0 {
		data, ferr := n.iac.filter(buf[:c])
		if ferr != nil {
			return nil, ferr
		}
		return data, nil
	}
	return nil, err
}

// Write sends p in full.
func (n *Network) Write(p []byte) error {
	_, err := n.conn.Write(p)
	return err
}

// ReadUntil reads until term arrives or timeout lapses. Bytes after term
// are kept for the next call.
func (n *Network) ReadUntil(term byte, timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	var out []byte
	for {
		chunk, err := n.readChunk(deadline)
		if len(chunk) > 0 {
			if i := bytes.IndexByte(chunk, term); i >= 0 {
				n.pending = append(n.pending, chunk[i+1:]...)
				return append(out, chunk[:i+1]...), nil
			}
			out = append(out, chunk...)
		}
		if err != nil {
			if isTimeout(err) {
				return out, nil
			}
			return out, err
		}
		if !time.Now().Before(deadline) {
			return out, nil
		}
	}
}

// Flush drops pending bytes and anything that arrives within a short window.
func (n *Network) Flush() error {
	n.pending = nil
	for {
		chunk, err := n.readChunk(time.Now().Add(flushTimeout))
		if err != nil {
			if isTimeout(err) {
				return nil
			}
			return err
		}
		if len(chunk) == 0 {
			return nil
		}
	}
}

// Close closes the session.
func (n *Network) Close() error {
	return n.conn.Close()
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Telnet command bytes (RFC 854).
const (
	telSE   = 240
	telSB   = 250
	telWILL = 251
	telWONT = 252
	telDO   = 253
	telDONT = 254
	telIAC  = 255
)

// iacFilter strips telnet negotiation from the data stream and refuses every
// option the peer offers or requests. State carries across reads so a
// sequence split between two reads is still recognised.
type iacFilter struct {
	reply interface{ Write([]byte) (int, error) }
	state int
	verb  byte
}

const (
	iacData = iota
	iacCmd
	iacOpt
	iacSub
	iacSubIAC
)

func (f *iacFilter) filter(in []byte) ([]byte, error) {
	out := in[:0:0]
	for _, b := range in {
		switch f.state {
		case iacData:
			if b == telIAC {
				f.state = iacCmd
				continue
			}
			out = append(out, b)
		case iacCmd:
			switch b {
			case telIAC:
				out = append(out, telIAC)
				f.state = iacData
			case telWILL, telWONT, telDO, telDONT:
				f.verb = b
				f.state = iacOpt
			case telSB:
				f.state = iacSub
			default:
				f.state = iacData
			}
		case iacOpt:
			f.state = iacData
			var answer byte
			switch f.verb {
			case telWILL:
				answer = telDONT
			case telDO:
				answer = telWONT
			default:
				continue
			}
			if f.reply != nil {
				if _, err := f.reply.Write([]byte{telIAC, answer, b}); err != nil {
					return out, fmt.Errorf("telnet negotiation: %w", err)
				}
			}
		case iacSub:
			if b == telIAC {
				f.state = iacSubIAC
			}
		case iacSubIAC:
			if b == telSE {
				f.state = iacData
			} else {
				f.state = iacSub
			}
		}
	}
	return out, nil
}
