package transport

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

func TestParseKind(t *testing.T) {
	tests := map[string]Kind{
		"":         KindSerial,
		"serial":   KindSerial,
		"network":  KindNetwork,
		"telnet":   KindNetwork,
		"loopback": KindLoopback,
		"loop":     KindLoopback,
	}
	for in, want := range tests {
		got, err := ParseKind(in)
		if err != nil {
			t.Errorf("ParseKind(%q): unexpected error %v", in, err)
		}
		if got != want {
			t.Errorf("ParseKind(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseKind("usb"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestUnavailableError(t *testing.T) {
	cause := errors.New("device busy")
	err := unavailable("/dev/ttyACM0", cause)
	if !errors.Is(err, ErrUnavailable) {
		t.Error("expected errors.Is(err, ErrUnavailable)")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be wrapped")
	}
	if got := err.Error(); got != "transport unavailable: /dev/ttyACM0: device busy" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestLoopbackEcho(t *testing.T) {
	l := NewLoopback()
	if err := l.Write([]byte("relay read 0\r")); err != nil {
		t.Fatal(err)
	}
	got, err := l.ReadUntil('>', 10*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "relay read 0\r" {
		t.Errorf("got %q", got)
	}

	l.Write([]byte("a>b"))
	got, _ = l.ReadUntil('>', 0)
	if string(got) != "a>" {
		t.Errorf("expected read to stop at terminator, got %q", got)
	}

	l.Flush()
	got, _ = l.ReadUntil('>', 0)
	if len(got) != 0 {
		t.Errorf("expected empty read after flush, got %q", got)
	}

	l.Close()
	if err := l.Write([]byte("x")); err == nil {
		t.Error("expected error writing to closed loopback")
	}
}

func TestFakeScriptedResponses(t *testing.T) {
	f := NewFake(map[string]string{"ver": "ver\n\r1\n\r>"})
	f.Write([]byte("\rver\r"))
	got, _ := f.ReadUntil('>', 0)
	if string(got) != "ver\n\r1\n\r>" {
		t.Errorf("got %q", got)
	}

	f.Write([]byte("\r"))
	f.Write([]byte("relay on 0\r\n"))
	if diff := cmp.Diff([]string{"ver", "relay on 0"}, f.Commands()); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}

	f.ReadError = errors.New("boom")
	if _, err := f.ReadUntil('>', 0); err == nil {
		t.Error("expected ReadError")
	}
}

// fakePort implements the serial.Port methods Serial uses. Unused methods
// fall through to the nil embedded interface.
type fakePort struct {
	serial.Port
	reads    [][]byte
	written  bytes.Buffer
	resetIn  int
	resetOut int
	timeout  time.Duration
	closed   bool
}

func (p *fakePort) Read(b []byte) (int, error) {
	if len(p.reads) == 0 {
		return 0, nil
	}
	n := copy(b, p.reads[0])
	p.reads[0] = p.reads[0][n:]
	if len(p.reads[0]) == 0 {
		p.reads = p.reads[1:]
	}
	return n, nil
}

func (p *fakePort) Write(b []byte) (int, error) { return p.written.Write(b) }
func (p *fakePort) ResetInputBuffer() error     { p.resetIn++; return nil }
func (p *fakePort) ResetOutputBuffer() error    { p.resetOut++; return nil }
func (p *fakePort) Close() error                { p.closed = true; return nil }

func (p *fakePort) SetReadTimeout(d time.Duration) error {
	p.timeout = d
	return nil
}

func withSerialOpener(t *testing.T, fn func(string, *serial.Mode) (serial.Port, error)) {
	t.Helper()
	orig := serialOpener
	serialOpener = fn
	t.Cleanup(func() { serialOpener = orig })
}

func TestOpenSerialMode(t *testing.T) {
	port := &fakePort{}
	var gotName string
	var gotMode serial.Mode
	withSerialOpener(t, func(name string, mode *serial.Mode) (serial.Port, error) {
		gotName, gotMode = name, *mode
		return port, nil
	})

	s, err := OpenSerial(SerialConfig{Port: "/dev/ttyACM0"})
	if err != nil {
		t.Fatal(err)
	}
	if gotName != "/dev/ttyACM0" || s.Name() != "/dev/ttyACM0" {
		t.Errorf("unexpected port name %q", gotName)
	}
	want := serial.Mode{BaudRate: 9600, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit}
	if gotMode != want {
		t.Errorf("mode: got %+v, want %+v", gotMode, want)
	}
	if port.timeout != SerialPollTimeout {
		t.Errorf("read timeout: got %v, want %v", port.timeout, SerialPollTimeout)
	}
}

func TestOpenSerialFailure(t *testing.T) {
	withSerialOpener(t, func(string, *serial.Mode) (serial.Port, error) {
		return nil, errors.New("no such file or directory")
	})
	_, err := OpenSerial(SerialConfig{Port: "/dev/ttyUSB9"})
	var ue *UnavailableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnavailableError, got %v", err)
	}
	if ue.Address != "/dev/ttyUSB9" {
		t.Errorf("Address: got %q", ue.Address)
	}
}

func TestSerialReadUntil(t *testing.T) {
	port := &fakePort{reads: [][]byte{[]byte("relay re"), []byte("ad 0\n\ron\n\r>trailing")}}
	s := &Serial{port: port, name: "fake", poll: time.Millisecond}

	got, err := s.ReadUntil('>', time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "relay read 0\n\ron\n\r>" {
		t.Errorf("got %q", got)
	}
}

func TestSerialReadUntilKeepsTrailingBytes(t *testing.T) {
	port := &fakePort{reads: [][]byte{[]byte("one>tw"), []byte("o>three>")}}
	s := &Serial{port: port, name: "fake", poll: time.Millisecond}

	for _, want := range []string{"one>", "two>", "three>"} {
		got, err := s.ReadUntil('>', time.Second)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

func TestSerialFlushDropsTrailingBytes(t *testing.T) {
	port := &fakePort{reads: [][]byte{[]byte("one>stale")}}
	s := &Serial{port: port, name: "fake", poll: time.Millisecond}

	if _, err := s.ReadUntil('>', time.Second); err != nil {
		t.Fatal(err)
	}
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	got, err := s.ReadUntil('>', 5*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected nothing after flush, got %q", got)
	}
}

func TestSerialReadUntilTimeoutReturnsPartial(t *testing.T) {
	port := &fakePort{reads: [][]byte{[]byte("partial")}}
	s := &Serial{port: port, name: "fake", poll: time.Millisecond}

	start := time.Now()
	got, err := s.ReadUntil('>', 20*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "partial" {
		t.Errorf("got %q", got)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("returned before timeout")
	}
}

func TestSerialFlushAndWrite(t *testing.T) {
	port := &fakePort{}
	s := &Serial{port: port, name: "fake", poll: time.Millisecond}
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	if port.resetIn != 1 || port.resetOut != 1 {
		t.Errorf("expected both buffers reset once, got in=%d out=%d", port.resetIn, port.resetOut)
	}
	if err := s.Write([]byte("\rver\r")); err != nil {
		t.Fatal(err)
	}
	if port.written.String() != "\rver\r" {
		t.Errorf("written %q", port.written.String())
	}
	s.Close()
	if !port.closed {
		t.Error("expected port closed")
	}
}

func TestListPorts(t *testing.T) {
	orig := portLister
	portLister = func() ([]*enumerator.PortDetails, error) {
		return []*enumerator.PortDetails{
			{Name: "/dev/ttyACM0", IsUSB: true, VID: "2a19", PID: "0c05", SerialNumber: "NL01", Product: "Numato Lab 8 Channel USB Relay Module"},
			{Name: "/dev/ttyS0"},
		}, nil
	}
	t.Cleanup(func() { portLister = orig })

	ports, err := ListPorts()
	if err != nil {
		t.Fatal(err)
	}
	if len(ports) != 2 {
		t.Fatalf("expected 2 ports, got %d", len(ports))
	}
	if !ports[0].IsNumato() {
		t.Error("expected first port to be recognised as Numato")
	}
	if ports[1].IsNumato() {
		t.Error("expected ttyS0 not to be Numato")
	}
	if got := ports[0].String(); got != "/dev/ttyACM0 usb 2a19:0c05 Numato Lab 8 Channel USB Relay Module sn=NL01" {
		t.Errorf("String() = %q", got)
	}
}

func TestIACFilter(t *testing.T) {
	var replies bytes.Buffer
	f := iacFilter{reply: &replies}

	// WILL ECHO, DO SGA, then data, with the last sequence split across reads.
	in1 := []byte{telIAC, telWILL, 1, 'o', 'k', telIAC}
	in2 := []byte{telDO, 3, '>', telIAC, telIAC}

	out1, err := f.filter(in1)
	if err != nil {
		t.Fatal(err)
	}
	out2, err := f.filter(in2)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(out1) + string(out2); got != "ok>\xff" {
		t.Errorf("data: got %q", got)
	}
	want := []byte{telIAC, telDONT, 1, telIAC, telWONT, 3}
	if !bytes.Equal(replies.Bytes(), want) {
		t.Errorf("replies: got %v, want %v", replies.Bytes(), want)
	}
}

func TestIACFilterSkipsSubnegotiation(t *testing.T) {
	f := iacFilter{}
	out, _ := f.filter([]byte{'a', telIAC, telSB, 24, 1, telIAC, telSE, 'b'})
	if string(out) != "ab" {
		t.Errorf("got %q", out)
	}
}

func TestNetworkReadUntilKeepsTrailingBytes(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	n := newNetwork(client, "pipe")
	go server.Write([]byte("one>two>"))

	got, err := n.ReadUntil('>', time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "one>" {
		t.Errorf("first read: got %q", got)
	}
	got, err = n.ReadUntil('>', time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "two>" {
		t.Errorf("second read: got %q", got)
	}
}

func TestNetworkReadUntilTimeout(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	n := newNetwork(client, "pipe")
	go server.Write([]byte("no prompt"))

	got, err := n.ReadUntil('>', 50*time.Millisecond)
	if err != nil {
		t.Fatalf("timeout should not be an error, got %v", err)
	}
	if string(got) != "no prompt" {
		t.Errorf("got %q", got)
	}
}

func TestDialNetworkRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	_, err = DialNetwork(NetworkConfig{Address: addr, DialTimeout: time.Second})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
