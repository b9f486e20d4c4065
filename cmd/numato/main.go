// Command numato sends one command to a Numato relay/GPIO board and prints
// the result.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/cdleonard/numato-control/internal/numato"
	"github.com/cdleonard/numato-control/internal/transport"
)

const usage = `usage: numato [flags] <command>

commands:
  ver
  relay on|off|read <index>
  relay write <index> <state>
  gpio set|clear|read <index>
  gpio write <index> <state>
  adc read <index>
  ports

flags:
`

// errErrorState is returned under -strict when the board answers with an
// unrecognised response.
var errErrorState = errors.New("board returned an error state")

// openController is replaced in tests.
var openController = numato.Open

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("numato", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	kindName := fs.String("transport", "serial", "Transport: serial, network or loopback")
	address := fs.String("address", "/dev/ttyACM0", "Serial port path, host[:port], or loop://")
	user := fs.String("user", transport.DefaultCredentials.Username, "Network login user")
	password := fs.String("password", transport.DefaultCredentials.Password, "Network login password")
	timeout := fs.Duration("timeout", 0, "Response timeout (0 = transport default)")
	reset := fs.String("reset", "auto", "Reset step before each command: auto, always or never")
	verbose := fs.Bool("v", false, "Log every exchange with the board")
	strict := fs.Bool("strict", false, "Exit non-zero when the board returns an error state")

	if err := fs.Parse(args); err != nil {
		return err
	}
	cmd := fs.Args()
	if len(cmd) == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	if cmd[0] == "ports" {
		return listPorts(stdout)
	}
	if err := checkArity(cmd); err != nil {
		fs.Usage()
		return err
	}

	kind, err := transport.ParseKind(*kindName)
	if err != nil {
		return err
	}
	resetMode, err := numato.ParseResetMode(*reset)
	if err != nil {
		return err
	}
	opts := numato.Options{
		Kind:        kind,
		Address:     *address,
		Credentials: transport.Credentials{Username: *user, Password: *password},
		Reset:       resetMode,
		Timeout:     *timeout,
	}
	if *verbose {
		opts.Logger = log.New(stderr, "", log.LstdFlags|log.Lmicroseconds)
	}

	ctrl, err := openController(opts)
	if err != nil {
		return fmt.Errorf("open %s %s: %w", kind, *address, err)
	}
	defer ctrl.Close()

	return execute(ctrl, cmd, *strict, stdout)
}

func checkArity(cmd []string) error {
	want := map[string]int{
		"ver":         1,
		"relay on":    3,
		"relay off":   3,
		"relay read":  3,
		"relay write": 4,
		"gpio set":    3,
		"gpio clear":  3,
		"gpio read":   3,
		"gpio write":  4,
		"adc read":    3,
	}
	key := cmd[0]
	if len(cmd) > 1 && key != "ver" {
		key += " " + cmd[1]
	}
	n, ok := want[key]
	if !ok {
		return fmt.Errorf("unknown command %q", key)
	}
	if len(cmd) != n {
		return fmt.Errorf("%s: expected %d arguments, got %d", key, n-1, len(cmd)-1)
	}
	return nil
}

// execute runs one already validated command against ctrl.
func execute(ctrl *numato.Controller, cmd []string, strict bool, out io.Writer) error {
	if cmd[0] == "ver" {
		v, err := ctrl.BoardVersion()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, v)
		return nil
	}

	index := cmd[2]
	switch cmd[0] + " " + cmd[1] {
	case "relay on":
		return ctrl.TurnOnRelay(index)
	case "relay off":
		return ctrl.TurnOffRelay(index)
	case "relay write":
		return ctrl.WriteRelayState(index, stateArg(cmd[3]))
	case "relay read":
		s, err := ctrl.RelayState(index)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, s.Text())
		if strict && s == numato.RelayError {
			return errErrorState
		}
		return nil

	case "gpio set":
		return ctrl.SetGPIO(index)
	case "gpio clear":
		return ctrl.ClearGPIO(index)
	case "gpio write":
		return ctrl.WriteGPIOState(index, stateArg(cmd[3]))
	case "gpio read":
		s, err := ctrl.GPIOState(index)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, s.Text())
		if strict && s == numato.GPIOError {
			return errErrorState
		}
		return nil

	case "adc read":
		v, err := ctrl.ReadADC(index)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, v)
		if strict && v < 0 {
			return errErrorState
		}
		return nil
	}
	return fmt.Errorf("unknown command %q", cmd)
}

// stateArg turns a numeric command-line state into an int so that "1" and
// "0" coerce by value. Anything else is passed through as text.
func stateArg(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return s
}

func listPorts(out io.Writer) error {
	ports, err := transport.ListPorts()
	if err != nil {
		return fmt.Errorf("list ports: %w", err)
	}
	if len(ports) == 0 {
		fmt.Fprintln(out, "no serial ports found")
		return nil
	}
	for _, p := range ports {
		mark := " "
		if p.IsNumato() {
			mark = "*"
		}
		fmt.Fprintf(out, "%s %s\n", mark, p)
	}
	return nil
}
