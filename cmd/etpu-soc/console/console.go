// Package console provides the interactive command line of etpu-soc.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/etpu-project/etpu-go/pkg/bus"
	"github.com/etpu-project/etpu-go/pkg/soc"
)

// Source names console transactions in the trace.
const Source = "console"

// Console drives a SoC from typed commands.
type Console struct {
	soc *soc.SoC
	out io.Writer
}

// New returns a console writing to out.
func New(s *soc.SoC, out io.Writer) *Console {
	return &Console{soc: s, out: out}
}

// Run reads commands with line editing until quit, EOF or ctx ends.
// cancel is called when the user quits.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "soc> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()
	c.out = rl.Stdout()

	c.Exec(ctx, "help")
	for ctx.Err() == nil {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			cancel()
			return nil
		}
		if quit := c.Exec(ctx, line); quit {
			cancel()
			return nil
		}
	}
	return nil
}

// Exec runs one command line and reports whether it asked to quit.
func (c *Console) Exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	var err error
	switch cmd {
	case "help", "?":
		c.help()
	case "read", "r":
		err = c.read(ctx, args)
	case "write", "w":
		err = c.write(ctx, args)
	case "regions":
		c.regions()
	case "status", "s":
		c.status()
	case "reset":
		err = c.reset(ctx, args)
	case "tick":
		err = c.tick(args)
	case "ref":
		err = c.signal(args, func(s *soc.SoC, on bool) { s.SetReference(on) })
	case "ext":
		err = c.signal(args, func(s *soc.SoC, on bool) { s.ExternalReset(on) })
	case "quit", "exit", "q":
		fmt.Fprintln(c.out, "Exiting...")
		return true
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
	}
	return false
}

func (c *Console) help() {
	fmt.Fprintln(c.out, `
SoC Commands:
  Bus:
    read <addr>               - Read one word
    write <addr> <data> [sel] - Write one word (sel: byte lanes, default 0xf)
    regions                   - Show the address map

  Pins and clock:
    status                    - Show LEDs, GPIO, reset, lock and accelerator state
    tick [n]                  - Run n idle cycles (default 1)
    reset [cycles]            - Pulse the soft reset and wait for release
    ref on|off                - Connect or remove the reference clock
    ext on|off                - Assert or release the external reset

  General:
    help                      - Show this help
    quit                      - Exit`)
}

func parseAddr(s string) (uint64, error) {
	addr, err := parseUint(s, 32)
	if err != nil {
		return 0, err
	}
	if !bus.Aligned(addr) {
		return 0, fmt.Errorf("address 0x%x is not word aligned", addr)
	}
	return addr, nil
}

func parseUint(s string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, bits)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

func (c *Console) read(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: read <addr>")
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		return err
	}
	resp, err := c.soc.Master().Transact(ctx, bus.Read(addr), Source)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "0x%08x: 0x%08x\n", addr, resp.ReadData)
	return nil
}

func (c *Console) write(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return errors.New("usage: write <addr> <data> [sel]")
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		return err
	}
	data, err := parseUint(args[1], 32)
	if err != nil {
		return err
	}
	sel := uint64(bus.SelectAll)
	if len(args) == 3 {
		if sel, err = parseUint(args[2], 4); err != nil {
			return err
		}
	}
	if _, err := c.soc.Master().Transact(ctx, bus.Write(addr, uint32(data), uint8(sel)), Source); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "0x%08x <- 0x%08x\n", addr, data)
	return nil
}

func (c *Console) regions() {
	fmt.Fprintf(c.out, "%-12s %-10s %-10s %-8s %s\n", "name", "origin", "length", "type", "mode")
	for _, r := range c.soc.Regions().Regions() {
		fmt.Fprintf(c.out, "%-12s 0x%08x 0x%08x %-8s %s\n", r.Name, r.Origin, r.Length, r.Type, r.Mode)
	}
}

func (c *Console) status() {
	c.soc.Master().Do(func(s *soc.SoC) {
		d := s.Domain()
		fmt.Fprintf(c.out, "%s: %s @ %.3f MHz, cycle %d\n", s.Ident(), d.Name, d.Freq/1e6, s.Cycle())
		fmt.Fprintf(c.out, "reset: %v  locked: %v  hold: %v\n", s.InReset(), s.Locked(), s.HoldCompanion())
		fmt.Fprintf(c.out, "leds: %08b  gpio: 0x%02x\n", s.LEDs(), s.GPIO())
		if aux, ok := s.AcceleratorAux(); ok {
			fmt.Fprintf(c.out, "accel: status=%v enable=%v counter=%d\n", aux.Status, aux.Enable, aux.Counter)
		}
	})
}

func (c *Console) reset(ctx context.Context, args []string) error {
	cycles := uint64(1)
	if len(args) > 0 {
		var err error
		if cycles, err = parseUint(args[0], 16); err != nil {
			return err
		}
	}
	if err := c.soc.Master().Reset(ctx, int(cycles)); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "reset released")
	return nil
}

func (c *Console) tick(args []string) error {
	n := uint64(1)
	if len(args) > 0 {
		var err error
		if n, err = parseUint(args[0], 32); err != nil {
			return err
		}
	}
	c.soc.Master().Tick(int(n))
	fmt.Fprintf(c.out, "cycle %d\n", c.soc.Cycle())
	return nil
}

func (c *Console) signal(args []string, apply func(*soc.SoC, bool)) error {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		return errors.New("expected on or off")
	}
	c.soc.Master().Do(func(s *soc.SoC) { apply(s, args[0] == "on") })
	return nil
}
