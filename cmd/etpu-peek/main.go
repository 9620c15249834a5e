// Command etpu-peek reads and writes a remote SoC's bus through its bridge.
//
// Usage:
//
//	etpu-peek [flags] <command> [args]
//
// Commands:
//
//	info                        Show ident, clock and regions
//	read <addr> [count]         Read count words (default 1)
//	write <addr> <data> [sel]   Write one word
//	reset [cycles]              Pulse the soft reset
//	browse                      List bridges announced via mDNS
//
// Flags:
//
//	-addr string      Bridge address (host:port)
//	-find string      Locate the bridge via mDNS by build ID or ident ("any" for the first)
//	-interface string Network interface for mDNS
//	-wait duration    Keep retrying the connection this long (default 5s)
//	-timeout duration Response timeout (default 10s)
//
// Examples:
//
//	etpu-peek -addr 127.0.0.1:1234 write 0x30000000 0x2a
//	etpu-peek -find any read 0x30000000 4
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/etpu-project/etpu-go/pkg/bridge"
	"github.com/etpu-project/etpu-go/pkg/discovery"
)

var (
	addr    = flag.String("addr", "", "Bridge address (host:port)")
	find    = flag.String("find", "", `Locate the bridge via mDNS by build ID or ident ("any" for the first)`)
	iface   = flag.String("interface", "", "Network interface for mDNS")
	wait    = flag.Duration("wait", 5*time.Second, "Keep retrying the connection this long")
	timeout = flag.Duration("timeout", bridge.DefaultResponseTimeout, "Response timeout")
)

func main() {
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}
	if err := run(flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	ctx := context.Background()
	browser := discovery.NewBrowser(discovery.BrowserConfig{Interface: *iface})

	if args[0] == "browse" {
		return browse(ctx, browser, os.Stdout)
	}

	target := *addr
	if *find != "" {
		key := *find
		if key == "any" {
			key = ""
		}
		svc, err := browser.Find(ctx, key)
		if err != nil {
			return err
		}
		target = svc.Address()
		fmt.Fprintf(os.Stderr, "found %s at %s\n", svc.InstanceName, target)
	}
	if target == "" {
		return errors.New("-addr or -find is required")
	}

	dialCtx, cancel := context.WithTimeout(ctx, *wait)
	defer cancel()
	c, err := bridge.DialRetry(dialCtx, target, nil, nil)
	if err != nil {
		return err
	}
	defer c.Close()
	c.SetTimeout(*timeout)

	return execute(c, args, os.Stdout)
}

func browse(ctx context.Context, b *discovery.Browser, w io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, discovery.BrowseTimeout)
	defer cancel()

	services, err := b.Browse(ctx)
	if err != nil {
		return err
	}
	n := 0
	for svc := range services {
		fmt.Fprintf(w, "%-40s %-22s %s (%d regions)\n", svc.InstanceName, svc.Address(), svc.Ident, len(svc.Regions))
		n++
	}
	if n == 0 {
		fmt.Fprintln(w, "no bridges found")
	}
	return nil
}

func number(s string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, bits)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

// execute runs one command against a connected bridge.
func execute(c *bridge.Client, args []string, w io.Writer) error {
	cmd, args := args[0], args[1:]
	switch cmd {
	case "info":
		info, err := c.Info()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s (build %s)\n", info.Ident, info.BuildID)
		fmt.Fprintf(w, "sys clock: %d Hz\n", info.SysClkFreq)
		for _, r := range info.Regions {
			fmt.Fprintf(w, "  %-12s 0x%08x 0x%08x %-8s %s\n", r.Name, r.Origin, r.Length, r.Type, r.Mode)
		}
		return nil

	case "read":
		if len(args) < 1 || len(args) > 2 {
			return errors.New("usage: read <addr> [count]")
		}
		a, err := number(args[0], 32)
		if err != nil {
			return err
		}
		count := uint64(1)
		if len(args) == 2 {
			if count, err = number(args[1], 16); err != nil {
				return err
			}
		}
		for i := uint64(0); i < count; i++ {
			at := uint32(a + 4*i)
			v, err := c.Read(at)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "0x%08x: 0x%08x\n", at, v)
		}
		return nil

	case "write":
		if len(args) < 2 || len(args) > 3 {
			return errors.New("usage: write <addr> <data> [sel]")
		}
		a, err := number(args[0], 32)
		if err != nil {
			return err
		}
		d, err := number(args[1], 32)
		if err != nil {
			return err
		}
		if len(args) == 3 {
			sel, err := number(args[2], 4)
			if err != nil {
				return err
			}
			return c.WriteMasked(uint32(a), uint32(d), uint8(sel))
		}
		return c.Write(uint32(a), uint32(d))

	case "reset":
		cycles := uint64(1)
		if len(args) > 0 {
			var err error
			if cycles, err = number(args[0], 32); err != nil {
				return err
			}
		}
		return c.Reset(uint32(cycles))

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}
