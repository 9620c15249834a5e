// Command etpu-trace inspects SoC trace files.
//
// Trace files are written by etpu-soc and etpu-scenario when run with
// -trace. Each file is a stream of CBOR-encoded events.
//
// Usage:
//
//	etpu-trace <command> [flags] <file.etrace>
//
// Commands:
//
//	view     Print events in human-readable form
//	stats    Summarize events per layer, category and slave
//	export   Export events as jsonl or csv
//	filter   Copy matching events to a new trace file
//
// Examples:
//
//	# Accelerator transactions only
//	etpu-trace view -slave wfg soc.etrace
//
//	# Bridge traffic as CSV
//	etpu-trace export -layer bridge -format csv soc.etrace > bridge.csv
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/etpu-project/etpu-go/cmd/etpu-trace/commands"
)

const usage = `etpu-trace - SoC trace inspector

Usage:
  etpu-trace <command> [flags] <file.etrace>

Commands:
  view     Print events in human-readable form
  stats    Summarize events per layer, category and slave
  export   Export events as jsonl or csv
  filter   Copy matching events to a new trace file

Use "etpu-trace <command> -help" for the flags of a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "view", "stats", "export", "filter":
		if err := run(cmd, args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func run(cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n  etpu-trace %s [flags] <file.etrace>\n\nFlags:\n", cmd)
		fs.PrintDefaults()
	}

	opts := commands.NoFilter()
	fs.StringVar(&opts.Session, "session", "", "Only events of this session ID")
	fs.StringVar(&opts.Layer, "layer", "", "Only this layer (bus, clock, bridge)")
	fs.StringVar(&opts.Direction, "direction", "", "Only this direction (in, out)")
	fs.StringVar(&opts.Category, "category", "", "Only this category (transaction, state, error, frame, message)")
	fs.StringVar(&opts.Slave, "slave", "", "Only transactions answered by this slave")
	fs.Int64Var(&opts.CycleFrom, "cycle-from", -1, "Only events at or after this cycle")
	fs.Int64Var(&opts.CycleTo, "cycle-to", -1, "Only events before this cycle")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Only events at or after this time (RFC3339)")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Only events before this time (RFC3339)")

	var format, output *string
	switch cmd {
	case "export":
		format = fs.String("format", "jsonl", "Output format (jsonl, csv)")
		output = fs.String("o", "", "Output file (default: stdout)")
	case "filter":
		output = fs.String("o", "", "Output trace file (required)")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("trace file path required")
	}
	path := fs.Arg(0)

	switch cmd {
	case "view":
		return commands.RunView(path, opts, os.Stdout)
	case "stats":
		return commands.RunStats(path, opts, os.Stdout)
	case "export":
		w := os.Stdout
		if *output != "" {
			f, err := os.Create(*output)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		return commands.RunExport(path, *format, opts, w)
	default:
		if *output == "" {
			fs.Usage()
			return fmt.Errorf("output file (-o) required")
		}
		n, err := commands.RunFilter(path, *output, opts)
		if err != nil {
			return err
		}
		fmt.Printf("Filtered %d events to %s\n", n, *output)
		return nil
	}
}
