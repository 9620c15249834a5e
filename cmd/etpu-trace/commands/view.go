// Package commands implements the etpu-trace subcommands.
package commands

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/etpu-project/etpu-go/pkg/log"
)

// Options are the filter flags shared by every subcommand.
type Options struct {
	Session   string
	Layer     string
	Direction string
	Category  string
	Slave     string
	CycleFrom int64
	CycleTo   int64
	TimeStart string
	TimeEnd   string
}

// Filter converts the options to a trace filter. Negative cycle bounds are
// unset.
func (o Options) Filter() (log.Filter, error) {
	f := log.Filter{SessionID: o.Session, Slave: o.Slave}

	if o.Layer != "" {
		l, ok := log.ParseLayer(o.Layer)
		if !ok {
			return f, fmt.Errorf("invalid layer %q (bus, clock, bridge)", o.Layer)
		}
		f.Layer = &l
	}
	if o.Category != "" {
		c, ok := log.ParseCategory(o.Category)
		if !ok {
			return f, fmt.Errorf("invalid category %q (transaction, state, error, frame, message)", o.Category)
		}
		f.Category = &c
	}
	if o.Direction != "" {
		var d log.Direction
		switch strings.ToLower(o.Direction) {
		case "in":
			d = log.DirectionIn
		case "out":
			d = log.DirectionOut
		default:
			return f, fmt.Errorf("invalid direction %q (in, out)", o.Direction)
		}
		f.Direction = &d
	}
	if o.CycleFrom >= 0 {
		c := uint64(o.CycleFrom)
		f.CycleStart = &c
	}
	if o.CycleTo >= 0 {
		c := uint64(o.CycleTo)
		f.CycleEnd = &c
	}
	for _, b := range []struct {
		s   string
		dst **time.Time
	}{{o.TimeStart, &f.TimeStart}, {o.TimeEnd, &f.TimeEnd}} {
		if b.s == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, b.s)
		if err != nil {
			return f, fmt.Errorf("invalid time %q: %w", b.s, err)
		}
		*b.dst = &t
	}
	return f, nil
}

// NoFilter returns options that match every event.
func NoFilter() Options {
	return Options{CycleFrom: -1, CycleTo: -1}
}

// each streams the matching events of path to fn.
func each(path string, opts Options, fn func(log.Event) error) error {
	filter, err := opts.Filter()
	if err != nil {
		return err
	}
	r, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("open trace: %w", err)
	}
	defer r.Close()

	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read event: %w", err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
}

// RunView prints the matching events of path in human-readable form.
func RunView(path string, opts Options, w io.Writer) error {
	return each(path, opts, func(e log.Event) error {
		formatEvent(w, e)
		return nil
	})
}

func eventLabel(e log.Event) string {
	switch {
	case e.Transaction != nil:
		if e.Transaction.Write {
			return "Write"
		}
		return "Read"
	case e.Message != nil:
		return e.Message.Type.String()
	case e.Frame != nil:
		return "Frame"
	case e.StateChange != nil:
		return "State"
	case e.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

func formatEvent(w io.Writer, e log.Event) {
	fmt.Fprintf(w, "%s [%s] #%-8d %-3s %-6s %s\n",
		e.Timestamp.UTC().Format("15:04:05.000000"), shortID(e.SessionID), e.Cycle,
		e.Direction, e.Layer, eventLabel(e))
	if e.Source != "" {
		fmt.Fprintf(w, "  Source: %s\n", e.Source)
	}

	switch {
	case e.Transaction != nil:
		tx := e.Transaction
		slave := tx.Slave
		if slave == "" {
			slave = "(unmapped)"
		}
		fmt.Fprintf(w, "  %s 0x%08x data=0x%08x sel=%04b %s after %d cycles\n",
			slave, tx.Address, tx.Data, tx.Select, tx.Outcome, tx.Cycles)
	case e.Message != nil:
		m := e.Message
		fmt.Fprintf(w, "  MessageID: %d\n", m.MessageID)
		if m.Op != nil {
			fmt.Fprintf(w, "  Op: %s\n", m.Op)
		}
		if m.Address != nil {
			fmt.Fprintf(w, "  Address: 0x%08x\n", *m.Address)
		}
		if m.Status != nil {
			fmt.Fprintf(w, "  Status: %s\n", m.Status)
		}
		if m.ProcessingTime != nil {
			fmt.Fprintf(w, "  Took: %s\n", m.ProcessingTime.Round(time.Microsecond))
		}
	case e.Frame != nil:
		fmt.Fprintf(w, "  Size: %d bytes\n", e.Frame.Size)
		if len(e.Frame.Data) > 0 {
			suffix := ""
			if e.Frame.Truncated {
				suffix = " (truncated)"
			}
			fmt.Fprintf(w, "  Data: %s%s\n", hex.EncodeToString(e.Frame.Data), suffix)
		}
	case e.StateChange != nil:
		sc := e.StateChange
		fmt.Fprintf(w, "  %s: %s -> %s\n", sc.Entity, orDash(sc.OldState), sc.NewState)
		if sc.Reason != "" {
			fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
		}
	case e.Error != nil:
		fmt.Fprintf(w, "  %s: %s\n", e.Error.Layer, e.Error.Message)
		if e.Error.Context != "" {
			fmt.Fprintf(w, "  Context: %s\n", e.Error.Context)
		}
	}
	fmt.Fprintln(w)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
