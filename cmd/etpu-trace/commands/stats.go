package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/etpu-project/etpu-go/pkg/log"
)

// Stats aggregates a trace.
type Stats struct {
	Events     int
	ByLayer    map[log.Layer]int
	ByCategory map[log.Category]int
	BySlave    map[string]*SlaveStats
	Sessions   map[string]int
	Errors     int
	FirstCycle uint64
	LastCycle  uint64
	Start, End time.Time
}

// SlaveStats counts the transactions one slave answered.
type SlaveStats struct {
	Reads    int
	Writes   int
	Errors   int
	Stalls   int
	Cycles   uint64
	MaxCycle uint64
}

// Collect gathers statistics over the matching events of path.
func Collect(path string, opts Options) (*Stats, error) {
	s := &Stats{
		ByLayer:    make(map[log.Layer]int),
		ByCategory: make(map[log.Category]int),
		BySlave:    make(map[string]*SlaveStats),
		Sessions:   make(map[string]int),
	}
	err := each(path, opts, func(e log.Event) error {
		if s.Events == 0 || e.Cycle < s.FirstCycle {
			s.FirstCycle = e.Cycle
		}
		if e.Cycle > s.LastCycle {
			s.LastCycle = e.Cycle
		}
		if s.Start.IsZero() || e.Timestamp.Before(s.Start) {
			s.Start = e.Timestamp
		}
		if e.Timestamp.After(s.End) {
			s.End = e.Timestamp
		}
		s.Events++
		s.ByLayer[e.Layer]++
		s.ByCategory[e.Category]++
		s.Sessions[e.SessionID]++
		if e.Error != nil {
			s.Errors++
		}

		if tx := e.Transaction; tx != nil {
			name := tx.Slave
			if name == "" {
				name = "(unmapped)"
			}
			ss, ok := s.BySlave[name]
			if !ok {
				ss = &SlaveStats{}
				s.BySlave[name] = ss
			}
			if tx.Write {
				ss.Writes++
			} else {
				ss.Reads++
			}
			switch tx.Outcome {
			case log.OutcomeError:
				ss.Errors++
			case log.OutcomeStalled:
				ss.Stalls++
			}
			ss.Cycles += tx.Cycles
			if tx.Cycles > ss.MaxCycle {
				ss.MaxCycle = tx.Cycles
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// RunStats prints statistics over the matching events of path.
func RunStats(path string, opts Options, w io.Writer) error {
	s, err := Collect(path, opts)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "=== Trace Statistics ===")
	fmt.Fprintf(w, "Events:   %d\n", s.Events)
	if s.Events == 0 {
		return nil
	}
	fmt.Fprintf(w, "Cycles:   %d - %d\n", s.FirstCycle, s.LastCycle)
	fmt.Fprintf(w, "Wall:     %s\n", s.End.Sub(s.Start).Round(time.Millisecond))
	fmt.Fprintf(w, "Sessions: %d\n", len(s.Sessions))

	fmt.Fprintln(w, "\nBy layer:")
	for _, l := range []log.Layer{log.LayerBus, log.LayerClock, log.LayerBridge} {
		if n := s.ByLayer[l]; n > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", l, n)
		}
	}
	fmt.Fprintln(w, "\nBy category:")
	for _, c := range []log.Category{log.CategoryTransaction, log.CategoryState, log.CategoryError, log.CategoryFrame, log.CategoryMessage} {
		if n := s.ByCategory[c]; n > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", c, n)
		}
	}

	if len(s.BySlave) > 0 {
		names := make([]string, 0, len(s.BySlave))
		for n := range s.BySlave {
			names = append(names, n)
		}
		sort.Strings(names)

		fmt.Fprintln(w, "\nBy slave:")
		fmt.Fprintf(w, "  %-12s %6s %6s %6s %6s %9s %6s\n", "slave", "reads", "writes", "errors", "stalls", "avg cyc", "max")
		for _, n := range names {
			ss := s.BySlave[n]
			avg := float64(ss.Cycles) / float64(ss.Reads+ss.Writes)
			fmt.Fprintf(w, "  %-12s %6d %6d %6d %6d %9.1f %6d\n", n, ss.Reads, ss.Writes, ss.Errors, ss.Stalls, avg, ss.MaxCycle)
		}
	}
	if s.Errors > 0 {
		fmt.Fprintf(w, "\nErrors: %d\n", s.Errors)
	}
	return nil
}
