package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/etpu-project/etpu-go/pkg/log"
)

var csvHeader = []string{"timestamp", "session", "cycle", "direction", "layer", "category", "kind", "slave", "address", "data", "outcome", "message_id", "status"}

// RunExport writes the matching events of path to w as jsonl or csv.
func RunExport(path, format string, opts Options, w io.Writer) error {
	switch format {
	case "jsonl":
		enc := json.NewEncoder(w)
		return each(path, opts, func(e log.Event) error {
			return enc.Encode(e)
		})
	case "csv":
		cw := csv.NewWriter(w)
		if err := cw.Write(csvHeader); err != nil {
			return err
		}
		err := each(path, opts, func(e log.Event) error {
			return cw.Write(csvRow(e))
		})
		cw.Flush()
		if err != nil {
			return err
		}
		return cw.Error()
	default:
		return fmt.Errorf("unknown format %q (jsonl, csv)", format)
	}
}

func csvRow(e log.Event) []string {
	row := []string{
		e.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
		e.SessionID,
		strconv.FormatUint(e.Cycle, 10),
		e.Direction.String(),
		e.Layer.String(),
		e.Category.String(),
		eventLabel(e),
		"", "", "", "", "", "",
	}
	if tx := e.Transaction; tx != nil {
		row[7] = tx.Slave
		row[8] = fmt.Sprintf("0x%08x", tx.Address)
		row[9] = fmt.Sprintf("0x%08x", tx.Data)
		row[10] = tx.Outcome.String()
	}
	if m := e.Message; m != nil {
		row[11] = strconv.FormatUint(uint64(m.MessageID), 10)
		if m.Address != nil {
			row[8] = fmt.Sprintf("0x%08x", *m.Address)
		}
		if m.Status != nil {
			row[12] = m.Status.String()
		}
	}
	return row
}

// RunFilter copies the matching events of path to a new trace file and
// returns how many were written.
func RunFilter(path, output string, opts Options) (int, error) {
	out, err := log.NewFileLogger(output)
	if err != nil {
		return 0, fmt.Errorf("create output: %w", err)
	}
	n := 0
	err = each(path, opts, func(e log.Event) error {
		out.Log(e)
		n++
		return nil
	})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return n, err
}
