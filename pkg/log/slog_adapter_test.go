package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/etpu-project/etpu-go/pkg/wire"
)

func logJSON(t *testing.T, event Event) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	NewSlogAdapter(slog.New(handler)).Log(event)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output %q: %v", buf.String(), err)
	}
	return entry
}

func TestSlogAdapterLogsTransaction(t *testing.T) {
	entry := logJSON(t, Event{
		Timestamp: time.Now(),
		SessionID: "sess-9",
		Cycle:     12,
		Layer:     LayerBus,
		Category:  CategoryTransaction,
		Transaction: &TransactionEvent{
			Slave:   "wfg",
			Address: 0x30000104,
			Write:   true,
			Data:    0x2A,
			Select:  0xF,
			Outcome: OutcomeAck,
			Cycles:  2,
		},
	})

	checks := map[string]any{
		"msg":     "trace",
		"session": "sess-9",
		"cycle":   float64(12),
		"layer":   "BUS",
		"op":      "write",
		"slave":   "wfg",
		"addr":    "0x30000104",
		"data":    "0x0000002a",
		"outcome": "ACK",
	}
	for k, want := range checks {
		if entry[k] != want {
			t.Errorf("%s: got %v, want %v", k, entry[k], want)
		}
	}
}

func TestSlogAdapterLogsMessage(t *testing.T) {
	status := wire.StatusBusy
	entry := logJSON(t, Event{
		Layer:     LayerBridge,
		Category:  CategoryMessage,
		Direction: DirectionOut,
		Source:    "127.0.0.1:5000",
		Message:   &MessageEvent{Type: MessageTypeResponse, MessageID: 4, Status: &status},
	})

	if entry["status"] != "BUSY" {
		t.Errorf("status: got %v", entry["status"])
	}
	if entry["source"] != "127.0.0.1:5000" {
		t.Errorf("source: got %v", entry["source"])
	}
	if entry["direction"] != "OUT" {
		t.Errorf("direction: got %v", entry["direction"])
	}
}

func TestSlogAdapterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	NewSlogAdapter(slog.New(handler)).Log(Event{})
	if buf.Len() != 0 {
		t.Errorf("debug trace leaked at info level: %q", buf.String())
	}
}
