package log

import (
	"testing"
	"time"
)

type mockLogger struct {
	events []Event
}

func (m *mockLogger) Log(event Event) {
	m.events = append(m.events, event)
}

func TestMultiLoggerCallsAll(t *testing.T) {
	mock1 := &mockLogger{}
	mock2 := &mockLogger{}

	multi := NewMultiLogger(mock1, nil, mock2)
	multi.Log(Event{Timestamp: time.Now(), Cycle: 3})

	for i, m := range []*mockLogger{mock1, mock2} {
		if len(m.events) != 1 || m.events[0].Cycle != 3 {
			t.Errorf("logger %d: got %+v", i, m.events)
		}
	}
}

func TestMultiLoggerEmptyList(t *testing.T) {
	multi := NewMultiLogger()
	multi.Log(Event{})
}
