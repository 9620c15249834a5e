package log

import (
	"testing"
	"time"
)

func TestNoopLoggerDoesNotPanic(t *testing.T) {
	logger := NoopLogger{}

	event := Event{Timestamp: time.Now(), Layer: LayerBus}
	logger.Log(event)

	event.Transaction = &TransactionEvent{Address: 4}
	logger.Log(event)

	event.Transaction = nil
	event.Error = &ErrorEventData{Message: "test error"}
	logger.Log(event)
}

func TestOrNoop(t *testing.T) {
	if _, ok := OrNoop(nil).(NoopLogger); !ok {
		t.Error("OrNoop(nil) should return NoopLogger")
	}
	m := &mockLogger{}
	if OrNoop(m) != Logger(m) {
		t.Error("OrNoop should pass through non-nil loggers")
	}
}
