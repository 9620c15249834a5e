package log

import (
	"strings"
	"time"

	"github.com/etpu-project/etpu-go/pkg/wire"
)

// Event is a trace event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp is the wall-clock time the event was recorded.
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the simulation run or bridge connection (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Cycle is the sys-domain cycle count when the event occurred.
	Cycle uint64 `cbor:"3,keyasint"`

	// Direction indicates flow relative to the SoC.
	Direction Direction `cbor:"4,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"5,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"6,keyasint"`

	// Source names the originator (a bridge peer address, "console", ...).
	Source string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Transaction *TransactionEvent `cbor:"10,keyasint,omitempty"`
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"`
	Frame       *FrameEvent       `cbor:"12,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"13,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// Direction indicates flow relative to the SoC.
type Direction uint8

const (
	// DirectionIn is traffic into the SoC (bus writes, bridge requests).
	DirectionIn Direction = 0
	// DirectionOut is traffic out of the SoC (bus reads, bridge responses).
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates where the event was captured.
type Layer uint8

const (
	// LayerBus is the interconnect.
	LayerBus Layer = 0
	// LayerClock is the clock/reset domain.
	LayerClock Layer = 1
	// LayerBridge is the remote bus bridge.
	LayerBridge Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerBus:
		return "BUS"
	case LayerClock:
		return "CLOCK"
	case LayerBridge:
		return "BRIDGE"
	default:
		return "UNKNOWN"
	}
}

// ParseLayer parses a layer name, ignoring case.
func ParseLayer(s string) (Layer, bool) {
	switch strings.ToLower(s) {
	case "bus":
		return LayerBus, true
	case "clock":
		return LayerClock, true
	case "bridge":
		return LayerBridge, true
	}
	return 0, false
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryTransaction is a bus transaction.
	CategoryTransaction Category = 0
	// CategoryState is a state change.
	CategoryState Category = 1
	// CategoryError is an error.
	CategoryError Category = 2
	// CategoryFrame is a raw bridge frame.
	CategoryFrame Category = 3
	// CategoryMessage is a decoded bridge message.
	CategoryMessage Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryTransaction:
		return "TRANSACTION"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	case CategoryFrame:
		return "FRAME"
	case CategoryMessage:
		return "MESSAGE"
	default:
		return "UNKNOWN"
	}
}

// ParseCategory parses a category name, ignoring case.
func ParseCategory(s string) (Category, bool) {
	switch strings.ToLower(s) {
	case "transaction":
		return CategoryTransaction, true
	case "state":
		return CategoryState, true
	case "error":
		return CategoryError, true
	case "frame":
		return CategoryFrame, true
	case "message":
		return CategoryMessage, true
	}
	return 0, false
}

// Outcome is how a bus transaction ended.
type Outcome uint8

const (
	// OutcomeAck is a normal acknowledgment.
	OutcomeAck Outcome = 0
	// OutcomeError is an error response.
	OutcomeError Outcome = 1
	// OutcomeStalled means no response arrived within the stall limit.
	OutcomeStalled Outcome = 2
	// OutcomeAborted means the master dropped the cycle.
	OutcomeAborted Outcome = 3
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeAck:
		return "ACK"
	case OutcomeError:
		return "ERROR"
	case OutcomeStalled:
		return "STALLED"
	case OutcomeAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// TransactionEvent captures one bus transaction.
type TransactionEvent struct {
	// Slave is the selected slave name, empty for unmapped addresses.
	Slave string `cbor:"1,keyasint,omitempty"`

	// Address is the byte address.
	Address uint32 `cbor:"2,keyasint"`

	// Write is set for write transactions.
	Write bool `cbor:"3,keyasint,omitempty"`

	// Data is the write data or the read data returned.
	Data uint32 `cbor:"4,keyasint,omitempty"`

	// Select is the byte-lane mask.
	Select uint8 `cbor:"5,keyasint"`

	// Outcome is how the transaction ended.
	Outcome Outcome `cbor:"6,keyasint"`

	// Cycles is the number of cycles the master held the request.
	Cycles uint64 `cbor:"7,keyasint"`
}

// MessageEvent captures a decoded bridge message.
type MessageEvent struct {
	// Type distinguishes requests from responses.
	Type MessageType `cbor:"1,keyasint"`

	// MessageID correlates request/response pairs.
	MessageID uint32 `cbor:"2,keyasint"`

	// For requests: the operation being performed.
	Op *wire.Op `cbor:"3,keyasint,omitempty"`

	// For requests: the target byte address.
	Address *uint32 `cbor:"4,keyasint,omitempty"`

	// For responses: the status code.
	Status *wire.Status `cbor:"5,keyasint,omitempty"`

	// ProcessingTime is the duration from request receipt to response send
	// (response only). Stored as nanoseconds.
	ProcessingTime *time.Duration `cbor:"6,keyasint,omitempty"`
}

// MessageType distinguishes requests from responses.
type MessageType uint8

const (
	// MessageTypeRequest indicates a request message.
	MessageTypeRequest MessageType = 0
	// MessageTypeResponse indicates a response message.
	MessageTypeResponse MessageType = 1
)

// String returns the message type name.
func (m MessageType) String() string {
	switch m {
	case MessageTypeRequest:
		return "REQUEST"
	case MessageTypeResponse:
		return "RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data on the bridge transport.
type FrameEvent struct {
	// Size is the frame size in bytes (including length prefix).
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// StateChangeEvent captures reset, lock and connection transitions.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityReset is the sys-domain reset.
	StateEntityReset StateEntity = 0
	// StateEntityPLL is the PLL lock.
	StateEntityPLL StateEntity = 1
	// StateEntityConnection is a bridge connection.
	StateEntityConnection StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityReset:
		return "RESET"
	case StateEntityPLL:
		return "PLL"
	case StateEntityConnection:
		return "CONNECTION"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
