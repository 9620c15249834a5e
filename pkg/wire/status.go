package wire

// Status is a response status code.
type Status uint8

const (
	// StatusOK indicates the operation completed.
	StatusOK Status = 0

	// StatusBusError indicates the bus answered with an error.
	StatusBusError Status = 1

	// StatusStalled indicates no slave acknowledged within the stall limit.
	StatusStalled Status = 2

	// StatusInvalid indicates a malformed request.
	StatusInvalid Status = 3

	// StatusBusy indicates the SoC is held in reset; try again later.
	StatusBusy Status = 4
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusBusError:
		return "BUS_ERROR"
	case StatusStalled:
		return "STALLED"
	case StatusInvalid:
		return "INVALID"
	case StatusBusy:
		return "BUSY"
	default:
		return "UNKNOWN"
	}
}

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool {
	return s == StatusOK
}
