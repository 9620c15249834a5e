package wire

// Op is a bridge operation.
type Op uint8

const (
	// OpRead performs one bus read beat.
	OpRead Op = 1

	// OpWrite performs one bus write beat.
	OpWrite Op = 2

	// OpReset pulses the SoC soft reset for Data cycles (at least one).
	OpReset Op = 3

	// OpInfo returns the SoC identity and region table.
	OpInfo Op = 4
)

// String returns the operation name.
func (o Op) String() string {
	switch o {
	case OpRead:
		return "Read"
	case OpWrite:
		return "Write"
	case OpReset:
		return "Reset"
	case OpInfo:
		return "Info"
	default:
		return "Unknown"
	}
}

// IsValid returns true if o is a known operation.
func (o Op) IsValid() bool {
	return o >= OpRead && o <= OpInfo
}

// HasAddress returns true if the operation targets a bus address.
func (o Op) HasAddress() bool {
	return o == OpRead || o == OpWrite
}
