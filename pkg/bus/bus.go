package bus

import "fmt"

// Bus geometry.
const (
	// DataWidth is the width of the data bus in bits.
	DataWidth = 32

	// Lanes is the number of byte lanes (one Select bit each).
	Lanes = DataWidth / 8

	// WordShift converts between word and byte addresses.
	WordShift = 2

	// WordSize is the addressable granularity in bytes.
	WordSize = 1 << WordShift

	// SelectAll enables every byte lane.
	SelectAll uint8 = 1<<Lanes - 1
)

// UnmappedSentinel is the read data returned by the default error slave for
// addresses no binding claims.
const UnmappedSentinel uint32 = 0xDEADC0DE

// Signals are the lines driven by the master (or forwarded by the decoder to
// a slave) during one clock cycle.
type Signals struct {
	// Address is the word address.
	Address uint32

	// WriteData is valid when WriteEnable is set.
	WriteData uint32

	// Select is the byte-lane mask, bit n enables lane n (bits 8n..8n+7).
	Select uint8

	// Cycle is held for the whole transaction.
	Cycle bool

	// Strobe marks a valid beat.
	Strobe bool

	// WriteEnable selects a write beat.
	WriteEnable bool
}

// Active reports whether the signals carry a valid beat.
func (s Signals) Active() bool {
	return s.Cycle && s.Strobe
}

// ByteAddress returns the byte address of the beat.
func (s Signals) ByteAddress() uint64 {
	return ByteAddress(s.Address)
}

// String returns a compact trace representation.
func (s Signals) String() string {
	op := "R"
	if s.WriteEnable {
		op = "W"
	}
	return fmt.Sprintf("%s @%#010x sel=%04b cyc=%t stb=%t data=%#010x",
		op, s.ByteAddress(), s.Select, s.Cycle, s.Strobe, s.WriteData)
}

// Idle is the all-deasserted signal set a slave sees when it is not selected.
var Idle = Signals{}

// Response is driven by a slave back towards the master.
type Response struct {
	// ReadData is valid while Ack is asserted on a read beat.
	ReadData uint32

	// Ack completes the current beat.
	Ack bool

	// Err completes the current beat with an error (default slave only).
	Err bool
}

// Done reports whether the beat has completed, successfully or not.
func (r Response) Done() bool {
	return r.Ack || r.Err
}

// Transaction pairs the master's signals with the response it received.
type Transaction struct {
	Signals
	Response
}

// Read returns master signals for a full-word read at a byte address.
func Read(byteAddr uint64) Signals {
	return Signals{
		Address: WordAddress(byteAddr),
		Select:  SelectAll,
		Cycle:   true,
		Strobe:  true,
	}
}

// Write returns master signals for a masked write at a byte address.
func Write(byteAddr uint64, data uint32, sel uint8) Signals {
	return Signals{
		Address:     WordAddress(byteAddr),
		WriteData:   data,
		Select:      sel & SelectAll,
		Cycle:       true,
		Strobe:      true,
		WriteEnable: true,
	}
}

// ByteAddress converts a word address to a byte address.
func ByteAddress(word uint32) uint64 {
	return uint64(word) << WordShift
}

// WordAddress converts a byte address to a word address, dropping the
// sub-word bits.
func WordAddress(byteAddr uint64) uint32 {
	return uint32(byteAddr >> WordShift)
}

// Aligned reports whether a byte address is word aligned.
func Aligned(byteAddr uint64) bool {
	return byteAddr&(WordSize-1) == 0
}
