package accel

import "github.com/etpu-project/etpu-go/pkg/bus"

// ETPU register banks as laid out by the firmware.
const (
	WeightsBase uint32 = 0x000
	StreamBase  uint32 = 0x100
	ReadoutBase uint32 = 0x200

	// CoreSpace is the size of the core byte address space.
	CoreSpace = (ETPUAddrMask + 1) << ETPUByteShift
	coreWords = CoreSpace / bus.WordSize
)

// Status values reported on Aux.Status.
const (
	StatusIdle  uint8 = 0x0
	StatusRead  uint8 = 0x1
	StatusWrite uint8 = 0x2
	StatusBusy  uint8 = 0x8
)

// RegisterCore is a register-file core with the ETPU bank layout. It
// acknowledges each beat after WaitStates extra cycles with a registered,
// single-cycle ack.
type RegisterCore struct {
	// WaitStates delays the acknowledgment.
	WaitStates int

	mem    [coreWords]uint32
	ack    bool
	rdata  uint32
	wait   int
	count  uint8
	status uint8
	enable bool
}

// NewRegisterCore returns a core in its reset state.
func NewRegisterCore(waitStates int) *RegisterCore {
	return &RegisterCore{WaitStates: waitStates}
}

// Eval implements Core.
func (c *RegisterCore) Eval(in CoreInputs) CoreOutputs {
	if in.Reset {
		return CoreOutputs{}
	}
	status := c.status
	if c.wait > 0 {
		status |= StatusBusy
	}
	return CoreOutputs{
		Ack:      c.ack,
		ReadData: c.rdata,
		Aux:      Aux{Status: status & 0xF, Counter: c.count, Enable: c.enable},
	}
}

// Clock implements Core.
func (c *RegisterCore) Clock(in CoreInputs) {
	if in.Reset {
		*c = RegisterCore{WaitStates: c.WaitStates}
		return
	}
	if c.ack {
		c.ack = false
		return
	}
	if !in.Cycle || !in.Strobe {
		c.wait = 0
		return
	}
	if c.wait < c.WaitStates {
		c.wait++
		return
	}
	c.wait = 0

	idx := (in.Address % CoreSpace) / bus.WordSize
	if in.WriteEnable {
		c.mem[idx] = bus.MergeLanes(c.mem[idx], in.WriteData, in.Select)
		c.status = StatusWrite
		c.enable = true
	} else {
		c.rdata = c.mem[idx]
		c.status = StatusRead
	}
	c.count++
	c.ack = true
}

// Peek returns the word at a core byte address without a bus cycle.
func (c *RegisterCore) Peek(addr uint32) uint32 {
	return c.mem[(addr%CoreSpace)/bus.WordSize]
}

// Compile-time interface satisfaction check.
var _ Core = (*RegisterCore)(nil)
