package accel

import (
	"errors"
	"fmt"

	"github.com/etpu-project/etpu-go/pkg/bus"
	"github.com/etpu-project/etpu-go/pkg/region"
)

// ETPU address-space constants. The core decodes ten byte-address bits: the
// low eight bits of the bus word address, shifted back to byte granularity.
const (
	// ETPUAddrMask keeps the word-address bits the core can see.
	ETPUAddrMask uint32 = 0xFF

	// ETPUByteShift converts the masked word address to a byte address.
	ETPUByteShift = bus.WordShift

	// ETPUSelectPattern is the value of the recognized address byte.
	ETPUSelectPattern uint8 = 0x30

	// ETPUSelectShift locates the recognized byte in the byte address.
	ETPUSelectShift = 24
)

// ErrUnsatisfiablePredicate is returned when an adapter's recognition
// pattern can never match inside its region.
var ErrUnsatisfiablePredicate = errors.New("adapter address predicate never matches its region")

// AdapterConfig describes the second-level decode and the address
// translation of an adapter.
type AdapterConfig struct {
	// Name identifies the adapter in traces.
	Name string

	// Pattern must equal the byte at Shift of the byte address.
	Pattern uint8
	Shift   uint

	// AddrMask is applied to the word address before ByteShift.
	AddrMask  uint32
	ByteShift uint
}

// DefaultAdapterConfig returns the ETPU attachment used on the ULX3S build.
func DefaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		Name:      "etpu",
		Pattern:   ETPUSelectPattern,
		Shift:     ETPUSelectShift,
		AddrMask:  ETPUAddrMask,
		ByteShift: ETPUByteShift,
	}
}

// Recognizes reports whether the word address carries the adapter's
// pattern.
func (c AdapterConfig) Recognizes(word uint32) bool {
	return uint8(bus.ByteAddress(word)>>c.Shift) == c.Pattern
}

// CoreAddress translates a bus word address into the core byte address.
func (c AdapterConfig) CoreAddress(word uint32) uint32 {
	return (word & c.AddrMask) << c.ByteShift
}

// Satisfiable reports whether any byte address in r is recognized.
func (c AdapterConfig) Satisfiable(r region.Region) bool {
	if r.Length == 0 || c.Shift+8 > 32 {
		return false
	}
	field := uint64(1) << c.Shift
	period := field << 8
	for base := r.Origin &^ (period - 1); base < r.End(); base += period {
		lo := base | uint64(c.Pattern)<<c.Shift
		hi := lo + field
		if lo < r.End() && r.Origin < hi {
			return true
		}
	}
	return false
}

// Validate checks the configuration against the region the adapter is bound
// to.
func (c AdapterConfig) Validate(r region.Region) error {
	if !c.Satisfiable(r) {
		return fmt.Errorf("%w: %s pattern %#02x at bit %d, region %s",
			ErrUnsatisfiablePredicate, c.Name, c.Pattern, c.Shift, r)
	}
	return nil
}

// Adapter exposes a Core as a bus slave.
type Adapter struct {
	core Core
	cfg  AdapterConfig
	last CoreInputs
}

// NewAdapter wraps core.
func NewAdapter(core Core, cfg AdapterConfig) *Adapter {
	return &Adapter{core: core, cfg: cfg}
}

// Name returns the adapter name.
func (a *Adapter) Name() string {
	return a.cfg.Name
}

// Config returns the adapter configuration.
func (a *Adapter) Config() AdapterConfig {
	return a.cfg
}

// Core returns the wrapped core.
func (a *Adapter) Core() Core {
	return a.core
}

// Inputs maps bus signals onto the core pins. The strobe only reaches the
// core when the address carries the recognized pattern.
func (a *Adapter) Inputs(in bus.Signals) CoreInputs {
	return CoreInputs{
		Strobe:      in.Strobe && a.cfg.Recognizes(in.Address),
		Cycle:       in.Cycle,
		WriteEnable: in.WriteEnable,
		Select:      in.Select,
		Address:     a.cfg.CoreAddress(in.Address),
		WriteData:   in.WriteData,
	}
}

// Eval implements bus.Slave.
func (a *Adapter) Eval(in bus.Signals) bus.Response {
	out := a.core.Eval(a.Inputs(in))
	return bus.Response{Ack: out.Ack, ReadData: out.ReadData}
}

// Clock implements bus.Slave.
func (a *Adapter) Clock(in bus.Signals) {
	a.last = a.Inputs(in)
	a.core.Clock(a.last)
}

// Reset drives the core's reset pin for one edge.
func (a *Adapter) Reset() {
	a.last = CoreInputs{Reset: true}
	a.core.Clock(a.last)
}

// Aux returns the core's auxiliary outputs as of the last edge. They are
// observable here and in traces only; no bus address reads them.
func (a *Adapter) Aux() Aux {
	return a.core.Eval(a.last).Aux
}

// Compile-time interface satisfaction checks.
var (
	_ bus.Slave = (*Adapter)(nil)
	_ bus.Named = (*Adapter)(nil)
)
