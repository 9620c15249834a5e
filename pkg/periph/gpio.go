package periph

import (
	"fmt"

	"github.com/etpu-project/etpu-go/pkg/bus"
)

// GPIOOut is a single output register driving width pads.
type GPIOOut struct {
	width int
	out   uint32

	ack   bus.AckRegister
	rdata uint32
}

// NewGPIOOut returns an output block of the given width (1..32).
func NewGPIOOut(width int) (*GPIOOut, error) {
	if width < 1 || width > bus.DataWidth {
		return nil, fmt.Errorf("gpio: width %d outside 1..%d", width, bus.DataWidth)
	}
	return &GPIOOut{width: width}, nil
}

// Name implements bus.Named.
func (g *GPIOOut) Name() string {
	return "gpio"
}

// Pads returns the driven pad levels.
func (g *GPIOOut) Pads() uint32 {
	return g.out
}

func (g *GPIOOut) mask() uint32 {
	if g.width == bus.DataWidth {
		return 0xFFFFFFFF
	}
	return 1<<g.width - 1
}

// Eval implements bus.Slave.
func (g *GPIOOut) Eval(bus.Signals) bus.Response {
	return bus.Response{Ack: g.ack.Asserted(), ReadData: g.rdata}
}

// Clock implements bus.Slave.
func (g *GPIOOut) Clock(in bus.Signals) {
	if g.ack.Accepting(in) {
		if in.Address == 0 && in.WriteEnable {
			g.out = bus.MergeLanes(g.out, in.WriteData, in.Select) & g.mask()
		}
		g.rdata = 0
		if in.Address == 0 {
			g.rdata = g.out
		}
	}
	g.ack.Clock(in)
}

// Reset implements bus.Slave.
func (g *GPIOOut) Reset() {
	g.out = 0
	g.rdata = 0
	g.ack.Reset()
}
