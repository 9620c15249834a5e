package periph

import (
	"fmt"

	"github.com/etpu-project/etpu-go/pkg/bus"
)

// LED chaser registers (word offsets).
const (
	LEDOut  = 0x0 // write: manual LED value, read: current LEDs
	LEDMode = 0x1 // 0 = chaser, 1 = manual
)

// MaxLEDs is the widest supported LED bank.
const MaxLEDs = 32

// LEDChaser drives a bank of LEDs with a Johnson-counter chase pattern until
// software writes the output register, after which the LEDs show the written
// value.
type LEDChaser struct {
	n      int
	step   uint64
	timer  uint64
	chaser uint32
	manual bool
	value  uint32

	ack   bus.AckRegister
	rdata uint32
}

// NewLEDChaser returns a chaser for n LEDs whose pattern completes one
// period every period seconds at sysClk.
func NewLEDChaser(n int, sysClk, period float64) (*LEDChaser, error) {
	if n < 1 || n > MaxLEDs {
		return nil, fmt.Errorf("led chaser: %d leds outside 1..%d", n, MaxLEDs)
	}
	step := uint64(period * sysClk / float64(2*n))
	if step < 1 {
		step = 1
	}
	return &LEDChaser{n: n, step: step}, nil
}

// Name implements bus.Named.
func (l *LEDChaser) Name() string {
	return "leds"
}

// StepCycles returns the number of cycles between chaser steps.
func (l *LEDChaser) StepCycles() uint64 {
	return l.step
}

func (l *LEDChaser) mask() uint32 {
	if l.n == 32 {
		return 0xFFFFFFFF
	}
	return 1<<l.n - 1
}

// LEDs returns the current pad levels.
func (l *LEDChaser) LEDs() uint32 {
	if l.manual {
		return l.value & l.mask()
	}
	return l.chaser
}

// Manual reports whether software has taken over the LEDs.
func (l *LEDChaser) Manual() bool {
	return l.manual
}

// Eval implements bus.Slave.
func (l *LEDChaser) Eval(bus.Signals) bus.Response {
	return bus.Response{Ack: l.ack.Asserted(), ReadData: l.rdata}
}

// Clock implements bus.Slave.
func (l *LEDChaser) Clock(in bus.Signals) {
	if l.ack.Accepting(in) {
		l.access(in)
	}
	l.ack.Clock(in)

	l.timer++
	if l.timer >= l.step {
		l.timer = 0
		msb := l.chaser >> (l.n - 1) & 1
		l.chaser = (l.chaser<<1 | (msb ^ 1)) & l.mask()
	}
}

func (l *LEDChaser) access(in bus.Signals) {
	switch in.Address {
	case LEDOut:
		if in.WriteEnable {
			l.value = bus.MergeLanes(l.value, in.WriteData, in.Select)
			l.manual = true
		}
		l.rdata = l.LEDs()
	case LEDMode:
		if in.WriteEnable {
			l.manual = in.WriteData&1 != 0
		}
		l.rdata = 0
		if l.manual {
			l.rdata = 1
		}
	default:
		l.rdata = 0
	}
}

// Reset implements bus.Slave.
func (l *LEDChaser) Reset() {
	l.timer = 0
	l.chaser = 0
	l.manual = false
	l.value = 0
	l.rdata = 0
	l.ack.Reset()
}
