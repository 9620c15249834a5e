package periph

import (
	"encoding/binary"
	"fmt"

	"github.com/etpu-project/etpu-go/pkg/bus"
)

// Memory is a word-addressed RAM or ROM.
type Memory struct {
	name     string
	words    []uint32
	init     []uint32
	readOnly bool

	ack   bus.AckRegister
	rdata uint32
}

// NewMemory returns a memory of size bytes. size must be a non-zero multiple
// of the word size. A ROM acknowledges writes but ignores them.
func NewMemory(name string, size uint64, readOnly bool) (*Memory, error) {
	if size == 0 || !bus.Aligned(size) {
		return nil, fmt.Errorf("memory %s: size %#x is not a non-zero word multiple", name, size)
	}
	return &Memory{
		name:     name,
		words:    make([]uint32, size/bus.WordSize),
		readOnly: readOnly,
	}, nil
}

// Load sets the power-on contents from a little-endian image. The image is
// also restored on every reset.
func (m *Memory) Load(image []byte) error {
	if uint64(len(image)) > m.Size() {
		return fmt.Errorf("memory %s: image of %d bytes exceeds %d", m.name, len(image), m.Size())
	}
	padded := make([]byte, (len(image)+bus.WordSize-1)/bus.WordSize*bus.WordSize)
	copy(padded, image)
	m.init = make([]uint32, len(padded)/bus.WordSize)
	for i := range m.init {
		m.init[i] = binary.LittleEndian.Uint32(padded[i*bus.WordSize:])
	}
	m.restore()
	return nil
}

func (m *Memory) restore() {
	clear(m.words)
	copy(m.words, m.init)
}

// Name implements bus.Named.
func (m *Memory) Name() string {
	return m.name
}

// Size returns the memory size in bytes.
func (m *Memory) Size() uint64 {
	return uint64(len(m.words)) * bus.WordSize
}

// ReadOnly reports whether writes are ignored.
func (m *Memory) ReadOnly() bool {
	return m.readOnly
}

// Peek returns the word at a word offset without a bus cycle.
func (m *Memory) Peek(word uint32) uint32 {
	return m.words[int(word)%len(m.words)]
}

// Eval implements bus.Slave.
func (m *Memory) Eval(bus.Signals) bus.Response {
	return bus.Response{Ack: m.ack.Asserted(), ReadData: m.rdata}
}

// Clock implements bus.Slave.
func (m *Memory) Clock(in bus.Signals) {
	if m.ack.Accepting(in) {
		i := int(in.Address) % len(m.words)
		if in.WriteEnable && !m.readOnly {
			m.words[i] = bus.MergeLanes(m.words[i], in.WriteData, in.Select)
		}
		m.rdata = m.words[i]
	}
	m.ack.Clock(in)
}

// Reset restores the power-on image.
func (m *Memory) Reset() {
	m.restore()
	m.rdata = 0
	m.ack.Reset()
}
