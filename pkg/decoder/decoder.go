package decoder

import (
	"errors"
	"fmt"

	"github.com/etpu-project/etpu-go/pkg/bus"
	"github.com/etpu-project/etpu-go/pkg/region"
)

// Decoder errors.
var (
	ErrOverlap  = region.ErrOverlap
	ErrNilSlave = errors.New("binding has no slave")
)

// Policy decides how addresses without a binding are answered.
type Policy uint8

const (
	// PolicyStall never acknowledges; the master waits until it gives up.
	PolicyStall Policy = iota

	// PolicyError acknowledges with Err set and UnmappedSentinel read data.
	PolicyError
)

// String returns the policy name used in config files.
func (p Policy) String() string {
	switch p {
	case PolicyStall:
		return "stall"
	case PolicyError:
		return "error"
	default:
		return "unknown"
	}
}

// ParsePolicy parses "stall" or "error". An empty string selects New's
// default, PolicyStall.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "stall":
		return PolicyStall, nil
	case "error":
		return PolicyError, nil
	default:
		return 0, fmt.Errorf("unknown default slave policy %q", s)
	}
}

// Route returns the binding whose region contains the transaction's address.
// At most one binding can match a valid (disjoint) binding list.
func Route(tx bus.Signals, bindings []Binding) (Binding, bool) {
	i := routeIndex(tx.Address, bindings)
	if i < 0 {
		return Binding{}, false
	}
	return bindings[i], true
}

func routeIndex(word uint32, bindings []Binding) int {
	for i, b := range bindings {
		if b.Matches(word) {
			return i
		}
	}
	return -1
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithDefaultSlave sets the policy for unclaimed addresses.
func WithDefaultSlave(p Policy) Option {
	return func(d *Decoder) {
		d.policy = p
	}
}

// Decoder is the immutable interconnect between the single master and its
// slaves.
type Decoder struct {
	bindings []Binding
	policy   Policy
	fallback *errorSlave
}

// New builds a decoder over a copy of bindings. Overlapping regions and
// bindings without a slave are rejected.
func New(bindings []Binding, opts ...Option) (*Decoder, error) {
	regions := make([]region.Region, 0, len(bindings))
	for _, b := range bindings {
		if b.slave == nil {
			return nil, fmt.Errorf("%w: %s", ErrNilSlave, b.region.Name)
		}
		regions = append(regions, b.region)
	}
	if _, err := region.NewTable(regions...); err != nil {
		return nil, err
	}

	d := &Decoder{
		bindings: append([]Binding(nil), bindings...),
		policy:   PolicyStall,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.policy == PolicyError {
		d.fallback = &errorSlave{}
	}
	return d, nil
}

// Bindings returns a copy of the binding list.
func (d *Decoder) Bindings() []Binding {
	return append([]Binding(nil), d.bindings...)
}

// Policy returns the default slave policy.
func (d *Decoder) Policy() Policy {
	return d.policy
}

// Selection is the result of decoding one cycle of master signals.
type Selection struct {
	// Index is the selected binding, or -1.
	Index int

	// Master is the signal set as driven by the master.
	Master bus.Signals

	// Forwarded is what the selected slave (or the default slave) sees.
	Forwarded bus.Signals
}

// Selected reports whether a binding claimed the address.
func (s Selection) Selected() bool {
	return s.Index >= 0
}

// Input returns the signals seen by binding i.
func (s Selection) Input(i int) bus.Signals {
	if i == s.Index {
		return s.Forwarded
	}
	return bus.Idle
}

// Decode selects the binding for m. It has no side effects.
func (d *Decoder) Decode(m bus.Signals) Selection {
	i := routeIndex(m.Address, d.bindings)
	sel := Selection{Index: i, Master: m}
	switch {
	case i >= 0:
		sel.Forwarded = m
		sel.Forwarded.Address = d.bindings[i].Translate(m.Address)
	case d.fallback != nil:
		sel.Forwarded = m
	}
	return sel
}

// Respond multiplexes the selected slave's outputs back to the master. The
// ack and error lines are gated with the master's cycle and strobe so that a
// late acknowledgment for an aborted beat never reaches the master.
func (d *Decoder) Respond(sel Selection) bus.Response {
	var resp bus.Response
	switch {
	case sel.Index >= 0:
		resp = d.bindings[sel.Index].slave.Eval(sel.Forwarded)
	case d.fallback != nil:
		resp = d.fallback.Eval(sel.Forwarded)
	default:
		return bus.Response{}
	}
	if !sel.Master.Active() {
		return bus.Response{}
	}
	return resp
}

// Eval decodes m and returns the selection with the master-visible response
// for the current cycle.
func (d *Decoder) Eval(m bus.Signals) (Selection, bus.Response) {
	sel := d.Decode(m)
	return sel, d.Respond(sel)
}

// Clock applies a rising edge to every slave with its decoded inputs.
func (d *Decoder) Clock(sel Selection) {
	for i, b := range d.bindings {
		b.slave.Clock(sel.Input(i))
	}
	if d.fallback != nil {
		if sel.Index < 0 {
			d.fallback.Clock(sel.Forwarded)
		} else {
			d.fallback.Clock(bus.Idle)
		}
	}
}

// Reset resets every slave.
func (d *Decoder) Reset() {
	for _, b := range d.bindings {
		b.slave.Reset()
	}
	if d.fallback != nil {
		d.fallback.Reset()
	}
}

// errorSlave answers every beat with a registered error response.
type errorSlave struct {
	ack bus.AckRegister
}

func (e *errorSlave) Eval(bus.Signals) bus.Response {
	if !e.ack.Asserted() {
		return bus.Response{}
	}
	return bus.Response{Ack: true, Err: true, ReadData: bus.UnmappedSentinel}
}

func (e *errorSlave) Clock(in bus.Signals) {
	e.ack.Clock(in)
}

func (e *errorSlave) Reset() {
	e.ack.Reset()
}
