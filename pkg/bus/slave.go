package bus

// Slave is a synchronous bus slave.
//
// Eval returns the slave's outputs for the current cycle. It must not change
// state and may only depend on the slave's registered state and its inputs.
// Clock latches the next state on the rising edge. Reset returns the slave to
// its power-on state; it is called on every cycle the clock domain holds
// reset.
type Slave interface {
	Eval(in Signals) Response
	Clock(in Signals)
	Reset()
}

// Named is implemented by slaves that report a stable name for tracing.
type Named interface {
	Name() string
}

// AckRegister is the registered single-cycle acknowledge shared by simple
// slaves: Ack rises on the edge after a beat is strobed and falls on the
// following edge, so a held strobe is acknowledged exactly once per beat.
type AckRegister struct {
	ack bool
}

// Asserted returns the registered ack.
func (a *AckRegister) Asserted() bool {
	return a.ack
}

// Accepting reports whether a beat presented with in is taken on this edge.
func (a *AckRegister) Accepting(in Signals) bool {
	return in.Active() && !a.ack
}

// Clock advances the register.
func (a *AckRegister) Clock(in Signals) {
	a.ack = in.Active() && !a.ack
}

// Reset clears the register.
func (a *AckRegister) Reset() {
	a.ack = false
}
