package clock

import (
	"fmt"
	"math"
)

// PLL is the clock multiplier the CRG drives. The analog implementation is
// outside the model; only configuration and lock behaviour are visible.
type PLL interface {
	// Configure solves for a configuration producing outHz from inHz.
	Configure(inHz, outHz float64) (PLLConfig, error)

	// Reset holds the PLL in reset, dropping lock.
	Reset(asserted bool)

	// Tick advances the PLL by one cycle with or without a live reference.
	Tick(refPresent bool)

	// Locked reports whether the output clock is stable.
	Locked() bool
}

// PLLConfig is a solved divider configuration.
type PLLConfig struct {
	ClkiDiv  int
	ClkfbDiv int
	ClkoDiv  int
	VCO      float64
	Out      float64
}

// String returns the divider settings.
func (c PLLConfig) String() string {
	return fmt.Sprintf("clki_div=%d clkfb_div=%d clko_div=%d vco=%s out=%s",
		c.ClkiDiv, c.ClkfbDiv, c.ClkoDiv, FormatHz(c.VCO), FormatHz(c.Out))
}

// ECP5 PLL limits.
const (
	ecp5DivMax    = 128
	ecp5ClkiMin   = 8e6
	ecp5ClkiMax   = 400e6
	ecp5ClkoMin   = 3.125e6
	ecp5ClkoMax   = 400e6
	ecp5VCOMin    = 400e6
	ecp5VCOMax    = 800e6
	ecp5PFDMin    = 10e6
	ecp5PFDMax    = 400e6
	defaultMargin = 1e-2

	// DefaultLockCycles is how many clean cycles the model needs to lock.
	DefaultLockCycles = 16
)

// ECP5PLL models the Lattice ECP5 EHXPLLL primitive: divider search plus a
// lock counter.
type ECP5PLL struct {
	// Margin is the accepted relative output frequency error.
	Margin float64

	// LockCycles is the number of cycles with a live reference and released
	// reset before lock is reported.
	LockCycles int

	config    *PLLConfig
	reset     bool
	lockCount int
	locked    bool
}

// NewECP5PLL returns a PLL with the default margin and lock time.
func NewECP5PLL() *ECP5PLL {
	return &ECP5PLL{Margin: defaultMargin, LockCycles: DefaultLockCycles}
}

// Configure searches CLKI, CLKFB and CLKO dividers in order and keeps the
// first setting with PFD and VCO in range and the output within Margin.
func (p *ECP5PLL) Configure(inHz, outHz float64) (PLLConfig, error) {
	if inHz < ecp5ClkiMin || inHz > ecp5ClkiMax {
		return PLLConfig{}, fmt.Errorf("%w: %s", ErrReferenceOutOfRange, FormatHz(inHz))
	}
	if outHz < ecp5ClkoMin || outHz > ecp5ClkoMax {
		return PLLConfig{}, fmt.Errorf("%w: %s outside [%s, %s]", ErrUnachievableFrequency,
			FormatHz(outHz), FormatHz(ecp5ClkoMin), FormatHz(ecp5ClkoMax))
	}
	margin := p.Margin
	if margin <= 0 {
		margin = defaultMargin
	}

	for clki := 1; clki <= ecp5DivMax; clki++ {
		pfd := inHz / float64(clki)
		if pfd < ecp5PFDMin || pfd > ecp5PFDMax {
			continue
		}
		for clkfb := 1; clkfb <= ecp5DivMax; clkfb++ {
			vco := pfd * float64(clkfb)
			if vco < ecp5VCOMin || vco > ecp5VCOMax {
				continue
			}
			for clko := 1; clko <= ecp5DivMax; clko++ {
				f := vco / float64(clko)
				if math.Abs(f-outHz) <= outHz*margin {
					cfg := PLLConfig{ClkiDiv: clki, ClkfbDiv: clkfb, ClkoDiv: clko, VCO: vco, Out: f}
					p.config = &cfg
					p.lockCount = 0
					p.locked = false
					return cfg, nil
				}
			}
		}
	}
	return PLLConfig{}, fmt.Errorf("%w: %s from %s", ErrUnachievableFrequency, FormatHz(outHz), FormatHz(inHz))
}

// Reset implements PLL.
func (p *ECP5PLL) Reset(asserted bool) {
	p.reset = asserted
	if asserted {
		p.lockCount = 0
		p.locked = false
	}
}

// Tick implements PLL.
func (p *ECP5PLL) Tick(refPresent bool) {
	if p.config == nil || p.reset || !refPresent {
		p.lockCount = 0
		p.locked = false
		return
	}
	if p.lockCount < p.LockCycles {
		p.lockCount++
	}
	p.locked = p.lockCount >= p.LockCycles
}

// Locked implements PLL.
func (p *ECP5PLL) Locked() bool {
	return p.locked
}

// Compile-time interface satisfaction check.
var _ PLL = (*ECP5PLL)(nil)
