package clock

import (
	"fmt"
	"math"
	"sort"
)

// Defaults taken from the ULX3S build: 25 MHz oscillator, 10 MHz sys clock.
const (
	DefaultRefFreq = 25e6
	DefaultSysFreq = 10e6
)

// CRGConfig configures a clock/reset generator.
type CRGConfig struct {
	// RefFreq is the external oscillator frequency.
	RefFreq float64

	// SysFreq is the target derived clock frequency.
	SysFreq float64

	// ResetStages is the reset synchronizer depth (default 2).
	ResetStages int

	// PLL defaults to an ECP5 model.
	PLL PLL
}

// Inputs are the external pins sampled by the CRG on each edge.
type Inputs struct {
	// ExternalReset is the board reset request.
	ExternalReset bool

	// RefPresent is false while the oscillator is missing or stopped.
	RefPresent bool
}

// State is the CRG output for the cycle following an edge.
type State struct {
	Reset  bool
	Locked bool
	Cycle  uint64
}

// CRG is the clock/reset generator of the sys domain.
type CRG struct {
	domain   Domain
	pll      PLL
	pllCfg   PLLConfig
	sync     *ResetSynchronizer
	soft     bool
	cycle    uint64
	requests map[string]float64
}

// NewCRG solves the PLL configuration and returns a CRG in reset.
func NewCRG(cfg CRGConfig) (*CRG, error) {
	if cfg.RefFreq == 0 {
		cfg.RefFreq = DefaultRefFreq
	}
	if cfg.SysFreq == 0 {
		cfg.SysFreq = DefaultSysFreq
	}
	if cfg.ResetStages == 0 {
		cfg.ResetStages = DefaultResetStages
	}
	if cfg.PLL == nil {
		cfg.PLL = NewECP5PLL()
	}

	pllCfg, err := cfg.PLL.Configure(cfg.RefFreq, cfg.SysFreq)
	if err != nil {
		return nil, fmt.Errorf("sys clock: %w", err)
	}

	return &CRG{
		domain:   Domain{Name: SysDomain, Freq: cfg.SysFreq},
		pll:      cfg.PLL,
		pllCfg:   pllCfg,
		sync:     NewResetSynchronizer(cfg.ResetStages),
		requests: make(map[string]float64),
	}, nil
}

// Domain returns the derived clock domain.
func (c *CRG) Domain() Domain {
	return c.domain
}

// PLLConfig returns the solved PLL configuration.
func (c *CRG) PLLConfig() PLLConfig {
	return c.pllCfg
}

// Require records that consumer needs the domain to run at hz. A request
// that differs from the domain frequency, or from an earlier request, is a
// composition error.
func (c *CRG) Require(consumer string, hz float64) error {
	if !sameFreq(hz, c.domain.Freq) {
		return fmt.Errorf("%w: %s needs %s, %s domain runs at %s",
			ErrFrequencyConflict, consumer, FormatHz(hz), c.domain.Name, FormatHz(c.domain.Freq))
	}
	c.requests[consumer] = hz
	return nil
}

// Consumers returns the names that registered a frequency requirement.
func (c *CRG) Consumers() []string {
	names := make([]string, 0, len(c.requests))
	for n := range c.requests {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SoftReset raises or clears the internal reset request.
func (c *CRG) SoftReset(asserted bool) {
	c.soft = asserted
}

// Tick applies one rising edge of the derived clock.
func (c *CRG) Tick(in Inputs) State {
	c.cycle++
	c.pll.Reset(in.ExternalReset || c.soft)
	c.pll.Tick(in.RefPresent)
	locked := c.pll.Locked()
	rst := c.sync.Tick(!locked || in.ExternalReset || c.soft)
	return State{Reset: rst, Locked: locked, Cycle: c.cycle}
}

// InReset returns the current synchronized reset.
func (c *CRG) InReset() bool {
	return c.sync.Asserted()
}

// Cycle returns the number of edges applied so far.
func (c *CRG) Cycle() uint64 {
	return c.cycle
}

// HoldCompanion is the level driven on the companion radio's strap pin. It
// is high for the whole lifetime of the domain so the radio module can never
// pull the FPGA into reconfiguration.
func (c *CRG) HoldCompanion() bool {
	return true
}

func sameFreq(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(math.Abs(a), math.Abs(b))
}
