package soc

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/etpu-project/etpu-go/pkg/accel"
	"github.com/etpu-project/etpu-go/pkg/bus"
	"github.com/etpu-project/etpu-go/pkg/clock"
	"github.com/etpu-project/etpu-go/pkg/decoder"
	"github.com/etpu-project/etpu-go/pkg/log"
	"github.com/etpu-project/etpu-go/pkg/periph"
	"github.com/etpu-project/etpu-go/pkg/region"
)

// Transaction errors.
var (
	ErrBusError = errors.New("bus error")
	ErrStalled  = errors.New("bus stalled")

	// ErrResetCycles rejects a reset pulse longer than MaxResetCycles.
	ErrResetCycles = errors.New("reset pulse too long")
)

// MaxResetCycles is the longest soft reset pulse a master accepts.
const MaxResetCycles = 1 << 16

// DefaultResetTimeout bounds how many cycles a master waits for reset
// release before giving up.
const DefaultResetTimeout = 1 << 16

// Option configures Build.
type Option func(*options)

type options struct {
	trace        log.Logger
	sessionID    string
	core         accel.Core
	pll          clock.PLL
	resetTimeout int
}

// WithTrace sends transaction and clock events to l.
func WithTrace(l log.Logger) Option {
	return func(o *options) { o.trace = l }
}

// WithSessionID sets the session ID stamped on trace events. A random UUID
// is used otherwise.
func WithSessionID(id string) Option {
	return func(o *options) { o.sessionID = id }
}

// WithCore attaches core behind the accelerator adapter instead of the
// register-file model.
func WithCore(core accel.Core) Option {
	return func(o *options) { o.core = core }
}

// WithPLL replaces the ECP5 PLL model.
func WithPLL(p clock.PLL) Option {
	return func(o *options) { o.pll = p }
}

// WithResetTimeout bounds the master's wait for reset release.
func WithResetTimeout(cycles int) Option {
	return func(o *options) { o.resetTimeout = cycles }
}

// SoC is a composed system. It is not safe for concurrent use; share it
// through its Master.
type SoC struct {
	cfg     Config
	buildID uuid.UUID
	session string
	trace   log.Logger

	crg   *clock.CRG
	dec   *decoder.Decoder
	table *region.Table

	rom     *periph.Memory
	sram    *periph.Memory
	leds    *periph.LEDChaser
	gpio    *periph.GPIOOut
	adapter *accel.Adapter

	extReset   bool
	softReset  bool
	refPresent bool
	inReset    bool
	locked     bool

	master *Master
}

// Build composes a SoC from cfg. Overlapping regions, an adapter predicate
// that can never match its region and conflicting clock requirements are
// reported here; on error no SoC is returned.
func Build(cfg Config, opts ...Option) (*SoC, error) {
	o := options{resetTimeout: DefaultResetTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("soc: %w", err)
	}

	regions, err := cfg.regions()
	if err != nil {
		return nil, fmt.Errorf("soc: %w", err)
	}
	table, err := region.NewTable(regions...)
	if err != nil {
		return nil, fmt.Errorf("soc: %w", err)
	}

	crg, err := clock.NewCRG(clock.CRGConfig{
		RefFreq:     cfg.RefClkFreq,
		SysFreq:     cfg.SysClkFreq,
		ResetStages: cfg.ResetStages,
		PLL:         o.pll,
	})
	if err != nil {
		return nil, fmt.Errorf("soc: %w", err)
	}

	s := &SoC{
		cfg:        cfg,
		buildID:    uuid.New(),
		session:    o.sessionID,
		trace:      log.OrNoop(o.trace),
		crg:        crg,
		table:      table,
		refPresent: true,
		inReset:    true,
	}
	if s.session == "" {
		s.session = uuid.NewString()
	}

	slaves, err := s.instantiate(o)
	if err != nil {
		return nil, fmt.Errorf("soc: %w", err)
	}

	var bindings []decoder.Binding
	for _, r := range table.Regions() {
		slave, ok := slaves[r.Name]
		if !ok {
			continue
		}
		mode := decoder.ModeOffset
		if r.Name == RegionAccel {
			// The adapter decodes the full address itself.
			mode = decoder.ModeFull
			if err := s.adapter.Config().Validate(r); err != nil {
				return nil, fmt.Errorf("soc: %w", err)
			}
		}
		bindings = append(bindings, decoder.NewBinding(r, slave, mode))
	}

	policy, _ := decoder.ParsePolicy(cfg.DefaultSlave)
	s.dec, err = decoder.New(bindings, decoder.WithDefaultSlave(policy))
	if err != nil {
		return nil, fmt.Errorf("soc: %w", err)
	}

	s.master = newMaster(s, cfg.MaxStallCycles, o.resetTimeout)
	return s, nil
}

func (s *SoC) instantiate(o options) (map[string]bus.Slave, error) {
	cfg := s.cfg
	slaves := make(map[string]bus.Slave)
	var err error

	if cfg.ROM.Size > 0 {
		if s.rom, err = s.memory(RegionROM, cfg.ROM, true); err != nil {
			return nil, err
		}
		slaves[RegionROM] = s.rom
	}
	if cfg.SRAM.Size > 0 {
		if s.sram, err = s.memory(RegionSRAM, cfg.SRAM, false); err != nil {
			return nil, err
		}
		slaves[RegionSRAM] = s.sram
	}
	if cfg.WithLEDChaser {
		if err := s.crg.Require(RegionLEDs, cfg.SysClkFreq); err != nil {
			return nil, err
		}
		if s.leds, err = periph.NewLEDChaser(cfg.LEDs, cfg.SysClkFreq, cfg.LEDPeriod); err != nil {
			return nil, err
		}
		slaves[RegionLEDs] = s.leds
	}
	if cfg.WithGPIO {
		if s.gpio, err = periph.NewGPIOOut(cfg.GPIOWidth); err != nil {
			return nil, err
		}
		slaves[RegionGPIO] = s.gpio
	}
	if cfg.WithAccel {
		if cfg.Accel.ClkFreq != 0 {
			if err := s.crg.Require(RegionAccel, cfg.Accel.ClkFreq); err != nil {
				return nil, err
			}
		}
		core := o.core
		if core == nil {
			core = accel.NewRegisterCore(cfg.Accel.WaitStates)
		}
		acfg := accel.DefaultAdapterConfig()
		acfg.Name = RegionAccel
		acfg.Pattern = cfg.Accel.Pattern
		s.adapter = accel.NewAdapter(core, acfg)
		slaves[RegionAccel] = s.adapter
	}
	return slaves, nil
}

func (s *SoC) memory(name string, mc MemoryConfig, readOnly bool) (*periph.Memory, error) {
	m, err := periph.NewMemory(name, mc.Size, readOnly)
	if err != nil {
		return nil, err
	}
	if mc.Image != "" {
		image, err := os.ReadFile(s.cfg.imagePath(mc.Image))
		if err != nil {
			return nil, fmt.Errorf("%s image: %w", name, err)
		}
		if err := m.Load(image); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Step applies one sys-clock cycle with the master driving m and returns
// the response the master sees during that cycle. While the domain is in
// reset every slave is held in reset and the response is zero.
func (s *SoC) Step(m bus.Signals) bus.Response {
	st := s.crg.Tick(clock.Inputs{ExternalReset: s.extReset, RefPresent: s.refPresent})
	s.observeClock(st)
	if st.Reset {
		s.dec.Reset()
		return bus.Response{}
	}
	sel, resp := s.dec.Eval(m)
	s.dec.Clock(sel)
	return resp
}

// Tick runs n idle cycles.
func (s *SoC) Tick(n int) {
	for i := 0; i < n; i++ {
		s.Step(bus.Idle)
	}
}

// Master returns the SoC's single bus master.
func (s *SoC) Master() *Master {
	return s.master
}

// Config returns the configuration the SoC was built from.
func (s *SoC) Config() Config {
	return s.cfg
}

// Regions returns the software-visible region table.
func (s *SoC) Regions() *region.Table {
	return s.table
}

// Bindings returns the decoder bindings in address order.
func (s *SoC) Bindings() []decoder.Binding {
	return s.dec.Bindings()
}

// Ident returns the SoC identification string.
func (s *SoC) Ident() string {
	return s.cfg.Ident
}

// BuildID identifies this composition.
func (s *SoC) BuildID() uuid.UUID {
	return s.buildID
}

// SessionID is stamped on every trace event.
func (s *SoC) SessionID() string {
	return s.session
}

// Domain returns the sys clock domain.
func (s *SoC) Domain() clock.Domain {
	return s.crg.Domain()
}

// PLLConfig returns the solved PLL configuration.
func (s *SoC) PLLConfig() clock.PLLConfig {
	return s.crg.PLLConfig()
}

// Cycle returns the number of cycles applied.
func (s *SoC) Cycle() uint64 {
	return s.crg.Cycle()
}

// InReset reports whether the sys domain is held in reset.
func (s *SoC) InReset() bool {
	return s.crg.InReset()
}

// Locked reports whether the PLL was locked on the last cycle.
func (s *SoC) Locked() bool {
	return s.locked
}

// LEDs returns the LED pad levels, zero without a chaser.
func (s *SoC) LEDs() uint32 {
	if s.leds == nil {
		return 0
	}
	return s.leds.LEDs()
}

// GPIO returns the GPIO pad levels, zero without a GPIO block.
func (s *SoC) GPIO() uint32 {
	if s.gpio == nil {
		return 0
	}
	return s.gpio.Pads()
}

// HoldCompanion is the level on the companion radio's strap pin.
func (s *SoC) HoldCompanion() bool {
	return s.crg.HoldCompanion()
}

// AcceleratorAux returns the accelerator's auxiliary outputs.
func (s *SoC) AcceleratorAux() (accel.Aux, bool) {
	if s.adapter == nil {
		return accel.Aux{}, false
	}
	return s.adapter.Aux(), true
}

// Memory returns the named on-chip memory.
func (s *SoC) Memory(name string) (*periph.Memory, bool) {
	switch {
	case name == RegionROM && s.rom != nil:
		return s.rom, true
	case name == RegionSRAM && s.sram != nil:
		return s.sram, true
	}
	return nil, false
}

// SoftReset raises or clears the internal reset request.
func (s *SoC) SoftReset(asserted bool) {
	s.softReset = asserted
	s.crg.SoftReset(asserted)
}

// ExternalReset drives the board reset pin.
func (s *SoC) ExternalReset(asserted bool) {
	s.extReset = asserted
}

// SetReference starts or stops the reference oscillator.
func (s *SoC) SetReference(present bool) {
	s.refPresent = present
}

// slaveName returns the binding that claims sig, empty when unmapped.
func (s *SoC) slaveName(sig bus.Signals) string {
	b, ok := decoder.Route(sig, s.dec.Bindings())
	if !ok {
		return ""
	}
	return b.Name()
}

func (s *SoC) observeClock(st clock.State) {
	if st.Locked != s.locked {
		old, now := "UNLOCKED", "LOCKED"
		if !st.Locked {
			old, now = now, old
		}
		s.emitState(st.Cycle, log.StateEntityPLL, old, now, "")
		s.locked = st.Locked
	}
	if st.Reset != s.inReset {
		old, now := "ASSERTED", "RELEASED"
		if st.Reset {
			old, now = now, old
		}
		s.emitState(st.Cycle, log.StateEntityReset, old, now, s.resetReason())
		s.inReset = st.Reset
	}
}

func (s *SoC) resetReason() string {
	switch {
	case !s.refPresent:
		return "reference clock lost"
	case s.extReset:
		return "external reset"
	case s.softReset:
		return "soft reset"
	case !s.locked:
		return "pll unlocked"
	}
	return ""
}

func (s *SoC) emitState(cycle uint64, entity log.StateEntity, old, now, reason string) {
	s.trace.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: s.session,
		Cycle:     cycle,
		Layer:     log.LayerClock,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   entity,
			OldState: old,
			NewState: now,
			Reason:   reason,
		},
	})
}
