package soc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/etpu-project/etpu-go/pkg/bus"
	"github.com/etpu-project/etpu-go/pkg/clock"
	"github.com/etpu-project/etpu-go/pkg/log"
)

// Master is the SoC's single bus master. It performs one Wishbone classic
// beat at a time and is safe for concurrent use; callers are served strictly
// in sequence.
type Master struct {
	mu           sync.Mutex
	soc          *SoC
	maxStall     int
	resetTimeout int
}

func newMaster(s *SoC, maxStall, resetTimeout int) *Master {
	return &Master{soc: s, maxStall: maxStall, resetTimeout: resetTimeout}
}

// Read performs a full-word read.
func (m *Master) Read(ctx context.Context, byteAddr uint64) (uint32, error) {
	resp, err := m.Transact(ctx, bus.Read(byteAddr), "")
	return resp.ReadData, err
}

// Write performs a full-word write.
func (m *Master) Write(ctx context.Context, byteAddr uint64, data uint32) error {
	return m.WriteMasked(ctx, byteAddr, data, bus.SelectAll)
}

// WriteMasked writes the lanes of data selected by sel.
func (m *Master) WriteMasked(ctx context.Context, byteAddr uint64, data uint32, sel uint8) error {
	_, err := m.Transact(ctx, bus.Write(byteAddr, data, sel), "")
	return err
}

// Transact drives sig until the addressed slave responds. It first waits out
// any reset, then holds cycle and strobe until ack or error. The beat is
// abandoned, with cycle dropped for one cycle, when ctx is done or no
// response arrives within the stall limit. source is recorded in the trace.
func (m *Master) Transact(ctx context.Context, sig bus.Signals, source string) (bus.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.soc
	if err := m.waitReady(ctx); err != nil {
		return bus.Response{}, fmt.Errorf("%s: %w", sig, err)
	}

	var cycles uint64
	for {
		if err := ctx.Err(); err != nil {
			s.Step(bus.Idle)
			m.record(sig, bus.Response{}, log.OutcomeAborted, cycles, source)
			return bus.Response{}, fmt.Errorf("%s: %w", sig, err)
		}

		resp := s.Step(sig)
		cycles++
		switch {
		case resp.Err:
			m.record(sig, resp, log.OutcomeError, cycles, source)
			return resp, fmt.Errorf("%s: %w", sig, ErrBusError)
		case resp.Ack:
			m.record(sig, resp, log.OutcomeAck, cycles, source)
			return resp, nil
		}

		if cycles >= uint64(m.maxStall) {
			s.Step(bus.Idle)
			m.record(sig, resp, log.OutcomeStalled, cycles, source)
			return bus.Response{}, fmt.Errorf("%s: %w after %d cycles", sig, ErrStalled, cycles)
		}
	}
}

// waitReady runs idle cycles until the sys domain leaves reset.
func (m *Master) waitReady(ctx context.Context) error {
	s := m.soc
	for n := 0; s.InReset(); n++ {
		if n >= m.resetTimeout {
			// The PLL is held in reset by every reset source, so a domain
			// that never leaves reset is one that never locks.
			return fmt.Errorf("after %d cycles: %w", n, clock.ErrNoLock)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		s.Step(bus.Idle)
	}
	return nil
}

// Tick runs n idle cycles.
func (m *Master) Tick(n int) {
	m.Do(func(s *SoC) { s.Tick(n) })
}

// Reset pulses the soft reset for the given number of cycles (at least one,
// at most MaxResetCycles) and waits for the domain to come out of reset.
// When ctx ends mid-pulse the reset request is released and ctx's error
// returned.
func (m *Master) Reset(ctx context.Context, cycles int) error {
	if cycles > MaxResetCycles {
		return fmt.Errorf("%w: %d cycles, max %d", ErrResetCycles, cycles, MaxResetCycles)
	}
	if cycles < 1 {
		cycles = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.soc
	s.SoftReset(true)
	for i := 0; i < cycles; i++ {
		if err := ctx.Err(); err != nil {
			s.SoftReset(false)
			return err
		}
		s.Tick(1)
	}
	s.SoftReset(false)
	return m.waitReady(ctx)
}

// Do runs fn with exclusive access to the SoC.
func (m *Master) Do(fn func(*SoC)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.soc)
}

func (m *Master) record(sig bus.Signals, resp bus.Response, outcome log.Outcome, cycles uint64, source string) {
	s := m.soc
	data := sig.WriteData
	dir := log.DirectionIn
	if !sig.WriteEnable {
		data = resp.ReadData
		dir = log.DirectionOut
	}
	event := log.Event{
		Timestamp: time.Now(),
		SessionID: s.session,
		Cycle:     s.Cycle(),
		Direction: dir,
		Layer:     log.LayerBus,
		Category:  log.CategoryTransaction,
		Source:    source,
		Transaction: &log.TransactionEvent{
			Slave:   s.slaveName(sig),
			Address: uint32(sig.ByteAddress()),
			Write:   sig.WriteEnable,
			Data:    data,
			Select:  sig.Select,
			Outcome: outcome,
			Cycles:  cycles,
		},
	}
	if outcome != log.OutcomeAck {
		event.Category = log.CategoryError
		event.Error = &log.ErrorEventData{
			Layer:   log.LayerBus,
			Message: outcome.String(),
			Context: sig.String(),
		}
	}
	s.trace.Log(event)
}
