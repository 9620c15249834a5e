package soc

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etpu-project/etpu-go/pkg/accel"
	"github.com/etpu-project/etpu-go/pkg/bus"
	"github.com/etpu-project/etpu-go/pkg/clock"
	"github.com/etpu-project/etpu-go/pkg/decoder"
	"github.com/etpu-project/etpu-go/pkg/log"
	"github.com/etpu-project/etpu-go/pkg/region"
)

type recorder struct {
	mu     sync.Mutex
	events []log.Event
}

func (r *recorder) Log(e log.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) transactions() []log.TransactionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []log.TransactionEvent
	for _, e := range r.events {
		if e.Transaction != nil {
			out = append(out, *e.Transaction)
		}
	}
	return out
}

func (r *recorder) states(entity log.StateEntity) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if e.StateChange != nil && e.StateChange.Entity == entity {
			out = append(out, e.StateChange.NewState)
		}
	}
	return out
}

func build(t *testing.T, cfg Config, opts ...Option) *SoC {
	t.Helper()
	s, err := Build(cfg, opts...)
	require.NoError(t, err)
	return s
}

func TestBuildDefault(t *testing.T) {
	s := build(t, DefaultConfig())

	assert.Equal(t, DefaultIdent, s.Ident())
	assert.Equal(t, 5, s.Regions().Len())
	assert.Len(t, s.Bindings(), 5)
	assert.True(t, s.HoldCompanion())
	assert.True(t, s.InReset())
	assert.InDelta(t, 10e6, s.PLLConfig().Out, 1)
	assert.NotEqual(t, s.BuildID(), build(t, DefaultConfig()).BuildID())

	wfg, err := s.Regions().Get(RegionAccel)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x30000000), wfg.Origin)
	assert.Equal(t, region.TypeIO, wfg.Type)
}

func TestEndToEndAcceleratorWrite(t *testing.T) {
	core := accel.NewRegisterCore(0)
	rec := &recorder{}
	s := build(t, DefaultConfig(), WithCore(core), WithTrace(rec), WithSessionID("e2e"))
	ctx := context.Background()

	require.NoError(t, s.Master().Write(ctx, 0x30000104, 0x2A))
	assert.Equal(t, uint32(0x2A), core.Peek(0x104))

	txs := rec.transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, RegionAccel, txs[0].Slave)
	assert.Equal(t, uint32(0x30000104), txs[0].Address)
	assert.Equal(t, log.OutcomeAck, txs[0].Outcome)
	// One cycle to register the beat, the ack reaches the master in the
	// cycle the core raises it.
	assert.Equal(t, uint64(2), txs[0].Cycles)

	got, err := s.Master().Read(ctx, 0x30000104)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x2A), got)

	aux, ok := s.AcceleratorAux()
	require.True(t, ok)
	assert.Equal(t, uint8(2), aux.Counter)
	assert.True(t, aux.Enable)
}

func TestAcceleratorWindowAliases(t *testing.T) {
	core := accel.NewRegisterCore(0)
	s := build(t, DefaultConfig(), WithCore(core))
	ctx := context.Background()

	// Only the low eight word-address bits reach the core.
	require.NoError(t, s.Master().Write(ctx, 0x30000010, 0x11))
	got, err := s.Master().Read(ctx, 0x30000410)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x11), got)
	assert.Equal(t, uint32(0x11), core.Peek(0x010))
}

func TestAcceleratorWaitStates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Accel.WaitStates = 3
	rec := &recorder{}
	s := build(t, cfg, WithTrace(rec))

	require.NoError(t, s.Master().Write(context.Background(), 0x30000000, 1))
	txs := rec.transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, uint64(5), txs[0].Cycles)
}

func TestCompositionRomAndAccelerator(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "minimal.yaml"))
	require.NoError(t, err)
	cfg, err := ParseConfig(data)
	require.NoError(t, err)

	s := build(t, cfg)
	assert.Equal(t, 2, s.Regions().Len())
	assert.Equal(t, "rom + accelerator", s.Ident())

	_, ok := s.Memory(RegionSRAM)
	assert.False(t, ok)
	assert.Equal(t, uint32(0), s.LEDs())
}

func TestCompositionRejectsOverlap(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "minimal.yaml"))
	require.NoError(t, err)
	cfg, err := ParseConfig(data)
	require.NoError(t, err)

	cfg.Regions["scratch"] = RegionConfig{Origin: 0x30080000, Length: 0x1000}
	s, err := Build(cfg)
	assert.ErrorIs(t, err, region.ErrOverlap)
	assert.ErrorIs(t, err, decoder.ErrOverlap)
	assert.Nil(t, s)
}

func TestCompositionRejectsUnsatisfiablePredicate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Accel.Pattern = 0x31

	_, err := Build(cfg)
	assert.ErrorIs(t, err, accel.ErrUnsatisfiablePredicate)
}

func TestCompositionRejectsFrequencyConflict(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Accel.ClkFreq = 12e6

	_, err := Build(cfg)
	assert.ErrorIs(t, err, clock.ErrFrequencyConflict)

	cfg.Accel.ClkFreq = cfg.SysClkFreq
	_, err = Build(cfg)
	assert.NoError(t, err)
}

func TestCompositionRejectsUnachievableClock(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SysClkFreq = 1e6

	_, err := Build(cfg)
	assert.ErrorIs(t, err, clock.ErrUnachievableFrequency)
}

func TestUnmappedAddressErrorPolicy(t *testing.T) {
	rec := &recorder{}
	s := build(t, DefaultConfig(), WithTrace(rec))

	data, err := s.Master().Read(context.Background(), 0x70000000)
	assert.ErrorIs(t, err, ErrBusError)
	assert.Equal(t, bus.UnmappedSentinel, data)

	txs := rec.transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, "", txs[0].Slave)
	assert.Equal(t, log.OutcomeError, txs[0].Outcome)
}

func TestUnmappedAddressStallPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultSlave = "stall"
	cfg.MaxStallCycles = 8
	s := build(t, cfg)
	ctx := context.Background()

	_, err := s.Master().Read(ctx, 0x70000000)
	assert.ErrorIs(t, err, ErrStalled)

	// The bus recovers for the next transaction.
	require.NoError(t, s.Master().Write(ctx, 0x10000000, 5))
	got, err := s.Master().Read(ctx, 0x10000000)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), got)
}

func TestWrongHighByteInAcceleratorWindowStalls(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Regions[RegionAccel] = RegionConfig{Origin: 0x30000000, Length: 0x2000000, Type: "io"}
	cfg.MaxStallCycles = 16
	s := build(t, cfg)

	_, err := s.Master().Read(context.Background(), 0x31000000)
	assert.ErrorIs(t, err, ErrStalled)
}

func TestContextCancelAbortsTransaction(t *testing.T) {
	rec := &recorder{}
	s := build(t, DefaultConfig(), WithTrace(rec))
	s.Master().Tick(64)
	require.False(t, s.InReset())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Master().Write(ctx, 0x10000000, 1)
	assert.ErrorIs(t, err, context.Canceled)

	txs := rec.transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, log.OutcomeAborted, txs[0].Outcome)

	sram, ok := s.Memory(RegionSRAM)
	require.True(t, ok)
	assert.Equal(t, uint32(0), sram.Peek(0))
}

func TestMasterWaitsOutReset(t *testing.T) {
	rec := &recorder{}
	s := build(t, DefaultConfig(), WithTrace(rec))
	require.True(t, s.InReset())

	require.NoError(t, s.Master().Write(context.Background(), 0x10000000, 9))
	assert.False(t, s.InReset())
	assert.Equal(t, []string{"LOCKED"}, rec.states(log.StateEntityPLL))
	assert.Equal(t, []string{"RELEASED"}, rec.states(log.StateEntityReset))
}

func TestMasterResetStopsOnCancel(t *testing.T) {
	s := build(t, DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := s.Cycle()
	err := s.Master().Reset(ctx, MaxResetCycles)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, start, s.Cycle())

	// The soft reset request was released, so the master recovers.
	require.NoError(t, s.Master().Write(context.Background(), 0x10000000, 1))
}

func TestMasterResetRejectsLongPulse(t *testing.T) {
	s := build(t, DefaultConfig())
	start := s.Cycle()
	err := s.Master().Reset(context.Background(), MaxResetCycles+1)
	assert.ErrorIs(t, err, ErrResetCycles)
	assert.Equal(t, start, s.Cycle())
}

func TestMasterReportsNoLock(t *testing.T) {
	s := build(t, DefaultConfig(), WithResetTimeout(100))
	s.Master().Do(func(s *SoC) { s.SetReference(false) })

	_, err := s.Master().Read(context.Background(), 0x10000000)
	assert.ErrorIs(t, err, clock.ErrNoLock)

	s.Master().Do(func(s *SoC) { s.SetReference(true) })
	_, err = s.Master().Read(context.Background(), 0x10000000)
	assert.NoError(t, err)
}

func TestExternalResetHoldsDomain(t *testing.T) {
	s := build(t, DefaultConfig(), WithResetTimeout(50))
	ctx := context.Background()
	require.NoError(t, s.Master().Write(ctx, 0x10000000, 1))

	s.Master().Do(func(s *SoC) {
		s.ExternalReset(true)
		s.Tick(4)
	})
	assert.True(t, s.InReset())
	_, err := s.Master().Read(ctx, 0x10000000)
	assert.ErrorIs(t, err, clock.ErrNoLock)

	s.Master().Do(func(s *SoC) { s.ExternalReset(false) })
	got, err := s.Master().Read(ctx, 0x10000000)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), got, "reset clears sram")
}

func TestSoftReset(t *testing.T) {
	rec := &recorder{}
	s := build(t, DefaultConfig(), WithTrace(rec))
	ctx := context.Background()

	require.NoError(t, s.Master().Write(ctx, 0x60000000, 0x5A))
	assert.Equal(t, uint32(0x5A), s.LEDs())

	require.NoError(t, s.Master().Reset(ctx, 3))
	assert.False(t, s.InReset())
	assert.Equal(t, uint32(0), s.LEDs())
	assert.Equal(t, []string{"RELEASED", "ASSERTED", "RELEASED"}, rec.states(log.StateEntityReset))
}

func TestReadIdempotent(t *testing.T) {
	s := build(t, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, s.Master().Write(ctx, 0x10000040, 0xCAFEF00D))

	first, err := s.Master().Read(ctx, 0x10000040)
	require.NoError(t, err)
	second, err := s.Master().Read(ctx, 0x10000040)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, uint32(0xCAFEF00D), first)
}

func TestByteLaneWrite(t *testing.T) {
	s := build(t, DefaultConfig())
	ctx := context.Background()
	m := s.Master()

	require.NoError(t, m.Write(ctx, 0x10000000, 0x11223344))
	require.NoError(t, m.WriteMasked(ctx, 0x10000000, 0xAA000000, 0x8))
	got, err := m.Read(ctx, 0x10000000)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xAA223344), got)
}

func TestLEDsAndGPIO(t *testing.T) {
	s := build(t, DefaultConfig())
	ctx := context.Background()
	m := s.Master()

	require.NoError(t, m.Write(ctx, 0x60000000, 0x5A))
	require.NoError(t, m.Write(ctx, 0x60001000, 0x3))
	assert.Equal(t, uint32(0x5A), s.LEDs())
	assert.Equal(t, uint32(0x3), s.GPIO())

	got, err := m.Read(ctx, 0x60001000)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x3), got)
}

func TestROMIgnoresWrites(t *testing.T) {
	image := make([]byte, 8)
	binary.LittleEndian.PutUint32(image[4:], 0x0BADF00D)
	path := filepath.Join(t.TempDir(), "rom.bin")
	require.NoError(t, os.WriteFile(path, image, 0o644))

	cfg := DefaultConfig()
	cfg.ROM.Image = path
	s := build(t, cfg)
	ctx := context.Background()

	require.NoError(t, s.Master().Write(ctx, 0x4, 0))
	got, err := s.Master().Read(ctx, 0x4)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x0BADF00D), got)
}

func TestMissingImageFailsComposition(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ROM.Image = filepath.Join(t.TempDir(), "missing.bin")
	_, err := Build(cfg)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConcurrentCallersAreSerialized(t *testing.T) {
	s := build(t, DefaultConfig())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			addr := uint64(0x10000000 + i*4)
			assert.NoError(t, s.Master().Write(ctx, addr, uint32(i)+100))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		got, err := s.Master().Read(ctx, uint64(0x10000000+i*4))
		require.NoError(t, err)
		assert.Equal(t, uint32(i)+100, got)
	}
}
