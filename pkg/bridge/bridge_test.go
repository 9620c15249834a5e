package bridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etpu-project/etpu-go/pkg/accel"
	"github.com/etpu-project/etpu-go/pkg/clock"
	"github.com/etpu-project/etpu-go/pkg/log"
	"github.com/etpu-project/etpu-go/pkg/soc"
	"github.com/etpu-project/etpu-go/pkg/transport"
	"github.com/etpu-project/etpu-go/pkg/wire"
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

func (r *recorder) messages() []log.MessageEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []log.MessageEvent
	for _, e := range r.events {
		if e.Message != nil {
			out = append(out, *e.Message)
		}
	}
	return out
}

type fixture struct {
	soc    *soc.SoC
	core   *accel.RegisterCore
	server *Server
	client *Client
	trace  *recorder
}

func newFixture(t *testing.T, opts ...soc.Option) *fixture {
	t.Helper()

	core := accel.NewRegisterCore(0)
	s, err := soc.Build(soc.DefaultConfig(), append([]soc.Option{soc.WithCore(core)}, opts...)...)
	require.NoError(t, err)

	rec := &recorder{}
	server, err := NewServer(ServerConfig{
		Address: "127.0.0.1:0",
		Target:  s.Master(),
		Info:    Describe(s),
		Logger:  rec,
	})
	require.NoError(t, err)
	require.NoError(t, server.Start(context.Background()))
	t.Cleanup(func() { server.Stop() })

	client, err := Dial(context.Background(), server.Addr().String(), nil)
	require.NoError(t, err)
	client.SetTimeout(5 * time.Second)
	t.Cleanup(func() { client.Close() })

	return &fixture{soc: s, core: core, server: server, client: client, trace: rec}
}

func TestNewServerRequiresTarget(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}

func TestRemoteAcceleratorWrite(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.client.Write(0x30000104, 0x2A))
	assert.Equal(t, uint32(0x2A), f.core.Peek(0x104))

	got, err := f.client.Read(0x30000104)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x2A), got)
}

func TestRemoteMaskedWrite(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.client.Write(0x10000000, 0x11223344))
	require.NoError(t, f.client.WriteMasked(0x10000000, 0xAABBCCDD, 0x2))

	got, err := f.client.Read(0x10000000)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1122CC44), got)
}

func TestRemoteInfo(t *testing.T) {
	f := newFixture(t)

	info, err := f.client.Info()
	require.NoError(t, err)
	assert.Equal(t, soc.DefaultIdent, info.Ident)
	assert.Equal(t, f.soc.BuildID().String(), info.BuildID)
	assert.Equal(t, uint64(10e6), info.SysClkFreq)
	require.Len(t, info.Regions, 5)

	byName := map[string]wire.RegionInfo{}
	for _, r := range info.Regions {
		byName[r.Name] = r
	}
	assert.Equal(t, uint32(0x30000000), byName[soc.RegionAccel].Origin)
	assert.Equal(t, "io", byName[soc.RegionAccel].Type)
}

func TestRemoteBusErrorMapsToSentinel(t *testing.T) {
	f := newFixture(t)

	_, err := f.client.Read(0x70000000)
	require.Error(t, err)
	assert.ErrorIs(t, err, soc.ErrBusError)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, wire.StatusBusError, se.Status)
}

func TestRemoteBusyWithoutReference(t *testing.T) {
	f := newFixture(t, soc.WithResetTimeout(64))
	f.soc.Master().Do(func(s *soc.SoC) { s.SetReference(false) })

	_, err := f.client.Read(0x10000000)
	assert.ErrorIs(t, err, clock.ErrNoLock)

	f.soc.Master().Do(func(s *soc.SoC) { s.SetReference(true) })
	_, err = f.client.Read(0x10000000)
	assert.NoError(t, err)
}

func TestRemoteReset(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.client.Write(0x10000000, 7))
	require.NoError(t, f.client.Reset(4))

	var inReset bool
	f.soc.Master().Do(func(s *soc.SoC) { inReset = s.InReset() })
	assert.False(t, inReset)
}

func TestOversizedResetIsRejected(t *testing.T) {
	f := newFixture(t)
	start := time.Now()

	err := f.client.Reset(0xFFFFFFFF)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, wire.StatusInvalid, se.Status)
	assert.Less(t, time.Since(start), 2*time.Second)

	// The master is not held: other requests still go through.
	require.NoError(t, f.client.Write(0x10000000, 5))
}

func TestInvalidRequestIsAnswered(t *testing.T) {
	f := newFixture(t)

	conn, err := transport.Dial(context.Background(), f.server.Addr().String(), transport.ClientConfig{})
	require.NoError(t, err)
	defer conn.Close()

	// Unaligned address; EncodeRequest would refuse it.
	data, err := wire.Marshal(&wire.Request{MessageID: 77, Op: wire.OpRead, Address: 0x10000002})
	require.NoError(t, err)
	require.NoError(t, conn.Send(data))

	raw, err := conn.Receive(5 * time.Second)
	require.NoError(t, err)
	resp, err := wire.DecodeResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, uint32(77), resp.MessageID)
	assert.Equal(t, wire.StatusInvalid, resp.Status)
	assert.NotEmpty(t, resp.Message)
}

func TestMessagesAreTraced(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.client.Write(0x10000000, 1))

	// The response event is logged after the send, so wait for it.
	require.Eventually(t, func() bool { return len(f.trace.messages()) == 2 }, 2*time.Second, 10*time.Millisecond)

	msgs := f.trace.messages()
	assert.Equal(t, log.MessageTypeRequest, msgs[0].Type)
	require.NotNil(t, msgs[0].Op)
	assert.Equal(t, wire.OpWrite, *msgs[0].Op)
	require.NotNil(t, msgs[0].Address)
	assert.Equal(t, uint32(0x10000000), *msgs[0].Address)

	assert.Equal(t, log.MessageTypeResponse, msgs[1].Type)
	assert.Equal(t, msgs[0].MessageID, msgs[1].MessageID)
	require.NotNil(t, msgs[1].Status)
	assert.Equal(t, wire.StatusOK, *msgs[1].Status)
	assert.NotNil(t, msgs[1].ProcessingTime)
}

func TestHandleWithoutInfo(t *testing.T) {
	s, err := soc.Build(soc.DefaultConfig())
	require.NoError(t, err)
	server, err := NewServer(ServerConfig{Target: s.Master()})
	require.NoError(t, err)

	resp := server.Handle(context.Background(), &wire.Request{MessageID: 1, Op: wire.OpInfo}, "test")
	assert.Equal(t, wire.StatusInvalid, resp.Status)
}

func TestHandleExpiredContext(t *testing.T) {
	s, err := soc.Build(soc.DefaultConfig())
	require.NoError(t, err)
	server, err := NewServer(ServerConfig{Target: s.Master()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp := server.Handle(ctx, &wire.Request{MessageID: 3, Op: wire.OpRead, Address: 0x10000000}, "test")
	assert.Equal(t, uint32(3), resp.MessageID)
	assert.Equal(t, wire.StatusStalled, resp.Status)
}

func TestStatusErrorUnwrap(t *testing.T) {
	assert.ErrorIs(t, &StatusError{Status: wire.StatusStalled}, soc.ErrStalled)
	assert.Nil(t, (&StatusError{Status: wire.StatusInvalid}).Unwrap())
	assert.Equal(t, "bridge: INVALID", (&StatusError{Status: wire.StatusInvalid}).Error())
}

func TestConcurrentRemoteCallers(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	for i := uint32(0); i < 8; i++ {
		wg.Add(1)
		go func(i uint32) {
			defer wg.Done()
			addr := 0x10000000 + i*4
			if err := f.client.Write(addr, i+100); err != nil {
				t.Errorf("write %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	for i := uint32(0); i < 8; i++ {
		got, err := f.client.Read(0x10000000 + i*4)
		require.NoError(t, err)
		assert.Equal(t, i+100, got)
	}
}
