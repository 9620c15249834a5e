package bridge

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etpu-project/etpu-go/pkg/soc"
)

func TestBackoffGrowsToMax(t *testing.T) {
	b := NewBackoff(BackoffConfig{Initial: 100 * time.Millisecond, Max: time.Second, Jitter: -1})

	want := []time.Duration{100, 200, 400, 800, 1000, 1000}
	for i, w := range want {
		assert.Equal(t, w*time.Millisecond, b.Next(), "attempt %d", i)
	}
	assert.Equal(t, len(want), b.Attempts())

	b.Reset()
	assert.Zero(t, b.Attempts())
	assert.Equal(t, 100*time.Millisecond, b.Next())
}

func TestBackoffJitterBounds(t *testing.T) {
	b := NewBackoff(BackoffConfig{Initial: time.Second, Max: time.Second, Jitter: 0.5})
	for i := 0; i < 50; i++ {
		d := b.Next()
		assert.GreaterOrEqual(t, d, time.Second)
		assert.LessOrEqual(t, d, 1500*time.Millisecond)
	}
}

func TestBackoffDefaults(t *testing.T) {
	b := NewBackoff(BackoffConfig{})
	d := b.Next()
	assert.GreaterOrEqual(t, d, DefaultInitialBackoff)
	assert.LessOrEqual(t, d, time.Duration(float64(DefaultInitialBackoff)*(1+DefaultJitter)))
}

func TestDialRetryGivesUp(t *testing.T) {
	// Grab a free port and release it so nothing listens there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err = DialRetry(ctx, addr, nil, NewBackoff(BackoffConfig{Initial: 10 * time.Millisecond, Jitter: -1}))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDialRetryConnects(t *testing.T) {
	s, err := soc.Build(soc.DefaultConfig())
	require.NoError(t, err)
	server, err := NewServer(ServerConfig{Address: "127.0.0.1:0", Target: s.Master(), Info: Describe(s)})
	require.NoError(t, err)
	require.NoError(t, server.Start(context.Background()))
	t.Cleanup(func() { server.Stop() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := DialRetry(ctx, server.Addr().String(), nil, nil)
	require.NoError(t, err)
	defer c.Close()

	info, err := c.Info()
	require.NoError(t, err)
	assert.Equal(t, s.Ident(), info.Ident)
}
