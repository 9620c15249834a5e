package bridge

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/etpu-project/etpu-go/pkg/log"
)

// Default dial backoff.
const (
	DefaultInitialBackoff = 250 * time.Millisecond
	DefaultMaxBackoff     = 10 * time.Second
	DefaultBackoffFactor  = 2.0
	DefaultJitter         = 0.25
)

// BackoffConfig shapes the delays between dial attempts. Zero fields take
// the defaults; a negative Jitter disables jitter.
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// Backoff yields exponentially growing delays, each stretched by up to
// Jitter of itself. It is not safe for concurrent use.
type Backoff struct {
	cfg      BackoffConfig
	current  time.Duration
	attempts int
	rng      *rand.Rand
}

// NewBackoff returns a backoff starting at cfg.Initial.
func NewBackoff(cfg BackoffConfig) *Backoff {
	if cfg.Initial <= 0 {
		cfg.Initial = DefaultInitialBackoff
	}
	if cfg.Max <= 0 {
		cfg.Max = DefaultMaxBackoff
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = DefaultBackoffFactor
	}
	switch {
	case cfg.Jitter == 0:
		cfg.Jitter = DefaultJitter
	case cfg.Jitter < 0:
		cfg.Jitter = 0
	}
	return &Backoff{
		cfg:     cfg,
		current: cfg.Initial,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns the delay before the next attempt and advances.
func (b *Backoff) Next() time.Duration {
	d := b.current
	if b.cfg.Jitter > 0 {
		d += time.Duration(float64(d) * b.cfg.Jitter * b.rng.Float64())
	}
	b.attempts++
	b.current = min(time.Duration(float64(b.current)*b.cfg.Multiplier), b.cfg.Max)
	return d
}

// Attempts returns how many delays were handed out since the last Reset.
func (b *Backoff) Attempts() int {
	return b.attempts
}

// Reset starts over at the initial delay.
func (b *Backoff) Reset() {
	b.current = b.cfg.Initial
	b.attempts = 0
}

// DialRetry dials address until it succeeds or ctx ends, waiting b.Next()
// between attempts. A nil b uses the default backoff.
func DialRetry(ctx context.Context, address string, logger log.Logger, b *Backoff) (*Client, error) {
	if b == nil {
		b = NewBackoff(BackoffConfig{})
	}
	for {
		c, err := Dial(ctx, address, logger)
		if err == nil {
			return c, nil
		}

		timer := time.NewTimer(b.Next())
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("bridge: dial %s after %d attempts: %w (last: %v)", address, b.Attempts(), ctx.Err(), err)
		case <-timer.C:
		}
	}
}
