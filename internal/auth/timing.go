package auth

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"
)

// TimingDelay pads failed authentication attempts to a randomized minimum
// duration so "unknown email" and "wrong password" are indistinguishable.
type TimingDelay struct {
	Base           time.Duration
	Jitter         time.Duration
	DelayOnSuccess bool
}

// DefaultTimingDelay is used by the login flow.
func DefaultTimingDelay() *TimingDelay {
	return &TimingDelay{Base: 250 * time.Millisecond, Jitter: 100 * time.Millisecond}
}

func (td *TimingDelay) target() time.Duration {
	d := td.Base
	if td.Jitter > 0 {
		if n, err := rand.Int(rand.Reader, big.NewInt(int64(td.Jitter))); err == nil {
			d += time.Duration(n.Int64())
		}
	}
	return d
}

// WaitFrom blocks until at least the target delay has elapsed since start.
// It returns early when ctx is cancelled.
func (td *TimingDelay) WaitFrom(ctx context.Context, start time.Time, success bool) {
	if td == nil || (success && !td.DelayOnSuccess) {
		return
	}

	remaining := td.target() - time.Since(start)
	if remaining <= 0 {
		return
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
