// Package ratelimit provides the fixed-interval pacing used between calls to
// the upstream providers. Delays are modeled as an injectable Pacer rather
// than ad-hoc sleeps so tests can run with a zero-delay pacer.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer gates the caller between consecutive external calls.
type Pacer interface {
	// Wait blocks until the next call is allowed or the context is done.
	Wait(ctx context.Context) error
}

type intervalPacer struct {
	limiter *rate.Limiter
}

// Every returns a Pacer that allows one call per interval. The first call is
// admitted immediately; each subsequent call waits out the remainder of the
// interval. A non-positive interval behaves like None.
func Every(interval time.Duration) Pacer {
	if interval <= 0 {
		return None()
	}
	return &intervalPacer{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

func (p *intervalPacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

type nopPacer struct{}

// None returns a Pacer that never waits. Used in tests and for disabled delays.
func None() Pacer { return nopPacer{} }

func (nopPacer) Wait(context.Context) error { return nil }
