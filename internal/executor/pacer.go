package executor

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer keeps consecutive sends at least interval apart, measured from the
// completion of the previous send.
type Pacer struct {
	limiter  *rate.Limiter
	interval time.Duration
	clock    Clock
	enabled  bool
}

// NewPacer creates a Pacer. A disabled Pacer never sleeps.
func NewPacer(interval time.Duration, enabled bool, clock Clock) *Pacer {
	return &Pacer{
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		interval: interval,
		clock:    clock,
		enabled:  enabled && interval > 0,
	}
}

// Wait sleeps for whatever remains of the interval since the last MarkSent.
func (p *Pacer) Wait(ctx context.Context) error {
	if !p.enabled {
		return nil
	}

	tokens := p.limiter.TokensAt(p.clock.Now())
	if tokens >= 1 {
		return nil
	}

	delay := time.Duration((1 - tokens) * float64(p.interval))
	return p.clock.Sleep(ctx, delay)
}

// MarkSent records that a send just completed.
func (p *Pacer) MarkSent() {
	if !p.enabled {
		return
	}
	p.limiter.ReserveN(p.clock.Now(), 1)
}
