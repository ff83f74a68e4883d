package checkout

import (
	"context"
	"time"
)

// Outcome is the resolved result of a polling run.
type Outcome int

const (
	OutcomeCanceled Outcome = iota
	OutcomeConfirmed
	OutcomeFailed
	OutcomeTimedOut
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeFailed:
		return "failed"
	case OutcomeTimedOut:
		return "timed_out"
	default:
		return "canceled"
	}
}

// TickStatus is the result of a single verification check.
type TickStatus int

const (
	// TickPending means not confirmed yet. Transient errors map here
	// so a flaky connection never kills an otherwise-succeeding run.
	TickPending TickStatus = iota
	TickConfirmed
	TickFailed
)

// TickFunc performs one verification check. attempt starts at 1.
type TickFunc func(ctx context.Context, attempt int) TickStatus

// Poller runs a bounded fixed-interval verification loop. It holds no
// mutable state of its own; cancellation comes from the context.
type Poller struct {
	Interval time.Duration
	MaxTicks int
	// OnTick, when set, is called with the attempt number before each
	// check. Used to drive progress display.
	OnTick func(attempt int)
}

// Run executes up to MaxTicks checks, one every Interval, and resolves
// to exactly one Outcome:
//   - OutcomeConfirmed  as soon as a tick reports TickConfirmed
//   - OutcomeFailed     as soon as a tick reports TickFailed
//   - OutcomeTimedOut   when MaxTicks checks stayed pending
//   - OutcomeCanceled   when ctx is done before any of the above
//
// No tick is issued after cancellation or after a resolving tick.
func (p Poller) Run(ctx context.Context, tick TickFunc) Outcome {
	interval := p.Interval
	if interval <= 0 {
		interval = 3 * time.Second
	}
	maxTicks := p.MaxTicks
	if maxTicks <= 0 {
		maxTicks = 30
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for attempt := 1; attempt <= maxTicks; attempt++ {
		select {
		case <-ctx.Done():
			return OutcomeCanceled
		case <-timer.C:
		}

		if p.OnTick != nil {
			p.OnTick(attempt)
		}

		switch tick(ctx, attempt) {
		case TickConfirmed:
			return OutcomeConfirmed
		case TickFailed:
			return OutcomeFailed
		}

		if ctx.Err() != nil {
			return OutcomeCanceled
		}
		timer.Reset(interval)
	}

	return OutcomeTimedOut
}
