package domain

import (
	"context"
	"time"
)

// Clock returns the current time. Injected so rate windows and cursor
// bookkeeping can be tested against simulated time.
type Clock func() time.Time

// Sleeper waits for a duration or until the context is cancelled.
// Pacing delays go through this so tests never wait on wall time.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration)
}

// RealSleeper sleeps on the wall clock.
type RealSleeper struct{}

func (RealSleeper) Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
