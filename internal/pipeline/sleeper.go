package pipeline

import (
	"context"
	"time"
)

// Sleeper abstracts the retry backoff delay so tests can run the retry
// state machine without real timers. Backoff sleeps are the only blocking
// points in a worker and must be promptly cancellable.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// timerSleeper is the production Sleeper.
type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
