package utils

import (
	"context"
	"time"
)

// SweepFunc runs one sweep pass at now.
type SweepFunc func(ctx context.Context, now time.Time) error

// StartSweeper runs fn every interval until ctx is cancelled. The returned channel
// is closed once the goroutine has exited.
func StartSweeper(ctx context.Context, interval time.Duration, fn SweepFunc) <-chan struct{} {
	if interval <= 0 {
		interval = time.Hour
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if err := fn(ctx, now.UTC()); err != nil && ctx.Err() == nil {
					Sugar.Errorf("streak sweep failed: %v", err)
				}
			}
		}
	}()
	return done
}
