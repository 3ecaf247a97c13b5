package fetch

import (
	"context"
	"sync"
	"time"
)

// gate enforces the minimum spacing between consecutive outbound requests,
// measured from the end of the previous request. Holding the gate for the
// whole request serializes outbound traffic engine-wide, which is exactly
// the politeness contract: workers overlap on extraction, never on the
// wire.
type gate struct {
	mu       sync.Mutex
	interval time.Duration
	lastDone time.Time
}

func newGate(interval time.Duration) *gate {
	return &gate{interval: interval}
}

// run waits out the remaining politeness interval, executes fn, and stamps
// the completion time fn's end.
func (g *gate) run(ctx context.Context, fn func() error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.interval > 0 && !g.lastDone.IsZero() {
		if wait := g.interval - time.Since(g.lastDone); wait > 0 {
			if err := pause(ctx, wait); err != nil {
				return err
			}
		}
	}
	err := fn()
	g.lastDone = time.Now()
	return err
}

// pause is a cooperative wait that honors context cancellation.
func pause(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
