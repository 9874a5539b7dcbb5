package geocoding

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle enforces a minimum interval between successive calls. The first
// Wait returns immediately; each later one waits until interval has passed
// since the previous call was let through. Waiting blocks only the caller.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle creates a throttle. A non-positive interval disables waiting.
func NewThrottle(interval time.Duration) *Throttle {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Throttle{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the next call may proceed or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}
