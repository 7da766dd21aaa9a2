package vision

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter gates outbound model calls.
type Limiter interface {
	Wait(ctx context.Context) error
}

// NewLimiter allows rps model calls per second with bursts of burst. It
// returns nil, meaning unthrottled, when rps <= 0.
func NewLimiter(rps float64, burst int) Limiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
