package processor

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/xraph/conveyor"
)

// Throttle returns middleware that waits for a token from limiter before
// every call. Use it in front of processors calling rate-limited
// services. A cancelled context during the wait is a processing error.
func Throttle(limiter *rate.Limiter) Middleware {
	return func(ctx context.Context, r *conveyor.Record, next Handler) (*conveyor.Record, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("throttle: %w", err)
		}
		return next(ctx, r)
	}
}

// ThrottleRate is Throttle with a new limiter allowing perSecond calls
// per second and the given burst.
func ThrottleRate(perSecond float64, burst int) Middleware {
	return Throttle(rate.NewLimiter(rate.Limit(perSecond), burst))
}
