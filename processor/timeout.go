package processor

import (
	"context"
	"time"

	"github.com/xraph/conveyor"
)

// Timeout returns middleware that gives each call a deadline of d. The
// wrapped processor should honour ctx; a call still running past the
// deadline is reported as context.DeadlineExceeded once it returns.
func Timeout(d time.Duration) Middleware {
	return func(ctx context.Context, r *conveyor.Record, next Handler) (*conveyor.Record, error) {
		if d <= 0 {
			return next(ctx, r)
		}
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		out, err := next(ctx, r)
		if err == nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return out, err
	}
}
