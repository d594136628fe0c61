package processor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/xraph/conveyor"
)

// Recover returns middleware that turns a panic in the chain into a
// processing error. The panic is logged with its stack trace.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, r *conveyor.Record, next Handler) (out *conveyor.Record, retErr error) {
		defer func() {
			if p := recover(); p != nil {
				logger.Error("processor panicked",
					slog.Int64("record_number", r.Header.Number),
					slog.Any("panic", p),
					slog.String("stack", string(debug.Stack())),
				)
				out = nil
				retErr = fmt.Errorf("panic processing record %d: %v", r.Header.Number, p)
			}
		}()
		return next(ctx, r)
	}
}
