package processor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/conveyor"
)

// Logging returns middleware that logs the outcome of every call at debug
// level, and failures at error level.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, r *conveyor.Record, next Handler) (*conveyor.Record, error) {
		start := time.Now()
		out, err := next(ctx, r)
		elapsed := time.Since(start)

		switch {
		case err != nil:
			logger.Error("record processing failed",
				slog.Int64("record_number", r.Header.Number),
				slog.String("source", r.Header.Source),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		case out == nil:
			logger.Debug("record filtered",
				slog.Int64("record_number", r.Header.Number),
				slog.String("source", r.Header.Source),
			)
		default:
			logger.Debug("record processed",
				slog.Int64("record_number", r.Header.Number),
				slog.String("source", r.Header.Source),
				slog.Duration("elapsed", elapsed),
			)
		}
		return out, err
	}
}

func typeName(v any) string { return fmt.Sprintf("%T", v) }
