package errorhandler

import (
	"context"
	"time"

	"github.com/hugolhafner/dskit/backoff"
	"github.com/hugolhafner/go-consumer/kafka"
	"github.com/hugolhafner/go-consumer/logger"
)

// LogAndContinue logs error and leaves the offsets untouched so the batch is fetched again
func LogAndContinue(logger logger.Logger) Handler {
	return HandlerFunc(
		func(ctx context.Context, ec ErrorContext) Action {
			logger.Error("error reading partition, retrying next cycle", ec.logFields()...)
			return ActionContinue{}
		},
	)
}

// LogAndFail logs error and stops the reader
func LogAndFail(logger logger.Logger) Handler {
	return HandlerFunc(
		func(ctx context.Context, ec ErrorContext) Action {
			logger.Error("error reading partition, failing", ec.logFields()...)
			return ActionFail{}
		},
	)
}

// SilentFail stops the reader without logging
func SilentFail() Handler {
	return HandlerFunc(
		func(context.Context, ErrorContext) Action {
			return ActionFail{}
		},
	)
}

// ResetOnInvalidOffset re-seeds the reader from position when the fetch offset fell out of the retained log.
// Every other error is passed to next.
func ResetOnInvalidOffset(position kafka.Position, next Handler) Handler {
	return HandlerFunc(
		func(ctx context.Context, ec ErrorContext) Action {
			if ec.Kind == kafka.KindInvalidOffset {
				return NewActionReset(position)
			}

			return next.Handle(ctx, ec)
		},
	)
}

// WithBackoff waits b.Next(attempt) before asking next for a decision.
// A cancelled context fails immediately.
func WithBackoff(b backoff.Backoff, next Handler) Handler {
	return HandlerFunc(
		func(ctx context.Context, ec ErrorContext) Action {
			timer := time.NewTimer(b.Next(uint(ec.Attempt)))
			defer timer.Stop()

			select {
			case <-ctx.Done():
				return ActionFail{}
			case <-timer.C:
			}

			return next.Handle(ctx, ec)
		},
	)
}

// WithMaxAttempts continues (retrying the same batch) until maxAttempts consecutive failures,
// then the fallback handler is called
func WithMaxAttempts(maxAttempts int, fallback Handler) Handler {
	return HandlerFunc(
		func(ctx context.Context, ec ErrorContext) Action {
			if ec.Attempt < maxAttempts {
				return ActionContinue{}
			}

			return fallback.Handle(ctx, ec)
		},
	)
}

// ActionLogger logs the action decided by the next handler
func ActionLogger(l logger.Logger, level logger.LogLevel, next Handler) Handler {
	return HandlerFunc(
		func(ctx context.Context, ec ErrorContext) Action {
			action := next.Handle(ctx, ec)

			fields := append([]any{"action", action.Type().String()}, ec.logFields()...)
			if r, ok := action.(ActionReset); ok {
				fields = append(fields, "position", r.Position().String())
			}

			l.Log(level, "Error handler decision", fields...)
			return action
		},
	)
}

// Default retries transient failures every second and recovers from out-of-range offsets by reading
// from the partition start.
func Default(l logger.Logger) Handler {
	return ResetOnInvalidOffset(
		kafka.FromStart,
		WithBackoff(backoff.NewFixed(time.Second), LogAndContinue(l)),
	)
}
