package main

import (
	"github.com/hugolhafner/dskit/backoff"
	"github.com/hugolhafner/go-consumer/errorhandler"
	"github.com/hugolhafner/go-consumer/internal/config/dto"
	"github.com/hugolhafner/go-consumer/kafka"
	"github.com/hugolhafner/go-consumer/logger"
)

// newErrorHandler recovers out-of-range offsets from position and retries everything else with a fixed
// backoff. With max attempts set the reader fails once they are used up; decode errors can fail at once.
func newErrorHandler(cfg dto.RetryConfig, position kafka.Position, l logger.Logger) errorhandler.Handler {
	var retry errorhandler.Handler = errorhandler.LogAndContinue(l)
	if cfg.MaxAttempts > 0 {
		retry = errorhandler.WithMaxAttempts(cfg.MaxAttempts, errorhandler.LogAndFail(l))
	}

	handler := errorhandler.ResetOnInvalidOffset(
		position,
		errorhandler.WithBackoff(backoff.NewFixed(cfg.Backoff), retry),
	)

	var decode errorhandler.Handler
	if cfg.FailOnDecode {
		decode = errorhandler.LogAndFail(l)
	}

	return errorhandler.ActionLogger(
		l, logger.DebugLevel,
		errorhandler.NewPhaseRouter(handler, nil, decode, nil),
	)
}
