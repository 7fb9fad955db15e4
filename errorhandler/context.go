package errorhandler

import (
	"github.com/hugolhafner/go-consumer/kafka"
)

// ErrorContext provides context about a failed fetch or process cycle.
// It contains all the information a handler needs to make a decision about
// how to handle the error.
type ErrorContext struct {
	TopicPartition kafka.TopicPartition

	// StartOffset is the offset the failed cycle fetched from; it is unchanged by the failure.
	StartOffset int64

	Error error

	// Kind classifies Error, see kafka.KindOf.
	Kind kafka.ErrorKind

	// Attempt counts consecutive failed cycles, 1 indexed. A successful cycle resets it.
	Attempt int

	// Phase indicates where in the cycle the error occurred
	Phase ErrorPhase
}

func NewErrorContext(tp kafka.TopicPartition, startOffset int64, err error) ErrorContext {
	return ErrorContext{
		TopicPartition: tp,
		StartOffset:    startOffset,
		Error:          err,
		Kind:           kafka.KindOf(err),
		Attempt:        1,
	}
}

func (ec ErrorContext) WithError(err error) ErrorContext {
	ec.Error = err
	ec.Kind = kafka.KindOf(err)
	return ec
}

func (ec ErrorContext) WithAttempt(attempt int) ErrorContext {
	ec.Attempt = attempt
	return ec
}

func (ec ErrorContext) WithPhase(phase ErrorPhase) ErrorContext {
	ec.Phase = phase
	return ec
}

func (ec ErrorContext) IncrementAttempt() ErrorContext {
	ec.Attempt++
	return ec
}

func (ec ErrorContext) logFields() []any {
	return []any{
		"error", ec.Error,
		"kind", ec.Kind.String(),
		"topic", ec.TopicPartition.Topic,
		"partition", ec.TopicPartition.Partition,
		"offset", ec.StartOffset,
		"attempt", ec.Attempt,
		"phase", ec.Phase.String(),
	}
}
