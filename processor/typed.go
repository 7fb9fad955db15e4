package processor

import (
	"context"
	"errors"
	"fmt"

	"github.com/hugolhafner/go-consumer/kafka"
	"github.com/hugolhafner/go-consumer/serde"
)

// Record is a message with its decoded value.
type Record[T any] struct {
	kafka.Message
	Decoded T
}

// DecodeError reports the first message of a batch whose value could not be deserialised.
type DecodeError struct {
	TopicPartition kafka.TopicPartition
	Offset         int64
	Err            error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s at offset %d: %v", e.TopicPartition, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func AsDecodeError(err error) (*DecodeError, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de, true
	}

	return nil, false
}

// TypedHandler processes a decoded batch.
type TypedHandler[T any] func(ctx context.Context, records []Record[T], checkpointer Checkpointer) error

var _ Processor = (*Typed[any])(nil)

// Typed decodes every message value with a Deserialiser before calling its handler.
type Typed[T any] struct {
	deserialiser serde.Deserialiser[T]
	handler      TypedHandler[T]
	tp           kafka.TopicPartition
}

func NewTyped[T any](d serde.Deserialiser[T], handler TypedHandler[T]) *Typed[T] {
	return &Typed[T]{
		deserialiser: d,
		handler:      handler,
	}
}

// TypedFactory returns a Factory creating a Typed processor per partition.
func TypedFactory[T any](d serde.Deserialiser[T], handler TypedHandler[T]) Factory {
	return func(kafka.TopicPartition) Processor {
		return NewTyped(d, handler)
	}
}

func (p *Typed[T]) Init(tp kafka.TopicPartition, _ int64) {
	p.tp = tp
}

func (p *Typed[T]) Process(ctx context.Context, messages []kafka.Message, checkpointer Checkpointer) error {
	records := make([]Record[T], 0, len(messages))
	for _, m := range messages {
		v, err := p.deserialiser.Deserialise(m.Topic, m.Value)
		if err != nil {
			return &DecodeError{TopicPartition: m.TopicPartition(), Offset: m.Offset, Err: err}
		}
		records = append(records, Record[T]{Message: m, Decoded: v})
	}

	return p.handler(ctx, records, checkpointer)
}

func (p *Typed[T]) Shutdown(Checkpointer) {}
