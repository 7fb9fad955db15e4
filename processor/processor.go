package processor

import (
	"context"

	"github.com/hugolhafner/go-consumer/kafka"
)

// Checkpointer lets a processor commit its own progress when the reader is in manual mode.
// A handle passed to Process or Shutdown is only valid until that call returns.
type Checkpointer interface {
	// Checkpoint commits offset. It returns false in auto-commit mode, for offsets outside
	// (lastCommitted, finished], or when the store rejected the update.
	Checkpoint(offset int64) bool

	// CheckpointFinished commits the last offset handed to the processor.
	CheckpointFinished() bool
}

// Processor consumes the batches of a single partition. Calls are never concurrent.
type Processor interface {
	// Init is called once before the first batch with the offset the reader will fetch from.
	// A negative offset is a kafka.Position that the fetcher resolves on the first fetch.
	Init(tp kafka.TopicPartition, startOffset int64)

	// Process handles a batch of messages with contiguous increasing offsets. Returning an error leaves the
	// reader position unchanged, so the batch is delivered again unless the error handler decides otherwise.
	Process(ctx context.Context, messages []kafka.Message, checkpointer Checkpointer) error

	// Shutdown is called once after the final commit.
	Shutdown(checkpointer Checkpointer)
}

// Factory creates the processor of one partition.
type Factory func(tp kafka.TopicPartition) Processor

// Func adapts a plain function to Processor; Init and Shutdown do nothing.
type Func func(ctx context.Context, messages []kafka.Message, checkpointer Checkpointer) error

var _ Processor = Func(nil)

func (f Func) Init(kafka.TopicPartition, int64) {}

func (f Func) Process(ctx context.Context, messages []kafka.Message, checkpointer Checkpointer) error {
	return f(ctx, messages, checkpointer)
}

func (f Func) Shutdown(Checkpointer) {}

// Shared returns a Factory handing the same processor to every partition.
// The processor must then be safe for concurrent use.
func Shared(p Processor) Factory {
	return func(kafka.TopicPartition) Processor {
		return p
	}
}
