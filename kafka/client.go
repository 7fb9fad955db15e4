package kafka

import (
	"context"
)

// Fetcher reads batches of a single partition at explicit offsets. Implementations are shared by all readers
// of a process and must be safe for concurrent use.
type Fetcher interface {
	// Fetch returns up to maxCount messages with contiguous, increasing offsets starting at startOffset.
	// A startOffset of FromStart (-1) reads from the first retained message.
	// Errors should be *FetchError so callers can tell transient failures from invalid offsets.
	Fetch(ctx context.Context, tp TopicPartition, startOffset int64, maxCount int) ([]Message, error)

	// PartitionEndOffset returns the offset of the last message in the partition, -1 when it is empty.
	PartitionEndOffset(ctx context.Context, tp TopicPartition) (int64, error)
}

// Releaser is implemented by fetchers that hold per-partition resources. A reader releases its partition
// when it is closed.
type Releaser interface {
	Release(tp TopicPartition)
}
