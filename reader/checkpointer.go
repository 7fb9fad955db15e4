package reader

import (
	"context"

	"github.com/hugolhafner/go-consumer/processor"
)

var _ processor.Checkpointer = (*cycleCheckpointer)(nil)

// cycleCheckpointer is handed to the processor while the reader lock is already held by the running
// cycle, so it calls the unlocked internals directly.
type cycleCheckpointer struct {
	r   *PartitionReader
	ctx context.Context
}

func (c *cycleCheckpointer) Checkpoint(offset int64) bool {
	return c.r.checkpoint(c.ctx, offset)
}

func (c *cycleCheckpointer) CheckpointFinished() bool {
	return c.r.checkpoint(c.ctx, c.r.finishedOffset)
}
