package builtins

import (
	"context"

	"github.com/hugolhafner/go-consumer/kafka"
	"github.com/hugolhafner/go-consumer/processor"
)

var _ processor.Processor = (*CheckpointEveryProcessor)(nil)

// CheckpointEveryProcessor drives manual-mode readers: it checkpoints the finished offset once at least n
// messages were processed by next since the previous successful checkpoint.
type CheckpointEveryProcessor struct {
	n       int
	pending int
	next    processor.Processor
}

func NewCheckpointEveryProcessor(n int, next processor.Processor) *CheckpointEveryProcessor {
	if n < 1 {
		n = 1
	}
	return &CheckpointEveryProcessor{n: n, next: next}
}

func (p *CheckpointEveryProcessor) Init(tp kafka.TopicPartition, startOffset int64) {
	p.pending = 0
	p.next.Init(tp, startOffset)
}

func (p *CheckpointEveryProcessor) Process(
	ctx context.Context, messages []kafka.Message, checkpointer processor.Checkpointer,
) error {
	if err := p.next.Process(ctx, messages, checkpointer); err != nil {
		return err
	}

	p.pending += len(messages)
	if p.pending >= p.n && checkpointer.CheckpointFinished() {
		p.pending = 0
	}

	return nil
}

func (p *CheckpointEveryProcessor) Shutdown(checkpointer processor.Checkpointer) {
	p.next.Shutdown(checkpointer)
}
