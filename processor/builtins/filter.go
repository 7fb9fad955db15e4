package builtins

import (
	"context"

	"github.com/hugolhafner/go-consumer/kafka"
	"github.com/hugolhafner/go-consumer/processor"
)

type PredicateFunc func(ctx context.Context, m kafka.Message) (bool, error)

var _ processor.Processor = (*FilterProcessor)(nil)

// FilterProcessor forwards only the matching messages of a batch to next. Batches with no match are not
// forwarded at all.
type FilterProcessor struct {
	predicate PredicateFunc
	next      processor.Processor
}

func NewFilterProcessor(predicate PredicateFunc, next processor.Processor) *FilterProcessor {
	return &FilterProcessor{predicate: predicate, next: next}
}

func (p *FilterProcessor) Init(tp kafka.TopicPartition, startOffset int64) {
	p.next.Init(tp, startOffset)
}

func (p *FilterProcessor) Process(
	ctx context.Context, messages []kafka.Message, checkpointer processor.Checkpointer,
) error {
	kept := make([]kafka.Message, 0, len(messages))
	for _, m := range messages {
		ok, err := p.predicate(ctx, m)
		if err != nil {
			return err
		}
		if ok {
			kept = append(kept, m)
		}
	}

	if len(kept) == 0 {
		return nil
	}

	return p.next.Process(ctx, kept, checkpointer)
}

func (p *FilterProcessor) Shutdown(checkpointer processor.Checkpointer) {
	p.next.Shutdown(checkpointer)
}
