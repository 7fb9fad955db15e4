package builtins

import (
	"context"

	"github.com/hugolhafner/go-consumer/kafka"
	"github.com/hugolhafner/go-consumer/processor"
)

var _ processor.Processor = (*ForEachProcessor)(nil)

// ForEachProcessor calls action for every message of a batch, stopping at the first error.
type ForEachProcessor struct {
	action func(ctx context.Context, m kafka.Message) error
}

func NewForEachProcessor(action func(ctx context.Context, m kafka.Message) error) *ForEachProcessor {
	return &ForEachProcessor{action: action}
}

func (p *ForEachProcessor) Init(kafka.TopicPartition, int64) {}

func (p *ForEachProcessor) Process(ctx context.Context, messages []kafka.Message, _ processor.Checkpointer) error {
	for _, m := range messages {
		if err := p.action(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (p *ForEachProcessor) Shutdown(processor.Checkpointer) {}
