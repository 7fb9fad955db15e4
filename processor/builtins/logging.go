package builtins

import (
	"context"

	"github.com/hugolhafner/go-consumer/kafka"
	"github.com/hugolhafner/go-consumer/logger"
	"github.com/hugolhafner/go-consumer/processor"
)

var _ processor.Processor = (*LoggingProcessor)(nil)

// LoggingProcessor logs a line per batch and, at debug level, per message.
type LoggingProcessor struct {
	logger logger.Logger
}

func NewLoggingProcessor(l logger.Logger) *LoggingProcessor {
	return &LoggingProcessor{logger: l}
}

func (p *LoggingProcessor) Init(tp kafka.TopicPartition, startOffset int64) {
	p.logger = p.logger.With("topic", tp.Topic, "partition", tp.Partition)
	p.logger.Info("Processor initialised", "offset", startOffset)
}

func (p *LoggingProcessor) Process(ctx context.Context, messages []kafka.Message, _ processor.Checkpointer) error {
	if len(messages) == 0 {
		return nil
	}

	p.logger.Info(
		"Batch received",
		"count", len(messages),
		"first", messages[0].Offset,
		"last", messages[len(messages)-1].Offset,
	)

	if p.logger.Level() <= logger.DebugLevel {
		for _, m := range messages {
			p.logger.Debug("Message", "offset", m.Offset, "key", string(m.Key), "size", m.Size())
		}
	}

	return nil
}

func (p *LoggingProcessor) Shutdown(processor.Checkpointer) {
	p.logger.Info("Processor shut down")
}
