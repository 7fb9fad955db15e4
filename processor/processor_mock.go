package processor

import (
	"context"

	"github.com/hugolhafner/go-consumer/kafka"
	"github.com/stretchr/testify/mock"
)

var _ Processor = (*MockProcessor)(nil)

type MockProcessor struct {
	mock.Mock
}

func NewMockProcessor() *MockProcessor {
	return &MockProcessor{}
}

func (p *MockProcessor) Init(tp kafka.TopicPartition, startOffset int64) {
	p.Mock.Called(tp, startOffset)
}

func (p *MockProcessor) Process(ctx context.Context, messages []kafka.Message, checkpointer Checkpointer) error {
	args := p.Mock.Called(ctx, messages, checkpointer)
	return args.Error(0)
}

func (p *MockProcessor) Shutdown(checkpointer Checkpointer) {
	p.Mock.Called(checkpointer)
}
