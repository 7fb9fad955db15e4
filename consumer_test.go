//go:build unit

package consumer_test

import (
	"context"
	"sync"
	"testing"
	"time"

	consumer "github.com/hugolhafner/go-consumer"
	"github.com/hugolhafner/go-consumer/kafka"
	mockkafka "github.com/hugolhafner/go-consumer/kafka/mock"
	"github.com/hugolhafner/go-consumer/logger"
	mocklogger "github.com/hugolhafner/go-consumer/logger/mock"
	"github.com/hugolhafner/go-consumer/metrics"
	"github.com/hugolhafner/go-consumer/offsetstore"
	"github.com/hugolhafner/go-consumer/processor"
	"github.com/hugolhafner/go-consumer/reader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	p0 = kafka.TopicPartition{Topic: "orders", Partition: 0}
	p1 = kafka.TopicPartition{Topic: "orders", Partition: 1}
)

type recordingProvider struct {
	mu    sync.Mutex
	sinks map[kafka.TopicPartition]*metrics.Recorder
}

func (p *recordingProvider) ForPartition(tp kafka.TopicPartition) metrics.Sink {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sinks == nil {
		p.sinks = make(map[kafka.TopicPartition]*metrics.Recorder)
	}
	r := &metrics.Recorder{}
	p.sinks[tp] = r
	return r
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	fetcher := mockkafka.NewFetcher()
	store := offsetstore.NewMemory()
	factory := processor.Shared(processor.Func(nil))

	_, err := consumer.New(fetcher, store, nil, []kafka.TopicPartition{p0}, consumer.WithGroup("billing"))
	require.Error(t, err)

	_, err = consumer.New(fetcher, store, factory, nil, consumer.WithGroup("billing"))
	require.Error(t, err)

	_, err = consumer.New(fetcher, store, factory, []kafka.TopicPartition{p0, p0}, consumer.WithGroup("billing"))
	require.Error(t, err)

	_, err = consumer.New(fetcher, store, factory, []kafka.TopicPartition{p0})
	require.Error(t, err, "group is required")
}

func TestGenerateWorkerID(t *testing.T) {
	t.Parallel()

	a := consumer.GenerateWorkerID()
	b := consumer.GenerateWorkerID()

	require.NotEqual(t, a, b)
	require.Contains(t, a, "-")

	c, err := consumer.New(
		mockkafka.NewFetcher(), offsetstore.NewMemory(), processor.Shared(processor.Func(nil)),
		[]kafka.TopicPartition{p0}, consumer.WithGroup("billing"),
	)
	require.NoError(t, err)
	require.NotEmpty(t, c.WorkerID())
}

func TestConsumer_RunCommitsEveryPartition(t *testing.T) {
	t.Parallel()

	fetcher := mockkafka.NewFetcher()
	fetcher.AppendValues(p0, "a", "b", "c")
	fetcher.AppendValues(p1, "d", "e", "f", "g")

	store := offsetstore.NewMemory()
	store.Set("billing", p1, 1)

	var mu sync.Mutex
	values := make(map[kafka.TopicPartition][]string)
	factory := func(tp kafka.TopicPartition) processor.Processor {
		return processor.Func(
			func(_ context.Context, messages []kafka.Message, _ processor.Checkpointer) error {
				mu.Lock()
				defer mu.Unlock()
				for _, m := range messages {
					values[tp] = append(values[tp], string(m.Value))
				}
				return nil
			},
		)
	}

	provider := &recordingProvider{}
	c, err := consumer.New(
		fetcher, store, factory, []kafka.TopicPartition{p0, p1},
		consumer.WithGroup("billing"),
		consumer.WithWorkerID("worker-7"),
		consumer.WithMetrics(provider),
		consumer.WithReaderOptions(reader.WithFetchInterval(time.Millisecond)),
	)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(context.Background()) }()

	require.Eventually(
		t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(values[p0]) == 3 && len(values[p1]) == 2
		}, time.Second, 5*time.Millisecond,
	)

	c.Close()
	require.NoError(t, <-errCh)

	mu.Lock()
	assert.Equal(t, []string{"f", "g"}, values[p1], "partition 1 resumes after its committed offset")
	mu.Unlock()

	committed, ok := store.Committed("billing", p0)
	require.True(t, ok)
	assert.Equal(t, int64(2), committed.Offset)
	assert.Equal(t, "worker-7", committed.WorkerID)

	committed, ok = store.Committed("billing", p1)
	require.True(t, ok)
	assert.Equal(t, int64(3), committed.Offset)

	provider.mu.Lock()
	assert.Equal(t, 3, provider.sinks[p0].Snapshot().Messages)
	assert.Equal(t, 2, provider.sinks[p1].Snapshot().Messages)
	provider.mu.Unlock()

	require.ErrorIs(t, c.Run(context.Background()), consumer.ErrClosed)
}

func TestConsumer_OuterCheckpoint(t *testing.T) {
	t.Parallel()

	fetcher := mockkafka.NewFetcher()
	fetcher.AppendValues(p0, "a", "b", "c", "d")

	store := offsetstore.NewMemory()
	store.Set("billing", p0, 0)

	var mu sync.Mutex
	var got []int64
	factory := processor.Shared(
		processor.Func(
			func(_ context.Context, messages []kafka.Message, _ processor.Checkpointer) error {
				mu.Lock()
				defer mu.Unlock()
				for _, m := range messages {
					got = append(got, m.Offset)
				}
				return nil
			},
		),
	)

	c, err := consumer.New(
		fetcher, store, factory, []kafka.TopicPartition{p0},
		consumer.WithGroup("billing"),
		consumer.WithOuterCheckpoint(p0, 3),
		consumer.WithReaderOptions(reader.WithFetchInterval(time.Millisecond)),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()

	require.Eventually(
		t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(got) == 1
		}, time.Second, 5*time.Millisecond,
	)

	cancel()
	require.NoError(t, <-errCh)
	require.Equal(t, []int64{3}, got)
}

func TestConsumer_RunTwice(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	p := processor.NewMockProcessor()
	p.On("Init", p0, int64(-1)).Run(func(mock.Arguments) { close(started) }).Return()
	p.On("Shutdown", mock.Anything).Return()

	c, err := consumer.New(
		mockkafka.NewFetcher(), offsetstore.NewMemory(), processor.Shared(p),
		[]kafka.TopicPartition{p0},
		consumer.WithGroup("billing"),
		consumer.WithReaderOptions(reader.WithFetchInterval(time.Millisecond)),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("consumer did not start")
	}

	require.ErrorIs(t, c.Run(ctx), consumer.ErrAlreadyRunning)

	cancel()
	require.NoError(t, <-errCh)
	p.AssertNumberOfCalls(t, "Shutdown", 1)
}

func TestConsumer_ManualCheckpointThroughReader(t *testing.T) {
	t.Parallel()

	fetcher := mockkafka.NewFetcher()
	fetcher.AppendValues(p0, "a", "b")
	store := offsetstore.NewMemory()

	c, err := consumer.New(
		fetcher, store, processor.Shared(processor.Func(
			func(context.Context, []kafka.Message, processor.Checkpointer) error { return nil },
		)),
		[]kafka.TopicPartition{p0},
		consumer.WithGroup("billing"),
		consumer.WithReaderOptions(reader.WithAutoCommit(false)),
	)
	require.NoError(t, err)

	r, ok := c.Reader(p0)
	require.True(t, ok)
	require.NoError(t, r.InitStartOffset(context.Background()))
	require.NoError(t, r.FetchData(context.Background()))
	require.True(t, r.Checkpoint(0))

	committed, ok := store.Committed("billing", p0)
	require.True(t, ok)
	require.Equal(t, int64(0), committed.Offset)
	require.Equal(t, c.WorkerID(), committed.WorkerID)
}

func TestConsumer_ReaderLogsCarryGroupAndWorker(t *testing.T) {
	t.Parallel()

	fetcher := mockkafka.NewFetcher()
	fetcher.AppendValues(p0, "a")
	l := mocklogger.New()

	c, err := consumer.New(
		fetcher, offsetstore.NewMemory(), processor.Shared(processor.Func(
			func(context.Context, []kafka.Message, processor.Checkpointer) error { return nil },
		)),
		[]kafka.TopicPartition{p0},
		consumer.WithGroup("billing"),
		consumer.WithWorkerID("worker-7"),
		consumer.WithLogger(l),
	)
	require.NoError(t, err)

	r, ok := c.Reader(p0)
	require.True(t, ok)
	require.NoError(t, r.InitStartOffset(context.Background()))
	require.NoError(t, r.FetchData(context.Background()))

	var found bool
	for _, e := range l.Entries() {
		if e.Level != logger.InfoLevel || e.Message != "Committed offset" {
			continue
		}
		found = true
		require.Subset(t, e.KV, []any{"group", "billing", "worker", "worker-7", "topic", "orders"})
	}
	require.True(t, found, "expected a commit log entry")
}
