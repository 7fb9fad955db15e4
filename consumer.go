package consumer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/hugolhafner/go-consumer/kafka"
	"github.com/hugolhafner/go-consumer/logger"
	"github.com/hugolhafner/go-consumer/offsetstore"
	"github.com/hugolhafner/go-consumer/processor"
	"github.com/hugolhafner/go-consumer/reader"
	"github.com/hugolhafner/go-consumer/runner"
)

const Version = "v0.1.0" // x-release-please-version

var (
	ErrAlreadyRunning = errors.New("consumer is already running")
	ErrClosed         = errors.New("consumer is closed")
)

// Consumer reads a static set of partitions, one reader per partition.
type Consumer struct {
	config Config
	logger logger.Logger

	readers map[kafka.TopicPartition]*reader.PartitionReader
	order   []kafka.TopicPartition

	mu        sync.Mutex
	running   bool
	closeOnce sync.Once
	closedCh  chan struct{}
}

func New(
	fetcher kafka.Fetcher,
	store offsetstore.Store,
	factory processor.Factory,
	partitions []kafka.TopicPartition,
	opts ...ConfigOption,
) (*Consumer, error) {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	return NewWithConfig(fetcher, store, factory, partitions, config)
}

func NewWithConfig(
	fetcher kafka.Fetcher,
	store offsetstore.Store,
	factory processor.Factory,
	partitions []kafka.TopicPartition,
	config Config,
) (*Consumer, error) {
	if factory == nil {
		return nil, errors.New("processor factory is required")
	}
	if len(partitions) == 0 {
		return nil, errors.New("at least one partition is required")
	}
	if config.Logger == nil {
		config.Logger = logger.NewNoopLogger()
	}
	if config.WorkerID == "" {
		config.WorkerID = GenerateWorkerID()
	}

	l := config.Logger.With("group", config.Group, "worker", config.WorkerID)

	c := &Consumer{
		config:   config,
		logger:   l,
		readers:  make(map[kafka.TopicPartition]*reader.PartitionReader, len(partitions)),
		order:    make([]kafka.TopicPartition, 0, len(partitions)),
		closedCh: make(chan struct{}),
	}

	for _, tp := range partitions {
		if _, ok := c.readers[tp]; ok {
			return nil, fmt.Errorf("partition %s listed twice", tp)
		}

		opts := []reader.Option{
			reader.WithGroup(config.Group),
			reader.WithWorkerID(config.WorkerID),
			reader.WithLogger(l),
			reader.WithTelemetry(config.Telemetry),
			reader.WithErrorHandler(config.ErrorHandler),
		}
		if config.Metrics != nil {
			opts = append(opts, reader.WithMetrics(config.Metrics.ForPartition(tp)))
		}
		if offset, ok := config.OuterCheckpoints[tp]; ok {
			opts = append(opts, reader.WithOuterCheckpoint(offset))
		}
		opts = append(opts, config.ReaderOptions...)

		r, err := reader.New(tp, fetcher, store, factory(tp), opts...)
		if err != nil {
			return nil, fmt.Errorf("create reader for %s: %w", tp, err)
		}

		c.readers[tp] = r
		c.order = append(c.order, tp)
	}

	return c, nil
}

// GenerateWorkerID returns "<hostname>-<uuid>".
func GenerateWorkerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "consumer"
	}
	return host + "-" + uuid.NewString()
}

func (c *Consumer) WorkerID() string {
	return c.config.WorkerID
}

// Reader returns the reader of tp, for manual checkpoints outside of a processor.
func (c *Consumer) Reader(tp kafka.TopicPartition) (*reader.PartitionReader, bool) {
	r, ok := c.readers[tp]
	return r, ok
}

// Run reads every partition until ctx is cancelled, Close is called, or a reader fails. The readers are
// closed with a final commit when Run returns, so a consumer runs once.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.startRunning(); err != nil {
		return err
	}
	defer c.Close()

	readers := make([]runner.Reader, 0, len(c.order))
	for _, tp := range c.order {
		readers = append(readers, c.readers[tp])
	}

	r, err := runner.New(
		readers,
		runner.WithLogger(c.logger),
		runner.WithWorkerShutdownTimeout(c.config.ShutdownTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-c.closedCh:
			cancel()
		case <-runCtx.Done():
		}
	}()

	c.logger.Info("Consumer started", "partitions", len(readers))
	return r.Run(runCtx)
}

func (c *Consumer) Close() {
	c.closeOnce.Do(
		func() {
			c.mu.Lock()
			defer c.mu.Unlock()

			c.running = false
			close(c.closedCh)
		},
	)
}

func (c *Consumer) startRunning() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return ErrAlreadyRunning
	}

	select {
	case <-c.closedCh:
		return ErrClosed
	default:
	}

	c.running = true
	return nil
}
