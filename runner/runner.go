package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hugolhafner/go-consumer/kafka"
	"github.com/hugolhafner/go-consumer/logger"
	"github.com/hugolhafner/go-consumer/reader"
)

var _ Reader = (*reader.PartitionReader)(nil)

// Reader is the part of reader.PartitionReader a worker drives.
type Reader interface {
	TopicPartition() kafka.TopicPartition
	InitStartOffset(ctx context.Context) error
	FetchData(ctx context.Context) error
	Close(ctx context.Context)
}

// Runner reads a fixed set of partitions in parallel, one goroutine per partition.
type Runner struct {
	readers []Reader
	config  Config
	logger  logger.Logger

	mu      sync.Mutex
	workers []*partitionWorker
	errCh   chan error
}

func New(readers []Reader, opts ...Option) (*Runner, error) {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	if len(readers) == 0 {
		return nil, errors.New("at least one reader is required")
	}

	seen := make(map[kafka.TopicPartition]struct{}, len(readers))
	for _, r := range readers {
		tp := r.TopicPartition()
		if _, ok := seen[tp]; ok {
			return nil, fmt.Errorf("duplicate reader for %s", tp)
		}
		seen[tp] = struct{}{}
	}

	return &Runner{
		readers: readers,
		config:  config,
		logger:  config.Logger.With("component", "runner"),
		errCh:   make(chan error, len(readers)),
	}, nil
}

// Run starts a worker per reader and blocks until ctx is cancelled, a reader fails, or every worker has
// stopped. The first reader failure is returned; all readers are closed before Run returns.
func (r *Runner) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	r.workers = make([]*partitionWorker, 0, len(r.readers))
	for _, rd := range r.readers {
		w := newPartitionWorker(rd, r.config.CloseTimeout, r.errCh, r.config.Logger)
		r.workers = append(r.workers, w)
		w.Start(ctx)
	}
	workers := r.workers
	r.mu.Unlock()

	r.logger.Info("Runner started", "partitions", len(workers))

	allDone := make(chan struct{})
	go func() {
		for _, w := range workers {
			<-w.Done()
		}
		close(allDone)
	}()

	var err error
	select {
	case err = <-r.errCh:
		r.logger.Error("Fatal error received in Run()", "error", err)
	case <-ctx.Done():
		r.logger.Info("Context cancelled, shutting down")
	case <-allDone:
		r.logger.Info("All workers stopped")
	}

	cancel()
	r.shutdown(workers)

	if err == nil {
		select {
		case err = <-r.errCh:
		default:
		}
	}

	return err
}

// shutdown stops every worker and waits for their final commits
func (r *Runner) shutdown(workers []*partitionWorker) {
	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w *partitionWorker) {
			defer wg.Done()
			if err := w.StopAndWait(r.config.WorkerShutdownTimeout); err != nil {
				r.logger.Warn("Worker did not stop in time", "error", err)
			}
		}(w)
	}
	wg.Wait()

	r.logger.Info("Runner stopped")
}
