package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hugolhafner/go-consumer/kafka"
	"github.com/hugolhafner/go-consumer/logger"
)

// partitionWorker drives a single partition reader in its own goroutine
type partitionWorker struct {
	reader       Reader
	closeTimeout time.Duration
	logger       logger.Logger

	doneCh chan struct{}
	stopCh chan struct{}
	errCh  chan error

	mu      sync.RWMutex
	stopped bool
}

func newPartitionWorker(r Reader, closeTimeout time.Duration, errCh chan error, l logger.Logger) *partitionWorker {
	tp := r.TopicPartition()

	return &partitionWorker{
		reader:       r,
		closeTimeout: closeTimeout,
		logger: l.With(
			"component", "partition-worker",
			"topic", tp.Topic,
			"partition", tp.Partition,
		),
		doneCh: make(chan struct{}),
		stopCh: make(chan struct{}),
		errCh:  errCh,
	}
}

// Start begins reading in a separate goroutine
func (w *partitionWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *partitionWorker) run(ctx context.Context) {
	defer close(w.doneCh)
	defer w.close()

	if err := w.reader.InitStartOffset(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Error("Failed to initialise start offset", "error", err)
		emitError(w.errCh, w.logger, fmt.Errorf("worker %v: init start offset: %w", w.Partition(), err))
		return
	}

	w.logger.Debug("Partition worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Context cancelled, stopping worker")
			return

		case <-w.stopCh:
			w.logger.Debug("Stop signal received")
			return

		default:
			if err := w.reader.FetchData(ctx); err != nil {
				if ctx.Err() != nil || errors.Is(err, context.Canceled) {
					return
				}

				w.logger.Error("Reader failed, stopping worker", "error", err)
				emitError(w.errCh, w.logger, fmt.Errorf("worker %v: %w", w.Partition(), err))
				return
			}
		}
	}
}

// close runs the reader's final commit on a fresh context, the run context is usually cancelled by now
func (w *partitionWorker) close() {
	ctx, cancel := context.WithTimeout(context.Background(), w.closeTimeout)
	defer cancel()

	w.reader.Close(ctx)
	w.logger.Debug("Partition worker stopped")
}

// Stop signals the worker to stop and returns immediately
func (w *partitionWorker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}

	w.stopped = true
	close(w.stopCh)
}

// WaitForStop waits for the worker to fully stop processing
func (w *partitionWorker) WaitForStop(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-w.doneCh:
		return nil
	case <-timer.C:
		return fmt.Errorf("timeout waiting for partition worker %v to stop", w.Partition())
	}
}

// StopAndWait stops the worker and waits for it to finish.
func (w *partitionWorker) StopAndWait(timeout time.Duration) error {
	w.Stop()
	return w.WaitForStop(timeout)
}

// Done is closed once the reader has been closed
func (w *partitionWorker) Done() <-chan struct{} {
	return w.doneCh
}

func (w *partitionWorker) IsStopped() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stopped
}

func (w *partitionWorker) Partition() kafka.TopicPartition {
	return w.reader.TopicPartition()
}

// emitError emits an error to the provided channel without blocking
func emitError(errCh chan<- error, l logger.Logger, err error) {
	select {
	case errCh <- err:
	default:
		l.Error("Error channel full, dropping error", "error", err)
	}
}
