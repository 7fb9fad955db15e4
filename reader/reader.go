package reader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hugolhafner/go-consumer/committer"
	"github.com/hugolhafner/go-consumer/errorhandler"
	"github.com/hugolhafner/go-consumer/kafka"
	"github.com/hugolhafner/go-consumer/logger"
	"github.com/hugolhafner/go-consumer/metrics"
	"github.com/hugolhafner/go-consumer/offsetstore"
	"github.com/hugolhafner/go-consumer/otel"
	"github.com/hugolhafner/go-consumer/processor"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	traceNoop "go.opentelemetry.io/otel/trace/noop"
)

var (
	ErrClosed         = errors.New("reader closed")
	ErrNotInitialised = errors.New("reader start offset not initialised")
	ErrFailed         = errors.New("reader failed")
)

var _ processor.Checkpointer = (*PartitionReader)(nil)

// State is a snapshot of the reader offsets.
type State struct {
	StartOffset      int64
	FinishedOffset   int64
	LastCommitOffset int64
}

// PartitionReader tracks the fetch, process and commit offsets of one topic partition.
// A reader is driven by a single goroutine; the methods are serialised by an internal mutex.
type PartitionReader struct {
	mu sync.Mutex

	tp        kafka.TopicPartition
	config    Config
	fetcher   kafka.Fetcher
	store     offsetstore.Store
	processor processor.Processor
	committer committer.Committer
	metrics   metrics.Sink
	logger    logger.Logger

	tracer     trace.Tracer
	propagator propagation.TextMapPropagator

	startOffset      int64
	finishedOffset   int64
	lastCommitOffset int64
	outerCheckpoint  int64

	lastFetchTime  time.Time
	lastCommitTime time.Time
	attempt        int

	initialised bool
	closed      bool

	now func() time.Time
}

func New(
	tp kafka.TopicPartition,
	fetcher kafka.Fetcher,
	store offsetstore.Store,
	p processor.Processor,
	opts ...Option,
) (*PartitionReader, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if store == nil {
		return nil, errors.New("offset store is required")
	}
	if p == nil {
		return nil, errors.New("processor is required")
	}
	if cfg.Group == "" {
		return nil, errors.New("group is required")
	}
	if !cfg.ResetPosition.Valid() {
		return nil, fmt.Errorf("invalid reset position %d", cfg.ResetPosition)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoopLogger()
	}

	l := cfg.Logger.With("component", "reader", "topic", tp.Topic, "partition", tp.Partition)

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = errorhandler.Default(l)
	}

	sink := cfg.Metrics
	if sink == nil {
		sink = metrics.Noop{}
	}

	r := &PartitionReader{
		tp:               tp,
		config:           cfg,
		fetcher:          fetcher,
		store:            store,
		processor:        p,
		logger:           l,
		tracer:           traceNoop.NewTracerProvider().Tracer(""),
		propagator:       propagation.TraceContext{},
		startOffset:      -1,
		finishedOffset:   -1,
		lastCommitOffset: -1,
		outerCheckpoint:  cfg.OuterCheckpoint,
		now:              time.Now,
	}

	if t := cfg.Telemetry; t != nil {
		r.tracer = t.Tracer
		r.propagator = t.Propagator
		sink = metrics.Multi(sink, t.ForPartition(tp))
	}
	r.metrics = sink

	r.committer = committer.NewPeriodicCommitter(
		committer.WithMaxInterval(cfg.CommitInterval),
		committer.WithMaxCount(cfg.CommitThreshold),
		committer.WithClock(func() time.Time { return r.now() }),
	)

	return r, nil
}

func (r *PartitionReader) TopicPartition() kafka.TopicPartition {
	return r.tp
}

func (r *PartitionReader) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	return State{
		StartOffset:      r.startOffset,
		FinishedOffset:   r.finishedOffset,
		LastCommitOffset: r.lastCommitOffset,
	}
}

// SetOuterCheckpoint overrides the stored offset on the next InitStartOffset. It is consumed by that call.
func (r *PartitionReader) SetOuterCheckpoint(offset int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.outerCheckpoint = offset
}

// InitStartOffset decides where the reader starts: a reset on start wins over an outer checkpoint, which
// wins over the committed offset. Without a committed offset the reset position is used.
func (r *PartitionReader) InitStartOffset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	start, source, err := r.resolveStartOffset(ctx)
	if err != nil {
		return err
	}

	r.startOffset = start
	r.finishedOffset = -1
	r.lastCommitOffset = -1
	if start > 0 {
		r.finishedOffset = start - 1
		r.lastCommitOffset = start - 1
	}
	r.attempt = 0
	r.lastFetchTime = time.Time{}
	r.initialised = true

	r.logger.Info(
		"Initialised start offset",
		"source", source,
		"start_offset", r.startOffset,
		"last_commit_offset", r.lastCommitOffset,
	)

	r.processor.Init(r.tp, r.startOffset)
	return nil
}

func (r *PartitionReader) resolveStartOffset(ctx context.Context) (int64, string, error) {
	if r.config.ResetOnStart {
		start, err := r.positionOffset(ctx, r.config.ResetPosition)
		return start, "reset", err
	}

	if r.outerCheckpoint >= 0 {
		start := r.outerCheckpoint
		r.outerCheckpoint = -1
		return start, "outer_checkpoint", nil
	}

	committed, err := r.store.QueryCommittedOffset(ctx, r.config.Group, r.tp)
	if err != nil {
		return 0, "", fmt.Errorf("query committed offset of %s: %w", r.tp, err)
	}

	if committed == offsetstore.NotFound {
		start, err := r.positionOffset(ctx, r.config.ResetPosition)
		return start, "reset", err
	}

	return committed + 1, "store", nil
}

// positionOffset turns a position into the next offset to fetch. FromStart stays a sentinel the fetcher
// resolves; FromEnd is pinned to the current end so no message produced afterwards is skipped.
func (r *PartitionReader) positionOffset(ctx context.Context, position kafka.Position) (int64, error) {
	if position != kafka.FromEnd {
		return int64(kafka.FromStart), nil
	}

	end, err := r.fetcher.PartitionEndOffset(ctx, r.tp)
	if err != nil {
		return 0, fmt.Errorf("query end offset of %s: %w", r.tp, err)
	}

	return end + 1, nil
}

// FetchData runs one fetch, process and commit cycle. Failures are handed to the error handler; an error
// is only returned when the handler decides to fail or ctx is cancelled.
func (r *PartitionReader) FetchData(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if !r.initialised {
		return ErrNotInitialised
	}

	if err := r.waitFetchInterval(ctx); err != nil {
		return err
	}

	r.lastFetchTime = r.now()
	messages, err := r.fetch(ctx)
	if err != nil {
		return r.handleFailure(ctx, err, errorhandler.PhaseFetch)
	}

	if len(messages) == 0 {
		r.attempt = 0
		r.maybeAutoCommit(ctx)
		return nil
	}

	prevFinished := r.finishedOffset
	r.finishedOffset = messages[len(messages)-1].Offset

	if err := r.process(ctx, messages); err != nil {
		r.finishedOffset = max(prevFinished, r.lastCommitOffset)

		phase := errorhandler.PhaseProcess
		if _, ok := processor.AsDecodeError(err); ok {
			phase = errorhandler.PhaseDecode
		}
		return r.handleFailure(ctx, err, phase)
	}

	r.startOffset = r.finishedOffset + 1
	r.attempt = 0
	r.committer.RecordProcessed(len(messages))
	r.maybeAutoCommit(ctx)

	return nil
}

func (r *PartitionReader) waitFetchInterval(ctx context.Context) error {
	if r.config.FetchInterval <= 0 || r.lastFetchTime.IsZero() {
		return nil
	}

	wait := r.config.FetchInterval - r.now().Sub(r.lastFetchTime)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *PartitionReader) fetch(ctx context.Context) ([]kafka.Message, error) {
	ctx, span := r.tracer.Start(
		ctx, otel.SpanFetch,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(otel.PartitionAttributes(r.tp)...),
		trace.WithAttributes(otel.AttrStartOffset.Int64(r.startOffset)),
	)
	defer span.End()

	started := r.now()
	messages, err := r.fetcher.Fetch(ctx, r.tp, r.startOffset, r.config.MaxFetchCount)
	r.metrics.MarkFetchDuration(r.now().Sub(started))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(otel.AttrBatchSize.Int(len(messages)))
	return messages, nil
}

func (r *PartitionReader) process(ctx context.Context, messages []kafka.Message) error {
	ctx, span := r.tracer.Start(
		ctx, otel.SpanProcess,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithLinks(otel.BatchLinks(ctx, r.propagator, messages)...),
		trace.WithAttributes(otel.PartitionAttributes(r.tp)...),
		trace.WithAttributes(
			otel.AttrBatchSize.Int(len(messages)),
			otel.AttrStartOffset.Int64(messages[0].Offset),
		),
	)
	defer span.End()

	started := r.now()
	err := r.processor.Process(ctx, messages, &cycleCheckpointer{r: r, ctx: ctx})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	r.metrics.MarkProcessDuration(r.now().Sub(started))
	if mc, ok := r.metrics.(metrics.MessageCounter); ok {
		mc.MarkMessages(len(messages))
	}

	return nil
}

func (r *PartitionReader) handleFailure(ctx context.Context, err error, phase errorhandler.ErrorPhase) error {
	r.metrics.MarkFetchOrProcessFailed()

	// shutting down, the error handler is not consulted
	if ctxErr := ctx.Err(); ctxErr != nil {
		r.lastFetchTime = r.now()
		return ctxErr
	}

	r.attempt++

	r.logger.Warn(
		"Cycle failed",
		"phase", phase.String(),
		"offset", r.startOffset,
		"attempt", r.attempt,
		"error", err,
	)

	ec := errorhandler.NewErrorContext(r.tp, r.startOffset, err).
		WithAttempt(r.attempt).
		WithPhase(phase)

	action := r.config.ErrorHandler.Handle(ctx, ec)

	// the next fetch waits a full interval after a failure
	r.lastFetchTime = r.now()

	switch a := action.(type) {
	case errorhandler.ActionReset:
		r.reset(ctx, a.Position())
		return nil
	case errorhandler.ActionFail:
		return fmt.Errorf("%w: %s at offset %d: %w", ErrFailed, r.tp, r.startOffset, err)
	default:
		return nil
	}
}

// reset moves only the fetch position; finished and committed offsets keep their values so a later
// checkpoint still has to move forward.
func (r *PartitionReader) reset(ctx context.Context, position kafka.Position) {
	start, err := r.positionOffset(ctx, position)
	if err != nil {
		r.logger.Warn("Failed to reset fetch position, retrying next cycle", "position", position.String(), "error", err)
		return
	}

	r.logger.Info("Reset fetch position", "position", position.String(), "from", r.startOffset, "to", start)
	r.startOffset = start
	r.attempt = 0
}

func (r *PartitionReader) maybeAutoCommit(ctx context.Context) {
	if !r.config.AutoCommit || !r.committer.Due() {
		return
	}

	if r.checkpointInternal(ctx) {
		r.committer.Committed()
	}
}

// checkpointInternal commits finishedOffset if it moved past the last commit. It reports whether nothing
// is left uncommitted.
func (r *PartitionReader) checkpointInternal(ctx context.Context) bool {
	if r.finishedOffset <= r.lastCommitOffset {
		return true
	}

	return r.commitOffset(ctx, r.finishedOffset) == nil
}

// Checkpoint commits offset in manual mode. See processor.Checkpointer.
func (r *PartitionReader) Checkpoint(offset int64) bool {
	return r.CheckpointContext(context.Background(), offset)
}

func (r *PartitionReader) CheckpointContext(ctx context.Context, offset int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.checkpoint(ctx, offset)
}

func (r *PartitionReader) CheckpointFinished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.checkpoint(context.Background(), r.finishedOffset)
}

func (r *PartitionReader) checkpoint(ctx context.Context, offset int64) bool {
	if r.config.AutoCommit {
		r.logger.Warn("Checkpoint rejected, reader commits automatically", "offset", offset)
		return false
	}

	if offset <= r.lastCommitOffset || offset > r.finishedOffset {
		r.logger.Warn(
			"Checkpoint rejected, offset out of range",
			"offset", offset,
			"last_commit_offset", r.lastCommitOffset,
			"finished_offset", r.finishedOffset,
		)
		return false
	}

	return r.commitOffset(ctx, offset) == nil
}

func (r *PartitionReader) commitOffset(ctx context.Context, offset int64) error {
	record := offsetstore.CommitRecord{
		Group:          r.config.Group,
		TopicPartition: r.tp,
		Offset:         offset,
		WorkerID:       r.config.WorkerID,
	}
	if r.config.CheckLastCommitOffset && r.lastCommitOffset != -1 {
		record.Precondition = offsetstore.Offset(r.lastCommitOffset)
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.CommitTimeout)
	defer cancel()

	ctx, span := r.tracer.Start(
		ctx, otel.SpanCommit,
		trace.WithAttributes(otel.PartitionAttributes(r.tp)...),
		trace.WithAttributes(otel.AttrCommitOffset.Int64(offset)),
	)
	defer span.End()

	err := r.store.UpdateOffset(ctx, record)
	r.metrics.MarkCommit(err == nil)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(otel.AttrCommitStatus.String(otel.StatusFailed))
		r.logger.Warn(
			"Failed to commit offset",
			"offset", offset,
			"last_commit_offset", r.lastCommitOffset,
			"error", err,
		)
		return err
	}

	span.SetAttributes(otel.AttrCommitStatus.String(otel.StatusSuccess))
	r.lastCommitOffset = offset
	r.lastCommitTime = r.now()
	r.logger.Info("Committed offset", "offset", offset, "worker", r.config.WorkerID)

	return nil
}

// LastCommitTime is zero until the first successful commit.
func (r *PartitionReader) LastCommitTime() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.lastCommitTime
}

// Close commits the finished offset whatever the commit mode, then shuts the processor down and releases the
// partition from the fetcher. A reader that was never initialised skips the commit and the shutdown.
// Commit failures are logged only. Further calls do nothing.
func (r *PartitionReader) Close(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true

	if r.initialised {
		if !r.checkpointInternal(ctx) {
			r.logger.Warn("Final commit failed", "finished_offset", r.finishedOffset)
		}

		// Shutdown pairs with Init, which only runs once the start offset is known
		r.processor.Shutdown(&cycleCheckpointer{r: r, ctx: ctx})
	}

	if rel, ok := r.fetcher.(kafka.Releaser); ok {
		rel.Release(r.tp)
	}

	r.logger.Info(
		"Reader closed",
		"finished_offset", r.finishedOffset,
		"last_commit_offset", r.lastCommitOffset,
	)
}
