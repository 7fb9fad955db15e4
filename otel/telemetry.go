package otel

import (
	"context"
	"strconv"
	"time"

	"github.com/hugolhafner/go-consumer/kafka"
	"github.com/hugolhafner/go-consumer/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	traceNoop "go.opentelemetry.io/otel/trace/noop"
)

const scopeName = "github.com/hugolhafner/go-consumer"

var _ metrics.Provider = (*Telemetry)(nil)

// Telemetry holds all OpenTelemetry instruments of the partition readers
// When no providers are configured, all instruments are noops with zero overhead
type Telemetry struct {
	Tracer     trace.Tracer
	Propagator propagation.TextMapPropagator

	MessagesConsumed metric.Int64Counter
	FetchDuration    metric.Float64Histogram
	ProcessDuration  metric.Float64Histogram
	Failures         metric.Int64Counter
	OffsetCommits    metric.Int64Counter
}

// NewTelemetry creates a Telemetry instance from the given providers.
// all providers are optional and defaulted to noops if nil
func NewTelemetry(tp trace.TracerProvider, mp metric.MeterProvider, prop propagation.TextMapPropagator) (
	*Telemetry, error,
) {
	if tp == nil {
		tp = traceNoop.NewTracerProvider()
	}
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	if prop == nil {
		prop = propagation.TraceContext{}
	}

	tracer := tp.Tracer(scopeName)
	meter := mp.Meter(scopeName)

	messagesConsumed, err := meter.Int64Counter(
		"messaging.consumer.messages",
		metric.WithDescription("Messages handed to the processor"),
	)
	if err != nil {
		return nil, err
	}

	fetchDuration, err := meter.Float64Histogram(
		"reader.fetch.duration",
		metric.WithDescription("Time per Fetch() call"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	processDuration, err := meter.Float64Histogram(
		"reader.process.duration",
		metric.WithDescription("Time per processed batch"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter(
		"reader.failures",
		metric.WithDescription("Failed fetch or process cycles"),
	)
	if err != nil {
		return nil, err
	}

	offsetCommits, err := meter.Int64Counter(
		"reader.offset.commits",
		metric.WithDescription("Offset commits by status"),
	)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		Tracer:           tracer,
		Propagator:       prop,
		MessagesConsumed: messagesConsumed,
		FetchDuration:    fetchDuration,
		ProcessDuration:  processDuration,
		Failures:         failures,
		OffsetCommits:    offsetCommits,
	}, nil
}

// Noop returns a Telemetry instance with all noop instruments
func Noop() *Telemetry {
	t, _ := NewTelemetry(nil, nil, nil)
	return t
}

// PartitionAttributes are attached to every measurement and span of a reader.
func PartitionAttributes(tp kafka.TopicPartition) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrTopic.String(tp.Topic),
		AttrPartition.String(strconv.FormatInt(int64(tp.Partition), 10)),
	}
}

func (t *Telemetry) ForPartition(tp kafka.TopicPartition) metrics.Sink {
	attrs := PartitionAttributes(tp)

	return &partitionSink{
		t:        t,
		attrs:    metric.WithAttributes(attrs...),
		okAttrs:  metric.WithAttributes(append(attrs, AttrCommitStatus.String(StatusSuccess))...),
		errAttrs: metric.WithAttributes(append(attrs, AttrCommitStatus.String(StatusFailed))...),
	}
}

var _ metrics.Sink = (*partitionSink)(nil)
var _ metrics.MessageCounter = (*partitionSink)(nil)

type partitionSink struct {
	t        *Telemetry
	attrs    metric.MeasurementOption
	okAttrs  metric.MeasurementOption
	errAttrs metric.MeasurementOption
}

func (s *partitionSink) MarkFetchDuration(d time.Duration) {
	s.t.FetchDuration.Record(context.Background(), d.Seconds(), s.attrs)
}

func (s *partitionSink) MarkProcessDuration(d time.Duration) {
	s.t.ProcessDuration.Record(context.Background(), d.Seconds(), s.attrs)
}

func (s *partitionSink) MarkFetchOrProcessFailed() {
	s.t.Failures.Add(context.Background(), 1, s.attrs)
}

func (s *partitionSink) MarkCommit(ok bool) {
	if ok {
		s.t.OffsetCommits.Add(context.Background(), 1, s.okAttrs)
		return
	}
	s.t.OffsetCommits.Add(context.Background(), 1, s.errAttrs)
}

func (s *partitionSink) MarkMessages(n int) {
	s.t.MessagesConsumed.Add(context.Background(), int64(n), s.attrs)
}
