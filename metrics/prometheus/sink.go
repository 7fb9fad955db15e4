package prometheus

import (
	"strconv"
	"time"

	"github.com/hugolhafner/go-consumer/kafka"
	"github.com/hugolhafner/go-consumer/metrics"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusFailure = "failure"
)

var _ metrics.Provider = (*Metrics)(nil)

// Metrics holds the Prometheus collectors shared by all partition readers.
type Metrics struct {
	FetchDuration   *prom.HistogramVec
	ProcessDuration *prom.HistogramVec
	Failures        *prom.CounterVec
	OffsetCommits   *prom.CounterVec
	Messages        *prom.CounterVec
}

// NewMetrics creates and registers all collectors on registry.
func NewMetrics(registry prom.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		FetchDuration: factory.NewHistogramVec(
			prom.HistogramOpts{
				Name:    "partition_reader_fetch_duration_seconds",
				Help:    "Duration of fetch calls",
				Buckets: prom.DefBuckets,
			},
			[]string{"topic", "partition"},
		),
		ProcessDuration: factory.NewHistogramVec(
			prom.HistogramOpts{
				Name:    "partition_reader_process_duration_seconds",
				Help:    "Duration of processor calls per batch",
				Buckets: prom.DefBuckets,
			},
			[]string{"topic", "partition"},
		),
		Failures: factory.NewCounterVec(
			prom.CounterOpts{
				Name: "partition_reader_failures_total",
				Help: "Total number of failed fetch or process cycles",
			},
			[]string{"topic", "partition"},
		),
		OffsetCommits: factory.NewCounterVec(
			prom.CounterOpts{
				Name: "partition_reader_offset_commits_total",
				Help: "Total number of offset commits",
			},
			[]string{"topic", "partition", "status"},
		),
		Messages: factory.NewCounterVec(
			prom.CounterOpts{
				Name: "partition_reader_messages_total",
				Help: "Total number of messages handed to the processor",
			},
			[]string{"topic", "partition"},
		),
	}
}

func (m *Metrics) ForPartition(tp kafka.TopicPartition) metrics.Sink {
	partition := strconv.FormatInt(int64(tp.Partition), 10)

	return &sink{
		fetch:        m.FetchDuration.WithLabelValues(tp.Topic, partition),
		process:      m.ProcessDuration.WithLabelValues(tp.Topic, partition),
		failed:       m.Failures.WithLabelValues(tp.Topic, partition),
		commitOK:     m.OffsetCommits.WithLabelValues(tp.Topic, partition, statusSuccess),
		commitFailed: m.OffsetCommits.WithLabelValues(tp.Topic, partition, statusFailure),
		messages:     m.Messages.WithLabelValues(tp.Topic, partition),
	}
}

var _ metrics.Sink = (*sink)(nil)
var _ metrics.MessageCounter = (*sink)(nil)

type sink struct {
	fetch        prom.Observer
	process      prom.Observer
	failed       prom.Counter
	commitOK     prom.Counter
	commitFailed prom.Counter
	messages     prom.Counter
}

func (s *sink) MarkFetchDuration(d time.Duration) {
	s.fetch.Observe(d.Seconds())
}

func (s *sink) MarkProcessDuration(d time.Duration) {
	s.process.Observe(d.Seconds())
}

func (s *sink) MarkFetchOrProcessFailed() {
	s.failed.Inc()
}

func (s *sink) MarkCommit(ok bool) {
	if ok {
		s.commitOK.Inc()
		return
	}
	s.commitFailed.Inc()
}

func (s *sink) MarkMessages(n int) {
	s.messages.Add(float64(n))
}
