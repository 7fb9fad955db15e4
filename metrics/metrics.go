package metrics

import (
	"sync"
	"time"

	"github.com/hugolhafner/go-consumer/kafka"
)

// Sink receives the measurements of a single partition reader.
type Sink interface {
	MarkFetchDuration(d time.Duration)
	MarkProcessDuration(d time.Duration)
	MarkFetchOrProcessFailed()
	MarkCommit(ok bool)
}

// MessageCounter is implemented by sinks that also count consumed messages.
type MessageCounter interface {
	MarkMessages(n int)
}

// Provider hands out the sink of one partition.
type Provider interface {
	ForPartition(tp kafka.TopicPartition) Sink
}

var (
	_ Sink     = Noop{}
	_ Provider = NoopProvider{}
)

type Noop struct{}

func (Noop) MarkFetchDuration(time.Duration)   {}
func (Noop) MarkProcessDuration(time.Duration) {}
func (Noop) MarkFetchOrProcessFailed()         {}
func (Noop) MarkCommit(bool)                   {}

type NoopProvider struct{}

func (NoopProvider) ForPartition(kafka.TopicPartition) Sink {
	return Noop{}
}

// Multi fans every measurement out to all sinks.
func Multi(sinks ...Sink) Sink {
	return multiSink(sinks)
}

type multiSink []Sink

func (m multiSink) MarkFetchDuration(d time.Duration) {
	for _, s := range m {
		s.MarkFetchDuration(d)
	}
}

func (m multiSink) MarkProcessDuration(d time.Duration) {
	for _, s := range m {
		s.MarkProcessDuration(d)
	}
}

func (m multiSink) MarkFetchOrProcessFailed() {
	for _, s := range m {
		s.MarkFetchOrProcessFailed()
	}
}

func (m multiSink) MarkCommit(ok bool) {
	for _, s := range m {
		s.MarkCommit(ok)
	}
}

func (m multiSink) MarkMessages(n int) {
	for _, s := range m {
		if mc, ok := s.(MessageCounter); ok {
			mc.MarkMessages(n)
		}
	}
}

// MultiProvider combines providers; nil entries are skipped.
func MultiProvider(providers ...Provider) Provider {
	return multiProvider(providers)
}

type multiProvider []Provider

func (m multiProvider) ForPartition(tp kafka.TopicPartition) Sink {
	sinks := make([]Sink, 0, len(m))
	for _, p := range m {
		if p != nil {
			sinks = append(sinks, p.ForPartition(tp))
		}
	}
	return Multi(sinks...)
}

var _ Sink = (*Recorder)(nil)
var _ MessageCounter = (*Recorder)(nil)

// Recorder counts every measurement in memory.
type Recorder struct {
	mu sync.Mutex

	Fetches        int
	Processes      int
	Failures       int
	Commits        int
	FailedCommits  int
	Messages       int
	LastFetch      time.Duration
	LastProcessing time.Duration
}

func (r *Recorder) MarkFetchDuration(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Fetches++
	r.LastFetch = d
}

func (r *Recorder) MarkProcessDuration(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Processes++
	r.LastProcessing = d
}

func (r *Recorder) MarkFetchOrProcessFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failures++
}

func (r *Recorder) MarkCommit(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ok {
		r.Commits++
		return
	}
	r.FailedCommits++
}

func (r *Recorder) MarkMessages(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages += n
}

// Snapshot returns a copy safe to read while the recorder is in use.
func (r *Recorder) Snapshot() Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Recorder{
		Fetches:        r.Fetches,
		Processes:      r.Processes,
		Failures:       r.Failures,
		Commits:        r.Commits,
		FailedCommits:  r.FailedCommits,
		Messages:       r.Messages,
		LastFetch:      r.LastFetch,
		LastProcessing: r.LastProcessing,
	}
}
