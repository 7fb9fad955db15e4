package mockkafka

import (
	"time"

	"github.com/hugolhafner/go-consumer/kafka"
)

// Option is a functional option for configuring a mock Fetcher.
type Option func(*Fetcher)

// WithFetchDelay adds an artificial delay to Fetch calls.
// The delay honours context cancellation.
func WithFetchDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		f.fetchDelay = d
	}
}

// WithFetchError configures an error to be returned by all Fetch calls.
func WithFetchError(err error) Option {
	return func(f *Fetcher) {
		f.fetchErr = func(kafka.TopicPartition, int64) error { return err }
	}
}

// WithEndOffsetError configures an error to be returned by PartitionEndOffset.
func WithEndOffsetError(err error) Option {
	return func(f *Fetcher) {
		f.endOffsetErr = func(kafka.TopicPartition) error { return err }
	}
}

// WithMessages pre-populates a partition with one message per value.
func WithMessages(tp kafka.TopicPartition, values ...string) Option {
	return func(f *Fetcher) {
		log := f.logFor(tp)
		for _, v := range values {
			m := Record("", v).Build()
			m.Topic = tp.Topic
			m.Partition = tp.Partition
			m.Offset = log.end()
			log.messages = append(log.messages, m)
		}
	}
}
