package mockkafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hugolhafner/go-consumer/kafka"
)

var _ kafka.Fetcher = (*Fetcher)(nil)
var _ kafka.Releaser = (*Fetcher)(nil)

// FetchCall records the arguments of a single Fetch invocation.
type FetchCall struct {
	TopicPartition kafka.TopicPartition
	StartOffset    int64
	MaxCount       int
	Returned       int
	Err            error
}

type partitionLog struct {
	// base is the offset of messages[0]; moves forward on Truncate
	base     int64
	messages []kafka.Message
}

func (l *partitionLog) end() int64 {
	return l.base + int64(len(l.messages))
}

// Fetcher is an in-memory partition log implementing kafka.Fetcher.
type Fetcher struct {
	mu sync.RWMutex

	logs     map[kafka.TopicPartition]*partitionLog
	calls    []FetchCall
	released map[kafka.TopicPartition]int

	fetchDelay time.Duration

	fetchErr     func(tp kafka.TopicPartition, startOffset int64) error
	endOffsetErr func(tp kafka.TopicPartition) error
}

func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		logs:     make(map[kafka.TopicPartition]*partitionLog),
		calls:    make([]FetchCall, 0),
		released: make(map[kafka.TopicPartition]int),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch returns up to maxCount messages starting at startOffset. Negative starts resolve against the
// log bounds; a start outside [base, end] yields a FetchError of kind KindInvalidOffset.
func (f *Fetcher) Fetch(ctx context.Context, tp kafka.TopicPartition, startOffset int64, maxCount int) (
	[]kafka.Message, error,
) {
	if f.fetchDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.fetchDelay):
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	messages, err := f.fetch(tp, startOffset, maxCount)
	f.calls = append(
		f.calls, FetchCall{
			TopicPartition: tp,
			StartOffset:    startOffset,
			MaxCount:       maxCount,
			Returned:       len(messages),
			Err:            err,
		},
	)

	return messages, err
}

func (f *Fetcher) fetch(tp kafka.TopicPartition, startOffset int64, maxCount int) ([]kafka.Message, error) {
	if f.fetchErr != nil {
		if err := f.fetchErr(tp, startOffset); err != nil {
			return nil, err
		}
	}

	log := f.logFor(tp)

	switch kafka.Position(startOffset) {
	case kafka.FromStart:
		startOffset = log.base
	case kafka.FromEnd:
		startOffset = log.end()
	}

	if startOffset < log.base || startOffset > log.end() {
		return nil, kafka.NewFetchError(
			kafka.KindInvalidOffset, tp, startOffset,
			fmt.Errorf("%w: log range is [%d, %d]", kafka.ErrInvalidOffset, log.base, log.end()),
		)
	}

	from := int(startOffset - log.base)
	to := len(log.messages)
	if maxCount > 0 && from+maxCount < to {
		to = from + maxCount
	}

	messages := make([]kafka.Message, 0, to-from)
	for _, m := range log.messages[from:to] {
		messages = append(messages, m.Copy())
	}

	return messages, nil
}

func (f *Fetcher) PartitionEndOffset(_ context.Context, tp kafka.TopicPartition) (int64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.endOffsetErr != nil {
		if err := f.endOffsetErr(tp); err != nil {
			return 0, err
		}
	}

	log, ok := f.logs[tp]
	if !ok {
		return -1, nil
	}

	return log.end() - 1, nil
}

// logFor must be called with the write lock held.
func (f *Fetcher) logFor(tp kafka.TopicPartition) *partitionLog {
	log, ok := f.logs[tp]
	if !ok {
		log = &partitionLog{}
		f.logs[tp] = log
	}
	return log
}

// AddMessages appends messages to the partition log, assigning consecutive offsets.
func (f *Fetcher) AddMessages(tp kafka.TopicPartition, messages ...kafka.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()

	log := f.logFor(tp)
	for _, m := range messages {
		m.Topic = tp.Topic
		m.Partition = tp.Partition
		m.Offset = log.end()
		log.messages = append(log.messages, m)
	}
}

// AppendValues appends one message per value with a nil key.
func (f *Fetcher) AppendValues(tp kafka.TopicPartition, values ...string) {
	messages := make([]kafka.Message, 0, len(values))
	for _, v := range values {
		messages = append(messages, Record("", v).Build())
	}
	f.AddMessages(tp, messages...)
}

// SetBaseOffset moves the start of an empty partition log, so the first added message gets the given offset.
func (f *Fetcher) SetBaseOffset(tp kafka.TopicPartition, base int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	log := f.logFor(tp)
	if len(log.messages) == 0 {
		log.base = base
	}
}

// Truncate drops every message below newBase, simulating retention.
func (f *Fetcher) Truncate(tp kafka.TopicPartition, newBase int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	log := f.logFor(tp)
	if newBase <= log.base {
		return
	}

	if newBase >= log.end() {
		log.messages = nil
		log.base = newBase
		return
	}

	log.messages = append([]kafka.Message(nil), log.messages[newBase-log.base:]...)
	log.base = newBase
}

// SetFetchError makes every Fetch call fail with err. Pass nil to clear it.
func (f *Fetcher) SetFetchError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err == nil {
		f.fetchErr = nil
		return
	}
	f.fetchErr = func(kafka.TopicPartition, int64) error { return err }
}

// SetFetchErrorFunc installs a per-call error hook. Returning nil lets the call proceed.
func (f *Fetcher) SetFetchErrorFunc(fn func(tp kafka.TopicPartition, startOffset int64) error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetchErr = fn
}

func (f *Fetcher) SetEndOffsetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err == nil {
		f.endOffsetErr = nil
		return
	}
	f.endOffsetErr = func(kafka.TopicPartition) error { return err }
}

// Calls returns a copy of every Fetch invocation so far.
func (f *Fetcher) Calls() []FetchCall {
	f.mu.RLock()
	defer f.mu.RUnlock()

	result := make([]FetchCall, len(f.calls))
	copy(result, f.calls)
	return result
}

// CallsFor returns the Fetch invocations for one partition.
func (f *Fetcher) CallsFor(tp kafka.TopicPartition) []FetchCall {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var result []FetchCall
	for _, c := range f.calls {
		if c.TopicPartition == tp {
			result = append(result, c)
		}
	}
	return result
}

// Messages returns a copy of the retained log of a partition.
func (f *Fetcher) Messages(tp kafka.TopicPartition) []kafka.Message {
	f.mu.RLock()
	defer f.mu.RUnlock()

	log, ok := f.logs[tp]
	if !ok {
		return nil
	}

	result := make([]kafka.Message, len(log.messages))
	copy(result, log.messages)
	return result
}

// Release counts the releases of a partition; the log itself is kept.
func (f *Fetcher) Release(tp kafka.TopicPartition) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.released[tp]++
}

// Released returns how often tp was released.
func (f *Fetcher) Released(tp kafka.TopicPartition) int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.released[tp]
}

func (f *Fetcher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.logs = make(map[kafka.TopicPartition]*partitionLog)
	f.calls = make([]FetchCall, 0)
	f.released = make(map[kafka.TopicPartition]int)
	f.fetchErr = nil
	f.endOffsetErr = nil
}
