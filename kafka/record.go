package kafka

import (
	"strconv"
	"time"
)

// Header represents a single Kafka record header
// kafka needs to support multiple headers with duplicate keys
type Header struct {
	Key   string
	Value []byte
}

// HeaderValue returns the value of the first header matching the given key
// Returns (nil, false) if no header with that key exists
func HeaderValue(headers []Header, key string) ([]byte, bool) {
	for _, h := range headers {
		if h.Key == key {
			return h.Value, true
		}
	}
	return nil, false
}

// Message is a single record of a topic-partition together with its offset.
type Message struct {
	Key         []byte
	Value       []byte
	Headers     []Header
	Topic       string
	Partition   int32
	Offset      int64
	LeaderEpoch int32
	Timestamp   time.Time
}

func (m Message) TopicPartition() TopicPartition {
	return TopicPartition{
		Topic:     m.Topic,
		Partition: m.Partition,
	}
}

func (m Message) Size() int {
	size := len(m.Key) + len(m.Value)
	for _, h := range m.Headers {
		size += len(h.Key) + len(h.Value)
	}
	return size
}

func (m Message) Copy() Message {
	headersCopy := make([]Header, len(m.Headers))
	for i, h := range m.Headers {
		vCopy := make([]byte, len(h.Value))
		copy(vCopy, h.Value)
		headersCopy[i] = Header{Key: h.Key, Value: vCopy}
	}

	keyCopy := make([]byte, len(m.Key))
	copy(keyCopy, m.Key)

	valueCopy := make([]byte, len(m.Value))
	copy(valueCopy, m.Value)

	return Message{
		Key:         keyCopy,
		Value:       valueCopy,
		Headers:     headersCopy,
		Topic:       m.Topic,
		Partition:   m.Partition,
		Offset:      m.Offset,
		LeaderEpoch: m.LeaderEpoch,
		Timestamp:   m.Timestamp,
	}
}

type TopicPartition struct {
	Topic     string
	Partition int32
}

func (tp TopicPartition) String() string {
	return tp.Topic + "-" + strconv.FormatInt(int64(tp.Partition), 10)
}

// Position is where a reader starts when it has no usable checkpoint.
// The values double as the sentinel offsets understood by Fetcher.Fetch.
type Position int64

const (
	// FromStart reads the partition from the oldest retained message.
	FromStart Position = -1
	// FromEnd skips history and reads only messages produced from now on.
	FromEnd Position = -2
)

func (p Position) String() string {
	switch p {
	case FromStart:
		return "start"
	case FromEnd:
		return "end"
	default:
		return "unknown"
	}
}

func (p Position) Valid() bool {
	return p == FromStart || p == FromEnd
}
