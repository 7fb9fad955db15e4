package mockkafka

import (
	"time"

	"github.com/hugolhafner/go-consumer/kafka"
)

// RecordBuilder provides a fluent interface for building Messages.
type RecordBuilder struct {
	message kafka.Message
}

// Record creates a new RecordBuilder with the given key and value. An empty key becomes nil.
func Record(key, value string) *RecordBuilder {
	var k []byte
	if key != "" {
		k = []byte(key)
	}

	return &RecordBuilder{
		message: kafka.Message{
			Key:       k,
			Value:     []byte(value),
			Timestamp: time.Now(),
		},
	}
}

func RecordBytes(key, value []byte) *RecordBuilder {
	return &RecordBuilder{
		message: kafka.Message{
			Key:       key,
			Value:     value,
			Timestamp: time.Now(),
		},
	}
}

func (b *RecordBuilder) WithTimestamp(ts time.Time) *RecordBuilder {
	b.message.Timestamp = ts
	return b
}

func (b *RecordBuilder) WithHeader(key string, value []byte) *RecordBuilder {
	b.message.Headers = append(b.message.Headers, kafka.Header{Key: key, Value: value})
	return b
}

func (b *RecordBuilder) WithLeaderEpoch(epoch int32) *RecordBuilder {
	b.message.LeaderEpoch = epoch
	return b
}

// Build returns the constructed Message. Topic, partition and offset are assigned when it is added to a Fetcher.
func (b *RecordBuilder) Build() kafka.Message {
	return b.message
}

// KeyValues creates messages from key-value pairs.
func KeyValues(keyValuePairs ...string) []kafka.Message {
	if len(keyValuePairs)%2 != 0 {
		panic("KeyValues requires an even number of arguments (key-value pairs)")
	}

	messages := make([]kafka.Message, 0, len(keyValuePairs)/2)
	for i := 0; i < len(keyValuePairs); i += 2 {
		messages = append(messages, Record(keyValuePairs[i], keyValuePairs[i+1]).Build())
	}
	return messages
}
