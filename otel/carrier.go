package otel

import (
	"context"

	"github.com/hugolhafner/go-consumer/kafka"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var _ propagation.TextMapCarrier = HeadersCarrier{}

type HeadersCarrier struct {
	Headers *[]kafka.Header
}

func NewHeadersCarrier(headers *[]kafka.Header) HeadersCarrier {
	return HeadersCarrier{Headers: headers}
}

func (c HeadersCarrier) Get(key string) string {
	v, _ := kafka.HeaderValue(*c.Headers, key)
	return string(v)
}

// Set overwrites every header with the same key, or appends one.
func (c HeadersCarrier) Set(key, value string) {
	found := false
	for i, h := range *c.Headers {
		if h.Key == key {
			(*c.Headers)[i].Value = []byte(value)
			found = true
		}
	}

	if !found {
		*c.Headers = append(*c.Headers, kafka.Header{Key: key, Value: []byte(value)})
	}
}

func (c HeadersCarrier) Keys() []string {
	keys := make([]string, len(*c.Headers))
	for i, h := range *c.Headers {
		keys[i] = h.Key
	}
	return keys
}

// BatchLinks extracts the producer span context of every message carrying one, so a batch span can point
// back at all of them.
func BatchLinks(ctx context.Context, prop propagation.TextMapPropagator, messages []kafka.Message) []trace.Link {
	var links []trace.Link
	for i := range messages {
		if len(messages[i].Headers) == 0 {
			continue
		}

		headers := messages[i].Headers
		sc := trace.SpanContextFromContext(prop.Extract(ctx, NewHeadersCarrier(&headers)))
		if sc.IsValid() {
			links = append(links, trace.Link{SpanContext: sc})
		}
	}
	return links
}
