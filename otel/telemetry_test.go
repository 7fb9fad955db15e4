//go:build unit

package otel

import (
	"context"
	"testing"
	"time"

	"github.com/hugolhafner/go-consumer/kafka"
	"github.com/hugolhafner/go-consumer/metrics"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewTelemetry_WithProviders(t *testing.T) {
	t.Parallel()
	tp := sdktrace.NewTracerProvider()
	mp := sdkmetric.NewMeterProvider()
	defer tp.Shutdown(context.Background())
	defer mp.Shutdown(context.Background())

	tel, err := NewTelemetry(tp, mp, nil)
	require.NoError(t, err)
	require.NotNil(t, tel.Tracer)
	require.NotNil(t, tel.Propagator)
	require.NotNil(t, tel.MessagesConsumed)
	require.NotNil(t, tel.FetchDuration)
	require.NotNil(t, tel.ProcessDuration)
	require.NotNil(t, tel.Failures)
	require.NotNil(t, tel.OffsetCommits)
}

func TestNoop(t *testing.T) {
	t.Parallel()
	tel := Noop()
	require.NotNil(t, tel)
	require.NotNil(t, tel.Tracer)

	s := tel.ForPartition(kafka.TopicPartition{Topic: "t"})
	s.MarkCommit(true)
	s.MarkFetchDuration(time.Millisecond)
}

func sumCounter(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestTelemetry_ForPartitionRecords(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	tel, err := NewTelemetry(nil, mp, nil)
	require.NoError(t, err)

	s := tel.ForPartition(kafka.TopicPartition{Topic: "orders", Partition: 1})
	s.MarkFetchDuration(time.Millisecond)
	s.MarkProcessDuration(time.Millisecond)
	s.MarkFetchOrProcessFailed()
	s.MarkCommit(true)
	s.MarkCommit(false)
	s.(metrics.MessageCounter).MarkMessages(3)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	require.Equal(t, int64(2), sumCounter(t, rm, "reader.offset.commits"))
	require.Equal(t, int64(1), sumCounter(t, rm, "reader.failures"))
	require.Equal(t, int64(3), sumCounter(t, rm, "messaging.consumer.messages"))
}
