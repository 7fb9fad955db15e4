//go:build unit

package kafka

import (
	"testing"

	"github.com/hugolhafner/go-consumer/logger"
	"github.com/stretchr/testify/require"
)

func TestKgoFetcher_Release(t *testing.T) {
	t.Parallel()

	f, err := NewKgoFetcher(
		WithBootstrapServers([]string{"127.0.0.1:1"}),
		WithLogger(logger.NewNoopLogger()),
	)
	require.NoError(t, err)
	t.Cleanup(f.Close)

	orders := TopicPartition{Topic: "orders", Partition: 0}
	refunds := TopicPartition{Topic: "refunds", Partition: 0}

	_, err = f.partitionClient(orders, 0)
	require.NoError(t, err)
	_, err = f.partitionClient(refunds, 0)
	require.NoError(t, err)
	require.Len(t, f.partitions, 2)

	f.Release(orders)
	require.NotContains(t, f.partitions, orders)
	require.Contains(t, f.partitions, refunds)

	// unknown or already released partitions are ignored
	f.Release(orders)
	require.Len(t, f.partitions, 1)
}
