package mockkafka

import (
	"testing"

	"github.com/hugolhafner/go-consumer/kafka"
	"github.com/stretchr/testify/require"
)

// AssertFetchCount verifies that exactly n Fetch calls were made for the partition.
func (f *Fetcher) AssertFetchCount(tb testing.TB, tp kafka.TopicPartition, expected int) {
	tb.Helper()

	actual := len(f.CallsFor(tp))
	require.Equal(tb, expected, actual, "expected %d fetches for %s, got %d", expected, tp, actual)
}

// AssertFetchedFrom verifies that at least one Fetch call for the partition started at offset.
func (f *Fetcher) AssertFetchedFrom(tb testing.TB, tp kafka.TopicPartition, offset int64) {
	tb.Helper()

	calls := f.CallsFor(tp)
	for _, c := range calls {
		if c.StartOffset == offset {
			return
		}
	}

	starts := make([]int64, 0, len(calls))
	for _, c := range calls {
		starts = append(starts, c.StartOffset)
	}
	tb.Errorf("expected a fetch of %s from offset %d, got starts %v", tp, offset, starts)
}

// AssertLastFetchedFrom verifies the start offset of the most recent Fetch call for the partition.
func (f *Fetcher) AssertLastFetchedFrom(tb testing.TB, tp kafka.TopicPartition, offset int64) {
	tb.Helper()

	calls := f.CallsFor(tp)
	require.NotEmpty(tb, calls, "expected fetches for %s, got none", tp)

	last := calls[len(calls)-1]
	require.Equal(
		tb, offset, last.StartOffset, "expected last fetch of %s from %d, got %d", tp, offset, last.StartOffset,
	)
}

// AssertNotFetched verifies that no Fetch call was made for the partition.
func (f *Fetcher) AssertNotFetched(tb testing.TB, tp kafka.TopicPartition) {
	tb.Helper()

	calls := f.CallsFor(tp)
	require.Empty(tb, calls, "expected no fetches for %s, got %d", tp, len(calls))
}
