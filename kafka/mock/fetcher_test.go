//go:build unit

package mockkafka_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hugolhafner/go-consumer/kafka"
	mockkafka "github.com/hugolhafner/go-consumer/kafka/mock"
	"github.com/stretchr/testify/require"
)

var tp = kafka.TopicPartition{Topic: "events", Partition: 0}

func values(messages []kafka.Message) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, string(m.Value))
	}
	return out
}

func TestFetcher_FetchRange(t *testing.T) {
	t.Parallel()

	f := mockkafka.NewFetcher(mockkafka.WithMessages(tp, "a", "b", "c", "d"))

	got, err := f.Fetch(context.Background(), tp, 1, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c"}, values(got))
	require.Equal(t, int64(1), got[0].Offset)
	require.Equal(t, int64(2), got[1].Offset)

	got, err = f.Fetch(context.Background(), tp, 4, 10)
	require.NoError(t, err)
	require.Empty(t, got)

	f.AssertFetchCount(t, tp, 2)
	f.AssertLastFetchedFrom(t, tp, 4)
}

func TestFetcher_Sentinels(t *testing.T) {
	t.Parallel()

	f := mockkafka.NewFetcher()
	f.SetBaseOffset(tp, 10)
	f.AppendValues(tp, "x", "y")

	got, err := f.Fetch(context.Background(), tp, int64(kafka.FromStart), 10)
	require.NoError(t, err)
	require.Equal(t, []string{"x", "y"}, values(got))
	require.Equal(t, int64(10), got[0].Offset)

	got, err = f.Fetch(context.Background(), tp, int64(kafka.FromEnd), 10)
	require.NoError(t, err)
	require.Empty(t, got)

	end, err := f.PartitionEndOffset(context.Background(), tp)
	require.NoError(t, err)
	require.Equal(t, int64(11), end)
}

func TestFetcher_OutOfRange(t *testing.T) {
	t.Parallel()

	f := mockkafka.NewFetcher(mockkafka.WithMessages(tp, "a", "b", "c"))
	f.Truncate(tp, 2)

	_, err := f.Fetch(context.Background(), tp, 0, 10)
	require.Error(t, err)
	require.Equal(t, kafka.KindInvalidOffset, kafka.KindOf(err))
	require.ErrorIs(t, err, kafka.ErrInvalidOffset)

	got, err := f.Fetch(context.Background(), tp, 2, 10)
	require.NoError(t, err)
	require.Equal(t, []string{"c"}, values(got))

	_, err = f.Fetch(context.Background(), tp, 9, 10)
	require.Equal(t, kafka.KindInvalidOffset, kafka.KindOf(err))
}

func TestFetcher_EmptyPartitionEndOffset(t *testing.T) {
	t.Parallel()

	f := mockkafka.NewFetcher()

	end, err := f.PartitionEndOffset(context.Background(), tp)
	require.NoError(t, err)
	require.Equal(t, int64(-1), end)
	f.AssertNotFetched(t, tp)
}

func TestFetcher_ErrorInjection(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	f := mockkafka.NewFetcher(mockkafka.WithMessages(tp, "a"))

	f.SetFetchError(boom)
	_, err := f.Fetch(context.Background(), tp, 0, 1)
	require.ErrorIs(t, err, boom)

	f.SetFetchError(nil)
	got, err := f.Fetch(context.Background(), tp, 0, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)

	f.SetFetchErrorFunc(
		func(_ kafka.TopicPartition, start int64) error {
			if start == 0 {
				return boom
			}
			return nil
		},
	)
	_, err = f.Fetch(context.Background(), tp, 0, 1)
	require.ErrorIs(t, err, boom)

	calls := f.Calls()
	require.Len(t, calls, 3)
	require.ErrorIs(t, calls[2].Err, boom)
	require.Equal(t, 1, calls[1].Returned)

	f.SetEndOffsetError(boom)
	_, err = f.PartitionEndOffset(context.Background(), tp)
	require.ErrorIs(t, err, boom)
}

func TestFetcher_DelayHonoursContext(t *testing.T) {
	t.Parallel()

	f := mockkafka.NewFetcher(mockkafka.WithFetchDelay(time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Fetch(ctx, tp, 0, 1)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetcher_ReturnsCopies(t *testing.T) {
	t.Parallel()

	f := mockkafka.NewFetcher()
	f.AddMessages(tp, mockkafka.KeyValues("k1", "v1")...)

	got, err := f.Fetch(context.Background(), tp, 0, 1)
	require.NoError(t, err)
	got[0].Value[0] = 'X'

	require.Equal(t, []byte("v1"), f.Messages(tp)[0].Value)
	require.Equal(t, []byte("k1"), f.Messages(tp)[0].Key)
}
