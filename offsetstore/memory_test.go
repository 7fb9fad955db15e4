//go:build unit

package offsetstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hugolhafner/go-consumer/kafka"
	"github.com/hugolhafner/go-consumer/offsetstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tp = kafka.TopicPartition{Topic: "orders", Partition: 1}

func TestMemory_NotFound(t *testing.T) {
	t.Parallel()

	m := offsetstore.NewMemory()

	got, err := m.QueryCommittedOffset(context.Background(), "g", tp)
	require.NoError(t, err)
	require.Equal(t, offsetstore.NotFound, got)
}

func TestMemory_UpdateAndQuery(t *testing.T) {
	t.Parallel()

	m := offsetstore.NewMemory()
	ctx := context.Background()

	require.NoError(
		t, m.UpdateOffset(ctx, offsetstore.CommitRecord{Group: "g", TopicPartition: tp, Offset: 9, WorkerID: "w1"}),
	)

	got, err := m.QueryCommittedOffset(ctx, "g", tp)
	require.NoError(t, err)
	require.Equal(t, int64(9), got)

	other, err := m.QueryCommittedOffset(ctx, "other", tp)
	require.NoError(t, err)
	require.Equal(t, offsetstore.NotFound, other)

	r, ok := m.Committed("g", tp)
	require.True(t, ok)
	assert.Equal(t, "w1", r.WorkerID)
	assert.Len(t, m.History(), 1)
}

func TestMemory_Precondition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		stored       *int64
		precondition *int64
		wantConflict bool
	}{
		{name: "no precondition", stored: offsetstore.Offset(5), precondition: nil},
		{name: "matching", stored: offsetstore.Offset(5), precondition: offsetstore.Offset(5)},
		{name: "mismatch", stored: offsetstore.Offset(7), precondition: offsetstore.Offset(5), wantConflict: true},
		{name: "missing stored", stored: nil, precondition: offsetstore.Offset(5), wantConflict: true},
	}

	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				t.Parallel()

				m := offsetstore.NewMemory()
				if tt.stored != nil {
					m.Set("g", tp, *tt.stored)
				}

				err := m.UpdateOffset(
					context.Background(), offsetstore.CommitRecord{
						Group:          "g",
						TopicPartition: tp,
						Offset:         10,
						Precondition:   tt.precondition,
					},
				)

				if !tt.wantConflict {
					require.NoError(t, err)
					return
				}

				require.ErrorIs(t, err, offsetstore.ErrConflict)
				ce, ok := offsetstore.AsConflictError(err)
				require.True(t, ok)
				assert.Equal(t, *tt.precondition, ce.Expected)

				got, qerr := m.QueryCommittedOffset(context.Background(), "g", tp)
				require.NoError(t, qerr)
				assert.NotEqual(t, int64(10), got)
			},
		)
	}
}

func TestMemory_InjectedErrors(t *testing.T) {
	t.Parallel()

	m := offsetstore.NewMemory()
	boom := errors.New("boom")

	m.SetQueryError(boom)
	_, err := m.QueryCommittedOffset(context.Background(), "g", tp)
	require.ErrorIs(t, err, boom)

	m.SetUpdateError(boom)
	err = m.UpdateOffset(context.Background(), offsetstore.CommitRecord{Group: "g", TopicPartition: tp, Offset: 1})
	require.ErrorIs(t, err, boom)
	require.Empty(t, m.History())

	m.SetQueryError(nil)
	m.SetUpdateError(nil)
	require.NoError(
		t, m.UpdateOffset(context.Background(), offsetstore.CommitRecord{Group: "g", TopicPartition: tp, Offset: 1}),
	)
}

func TestMemory_CancelledContext(t *testing.T) {
	t.Parallel()

	m := offsetstore.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.QueryCommittedOffset(ctx, "g", tp)
	require.ErrorIs(t, err, context.Canceled)
}
