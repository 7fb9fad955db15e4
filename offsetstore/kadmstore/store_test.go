//go:build unit

package kadmstore_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hugolhafner/go-consumer/kafka"
	"github.com/hugolhafner/go-consumer/offsetstore"
	"github.com/hugolhafner/go-consumer/offsetstore/kadmstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
)

var tp = kafka.TopicPartition{Topic: "payments", Partition: 2}

// fakeAdmin keeps group commits in memory the way a broker reports them, as next-offset values.
type fakeAdmin struct {
	mu        sync.Mutex
	offsets   map[string]kadm.Offsets
	fetchErr  error
	commitErr error
	commits   []kadm.Offset
}

func newFakeAdmin() *fakeAdmin {
	return &fakeAdmin{offsets: make(map[string]kadm.Offsets)}
}

func (f *fakeAdmin) FetchOffsets(_ context.Context, group string) (kadm.OffsetResponses, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fetchErr != nil {
		return nil, f.fetchErr
	}

	responses := make(kadm.OffsetResponses)
	f.offsets[group].Each(
		func(o kadm.Offset) {
			responses.Add(kadm.OffsetResponse{Offset: o})
		},
	)
	return responses, nil
}

func (f *fakeAdmin) CommitOffsets(_ context.Context, group string, os kadm.Offsets) (kadm.OffsetResponses, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.commitErr != nil {
		return nil, f.commitErr
	}

	stored := f.offsets[group]
	responses := make(kadm.OffsetResponses)
	os.Each(
		func(o kadm.Offset) {
			stored.Add(o)
			f.commits = append(f.commits, o)
			responses.Add(kadm.OffsetResponse{Offset: o})
		},
	)
	f.offsets[group] = stored

	return responses, nil
}

func TestStore_QueryTranslatesNextOffset(t *testing.T) {
	t.Parallel()

	admin := newFakeAdmin()
	var seeded kadm.Offsets
	seeded.Add(kadm.Offset{Topic: tp.Topic, Partition: tp.Partition, At: 100})
	admin.offsets["g"] = seeded

	s := kadmstore.New(admin)

	got, err := s.QueryCommittedOffset(context.Background(), "g", tp)
	require.NoError(t, err)
	require.Equal(t, int64(99), got)

	got, err = s.QueryCommittedOffset(context.Background(), "g", kafka.TopicPartition{Topic: tp.Topic, Partition: 9})
	require.NoError(t, err)
	require.Equal(t, offsetstore.NotFound, got)
}

func TestStore_QueryErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		want     int64
		wantErr  error
		noErrors bool
	}{
		{name: "group not found", err: kerr.GroupIDNotFound, want: offsetstore.NotFound, noErrors: true},
		{name: "broker down", err: errors.New("dial tcp: refused"), wantErr: offsetstore.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				t.Parallel()

				admin := newFakeAdmin()
				admin.fetchErr = tt.err

				got, err := kadmstore.New(admin).QueryCommittedOffset(context.Background(), "g", tp)
				if tt.noErrors {
					require.NoError(t, err)
					require.Equal(t, tt.want, got)
					return
				}
				require.ErrorIs(t, err, tt.wantErr)
			},
		)
	}
}

func TestStore_UpdateCommitsNextOffsetWithWorker(t *testing.T) {
	t.Parallel()

	admin := newFakeAdmin()
	s := kadmstore.New(admin)

	err := s.UpdateOffset(
		context.Background(), offsetstore.CommitRecord{Group: "g", TopicPartition: tp, Offset: 7, WorkerID: "host-1"},
	)
	require.NoError(t, err)

	require.Len(t, admin.commits, 1)
	assert.Equal(t, int64(8), admin.commits[0].At)
	assert.Equal(t, "host-1", admin.commits[0].Metadata)

	got, err := s.QueryCommittedOffset(context.Background(), "g", tp)
	require.NoError(t, err)
	require.Equal(t, int64(7), got)
}

func TestStore_UpdatePrecondition(t *testing.T) {
	t.Parallel()

	admin := newFakeAdmin()
	s := kadmstore.New(admin)
	ctx := context.Background()

	require.NoError(t, s.UpdateOffset(ctx, offsetstore.CommitRecord{Group: "g", TopicPartition: tp, Offset: 7}))

	err := s.UpdateOffset(
		ctx, offsetstore.CommitRecord{Group: "g", TopicPartition: tp, Offset: 9, Precondition: offsetstore.Offset(6)},
	)
	require.ErrorIs(t, err, offsetstore.ErrConflict)
	require.Len(t, admin.commits, 1)

	err = s.UpdateOffset(
		ctx, offsetstore.CommitRecord{Group: "g", TopicPartition: tp, Offset: 9, Precondition: offsetstore.Offset(7)},
	)
	require.NoError(t, err)
	require.Len(t, admin.commits, 2)
}

func TestStore_UpdateUnavailable(t *testing.T) {
	t.Parallel()

	admin := newFakeAdmin()
	admin.commitErr = errors.New("coordinator not available")

	err := kadmstore.New(admin).UpdateOffset(
		context.Background(), offsetstore.CommitRecord{Group: "g", TopicPartition: tp, Offset: 1},
	)
	require.ErrorIs(t, err, offsetstore.ErrUnavailable)
}
