package kadmstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/hugolhafner/go-consumer/kafka"
	"github.com/hugolhafner/go-consumer/logger"
	"github.com/hugolhafner/go-consumer/offsetstore"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
)

var _ offsetstore.Store = (*Store)(nil)

// Admin is the subset of *kadm.Client used by Store.
type Admin interface {
	FetchOffsets(ctx context.Context, group string) (kadm.OffsetResponses, error)
	CommitOffsets(ctx context.Context, group string, os kadm.Offsets) (kadm.OffsetResponses, error)
}

var _ Admin = (*kadm.Client)(nil)

type Option func(*Store)

func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// Store keeps offsets as Kafka consumer group commits, visible to the usual group tooling.
//
// Kafka stores the next offset to consume while CommitRecord carries the last processed one, so values are
// shifted by one in both directions. Preconditions are checked with a fetch before the commit, which narrows
// but does not close the race with another writer.
type Store struct {
	admin  Admin
	logger logger.Logger
}

func New(admin Admin, opts ...Option) *Store {
	s := &Store{
		admin:  admin,
		logger: logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With("component", "kadmstore")
	return s
}

func (s *Store) QueryCommittedOffset(ctx context.Context, group string, tp kafka.TopicPartition) (int64, error) {
	responses, err := s.admin.FetchOffsets(ctx, group)
	if err != nil {
		if errors.Is(err, kerr.GroupIDNotFound) {
			return offsetstore.NotFound, nil
		}
		return 0, fmt.Errorf("%w: fetch offsets for group %s: %w", offsetstore.ErrUnavailable, group, err)
	}

	r, ok := responses.Lookup(tp.Topic, tp.Partition)
	if !ok {
		return offsetstore.NotFound, nil
	}

	if r.Err != nil {
		return 0, fmt.Errorf("fetch offset for %s: %w", tp, r.Err)
	}

	if r.At < 0 {
		return offsetstore.NotFound, nil
	}

	return r.At - 1, nil
}

func (s *Store) UpdateOffset(ctx context.Context, record offsetstore.CommitRecord) error {
	if record.Precondition != nil {
		stored, err := s.QueryCommittedOffset(ctx, record.Group, record.TopicPartition)
		if err != nil {
			return err
		}

		if err := offsetstore.CheckPrecondition(record, stored); err != nil {
			return err
		}
	}

	offsets := make(kadm.Offsets)
	offsets.Add(
		kadm.Offset{
			Topic:       record.TopicPartition.Topic,
			Partition:   record.TopicPartition.Partition,
			At:          record.Offset + 1,
			LeaderEpoch: -1,
			Metadata:    record.WorkerID,
		},
	)

	responses, err := s.admin.CommitOffsets(ctx, record.Group, offsets)
	if err != nil {
		return fmt.Errorf("%w: commit offsets for group %s: %w", offsetstore.ErrUnavailable, record.Group, err)
	}

	if err := responses.Error(); err != nil {
		return fmt.Errorf("commit offset for %s: %w", record.TopicPartition, err)
	}

	s.logger.Debug(
		"Offset committed to group",
		"group", record.Group,
		"topic", record.TopicPartition.Topic,
		"partition", record.TopicPartition.Partition,
		"offset", record.Offset,
	)

	return nil
}
