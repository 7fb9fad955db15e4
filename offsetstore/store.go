package offsetstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/hugolhafner/go-consumer/kafka"
)

// NotFound is returned by QueryCommittedOffset when nothing was ever committed for the partition.
const NotFound int64 = -1

var (
	ErrConflict    = errors.New("offset precondition failed")
	ErrUnavailable = errors.New("offset store unavailable")
)

// CommitRecord is a single offset update. Offset is the last processed offset, not the next one to read.
type CommitRecord struct {
	Group          string
	TopicPartition kafka.TopicPartition
	Offset         int64
	WorkerID       string

	// Precondition, when set, is the offset the store must currently hold for the update to apply.
	Precondition *int64
}

// Store persists committed offsets keyed by consumer group and topic-partition.
type Store interface {
	// QueryCommittedOffset returns the last committed offset, or NotFound with a nil error.
	QueryCommittedOffset(ctx context.Context, group string, tp kafka.TopicPartition) (int64, error)

	// UpdateOffset stores the record. A failed precondition yields an error matching ErrConflict.
	UpdateOffset(ctx context.Context, record CommitRecord) error
}

type ConflictError struct {
	TopicPartition kafka.TopicPartition
	Expected       int64
	Actual         int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf(
		"%s: expected committed offset %d for %s, found %d", ErrConflict, e.Expected, e.TopicPartition, e.Actual,
	)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

func AsConflictError(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}

	return nil, false
}

// CheckPrecondition compares the stored offset against the record's precondition.
// A missing stored offset never satisfies a precondition.
func CheckPrecondition(record CommitRecord, stored int64) error {
	if record.Precondition == nil {
		return nil
	}

	if stored != *record.Precondition {
		return &ConflictError{
			TopicPartition: record.TopicPartition,
			Expected:       *record.Precondition,
			Actual:         stored,
		}
	}

	return nil
}

// Offset returns a pointer to o, for building a CommitRecord precondition.
func Offset(o int64) *int64 {
	return &o
}
