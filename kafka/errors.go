package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/twmb/franz-go/pkg/kerr"
)

// ErrorKind tags fetch failures so callers can branch without type switches.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindTransient
	KindInvalidOffset
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindInvalidOffset:
		return "invalid_offset"
	default:
		return "unknown"
	}
}

var ErrInvalidOffset = errors.New("offset out of range")

type FetchError struct {
	Kind           ErrorKind
	TopicPartition TopicPartition
	Offset         int64
	Err            error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s at offset %d (%s): %v", e.TopicPartition, e.Offset, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func NewFetchError(kind ErrorKind, tp TopicPartition, offset int64, err error) error {
	return &FetchError{
		Kind:           kind,
		TopicPartition: tp,
		Offset:         offset,
		Err:            err,
	}
}

func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}

	return nil, false
}

// KindOf classifies err. Tagged FetchErrors win, then Kafka protocol codes, then network errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	if fe, ok := AsFetchError(err); ok && fe.Kind != KindUnknown {
		return fe.Kind
	}

	if errors.Is(err, ErrInvalidOffset) || errors.Is(err, kerr.OffsetOutOfRange) {
		return KindInvalidOffset
	}

	if kerr.IsRetriable(err) || errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}

	return KindUnknown
}
