package boltstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/hugolhafner/go-consumer/kafka"
	"github.com/hugolhafner/go-consumer/logger"
	"github.com/hugolhafner/go-consumer/offsetstore"
	"go.etcd.io/bbolt"
)

var _ offsetstore.Store = (*Store)(nil)

var errBucketNotFound = errors.New("bucket not found")

type Config struct {
	Bucket      string
	OpenTimeout time.Duration
	Logger      logger.Logger
}

func defaultConfig() Config {
	return Config{
		Bucket:      "offsets",
		OpenTimeout: time.Second,
		Logger:      logger.NewNoopLogger(),
	}
}

type Option func(*Config)

func WithBucket(name string) Option {
	return func(c *Config) {
		if name != "" {
			c.Bucket = name
		}
	}
}

func WithOpenTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.OpenTimeout = d
	}
}

func WithLogger(l logger.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// Store keeps committed offsets in a local bbolt file. Preconditions are evaluated inside the write
// transaction, so concurrent writers in the same process cannot interleave between check and update.
type Store struct {
	db     *bbolt.DB
	bucket []byte
	logger logger.Logger
}

func Open(path string, opts ...Option) (*Store, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: cfg.OpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt offset store (file may be locked by another process): %w", err)
	}

	bucket := []byte(cfg.Bucket)
	err = db.Update(
		func(tx *bbolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(bucket)
			return err
		},
	)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
	}

	l := cfg.Logger.With("component", "boltstore")
	l.Info("Bolt offset store opened", "path", path)

	return &Store{db: db, bucket: bucket, logger: l}, nil
}

func (s *Store) QueryCommittedOffset(ctx context.Context, group string, tp kafka.TopicPartition) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	offset := offsetstore.NotFound
	err := s.db.View(
		func(tx *bbolt.Tx) error {
			b := tx.Bucket(s.bucket)
			if b == nil {
				return errBucketNotFound
			}

			o, _, ok, err := decode(b.Get(makeKey(group, tp)))
			if err != nil || !ok {
				return err
			}

			offset = o
			return nil
		},
	)
	if err != nil {
		return 0, fmt.Errorf("query offset for %s: %w", tp, err)
	}

	return offset, nil
}

func (s *Store) UpdateOffset(ctx context.Context, record offsetstore.CommitRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(
		func(tx *bbolt.Tx) error {
			b := tx.Bucket(s.bucket)
			if b == nil {
				return errBucketNotFound
			}

			key := makeKey(record.Group, record.TopicPartition)

			stored, _, ok, err := decode(b.Get(key))
			if err != nil {
				return err
			}
			if !ok {
				stored = offsetstore.NotFound
			}

			if err := offsetstore.CheckPrecondition(record, stored); err != nil {
				return err
			}

			return b.Put(key, encode(record.Offset, record.WorkerID))
		},
	)
	if err != nil {
		return fmt.Errorf("update offset for %s: %w", record.TopicPartition, err)
	}

	s.logger.Debug(
		"Offset updated",
		"group", record.Group,
		"topic", record.TopicPartition.Topic,
		"partition", record.TopicPartition.Partition,
		"offset", record.Offset,
	)

	return nil
}

// Entry is one stored offset as returned by List.
type Entry struct {
	Group          string
	TopicPartition kafka.TopicPartition
	Offset         int64
	WorkerID       string
}

// List returns every stored offset.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entries []Entry
	err := s.db.View(
		func(tx *bbolt.Tx) error {
			b := tx.Bucket(s.bucket)
			if b == nil {
				return errBucketNotFound
			}

			return b.ForEach(
				func(k, v []byte) error {
					group, tp, err := parseKey(k)
					if err != nil {
						s.logger.Warn("Skipping malformed offset key", "key", string(k), "error", err)
						return nil
					}

					offset, worker, ok, err := decode(v)
					if err != nil || !ok {
						return err
					}

					entries = append(
						entries, Entry{Group: group, TopicPartition: tp, Offset: offset, WorkerID: worker},
					)
					return nil
				},
			)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("list offsets: %w", err)
	}

	return entries, nil
}

// Delete removes the stored offset of a partition.
func (s *Store) Delete(ctx context.Context, group string, tp kafka.TopicPartition) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(
		func(tx *bbolt.Tx) error {
			b := tx.Bucket(s.bucket)
			if b == nil {
				return errBucketNotFound
			}
			return b.Delete(makeKey(group, tp))
		},
	)
	if err != nil {
		return fmt.Errorf("delete offset for %s: %w", tp, err)
	}

	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// makeKey builds "group:topic:partition". Topic names cannot contain ':' so the last two fields are unambiguous.
func makeKey(group string, tp kafka.TopicPartition) []byte {
	return []byte(group + ":" + tp.Topic + ":" + strconv.FormatInt(int64(tp.Partition), 10))
}

func parseKey(k []byte) (string, kafka.TopicPartition, error) {
	s := string(k)

	last := -1
	prev := -1
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] != ':' {
			continue
		}
		if last < 0 {
			last = i
			continue
		}
		prev = i
		break
	}

	if prev < 0 {
		return "", kafka.TopicPartition{}, fmt.Errorf("invalid key %q", s)
	}

	partition, err := strconv.ParseInt(s[last+1:], 10, 32)
	if err != nil {
		return "", kafka.TopicPartition{}, fmt.Errorf("invalid partition in key %q: %w", s, err)
	}

	return s[:prev], kafka.TopicPartition{Topic: s[prev+1 : last], Partition: int32(partition)}, nil
}

// encode stores the offset as 8 big-endian bytes followed by the worker id.
func encode(offset int64, workerID string) []byte {
	val := make([]byte, 8+len(workerID))
	binary.BigEndian.PutUint64(val, uint64(offset))
	copy(val[8:], workerID)
	return val
}

func decode(val []byte) (int64, string, bool, error) {
	if val == nil {
		return 0, "", false, nil
	}

	if len(val) < 8 {
		return 0, "", false, fmt.Errorf("invalid offset value of %d bytes", len(val))
	}

	return int64(binary.BigEndian.Uint64(val[:8])), string(val[8:]), true, nil
}
