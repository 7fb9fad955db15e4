package offsetstore

import (
	"context"
	"sync"

	"github.com/hugolhafner/go-consumer/kafka"
)

var _ Store = (*Memory)(nil)

type memoryKey struct {
	group string
	tp    kafka.TopicPartition
}

// Memory is a process-local Store. Preconditions are checked and applied atomically.
type Memory struct {
	mu      sync.RWMutex
	offsets map[memoryKey]CommitRecord
	history []CommitRecord

	queryErr  error
	updateErr error
}

func NewMemory() *Memory {
	return &Memory{
		offsets: make(map[memoryKey]CommitRecord),
	}
}

func (m *Memory) QueryCommittedOffset(ctx context.Context, group string, tp kafka.TopicPartition) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.queryErr != nil {
		return 0, m.queryErr
	}

	r, ok := m.offsets[memoryKey{group: group, tp: tp}]
	if !ok {
		return NotFound, nil
	}

	return r.Offset, nil
}

func (m *Memory) UpdateOffset(ctx context.Context, record CommitRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.updateErr != nil {
		return m.updateErr
	}

	key := memoryKey{group: record.Group, tp: record.TopicPartition}

	stored := NotFound
	if r, ok := m.offsets[key]; ok {
		stored = r.Offset
	}

	if err := CheckPrecondition(record, stored); err != nil {
		return err
	}

	m.offsets[key] = record
	m.history = append(m.history, record)

	return nil
}

// Set overwrites the committed offset without a precondition, simulating another writer.
func (m *Memory) Set(group string, tp kafka.TopicPartition, offset int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.offsets[memoryKey{group: group, tp: tp}] = CommitRecord{
		Group:          group,
		TopicPartition: tp,
		Offset:         offset,
	}
}

// SetQueryError makes QueryCommittedOffset fail with err. Pass nil to clear it.
func (m *Memory) SetQueryError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queryErr = err
}

// SetUpdateError makes UpdateOffset fail with err. Pass nil to clear it.
func (m *Memory) SetUpdateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.updateErr = err
}

// Committed returns the stored record for the partition.
func (m *Memory) Committed(group string, tp kafka.TopicPartition) (CommitRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.offsets[memoryKey{group: group, tp: tp}]
	return r, ok
}

// History returns every successful update in commit order.
func (m *Memory) History() []CommitRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]CommitRecord, len(m.history))
	copy(result, m.history)
	return result
}
