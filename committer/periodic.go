package committer

import (
	"time"
)

var _ Committer = (*PeriodicCommitter)(nil)

// PeriodicCommitterConfig bounds how much progress may stay uncommitted.
// With both limits at zero every check is due.
type PeriodicCommitterConfig struct {
	MaxInterval time.Duration
	MaxCount    int

	now func() time.Time
}

type PeriodicCommitterOption func(*PeriodicCommitterConfig)

func WithMaxInterval(d time.Duration) PeriodicCommitterOption {
	return func(cfg *PeriodicCommitterConfig) {
		cfg.MaxInterval = d
	}
}

func WithMaxCount(c int) PeriodicCommitterOption {
	return func(cfg *PeriodicCommitterConfig) {
		cfg.MaxCount = c
	}
}

func WithClock(now func() time.Time) PeriodicCommitterOption {
	return func(cfg *PeriodicCommitterConfig) {
		cfg.now = now
	}
}

// PeriodicCommitter is not safe for concurrent use; it belongs to a single reader.
type PeriodicCommitter struct {
	c          PeriodicCommitterConfig
	count      int
	lastCommit time.Time
}

func NewPeriodicCommitter(opts ...PeriodicCommitterOption) *PeriodicCommitter {
	cfg := PeriodicCommitterConfig{
		now: time.Now,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return &PeriodicCommitter{
		c:          cfg,
		lastCommit: cfg.now(),
	}
}

func (p *PeriodicCommitter) RecordProcessed(count int) {
	p.count += count
}

func (p *PeriodicCommitter) Due() bool {
	if p.c.MaxCount <= 0 && p.c.MaxInterval <= 0 {
		return true
	}

	if p.c.MaxCount > 0 && p.count >= p.c.MaxCount {
		return true
	}

	return p.c.MaxInterval > 0 && p.c.now().Sub(p.lastCommit) >= p.c.MaxInterval
}

func (p *PeriodicCommitter) Committed() {
	p.count = 0
	p.lastCommit = p.c.now()
}

// Pending is the number of messages processed since the last commit.
func (p *PeriodicCommitter) Pending() int {
	return p.count
}
