package reader

import (
	"time"

	"github.com/hugolhafner/go-consumer/errorhandler"
	"github.com/hugolhafner/go-consumer/kafka"
	"github.com/hugolhafner/go-consumer/logger"
	"github.com/hugolhafner/go-consumer/metrics"
	"github.com/hugolhafner/go-consumer/otel"
)

const (
	DefaultMaxFetchCount = 100
	DefaultCommitTimeout = 10 * time.Second
)

// Config is fixed once the reader is built.
type Config struct {
	// Group is the consumer group the offsets are stored under.
	Group string
	// WorkerID identifies this process in every commit record.
	WorkerID string

	// AutoCommit commits after successful cycles; manual Checkpoint calls are then rejected.
	AutoCommit bool
	// CheckLastCommitOffset attaches the last committed offset as a precondition to every commit.
	CheckLastCommitOffset bool

	// ResetOnStart ignores stored and outer checkpoints and starts from ResetPosition.
	ResetOnStart bool
	// ResetPosition is used on ResetOnStart and when the store has no committed offset.
	ResetPosition kafka.Position

	// OuterCheckpoint overrides the stored offset for the first InitStartOffset call. Negative means none.
	OuterCheckpoint int64

	MaxFetchCount int
	// FetchInterval is the minimum time between the start of two fetches.
	FetchInterval time.Duration

	// CommitInterval and CommitThreshold space out auto commits. Both zero commits after every cycle.
	CommitInterval  time.Duration
	CommitThreshold int
	CommitTimeout   time.Duration

	Logger       logger.Logger
	Metrics      metrics.Sink
	Telemetry    *otel.Telemetry
	ErrorHandler errorhandler.Handler
}

func defaultConfig() Config {
	return Config{
		AutoCommit:      true,
		ResetPosition:   kafka.FromStart,
		OuterCheckpoint: -1,
		MaxFetchCount:   DefaultMaxFetchCount,
		CommitTimeout:   DefaultCommitTimeout,
		Logger:          logger.NewNoopLogger(),
		Metrics:         metrics.Noop{},
	}
}

type Option func(*Config)

func WithGroup(group string) Option {
	return func(c *Config) {
		c.Group = group
	}
}

func WithWorkerID(id string) Option {
	return func(c *Config) {
		c.WorkerID = id
	}
}

func WithAutoCommit(enabled bool) Option {
	return func(c *Config) {
		c.AutoCommit = enabled
	}
}

func WithCheckLastCommitOffset(enabled bool) Option {
	return func(c *Config) {
		c.CheckLastCommitOffset = enabled
	}
}

// WithResetOnStart makes every InitStartOffset start from position.
func WithResetOnStart(position kafka.Position) Option {
	return func(c *Config) {
		c.ResetOnStart = true
		c.ResetPosition = position
	}
}

// WithResetPosition sets where to start when no offset was ever committed.
func WithResetPosition(position kafka.Position) Option {
	return func(c *Config) {
		c.ResetPosition = position
	}
}

func WithOuterCheckpoint(offset int64) Option {
	return func(c *Config) {
		c.OuterCheckpoint = offset
	}
}

func WithMaxFetchCount(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxFetchCount = n
		}
	}
}

func WithFetchInterval(d time.Duration) Option {
	return func(c *Config) {
		c.FetchInterval = d
	}
}

func WithCommitInterval(d time.Duration) Option {
	return func(c *Config) {
		c.CommitInterval = d
	}
}

func WithCommitThreshold(n int) Option {
	return func(c *Config) {
		c.CommitThreshold = n
	}
}

func WithCommitTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.CommitTimeout = d
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

func WithMetrics(s metrics.Sink) Option {
	return func(c *Config) {
		c.Metrics = s
	}
}

// WithTelemetry adds spans around fetch and process and records the reader's otel instruments.
func WithTelemetry(t *otel.Telemetry) Option {
	return func(c *Config) {
		c.Telemetry = t
	}
}

func WithErrorHandler(h errorhandler.Handler) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}
