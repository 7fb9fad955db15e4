package consumer

import (
	"time"

	"github.com/hugolhafner/go-consumer/errorhandler"
	"github.com/hugolhafner/go-consumer/kafka"
	"github.com/hugolhafner/go-consumer/logger"
	"github.com/hugolhafner/go-consumer/metrics"
	"github.com/hugolhafner/go-consumer/otel"
	"github.com/hugolhafner/go-consumer/reader"
)

type Config struct {
	Group string
	// WorkerID is stamped on every commit. Generated from the hostname when empty.
	WorkerID string

	Logger       logger.Logger
	Metrics      metrics.Provider
	Telemetry    *otel.Telemetry
	ErrorHandler errorhandler.Handler

	// OuterCheckpoints override the stored offset of a partition on start.
	OuterCheckpoints map[kafka.TopicPartition]int64
	// ReaderOptions are applied to every partition reader after the consumer's own settings.
	ReaderOptions []reader.Option

	ShutdownTimeout time.Duration
}

type ConfigOption func(*Config)

func defaultConfig() Config {
	return Config{
		Logger:           logger.NewNoopLogger(),
		Metrics:          metrics.NoopProvider{},
		OuterCheckpoints: make(map[kafka.TopicPartition]int64),
		ShutdownTimeout:  30 * time.Second,
	}
}

func WithGroup(group string) ConfigOption {
	return func(c *Config) {
		c.Group = group
	}
}

func WithWorkerID(id string) ConfigOption {
	return func(c *Config) {
		c.WorkerID = id
	}
}

func WithLogger(logger logger.Logger) ConfigOption {
	return func(c *Config) {
		c.Logger = logger
	}
}

func WithMetrics(p metrics.Provider) ConfigOption {
	return func(c *Config) {
		c.Metrics = p
	}
}

func WithTelemetry(t *otel.Telemetry) ConfigOption {
	return func(c *Config) {
		c.Telemetry = t
	}
}

func WithErrorHandler(h errorhandler.Handler) ConfigOption {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithOuterCheckpoint starts tp at offset instead of its committed offset. It is used once.
func WithOuterCheckpoint(tp kafka.TopicPartition, offset int64) ConfigOption {
	return func(c *Config) {
		c.OuterCheckpoints[tp] = offset
	}
}

func WithReaderOptions(opts ...reader.Option) ConfigOption {
	return func(c *Config) {
		c.ReaderOptions = append(c.ReaderOptions, opts...)
	}
}

func WithShutdownTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		if d > 0 {
			c.ShutdownTimeout = d
		}
	}
}
