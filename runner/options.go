package runner

import (
	"time"

	"github.com/hugolhafner/go-consumer/logger"
)

type Option func(*Config)

func WithLogger(l logger.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithWorkerShutdownTimeout sets the timeout for waiting on worker shutdown
func WithWorkerShutdownTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.WorkerShutdownTimeout = d
		}
	}
}

// WithCloseTimeout sets how long a reader may take for its final commit
func WithCloseTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.CloseTimeout = d
		}
	}
}
