package runner

import (
	"time"

	"github.com/hugolhafner/go-consumer/logger"
)

type Config struct {
	Logger logger.Logger
	// WorkerShutdownTimeout bounds the wait for every worker to stop and close its reader.
	WorkerShutdownTimeout time.Duration
	// CloseTimeout is handed to each reader's Close for the final commit.
	CloseTimeout time.Duration
}

func defaultConfig() Config {
	return Config{
		Logger:                logger.NewNoopLogger(),
		WorkerShutdownTimeout: 30 * time.Second,
		CloseTimeout:          10 * time.Second,
	}
}
