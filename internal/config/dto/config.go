package dto

import (
	"fmt"
	"time"

	"github.com/hugolhafner/go-consumer/kafka"
)

// ApplicationConfig is the root configuration of the partition-reader command
type ApplicationConfig struct {
	Application   ApplicationInfo     `mapstructure:"application"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Consumer      ConsumerConfig      `mapstructure:"consumer"`
	OffsetStore   OffsetStoreConfig   `mapstructure:"offset_store"`
	Retry         RetryConfig         `mapstructure:"retry"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Shutdown      ShutdownConfig      `mapstructure:"shutdown"`
}

type ApplicationInfo struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

type KafkaConfig struct {
	BootstrapServers []string      `mapstructure:"bootstrap_servers"`
	ClientID         string        `mapstructure:"client_id"`
	PollTimeout      time.Duration `mapstructure:"poll_timeout"`
	FetchMaxBytes    int32         `mapstructure:"fetch_max_bytes"`
}

// ConsumerConfig holds the settings of every partition reader
type ConsumerConfig struct {
	Group      string  `mapstructure:"group"`
	WorkerID   string  `mapstructure:"worker_id"`
	Topic      string  `mapstructure:"topic"`
	Partitions []int32 `mapstructure:"partitions"`

	AutoCommit            bool   `mapstructure:"auto_commit"`
	CheckLastCommitOffset bool   `mapstructure:"check_last_commit_offset"`
	ResetOnStart          bool   `mapstructure:"reset_on_start"`
	ResetPosition         string `mapstructure:"reset_position"`

	// OuterCheckpoints maps a partition number to the offset to start from
	OuterCheckpoints map[string]int64 `mapstructure:"outer_checkpoints"`

	MaxFetchCount   int           `mapstructure:"max_fetch_count"`
	FetchInterval   time.Duration `mapstructure:"fetch_interval"`
	CommitInterval  time.Duration `mapstructure:"commit_interval"`
	CommitThreshold int           `mapstructure:"commit_threshold"`
	CommitTimeout   time.Duration `mapstructure:"commit_timeout"`
}

// Position parses ResetPosition
func (c ConsumerConfig) Position() (kafka.Position, error) {
	switch c.ResetPosition {
	case "start", "earliest":
		return kafka.FromStart, nil
	case "end", "latest":
		return kafka.FromEnd, nil
	default:
		return 0, fmt.Errorf("unsupported reset position: %q", c.ResetPosition)
	}
}

type OffsetStoreConfig struct {
	Backend string     `mapstructure:"backend"`
	Bolt    BoltConfig `mapstructure:"bolt"`
}

type BoltConfig struct {
	Path   string `mapstructure:"path"`
	Bucket string `mapstructure:"bucket"`
}

// RetryConfig drives the error handler chain
type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	Backoff      time.Duration `mapstructure:"backoff"`
	FailOnDecode bool          `mapstructure:"fail_on_decode"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

type ShutdownConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}
