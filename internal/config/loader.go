package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hugolhafner/go-consumer/internal/config/dto"
	"github.com/spf13/viper"
)

// Loader reads the command configuration from a YAML file and CONSUMER_* environment variables
type Loader struct {
	v *viper.Viper
}

func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CONSUMER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// Load reads path when given; a missing file falls back to defaults and the environment.
func (l *Loader) Load(path string) (*dto.ApplicationConfig, error) {
	l.setDefaults()

	if path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	for _, key := range l.v.AllKeys() {
		value := l.v.GetString(key)
		if strings.Contains(value, "${") {
			l.v.Set(key, os.ExpandEnv(value))
		}
	}

	var config dto.ApplicationConfig
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := l.Validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (l *Loader) setDefaults() {
	l.v.SetDefault("application.name", "partition-reader")
	l.v.SetDefault("application.version", "0.1.0")

	l.v.SetDefault("kafka.bootstrap_servers", []string{"localhost:9092"})
	l.v.SetDefault("kafka.client_id", "partition-reader")
	l.v.SetDefault("kafka.poll_timeout", "1s")
	l.v.SetDefault("kafka.fetch_max_bytes", 50<<20)

	l.v.SetDefault("consumer.group", "")
	l.v.SetDefault("consumer.worker_id", "")
	l.v.SetDefault("consumer.topic", "")
	l.v.SetDefault("consumer.partitions", []int32{})
	l.v.SetDefault("consumer.auto_commit", true)
	l.v.SetDefault("consumer.check_last_commit_offset", false)
	l.v.SetDefault("consumer.reset_on_start", false)
	l.v.SetDefault("consumer.reset_position", "start")
	l.v.SetDefault("consumer.max_fetch_count", 100)
	l.v.SetDefault("consumer.fetch_interval", "200ms")
	l.v.SetDefault("consumer.commit_interval", "0s")
	l.v.SetDefault("consumer.commit_threshold", 0)
	l.v.SetDefault("consumer.commit_timeout", "10s")

	l.v.SetDefault("offset_store.backend", "kafka")
	l.v.SetDefault("offset_store.bolt.path", "")
	l.v.SetDefault("offset_store.bolt.bucket", "offsets")

	l.v.SetDefault("retry.max_attempts", 0)
	l.v.SetDefault("retry.backoff", "1s")
	l.v.SetDefault("retry.fail_on_decode", false)

	l.v.SetDefault("observability.logging.level", "info")
	l.v.SetDefault("observability.logging.format", "json")
	l.v.SetDefault("observability.metrics.enabled", true)
	l.v.SetDefault("observability.metrics.port", 9090)
	l.v.SetDefault("observability.metrics.path", "/metrics")

	l.v.SetDefault("shutdown.timeout", "30s")
}

// Validate checks the settings the command cannot run without
func (l *Loader) Validate(config *dto.ApplicationConfig) error {
	if len(config.Kafka.BootstrapServers) == 0 {
		return errors.New("kafka.bootstrap_servers is required")
	}
	if config.Consumer.Group == "" {
		return errors.New("consumer.group is required")
	}
	if config.Consumer.Topic == "" {
		return errors.New("consumer.topic is required")
	}
	if len(config.Consumer.Partitions) == 0 {
		return errors.New("consumer.partitions is required")
	}
	if _, err := config.Consumer.Position(); err != nil {
		return err
	}
	if config.Consumer.MaxFetchCount <= 0 {
		return fmt.Errorf("invalid consumer.max_fetch_count: %d", config.Consumer.MaxFetchCount)
	}

	for key := range config.Consumer.OuterCheckpoints {
		if _, err := strconv.ParseInt(key, 10, 32); err != nil {
			return fmt.Errorf("invalid partition %q in consumer.outer_checkpoints", key)
		}
	}

	switch config.OffsetStore.Backend {
	case "kafka":
	case "bolt":
		if config.OffsetStore.Bolt.Path == "" {
			return errors.New("offset_store.bolt.path is required for bolt backend")
		}
	default:
		return fmt.Errorf("unsupported offset store backend: %s", config.OffsetStore.Backend)
	}

	switch config.Observability.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unsupported logging format: %s", config.Observability.Logging.Format)
	}

	if config.Observability.Metrics.Enabled &&
		(config.Observability.Metrics.Port < 1 || config.Observability.Metrics.Port > 65535) {
		return fmt.Errorf("invalid metrics port: %d", config.Observability.Metrics.Port)
	}

	return nil
}
