package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	consumer "github.com/hugolhafner/go-consumer"
	"github.com/hugolhafner/go-consumer/internal/config"
	"github.com/hugolhafner/go-consumer/internal/config/dto"
	"github.com/hugolhafner/go-consumer/kafka"
	"github.com/hugolhafner/go-consumer/logger"
	promsink "github.com/hugolhafner/go-consumer/metrics/prometheus"
	"github.com/hugolhafner/go-consumer/offsetstore"
	"github.com/hugolhafner/go-consumer/offsetstore/boltstore"
	"github.com/hugolhafner/go-consumer/offsetstore/kadmstore"
	consumerotel "github.com/hugolhafner/go-consumer/otel"
	"github.com/hugolhafner/go-consumer/plugins/zaplogger"
	"github.com/hugolhafner/go-consumer/processor"
	"github.com/hugolhafner/go-consumer/processor/builtins"
	"github.com/hugolhafner/go-consumer/reader"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("partition-reader: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	cfgPath := *configPath
	if cfgPath == "" {
		cfgPath = os.Getenv("CONFIG_PATH")
	}

	cfg, err := config.NewLoader().Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	zl, err := newZapLogger(cfg.Observability.Logging)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()

	l := zaplogger.New(zl)
	l.Info("Starting partition reader", "version", cfg.Application.Version, "topic", cfg.Consumer.Topic)

	fetcher, err := kafka.NewKgoFetcher(
		kafka.WithBootstrapServers(cfg.Kafka.BootstrapServers),
		kafka.WithClientID(cfg.Kafka.ClientID),
		kafka.WithPollTimeout(cfg.Kafka.PollTimeout),
		kafka.WithFetchMaxBytes(cfg.Kafka.FetchMaxBytes),
		kafka.WithLogger(l),
	)
	if err != nil {
		return fmt.Errorf("failed to create fetcher: %w", err)
	}
	defer fetcher.Close()

	store, closeStore, err := newOffsetStore(cfg.OffsetStore, fetcher, l)
	if err != nil {
		return err
	}
	defer closeStore()

	telemetry, err := consumerotel.NewTelemetry(otel.GetTracerProvider(), otel.GetMeterProvider(), otel.GetTextMapPropagator())
	if err != nil {
		return fmt.Errorf("failed to create telemetry: %w", err)
	}

	registry := prometheus.NewRegistry()
	promMetrics := promsink.NewMetrics(registry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Observability.Metrics.Enabled {
		srv := newMetricsServer(cfg.Observability.Metrics, registry)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				l.Error("Metrics server stopped", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	opts, err := consumerOptions(cfg, l)
	if err != nil {
		return err
	}
	opts = append(opts, consumer.WithMetrics(promMetrics), consumer.WithTelemetry(telemetry))

	c, err := consumer.New(fetcher, store, newProcessorFactory(cfg.Consumer, l), partitions(cfg.Consumer), opts...)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	l.Info("Consumer created", "worker", c.WorkerID(), "partitions", cfg.Consumer.Partitions)
	return c.Run(ctx)
}

func newZapLogger(cfg dto.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	return zc.Build()
}

func newOffsetStore(cfg dto.OffsetStoreConfig, fetcher *kafka.KgoFetcher, l logger.Logger) (
	offsetstore.Store, func(), error,
) {
	switch cfg.Backend {
	case "bolt":
		s, err := boltstore.Open(cfg.Bolt.Path, boltstore.WithBucket(cfg.Bolt.Bucket), boltstore.WithLogger(l))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open offset store: %w", err)
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return kadmstore.New(fetcher.Admin(), kadmstore.WithLogger(l)), func() {}, nil
	}
}

func newMetricsServer(cfg dto.MetricsConfig, registry *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func partitions(cfg dto.ConsumerConfig) []kafka.TopicPartition {
	tps := make([]kafka.TopicPartition, 0, len(cfg.Partitions))
	for _, p := range cfg.Partitions {
		tps = append(tps, kafka.TopicPartition{Topic: cfg.Topic, Partition: p})
	}
	return tps
}

func consumerOptions(cfg *dto.ApplicationConfig, l logger.Logger) ([]consumer.ConfigOption, error) {
	position, err := cfg.Consumer.Position()
	if err != nil {
		return nil, err
	}

	readerOpts := []reader.Option{
		reader.WithAutoCommit(cfg.Consumer.AutoCommit),
		reader.WithCheckLastCommitOffset(cfg.Consumer.CheckLastCommitOffset),
		reader.WithResetPosition(position),
		reader.WithMaxFetchCount(cfg.Consumer.MaxFetchCount),
		reader.WithFetchInterval(cfg.Consumer.FetchInterval),
		reader.WithCommitInterval(cfg.Consumer.CommitInterval),
		reader.WithCommitThreshold(cfg.Consumer.CommitThreshold),
		reader.WithCommitTimeout(cfg.Consumer.CommitTimeout),
	}
	if cfg.Consumer.ResetOnStart {
		readerOpts = append(readerOpts, reader.WithResetOnStart(position))
	}

	opts := []consumer.ConfigOption{
		consumer.WithGroup(cfg.Consumer.Group),
		consumer.WithWorkerID(cfg.Consumer.WorkerID),
		consumer.WithLogger(l),
		consumer.WithErrorHandler(newErrorHandler(cfg.Retry, position, l)),
		consumer.WithShutdownTimeout(cfg.Shutdown.Timeout),
		consumer.WithReaderOptions(readerOpts...),
	}

	for key, offset := range cfg.Consumer.OuterCheckpoints {
		p, err := strconv.ParseInt(key, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid outer checkpoint partition %q: %w", key, err)
		}
		tp := kafka.TopicPartition{Topic: cfg.Consumer.Topic, Partition: int32(p)}
		opts = append(opts, consumer.WithOuterCheckpoint(tp, offset))
	}

	return opts, nil
}

// newProcessorFactory logs every batch; in manual mode it checkpoints after each batch.
func newProcessorFactory(cfg dto.ConsumerConfig, l logger.Logger) processor.Factory {
	return func(tp kafka.TopicPartition) processor.Processor {
		var p processor.Processor = builtins.NewLoggingProcessor(l.With("topic", tp.Topic, "partition", tp.Partition))
		if !cfg.AutoCommit {
			p = builtins.NewCheckpointEveryProcessor(1, p)
		}
		return p
	}
}
