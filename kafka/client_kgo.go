package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hugolhafner/go-consumer/logger"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

var _ Fetcher = (*KgoFetcher)(nil)
var _ Releaser = (*KgoFetcher)(nil)

type KgoFetcherConfig struct {
	BootstrapServers []string
	ClientID         string
	PollTimeout      time.Duration
	FetchMaxBytes    int32

	Logger logger.Logger
}

func defaultConfig() KgoFetcherConfig {
	return KgoFetcherConfig{
		BootstrapServers: []string{"localhost:9092"},
		ClientID:         "go-consumer",
		PollTimeout:      3 * time.Second,
		FetchMaxBytes:    50 << 20,
		Logger:           logger.NewNoopLogger(),
	}
}

type KgoOption func(*KgoFetcherConfig)

func WithBootstrapServers(servers []string) KgoOption {
	return func(cfg *KgoFetcherConfig) {
		cfg.BootstrapServers = servers
	}
}

func WithClientID(id string) KgoOption {
	return func(cfg *KgoFetcherConfig) {
		cfg.ClientID = id
	}
}

func WithPollTimeout(d time.Duration) KgoOption {
	return func(cfg *KgoFetcherConfig) {
		if d > 0 {
			cfg.PollTimeout = d
		}
	}
}

func WithFetchMaxBytes(n int32) KgoOption {
	return func(cfg *KgoFetcherConfig) {
		if n > 0 {
			cfg.FetchMaxBytes = n
		}
	}
}

func WithLogger(l logger.Logger) KgoOption {
	return func(cfg *KgoFetcherConfig) {
		cfg.Logger = l.
			With("client", "kgo")
	}
}

// KgoFetcher implements Fetcher on franz-go. Every partition gets its own direct (group-less) client so that
// records polled for one partition can never be handed to, or swallowed by, another partition's reader.
type KgoFetcher struct {
	config KgoFetcherConfig
	logger logger.Logger

	admin       *kadm.Client
	adminClient *kgo.Client

	mu         sync.Mutex
	partitions map[TopicPartition]*partitionClient
	closed     bool
}

type partitionClient struct {
	mu     sync.Mutex
	client *kgo.Client
	// next is the offset the client will return first on the next poll
	next int64
}

func NewKgoFetcher(opts ...KgoOption) (*KgoFetcher, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	adminClient, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.BootstrapServers...),
		kgo.ClientID(cfg.ClientID+"-admin"),
		kgo.WithLogger(newKgoLogger(cfg.Logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("create kgo admin client: %w", err)
	}

	return &KgoFetcher{
		config:      cfg,
		logger:      cfg.Logger,
		admin:       kadm.NewClient(adminClient),
		adminClient: adminClient,
		partitions:  make(map[TopicPartition]*partitionClient),
	}, nil
}

// Admin exposes the admin client so offset stores can share the broker connection.
func (k *KgoFetcher) Admin() *kadm.Client {
	return k.admin
}

func (k *KgoFetcher) Fetch(ctx context.Context, tp TopicPartition, startOffset int64, maxCount int) (
	[]Message, error,
) {
	if startOffset < 0 {
		resolved, err := k.resolve(ctx, tp, Position(startOffset))
		if err != nil {
			return nil, err
		}
		startOffset = resolved
	}

	pc, err := k.partitionClient(tp, startOffset)
	if err != nil {
		return nil, NewFetchError(KindTransient, tp, startOffset, err)
	}

	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.next != startOffset {
		k.logger.Debug(
			"Repositioning partition client",
			"topic", tp.Topic, "partition", tp.Partition, "from", pc.next, "to", startOffset,
		)
		pc.client.SetOffsets(
			map[string]map[int32]kgo.EpochOffset{
				tp.Topic: {tp.Partition: {Epoch: -1, Offset: startOffset}},
			},
		)
		pc.next = startOffset
	}

	pollCtx, cancel := context.WithTimeout(ctx, k.config.PollTimeout)
	defer cancel()

	fetches := pc.client.PollRecords(pollCtx, maxCount)
	if errs := fetches.Errors(); len(errs) > 0 {
		for _, fe := range errs {
			if errors.Is(fe.Err, context.DeadlineExceeded) || errors.Is(fe.Err, context.Canceled) {
				continue
			}

			kind := KindOf(fe.Err)
			if kind == KindUnknown {
				kind = KindTransient
			}
			return nil, NewFetchError(kind, tp, startOffset, fe.Err)
		}
	}

	records := fetches.Records()
	messages := make([]Message, 0, len(records))
	for _, r := range records {
		if r.Topic != tp.Topic || r.Partition != tp.Partition || r.Offset < startOffset {
			continue
		}
		messages = append(messages, convertRecord(r))
	}

	if len(messages) > 0 {
		pc.next = messages[len(messages)-1].Offset + 1
	}

	return messages, nil
}

func (k *KgoFetcher) PartitionEndOffset(ctx context.Context, tp TopicPartition) (int64, error) {
	listed, err := k.admin.ListEndOffsets(ctx, tp.Topic)
	if err != nil {
		return 0, NewFetchError(KindTransient, tp, int64(FromEnd), fmt.Errorf("list end offsets: %w", err))
	}

	o, err := lookupListed(listed, tp)
	if err != nil {
		return 0, err
	}

	// the listed end offset is the high watermark, the next offset to be written
	return o.Offset - 1, nil
}

func (k *KgoFetcher) resolve(ctx context.Context, tp TopicPartition, position Position) (int64, error) {
	switch position {
	case FromStart:
		listed, err := k.admin.ListStartOffsets(ctx, tp.Topic)
		if err != nil {
			return 0, NewFetchError(KindTransient, tp, int64(position), fmt.Errorf("list start offsets: %w", err))
		}

		o, err := lookupListed(listed, tp)
		if err != nil {
			return 0, err
		}
		return o.Offset, nil

	case FromEnd:
		end, err := k.PartitionEndOffset(ctx, tp)
		if err != nil {
			return 0, err
		}
		return end + 1, nil

	default:
		return 0, NewFetchError(KindInvalidOffset, tp, int64(position), ErrInvalidOffset)
	}
}

func lookupListed(listed kadm.ListedOffsets, tp TopicPartition) (kadm.ListedOffset, error) {
	o, ok := listed.Lookup(tp.Topic, tp.Partition)
	if !ok {
		return kadm.ListedOffset{}, NewFetchError(
			KindInvalidOffset, tp, -1, fmt.Errorf("partition %s not found", tp),
		)
	}

	if o.Err != nil {
		return kadm.ListedOffset{}, NewFetchError(KindOf(o.Err), tp, -1, o.Err)
	}

	return o, nil
}

func (k *KgoFetcher) partitionClient(tp TopicPartition, startOffset int64) (*partitionClient, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil, errors.New("fetcher is closed")
	}

	if pc, ok := k.partitions[tp]; ok {
		return pc, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(k.config.BootstrapServers...),
		kgo.ClientID(k.config.ClientID),
		kgo.ConsumePartitions(
			map[string]map[int32]kgo.Offset{
				tp.Topic: {tp.Partition: kgo.NewOffset().At(startOffset)},
			},
		),
		// surface OffsetOutOfRange instead of silently jumping, the exception policy decides
		kgo.ConsumeResetOffset(kgo.NoResetOffset()),
		kgo.FetchMaxBytes(k.config.FetchMaxBytes),
		kgo.WithLogger(newKgoLogger(k.logger.With("topic", tp.Topic, "partition", tp.Partition))),
	)
	if err != nil {
		return nil, fmt.Errorf("create kgo client for %s: %w", tp, err)
	}

	pc := &partitionClient{client: client, next: startOffset}
	k.partitions[tp] = pc

	return pc, nil
}

// Release closes the client of a partition that is no longer read.
func (k *KgoFetcher) Release(tp TopicPartition) {
	k.mu.Lock()
	pc, ok := k.partitions[tp]
	delete(k.partitions, tp)
	k.mu.Unlock()

	if ok {
		pc.client.Close()
	}
}

func (k *KgoFetcher) Close() {
	k.mu.Lock()
	partitions := k.partitions
	k.partitions = make(map[TopicPartition]*partitionClient)
	k.closed = true
	k.mu.Unlock()

	for _, pc := range partitions {
		pc.client.Close()
	}
	k.adminClient.Close()
}

func convertRecord(r *kgo.Record) Message {
	return Message{
		Topic:       r.Topic,
		Partition:   r.Partition,
		Offset:      r.Offset,
		Key:         r.Key,
		Value:       r.Value,
		Headers:     convertFromKgoHeaders(r.Headers),
		Timestamp:   r.Timestamp,
		LeaderEpoch: r.LeaderEpoch,
	}
}

func convertFromKgoHeaders(headers []kgo.RecordHeader) []Header {
	converted := make([]Header, len(headers))
	for i, h := range headers {
		converted[i] = Header{Key: h.Key, Value: h.Value}
	}
	return converted
}
