// Package kafka ships audit events to a Kafka topic with franz-go.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "donorhub/pkg/platform/audit"
)

// Publisher produces one record per audit event, keyed by subject so events
// about the same record stay ordered within a partition.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

type Option func(*options)

type options struct {
	partitions  int32
	replication int16
	logger      *slog.Logger
	extra       []kgo.Opt
}

func WithPartitions(n int32) Option {
	return func(o *options) {
		if n > 0 {
			o.partitions = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClientOptions passes extra options to the franz-go client.
func WithClientOptions(opts ...kgo.Opt) Option {
	return func(o *options) {
		o.extra = append(o.extra, opts...)
	}
}

// New connects to brokers and ensures topic exists.
func New(ctx context.Context, brokers []string, topic string, opts ...Option) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka audit publisher requires at least one broker")
	}
	o := options{partitions: 1, replication: 1, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	clientOpts := append([]kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchMaxBytes(1 << 20),
		kgo.RecordRetries(5),
	}, o.extra...)
	client, err := kgo.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ensureTopic(ctx, kadm.NewClient(client), topic, o.partitions, o.replication); err != nil {
		client.Close()
		return nil, err
	}

	return &Publisher{client: client, topic: topic, logger: o.logger}, nil
}

func ensureTopic(ctx context.Context, admin *kadm.Client, topic string, partitions int32, replication int16) error {
	resp, err := admin.CreateTopic(ctx, partitions, replication, nil, topic)
	if err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create audit topic %s: %w", topic, resp.Err)
	}
	return nil
}

// Emit produces the event synchronously.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic:     p.topic,
		Key:       []byte(event.Subject),
		Value:     payload,
		Timestamp: event.Timestamp,
		Headers: []kgo.RecordHeader{
			{Key: "category", Value: []byte(event.Category)},
			{Key: "action", Value: []byte(event.Action)},
		},
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		p.logger.ErrorContext(ctx, "failed to produce audit event",
			"action", event.Action,
			"request_id", event.RequestID,
			"error", err,
		)
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes buffered records and closes the client.
func (p *Publisher) Close(ctx context.Context) {
	flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.client.Flush(flushCtx); err != nil {
		p.logger.WarnContext(ctx, "audit flush incomplete", "error", err)
	}
	p.client.Close()
}
