// Package redpanda publishes interview lifecycle events to Redpanda/Kafka.
//
// Events are keyed by session id so every consumer sees a session's turns in
// order. Publishing is best effort from the caller's point of view; the
// interview itself never blocks on the broker.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/elevice/ai-interviewer/internal/domain"
)

const (
	// TopicTurns carries one event per finalized exchange.
	TopicTurns = "interview.turns"
	// TopicCompleted carries one event per terminal interview.
	TopicCompleted = "interview.completed"
)

// Producer wraps a Kafka producer and implements domain.EventPublisher.
type Producer struct {
	client producerClient
}

// producerClient is the subset of *kgo.Client the producer uses. Tests plug
// in a fake; production always passes a real client.
type producerClient interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// NewProducer constructs a Producer and ensures both topics exist.
func NewProducer(brokers []string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("op=queue.new_producer: no seed brokers provided")
	}
	slog.Info("creating redpanda producer", slog.Any("brokers", brokers))

	kotelService := kotel.NewKotel(
		kotel.WithTracer(kotel.NewTracer(
			kotel.TracerProvider(otel.GetTracerProvider()),
		)),
	)
	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(1000000),
		kgo.WithHooks(kotelService.Hooks()...),
	}
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("op=queue.new_producer: %w", err)
	}

	ctx := context.Background()
	for _, topic := range []string{TopicTurns, TopicCompleted} {
		if err := createTopicIfNotExists(ctx, client, topic, 1, 1); err != nil {
			slog.Warn("failed to create topic, it may already exist",
				slog.String("topic", topic), slog.Any("error", err))
		}
	}
	return &Producer{client: client}, nil
}

// PublishTurnFinalized emits a turn event keyed by session id.
func (p *Producer) PublishTurnFinalized(ctx domain.Context, ev domain.TurnEvent) error {
	return p.publish(ctx, TopicTurns, ev.SessionID, ev)
}

// PublishInterviewCompleted emits a completion event keyed by session id.
func (p *Producer) PublishInterviewCompleted(ctx domain.Context, ev domain.CompletedEvent) error {
	return p.publish(ctx, TopicCompleted, ev.SessionID, ev)
}

func (p *Producer) publish(ctx context.Context, topic, key string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("op=queue.publish: marshal: %w", err)
	}
	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(key),
		Value: b,
		Headers: []kgo.RecordHeader{
			{Key: "session_id", Value: []byte(key)},
		},
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("op=queue.publish: topic=%s: %w", topic, err)
	}
	slog.Debug("event published", slog.String("topic", topic), slog.String("session_id", key))
	return nil
}

// Close closes the underlying client.
func (p *Producer) Close() error {
	if p.client != nil {
		p.client.Close()
	}
	return nil
}
