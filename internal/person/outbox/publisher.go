package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	headerEventType     = "event_type"
	headerAggregateType = "aggregate_type"
	headerEventID       = "event_id"
)

// KafkaPublisher writes outbox events to one Kafka topic.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
}

// NewKafkaPublisher connects a producer to brokers. The client is owned by
// the publisher and released by Close.
func NewKafkaPublisher(brokers []string, topic, clientID string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaPublisher{client: client, topic: topic}, nil
}

// EnsureTopic creates the topic when it does not exist yet.
func (p *KafkaPublisher) EnsureTopic(ctx context.Context, partitions int32, replicationFactor int16) error {
	adm := kadm.NewClient(p.client)
	resp, err := adm.CreateTopics(ctx, partitions, replicationFactor, nil, p.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", p.topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

// Publish produces events synchronously and fails if any record failed.
func (p *KafkaPublisher) Publish(ctx context.Context, events []Event) error {
	records := make([]*kgo.Record, 0, len(events))
	for _, e := range events {
		records = append(records, toRecord(p.topic, e))
	}
	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce %d outbox events: %w", len(records), err)
	}
	return nil
}

// Ping checks broker connectivity.
func (p *KafkaPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

func (p *KafkaPublisher) Close() {
	p.client.Close()
}

func toRecord(topic string, e Event) *kgo.Record {
	return &kgo.Record{
		Topic:     topic,
		Key:       recordKey(e),
		Value:     e.Payload,
		Timestamp: e.CreatedAt,
		Headers: []kgo.RecordHeader{
			{Key: headerEventType, Value: []byte(e.EventType)},
			{Key: headerAggregateType, Value: []byte(e.AggregateType)},
			{Key: headerEventID, Value: []byte(e.ID.String())},
		},
	}
}

// recordKey keeps all events of one group on one partition, in commit order.
func recordKey(e Event) []byte {
	if e.AggregateID != "" {
		return []byte(e.AggregateID)
	}
	return []byte(e.ID.String())
}

// LogPublisher logs each event instead of delivering it. serve falls back to
// it when no brokers are configured so the outbox still drains.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, events []Event) error {
	for _, e := range events {
		p.logger.InfoContext(ctx, "outbox event",
			"event_id", e.ID.String(),
			"event_type", e.EventType,
			"aggregate_id", e.AggregateID,
		)
	}
	return nil
}
