package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// DefaultTopic is the broker topic audit events are published to.
const DefaultTopic = "veil.audit.decisions"

// KafkaSink publishes audit events to a Kafka topic, keyed by requester so
// one requester's trail stays ordered within a partition. Intended as a
// secondary sink: delivery is synchronous per event but the publisher treats
// failures as best-effort.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

// NewKafkaSink connects to the brokers and ensures the topic exists.
func NewKafkaSink(ctx context.Context, brokers []string, topic string) (*KafkaSink, error) {
	if topic == "" {
		topic = DefaultTopic
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}

	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopic(ctx, 3, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create audit topic: %w", err)
	}
	// An already-existing topic is fine; anything else is not.
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("create audit topic: %w", resp.Err)
	}

	return &KafkaSink{client: client, topic: topic}, nil
}

func (s *KafkaSink) Append(ctx context.Context, event Event) error {
	payload, err := json.Marshal(newKafkaPayload(event))
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.RequesterID),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("publish audit event: %w", err)
	}
	return nil
}

func (s *KafkaSink) Close() {
	s.client.Close()
}

// kafkaPayload is the wire shape of one published event.
type kafkaPayload struct {
	ID          string  `json:"id"`
	Timestamp   string  `json:"timestamp"`
	Action      string  `json:"action"`
	RequesterID string  `json:"requester_id"`
	Role        string  `json:"role"`
	EntityType  string  `json:"entity_type"`
	Sensitivity string  `json:"sensitivity,omitempty"`
	Purpose     string  `json:"purpose,omitempty"`
	Level       int     `json:"level"`
	Strategy    string  `json:"strategy,omitempty"`
	Score       float64 `json:"score"`
	Status      string  `json:"status"`
	Violation   bool    `json:"violation"`
	Reason      string  `json:"reason,omitempty"`
}

func newKafkaPayload(event Event) kafkaPayload {
	return kafkaPayload{
		ID:          event.ID,
		Timestamp:   event.Timestamp.Format(time.RFC3339Nano),
		Action:      string(event.Action),
		RequesterID: event.RequesterID,
		Role:        string(event.Role),
		EntityType:  string(event.EntityType),
		Sensitivity: string(event.Sensitivity),
		Purpose:     string(event.Purpose),
		Level:       int(event.Level),
		Strategy:    event.Strategy,
		Score:       event.Score,
		Status:      string(event.Status),
		Violation:   event.Violation,
		Reason:      event.Reason,
	}
}
