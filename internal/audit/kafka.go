package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// producer is the slice of *kgo.Client the sink needs; narrowed for tests.
type producer interface {
	Produce(ctx context.Context, record *kgo.Record, promise func(*kgo.Record, error))
}

// KafkaSink mirrors audit entries onto a Kafka topic for the compliance
// pipeline. Delivery is asynchronous and best-effort: a failed produce is
// logged and dropped, matching the rest of the audit side channel.
type KafkaSink struct {
	client producer
	topic  string
	logger *slog.Logger
}

// NewKafkaSink builds a sink over an existing franz-go client.
func NewKafkaSink(client *kgo.Client, topic string, logger *slog.Logger) *KafkaSink {
	return &KafkaSink{client: client, topic: topic, logger: logger}
}

// kafkaPayload is the JSON structure published to the topic.
type kafkaPayload struct {
	ID         string `json:"id"`
	InstanceID string `json:"instance_id"`
	FieldKey   string `json:"field_key"`
	Action     string `json:"action"`
	UserID     string `json:"user_id"`
	OccurredAt string `json:"occurred_at"`
}

// Publish enqueues the entry; the promise only logs failures.
func (s *KafkaSink) Publish(ctx context.Context, entry Entry) {
	payload, err := json.Marshal(kafkaPayload{
		ID:         entry.ID.String(),
		InstanceID: entry.InstanceID,
		FieldKey:   entry.FieldKey,
		Action:     string(entry.Action),
		UserID:     entry.UserID,
		OccurredAt: entry.Timestamp.Format(time.RFC3339Nano),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "marshal audit payload", "error", err)
		return
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(entry.InstanceID),
		Value: payload,
	}
	s.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			s.logger.Error("audit mirror produce failed",
				"error", err,
				"instance_id", entry.InstanceID,
				"field_key", entry.FieldKey,
			)
		}
	})
}
