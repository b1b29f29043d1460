// Package kafka publishes computed air-quality snapshots to a Kafka topic.
// The publisher is optional and only wired when KAFKA_ENABLED is set.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/airlens/aqi-service/internal/config"
	"github.com/airlens/aqi-service/internal/domain"
)

// Publisher produces snapshot messages to a Kafka topic.
// It implements pipeline.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured snapshot topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish serializes and sends one snapshot. The message key is the snapshot
// ID, which is stable within an hour bucket so consumers can deduplicate.
func (p *Publisher) Publish(ctx context.Context, snapshot domain.Snapshot) error {
	msg, err := serializeToMessage(snapshot)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a snapshot into a Kafka message.
func serializeToMessage(snapshot domain.Snapshot) (kafkago.Message, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize snapshot: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(snapshot.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "location", Value: []byte(snapshot.Location.Key())},
			{Key: "category", Value: []byte(snapshot.Result.Category)},
			{Key: "computed_at", Value: []byte(snapshot.Result.ComputedAt.Format(time.RFC3339))},
		},
	}, nil
}
