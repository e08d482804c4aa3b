// Package kafka publishes persisted grid snapshots as notifications.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/grid-status-etl/internal/config"
	"github.com/couchcryptid/grid-status-etl/internal/domain"
)

// messageWriter is the subset of *kafkago.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces one message per persisted snapshot.
// It implements pipeline.Publisher.
type Publisher struct {
	writer messageWriter
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

// PublishOutage publishes an outage snapshot keyed by its epoch.
func (p *Publisher) PublishOutage(ctx context.Context, epoch int64, snap domain.OutageSnapshot) error {
	return p.publish(ctx, domain.SourceOutage, epoch, snap)
}

// PublishGeneration publishes a generation snapshot keyed by its epoch.
func (p *Publisher) PublishGeneration(ctx context.Context, epoch int64, snap domain.GenerationSnapshot) error {
	return p.publish(ctx, domain.SourceGeneration, epoch, snap)
}

func (p *Publisher) publish(ctx context.Context, source domain.Source, epoch int64, snapshot any) error {
	msg, err := serializeToMessage(source, epoch, snapshot, domain.Now())
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s snapshot %d: %w", source, epoch, err)
	}
	p.logger.Debug("snapshot published", "source", source, "epoch", epoch)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// envelope is the message body: the snapshot under its write-side names plus
// the resolved epoch.
type envelope struct {
	Epoch    int64 `json:"epoch"`
	Snapshot any   `json:"snapshot"`
}

// serializeToMessage marshals a snapshot into a Kafka message.
func serializeToMessage(source domain.Source, epoch int64, snapshot any, ingestedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(envelope{Epoch: epoch, Snapshot: snapshot})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s snapshot: %w", source, err)
	}
	return kafkago.Message{
		Key:   []byte(MessageKey(source, epoch)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "family", Value: []byte(source)},
			{Key: "epoch", Value: []byte(strconv.FormatInt(epoch, 10))},
			{Key: "ingested_at", Value: []byte(ingestedAt.Format(time.RFC3339))},
		},
	}, nil
}

// MessageKey returns the partition key for a snapshot, e.g. "outage-1710075600".
func MessageKey(source domain.Source, epoch int64) string {
	return string(source) + "-" + strconv.FormatInt(epoch, 10)
}
