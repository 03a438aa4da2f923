// Package events publishes the outcome of each sweep to Kafka.
package events

import (
	"context"
	"fmt"
	"time"

	"sweeper/pkg/kafka"
	"sweeper/pkg/model"
)

const (
	EventTypeSweepFinished = "space.sweep.finished"
	SchemaVersion          = "1"
)

type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// SweepFinishedEvent is the message payload.
type SweepFinishedEvent struct {
	Database   string           `json:"database"`
	Status     string           `json:"status"`
	Reason     string           `json:"reason,omitempty"`
	Error      string           `json:"error,omitempty"`
	Stats      model.SweepStats `json:"stats"`
	RequestID  string           `json:"request_id"`
	FinishedAt time.Time        `json:"finished_at"`
}

// KafkaNotifier keys every event by database so that consumers see sweeps of
// one database in order.
type KafkaNotifier struct {
	publisher Publisher
	database  string
	source    string
	now       func() time.Time
}

func NewKafkaNotifier(publisher Publisher, database, source string) *KafkaNotifier {
	return &KafkaNotifier{
		publisher: publisher,
		database:  database,
		source:    source,
		now:       time.Now,
	}
}

func (n *KafkaNotifier) SweepFinished(ctx context.Context, result *model.SweepResult) error {
	now := n.now().UTC()

	msg, err := kafka.NewMessage().
		WithKey(n.database).
		WithValue(SweepFinishedEvent{
			Database:   n.database,
			Status:     result.Status,
			Reason:     result.Reason,
			Error:      result.Error,
			Stats:      result.Stats,
			RequestID:  result.RequestID,
			FinishedAt: now,
		}).
		WithEventID("").
		WithEventType(EventTypeSweepFinished).
		WithCorrelationID(result.RequestID).
		WithSchemaVersion(SchemaVersion).
		WithSource(n.source).
		WithTimestamp(now).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build sweep event: %w", err)
	}

	if err := n.publisher.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish sweep event: %w", err)
	}
	return nil
}
