package events

import (
	"context"
	"courtkeeper/pkg/kafka"
	"courtkeeper/pkg/logger"
	"courtkeeper/pkg/middleware"
	"courtkeeper/pkg/model"
)

const (
	SchemaVersion = "1"
	Source        = "courtkeeper.reservations"
)

// MessageWriter is the part of the Kafka producer the publisher needs.
type MessageWriter interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// KafkaPublisher writes lifecycle events keyed by reservation id, so every
// event of one reservation lands on the same partition in order.
type KafkaPublisher struct {
	writer MessageWriter
	log    *logger.Logger
}

func NewKafkaPublisher(writer MessageWriter, log *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: writer,
		log:    log.Component("reservation_events"),
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event *model.ReservationEvent) error {
	msg, err := kafka.NewMessage().
		WithKey(event.Reservation.ID).
		WithValue(event).
		WithTimestamp(event.OccurredAt).
		WithEventType(string(event.EventType)).
		WithCorrelationID(middleware.GetRequestID(ctx)).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		Build()
	if err != nil {
		return err
	}
	return p.writer.Publish(ctx, msg)
}

// NopPublisher drops events. Used when Kafka is disabled.
type NopPublisher struct {
	log *logger.Logger
}

func NewNopPublisher(log *logger.Logger) *NopPublisher {
	return &NopPublisher{log: log.Component("reservation_events")}
}

func (p *NopPublisher) Publish(ctx context.Context, event *model.ReservationEvent) error {
	p.log.Debug("Event publishing disabled, dropping event",
		"event_type", event.EventType,
		"id", event.Reservation.ID,
	)
	return nil
}
