// Package events publishes ride lifecycle transitions for downstream
// consumers (receipts, earnings aggregation, analytics). Delivery is
// best-effort: a failed publish never fails the transition that caused
// it.
package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// RideEvent describes one observed ride state transition.
type RideEvent struct {
	RideID      string    `json:"ride_id"`
	PassengerID string    `json:"passenger_id"`
	DriverID    string    `json:"driver_id,omitempty"`
	Status      string    `json:"status"`
	Fare        float64   `json:"fare"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher emits ride lifecycle events.
type Publisher interface {
	PublishRideEvent(ctx context.Context, event RideEvent) error
	Close() error
}

// KafkaPublisher writes ride events to a Kafka topic, keyed by ride id
// so each ride's transitions stay ordered within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher for the given broker address and
// topic.
func NewKafkaPublisher(brokers, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// PublishRideEvent writes the event to Kafka.
func (p *KafkaPublisher) PublishRideEvent(ctx context.Context, event RideEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.RideID),
		Value: value,
	})
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher logs ride events instead of publishing them. Used when no
// broker is configured.
type LogPublisher struct{}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

// PublishRideEvent logs the event.
func (p *LogPublisher) PublishRideEvent(ctx context.Context, event RideEvent) error {
	log.Printf("ride event: ride=%s status=%s driver=%s", event.RideID, event.Status, event.DriverID)
	return nil
}

// Close is a no-op.
func (p *LogPublisher) Close() error { return nil }

// Ensure implementations satisfy Publisher.
var (
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = (*LogPublisher)(nil)
)
