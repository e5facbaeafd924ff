package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prohmpiriya/event-booking/internal/domain"
	"github.com/prohmpiriya/event-booking/pkg/kafka"
)

// EventPublisher publishes committed booking changes downstream
type EventPublisher interface {
	// PublishBookingCreated publishes a booking created event
	PublishBookingCreated(ctx context.Context, booking *domain.Booking) error

	// PublishBookingUpdated publishes a booking updated event with the
	// inventory delta that was applied
	PublishBookingUpdated(ctx context.Context, booking *domain.Booking, delta int) error

	// PublishBookingCancelled publishes a booking cancelled event
	PublishBookingCancelled(ctx context.Context, booking *domain.Booking) error

	// Close closes the event publisher
	Close() error
}

// producer is the subset of *kafka.Producer the publisher needs
type producer interface {
	Produce(ctx context.Context, msg *kafka.Message) error
	Close()
}

// KafkaEventPublisher implements EventPublisher using Kafka
type KafkaEventPublisher struct {
	producer    producer
	topic       string
	serviceName string
}

// EventPublisherConfig contains configuration for the event publisher
type EventPublisherConfig struct {
	Brokers     []string
	Topic       string
	ServiceName string
	ClientID    string
}

// NewKafkaEventPublisher creates a new Kafka event publisher
func NewKafkaEventPublisher(ctx context.Context, cfg *EventPublisherConfig) (*KafkaEventPublisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("event publisher config is required")
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "event-booking-producer"
	}

	p, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:        cfg.Brokers,
		ClientID:       clientID,
		MaxRetries:     3,
		RetryInterval:  2 * time.Second,
		BatchSize:      100,
		LingerMs:       10,
		ProduceTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return newKafkaEventPublisher(p, cfg.Topic, cfg.ServiceName), nil
}

func newKafkaEventPublisher(p producer, topic, serviceName string) *KafkaEventPublisher {
	if topic == "" {
		topic = "booking-events"
	}
	if serviceName == "" {
		serviceName = "event-booking"
	}
	return &KafkaEventPublisher{
		producer:    p,
		topic:       topic,
		serviceName: serviceName,
	}
}

// PublishBookingCreated publishes a booking created event
func (p *KafkaEventPublisher) PublishBookingCreated(ctx context.Context, booking *domain.Booking) error {
	return p.publishEvent(ctx, domain.BookingEventCreated, booking, -booking.Quantity)
}

// PublishBookingUpdated publishes a booking updated event
func (p *KafkaEventPublisher) PublishBookingUpdated(ctx context.Context, booking *domain.Booking, delta int) error {
	return p.publishEvent(ctx, domain.BookingEventUpdated, booking, -delta)
}

// PublishBookingCancelled publishes a booking cancelled event
func (p *KafkaEventPublisher) PublishBookingCancelled(ctx context.Context, booking *domain.Booking) error {
	return p.publishEvent(ctx, domain.BookingEventCancelled, booking, booking.Quantity)
}

// Close closes the event publisher
func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		p.producer.Close()
	}
	return nil
}

// publishEvent publishes a booking event to Kafka. inventoryDelta is the
// change applied to the event's available tickets.
func (p *KafkaEventPublisher) publishEvent(ctx context.Context, eventType domain.BookingEventType, booking *domain.Booking, inventoryDelta int) error {
	eventID := uuid.New().String()
	event := domain.NewBookingEvent(eventType, booking, eventID, inventoryDelta)

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	headers := map[string]string{
		"event_type":   string(eventType),
		"event_id":     eventID,
		"source":       p.serviceName,
		"content_type": "application/json",
	}

	msg := &kafka.Message{
		Topic:     p.topic,
		Key:       []byte(event.Key()),
		Value:     value,
		Headers:   headers,
		Timestamp: event.OccurredAt,
	}

	if err := p.producer.Produce(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}

	return nil
}

// NoOpEventPublisher is used when Kafka is disabled
type NoOpEventPublisher struct{}

// NewNoOpEventPublisher creates a new no-op event publisher
func NewNoOpEventPublisher() *NoOpEventPublisher {
	return &NoOpEventPublisher{}
}

// PublishBookingCreated is a no-op
func (p *NoOpEventPublisher) PublishBookingCreated(ctx context.Context, booking *domain.Booking) error {
	return nil
}

// PublishBookingUpdated is a no-op
func (p *NoOpEventPublisher) PublishBookingUpdated(ctx context.Context, booking *domain.Booking, delta int) error {
	return nil
}

// PublishBookingCancelled is a no-op
func (p *NoOpEventPublisher) PublishBookingCancelled(ctx context.Context, booking *domain.Booking) error {
	return nil
}

// Close is a no-op
func (p *NoOpEventPublisher) Close() error {
	return nil
}
