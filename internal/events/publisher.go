package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
)

// EventPublisher defines the interface for publishing test lifecycle events
type EventPublisher interface {
	PublishTestEvent(ctx context.Context, event *TestEvent) error
	Close() error
}

// NewTestEvent builds an event envelope with a fresh ID and timestamp.
func NewTestEvent(eventType EventType, data interface{}) *TestEvent {
	return &TestEvent{
		ID:        watermill.NewUUID(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    "testmate-service",
		Version:   "1.0",
		Data:      data,
	}
}

// KafkaEventPublisher implements EventPublisher using Watermill with Kafka
type KafkaEventPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
	topicName string
}

// PublisherConfig holds configuration for the event publisher
type PublisherConfig struct {
	KafkaBrokers []string
	TopicName    string
	Logger       *slog.Logger
}

// NewKafkaEventPublisher creates a new Kafka-based event publisher using Watermill
func NewKafkaEventPublisher(config PublisherConfig) (*KafkaEventPublisher, error) {
	logger := watermill.NewSlogLogger(config.Logger)

	publisherConfig := kafka.PublisherConfig{
		Brokers:   config.KafkaBrokers,
		Marshaler: kafka.DefaultMarshaler{},
	}

	publisher, err := kafka.NewPublisher(publisherConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
	}

	return &KafkaEventPublisher{
		publisher: publisher,
		logger:    config.Logger,
		topicName: config.TopicName,
	}, nil
}

// PublishTestEvent publishes a test lifecycle event to Kafka
func (p *KafkaEventPublisher) PublishTestEvent(ctx context.Context, event *TestEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal test event: %w", err)
	}

	msg := message.NewMessage(event.ID, eventBytes)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("source", event.Source)
	msg.Metadata.Set("version", event.Version)
	msg.Metadata.Set("timestamp", event.Timestamp.Format(time.RFC3339))

	if err := p.publisher.Publish(p.topicName, msg); err != nil {
		p.logger.Error("Failed to publish test event",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err)
		return fmt.Errorf("failed to publish test event: %w", err)
	}

	p.logger.Info("Published test event",
		"event_id", event.ID,
		"event_type", event.Type,
		"topic", p.topicName)

	return nil
}

// Close closes the publisher and releases resources
func (p *KafkaEventPublisher) Close() error {
	return p.publisher.Close()
}

// MockEventPublisher is a mock implementation for testing
type MockEventPublisher struct {
	Events []TestEvent
	Logger *slog.Logger
}

// NewMockEventPublisher creates a new mock event publisher
func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	return &MockEventPublisher{
		Events: make([]TestEvent, 0),
		Logger: logger,
	}
}

// PublishTestEvent stores the event in memory (for testing)
func (m *MockEventPublisher) PublishTestEvent(ctx context.Context, event *TestEvent) error {
	m.Events = append(m.Events, *event)
	m.Logger.Info("Mock: Published test event",
		"event_id", event.ID,
		"event_type", event.Type)
	return nil
}

// Close is a no-op for the mock publisher
func (m *MockEventPublisher) Close() error {
	return nil
}

// GetPublishedEvents returns all published events (for testing)
func (m *MockEventPublisher) GetPublishedEvents() []TestEvent {
	return m.Events
}
