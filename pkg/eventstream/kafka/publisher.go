// Package kafka provides a Kafka-backed eventstream publisher.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	segkafka "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/engram/pkg/eventstream"
)

const defaultTopic = "engram.events"

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers are the bootstrap broker addresses.
	Brokers []string

	// Topic is the destination topic (defaults to engram.events).
	Topic string
}

// Publisher publishes memory events to a Kafka topic. Events are keyed by
// event type so consumers see per-type ordering.
type Publisher struct {
	writer *segkafka.Writer
}

var _ eventstream.Publisher = (*Publisher)(nil)

// NewPublisher creates a Kafka publisher.
func NewPublisher(c Config) *Publisher {
	topic := c.Topic
	if topic == "" {
		topic = defaultTopic
	}

	return &Publisher{
		writer: &segkafka.Writer{
			Addr:     segkafka.TCP(c.Brokers...),
			Topic:    topic,
			Balancer: &segkafka.Hash{},
		},
	}
}

// PublishMessageStored publishes a message-stored event.
func (p *Publisher) PublishMessageStored(ctx context.Context, event *eventstream.MessageStoredEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return p.publish(ctx, event.EventType, event)
}

// PublishMemoryConsolidated publishes a memory-consolidated event.
func (p *Publisher) PublishMemoryConsolidated(ctx context.Context, event *eventstream.MemoryConsolidatedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return p.publish(ctx, event.EventType, event)
}

func (p *Publisher) publish(ctx context.Context, key string, event any) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", key, err)
	}

	if err := p.writer.WriteMessages(ctx, segkafka.Message{
		Key:   []byte(key),
		Value: value,
	}); err != nil {
		return fmt.Errorf("publish %s event: %w", key, err)
	}

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
