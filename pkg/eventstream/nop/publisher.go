package nop

import (
	"context"

	"github.com/papercomputeco/engram/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishMessageStored validates input and otherwise does nothing.
func (p *Publisher) PublishMessageStored(_ context.Context, event *eventstream.MessageStoredEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return nil
}

// PublishMemoryConsolidated validates input and otherwise does nothing.
func (p *Publisher) PublishMemoryConsolidated(_ context.Context, event *eventstream.MemoryConsolidatedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
