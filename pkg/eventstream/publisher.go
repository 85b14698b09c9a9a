package eventstream

import "context"

// Publisher publishes memory events to an event stream backend.
type Publisher interface {
	PublishMessageStored(ctx context.Context, event *MessageStoredEvent) error
	PublishMemoryConsolidated(ctx context.Context, event *MemoryConsolidatedEvent) error
	Close() error
}
