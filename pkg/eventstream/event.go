package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/engram/pkg/memory"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeMessageStored is emitted after a message lands in
	// short-term memory.
	EventTypeMessageStored = "engram.message.stored"

	// EventTypeMemoryConsolidated is emitted after a consolidation cycle
	// commits a long-term entry.
	EventTypeMemoryConsolidated = "engram.memory.consolidated"
)

// Envelope carries the fields shared by every event.
type Envelope struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
}

// MessageStoredEvent is a transport-neutral payload for a stored message.
type MessageStoredEvent struct {
	Envelope
	Message memory.Message `json:"message"`
}

// MemoryConsolidatedEvent is a transport-neutral payload for a completed
// consolidation cycle.
type MemoryConsolidatedEvent struct {
	Envelope
	LongTermID   string `json:"long_term_id"`
	Consolidated int64  `json:"consolidated"`
	Repaired     bool   `json:"repaired,omitempty"`
}

// NewMessageStored builds a v1 message-stored event for msg.
func NewMessageStored(msg memory.Message) *MessageStoredEvent {
	return &MessageStoredEvent{
		Envelope: newEnvelope(EventTypeMessageStored),
		Message:  msg,
	}
}

// NewMemoryConsolidated builds a v1 memory-consolidated event.
func NewMemoryConsolidated(longTermID string, consolidated int64, repaired bool) *MemoryConsolidatedEvent {
	return &MemoryConsolidatedEvent{
		Envelope:     newEnvelope(EventTypeMemoryConsolidated),
		LongTermID:   longTermID,
		Consolidated: consolidated,
		Repaired:     repaired,
	}
}

func newEnvelope(eventType string) Envelope {
	return Envelope{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
	}
}
