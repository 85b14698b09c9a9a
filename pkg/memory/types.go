// Package memory defines the record kinds of the engram system.
//
// Short-term memory is the raw message log: one Message per conversation
// turn, grouped by session, pending consolidation. Long-term memory is the
// distilled archive: one LongTermMemory per consolidation cycle, carrying a
// summary plus structured topics and key insights.
//
// The types here are pure data. Persistence lives behind
// [github.com/papercomputeco/engram/pkg/storage.Driver]; filtering lives in
// pkg/search; promotion from short-term to long-term lives in
// pkg/consolidate.
package memory

import "time"

// Role identifies the author of a message turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message is one turn in a conversation, held in short-term memory until a
// consolidation cycle consumes it.
type Message struct {
	// ID is globally unique and immutable once created (ULID, time-sortable).
	ID string `json:"id"`

	// Timestamp is the wall-clock creation time, millisecond resolution.
	Timestamp time.Time `json:"timestamp"`

	// Seq is a store-assigned insertion sequence used to break timestamp
	// ties deterministically. It is not part of the external contract.
	Seq int64 `json:"-"`

	// Role is the author of the turn.
	Role Role `json:"role"`

	// Content is the raw message text.
	Content string `json:"content"`

	// SessionID groups messages into a conversation.
	SessionID string `json:"session_id"`

	// Consolidated transitions false -> true exactly once, when a
	// consolidation cycle consumes this message. It never reverts.
	Consolidated bool `json:"consolidated"`
}

// LongTermMemory is one consolidated memory produced by a cycle.
type LongTermMemory struct {
	// ID is globally unique (ULID). Updates keep the same id.
	ID string `json:"id"`

	// Timestamp is the creation or last-update time.
	Timestamp time.Time `json:"timestamp"`

	// Summary is the distilled narrative of the consolidated window.
	Summary string `json:"summary"`

	// Topics and KeyInsights are well-formed lists, never flattened into
	// the summary text. Either may be empty.
	Topics      []string `json:"topics"`
	KeyInsights []string `json:"key_insights"`

	// ConsolidatedFrom is a free-text provenance label, e.g.
	// "Conversations from 2026-08-27".
	ConsolidatedFrom string `json:"consolidated_from"`
}

// Session is a contiguous group of messages sharing a session id, ordered
// ascending by timestamp.
type Session struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages"`
}

// LastActivity returns the timestamp of the most recent message in the
// session, or the zero time for an empty session.
func (s Session) LastActivity() time.Time {
	if len(s.Messages) == 0 {
		return time.Time{}
	}
	return s.Messages[len(s.Messages)-1].Timestamp
}
