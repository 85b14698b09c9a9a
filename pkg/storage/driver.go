// Package storage
package storage

import (
	"context"
	"time"

	"github.com/papercomputeco/engram/pkg/memory"
)

// Driver is the record store: durable tabular storage for both memory
// tiers. It is the sole owner of persisted records; callers never cache
// across calls, so every operation observes the latest committed state.
//
// Ordering is always (timestamp, seq): within a session messages come back
// in append order, and coarse clock ties break deterministically.
type Driver interface {
	// AppendMessage generates a fresh unique id and timestamp and persists
	// a message with consolidated=false. Role validity is the caller's
	// concern; an unreachable backing medium yields ErrUnavailable.
	AppendMessage(ctx context.Context, sessionID string, role memory.Role, content string) (*memory.Message, error)

	// RecentSessions returns the n most-recently-active distinct sessions
	// (activity = max timestamp within the session), most recent session
	// first, messages within each session ascending. The store applies no
	// clamp on n; callers clamp.
	RecentSessions(ctx context.Context, n int) ([]memory.Session, error)

	// UnconsolidatedSince returns all messages with timestamp >= since and
	// consolidated=false, ascending.
	UnconsolidatedSince(ctx context.Context, since time.Time) ([]memory.Message, error)

	// MarkConsolidated flips consolidated=true for every message matching
	// the UnconsolidatedSince predicate and returns the count flipped.
	// Callers must invoke it only after the corresponding long-term entry
	// has been durably written.
	MarkConsolidated(ctx context.Context, since time.Time) (int64, error)

	// ClearMessages unconditionally removes every message regardless of
	// consolidation state and returns the prior count.
	ClearMessages(ctx context.Context) (int64, error)

	// PutLongTerm inserts a long-term entry, assigning id and timestamp,
	// and returns the assigned id.
	PutLongTerm(ctx context.Context, summary string, topics, keyInsights []string, provenance string) (string, error)

	// UpdateLongTerm replaces the content of an existing entry in place
	// (same id, fresh timestamp). Unknown ids yield ErrNotFound.
	UpdateLongTerm(ctx context.Context, id, summary string, topics, keyInsights []string, provenance string) error

	// RecentLongTerm returns up to limit long-term entries, descending by
	// timestamp.
	RecentLongTerm(ctx context.Context, limit int) ([]memory.LongTermMemory, error)

	// MessagesInRange returns messages within the inclusive time range,
	// descending by timestamp. Nil bounds are unbounded. This is the
	// filter engine's scan surface; text predicates are applied above it.
	MessagesInRange(ctx context.Context, start, end *time.Time) ([]memory.Message, error)

	// LongTermInRange is MessagesInRange for the long-term tier.
	LongTermInRange(ctx context.Context, start, end *time.Time) ([]memory.LongTermMemory, error)

	// CountMessages and CountLongTerm report table sizes for the status
	// surface.
	CountMessages(ctx context.Context) (int64, error)
	CountLongTerm(ctx context.Context) (int64, error)

	// Export snapshots both tiers for the remote mirror.
	Export(ctx context.Context) (*Export, error)

	// Close releases driver resources.
	Close() error
}

// Export is a point-in-time snapshot of both tiers, JSON-encoded by the
// mirror before upload.
type Export struct {
	ExportedAt time.Time               `json:"exported_at"`
	Messages   []memory.Message        `json:"messages"`
	LongTerm   []memory.LongTermMemory `json:"long_term"`
}
