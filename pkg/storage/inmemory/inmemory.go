// Package inmemory provides an in-process implementation of storage.Driver.
//
// Records live in slices guarded by a RWMutex. This is the local-dev and
// test backend; durability comes from the sqlite and postgres drivers.
package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/storage"
)

// Driver implements storage.Driver using in-process data structures.
type Driver struct {
	mu sync.RWMutex

	// seq is the insertion sequence shared by both tiers, used to break
	// timestamp ties deterministically.
	seq int64

	messages []memory.Message
	longTerm []memory.LongTermMemory
}

// NewDriver creates an empty in-memory driver.
func NewDriver() *Driver {
	return &Driver{}
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// AppendMessage persists a new unconsolidated message with a fresh ULID id.
func (d *Driver) AppendMessage(_ context.Context, sessionID string, role memory.Role, content string) (*memory.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	msg := memory.Message{
		ID:        ulid.Make().String(),
		Timestamp: now(),
		Seq:       d.seq,
		Role:      role,
		Content:   content,
		SessionID: sessionID,
	}
	d.messages = append(d.messages, msg)

	return &msg, nil
}

// RecentSessions groups messages by the n most-recently-active sessions.
func (d *Driver) RecentSessions(_ context.Context, n int) ([]memory.Session, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if n <= 0 {
		return []memory.Session{}, nil
	}

	bySession := make(map[string][]memory.Message)
	for _, msg := range d.messages {
		bySession[msg.SessionID] = append(bySession[msg.SessionID], msg)
	}

	sessions := make([]memory.Session, 0, len(bySession))
	for id, msgs := range bySession {
		sortAscending(msgs)
		sessions = append(sessions, memory.Session{ID: id, Messages: msgs})
	}

	// Most recently active session first; ties break on the last message's
	// insertion sequence so ordering stays reproducible.
	sort.Slice(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		at, bt := a.LastActivity(), b.LastActivity()
		if at.Equal(bt) {
			return a.Messages[len(a.Messages)-1].Seq > b.Messages[len(b.Messages)-1].Seq
		}
		return at.After(bt)
	})

	if len(sessions) > n {
		sessions = sessions[:n]
	}

	return sessions, nil
}

// UnconsolidatedSince returns unconsolidated messages with timestamp >= since,
// ascending.
func (d *Driver) UnconsolidatedSince(_ context.Context, since time.Time) ([]memory.Message, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := []memory.Message{}
	for _, msg := range d.messages {
		if !msg.Consolidated && !msg.Timestamp.Before(since) {
			result = append(result, msg)
		}
	}
	sortAscending(result)

	return result, nil
}

// MarkConsolidated flips consolidated=true for the UnconsolidatedSince
// predicate and returns the count flipped.
func (d *Driver) MarkConsolidated(_ context.Context, since time.Time) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var count int64
	for i := range d.messages {
		if !d.messages[i].Consolidated && !d.messages[i].Timestamp.Before(since) {
			d.messages[i].Consolidated = true
			count++
		}
	}

	return count, nil
}

// ClearMessages removes every message regardless of consolidation state.
func (d *Driver) ClearMessages(_ context.Context) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	count := int64(len(d.messages))
	d.messages = nil

	return count, nil
}

// PutLongTerm inserts a long-term entry and returns the assigned id.
func (d *Driver) PutLongTerm(_ context.Context, summary string, topics, keyInsights []string, provenance string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	entry := memory.LongTermMemory{
		ID:               ulid.Make().String(),
		Timestamp:        now(),
		Summary:          summary,
		Topics:           copyList(topics),
		KeyInsights:      copyList(keyInsights),
		ConsolidatedFrom: provenance,
	}
	d.longTerm = append(d.longTerm, entry)

	return entry.ID, nil
}

// UpdateLongTerm replaces an existing entry's content in place.
func (d *Driver) UpdateLongTerm(_ context.Context, id, summary string, topics, keyInsights []string, provenance string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.longTerm {
		if d.longTerm[i].ID == id {
			d.longTerm[i].Summary = summary
			d.longTerm[i].Topics = copyList(topics)
			d.longTerm[i].KeyInsights = copyList(keyInsights)
			d.longTerm[i].ConsolidatedFrom = provenance
			d.longTerm[i].Timestamp = now()
			return nil
		}
	}

	return storage.ErrNotFound{ID: id}
}

// RecentLongTerm returns up to limit entries, most recent first.
func (d *Driver) RecentLongTerm(_ context.Context, limit int) ([]memory.LongTermMemory, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entries := make([]memory.LongTermMemory, len(d.longTerm))
	copy(entries, d.longTerm)
	sortLongTermDescending(entries)

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}

// MessagesInRange returns messages within the inclusive bounds, descending.
func (d *Driver) MessagesInRange(_ context.Context, start, end *time.Time) ([]memory.Message, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := []memory.Message{}
	for _, msg := range d.messages {
		if inRange(msg.Timestamp, start, end) {
			result = append(result, msg)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Seq > result[j].Seq
		}
		return result[i].Timestamp.After(result[j].Timestamp)
	})

	return result, nil
}

// LongTermInRange returns long-term entries within the inclusive bounds,
// descending.
func (d *Driver) LongTermInRange(_ context.Context, start, end *time.Time) ([]memory.LongTermMemory, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := []memory.LongTermMemory{}
	for _, entry := range d.longTerm {
		if inRange(entry.Timestamp, start, end) {
			result = append(result, entry)
		}
	}
	sortLongTermDescending(result)

	return result, nil
}

// CountMessages returns the number of stored messages.
func (d *Driver) CountMessages(_ context.Context) (int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return int64(len(d.messages)), nil
}

// CountLongTerm returns the number of stored long-term entries.
func (d *Driver) CountLongTerm(_ context.Context) (int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return int64(len(d.longTerm)), nil
}

// Export snapshots both tiers.
func (d *Driver) Export(_ context.Context) (*storage.Export, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	export := &storage.Export{
		ExportedAt: now(),
		Messages:   make([]memory.Message, len(d.messages)),
		LongTerm:   make([]memory.LongTermMemory, len(d.longTerm)),
	}
	copy(export.Messages, d.messages)
	copy(export.LongTerm, d.longTerm)

	return export, nil
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}

func sortAscending(msgs []memory.Message) {
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].Timestamp.Equal(msgs[j].Timestamp) {
			return msgs[i].Seq < msgs[j].Seq
		}
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
}

func sortLongTermDescending(entries []memory.LongTermMemory) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
}

func inRange(ts time.Time, start, end *time.Time) bool {
	if start != nil && ts.Before(*start) {
		return false
	}
	if end != nil && ts.After(*end) {
		return false
	}
	return true
}

func copyList(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
