// Package sqlite provides a SQLite-backed storage driver.
//
// Both tiers live in one database file: a messages table for short-term
// memory and a long_term table for the consolidated archive. Timestamps are
// stored as unix milliseconds; list fields (topics, key insights) are
// JSON-encoded text columns, with (de)serialization kept strictly inside
// this package so callers only ever see []string.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/storage"
)

// Driver implements storage.Driver using SQLite via mattn/go-sqlite3.
type Driver struct {
	db *sql.DB
}

// NewDriver opens or creates a SQLite database at dbPath.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewDriver(dbPath string) (*Driver, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, storage.Unavailable(err)
	}

	// WAL keeps concurrent readers cheap; foreign keys for hygiene.
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, storage.Unavailable(err)
		}
	}

	d := &Driver{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return d, nil
}

// migrate creates the necessary tables and indexes if they don't exist.
func (d *Driver) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		seq          INTEGER PRIMARY KEY AUTOINCREMENT,
		id           TEXT NOT NULL UNIQUE,
		session_id   TEXT NOT NULL,
		role         TEXT NOT NULL,
		content      TEXT NOT NULL,
		ts           INTEGER NOT NULL,
		consolidated INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session_ts ON messages(session_id, ts);
	CREATE INDEX IF NOT EXISTS idx_messages_ts ON messages(ts);
	CREATE INDEX IF NOT EXISTS idx_messages_unconsolidated ON messages(consolidated, ts);

	CREATE TABLE IF NOT EXISTS long_term (
		seq               INTEGER PRIMARY KEY AUTOINCREMENT,
		id                TEXT NOT NULL UNIQUE,
		ts                INTEGER NOT NULL,
		summary           TEXT NOT NULL,
		topics            TEXT NOT NULL DEFAULT '[]',
		key_insights      TEXT NOT NULL DEFAULT '[]',
		consolidated_from TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_long_term_ts ON long_term(ts);
	`

	_, err := d.db.Exec(schema)
	return err
}

// AppendMessage persists a new unconsolidated message with a fresh ULID id.
func (d *Driver) AppendMessage(ctx context.Context, sessionID string, role memory.Role, content string) (*memory.Message, error) {
	msg := memory.Message{
		ID:        ulid.Make().String(),
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
		Role:      role,
		Content:   content,
		SessionID: sessionID,
	}

	query := `INSERT INTO messages (id, session_id, role, content, ts, consolidated) VALUES (?, ?, ?, ?, ?, 0)`
	result, err := d.db.ExecContext(ctx, query, msg.ID, msg.SessionID, string(msg.Role), msg.Content, msg.Timestamp.UnixMilli())
	if err != nil {
		return nil, storage.Unavailable(err)
	}

	if seq, err := result.LastInsertId(); err == nil {
		msg.Seq = seq
	}

	return &msg, nil
}

// RecentSessions groups messages by the n most-recently-active sessions.
func (d *Driver) RecentSessions(ctx context.Context, n int) ([]memory.Session, error) {
	if n <= 0 {
		return []memory.Session{}, nil
	}

	idQuery := `
		SELECT session_id
		FROM messages
		GROUP BY session_id
		ORDER BY MAX(ts) DESC, MAX(seq) DESC
		LIMIT ?`

	rows, err := d.db.QueryContext(ctx, idQuery, n)
	if err != nil {
		return nil, storage.Unavailable(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Unavailable(err)
	}

	sessions := make([]memory.Session, 0, len(ids))
	for _, id := range ids {
		msgs, err := d.sessionMessages(ctx, id)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, memory.Session{ID: id, Messages: msgs})
	}

	return sessions, nil
}

func (d *Driver) sessionMessages(ctx context.Context, sessionID string) ([]memory.Message, error) {
	query := `
		SELECT seq, id, session_id, role, content, ts, consolidated
		FROM messages
		WHERE session_id = ?
		ORDER BY ts ASC, seq ASC`

	rows, err := d.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, storage.Unavailable(err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// UnconsolidatedSince returns unconsolidated messages with timestamp >= since,
// ascending.
func (d *Driver) UnconsolidatedSince(ctx context.Context, since time.Time) ([]memory.Message, error) {
	query := `
		SELECT seq, id, session_id, role, content, ts, consolidated
		FROM messages
		WHERE consolidated = 0 AND ts >= ?
		ORDER BY ts ASC, seq ASC`

	rows, err := d.db.QueryContext(ctx, query, since.UnixMilli())
	if err != nil {
		return nil, storage.Unavailable(err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// MarkConsolidated flips consolidated=true for the UnconsolidatedSince
// predicate and returns the count flipped.
func (d *Driver) MarkConsolidated(ctx context.Context, since time.Time) (int64, error) {
	query := `UPDATE messages SET consolidated = 1 WHERE consolidated = 0 AND ts >= ?`

	result, err := d.db.ExecContext(ctx, query, since.UnixMilli())
	if err != nil {
		return 0, storage.Unavailable(err)
	}

	return result.RowsAffected()
}

// ClearMessages removes every message regardless of consolidation state.
func (d *Driver) ClearMessages(ctx context.Context) (int64, error) {
	var count int64
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count); err != nil {
		return 0, storage.Unavailable(err)
	}

	if _, err := d.db.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return 0, storage.Unavailable(err)
	}

	return count, nil
}

// PutLongTerm inserts a long-term entry and returns the assigned id.
func (d *Driver) PutLongTerm(ctx context.Context, summary string, topics, keyInsights []string, provenance string) (string, error) {
	id := ulid.Make().String()
	ts := time.Now().UTC().Truncate(time.Millisecond)

	topicsJSON, err := encodeList(topics)
	if err != nil {
		return "", err
	}
	insightsJSON, err := encodeList(keyInsights)
	if err != nil {
		return "", err
	}

	query := `INSERT INTO long_term (id, ts, summary, topics, key_insights, consolidated_from) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := d.db.ExecContext(ctx, query, id, ts.UnixMilli(), summary, topicsJSON, insightsJSON, provenance); err != nil {
		return "", storage.Unavailable(err)
	}

	return id, nil
}

// UpdateLongTerm replaces an existing entry's content in place.
func (d *Driver) UpdateLongTerm(ctx context.Context, id, summary string, topics, keyInsights []string, provenance string) error {
	topicsJSON, err := encodeList(topics)
	if err != nil {
		return err
	}
	insightsJSON, err := encodeList(keyInsights)
	if err != nil {
		return err
	}

	ts := time.Now().UTC().Truncate(time.Millisecond)

	query := `UPDATE long_term SET ts = ?, summary = ?, topics = ?, key_insights = ?, consolidated_from = ? WHERE id = ?`
	result, err := d.db.ExecContext(ctx, query, ts.UnixMilli(), summary, topicsJSON, insightsJSON, provenance, id)
	if err != nil {
		return storage.Unavailable(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound{ID: id}
	}

	return nil
}

// RecentLongTerm returns up to limit entries, most recent first.
func (d *Driver) RecentLongTerm(ctx context.Context, limit int) ([]memory.LongTermMemory, error) {
	query := `
		SELECT id, ts, summary, topics, key_insights, consolidated_from
		FROM long_term
		ORDER BY ts DESC, seq DESC`
	args := []any{}

	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.Unavailable(err)
	}
	defer rows.Close()

	return scanLongTerm(rows)
}

// MessagesInRange returns messages within the inclusive bounds, descending.
func (d *Driver) MessagesInRange(ctx context.Context, start, end *time.Time) ([]memory.Message, error) {
	query := `
		SELECT seq, id, session_id, role, content, ts, consolidated
		FROM messages`
	where, args := rangeClause(start, end)
	query += where + ` ORDER BY ts DESC, seq DESC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.Unavailable(err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// LongTermInRange returns long-term entries within the inclusive bounds,
// descending.
func (d *Driver) LongTermInRange(ctx context.Context, start, end *time.Time) ([]memory.LongTermMemory, error) {
	query := `
		SELECT id, ts, summary, topics, key_insights, consolidated_from
		FROM long_term`
	where, args := rangeClause(start, end)
	query += where + ` ORDER BY ts DESC, seq DESC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.Unavailable(err)
	}
	defer rows.Close()

	return scanLongTerm(rows)
}

// CountMessages returns the number of stored messages.
func (d *Driver) CountMessages(ctx context.Context) (int64, error) {
	var count int64
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count); err != nil {
		return 0, storage.Unavailable(err)
	}
	return count, nil
}

// CountLongTerm returns the number of stored long-term entries.
func (d *Driver) CountLongTerm(ctx context.Context) (int64, error) {
	var count int64
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM long_term`).Scan(&count); err != nil {
		return 0, storage.Unavailable(err)
	}
	return count, nil
}

// Export snapshots both tiers.
func (d *Driver) Export(ctx context.Context) (*storage.Export, error) {
	messages, err := d.MessagesInRange(ctx, nil, nil)
	if err != nil {
		return nil, err
	}

	longTerm, err := d.LongTermInRange(ctx, nil, nil)
	if err != nil {
		return nil, err
	}

	return &storage.Export{
		ExportedAt: time.Now().UTC().Truncate(time.Millisecond),
		Messages:   messages,
		LongTerm:   longTerm,
	}, nil
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.db.Close()
}

func rangeClause(start, end *time.Time) (string, []any) {
	where := ""
	args := []any{}

	if start != nil {
		where = ` WHERE ts >= ?`
		args = append(args, start.UnixMilli())
	}
	if end != nil {
		if where == "" {
			where = ` WHERE ts <= ?`
		} else {
			where += ` AND ts <= ?`
		}
		args = append(args, end.UnixMilli())
	}

	return where, args
}

func scanMessages(rows *sql.Rows) ([]memory.Message, error) {
	result := []memory.Message{}
	for rows.Next() {
		var (
			msg          memory.Message
			role         string
			ts           int64
			consolidated int
		)
		if err := rows.Scan(&msg.Seq, &msg.ID, &msg.SessionID, &role, &msg.Content, &ts, &consolidated); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Role = memory.Role(role)
		msg.Timestamp = time.UnixMilli(ts).UTC()
		msg.Consolidated = consolidated != 0
		result = append(result, msg)
	}

	return result, rows.Err()
}

func scanLongTerm(rows *sql.Rows) ([]memory.LongTermMemory, error) {
	result := []memory.LongTermMemory{}
	for rows.Next() {
		var (
			entry        memory.LongTermMemory
			ts           int64
			topicsJSON   string
			insightsJSON string
		)
		if err := rows.Scan(&entry.ID, &ts, &entry.Summary, &topicsJSON, &insightsJSON, &entry.ConsolidatedFrom); err != nil {
			return nil, fmt.Errorf("failed to scan long-term entry: %w", err)
		}
		entry.Timestamp = time.UnixMilli(ts).UTC()

		var err error
		if entry.Topics, err = decodeList(topicsJSON); err != nil {
			return nil, err
		}
		if entry.KeyInsights, err = decodeList(insightsJSON); err != nil {
			return nil, err
		}

		result = append(result, entry)
	}

	return result, rows.Err()
}

func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("encode list field: %w", err)
	}
	return string(data), nil
}

func decodeList(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("decode list field: %w", err)
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}
