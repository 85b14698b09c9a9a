// Package mirrored decorates a storage.Driver with best-effort remote
// replication: every successful mutation signals the replicator, which
// snapshots and uploads in the background. Reads pass straight through and
// mutations never wait on the mirror, so the local commit stays
// authoritative.
package mirrored

import (
	"context"
	"time"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/storage"
)

// Signaler marks the store dirty for the background replicator.
type Signaler interface {
	Signal()
}

// Driver wraps an inner storage.Driver, signaling after each mutation.
type Driver struct {
	storage.Driver

	signaler Signaler
}

// NewDriver wraps inner with mutation signaling.
func NewDriver(inner storage.Driver, signaler Signaler) *Driver {
	return &Driver{
		Driver:   inner,
		signaler: signaler,
	}
}

// AppendMessage persists via the inner driver and signals the replicator.
func (d *Driver) AppendMessage(ctx context.Context, sessionID string, role memory.Role, content string) (*memory.Message, error) {
	msg, err := d.Driver.AppendMessage(ctx, sessionID, role, content)
	if err != nil {
		return nil, err
	}

	d.signaler.Signal()
	return msg, nil
}

// MarkConsolidated flips consolidation flags and signals the replicator
// when anything changed.
func (d *Driver) MarkConsolidated(ctx context.Context, since time.Time) (int64, error) {
	count, err := d.Driver.MarkConsolidated(ctx, since)
	if err != nil {
		return 0, err
	}

	if count > 0 {
		d.signaler.Signal()
	}
	return count, nil
}

// ClearMessages clears the short-term tier and signals the replicator.
func (d *Driver) ClearMessages(ctx context.Context) (int64, error) {
	count, err := d.Driver.ClearMessages(ctx)
	if err != nil {
		return 0, err
	}

	d.signaler.Signal()
	return count, nil
}

// PutLongTerm inserts via the inner driver and signals the replicator.
func (d *Driver) PutLongTerm(ctx context.Context, summary string, topics, keyInsights []string, provenance string) (string, error) {
	id, err := d.Driver.PutLongTerm(ctx, summary, topics, keyInsights, provenance)
	if err != nil {
		return "", err
	}

	d.signaler.Signal()
	return id, nil
}

// UpdateLongTerm updates via the inner driver and signals the replicator.
func (d *Driver) UpdateLongTerm(ctx context.Context, id, summary string, topics, keyInsights []string, provenance string) error {
	if err := d.Driver.UpdateLongTerm(ctx, id, summary, topics, keyInsights, provenance); err != nil {
		return err
	}

	d.signaler.Signal()
	return nil
}
