// Package mirror provides best-effort remote replication of the record
// store.
//
// The local commit is always authoritative; the mirror is a trailing copy
// pushed to a bucket-style object store. Mutations never wait on it; they
// signal the [Replicator], which snapshots the store and uploads
// asynchronously with its own retry policy. A failed upload is a logged
// warning, never a caller-visible error.
package mirror

import (
	"context"

	"github.com/papercomputeco/engram/pkg/storage"
)

// Mirror uploads a store snapshot to a remote backing medium.
type Mirror interface {
	// Push uploads the snapshot, replacing any previous one.
	Push(ctx context.Context, export *storage.Export) error

	// Close releases mirror resources.
	Close() error
}

// Nop is a Mirror that discards snapshots. Used when remote persistence is
// disabled and in tests.
type Nop struct{}

// NewNop creates a no-op mirror.
func NewNop() *Nop {
	return &Nop{}
}

// Push does nothing.
func (n *Nop) Push(_ context.Context, _ *storage.Export) error {
	return nil
}

// Close is a no-op.
func (n *Nop) Close() error {
	return nil
}
