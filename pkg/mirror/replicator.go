package mirror

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/storage"
)

var (
	defaultMaxAttempts           = 3
	defaultInitialBackoff        = 500 * time.Millisecond
	defaultSnapshotTimeout       = 30 * time.Second
	defaultUploadTimeout         = 2 * time.Minute
	defaultShutdownDrainDeadline = 10 * time.Second
)

// Config is the configuration options for the replicator.
type Config struct {
	// Source produces snapshots on demand; typically the storage driver.
	Source storage.Driver

	// Mirror receives the snapshots.
	Mirror Mirror

	// MaxAttempts bounds the retries per snapshot (defaults to 3).
	MaxAttempts int

	// InitialBackoff is the first retry delay; it doubles per attempt
	// (defaults to 500ms).
	InitialBackoff time.Duration

	// Logger is the provided zap logger.
	Logger *zap.Logger
}

// Replicator runs the asynchronous mirror push loop. Mutating callers
// Signal it; a signal arriving while a push is in flight coalesces into a
// single trailing push, so the queue depth is always at most one.
type Replicator struct {
	config Config

	// pending has capacity 1; it holds the coalesced "dirty" marker.
	pending chan struct{}
	done    chan struct{}
	once    sync.Once
	logger  *zap.Logger
}

// NewReplicator creates a replicator and starts its worker goroutine.
func NewReplicator(c Config) *Replicator {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = defaultInitialBackoff
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	r := &Replicator{
		config:  c,
		pending: make(chan struct{}, 1),
		done:    make(chan struct{}),
		logger:  c.Logger,
	}

	go r.worker()

	return r
}

// Signal marks the store dirty. It never blocks; back-to-back signals
// coalesce into one push.
func (r *Replicator) Signal() {
	select {
	case r.pending <- struct{}{}:
	default:
	}
}

// Close stops the worker after draining any pending push.
func (r *Replicator) Close() {
	r.once.Do(func() {
		close(r.pending)
	})
	select {
	case <-r.done:
	case <-time.After(defaultShutdownDrainDeadline):
		r.logger.Warn("replicator shutdown deadline exceeded, abandoning pending push")
	}
}

func (r *Replicator) worker() {
	defer close(r.done)

	for range r.pending {
		r.push()
	}
}

// push snapshots the store and uploads it, retrying with doubling backoff.
// Failures are warnings: the local commit already succeeded and a later
// signal will carry the same data.
func (r *Replicator) push() {
	ctx, cancel := context.WithTimeout(context.Background(), defaultSnapshotTimeout)
	export, err := r.config.Source.Export(ctx)
	cancel()
	if err != nil {
		r.logger.Warn("mirror snapshot failed", zap.Error(err))
		return
	}

	backoff := r.config.InitialBackoff
	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), defaultUploadTimeout)
		err = r.config.Mirror.Push(ctx, export)
		cancel()
		if err == nil {
			r.logger.Debug("mirror push complete",
				zap.Int("messages", len(export.Messages)),
				zap.Int("long_term", len(export.LongTerm)),
			)
			return
		}

		r.logger.Warn("mirror push failed",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if attempt < r.config.MaxAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
}
