// Package consolidate implements the memory consolidation engine: one
// promotion cycle from short-term messages to a long-term entry.
//
// A cycle is strictly sequential with no partial-cycle resumption:
// select eligible messages, build a bounded context from prior long-term
// entries, invoke the summarization collaborator, validate/repair its
// output, commit the long-term entry, and only then mark the inputs
// consumed. Commit-before-consume means a crash between the two steps can
// produce a duplicate long-term entry on retry but can never lose
// unconsolidated messages (at-least-once, not exactly-once).
//
// Scheduled and manual triggers share one single-flight guard: a trigger
// arriving while a cycle is in flight gets ErrAlreadyRunning instead of
// racing the selection window.
package consolidate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/storage"
	"github.com/papercomputeco/engram/pkg/summarize"
)

// ErrAlreadyRunning is returned when a cycle is triggered while another is
// in flight.
var ErrAlreadyRunning = errors.New("consolidation already running")

// defaultContextEntries bounds the prior long-term entries handed to the
// collaborator for continuity.
const defaultContextEntries = 20

// Config is the configuration options for the engine.
type Config struct {
	// Driver is the record store.
	Driver storage.Driver

	// Summarizer is the external collaborator. Nil means unconfigured:
	// Run fails immediately with summarize.ErrNotConfigured.
	Summarizer summarize.Summarizer

	// Location anchors the daily window's "start of day". Defaults to
	// UTC so every process agrees on the window and DST cannot shift it.
	Location *time.Location

	// ContextEntries bounds the continuity context (defaults to 20).
	ContextEntries int

	// Logger is the provided zap logger.
	Logger *zap.Logger

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Result describes one completed cycle.
type Result struct {
	// Empty is true when no eligible messages existed; the cycle
	// terminated successfully with zero side effects.
	Empty bool `json:"empty"`

	// LongTermID is the id of the committed entry (empty when Empty).
	LongTermID string `json:"long_term_id,omitempty"`

	// Consolidated is the number of messages marked consumed.
	Consolidated int64 `json:"consolidated"`

	// Summary is the committed entry's summary text (empty when Empty).
	Summary string `json:"summary,omitempty"`

	// Repaired is true when the collaborator's output needed repair.
	Repaired bool `json:"repaired,omitempty"`
}

// Engine runs consolidation cycles.
type Engine struct {
	config Config
	logger *zap.Logger

	// guard serializes cycles across the scheduler and manual triggers.
	guard sync.Mutex
}

// NewEngine creates a consolidation engine.
func NewEngine(c Config) *Engine {
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.ContextEntries <= 0 {
		c.ContextEntries = defaultContextEntries
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	return &Engine{
		config: c,
		logger: c.Logger,
	}
}

// Run executes one consolidation cycle. It returns ErrAlreadyRunning when
// a cycle is already in flight and summarize.ErrNotConfigured when no
// collaborator is configured; either way no cycle is attempted.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if e.config.Summarizer == nil {
		return nil, summarize.ErrNotConfigured
	}

	if !e.guard.TryLock() {
		return nil, ErrAlreadyRunning
	}
	defer e.guard.Unlock()

	invokedAt := e.config.Now().In(e.config.Location)
	windowStart := startOfDay(invokedAt)

	// Select
	messages, err := e.config.Driver.UnconsolidatedSince(ctx, windowStart)
	if err != nil {
		return nil, fmt.Errorf("selecting unconsolidated messages: %w", err)
	}
	if len(messages) == 0 {
		e.logger.Info("consolidation: nothing to consolidate",
			zap.Time("window_start", windowStart),
		)
		return &Result{Empty: true}, nil
	}

	// Context-build
	prior, err := e.config.Driver.RecentLongTerm(ctx, e.config.ContextEntries)
	if err != nil {
		return nil, fmt.Errorf("loading long-term context: %w", err)
	}

	transcript := RenderTranscript(messages)
	payload := summarize.BuildPayload(transcript, RenderMemoryContext(prior))

	e.logger.Debug("consolidation: summarizing",
		zap.Int("messages", len(messages)),
		zap.Int("context_entries", len(prior)),
	)

	// Summarize. A failed call aborts the cycle with nothing consumed;
	// the same messages stay eligible for the next trigger.
	response, err := e.config.Summarizer.Summarize(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("summarization call failed: %w", err)
	}

	// Validate/repair. Never aborts: a malformed response becomes a
	// sentinel digest so one bad model reply cannot wedge the pipeline.
	digest, repaired := summarize.ParseDigest(response)
	if repaired {
		e.logger.Warn("consolidation: collaborator response repaired",
			zap.String("summary", digest.Summary),
		)
	}

	// Commit
	provenance := "Conversations from " + invokedAt.Format("2006-01-02")
	id, err := e.config.Driver.PutLongTerm(ctx, digest.Summary, digest.Topics, digest.KeyInsights, provenance)
	if err != nil {
		return nil, fmt.Errorf("committing long-term entry: %w", err)
	}

	// Consume, strictly after the commit is durable.
	count, err := e.config.Driver.MarkConsolidated(ctx, windowStart)
	if err != nil {
		return nil, fmt.Errorf("marking messages consolidated: %w", err)
	}

	e.logger.Info("consolidation complete",
		zap.String("long_term_id", id),
		zap.Int64("consolidated", count),
		zap.Bool("repaired", repaired),
	)

	return &Result{
		LongTermID:   id,
		Consolidated: count,
		Summary:      digest.Summary,
		Repaired:     repaired,
	}, nil
}

// startOfDay returns midnight of t's calendar day in t's location.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
