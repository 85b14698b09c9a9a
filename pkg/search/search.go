// Package search provides the filter engine over both memory tiers. It is
// used by both the REST API endpoint and the MCP server tools.
//
// All predicates are conjunctive. Text and topic matching is
// case-insensitive substring matching, evaluated here rather than pushed
// into SQL so the semantics are identical across storage drivers; the
// store contributes only the time-range scan and (timestamp, seq)
// ordering.
package search

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/storage"
)

// DefaultLimit caps each tier's result when the filter carries no explicit
// limit. A filter without a limit is bounded, not unlimited.
const DefaultLimit = 20

// Results holds the matched records, most recent first, with only the
// side(s) requested by the filter's scope populated.
type Results struct {
	ShortTerm []memory.Message        `json:"short_term,omitempty"`
	LongTerm  []memory.LongTermMemory `json:"long_term,omitempty"`
}

// Engine evaluates filters against the record store.
type Engine struct {
	driver storage.Driver
	logger *zap.Logger
}

// NewEngine creates a filter engine over the given driver.
func NewEngine(driver storage.Driver, logger *zap.Logger) *Engine {
	return &Engine{
		driver: driver,
		logger: logger,
	}
}

// Search evaluates the filter and returns matches for the requested
// scope(s), each tier descending by timestamp and truncated to the limit.
func (e *Engine) Search(ctx context.Context, f memory.Filter) (*Results, error) {
	scope := f.Scope
	if scope == "" {
		scope = memory.ScopeBoth
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	e.logger.Debug("search request",
		zap.String("query", f.Query),
		zap.Strings("topics", f.Topics),
		zap.String("scope", string(scope)),
		zap.Int("limit", limit),
	)

	// The tiers are independent scans, so evaluate them concurrently.
	results := &Results{}
	group, gctx := errgroup.WithContext(ctx)

	if scope == memory.ScopeShortTerm || scope == memory.ScopeBoth {
		group.Go(func() error {
			messages, err := e.driver.MessagesInRange(gctx, f.StartTime, f.EndTime)
			if err != nil {
				return err
			}

			matched := []memory.Message{}
			for _, msg := range messages {
				if matchMessage(msg, f) {
					matched = append(matched, msg)
					if len(matched) == limit {
						break
					}
				}
			}
			results.ShortTerm = matched
			return nil
		})
	}

	if scope == memory.ScopeLongTerm || scope == memory.ScopeBoth {
		group.Go(func() error {
			entries, err := e.driver.LongTermInRange(gctx, f.StartTime, f.EndTime)
			if err != nil {
				return err
			}

			matched := []memory.LongTermMemory{}
			for _, entry := range entries {
				if matchLongTerm(entry, f) {
					matched = append(matched, entry)
					if len(matched) == limit {
						break
					}
				}
			}
			results.LongTerm = matched
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// matchMessage applies the text predicate to a short-term record. Messages
// carry no topics, so the topic predicate does not constrain them.
func matchMessage(msg memory.Message, f memory.Filter) bool {
	if f.Query == "" {
		return true
	}
	return containsFold(msg.Content, f.Query)
}

// matchLongTerm applies the text and topic predicates to a long-term
// record. The text predicate matches against the summary OR any key
// insight; the topic predicate matches when ANY requested topic is a
// substring of one of the stored topics ("db" matches "database").
func matchLongTerm(entry memory.LongTermMemory, f memory.Filter) bool {
	if f.Query != "" {
		matched := containsFold(entry.Summary, f.Query)
		if !matched {
			for _, insight := range entry.KeyInsights {
				if containsFold(insight, f.Query) {
					matched = true
					break
				}
			}
		}
		if !matched {
			return false
		}
	}

	if len(f.Topics) > 0 {
		matched := false
	topics:
		for _, want := range f.Topics {
			for _, have := range entry.Topics {
				if containsFold(have, want) {
					matched = true
					break topics
				}
			}
		}
		if !matched {
			return false
		}
	}

	return true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
