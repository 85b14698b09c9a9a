package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/search"
	"github.com/papercomputeco/engram/pkg/utils"
)

var (
	searchToolName    = "search"
	searchDescription = "Search stored memory with conjunctive filters: a case-insensitive text query, topic substrings (long-term only), an inclusive time range, and a scope of short-term, long-term, or both. Returns matches most recent first."
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// SearchInput represents the input arguments for the search tool.
type SearchInput struct {
	Query  string   `json:"query,omitempty" jsonschema:"case-insensitive substring matched against message content and long-term summaries/insights"`
	Topics []string `json:"topics,omitempty" jsonschema:"topic substrings; a long-term entry matches when any requested topic is a substring of one of its topics"`
	Start  string   `json:"start,omitempty" jsonschema:"inclusive lower time bound (RFC 3339, YYYY-MM-DD, or unix epoch)"`
	End    string   `json:"end,omitempty" jsonschema:"inclusive upper time bound (RFC 3339, YYYY-MM-DD, or unix epoch)"`
	Limit  int      `json:"limit,omitempty" jsonschema:"per-tier result cap (default: 20, max: 100)"`
	Scope  string   `json:"scope,omitempty" jsonschema:"which tier to search: short-term, long-term, or both (default: both)"`
}

// SearchOutput represents the output of the search tool.
type SearchOutput struct {
	Results *search.Results `json:"results"`
}

// handleSearch processes a search request.
func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	logger := s.config.Logger

	filter := memory.Filter{
		Query:  input.Query,
		Topics: input.Topics,
	}

	if input.Start != "" {
		t, err := utils.ParseTimestamp(input.Start)
		if err != nil {
			return errorResult(err.Error()), SearchOutput{}, nil
		}
		filter.StartTime = &t
	}

	if input.End != "" {
		t, err := utils.ParseTimestamp(input.End)
		if err != nil {
			return errorResult(err.Error()), SearchOutput{}, nil
		}
		filter.EndTime = &t
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	filter.Limit = limit

	if input.Scope != "" {
		scope := memory.Scope(input.Scope)
		if !scope.Valid() {
			return errorResult("scope must be one of: short-term, long-term, both"), SearchOutput{}, nil
		}
		filter.Scope = scope
	}

	logger.Debug("MCP search request",
		zap.String("query", input.Query),
		zap.Strings("topics", input.Topics),
		zap.Int("limit", limit),
	)

	results, err := s.config.Searcher.Search(ctx, filter)
	if err != nil {
		logger.Error("search failed", zap.Error(err))
		return errorResult(fmt.Sprintf("Search failed: %v", err)), SearchOutput{}, nil
	}

	return jsonResult(SearchOutput{Results: results})
}
