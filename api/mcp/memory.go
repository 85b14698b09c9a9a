package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/consolidate"
	"github.com/papercomputeco/engram/pkg/eventstream"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/summarize"
)

var (
	storeMessageToolName    = "store_message"
	storeMessageDescription = "Store a conversation message in short-term memory under the current session. Role must be one of: user, assistant, system. Set start_new_session to rotate to a fresh session before storing."

	getRecentToolName    = "get_recent"
	getRecentDescription = "Get recent conversation context: the most recently active sessions with their messages in chronological order. Use this to rebuild context at the start of a conversation."

	startNewSessionToolName    = "start_new_session"
	startNewSessionDescription = "Start a new conversation session. Messages stored afterwards are tagged with the new session id; existing messages are unaffected."

	getLongTermToolName    = "get_long_term"
	getLongTermDescription = "Get consolidated long-term memories, most recent first. Each entry carries a summary, topics, and key insights distilled from past conversations."

	runConsolidationToolName    = "run_consolidation"
	runConsolidationDescription = "Run one consolidation cycle: distill today's unconsolidated messages into a long-term memory entry. Returns the committed entry id and how many messages were consolidated."
)

const (
	defaultRecentSessions = 2
	maxRecentSessions     = 10

	defaultLongTermLimit = 10
	maxLongTermLimit     = 50
)

// StoreMessageInput represents the input arguments for the store_message tool.
type StoreMessageInput struct {
	Role            string `json:"role" jsonschema:"the author of the message: user, assistant, or system"`
	Content         string `json:"content" jsonschema:"the raw message text to store"`
	StartNewSession bool   `json:"start_new_session,omitempty" jsonschema:"rotate to a fresh session before storing this message (default: false)"`
}

// StoreMessageOutput represents the stored message.
type StoreMessageOutput struct {
	Message memory.Message `json:"message"`
}

// handleStoreMessage processes a store_message request via MCP.
func (s *Server) handleStoreMessage(ctx context.Context, _ *mcp.CallToolRequest, input StoreMessageInput) (*mcp.CallToolResult, StoreMessageOutput, error) {
	role := memory.Role(input.Role)
	if !role.Valid() {
		return errorResult("role must be one of: user, assistant, system"), StoreMessageOutput{}, nil
	}
	if input.Content == "" {
		return errorResult("content is required"), StoreMessageOutput{}, nil
	}

	sessionID := s.config.Sessions.Current()
	if input.StartNewSession {
		sessionID = s.config.Sessions.Rotate()
		s.config.Logger.Info("started new session", zap.String("session_id", sessionID))
	}

	msg, err := s.config.Storer.AppendMessage(ctx, sessionID, role, input.Content)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to store message: %v", err)), StoreMessageOutput{}, nil
	}

	if s.config.Publisher != nil {
		if err := s.config.Publisher.PublishMessageStored(ctx, eventstream.NewMessageStored(*msg)); err != nil {
			s.config.Logger.Warn("failed to publish message-stored event",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		}
	}

	return jsonResult(StoreMessageOutput{Message: *msg})
}

// GetRecentInput represents the input arguments for the get_recent tool.
type GetRecentInput struct {
	Sessions int `json:"sessions,omitempty" jsonschema:"number of recent sessions to return (default: 2, max: 10)"`
}

// GetRecentOutput represents recent sessions with their messages.
type GetRecentOutput struct {
	Sessions []memory.Session `json:"sessions"`
	Count    int              `json:"count"`
}

// handleGetRecent processes a get_recent request via MCP.
func (s *Server) handleGetRecent(ctx context.Context, _ *mcp.CallToolRequest, input GetRecentInput) (*mcp.CallToolResult, GetRecentOutput, error) {
	n := input.Sessions
	if n <= 0 {
		n = defaultRecentSessions
	}
	if n > maxRecentSessions {
		n = maxRecentSessions
	}

	sessions, err := s.config.Storer.RecentSessions(ctx, n)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load recent sessions: %v", err)), GetRecentOutput{}, nil
	}

	return jsonResult(GetRecentOutput{Sessions: sessions, Count: len(sessions)})
}

// StartNewSessionInput represents the (empty) input for start_new_session.
type StartNewSessionInput struct{}

// StartNewSessionOutput carries the new session id.
type StartNewSessionOutput struct {
	SessionID string `json:"session_id"`
}

// handleStartNewSession processes a start_new_session request via MCP.
func (s *Server) handleStartNewSession(_ context.Context, _ *mcp.CallToolRequest, _ StartNewSessionInput) (*mcp.CallToolResult, StartNewSessionOutput, error) {
	id := s.config.Sessions.Rotate()

	s.config.Logger.Info("started new session", zap.String("session_id", id))

	return jsonResult(StartNewSessionOutput{SessionID: id})
}

// GetLongTermInput represents the input arguments for the get_long_term tool.
type GetLongTermInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"number of long-term entries to return (default: 10, max: 50)"`
}

// GetLongTermOutput represents long-term memory entries.
type GetLongTermOutput struct {
	Entries []memory.LongTermMemory `json:"entries"`
	Count   int                     `json:"count"`
}

// handleGetLongTerm processes a get_long_term request via MCP.
func (s *Server) handleGetLongTerm(ctx context.Context, _ *mcp.CallToolRequest, input GetLongTermInput) (*mcp.CallToolResult, GetLongTermOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultLongTermLimit
	}
	if limit > maxLongTermLimit {
		limit = maxLongTermLimit
	}

	entries, err := s.config.Storer.RecentLongTerm(ctx, limit)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load long-term memory: %v", err)), GetLongTermOutput{}, nil
	}

	return jsonResult(GetLongTermOutput{Entries: entries, Count: len(entries)})
}

// RunConsolidationInput represents the (empty) input for run_consolidation.
type RunConsolidationInput struct{}

// RunConsolidationOutput carries the cycle result.
type RunConsolidationOutput struct {
	Result *consolidate.Result `json:"result"`
}

// handleRunConsolidation processes a run_consolidation request via MCP.
func (s *Server) handleRunConsolidation(ctx context.Context, _ *mcp.CallToolRequest, _ RunConsolidationInput) (*mcp.CallToolResult, RunConsolidationOutput, error) {
	if s.config.Consolidator == nil {
		return errorResult(summarize.ErrNotConfigured.Error()), RunConsolidationOutput{}, nil
	}

	result, err := s.config.Consolidator.Run(ctx)
	if err != nil {
		if errors.Is(err, consolidate.ErrAlreadyRunning) {
			return errorResult(err.Error()), RunConsolidationOutput{}, nil
		}
		return errorResult(fmt.Sprintf("Consolidation failed: %v", err)), RunConsolidationOutput{}, nil
	}

	if !result.Empty && s.config.Publisher != nil {
		event := eventstream.NewMemoryConsolidated(result.LongTermID, result.Consolidated, result.Repaired)
		if err := s.config.Publisher.PublishMemoryConsolidated(ctx, event); err != nil {
			s.config.Logger.Warn("failed to publish memory-consolidated event",
				zap.String("long_term_id", result.LongTermID),
				zap.Error(err),
			)
		}
	}

	return jsonResult(RunConsolidationOutput{Result: result})
}

// errorResult builds a tool-level error result.
func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// jsonResult serializes the structured output as JSON for the text field.
// Per MCP spec: tools returning structured content should also return
// serialized JSON in a TextContent block for backwards compatibility.
func jsonResult[T any](output T) (*mcp.CallToolResult, T, error) {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		var zero T
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err)), zero, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
