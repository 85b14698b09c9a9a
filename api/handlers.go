package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/consolidate"
	"github.com/papercomputeco/engram/pkg/eventstream"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/summarize"
)

const (
	defaultRecentSessions = 2
	maxRecentSessions     = 10

	defaultLongTermLimit = 10
	maxLongTermLimit     = 50
)

// StoreMessageRequest is the body for POST /v1/messages.
type StoreMessageRequest struct {
	Role            string `json:"role"`
	Content         string `json:"content"`
	StartNewSession bool   `json:"start_new_session,omitempty"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleStoreMessage appends a message to short-term memory under the
// current session, optionally rotating to a fresh session first.
func (s *Server) handleStoreMessage(c *fiber.Ctx) error {
	var req StoreMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	role := memory.Role(req.Role)
	if !role.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "role must be one of: user, assistant, system",
		})
	}
	if req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "content is required"})
	}

	sessionID := s.sessions.Current()
	if req.StartNewSession {
		sessionID = s.sessions.Rotate()
		s.logger.Info("started new session", zap.String("session_id", sessionID))
	}

	msg, err := s.storer.AppendMessage(c.Context(), sessionID, role, req.Content)
	if err != nil {
		s.logger.Error("failed to store message", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to store message"})
	}

	s.publishMessageStored(c, *msg)

	return c.Status(fiber.StatusCreated).JSON(msg)
}

// handleClearMessages wipes all of short-term memory, consolidated or not.
func (s *Server) handleClearMessages(c *fiber.Ctx) error {
	count, err := s.storer.ClearMessages(c.Context())
	if err != nil {
		s.logger.Error("failed to clear messages", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to clear messages"})
	}

	s.logger.Info("cleared short-term memory", zap.Int64("removed", count))

	return c.JSON(map[string]any{"removed": count})
}

// handleRecent returns the n most recently active sessions with their
// messages in chronological order.
func (s *Server) handleRecent(c *fiber.Ctx) error {
	n := defaultRecentSessions
	if raw := c.Query("sessions"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "sessions must be an integer",
			})
		}
		n = clamp(parsed, 1, maxRecentSessions)
	}

	sessions, err := s.storer.RecentSessions(c.Context(), n)
	if err != nil {
		s.logger.Error("failed to load recent sessions", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to load recent sessions"})
	}

	return c.JSON(map[string]any{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

// handleNewSession rotates the session id. Existing messages keep their
// original session tag.
func (s *Server) handleNewSession(c *fiber.Ctx) error {
	id := s.sessions.Rotate()

	s.logger.Info("started new session", zap.String("session_id", id))

	return c.Status(fiber.StatusCreated).JSON(map[string]any{"session_id": id})
}

// handleLongTerm returns the most recent long-term entries.
func (s *Server) handleLongTerm(c *fiber.Ctx) error {
	limit := defaultLongTermLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "limit must be an integer",
			})
		}
		limit = clamp(parsed, 1, maxLongTermLimit)
	}

	entries, err := s.storer.RecentLongTerm(c.Context(), limit)
	if err != nil {
		s.logger.Error("failed to load long-term memory", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to load long-term memory"})
	}

	return c.JSON(map[string]any{
		"count":   len(entries),
		"entries": entries,
	})
}

// handleConsolidate triggers one consolidation cycle.
func (s *Server) handleConsolidate(c *fiber.Ctx) error {
	if s.consolidator == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: summarize.ErrNotConfigured.Error(),
		})
	}

	result, err := s.consolidator.Run(c.Context())
	switch {
	case errors.Is(err, consolidate.ErrAlreadyRunning):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: err.Error()})
	case errors.Is(err, summarize.ErrNotConfigured):
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: err.Error()})
	case err != nil:
		s.logger.Error("consolidation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
	}

	if !result.Empty {
		s.publishMemoryConsolidated(c, result)
	}

	return c.JSON(result)
}

// handleStatus reports record counts for both tiers and the active session.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	messages, err := s.storer.CountMessages(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to count messages"})
	}

	longTerm, err := s.storer.CountLongTerm(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to count long-term entries"})
	}

	return c.JSON(map[string]any{
		"session_id": s.sessions.Current(),
		"messages":   messages,
		"long_term":  longTerm,
	})
}

// handleExport returns a full snapshot of both tiers.
func (s *Server) handleExport(c *fiber.Ctx) error {
	export, err := s.storer.Export(c.Context())
	if err != nil {
		s.logger.Error("failed to export memory", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to export memory"})
	}

	return c.JSON(export)
}

// publishMessageStored emits the stored-message event. Publish failures are
// logged, never surfaced to the caller.
func (s *Server) publishMessageStored(c *fiber.Ctx, msg memory.Message) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.PublishMessageStored(c.Context(), eventstream.NewMessageStored(msg)); err != nil {
		s.logger.Warn("failed to publish message-stored event",
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
	}
}

func (s *Server) publishMemoryConsolidated(c *fiber.Ctx, result *consolidate.Result) {
	if s.publisher == nil {
		return
	}

	event := eventstream.NewMemoryConsolidated(result.LongTermID, result.Consolidated, result.Repaired)
	if err := s.publisher.PublishMemoryConsolidated(c.Context(), event); err != nil {
		s.logger.Warn("failed to publish memory-consolidated event",
			zap.String("long_term_id", result.LongTermID),
			zap.Error(err),
		)
	}
}

func clamp(n, low, high int) int {
	if n < low {
		return low
	}
	if n > high {
		return high
	}
	return n
}
