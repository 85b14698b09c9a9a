package api

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/utils"
)

const maxSearchLimit = 100

// handleSearchEndpoint handles GET /v1/search requests.
// Query parameters, all optional and combined conjunctively:
//   - query: case-insensitive substring matched against content/summaries
//   - topics: comma-separated topic substrings (long-term only)
//   - start, end: inclusive time bounds (RFC 3339, YYYY-MM-DD, or epoch)
//   - limit: per-tier result cap (default 20, max 100)
//   - scope: "short-term", "long-term", or "both" (default both)
func (s *Server) handleSearchEndpoint(c *fiber.Ctx) error {
	filter := memory.Filter{
		Query: c.Query("query"),
	}

	if raw := c.Query("topics"); raw != "" {
		for _, topic := range strings.Split(raw, ",") {
			if topic = strings.TrimSpace(topic); topic != "" {
				filter.Topics = append(filter.Topics, topic)
			}
		}
	}

	if raw := c.Query("start"); raw != "" {
		t, err := utils.ParseTimestamp(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
		}
		filter.StartTime = &t
	}

	if raw := c.Query("end"); raw != "" {
		t, err := utils.ParseTimestamp(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
		}
		filter.EndTime = &t
	}

	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "limit must be an integer"})
		}
		filter.Limit = clamp(parsed, 1, maxSearchLimit)
	}

	if raw := c.Query("scope"); raw != "" {
		scope := memory.Scope(raw)
		if !scope.Valid() {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "scope must be one of: short-term, long-term, both",
			})
		}
		filter.Scope = scope
	}

	results, err := s.searcher.Search(c.Context(), filter)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.JSON(results)
}
