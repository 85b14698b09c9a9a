package api

import (
	"net/http"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/consolidate"
	"github.com/papercomputeco/engram/pkg/eventstream"
	"github.com/papercomputeco/engram/pkg/search"
	"github.com/papercomputeco/engram/pkg/session"
	"github.com/papercomputeco/engram/pkg/storage"
)

// Server is the API server for managing and querying the engram system
type Server struct {
	config       Config
	storer       storage.Driver
	sessions     *session.Tracker
	searcher     *search.Engine
	consolidator *consolidate.Engine
	publisher    eventstream.Publisher
	logger       *zap.Logger
	app          *fiber.App
}

// NewServer creates a new API server.
// The storer and session tracker are injected so they can be shared with
// the MCP server and the consolidation scheduler. The consolidator may be
// nil, in which case POST /v1/consolidate reports that no summarizer is
// configured. mcpHandler, when non-nil, is mounted at /mcp.
func NewServer(
	config Config,
	storer storage.Driver,
	sessions *session.Tracker,
	searcher *search.Engine,
	consolidator *consolidate.Engine,
	publisher eventstream.Publisher,
	mcpHandler http.Handler,
	logger *zap.Logger,
) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:       config,
		storer:       storer,
		sessions:     sessions,
		searcher:     searcher,
		consolidator: consolidator,
		publisher:    publisher,
		logger:       logger,
		app:          app,
	}

	app.Get("/ping", s.handlePing)

	app.Post("/v1/messages", s.handleStoreMessage)
	app.Delete("/v1/messages", s.handleClearMessages)
	app.Get("/v1/recent", s.handleRecent)
	app.Post("/v1/sessions", s.handleNewSession)
	app.Get("/v1/long-term", s.handleLongTerm)
	app.Post("/v1/consolidate", s.handleConsolidate)
	app.Get("/v1/search", s.handleSearchEndpoint)
	app.Get("/v1/status", s.handleStatus)
	app.Get("/v1/export", s.handleExport)

	if mcpHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(mcpHandler))
	}

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
