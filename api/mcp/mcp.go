// Package mcp provides an MCP (Model Context Protocol) server for the engram system.
package mcp

import (
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/consolidate"
	"github.com/papercomputeco/engram/pkg/eventstream"
	"github.com/papercomputeco/engram/pkg/search"
	"github.com/papercomputeco/engram/pkg/session"
	"github.com/papercomputeco/engram/pkg/storage"
	"github.com/papercomputeco/engram/pkg/utils"
)

type Config struct {
	// Storer is the record store shared with the REST server.
	Storer storage.Driver

	// Sessions is the shared session tracker.
	Sessions *session.Tracker

	// Searcher evaluates filters over both tiers.
	Searcher *search.Engine

	// Consolidator runs consolidation cycles. Nil means the
	// run_consolidation tool reports that no summarizer is configured.
	Consolidator *consolidate.Engine

	// Publisher emits memory events (optional).
	Publisher eventstream.Publisher

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured zap logger
	Logger *zap.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the memory tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	// Create the MCP server
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "engram",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if c.Noop {
		// return the empty MCP server with no tools configured
		// if the noop flag is set (i.e., MCP capabilities are disabled)
		s.mcpServer = mcpServer
		return s, nil
	}

	if c.Storer == nil {
		return nil, errors.New("storage driver is required")
	}
	if c.Sessions == nil {
		return nil, errors.New("session tracker is required")
	}
	if c.Searcher == nil {
		return nil, errors.New("search engine is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	// Add tools
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        storeMessageToolName,
		Description: storeMessageDescription,
	}, s.handleStoreMessage)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        getRecentToolName,
		Description: getRecentDescription,
	}, s.handleGetRecent)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        startNewSessionToolName,
		Description: startNewSessionDescription,
	}, s.handleStartNewSession)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        getLongTermToolName,
		Description: getLongTermDescription,
	}, s.handleGetLongTerm)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        runConsolidationToolName,
		Description: runConsolidationDescription,
	}, s.handleRunConsolidation)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        searchToolName,
		Description: searchDescription,
	}, s.handleSearch)

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server, or nil for a noop
// server that exposes no tools.
func (s *Server) Handler() http.Handler {
	if s.handler == nil {
		return nil
	}
	return s.handler
}
