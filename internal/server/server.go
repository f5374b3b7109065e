// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package server

import (
	"github.com/mark3labs/mcp-go/server"
	"gorm.io/gorm"

	"github.com/orca-svg/Sidera-project-sub000/internal/config"
	"github.com/orca-svg/Sidera-project-sub000/internal/tools"
)

// MCPServer wraps the mcp-go server with our configuration
type MCPServer struct {
	mcpServer *server.MCPServer
	config    *config.Config
	db        *gorm.DB
	toolCtx   *tools.ToolContext
}

// NewMCPServer creates a new MCP server instance and registers the
// conversation-graph tools.
func NewMCPServer(cfg *config.Config, db *gorm.DB) (*MCPServer, error) {
	mcpServer := server.NewMCPServer(
		"Sidera",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	toolCtx, err := tools.NewToolContext(db, cfg)
	if err != nil {
		return nil, err
	}

	srv := &MCPServer{
		mcpServer: mcpServer,
		config:    cfg,
		db:        db,
		toolCtx:   toolCtx,
	}
	srv.registerTools()
	return srv, nil
}

// registerTools registers all MCP tools
func (s *MCPServer) registerTools() {
	// sidera_chat: converse inside a project; each exchange becomes a
	// scored, rated, placed and linked turn
	s.mcpServer.AddTool(tools.NewChatTool(), tools.ChatHandler(s.toolCtx))

	// sidera_graph: retrieve a project's turns and typed edges
	s.mcpServer.AddTool(tools.NewGraphTool(), tools.GraphHandler(s.toolCtx))

	// sidera_rebuild: batch recompute of scores, ratings and edges
	s.mcpServer.AddTool(tools.NewRebuildTool(), tools.RebuildHandler(s.toolCtx))

	// sidera_project: project lifecycle
	s.mcpServer.AddTool(tools.NewProjectTool(), tools.ProjectHandler(s.toolCtx))

	// sidera_snapshot: versioned YAML exports
	s.mcpServer.AddTool(tools.NewSnapshotTool(), tools.SnapshotHandler(s.toolCtx))
}

// GetMCPServer returns the underlying MCP server
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

// GetToolContext returns the shared tool context
func (s *MCPServer) GetToolContext() *tools.ToolContext {
	return s.toolCtx
}

// HasAI returns true when the AI providers are enabled
func (s *MCPServer) HasAI() bool {
	return s.toolCtx.HasAI()
}
