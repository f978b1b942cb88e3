package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"holdem-tables/internal/app/lobby"
	"holdem-tables/internal/game/viewmodel"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server exposes the lobby as MCP tools. Callers pass their identity as
// player_id on every mutating tool; it is trusted the same way the
// X-Player-ID header is.
type Server struct {
	lobby *lobby.Service

	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
}

func New(svc *lobby.Service) *Server {
	mcpSrv := server.NewMCPServer(
		"holdem-tables",
		"0.1.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
		server.WithResourceRecovery(),
	)
	s := &Server{
		lobby:      svc,
		mcpServer:  mcpSrv,
		httpServer: server.NewStreamableHTTPServer(mcpSrv, server.WithStateLess(true), server.WithDisableStreaming(true)),
	}
	s.registerPublicTools()
	s.registerSeatTools()
	s.registerGameplayTools()
	s.registerResources()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer
}

func (s *Server) registerResources() {
	s.mcpServer.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"table://{table_id}/public_state",
			"table_public_state",
			mcp.WithTemplateDescription("Public table state by table id"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			raw := string(request.Params.URI)
			if !strings.HasPrefix(raw, "table://") || !strings.HasSuffix(raw, "/public_state") {
				return nil, nil
			}
			tableID := strings.TrimSuffix(strings.TrimPrefix(raw, "table://"), "/public_state")
			if tableID == "" {
				return nil, nil
			}
			state, err := s.lobby.State(ctx, tableID, viewmodel.PublicViewer)
			if err != nil {
				return nil, err
			}
			payload, err := json.Marshal(state)
			if err != nil {
				return nil, err
			}
			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      raw,
					MIMEType: "application/json",
					Text:     string(payload),
				},
			}, nil
		},
	)
}

func requirePlayer(request mcp.CallToolRequest) (lobby.Identity, *mcp.CallToolResult) {
	id, err := request.RequireString("player_id")
	if err != nil || strings.TrimSpace(id) == "" {
		return lobby.Identity{}, toolError("invalid_request", "player_id is required")
	}
	return lobby.Identity{
		ID:   strings.TrimSpace(id),
		Name: strings.TrimSpace(request.GetString("player_name", "")),
	}, nil
}

func requireTable(request mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	id, err := request.RequireString("table_id")
	if err != nil || strings.TrimSpace(id) == "" {
		return "", toolError("invalid_request", "table_id is required")
	}
	return strings.TrimSpace(id), nil
}
