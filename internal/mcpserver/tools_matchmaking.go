package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerSeatTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"join_table",
			mcp.WithDescription("Buy in and take a seat, or join the waiting queue when the table is full"),
			mcp.WithString("table_id", mcp.Required(), mcp.Description("Table id")),
			mcp.WithString("player_id", mcp.Required(), mcp.Description("Player identity")),
			mcp.WithString("player_name", mcp.Description("Display name, defaults to player_id")),
		),
		s.handleJoinTable,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"leave_table",
			mcp.WithDescription("Give up the seat or queue place. Chips already in the pot are lost."),
			mcp.WithString("table_id", mcp.Required(), mcp.Description("Table id")),
			mcp.WithString("player_id", mcp.Required(), mcp.Description("Player identity")),
		),
		s.handleLeaveTable,
	)
}

func (s *Server) handleJoinTable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tableID, errResp := requireTable(request)
	if errResp != nil {
		return errResp, nil
	}
	who, errResp := requirePlayer(request)
	if errResp != nil {
		return errResp, nil
	}
	resp, err := s.lobby.StartPlaying(ctx, tableID, who)
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(resp), nil
}

func (s *Server) handleLeaveTable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tableID, errResp := requireTable(request)
	if errResp != nil {
		return errResp, nil
	}
	who, errResp := requirePlayer(request)
	if errResp != nil {
		return errResp, nil
	}
	if err := s.lobby.StartSpectating(ctx, tableID, who.ID); err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(map[string]any{"ok": true, "table_id": tableID}), nil
}
