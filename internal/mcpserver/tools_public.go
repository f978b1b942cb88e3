package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPublicTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_tables",
			mcp.WithDescription("List every table with its phase, seated and waiting counts"),
		),
		s.handleListTables,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_table_state",
			mcp.WithDescription("Table snapshot. With player_id the caller's own hole cards are included."),
			mcp.WithString("table_id", mcp.Required(), mcp.Description("Table id, e.g. publicGame1")),
			mcp.WithString("player_id", mcp.Description("Viewer identity")),
		),
		s.handleGetTableState,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_wallet",
			mcp.WithDescription("Wallet balance and win/loss/draw counters"),
			mcp.WithString("player_id", mcp.Required(), mcp.Description("Player identity")),
		),
		s.handleGetWallet,
	)
}

func (s *Server) handleListTables(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := s.lobby.Tables(ctx)
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(resp), nil
}

func (s *Server) handleGetTableState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tableID, errResp := requireTable(request)
	if errResp != nil {
		return errResp, nil
	}
	state, err := s.lobby.State(ctx, tableID, request.GetString("player_id", ""))
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(state), nil
}

func (s *Server) handleGetWallet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	who, errResp := requirePlayer(request)
	if errResp != nil {
		return errResp, nil
	}
	resp, err := s.lobby.Wallet(ctx, who.ID)
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(resp), nil
}
