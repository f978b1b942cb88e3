package mcpserver

import (
	"context"

	"holdem-tables/internal/app/lobby"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerGameplayTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"submit_action",
			mcp.WithDescription("Act on your turn. Rejected moves return an error code and leave the table unchanged."),
			mcp.WithString("table_id", mcp.Required(), mcp.Description("Table id")),
			mcp.WithString("player_id", mcp.Required(), mcp.Description("Player identity")),
			mcp.WithString("action", mcp.Required(), mcp.Description("fold|check|call|raise")),
			mcp.WithNumber("amount", mcp.Description("Chips to add on a raise")),
		),
		s.handleSubmitAction,
	)
}

func (s *Server) handleSubmitAction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tableID, errResp := requireTable(request)
	if errResp != nil {
		return errResp, nil
	}
	who, errResp := requirePlayer(request)
	if errResp != nil {
		return errResp, nil
	}
	action, err := request.RequireString("action")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	var amount int64
	if request.GetArguments()["amount"] != nil {
		v, convErr := request.RequireFloat("amount")
		if convErr != nil {
			return toolError("invalid_request", convErr.Error()), nil
		}
		amount = int64(v)
	}
	if err := s.lobby.Act(ctx, tableID, who.ID, lobby.ActionRequest{Action: action, Amount: amount}); err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(map[string]any{"accepted": true, "table_id": tableID}), nil
}
