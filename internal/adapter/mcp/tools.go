package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.transactionHistoryTool(),
		s.userProfileTool(),
		s.similarFraudCasesTool(),
	)
}

func (s *Server) transactionHistoryTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_user_transaction_history",
		mcplib.WithDescription("Recent transaction history for an account, newest first"),
		mcplib.WithString("account_id",
			mcplib.Required(),
			mcplib.Description("Account identifier (IBAN or internal ID)"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleTransactionHistory,
	}
}

func (s *Server) userProfileTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_user_profile",
		mcplib.WithDescription("Account profile with risk aggregates and typical behavior"),
		mcplib.WithString("account_id",
			mcplib.Required(),
			mcplib.Description("Account identifier (IBAN or internal ID)"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleUserProfile,
	}
}

func (s *Server) similarFraudCasesTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_similar_fraud_cases",
		mcplib.WithDescription("Historical fraud cases ranked by feature similarity to the current case"),
		mcplib.WithString("case_features",
			mcplib.Required(),
			mcplib.Description("JSON object of boolean case features"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleSimilarFraudCases,
	}
}

func (s *Server) handleTransactionHistory(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Lookup == nil {
		return mcplib.NewToolResultError("lookup store not configured"), nil
	}
	args := req.GetArguments()
	accountID, ok := args["account_id"].(string)
	if !ok || accountID == "" {
		return mcplib.NewToolResultError("account_id is required"), nil
	}
	history, err := s.deps.Lookup.TransactionHistory(ctx, accountID)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(
			fmt.Sprintf("failed to load history for %s", accountID), err,
		), nil
	}
	return jsonResult(history)
}

func (s *Server) handleUserProfile(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Lookup == nil {
		return mcplib.NewToolResultError("lookup store not configured"), nil
	}
	args := req.GetArguments()
	accountID, ok := args["account_id"].(string)
	if !ok || accountID == "" {
		return mcplib.NewToolResultError("account_id is required"), nil
	}
	profile, err := s.deps.Lookup.UserProfile(ctx, accountID)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(
			fmt.Sprintf("failed to load profile for %s", accountID), err,
		), nil
	}
	return jsonResult(profile)
}

func (s *Server) handleSimilarFraudCases(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Lookup == nil {
		return mcplib.NewToolResultError("lookup store not configured"), nil
	}
	args := req.GetArguments()
	features, ok := args["case_features"].(string)
	if !ok || features == "" {
		return mcplib.NewToolResultError("case_features is required"), nil
	}
	cases, err := s.deps.Lookup.SimilarFraudCases(ctx, features)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to load similar cases", err), nil
	}
	return jsonResult(cases)
}

func jsonResult(v any) (*mcplib.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal result", err), nil
	}
	return mcplib.NewToolResultText(string(data)), nil
}
