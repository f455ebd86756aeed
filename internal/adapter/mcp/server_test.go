package mcp_test

import (
	"context"
	"encoding/json"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	fgmcp "github.com/fraudgate/fraudgate/internal/adapter/mcp"
	"github.com/fraudgate/fraudgate/internal/port/lookup"
	"github.com/fraudgate/fraudgate/internal/port/resultstore"
)

// mockLookup serves fixed case data.
type mockLookup struct {
	history  []lookup.TransactionSummary
	profiles map[string]*lookup.UserProfile
	cases    []lookup.FraudCase
}

func (m *mockLookup) TransactionHistory(_ context.Context, _ string) ([]lookup.TransactionSummary, error) {
	return m.history, nil
}

func (m *mockLookup) UserProfile(_ context.Context, id string) (*lookup.UserProfile, error) {
	if p, ok := m.profiles[id]; ok {
		return p, nil
	}
	return nil, resultstore.ErrNotFound
}

func (m *mockLookup) SimilarFraudCases(_ context.Context, _ string) ([]lookup.FraudCase, error) {
	return m.cases, nil
}

func TestNewServer(t *testing.T) {
	s := fgmcp.NewServer(fgmcp.ServerConfig{
		Addr:    ":8090",
		Name:    "test-server",
		Version: "0.1.0",
	}, fgmcp.ServerDeps{})
	if s == nil {
		t.Fatal("NewServer returned nil")
	}
	if s.MCPServer() == nil {
		t.Fatal("MCPServer() returned nil")
	}
}

func TestToolRegistration(t *testing.T) {
	s := fgmcp.NewServer(fgmcp.ServerConfig{Name: "test", Version: "0.1.0"}, fgmcp.ServerDeps{
		Lookup: &mockLookup{},
	})

	tools := s.MCPServer().ListTools()
	if len(tools) != 3 {
		t.Fatalf("expected 3 tools, got %d", len(tools))
	}

	expectedTools := map[string]bool{
		"get_user_transaction_history": false,
		"get_user_profile":             false,
		"get_similar_fraud_cases":      false,
	}
	for name := range tools {
		if _, ok := expectedTools[name]; ok {
			expectedTools[name] = true
		} else {
			t.Errorf("unexpected tool: %s", name)
		}
	}
	for name, found := range expectedTools {
		if !found {
			t.Errorf("expected tool %q not registered", name)
		}
	}
}

func TestHandleUserProfile(t *testing.T) {
	s := fgmcp.NewServer(fgmcp.ServerConfig{Name: "test", Version: "0.1.0"}, fgmcp.ServerDeps{
		Lookup: &mockLookup{
			profiles: map[string]*lookup.UserProfile{
				"DE55500105173984217489": {
					AccountID:   "DE55500105173984217489",
					AccountType: "private",
					RiskScore:   0.2,
				},
			},
		},
	})

	tools := s.MCPServer().ListTools()
	profileTool, ok := tools["get_user_profile"]
	if !ok {
		t.Fatal("get_user_profile tool not found")
	}

	result, err := profileTool.Handler(context.Background(), mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{
			Name:      "get_user_profile",
			Arguments: map[string]any{"account_id": "DE55500105173984217489"},
		},
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool returned error: %v", result.Content)
	}

	text, ok := result.Content[0].(mcplib.TextContent)
	if !ok {
		t.Fatal("expected TextContent")
	}
	var p lookup.UserProfile
	if err := json.Unmarshal([]byte(text.Text), &p); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if p.AccountType != "private" {
		t.Fatalf("account_type = %q, want private", p.AccountType)
	}
}

func TestHandleMissingArgument(t *testing.T) {
	s := fgmcp.NewServer(fgmcp.ServerConfig{Name: "test", Version: "0.1.0"}, fgmcp.ServerDeps{
		Lookup: &mockLookup{},
	})

	tools := s.MCPServer().ListTools()
	historyTool, ok := tools["get_user_transaction_history"]
	if !ok {
		t.Fatal("get_user_transaction_history tool not found")
	}

	result, err := historyTool.Handler(context.Background(), mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{Name: "get_user_transaction_history"},
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result for missing account_id")
	}
}
