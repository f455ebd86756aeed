package litellm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fraudgate/fraudgate/internal/domain/review"
	"github.com/fraudgate/fraudgate/internal/domain/transaction"
	"github.com/fraudgate/fraudgate/internal/port/capability"
)

// completionServer returns an httptest server replying with the given
// assistant message body for every chat completion.
func completionServer(t *testing.T, message map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization header = %q", got)
		}
		resp := map[string]any{
			"choices": []map[string]any{{"message": message}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func sampleTx() *transaction.Transaction {
	return &transaction.Transaction{
		ID:              "tx98765",
		SenderAccount:   "DE55500105173984217489",
		ReceiverAccount: "FR7630006000011234567890189",
		Amount:          2500.00,
		Timestamp:       time.Date(2023, 12, 15, 22, 45, 0, 0, time.UTC),
		Description:     "urgent payment",
		IsRealtime:      true,
	}
}

func TestScorerReturnsRawJSON(t *testing.T) {
	srv := completionServer(t, map[string]any{
		"content": `{"probability":0.8,"threshold":0.5,"is_fraud":true,"features":{},"model_version":"v1"}`,
	})
	defer srv.Close()

	s := &scorer{name: "ml_scorer", client: NewClient(srv.URL, "test-key"), model: "m", prompt: mlScorerPrompt}
	raw, err := s.Score(context.Background(), capability.ScoreRequest{Transaction: sampleTx()})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("score output is not JSON: %v", err)
	}
	if doc["is_fraud"] != true {
		t.Errorf("is_fraud = %v, want true", doc["is_fraud"])
	}
}

func TestScorerStripsCodeFences(t *testing.T) {
	srv := completionServer(t, map[string]any{
		"content": "```json\n{\"is_flagged\":true,\"rules_triggered\":[\"large_amount\"],\"version\":\"v2\"}\n```",
	})
	defer srv.Close()

	s := &scorer{name: "rule_scorer", client: NewClient(srv.URL, "test-key"), model: "m", prompt: ruleScorerPrompt}
	raw, err := s.Score(context.Background(), capability.ScoreRequest{Transaction: sampleTx()})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("fenced output not unwrapped: %v\nraw: %s", err, raw)
	}
}

func TestDialogueFreeTextReply(t *testing.T) {
	srv := completionServer(t, map[string]any{"content": "The account history looks normal."})
	defer srv.Close()

	d := &dialogue{client: NewClient(srv.URL, "test-key"), model: "m"}
	reply, err := d.Converse(context.Background(), []review.Message{
		{Speaker: review.SpeakerSystem, Content: "case framing"},
		{Speaker: review.SpeakerReviewer, Content: "anything unusual?"},
	}, nil)
	if err != nil {
		t.Fatalf("Converse failed: %v", err)
	}
	if reply.Text != "The account history looks normal." {
		t.Errorf("reply text = %q", reply.Text)
	}
	if len(reply.ToolCalls) != 0 {
		t.Errorf("unexpected tool calls: %v", reply.ToolCalls)
	}
}

func TestDialogueToolCallReply(t *testing.T) {
	srv := completionServer(t, map[string]any{
		"content": "",
		"tool_calls": []map[string]any{
			{
				"id": "call_1",
				"function": map[string]any{
					"name":      "get_user_profile",
					"arguments": `{"account_id":"DE5550"}`,
				},
			},
		},
	})
	defer srv.Close()

	d := &dialogue{client: NewClient(srv.URL, "test-key"), model: "m"}
	reply, err := d.Converse(context.Background(), []review.Message{
		{Speaker: review.SpeakerReviewer, Content: "show me the profile"},
	}, []capability.ToolDescriptor{
		{Name: "get_user_profile", Arguments: map[string]string{"account_id": "account number"}, Required: []string{"account_id"}},
	})
	if err != nil {
		t.Fatalf("Converse failed: %v", err)
	}
	if len(reply.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d, want 1", len(reply.ToolCalls))
	}
	tc := reply.ToolCalls[0]
	if tc.ID != "call_1" || tc.Name != "get_user_profile" {
		t.Errorf("tool call = %+v", tc)
	}
	if tc.Arguments["account_id"] != "DE5550" {
		t.Errorf("account_id = %q", tc.Arguments["account_id"])
	}
}

func TestDialogueCarriesNarrationWithToolCalls(t *testing.T) {
	srv := completionServer(t, map[string]any{
		"content": "Let me pull the account profile first.",
		"tool_calls": []map[string]any{
			{
				"id": "call_1",
				"function": map[string]any{
					"name":      "get_user_profile",
					"arguments": `{"account_id":"DE5550"}`,
				},
			},
		},
	})
	defer srv.Close()

	d := &dialogue{client: NewClient(srv.URL, "test-key"), model: "m"}
	reply, err := d.Converse(context.Background(), []review.Message{
		{Speaker: review.SpeakerReviewer, Content: "show me the profile"},
	}, nil)
	if err != nil {
		t.Fatalf("Converse failed: %v", err)
	}
	if reply.Text != "Let me pull the account profile first." {
		t.Errorf("narration dropped: text = %q", reply.Text)
	}
	if len(reply.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d, want 1", len(reply.ToolCalls))
	}
}

func TestCompleteErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"model overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e := &explainer{client: NewClient(srv.URL, ""), model: "m"}
	_, err := e.Explain(context.Background(), capability.DecideRequest{Transaction: sampleTx()})
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
}

func TestParseArguments(t *testing.T) {
	args, err := parseArguments(`{"account_id":"X","limit":5}`)
	if err != nil {
		t.Fatalf("parseArguments: %v", err)
	}
	if args["account_id"] != "X" {
		t.Errorf("account_id = %q", args["account_id"])
	}
	if args["limit"] != "5" {
		t.Errorf("non-string argument not stringified: %q", args["limit"])
	}

	if _, err := parseArguments("{broken"); err == nil {
		t.Error("expected error for malformed arguments")
	}
}
