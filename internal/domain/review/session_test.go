package review

import (
	"testing"
)

func newOpen(t *testing.T) *Session {
	t.Helper()
	return NewSession("sess-1", "suspicious transaction tx98766 under review")
}

func TestAppendReviewerVerdicts(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Status
	}{
		{"plain question stays open", "Wie sieht die Transaktionshistorie aus?", StatusOpen},
		{"approve keyword", "Alles klar, GENEHMIGEN", StatusApproved},
		{"approve english synonym", "fine, approve it", StatusApproved},
		{"decline keyword", "Das ist Betrug. ABLEHNEN", StatusDeclined},
		{"decline english synonym", "decline this one", StatusDeclined},
		{"terminate keyword", "BEENDEN", StatusTerminated},
		{"exit synonym", "ok exit", StatusTerminated},
		{"case insensitive", "bitte genehmigen", StatusApproved},
		{"terminate beats decline", "ABLEHNEN und dann BEENDEN", StatusTerminated},
		{"terminate beats approve", "approve... no wait, terminate", StatusTerminated},
		{"approve beats decline", "GENEHMIGEN nicht ABLEHNEN", StatusApproved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newOpen(t)
			got, err := s.AppendReviewer(tt.content)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("status = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKeywordScanIgnoresEarlierTranscript(t *testing.T) {
	s := newOpen(t)

	// A tool payload containing a control keyword must not close the session.
	if err := s.BeginToolCalls([]ToolCall{{ID: "c1", Name: "get_user_profile"}}); err != nil {
		t.Fatalf("begin tool calls: %v", err)
	}
	if err := s.CompleteToolCall(ToolResult{CallID: "c1", Payload: `{"note":"previous case was APPROVED"}`}); err != nil {
		t.Fatalf("complete tool call: %v", err)
	}
	if s.Status != StatusOpen {
		t.Fatalf("status after tool result = %q, want open", s.Status)
	}

	got, err := s.AppendReviewer("zeig mir mehr daten")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != StatusOpen {
		t.Errorf("status = %q, want open; stale keyword in tool payload leaked", got)
	}
}

func TestClosedSessionRejectsTurns(t *testing.T) {
	s := newOpen(t)
	if _, err := s.AppendReviewer("TERMINATE"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Status != StatusTerminated {
		t.Fatalf("status = %q, want terminated", s.Status)
	}

	if _, err := s.AppendReviewer("GENEHMIGEN"); err != ErrClosed {
		t.Errorf("AppendReviewer on closed session: err = %v, want ErrClosed", err)
	}
	if err := s.AppendAgent("reply"); err != ErrClosed {
		t.Errorf("AppendAgent on closed session: err = %v, want ErrClosed", err)
	}
	if err := s.BeginToolCalls([]ToolCall{{ID: "c1"}}); err != ErrClosed {
		t.Errorf("BeginToolCalls on closed session: err = %v, want ErrClosed", err)
	}
}

func TestToolBatchIssueOrder(t *testing.T) {
	s := newOpen(t)
	calls := []ToolCall{
		{ID: "c1", Name: "get_user_profile"},
		{ID: "c2", Name: "get_user_transaction_history"},
		{ID: "c3", Name: "get_similar_fraud_cases"},
	}
	if err := s.BeginToolCalls(calls); err != nil {
		t.Fatalf("begin tool calls: %v", err)
	}
	if s.Status != StatusAwaiting {
		t.Fatalf("status = %q, want awaiting_tool_result", s.Status)
	}

	// Reviewer turns are invalid while the batch is outstanding.
	if _, err := s.AppendReviewer("GENEHMIGEN"); err == nil {
		t.Error("expected error appending reviewer message while awaiting tool results")
	}

	// Complete out of order: c3, c1, c2.
	for _, id := range []string{"c3", "c1"} {
		if err := s.CompleteToolCall(ToolResult{CallID: id, Payload: "payload-" + id}); err != nil {
			t.Fatalf("complete %s: %v", id, err)
		}
		if s.Status != StatusAwaiting {
			t.Fatalf("partial batch reopened session after %s", id)
		}
	}
	if err := s.CompleteToolCall(ToolResult{CallID: "c2", Payload: "payload-c2"}); err != nil {
		t.Fatalf("complete c2: %v", err)
	}
	if s.Status != StatusOpen {
		t.Fatalf("status = %q, want open after full batch", s.Status)
	}

	// Transcript order follows issue order, not completion order.
	n := len(s.Transcript)
	gotOrder := []string{s.Transcript[n-3].Content, s.Transcript[n-2].Content, s.Transcript[n-1].Content}
	wantOrder := []string{"payload-c1", "payload-c2", "payload-c3"}
	for i := range wantOrder {
		if gotOrder[i] != wantOrder[i] {
			t.Errorf("transcript[%d] = %q, want %q", i, gotOrder[i], wantOrder[i])
		}
	}
}

func TestCompleteToolCallErrors(t *testing.T) {
	s := newOpen(t)
	if err := s.CompleteToolCall(ToolResult{CallID: "c1"}); err == nil {
		t.Error("expected error completing tool call with no batch in flight")
	}

	if err := s.BeginToolCalls([]ToolCall{{ID: "c1"}}); err != nil {
		t.Fatalf("begin tool calls: %v", err)
	}
	if err := s.CompleteToolCall(ToolResult{CallID: "unknown"}); err == nil {
		t.Error("expected error for unknown call id")
	}
	if err := s.CompleteToolCall(ToolResult{CallID: "c1", Payload: "x"}); err != nil {
		t.Fatalf("complete c1: %v", err)
	}
	if err := s.BeginToolCalls([]ToolCall{{ID: "c2"}}); err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if err := s.CompleteToolCall(ToolResult{CallID: "c2", Payload: "y"}); err != nil {
		t.Fatalf("complete c2: %v", err)
	}
	if err := s.CompleteToolCall(ToolResult{CallID: "c2", Payload: "y"}); err == nil {
		t.Error("expected error for result after batch drained")
	}
}

func TestLatestReviewerMessage(t *testing.T) {
	s := newOpen(t)
	if _, ok := s.LatestReviewerMessage(); ok {
		t.Error("expected no reviewer message on fresh session")
	}
	if _, err := s.AppendReviewer("erste frage"); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendAgent("antwort"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AppendReviewer("zweite frage"); err != nil {
		t.Fatal(err)
	}
	msg, ok := s.LatestReviewerMessage()
	if !ok || msg.Content != "zweite frage" {
		t.Errorf("latest reviewer message = %q, want %q", msg.Content, "zweite frage")
	}
}
