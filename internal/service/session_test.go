package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fraudgate/fraudgate/internal/domain/assessment"
	"github.com/fraudgate/fraudgate/internal/domain/review"
	"github.com/fraudgate/fraudgate/internal/port/capability"
)

func testSessionService(dialogue *stubDialogue) *SessionService {
	tools := NewToolsService(testLookup(), nil, 0, nil)
	return NewSessionService(dialogue, tools, newMemStore(), nil, nil)
}

func openTestSession(t *testing.T, s *SessionService) *review.Session {
	t.Helper()
	tx := testTransaction(false)
	ml, rule := parsedAssessments(t, mlJSON(0.95, 0.8), ruleJSON(true))
	sess, err := s.Open(context.Background(), "s1", tx, ml, rule, "looks off")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return sess
}

func TestSession_OpenSeedsFramingAndAgentTurn(t *testing.T) {
	dialogue := &stubDialogue{replies: []*capability.Reply{{Text: "Here is my summary of the case."}}}
	s := testSessionService(dialogue)

	sess := openTestSession(t, s)
	if sess.Status != review.StatusOpen {
		t.Fatalf("status = %q, want open", sess.Status)
	}
	if len(sess.Transcript) != 2 {
		t.Fatalf("transcript length = %d, want 2 (framing + agent)", len(sess.Transcript))
	}
	if sess.Transcript[0].Speaker != review.SpeakerSystem {
		t.Errorf("first speaker = %q, want system", sess.Transcript[0].Speaker)
	}
	if !strings.Contains(sess.Transcript[0].Content, "t123456") {
		t.Errorf("framing does not contain the transaction")
	}
	if sess.Transcript[1].Speaker != review.SpeakerAgent {
		t.Errorf("second speaker = %q, want agent", sess.Transcript[1].Speaker)
	}
}

func TestSession_ToolBatchInIssueOrder(t *testing.T) {
	dialogue := &stubDialogue{replies: []*capability.Reply{
		{Text: "opening summary"},
		{ToolCalls: []review.ToolCall{
			{ID: "c1", Name: ToolUserProfile, Arguments: map[string]string{"account_id": "DE55500105173984217489"}},
			{ID: "c2", Name: ToolTransactionHistory, Arguments: map[string]string{"account_id": "DE55500105173984217489"}},
		}},
		{Text: "profile and history reviewed"},
	}}
	s := testSessionService(dialogue)
	sess := openTestSession(t, s)

	status, err := s.Turn(context.Background(), sess, "what do we know about the sender?")
	if err != nil {
		t.Fatalf("Turn: %v", err)
	}
	if status != review.StatusOpen {
		t.Fatalf("status = %q, want open", status)
	}

	// framing, agent, reviewer, tool c1, tool c2, agent
	if len(sess.Transcript) != 6 {
		t.Fatalf("transcript length = %d, want 6", len(sess.Transcript))
	}
	if sess.Transcript[3].Speaker != review.SpeakerTool || sess.Transcript[4].Speaker != review.SpeakerTool {
		t.Fatalf("tool results not in transcript positions 3 and 4")
	}
	// c1 is the profile lookup: a JSON object. c2 is history: a JSON array.
	if !strings.HasPrefix(sess.Transcript[3].Content, "{") {
		t.Errorf("first tool result should be the profile (issue order), got %q", sess.Transcript[3].Content)
	}
	if !strings.HasPrefix(sess.Transcript[4].Content, "[") {
		t.Errorf("second tool result should be the history (issue order), got %q", sess.Transcript[4].Content)
	}
}

func TestSession_NarrationPrecedesToolBatch(t *testing.T) {
	dialogue := &stubDialogue{replies: []*capability.Reply{
		{Text: "opening summary"},
		{
			Text: "Let me pull the sender profile first.",
			ToolCalls: []review.ToolCall{
				{ID: "c1", Name: ToolUserProfile, Arguments: map[string]string{"account_id": "DE55500105173984217489"}},
			},
		},
		{Text: "profile reviewed"},
	}}
	s := testSessionService(dialogue)
	sess := openTestSession(t, s)

	if _, err := s.Turn(context.Background(), sess, "what do we know about the sender?"); err != nil {
		t.Fatalf("Turn: %v", err)
	}

	// framing, agent, reviewer, agent narration, tool c1, agent
	if len(sess.Transcript) != 6 {
		t.Fatalf("transcript length = %d, want 6", len(sess.Transcript))
	}
	if sess.Transcript[3].Speaker != review.SpeakerAgent {
		t.Fatalf("speaker at 3 = %q, want agent narration before the tool result", sess.Transcript[3].Speaker)
	}
	if sess.Transcript[3].Content != "Let me pull the sender profile first." {
		t.Errorf("narration = %q", sess.Transcript[3].Content)
	}
	if sess.Transcript[4].Speaker != review.SpeakerTool {
		t.Errorf("speaker at 4 = %q, want tool", sess.Transcript[4].Speaker)
	}
}

func TestSession_ToolFailureContinuesSession(t *testing.T) {
	dialogue := &stubDialogue{replies: []*capability.Reply{
		{Text: "opening summary"},
		{ToolCalls: []review.ToolCall{
			{ID: "c1", Name: "no_such_tool", Arguments: map[string]string{}},
		}},
		{Text: "that lookup is not available"},
	}}
	s := testSessionService(dialogue)
	sess := openTestSession(t, s)

	status, err := s.Turn(context.Background(), sess, "check the ledger")
	if err != nil {
		t.Fatalf("Turn: %v", err)
	}
	if status != review.StatusOpen {
		t.Fatalf("status = %q, want open after tool failure", status)
	}

	var toolMsg string
	for _, m := range sess.Transcript {
		if m.Speaker == review.SpeakerTool {
			toolMsg = m.Content
		}
	}
	if !strings.Contains(toolMsg, "tool call failed") {
		t.Errorf("tool failure not reported to the collaborator: %q", toolMsg)
	}
}

func TestSession_TerminationSkipsDispatch(t *testing.T) {
	dialogue := &stubDialogue{replies: []*capability.Reply{{Text: "opening summary"}}}
	s := testSessionService(dialogue)
	sess := openTestSession(t, s)
	callsAfterOpen := dialogue.calls

	status, err := s.Turn(context.Background(), sess, "BEENDEN")
	if err != nil {
		t.Fatalf("Turn: %v", err)
	}
	if status != review.StatusTerminated {
		t.Fatalf("status = %q, want terminated", status)
	}
	if dialogue.calls != callsAfterOpen {
		t.Errorf("dialogue invoked %d times after termination, want 0", dialogue.calls-callsAfterOpen)
	}
}

func TestSession_ToolRoundLimit(t *testing.T) {
	// A collaborator that only ever asks for more lookups must not spin.
	dialogue := &stubDialogue{replies: []*capability.Reply{{
		ToolCalls: []review.ToolCall{
			{ID: "c", Name: ToolUserProfile, Arguments: map[string]string{"account_id": "DE55500105173984217489"}},
		},
	}}}
	tools := NewToolsService(testLookup(), nil, 0, nil)
	s := NewSessionService(dialogue, tools, nil, nil, nil)

	tx := testTransaction(false)
	ml, rule := parsedAssessments(t, mlJSON(0.95, 0.8), ruleJSON(true))
	_, err := s.Open(context.Background(), "s1", tx, ml, rule, "looks off")
	if err == nil {
		t.Fatal("expected tool round limit error")
	}
	if !strings.Contains(err.Error(), "tool rounds") {
		t.Errorf("error = %v, want tool round limit", err)
	}
}

func parsedAssessments(t *testing.T, mlRaw, ruleRaw []byte) (*assessment.MLAssessment, *assessment.RuleAssessment) {
	t.Helper()
	gw := NewGatewayService(
		&stubScorer{name: "ml", raw: mlRaw},
		&stubScorer{name: "rule", raw: ruleRaw},
		time.Second, nil)
	m, r, err := gw.Assess(context.Background(), testTransaction(false))
	if err != nil {
		t.Fatalf("parse assessments: %v", err)
	}
	return m, r
}
