// Package review implements the turn-based interactive review session.
//
// A session is an explicit value owned by the single caller driving its loop.
// Each mutating operation checks the current status first; no operation is
// valid on a closed session.
package review

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status enumerates the session states.
type Status string

const (
	StatusOpen       Status = "open"
	StatusAwaiting   Status = "awaiting_tool_result"
	StatusApproved   Status = "approved"
	StatusDeclined   Status = "declined"
	StatusTerminated Status = "terminated"
)

// Speaker identifies who authored a transcript message.
type Speaker string

const (
	SpeakerSystem   Speaker = "system"
	SpeakerReviewer Speaker = "reviewer"
	SpeakerAgent    Speaker = "agent"
	SpeakerTool     Speaker = "tool"
)

// Message is one transcript entry.
type Message struct {
	Speaker Speaker   `json:"speaker"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// ToolCall is a data-lookup request emitted by the dialogue collaborator.
type ToolCall struct {
	ID        string            `json:"id"`
	Name      string            `json:"tool_name"`
	Arguments map[string]string `json:"arguments"`
}

// ToolResult is the serialized payload a tool returns to the session.
type ToolResult struct {
	CallID  string `json:"call_id"`
	Name    string `json:"tool_name"`
	Payload string `json:"payload"`
	IsError bool   `json:"is_error,omitempty"`
}

// Control keywords, scanned case-insensitively as substrings of the latest
// reviewer message. German tokens first: the review desk this system was
// built for works in German, the English tokens are accepted synonyms.
var (
	approveKeywords   = []string{"GENEHMIGEN", "APPROVE"}
	declineKeywords   = []string{"ABLEHNEN", "DECLINE"}
	terminateKeywords = []string{"BEENDEN", "TERMINATE", "EXIT"}
)

var (
	// ErrClosed is returned by mutating operations on a closed session.
	ErrClosed = errors.New("review session is closed")
	// ErrNotAwaiting is returned when a tool result arrives without a
	// matching pending call.
	ErrNotAwaiting = errors.New("no pending tool call for result")
)

// Session is the mutable state of one interactive review.
type Session struct {
	ID         string     `json:"id"`
	Transcript []Message  `json:"transcript"`
	Pending    []ToolCall `json:"pending_tool_calls,omitempty"`
	Status     Status     `json:"status"`

	// results collected for the current tool batch, indexed by issue order
	// so the transcript stays deterministic regardless of completion order.
	batch []*ToolResult

	now func() time.Time
}

// NewSession creates an open session seeded with the system framing message
// (transaction, both assessments, explanation).
func NewSession(id, framing string) *Session {
	s := &Session{
		ID:     id,
		Status: StatusOpen,
		now:    time.Now,
	}
	s.append(SpeakerSystem, framing)
	return s
}

// Closed reports whether the session reached a terminal status.
func (s *Session) Closed() bool {
	switch s.Status {
	case StatusApproved, StatusDeclined, StatusTerminated:
		return true
	}
	return false
}

// AppendReviewer records a reviewer-authored message and applies verdict
// detection to it. Only this latest message is scanned: earlier transcript
// entries (tool payloads, quoted text) can legitimately contain the keywords.
// Priority order resolves ambiguity inside one message: terminate wins over
// approve, approve over decline.
func (s *Session) AppendReviewer(content string) (Status, error) {
	if s.Closed() {
		return s.Status, ErrClosed
	}
	if s.Status == StatusAwaiting {
		return s.Status, fmt.Errorf("tool results outstanding: %d pending", len(s.Pending))
	}
	s.append(SpeakerReviewer, content)

	upper := strings.ToUpper(content)
	switch {
	case containsAny(upper, terminateKeywords):
		s.Status = StatusTerminated
	case containsAny(upper, approveKeywords):
		s.Status = StatusApproved
	case containsAny(upper, declineKeywords):
		s.Status = StatusDeclined
	}
	return s.Status, nil
}

// AppendAgent records a free-text reply from the dialogue collaborator.
func (s *Session) AppendAgent(content string) error {
	if s.Closed() {
		return ErrClosed
	}
	s.append(SpeakerAgent, content)
	return nil
}

// BeginToolCalls suspends the session until every call in the batch has a
// result. An empty batch is a no-op.
func (s *Session) BeginToolCalls(calls []ToolCall) error {
	if s.Closed() {
		return ErrClosed
	}
	if len(calls) == 0 {
		return nil
	}
	if s.Status == StatusAwaiting {
		return fmt.Errorf("tool batch already in flight: %d pending", len(s.Pending))
	}
	s.Pending = append([]ToolCall(nil), calls...)
	s.batch = make([]*ToolResult, len(calls))
	s.Status = StatusAwaiting
	return nil
}

// CompleteToolCall records a result for a pending call. When the last
// outstanding result arrives, all results are appended to the transcript in
// call-issue order and the session returns to open. A partial batch never
// reopens the session.
func (s *Session) CompleteToolCall(res ToolResult) error {
	if s.Status != StatusAwaiting {
		return ErrNotAwaiting
	}
	idx := -1
	for i := range s.Pending {
		if s.Pending[i].ID == res.CallID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: call %q", ErrNotAwaiting, res.CallID)
	}
	if s.batch[idx] != nil {
		return fmt.Errorf("duplicate result for call %q", res.CallID)
	}
	s.batch[idx] = &res

	for _, r := range s.batch {
		if r == nil {
			return nil // batch incomplete, stay suspended
		}
	}

	for _, r := range s.batch {
		s.append(SpeakerTool, r.Payload)
	}
	s.Pending = nil
	s.batch = nil
	s.Status = StatusOpen
	return nil
}

// LatestReviewerMessage returns the most recent reviewer-authored entry.
func (s *Session) LatestReviewerMessage() (Message, bool) {
	for i := len(s.Transcript) - 1; i >= 0; i-- {
		if s.Transcript[i].Speaker == SpeakerReviewer {
			return s.Transcript[i], true
		}
	}
	return Message{}, false
}

func (s *Session) append(sp Speaker, content string) {
	// Sessions rehydrated from storage have no clock; fall back to time.Now.
	at := time.Now()
	if s.now != nil {
		at = s.now()
	}
	s.Transcript = append(s.Transcript, Message{
		Speaker: sp,
		Content: content,
		At:      at,
	})
}

func containsAny(upper string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}
