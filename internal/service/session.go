package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fraudgate/fraudgate/internal/adapter/otel"
	"github.com/fraudgate/fraudgate/internal/domain/assessment"
	"github.com/fraudgate/fraudgate/internal/domain/review"
	"github.com/fraudgate/fraudgate/internal/domain/transaction"
	"github.com/fraudgate/fraudgate/internal/port/broadcast"
	"github.com/fraudgate/fraudgate/internal/port/capability"
	"github.com/fraudgate/fraudgate/internal/port/resultstore"
)

// maxToolRounds caps consecutive tool batches within one turn so a
// collaborator that keeps requesting lookups cannot spin the session forever.
const maxToolRounds = 8

// Broadcast event types pushed to connected review-desk clients.
const (
	EventSessionOpened  = "session.opened"
	EventSessionMessage = "session.message"
	EventSessionClosed  = "session.closed"
)

// SessionService drives interactive review sessions: it owns each session
// value for the duration of a call, runs the dialogue collaborator's side of
// the turn and dispatches its tool batches. No two turns of one session run
// concurrently; the caller serializes them.
type SessionService struct {
	dialogue capability.Dialogue
	tools    *ToolsService
	store    resultstore.Store
	hub      broadcast.Broadcaster
	metrics  *otel.Metrics
}

// NewSessionService creates a SessionService. hub may be nil when no live
// clients are attached (CLI review).
func NewSessionService(dialogue capability.Dialogue, tools *ToolsService, store resultstore.Store, hub broadcast.Broadcaster, metrics *otel.Metrics) *SessionService {
	return &SessionService{dialogue: dialogue, tools: tools, store: store, hub: hub, metrics: metrics}
}

// Open creates a session seeded with the case framing and runs the opening
// collaborator turn so the reviewer sees a summary before typing anything.
func (s *SessionService) Open(ctx context.Context, id string, tx *transaction.Transaction, ml *assessment.MLAssessment, rule *assessment.RuleAssessment, explanation string) (*review.Session, error) {
	framing, err := framingMessage(tx, ml, rule, explanation)
	if err != nil {
		return nil, err
	}

	sess := review.NewSession(id, framing)
	s.broadcast(ctx, EventSessionOpened, sess)

	if err := s.agentTurn(ctx, sess); err != nil {
		return nil, err
	}
	s.persist(ctx, sess)
	return sess, nil
}

// Turn applies one reviewer message. Verdict and termination detection run
// before any collaborator or tool dispatch: a terminated session issues no
// further calls. The returned status is the session status after the full
// exchange.
func (s *SessionService) Turn(ctx context.Context, sess *review.Session, message string) (review.Status, error) {
	ctx, span := otel.StartSessionTurnSpan(ctx, sess.ID)
	defer span.End()

	if s.metrics != nil {
		s.metrics.SessionTurns.Add(ctx, 1)
	}

	status, err := sess.AppendReviewer(message)
	if err != nil {
		return status, err
	}
	s.broadcast(ctx, EventSessionMessage, sess.Transcript[len(sess.Transcript)-1])

	if sess.Closed() {
		s.broadcast(ctx, EventSessionClosed, sess)
		s.persist(ctx, sess)
		return sess.Status, nil
	}

	if err := s.agentTurn(ctx, sess); err != nil {
		return sess.Status, err
	}
	s.persist(ctx, sess)
	return sess.Status, nil
}

// agentTurn runs the collaborator side of one turn: tool batches are
// dispatched concurrently and collected in issue order until the
// collaborator answers with free text.
func (s *SessionService) agentTurn(ctx context.Context, sess *review.Session) error {
	for round := 0; ; round++ {
		if round >= maxToolRounds {
			return fmt.Errorf("session %s: tool rounds exceeded %d", sess.ID, maxToolRounds)
		}

		reply, err := s.dialogue.Converse(ctx, sess.Transcript, s.tools.Descriptors())
		if err != nil {
			return fmt.Errorf("dialogue collaborator %s: %w", s.dialogue.Name(), err)
		}

		if len(reply.ToolCalls) == 0 {
			if err := sess.AppendAgent(reply.Text); err != nil {
				return err
			}
			s.broadcast(ctx, EventSessionMessage, sess.Transcript[len(sess.Transcript)-1])
			return nil
		}

		// Narration preceding a lookup belongs in the transcript too.
		if reply.Text != "" {
			if err := sess.AppendAgent(reply.Text); err != nil {
				return err
			}
			s.broadcast(ctx, EventSessionMessage, sess.Transcript[len(sess.Transcript)-1])
		}

		if err := s.runToolBatch(ctx, sess, reply.ToolCalls); err != nil {
			return err
		}
	}
}

// runToolBatch dispatches one batch concurrently. The session appends the
// results in call-issue order once the last one lands, regardless of
// completion order.
func (s *SessionService) runToolBatch(ctx context.Context, sess *review.Session, calls []review.ToolCall) error {
	if err := sess.BeginToolCalls(calls); err != nil {
		return err
	}

	results := make([]review.ToolResult, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.tools.Execute(ctx, call)
		}()
	}
	wg.Wait()

	for _, res := range results {
		if err := sess.CompleteToolCall(res); err != nil {
			return err
		}
		s.broadcast(ctx, EventSessionMessage, res)
	}
	return nil
}

// persist snapshots the session; storage trouble must not lose a live review.
func (s *SessionService) persist(ctx context.Context, sess *review.Session) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveSession(ctx, sess); err != nil {
		slog.Error("session snapshot failed", "session_id", sess.ID, "error", err)
	}
}

func (s *SessionService) broadcast(ctx context.Context, eventType string, payload any) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastEvent(ctx, eventType, payload)
}

// framingMessage renders the system message that seeds every session: the
// transaction, both assessments and the explanation.
func framingMessage(tx *transaction.Transaction, ml *assessment.MLAssessment, rule *assessment.RuleAssessment, explanation string) (string, error) {
	doc := struct {
		Transaction    *transaction.Transaction   `json:"transaction"`
		MLAssessment   *assessment.MLAssessment   `json:"ml_assessment"`
		RuleAssessment *assessment.RuleAssessment `json:"rule_assessment"`
		Explanation    string                     `json:"explanation"`
	}{tx, ml, rule, explanation}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode session framing: %w", err)
	}
	return "Case under review:\n" + string(data), nil
}
