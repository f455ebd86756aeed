package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fraudgate/fraudgate/internal/adapter/otel"
	"github.com/fraudgate/fraudgate/internal/domain/event"
	"github.com/fraudgate/fraudgate/internal/domain/review"
	"github.com/fraudgate/fraudgate/internal/domain/routing"
	"github.com/fraudgate/fraudgate/internal/domain/transaction"
	"github.com/fraudgate/fraudgate/internal/domain/workflow"
	"github.com/fraudgate/fraudgate/internal/port/eventbus"
	"github.com/fraudgate/fraudgate/internal/port/resultstore"
)

// ReviewerInput supplies reviewer messages to a session loop. Next blocks
// until the next message is available; io.EOF ends the review.
type ReviewerInput interface {
	Next(ctx context.Context) (string, error)
}

// Orchestrator sequences assessment, routing and the downstream stages into
// the two public workflows. Fatal errors never escape it: they come back as
// a ProcessResult carrying the error kind and message, so callers always get
// an inspectable record.
type Orchestrator struct {
	gateway   *GatewayService
	decider   *DecisionService
	explainer *ExplanationService
	sessions  *SessionService
	store     resultstore.Store
	bus       eventbus.Bus
	metrics   *otel.Metrics

	// scripted is the reviewer side of the non-interactive session variant
	// driven by ProcessTransaction.
	scripted []string
}

// NewOrchestrator wires the orchestrator. store, bus and metrics may be nil
// in tests.
func NewOrchestrator(gateway *GatewayService, decider *DecisionService, explainer *ExplanationService, sessions *SessionService, store resultstore.Store, bus eventbus.Bus, metrics *otel.Metrics) *Orchestrator {
	return &Orchestrator{
		gateway:   gateway,
		decider:   decider,
		explainer: explainer,
		sessions:  sessions,
		store:     store,
		bus:       bus,
		metrics:   metrics,
	}
}

// SetScriptedReview replaces the scripted reviewer exchange used by the
// automated workflow's session variant. An empty script leaves the session
// undecided.
func (o *Orchestrator) SetScriptedReview(messages []string) {
	o.scripted = messages
}

// ProcessTransaction runs the automated workflow: assessment, routing, then
// either a short-circuit approval, the auto-decision stage, or explanation
// followed by a scripted review exchange.
func (o *Orchestrator) ProcessTransaction(ctx context.Context, tx *transaction.Transaction) *workflow.ProcessResult {
	resultID := uuid.NewString()
	ctx, span := otel.StartWorkflowSpan(ctx, resultID, tx.ID)
	defer span.End()

	start := time.Now()
	if o.metrics != nil {
		o.metrics.TransactionsProcessed.Add(ctx, 1)
	}

	if err := tx.Validate(); err != nil {
		return o.fail(ctx, resultID, tx, fmt.Errorf("invalid transaction: %w", err))
	}

	ml, rule, err := o.gateway.Assess(ctx, tx)
	if err != nil {
		return o.fail(ctx, resultID, tx, err)
	}

	res := &workflow.ProcessResult{
		ID:             resultID,
		Transaction:    tx,
		MLAssessment:   ml,
		RuleAssessment: rule,
		Verdict:        routing.Route(tx, ml, rule),
		CreatedAt:      time.Now(),
	}

	switch res.Verdict {
	case routing.VerdictApprove:
		res.FinalDecision = workflow.FinalApproved
		res.ProcessComplete = true

	case routing.VerdictAutoDecide:
		d, err := o.decider.Decide(ctx, tx, ml, rule)
		if err != nil {
			return o.fail(ctx, resultID, tx, err)
		}
		res.Decision = d
		res.FinalDecision = workflow.FinalDecision(d.Outcome)
		res.ProcessComplete = true

	case routing.VerdictExplain:
		explanation, err := o.explainer.Explain(ctx, tx, ml, rule)
		if err != nil {
			// Non-fatal: the review proceeds on the assessments alone.
			slog.Warn("explanation unavailable", "transaction_id", tx.ID, "error", err)
			res.ErrorKind = workflow.KindOf(err)
			res.Error = err.Error()
			explanation = ExplanationPlaceholder
		}
		res.Explanation = explanation

		sess, err := o.sessions.Open(ctx, uuid.NewString(), tx, ml, rule, explanation)
		if err != nil {
			return o.fail(ctx, resultID, tx, err)
		}
		res.SessionID = sess.ID

		for _, msg := range o.scripted {
			if sess.Closed() {
				break
			}
			if _, err := o.sessions.Turn(ctx, sess, msg); err != nil {
				return o.fail(ctx, resultID, tx, err)
			}
		}
		applySessionOutcome(res, sess)
	}

	o.record(ctx, res)
	if o.metrics != nil {
		o.metrics.WorkflowDuration.Record(ctx, time.Since(start).Seconds())
	}
	return res
}

// OpenReview starts the manual-review workflow: assessment and explanation
// run unconditionally, routing is bypassed. The returned draft result is
// persisted as incomplete until the session closes.
func (o *Orchestrator) OpenReview(ctx context.Context, tx *transaction.Transaction) (*workflow.ProcessResult, *review.Session, error) {
	if err := tx.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid transaction: %w", err)
	}

	resultID := uuid.NewString()
	ctx, span := otel.StartWorkflowSpan(ctx, resultID, tx.ID)
	defer span.End()

	if o.metrics != nil {
		o.metrics.TransactionsProcessed.Add(ctx, 1)
	}

	ml, rule, err := o.gateway.Assess(ctx, tx)
	if err != nil {
		res := o.fail(ctx, resultID, tx, err)
		return res, nil, err
	}

	res := &workflow.ProcessResult{
		ID:             resultID,
		Transaction:    tx,
		MLAssessment:   ml,
		RuleAssessment: rule,
		FinalDecision:  workflow.FinalUndecided,
		CreatedAt:      time.Now(),
	}

	explanation, err := o.explainer.Explain(ctx, tx, ml, rule)
	if err != nil {
		slog.Warn("explanation unavailable", "transaction_id", tx.ID, "error", err)
		res.ErrorKind = workflow.KindOf(err)
		res.Error = err.Error()
		explanation = ExplanationPlaceholder
	}
	res.Explanation = explanation

	sess, err := o.sessions.Open(ctx, uuid.NewString(), tx, ml, rule, explanation)
	if err != nil {
		res := o.fail(ctx, resultID, tx, err)
		return res, nil, err
	}
	res.SessionID = sess.ID

	if o.store != nil {
		if err := o.store.SaveResult(ctx, res); err != nil {
			slog.Error("draft result save failed", "result_id", res.ID, "error", err)
		}
	}
	return res, sess, nil
}

// ReviewTurn applies one reviewer message to a stored session and, when the
// session closes, finalizes and records its result.
func (o *Orchestrator) ReviewTurn(ctx context.Context, resultID, message string) (*workflow.ProcessResult, *review.Session, error) {
	if o.store == nil {
		return nil, nil, errors.New("no result store configured")
	}
	res, err := o.store.GetResult(ctx, resultID)
	if err != nil {
		return nil, nil, err
	}
	if res.SessionID == "" {
		return nil, nil, fmt.Errorf("result %s has no review session", resultID)
	}
	sess, err := o.store.GetSession(ctx, res.SessionID)
	if err != nil {
		return nil, nil, err
	}

	if _, err := o.sessions.Turn(ctx, sess, message); err != nil {
		return res, sess, err
	}

	if sess.Closed() {
		applySessionOutcome(res, sess)
		o.record(ctx, res)
	} else if err := o.store.SaveResult(ctx, res); err != nil {
		slog.Error("draft result save failed", "result_id", res.ID, "error", err)
	}
	return res, sess, nil
}

// InteractiveReview drives a full manual review to completion, reading
// reviewer messages from input. This backs the terminal review client.
func (o *Orchestrator) InteractiveReview(ctx context.Context, tx *transaction.Transaction, input ReviewerInput) (*workflow.ProcessResult, error) {
	res, sess, err := o.OpenReview(ctx, tx)
	if err != nil {
		return res, err
	}

	for !sess.Closed() {
		msg, err := input.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("reviewer input: %w", err)
		}
		if _, err := o.sessions.Turn(ctx, sess, msg); err != nil {
			return res, err
		}
	}

	applySessionOutcome(res, sess)
	o.record(ctx, res)
	return res, nil
}

// applySessionOutcome maps a session's terminal status onto the result. A
// terminated session never carries a verdict; the abort is recorded on the
// result instead of raised.
func applySessionOutcome(res *workflow.ProcessResult, sess *review.Session) {
	switch sess.Status {
	case review.StatusApproved:
		res.FinalDecision = workflow.FinalApproved
		res.ProcessComplete = true
	case review.StatusDeclined:
		res.FinalDecision = workflow.FinalDeclined
		res.ProcessComplete = true
	case review.StatusTerminated:
		res.FinalDecision = workflow.FinalTerminated
		res.ProcessComplete = false
		res.ErrorKind = workflow.KindSessionAborted
		res.Error = "session terminated without a verdict"
	default:
		res.FinalDecision = workflow.FinalUndecided
		res.ProcessComplete = false
	}
}

// fail builds, records and returns the error-shaped result for a fatal
// workflow failure.
func (o *Orchestrator) fail(ctx context.Context, resultID string, tx *transaction.Transaction, err error) *workflow.ProcessResult {
	slog.Error("workflow failed", "result_id", resultID, "transaction_id", tx.ID, "error", err)
	if o.metrics != nil {
		o.metrics.WorkflowsFailed.Add(ctx, 1)
	}
	res := workflow.FailedResult(resultID, tx, err)
	o.record(ctx, res)
	return res
}

// record persists the result and publishes the decision event. Neither step
// may fail the workflow at this point; trouble is logged and the result is
// still returned to the caller.
func (o *Orchestrator) record(ctx context.Context, res *workflow.ProcessResult) {
	if o.metrics != nil && res.FinalDecision != "" {
		o.metrics.Decisions.Add(ctx, 1)
	}

	if o.store != nil {
		if err := o.store.SaveResult(ctx, res); err != nil {
			slog.Error("result save failed", "result_id", res.ID, "error", err)
		}
	}

	if o.bus == nil {
		return
	}
	ev := event.DecisionRecorded{
		EventID:       uuid.NewString(),
		ResultID:      res.ID,
		TransactionID: res.Transaction.ID,
		Final:         string(res.FinalDecision),
		Verdict:       string(res.Verdict),
		SessionID:     res.SessionID,
		At:            time.Now(),
	}
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("decision event encode failed", "result_id", res.ID, "error", err)
		return
	}
	if err := o.bus.Publish(ctx, event.SubjectFor(ev.Final), data); err != nil {
		slog.Error("decision event publish failed", "result_id", res.ID, "error", err)
	}
}
