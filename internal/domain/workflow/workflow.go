// Package workflow defines the process-level result record and the error
// taxonomy shared by every pipeline stage.
package workflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/fraudgate/fraudgate/internal/domain/assessment"
	"github.com/fraudgate/fraudgate/internal/domain/decision"
	"github.com/fraudgate/fraudgate/internal/domain/routing"
	"github.com/fraudgate/fraudgate/internal/domain/transaction"
)

// FinalDecision is the terminal outcome of a workflow run.
type FinalDecision string

const (
	FinalApproved   FinalDecision = "approved"
	FinalDeclined   FinalDecision = "declined"
	FinalTerminated FinalDecision = "terminated"
	FinalUndecided  FinalDecision = "undecided"
)

// ProcessResult aggregates everything a workflow run produced. Fatal errors
// are carried inside the record (ErrorKind/Error set, ProcessComplete=false)
// so callers can always inspect the outcome without a recover path.
type ProcessResult struct {
	ID              string                     `json:"id"`
	Transaction     *transaction.Transaction   `json:"transaction"`
	MLAssessment    *assessment.MLAssessment   `json:"ml_assessment,omitempty"`
	RuleAssessment  *assessment.RuleAssessment `json:"rule_assessment,omitempty"`
	Verdict         routing.Verdict            `json:"verdict,omitempty"`
	Decision        *decision.Decision         `json:"decision,omitempty"`
	Explanation     string                     `json:"explanation,omitempty"`
	SessionID       string                     `json:"session_id,omitempty"`
	FinalDecision   FinalDecision              `json:"final_decision,omitempty"`
	ProcessComplete bool                       `json:"process_complete"`
	ErrorKind       Kind                       `json:"error_kind,omitempty"`
	Error           string                     `json:"error,omitempty"`
	CreatedAt       time.Time                  `json:"created_at"`
}

// Kind classifies pipeline failures.
type Kind string

const (
	KindAssessmentSchema       Kind = "assessment_schema"
	KindAssessmentTimeout      Kind = "assessment_timeout"
	KindDecisionParse          Kind = "decision_parse"
	KindExplanationUnavailable Kind = "explanation_unavailable"
	KindUnknownTool            Kind = "unknown_tool"
	KindInvalidArguments       Kind = "invalid_arguments"
	KindSessionAborted         Kind = "session_aborted"
)

// Fault is an error tagged with a taxonomy kind and the collaborator or tool
// that produced it.
type Fault struct {
	Kind   Kind
	Source string // offending collaborator or tool name
	Err    error
}

func (f *Fault) Error() string {
	if f.Source != "" {
		return fmt.Sprintf("%s (%s): %v", f.Kind, f.Source, f.Err)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// NewFault wraps err with a kind and source.
func NewFault(kind Kind, source string, err error) *Fault {
	return &Fault{Kind: kind, Source: source, Err: err}
}

// KindOf extracts the taxonomy kind from an error chain; empty if untagged.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// FailedResult builds the ProcessResult-shaped error record for a fatal
// workflow failure.
func FailedResult(id string, tx *transaction.Transaction, err error) *ProcessResult {
	return &ProcessResult{
		ID:              id,
		Transaction:     tx,
		ProcessComplete: false,
		ErrorKind:       KindOf(err),
		Error:           err.Error(),
		CreatedAt:       time.Now(),
	}
}
