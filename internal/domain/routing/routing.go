// Package routing decides the next pipeline stage for an assessed transaction.
//
// The decision is a pure function over three booleans. There is no
// collaborator in the loop and no free-text answer to parse, so every input
// maps to exactly one verdict by construction.
package routing

import (
	"github.com/fraudgate/fraudgate/internal/domain/assessment"
	"github.com/fraudgate/fraudgate/internal/domain/transaction"
)

// Verdict is the routing tag chosen for an assessed transaction.
type Verdict string

const (
	// VerdictApprove short-circuits the pipeline: no suspicion, approve.
	VerdictApprove Verdict = "approve_transaction"
	// VerdictAutoDecide routes a suspicious realtime transfer to the
	// auto-decision stage.
	VerdictAutoDecide Verdict = "decision_agent"
	// VerdictExplain routes a suspicious non-realtime transfer to
	// explanation and interactive review.
	VerdictExplain Verdict = "generate_explanation"
)

// Route returns the verdict for a transaction given both assessments.
func Route(tx *transaction.Transaction, ml *assessment.MLAssessment, rule *assessment.RuleAssessment) Verdict {
	if !assessment.Suspicious(ml, rule) {
		return VerdictApprove
	}
	if tx.IsRealtime {
		return VerdictAutoDecide
	}
	return VerdictExplain
}
