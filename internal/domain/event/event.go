// Package event defines the payloads published to downstream consumers.
package event

import "time"

// Decision event subjects. The terminal status of a run picks the subject.
const (
	SubjectDecisionApproved   = "reviews.decision.approved"
	SubjectDecisionDeclined   = "reviews.decision.declined"
	SubjectDecisionTerminated = "reviews.decision.terminated"
	SubjectDecisionUndecided  = "reviews.decision.undecided"
)

// DecisionRecorded is published once per completed workflow run so core
// banking and case management can react to the outcome.
type DecisionRecorded struct {
	EventID       string    `json:"event_id"`
	ResultID      string    `json:"result_id"`
	TransactionID string    `json:"transaction_id"`
	Final         string    `json:"final_decision"`
	Verdict       string    `json:"verdict,omitempty"`
	SessionID     string    `json:"session_id,omitempty"`
	At            time.Time `json:"at"`
}

// SubjectFor maps a final decision to its publish subject.
func SubjectFor(final string) string {
	switch final {
	case "approved":
		return SubjectDecisionApproved
	case "declined":
		return SubjectDecisionDeclined
	case "terminated":
		return SubjectDecisionTerminated
	default:
		return SubjectDecisionUndecided
	}
}
