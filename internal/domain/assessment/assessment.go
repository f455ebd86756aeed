// Package assessment defines the scoring results produced by the ML and
// rule-engine collaborators, together with their schema validation.
package assessment

import "fmt"

// MLAssessment is the statistical fraud score for a transaction.
type MLAssessment struct {
	Probability  float64        `json:"probability"`
	Threshold    float64        `json:"threshold"`
	IsFraud      bool           `json:"is_fraud"`
	Features     map[string]any `json:"features"`
	ModelVersion string         `json:"model_version"`
}

// Validate enforces the MLAssessment schema: probability and threshold in
// [0,1] and is_fraud consistent with probability >= threshold. A mismatch is
// a data-quality error on the collaborator side and must never be trusted.
func (a *MLAssessment) Validate() error {
	if a.Probability < 0 || a.Probability > 1 {
		return fmt.Errorf("probability %v out of range [0,1]", a.Probability)
	}
	if a.Threshold < 0 || a.Threshold > 1 {
		return fmt.Errorf("threshold %v out of range [0,1]", a.Threshold)
	}
	if want := a.Probability >= a.Threshold; a.IsFraud != want {
		return fmt.Errorf("is_fraud=%v inconsistent with probability %v and threshold %v",
			a.IsFraud, a.Probability, a.Threshold)
	}
	return nil
}

// RuleAssessment is the rule-engine verdict for a transaction.
type RuleAssessment struct {
	IsFlagged      bool     `json:"is_flagged"`
	RulesTriggered []string `json:"rules_triggered"`
	Version        string   `json:"version"`
}

// Validate enforces the RuleAssessment schema. A flagged assessment must
// name at least one triggered rule.
func (a *RuleAssessment) Validate() error {
	if a.IsFlagged && len(a.RulesTriggered) == 0 {
		return fmt.Errorf("is_flagged=true with no rules_triggered")
	}
	return nil
}

// Suspicious reports whether either assessment indicates suspicion.
func Suspicious(ml *MLAssessment, rule *RuleAssessment) bool {
	return ml.IsFraud || rule.IsFlagged
}
