package workflow

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	base := errors.New("connection reset")

	fault := NewFault(KindAssessmentTimeout, "ml_scorer", base)
	if got := KindOf(fault); got != KindAssessmentTimeout {
		t.Errorf("KindOf(fault) = %q, want %q", got, KindAssessmentTimeout)
	}

	wrapped := fmt.Errorf("assess: %w", fault)
	if got := KindOf(wrapped); got != KindAssessmentTimeout {
		t.Errorf("KindOf(wrapped) = %q, want %q", got, KindAssessmentTimeout)
	}

	if got := KindOf(base); got != "" {
		t.Errorf("KindOf(untagged) = %q, want empty", got)
	}

	if !errors.Is(wrapped, base) {
		t.Error("fault should unwrap to the underlying error")
	}
}

func TestFaultError(t *testing.T) {
	fault := NewFault(KindAssessmentSchema, "rule_scorer", errors.New("flagged with no rules"))
	got := fault.Error()
	want := "assessment_schema (rule_scorer): flagged with no rules"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	anon := NewFault(KindSessionAborted, "", errors.New("terminated"))
	if got := anon.Error(); got != "session_aborted: terminated" {
		t.Errorf("Error() = %q", got)
	}
}

func TestFailedResult(t *testing.T) {
	err := NewFault(KindDecisionParse, "decision_maker", errors.New("not json"))
	res := FailedResult("r1", nil, err)

	if res.ProcessComplete {
		t.Error("failed result must not be complete")
	}
	if res.ErrorKind != KindDecisionParse {
		t.Errorf("ErrorKind = %q, want %q", res.ErrorKind, KindDecisionParse)
	}
	if res.FinalDecision != "" {
		t.Errorf("FinalDecision = %q, want empty", res.FinalDecision)
	}
}
