package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fraudgate/fraudgate/internal/domain/assessment"
	"github.com/fraudgate/fraudgate/internal/domain/decision"
	"github.com/fraudgate/fraudgate/internal/domain/transaction"
	"github.com/fraudgate/fraudgate/internal/domain/workflow"
	"github.com/fraudgate/fraudgate/internal/port/capability"
)

// DecisionService invokes the decision collaborator for suspicious realtime
// transfers and parses its structured verdict. An unparseable verdict is
// surfaced as a fault, never interpreted as an approval.
type DecisionService struct {
	decider capability.DecisionMaker
	timeout time.Duration
}

// NewDecisionService creates a DecisionService with a bounded call timeout.
func NewDecisionService(decider capability.DecisionMaker, timeout time.Duration) *DecisionService {
	return &DecisionService{decider: decider, timeout: timeout}
}

// Decide calls the collaborator with the assessed transaction and returns the
// validated Decision.
func (s *DecisionService) Decide(ctx context.Context, tx *transaction.Transaction, ml *assessment.MLAssessment, rule *assessment.RuleAssessment) (*decision.Decision, error) {
	req, err := decideRequest(tx, ml, rule)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.decider.Decide(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("decision collaborator %s: %w", s.decider.Name(), err)
	}

	d, err := decision.Parse(raw)
	if err != nil {
		if errors.Is(err, decision.ErrParse) {
			return nil, workflow.NewFault(workflow.KindDecisionParse, s.decider.Name(), err)
		}
		return nil, err
	}
	return d, nil
}

// decideRequest re-serializes the validated assessments for the collaborator.
func decideRequest(tx *transaction.Transaction, ml *assessment.MLAssessment, rule *assessment.RuleAssessment) (capability.DecideRequest, error) {
	mlRaw, err := json.Marshal(ml)
	if err != nil {
		return capability.DecideRequest{}, fmt.Errorf("encode ml assessment: %w", err)
	}
	ruleRaw, err := json.Marshal(rule)
	if err != nil {
		return capability.DecideRequest{}, fmt.Errorf("encode rule assessment: %w", err)
	}
	return capability.DecideRequest{
		Transaction:    tx,
		MLAssessment:   mlRaw,
		RuleAssessment: ruleRaw,
	}, nil
}
