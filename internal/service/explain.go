package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fraudgate/fraudgate/internal/domain/assessment"
	"github.com/fraudgate/fraudgate/internal/domain/transaction"
	"github.com/fraudgate/fraudgate/internal/domain/workflow"
	"github.com/fraudgate/fraudgate/internal/port/capability"
)

// ExplanationPlaceholder stands in for the explanation when the collaborator
// fails. The review session proceeds on the assessments alone.
const ExplanationPlaceholder = "No explanation available for this case. Review the assessments directly."

// ExplanationService invokes the explanation collaborator. Any non-empty text
// is accepted; explanations are unstructured by design.
type ExplanationService struct {
	explainer capability.Explainer
	timeout   time.Duration
}

// NewExplanationService creates an ExplanationService with a bounded call timeout.
func NewExplanationService(explainer capability.Explainer, timeout time.Duration) *ExplanationService {
	return &ExplanationService{explainer: explainer, timeout: timeout}
}

// Explain returns the collaborator's free-form text. An empty or failed
// response is a tagged fault the caller recovers from with
// ExplanationPlaceholder rather than aborting the workflow.
func (s *ExplanationService) Explain(ctx context.Context, tx *transaction.Transaction, ml *assessment.MLAssessment, rule *assessment.RuleAssessment) (string, error) {
	req, err := decideRequest(tx, ml, rule)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.explainer.Explain(ctx, req)
	if err != nil {
		return "", workflow.NewFault(workflow.KindExplanationUnavailable, s.explainer.Name(), err)
	}
	if strings.TrimSpace(text) == "" {
		return "", workflow.NewFault(workflow.KindExplanationUnavailable, s.explainer.Name(),
			fmt.Errorf("collaborator returned empty explanation"))
	}
	return text, nil
}
