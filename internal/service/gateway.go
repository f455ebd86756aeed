package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fraudgate/fraudgate/internal/adapter/otel"
	"github.com/fraudgate/fraudgate/internal/domain/assessment"
	"github.com/fraudgate/fraudgate/internal/domain/transaction"
	"github.com/fraudgate/fraudgate/internal/domain/workflow"
	"github.com/fraudgate/fraudgate/internal/port/capability"
)

// GatewayService fans a transaction out to the ML and rule scorers, validates
// both responses against their schemas and joins the results. Both calls must
// succeed before anything is forwarded downstream; a failure on either side
// fails the whole assessment.
type GatewayService struct {
	ml      capability.Scorer
	rule    capability.Scorer
	timeout time.Duration
	metrics *otel.Metrics
}

// NewGatewayService creates a GatewayService. timeout bounds each scorer call
// individually.
func NewGatewayService(ml, rule capability.Scorer, timeout time.Duration, metrics *otel.Metrics) *GatewayService {
	return &GatewayService{ml: ml, rule: rule, timeout: timeout, metrics: metrics}
}

// Assess calls both scorers concurrently and returns the validated pair.
// Schema violations carry the offending collaborator's name; a deadline hit
// is reported as an assessment timeout. No retries happen here.
func (s *GatewayService) Assess(ctx context.Context, tx *transaction.Transaction) (*assessment.MLAssessment, *assessment.RuleAssessment, error) {
	ctx, span := otel.StartAssessmentSpan(ctx, tx.ID)
	defer span.End()

	start := time.Now()
	var (
		ml   assessment.MLAssessment
		rule assessment.RuleAssessment
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		raw, err := s.score(gctx, s.ml, tx)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &ml); err != nil {
			return workflow.NewFault(workflow.KindAssessmentSchema, s.ml.Name(),
				fmt.Errorf("decode ml assessment: %w", err))
		}
		if err := ml.Validate(); err != nil {
			return workflow.NewFault(workflow.KindAssessmentSchema, s.ml.Name(), err)
		}
		return nil
	})
	g.Go(func() error {
		raw, err := s.score(gctx, s.rule, tx)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &rule); err != nil {
			return workflow.NewFault(workflow.KindAssessmentSchema, s.rule.Name(),
				fmt.Errorf("decode rule assessment: %w", err))
		}
		if err := rule.Validate(); err != nil {
			return workflow.NewFault(workflow.KindAssessmentSchema, s.rule.Name(), err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		if s.metrics != nil {
			s.metrics.AssessmentsFailed.Add(ctx, 1)
		}
		slog.Error("assessment failed", "transaction_id", tx.ID, "error", err)
		return nil, nil, err
	}

	if s.metrics != nil {
		s.metrics.AssessmentDuration.Record(ctx, time.Since(start).Seconds())
	}
	return &ml, &rule, nil
}

// score runs one bounded scorer call.
func (s *GatewayService) score(ctx context.Context, scorer capability.Scorer, tx *transaction.Transaction) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := scorer.Score(ctx, capability.ScoreRequest{Transaction: tx})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, workflow.NewFault(workflow.KindAssessmentTimeout, scorer.Name(),
				fmt.Errorf("scorer call exceeded %s", s.timeout))
		}
		return nil, fmt.Errorf("scorer %s: %w", scorer.Name(), err)
	}
	return raw, nil
}
