package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "fraudgate"

// Metrics holds all fraudgate metric instruments.
type Metrics struct {
	TransactionsProcessed metric.Int64Counter
	WorkflowsFailed       metric.Int64Counter
	AssessmentsFailed     metric.Int64Counter
	ToolCalls             metric.Int64Counter
	SessionTurns          metric.Int64Counter
	Decisions             metric.Int64Counter
	AssessmentDuration    metric.Float64Histogram
	WorkflowDuration      metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.TransactionsProcessed, err = meter.Int64Counter("fraudgate.transactions.processed",
		metric.WithDescription("Number of transactions submitted to the workflow"))
	if err != nil {
		return nil, err
	}

	m.WorkflowsFailed, err = meter.Int64Counter("fraudgate.workflows.failed",
		metric.WithDescription("Number of workflow runs that ended in a fatal error"))
	if err != nil {
		return nil, err
	}

	m.AssessmentsFailed, err = meter.Int64Counter("fraudgate.assessments.failed",
		metric.WithDescription("Number of scorer calls that failed validation or timed out"))
	if err != nil {
		return nil, err
	}

	m.ToolCalls, err = meter.Int64Counter("fraudgate.toolcalls",
		metric.WithDescription("Number of review tool invocations"))
	if err != nil {
		return nil, err
	}

	m.SessionTurns, err = meter.Int64Counter("fraudgate.session.turns",
		metric.WithDescription("Number of reviewer turns across interactive sessions"))
	if err != nil {
		return nil, err
	}

	m.Decisions, err = meter.Int64Counter("fraudgate.decisions",
		metric.WithDescription("Number of recorded final decisions"))
	if err != nil {
		return nil, err
	}

	m.AssessmentDuration, err = meter.Float64Histogram("fraudgate.assessment.duration_seconds",
		metric.WithDescription("Combined scorer fan-out duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.WorkflowDuration, err = meter.Float64Histogram("fraudgate.workflow.duration_seconds",
		metric.WithDescription("End-to-end workflow duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
