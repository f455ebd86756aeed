package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "fraudgate"

// StartWorkflowSpan starts a span for one transaction's workflow run.
func StartWorkflowSpan(ctx context.Context, resultID, transactionID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "workflow",
		trace.WithAttributes(
			attribute.String("result.id", resultID),
			attribute.String("transaction.id", transactionID),
		),
	)
}

// StartAssessmentSpan starts a span for the scorer fan-out.
func StartAssessmentSpan(ctx context.Context, transactionID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "assessment",
		trace.WithAttributes(
			attribute.String("transaction.id", transactionID),
		),
	)
}

// StartToolCallSpan starts a span for a review tool invocation.
func StartToolCallSpan(ctx context.Context, callID, tool string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "toolcall",
		trace.WithAttributes(
			attribute.String("toolcall.id", callID),
			attribute.String("toolcall.tool", tool),
		),
	)
}

// StartSessionTurnSpan starts a span for one reviewer turn in an
// interactive session.
func StartSessionTurnSpan(ctx context.Context, sessionID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "session.turn",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
		),
	)
}
