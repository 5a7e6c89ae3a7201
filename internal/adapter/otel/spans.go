package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "dictum"

// StartStageReviewSpan starts a span for one stage review of a project.
func StartStageReviewSpan(ctx context.Context, projectID, stage, agentID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "stage.review",
		trace.WithAttributes(
			attribute.String("project.id", projectID),
			attribute.String("stage.name", stage),
			attribute.String("agent.id", agentID),
		),
	)
}

// StartCollaboratorSpan starts a span for an external agent invocation.
func StartCollaboratorSpan(ctx context.Context, agentID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "collaborator.invoke",
		trace.WithAttributes(
			attribute.String("agent.id", agentID),
		),
	)
}

// StartDefenseCompileSpan starts a span for defense file compilation.
func StartDefenseCompileSpan(ctx context.Context, projectID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "defense.compile",
		trace.WithAttributes(
			attribute.String("project.id", projectID),
		),
	)
}
