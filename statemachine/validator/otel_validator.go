package validator

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/amp-labs/fsm/logger"
	"github.com/amp-labs/fsm/statemachine"
)

const tracerName = "statemachine/validator"

// ValidateContext is like Validate but records the run as a
// "statemachine.validate" span, with one event per issue, and logs a
// summary through the context logger.
func ValidateContext(ctx context.Context, def *statemachine.Definition) ValidationResult {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "statemachine.validate",
		trace.WithAttributes(attribute.String("machine", def.Name)))
	defer span.End()

	result := Validate(def)

	for _, err := range result.Errors {
		span.AddEvent("validation.error", trace.WithAttributes(
			attribute.String("code", err.Code),
			attribute.String("state", err.Location.State),
		))
	}

	for _, warn := range result.Warnings {
		span.AddEvent("validation.warning", trace.WithAttributes(
			attribute.String("code", warn.Code),
			attribute.String("state", warn.Location.State),
		))
	}

	span.SetAttributes(
		attribute.Bool("valid", result.Valid),
		attribute.Int("errors", len(result.Errors)),
		attribute.Int("warnings", len(result.Warnings)),
	)

	if result.Valid {
		span.SetStatus(codes.Ok, "valid")
	} else {
		span.SetStatus(codes.Error, "invalid definition")
	}

	logger.Get(ctx).DebugContext(ctx, "Validated definition",
		"machine", def.Name,
		"valid", result.Valid,
		"errors", len(result.Errors),
		"warnings", len(result.Warnings))

	return result
}
