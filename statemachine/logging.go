package statemachine

import (
	"context"
	"log/slog"

	"github.com/amp-labs/fsm/logger"
)

// Logger provides logging hooks for state machine execution.
type Logger interface {
	TransitionCommitted(ctx context.Context, machine, from, to string, cause Cause)
	TransitionRejected(ctx context.Context, machine, from, to string, cause Cause)
	ConditionFailed(ctx context.Context, machine, state, condition string, err error)
}

// DefaultLogger implements Logger on top of the logger package, so context
// values added with logger.With show up on every line.
type DefaultLogger struct {
	base *slog.Logger
}

// NewDefaultLogger creates a logger that resolves its slog.Logger from the
// context of each call.
func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{}
}

// NewSlogLogger creates a logger that always writes to l.
func NewSlogLogger(l *slog.Logger) *DefaultLogger {
	return &DefaultLogger{base: l}
}

func (l *DefaultLogger) get(ctx context.Context) *slog.Logger {
	if l.base != nil {
		return l.base
	}

	return logger.Get(ctx)
}

func (l *DefaultLogger) TransitionCommitted(ctx context.Context, machine, from, to string, cause Cause) {
	fields := []any{
		"machine", machine,
		"from", from,
		"to", to,
		"cause", string(cause),
	}

	if traceID, spanID := extractTraceContext(ctx); traceID != "" {
		fields = append(fields, "trace_id", traceID, "span_id", spanID)
	}

	l.get(ctx).InfoContext(ctx, "Transition committed", fields...)
}

func (l *DefaultLogger) TransitionRejected(ctx context.Context, machine, from, to string, cause Cause) {
	l.get(ctx).DebugContext(ctx, "Transition rejected",
		"machine", machine,
		"from", from,
		"to", to,
		"cause", string(cause),
	)
}

func (l *DefaultLogger) ConditionFailed(ctx context.Context, machine, state, condition string, err error) {
	l.get(ctx).WarnContext(ctx, "Condition evaluation failed",
		"machine", machine,
		"state", state,
		"condition", condition,
		"error", err,
	)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) TransitionCommitted(context.Context, string, string, string, Cause) {}

func (NopLogger) TransitionRejected(context.Context, string, string, string, Cause) {}

func (NopLogger) ConditionFailed(context.Context, string, string, string, error) {}
