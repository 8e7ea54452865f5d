package logging

import (
	"context"
	"log/slog"

	"coursegen/internal/services"
)

// Keys shared by every record so the logs command can filter on them.
const (
	FieldComponent   = "component"
	FieldJobID       = "job_id"
	FieldStage       = "stage"
	FieldLessonOrder = "lesson_order"
	// FieldEventType names the event in a machine-filterable way.
	FieldEventType = "event_type"
	// FieldImpact describes what a warning means for the generated course.
	FieldImpact = "impact"
)

// ContextFields turns the work scope carried by ctx into log attributes.
func ContextFields(ctx context.Context) []slog.Attr {
	scope := services.ScopeFrom(ctx)
	var fields []slog.Attr
	if scope.JobID != "" {
		fields = append(fields, slog.String(FieldJobID, scope.JobID))
	}
	if scope.Stage != "" {
		fields = append(fields, slog.String(FieldStage, scope.Stage))
	}
	if scope.HasLesson {
		fields = append(fields, slog.Int(FieldLessonOrder, scope.LessonOrder))
	}
	return fields
}

// WithContext scopes logger to the job, lesson and stage recorded in ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if fields := ContextFields(ctx); len(fields) > 0 {
		return logger.With(Args(fields...)...)
	}
	return logger
}
