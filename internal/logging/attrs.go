package logging

import (
	"log/slog"
	"slices"
	"time"
)

type Attr = slog.Attr

func String(key, value string) Attr { return slog.String(key, value) }
func Int(key string, value int) Attr { return slog.Int(key, value) }
func Float64(key string, value float64) Attr { return slog.Float64(key, value) }
func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

// Error records err under the "error" key. A nil error is logged as "<nil>"
// so the key is always present on failure records.
func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// Event tags a record with its event_type.
func Event(eventType string) Attr { return slog.String(FieldEventType, eventType) }

// Args converts attrs to the variadic form slog.Logger methods accept.
func Args(attrs ...Attr) []any {
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	return args
}

func NewNop() *slog.Logger { return slog.New(NoopHandler{}) }

// NewComponentLogger scopes logger to one component of the generator. A nil
// logger yields a discarding one.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		return NewNop().With(String(FieldComponent, component))
	}
	return logger.With(String(FieldComponent, component))
}

// WarnWithContext logs a degraded-but-continuing condition. Every such warning
// carries an event_type and an impact so operators can tell what the course
// lost; missing ones are filled in.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	has := func(key string) bool {
		return slices.ContainsFunc(attrs, func(a Attr) bool { return a.Key == key })
	}
	if !has(FieldEventType) {
		attrs = append(attrs, Event(eventType))
	}
	if !has(FieldImpact) {
		attrs = append(attrs, String(FieldImpact, "generation continues with degraded output"))
	}
	logger.Warn(msg, Args(attrs...)...)
}
