package services

import "context"

// Scope identifies the unit of work a context belongs to. Zero fields are
// unset; LessonOrder is only meaningful when HasLesson is true because
// section orders start at zero.
type Scope struct {
	JobID       string
	Stage       string
	LessonOrder int
	HasLesson   bool
}

type scopeKey struct{}

// ScopeFrom returns the scope attached to ctx, or the zero Scope.
func ScopeFrom(ctx context.Context) Scope {
	if ctx == nil {
		return Scope{}
	}
	s, _ := ctx.Value(scopeKey{}).(Scope)
	return s
}

func withScope(ctx context.Context, mutate func(*Scope)) context.Context {
	s := ScopeFrom(ctx)
	mutate(&s)
	return context.WithValue(ctx, scopeKey{}, s)
}

// WithJobID annotates ctx with the generation job identifier.
func WithJobID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return withScope(ctx, func(s *Scope) { s.JobID = id })
}

// WithStage annotates ctx with the lesson stage being executed.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return withScope(ctx, func(s *Scope) { s.Stage = stage })
}

// WithLessonOrder annotates ctx with the zero-based order of the section
// being built. Negative orders are ignored.
func WithLessonOrder(ctx context.Context, order int) context.Context {
	if order < 0 {
		return ctx
	}
	return withScope(ctx, func(s *Scope) {
		s.LessonOrder = order
		s.HasLesson = true
	})
}

func JobIDFromContext(ctx context.Context) (string, bool) {
	s := ScopeFrom(ctx)
	return s.JobID, s.JobID != ""
}

func LessonOrderFromContext(ctx context.Context) (int, bool) {
	s := ScopeFrom(ctx)
	return s.LessonOrder, s.HasLesson
}
