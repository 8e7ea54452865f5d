package services_test

import (
	"context"
	"testing"

	"coursegen/internal/services"
)

func TestScopeAccumulatesAnnotations(t *testing.T) {
	ctx := services.WithJobID(context.Background(), "job-1")
	lessonCtx := services.WithLessonOrder(ctx, 0)
	stageCtx := services.WithStage(lessonCtx, "synthesis")

	got := services.ScopeFrom(stageCtx)
	want := services.Scope{JobID: "job-1", Stage: "synthesis", LessonOrder: 0, HasLesson: true}
	if got != want {
		t.Fatalf("ScopeFrom = %+v, want %+v", got, want)
	}
	if order, ok := services.LessonOrderFromContext(stageCtx); !ok || order != 0 {
		t.Fatalf("unexpected lesson order: %v %v", order, ok)
	}

	// Parents keep their own view.
	if services.ScopeFrom(lessonCtx).Stage != "" {
		t.Fatal("stage leaked into parent context")
	}
	if _, ok := services.LessonOrderFromContext(ctx); ok {
		t.Fatal("lesson order leaked into parent context")
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	tests := map[string]func(context.Context) context.Context{
		"stage":  func(c context.Context) context.Context { return services.WithStage(c, "") },
		"job":    func(c context.Context) context.Context { return services.WithJobID(c, "") },
		"lesson": func(c context.Context) context.Context { return services.WithLessonOrder(c, -1) },
	}
	for name, annotate := range tests {
		t.Run(name, func(t *testing.T) {
			if got := annotate(ctx); got != ctx {
				t.Fatal("expected the context to be returned unchanged")
			}
		})
	}
	if services.ScopeFrom(ctx) != (services.Scope{}) {
		t.Fatal("expected zero scope for an unannotated context")
	}
}
