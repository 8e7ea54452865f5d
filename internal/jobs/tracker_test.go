package jobs_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"coursegen/internal/jobs"
	"coursegen/internal/services"
)

type memoryRecorder struct {
	mu    sync.Mutex
	saved []jobs.Job
}

func (m *memoryRecorder) Record(_ context.Context, job jobs.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, job)
	return nil
}

func TestTrackerLifecycle(t *testing.T) {
	rec := &memoryRecorder{}
	tr := jobs.NewTracker(jobs.WithRecorder(rec))
	id := tr.Create()

	job, err := tr.Get(id)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if job.Status != jobs.StatusQueued || job.Progress != 0 || job.StartedAt != nil {
		t.Fatalf("unexpected new job %+v", job)
	}

	steps := []struct {
		progress int
		status   jobs.Status
	}{
		{0, jobs.StatusRunning},
		{33, jobs.StatusRunning},
		{33, jobs.StatusRunning},
		{67, jobs.StatusRunning},
	}
	for _, step := range steps {
		if err := tr.Update(id, step.progress, step.status); err != nil {
			t.Fatalf("Update(%d, %s) returned error: %v", step.progress, step.status, err)
		}
	}
	if err := tr.Complete(id, "course-1", nil); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	job, _ = tr.Get(id)
	if job.Status != jobs.StatusCompleted || job.Progress != 100 || job.CourseRef != "course-1" {
		t.Fatalf("unexpected completed job %+v", job)
	}
	if job.StartedAt == nil || job.CompletedAt == nil {
		t.Fatal("expected start and completion timestamps")
	}
	if len(rec.saved) != 6 {
		t.Fatalf("expected 6 recorded snapshots, got %d", len(rec.saved))
	}
	if rec.saved[len(rec.saved)-1].Status != jobs.StatusCompleted {
		t.Fatal("expected last snapshot to be terminal")
	}
}

func TestTrackerRejectsInvalidTransitions(t *testing.T) {
	tests := []struct {
		name     string
		prepare  func(tr *jobs.Tracker, id string)
		progress int
		status   jobs.Status
	}{
		{"queued to completed", func(*jobs.Tracker, string) {}, 100, jobs.StatusCompleted},
		{"queued to running with progress", func(*jobs.Tracker, string) {}, 10, jobs.StatusRunning},
		{"back to queued", func(tr *jobs.Tracker, id string) { _ = tr.Start(id) }, 0, jobs.StatusQueued},
		{"decreasing progress", func(tr *jobs.Tracker, id string) {
			_ = tr.Start(id)
			_ = tr.Update(id, 50, jobs.StatusRunning)
		}, 40, jobs.StatusRunning},
		{"above 100", func(tr *jobs.Tracker, id string) { _ = tr.Start(id) }, 101, jobs.StatusRunning},
		{"negative", func(tr *jobs.Tracker, id string) { _ = tr.Start(id) }, -1, jobs.StatusRunning},
		{"after completion", func(tr *jobs.Tracker, id string) {
			_ = tr.Start(id)
			_ = tr.Complete(id, "c", nil)
		}, 100, jobs.StatusCompleted},
		{"after failure", func(tr *jobs.Tracker, id string) {
			_ = tr.Start(id)
			_ = tr.Fail(id, "boom", nil)
		}, 100, jobs.StatusRunning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := jobs.NewTracker()
			id := tr.Create()
			tt.prepare(tr, id)
			before, _ := tr.Get(id)

			err := tr.Update(id, tt.progress, tt.status)
			var transitionErr *jobs.InvalidTransitionError
			if !errors.As(err, &transitionErr) {
				t.Fatalf("expected InvalidTransitionError, got %v", err)
			}
			if !errors.Is(err, services.ErrValidation) {
				t.Fatal("expected validation marker")
			}
			after, _ := tr.Get(id)
			if after.Status != before.Status || after.Progress != before.Progress || !after.UpdatedAt.Equal(before.UpdatedAt) {
				t.Fatalf("stored job changed: before %+v after %+v", before, after)
			}
		})
	}
}

func TestTrackerUnknownJob(t *testing.T) {
	tr := jobs.NewTracker()
	var notFound *jobs.NotFoundError
	if _, err := tr.Get("missing"); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError from Get, got %v", err)
	}
	if err := tr.Update("missing", 0, jobs.StatusRunning); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError from Update, got %v", err)
	}
	if err := tr.Fail("missing", "x", nil); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found marker from Fail, got %v", err)
	}
}

func TestTrackerFailKeepsProgressAndErrors(t *testing.T) {
	tr := jobs.NewTracker()
	id := tr.Create()
	_ = tr.Start(id)
	_ = tr.Update(id, 40, jobs.StatusRunning)
	if err := tr.Fail(id, "speech synthesis timed out", []string{"lesson 2"}); err != nil {
		t.Fatalf("Fail returned error: %v", err)
	}
	job, _ := tr.Get(id)
	if job.Status != jobs.StatusFailed || job.Progress != 40 || job.Error != "speech synthesis timed out" || job.CourseRef != "" {
		t.Fatalf("unexpected failed job %+v", job)
	}
	if err := tr.Fail(id, "again", nil); err == nil {
		t.Fatal("expected second terminal transition to be rejected")
	}
}

func TestTrackerSnapshotsAreCopies(t *testing.T) {
	tr := jobs.NewTracker()
	id := tr.Create()
	_ = tr.Start(id)
	_ = tr.Complete(id, "c", []string{"a"})
	job, _ := tr.Get(id)
	job.LessonErrors[0] = "mutated"
	*job.StartedAt = time.Time{}
	again, _ := tr.Get(id)
	if again.LessonErrors[0] != "a" || again.StartedAt.IsZero() {
		t.Fatal("snapshot mutation leaked into tracker")
	}
}

func TestTrackerListKeepsCreationOrder(t *testing.T) {
	tr := jobs.NewTracker()
	a, b, c := tr.Create(), tr.Create(), tr.Create()
	list := tr.List()
	if len(list) != 3 || list[0].ID != a || list[1].ID != b || list[2].ID != c {
		t.Fatalf("unexpected list order %+v", list)
	}
}

func TestTrackerConcurrentProgressIsMonotonic(t *testing.T) {
	rec := &memoryRecorder{}
	tr := jobs.NewTracker(jobs.WithRecorder(rec))
	id := tr.Create()
	_ = tr.Start(id)

	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			_ = tr.Update(id, p, jobs.StatusRunning)
		}(i)
	}
	wg.Wait()

	last := -1
	for _, snap := range rec.saved {
		if snap.Status != jobs.StatusRunning {
			continue
		}
		if snap.Progress < last {
			t.Fatalf("progress decreased from %d to %d", last, snap.Progress)
		}
		last = snap.Progress
	}
}
