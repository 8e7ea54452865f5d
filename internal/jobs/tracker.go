package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"coursegen/internal/logging"
)

// Recorder receives every accepted job snapshot, in order, for persistence.
type Recorder interface {
	Record(ctx context.Context, job Job) error
}

// TrackerOption customizes a Tracker.
type TrackerOption func(*Tracker)

// WithRecorder mirrors accepted snapshots to r. Recorder errors are logged
// and never reject a transition.
func WithRecorder(r Recorder) TrackerOption {
	return func(t *Tracker) { t.recorder = r }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithLogger sets the tracker logger.
func WithLogger(logger *slog.Logger) TrackerOption {
	return func(t *Tracker) { t.logger = logging.NewComponentLogger(logger, "jobs") }
}

// Tracker is the process-wide registry of job state. All mutations are
// serialized; readers always receive copies.
type Tracker struct {
	mu       sync.Mutex
	jobs     map[string]*Job
	order    []string
	now      func() time.Time
	recorder Recorder
	logger   *slog.Logger
}

// NewTracker constructs an empty tracker.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		jobs:   make(map[string]*Job),
		now:    func() time.Time { return time.Now().UTC() },
		logger: logging.NewComponentLogger(nil, "jobs"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Create registers a new queued job and returns its id.
func (t *Tracker) Create() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := uuid.NewString()
	now := t.now()
	job := &Job{ID: id, Status: StatusQueued, CreatedAt: now, UpdatedAt: now}
	t.jobs[id] = job
	t.order = append(t.order, id)
	t.record(job)
	return id
}

// Update moves a job to status with the given progress. Accepted transitions
// are queued->running (progress 0), running->running (progress not
// decreasing), running->completed and running->failed. Anything else, and any
// progress outside 0..100, is rejected with *InvalidTransitionError.
func (t *Tracker) Update(id string, progress int, status Status) error {
	return t.apply(id, status, progress, false, func(*Job) {})
}

// Start moves a queued job to running with zero progress.
func (t *Tracker) Start(id string) error {
	return t.Update(id, 0, StatusRunning)
}

// Complete marks a running job completed at 100% with the produced course.
// lessonErrors lists lessons skipped under a best-effort policy.
func (t *Tracker) Complete(id, courseRef string, lessonErrors []string) error {
	return t.apply(id, StatusCompleted, 100, false, func(job *Job) {
		job.CourseRef = courseRef
		job.LessonErrors = append([]string(nil), lessonErrors...)
	})
}

// Fail marks a running job failed, keeping its current progress.
func (t *Tracker) Fail(id, message string, lessonErrors []string) error {
	return t.apply(id, StatusFailed, 0, true, func(job *Job) {
		job.Error = message
		job.LessonErrors = append([]string(nil), lessonErrors...)
	})
}

func (t *Tracker) apply(id string, to Status, progress int, keepProgress bool, mutate func(*Job)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	if keepProgress {
		progress = job.Progress
	}
	if reason := checkTransition(job, to, progress); reason != "" {
		return &InvalidTransitionError{ID: id, From: job.Status, To: to, Progress: progress, Reason: reason}
	}
	now := t.now()
	if job.Status == StatusQueued && to == StatusRunning {
		started := now
		job.StartedAt = &started
	}
	if to.IsTerminal() {
		completed := now
		job.CompletedAt = &completed
	}
	job.Status = to
	job.Progress = progress
	job.UpdatedAt = now
	mutate(job)
	t.record(job)
	return nil
}

func checkTransition(job *Job, to Status, progress int) string {
	if progress < 0 || progress > 100 {
		return "progress out of range"
	}
	if job.Status.IsTerminal() {
		return "job already terminal"
	}
	switch {
	case job.Status == StatusQueued && to == StatusRunning:
		if progress != 0 {
			return "a started job begins at zero progress"
		}
	case job.Status == StatusRunning && (to == StatusRunning || to == StatusCompleted || to == StatusFailed):
		if progress < job.Progress {
			return "progress may not decrease"
		}
	default:
		return "transition not allowed"
	}
	return ""
}

// record must be called with t.mu held so snapshots reach the recorder in
// transition order.
func (t *Tracker) record(job *Job) {
	if t.recorder == nil {
		return
	}
	if err := t.recorder.Record(context.Background(), job.clone()); err != nil {
		logging.WarnWithContext(t.logger, "job journal write failed", "job_journal_failed",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "job history incomplete"),
		)
	}
}

// Get returns a snapshot of the job.
func (t *Tracker) Get(id string) (Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok {
		return Job{}, &NotFoundError{ID: id}
	}
	return job.clone(), nil
}

// List returns snapshots of all jobs in creation order.
func (t *Tracker) List() []Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Job, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.jobs[id].clone())
	}
	return out
}
