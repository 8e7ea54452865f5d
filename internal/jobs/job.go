package jobs

import (
	"fmt"
	"time"

	"coursegen/internal/services"
)

// Status represents the lifecycle state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ParseStatus converts a stored status string.
func ParseStatus(value string) (Status, bool) {
	switch Status(value) {
	case StatusQueued, StatusRunning, StatusCompleted, StatusFailed:
		return Status(value), true
	default:
		return "", false
	}
}

// Job is a snapshot of one generation request.
type Job struct {
	ID           string     `json:"id"`
	Status       Status     `json:"status"`
	Progress     int        `json:"progress"`
	CourseRef    string     `json:"courseId,omitempty"`
	Error        string     `json:"error,omitempty"`
	LessonErrors []string   `json:"lessonErrors,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

func (j *Job) clone() Job {
	out := *j
	if j.LessonErrors != nil {
		out.LessonErrors = append([]string(nil), j.LessonErrors...)
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		out.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

// NotFoundError is returned for unknown job ids.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("job %q not found", e.ID)
}

func (e *NotFoundError) Unwrap() error { return services.ErrNotFound }

// InvalidTransitionError is returned when an update would break the job
// lifecycle. The stored job is left unchanged.
type InvalidTransitionError struct {
	ID       string
	From     Status
	To       Status
	Progress int
	Reason   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("job %q: invalid transition %s -> %s (progress %d): %s", e.ID, e.From, e.To, e.Progress, e.Reason)
}

func (e *InvalidTransitionError) Unwrap() error { return services.ErrValidation }
