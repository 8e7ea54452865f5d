package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coursegen/internal/course"
	"coursegen/internal/lesson"
	"coursegen/internal/logging"
	"coursegen/internal/services"
)

// JobError is returned by Run when the job ended failed. Message is the
// summary stored on the job.
type JobError struct {
	JobID   string
	Message string
	Err     error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job %s failed: %s", e.JobID, e.Message)
}

func (e *JobError) Unwrap() error { return e.Err }

// LessonsError reports that best-effort generation could not continue:
// either every lesson failed or more failed than the tolerance allows.
type LessonsError struct {
	Failed    int
	Total     int
	Tolerance int
	First     *lesson.Failure
}

func (e *LessonsError) Error() string {
	return e.Summary()
}

func (e *LessonsError) Unwrap() error {
	if e.First == nil {
		return nil
	}
	return e.First
}

// Summary describes the failure without paths or identifiers.
func (e *LessonsError) Summary() string {
	first := ""
	if e.First != nil {
		first = "; first failure: " + e.First.Summary()
	}
	if e.Failed >= e.Total {
		return "no lessons could be generated" + first
	}
	return fmt.Sprintf("%d of %d lessons failed, more than the tolerated %d%s", e.Failed, e.Total, e.Tolerance, first)
}

// summarize builds the job error message for err.
func summarize(err error) string {
	var summarizer interface{ Summary() string }
	if errors.As(err, &summarizer) {
		return summarizer.Summary()
	}
	var optionsErr *course.OptionsError
	if errors.As(err, &optionsErr) {
		return optionsErr.Error()
	}
	return "generation " + services.Reason(err)
}

func failureSummaries(failures []*lesson.Failure) []string {
	if len(failures) == 0 {
		return nil
	}
	out := make([]string, 0, len(failures))
	for _, f := range failures {
		out = append(out, f.Summary())
	}
	return out
}

// fail seals the run, records the failure on the job and notifies.
func (g *Generator) fail(ctx context.Context, r *run, title string, cause error, lessonErrors []string, started time.Time) error {
	r.seal()
	message := summarize(cause)
	logger := logging.WithContext(ctx, g.logger)
	logger.Error("job failed",
		logging.String("error_message", message),
		logging.Int("lesson_errors", len(lessonErrors)),
		logging.Duration("elapsed", g.now().Sub(started)),
		logging.Error(cause),
		logging.String(logging.FieldEventType, "job_failed"),
	)
	if err := g.tracker.Fail(r.jobID, message, lessonErrors); err != nil {
		logger.Error("failed to record job failure", logging.Error(err))
	}
	g.notifyFailed(ctx, title, message)
	return &JobError{JobID: r.jobID, Message: message, Err: cause}
}
