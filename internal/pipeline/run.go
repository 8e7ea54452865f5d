package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"coursegen/internal/course"
	"coursegen/internal/lesson"
)

// run is the mutable state of one job while its lessons are produced. The
// mutex makes counting a lesson and publishing the resulting progress one
// step, so progress reaches the tracker in order.
type run struct {
	jobID string
	done  chan struct{}

	// Guarded by Generator.mu.
	attached        bool
	cancel          context.CancelFunc
	cancelRequested bool

	mu        sync.Mutex
	total     int
	processed int
	lessons   []course.Lesson
	failures  []*lesson.Failure
	publish   func(progress int) error
	evaluate  func(failures []*lesson.Failure) error
	sealed    bool
	abandoned bool
}

func newRun(jobID string) *run {
	return &run{jobID: jobID, done: make(chan struct{})}
}

func (r *run) attach(cancel context.CancelFunc) {
	r.attached = true
	r.cancel = cancel
	if r.cancelRequested {
		cancel()
	}
}

func (r *run) requestCancel() {
	r.cancelRequested = true
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *run) finish() {
	if r.cancel != nil {
		r.cancel()
	}
	close(r.done)
}

// begin arms the run for total sections. publish receives progress after
// every counted lesson; evaluate decides whether the failures so far end
// the run.
func (r *run) begin(total int, publish func(int) error, evaluate func([]*lesson.Failure) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = total
	r.publish = publish
	r.evaluate = evaluate
}

// record counts one finished section. Results arriving after the run was
// abandoned are dropped. Results arriving after the run was sealed indicate
// a worker that outlived its run and panic.
func (r *run) record(ctx context.Context, section course.Section, produced course.Lesson, err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.abandoned {
		return nil
	}
	if r.sealed {
		panic(fmt.Sprintf("pipeline: job %s: lesson %d recorded after the run was sealed", r.jobID, section.Order))
	}
	if err != nil && ctx.Err() != nil {
		// Aborted because a sibling already ended the run.
		return nil
	}

	r.processed++
	if err != nil {
		r.failures = append(r.failures, asFailure(section, err))
	} else {
		r.lessons = append(r.lessons, produced)
	}
	if r.publish != nil {
		if perr := r.publish(progressPercent(r.processed, r.total)); perr != nil {
			return perr
		}
	}
	if err != nil && r.evaluate != nil {
		return r.evaluate(r.failures)
	}
	return nil
}

// abandon drops every result still to arrive.
func (r *run) abandon() {
	r.mu.Lock()
	r.abandoned = true
	r.mu.Unlock()
}

// seal freezes the run once its terminal outcome is decided.
func (r *run) seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// results returns produced lessons sorted by section order and the recorded
// failures in arrival order.
func (r *run) results() ([]course.Lesson, []*lesson.Failure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lessons := append([]course.Lesson(nil), r.lessons...)
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].Order < lessons[j].Order })
	return lessons, append([]*lesson.Failure(nil), r.failures...)
}

func progressPercent(done, total int) int {
	if total <= 0 {
		return 100
	}
	return int(math.Round(100 * float64(done) / float64(total)))
}

func asFailure(section course.Section, err error) *lesson.Failure {
	var failure *lesson.Failure
	if errors.As(err, &failure) {
		return failure
	}
	return &lesson.Failure{Section: section, Err: err}
}
