package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"coursegen/internal/course"
	"coursegen/internal/document"
	"coursegen/internal/jobs"
	"coursegen/internal/lesson"
	"coursegen/internal/logging"
	"coursegen/internal/observability"
	"coursegen/internal/services"
)

var errJobCancelled = services.Wrap(services.ErrCancelled, "pipeline", "run", "job cancelled", nil)

// Run processes an existing queued job synchronously: it parses doc, builds
// every lesson under the configured policy and moves the job to a terminal
// state. A failed job is reported as a *JobError.
func (g *Generator) Run(ctx context.Context, jobID string, doc course.Document) (result *course.Course, err error) {
	ctx, r, err := g.attach(ctx, jobID)
	if err != nil {
		return nil, err
	}
	defer g.detach(r)

	ctx = services.WithJobID(ctx, jobID)
	if err := g.tracker.Start(jobID); err != nil {
		return nil, err
	}
	started := g.now()
	ctx, span := g.tracer.Start(ctx, "course.generate", trace.WithAttributes(
		attribute.String("coursegen.job_id", jobID),
		attribute.String("coursegen.source", doc.Name),
		attribute.String("coursegen.policy", g.opts.Policy),
	))
	defer func() { observability.EndSpan(span, err) }()

	logger := logging.WithContext(ctx, g.logger)
	logger.Info("job started",
		logging.String("source", doc.Name),
		logging.Int("bytes", len(doc.Text)),
		logging.String(logging.FieldEventType, "job_started"),
	)

	opts := course.Resolve(g.opts.Defaults, doc.Options)
	if verr := opts.Validate(); verr != nil {
		return nil, g.fail(ctx, r, "", verr, nil, started)
	}
	parsed, perr := g.parser.ParseDocument(doc)
	if perr != nil {
		return nil, g.fail(ctx, r, "", perr, nil, started)
	}
	for _, warning := range parsed.Warnings {
		logging.WarnWithContext(logger, "document metadata ignored", "metadata_warning",
			logging.String("warning", warning),
			logging.String(logging.FieldImpact, "course metadata uses defaults"),
		)
	}
	span.SetAttributes(attribute.Int("coursegen.sections", len(parsed.Sections)))
	logger.Info("document parsed",
		logging.String("title", parsed.Title),
		logging.Int("sections", len(parsed.Sections)),
		logging.Int("boundary_level", parsed.BoundaryLevel),
		logging.String("quality", string(opts.Quality)),
		logging.String(logging.FieldEventType, "document_parsed"),
	)
	g.notifyStarted(ctx, parsed.Title, len(parsed.Sections))

	cancelled, procErr := g.process(ctx, r, jobID, parsed.Sections, opts)
	// A cancel that lands while parsing, or with nothing left to build, still
	// ends the job.
	cancelled = cancelled || ctx.Err() != nil
	lessons, failures := r.results()
	lessonErrors := failureSummaries(failures)
	switch {
	case cancelled:
		return nil, g.fail(ctx, r, parsed.Title, errJobCancelled, lessonErrors, started)
	case procErr != nil:
		return nil, g.fail(ctx, r, parsed.Title, procErr, lessonErrors, started)
	case len(lessons) == 0 && len(failures) > 0:
		lessonsErr := &LessonsError{Failed: len(failures), Total: len(parsed.Sections), First: failures[0]}
		return nil, g.fail(ctx, r, parsed.Title, lessonsErr, lessonErrors, started)
	}
	return g.complete(ctx, r, doc, parsed, lessons, lessonErrors, started)
}

// process fans sections out to the builder. cancelled reports that the job
// context ended first; in-flight lessons then get the cancel grace period
// before the run is abandoned.
func (g *Generator) process(ctx context.Context, r *run, jobID string, sections []course.Section, opts course.ProcessingOptions) (cancelled bool, err error) {
	total := len(sections)
	r.begin(total,
		func(progress int) error { return g.tracker.Update(jobID, progress, jobs.StatusRunning) },
		func(failures []*lesson.Failure) error { return g.evaluate(failures, total) },
	)
	if total == 0 {
		return false, nil
	}

	workCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	defer stop()
	group, groupCtx := errgroup.WithContext(workCtx)
	group.SetLimit(g.opts.Workers)

	finished := make(chan error, 1)
	go func() {
		for _, section := range sections {
			group.Go(func() error {
				if ctx.Err() != nil || groupCtx.Err() != nil {
					return nil
				}
				produced, err := g.builder.Build(groupCtx, jobID, section, opts)
				return r.record(groupCtx, section, produced, err)
			})
		}
		finished <- group.Wait()
	}()

	select {
	case err := <-finished:
		// Sections skipped after a cancel leave the course incomplete.
		if ctx.Err() != nil {
			return true, nil
		}
		return false, err
	case <-ctx.Done():
	}

	logger := logging.WithContext(ctx, g.logger)
	logger.Info("cancellation requested; waiting for in-flight lessons",
		logging.Duration("grace", g.opts.CancelGrace),
		logging.String(logging.FieldEventType, "job_cancelling"),
	)
	grace := time.NewTimer(g.opts.CancelGrace)
	defer grace.Stop()
	select {
	case <-finished:
	case <-grace.C:
		r.abandon()
		logging.WarnWithContext(logger, "in-flight lessons abandoned", "lessons_abandoned",
			logging.Duration("grace", g.opts.CancelGrace),
			logging.String(logging.FieldImpact, "results of unfinished lessons are discarded"),
		)
	}
	return true, nil
}

// evaluate applies the failure policy after a lesson failed.
func (g *Generator) evaluate(failures []*lesson.Failure, total int) error {
	if len(failures) == 0 {
		return nil
	}
	if g.opts.Policy == PolicyFailFast {
		return failures[len(failures)-1]
	}
	if tolerance := g.opts.FailureTolerance; tolerance > 0 && len(failures) > tolerance {
		return &LessonsError{Failed: len(failures), Total: total, Tolerance: tolerance, First: failures[0]}
	}
	return nil
}

func (g *Generator) complete(ctx context.Context, r *run, doc course.Document, parsed document.Parsed, lessons []course.Lesson, lessonErrors []string, started time.Time) (*course.Course, error) {
	if lessons == nil {
		lessons = []course.Lesson{}
	}
	c := &course.Course{
		ID:          course.CourseID(r.jobID),
		Title:       parsed.Title,
		Description: parsed.Description,
		Lessons:     lessons,
		Metadata:    parsed.Metadata,
		CreatedAt:   g.now(),
	}
	c.Metadata.TotalDuration = 0
	for _, l := range lessons {
		c.Metadata.TotalDuration += l.Duration
	}

	logger := logging.WithContext(ctx, g.logger)
	if g.opts.OutputDir != "" {
		dir, err := Publish(ctx, c, g.opts.OutputDir, lessonErrors)
		if err != nil {
			return nil, g.fail(ctx, r, c.Title, err, lessonErrors, started)
		}
		logger.Info("course published",
			logging.String("output_dir", dir),
			logging.String(logging.FieldEventType, "course_published"),
		)
	}

	r.seal()
	g.remember(c)
	if g.journal != nil {
		if err := g.journal.SaveCourse(context.WithoutCancel(ctx), r.jobID, doc.Name, c); err != nil {
			logging.WarnWithContext(logger, "course journal write failed", "course_journal_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "course not available from job history"),
			)
		}
	}
	if err := g.tracker.Complete(r.jobID, c.ID, lessonErrors); err != nil {
		return nil, err
	}

	elapsed := g.now().Sub(started)
	logger.Info("job completed",
		logging.String("course_id", c.ID),
		logging.Int("lessons", len(c.Lessons)),
		logging.Int("skipped", len(lessonErrors)),
		logging.Duration("course_duration", c.Metadata.TotalDuration),
		logging.Duration("elapsed", elapsed),
		logging.String(logging.FieldEventType, "job_completed"),
	)
	g.notifyCompleted(ctx, c.Title, len(c.Lessons), len(lessonErrors), elapsed)
	return c, nil
}
