package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"coursegen/internal/config"
	"coursegen/internal/course"
	"coursegen/internal/document"
	"coursegen/internal/jobs"
	"coursegen/internal/language"
	"coursegen/internal/logging"
	"coursegen/internal/notifications"
	"coursegen/internal/observability"
	"coursegen/internal/services"
)

// Failure policies.
const (
	PolicyFailFast   = config.PolicyFailFast
	PolicyBestEffort = config.PolicyBestEffort
)

// DocumentParser derives the lesson structure of a document. *document.Parser
// implements it.
type DocumentParser interface {
	ParseDocument(doc course.Document) (document.Parsed, error)
}

// LessonBuilder produces one lesson. *lesson.Builder implements it.
type LessonBuilder interface {
	Build(ctx context.Context, jobID string, section course.Section, opts course.ProcessingOptions) (course.Lesson, error)
}

// CourseJournal persists finished courses. *jobs.Store implements it.
type CourseJournal interface {
	SaveCourse(ctx context.Context, jobID, sourceName string, c *course.Course) error
}

// Options tunes a Generator.
type Options struct {
	Workers          int
	Policy           string
	FailureTolerance int
	CancelGrace      time.Duration
	// OutputDir receives published courses. Empty disables publication.
	OutputDir string
	Defaults  course.ProcessingOptions
}

// OptionsFromConfig maps the [generation] and [paths] sections onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	defaults := course.DefaultOptions()
	if q, ok := course.ParseQuality(cfg.Generation.DefaultQuality); ok {
		defaults.Quality = q
	}
	if len(cfg.Generation.Languages) > 0 {
		defaults.Languages = append([]string(nil), cfg.Generation.Languages...)
	}
	defaults.Voice = cfg.Speech.DefaultVoice
	return Options{
		Workers:          cfg.Generation.Workers,
		Policy:           cfg.Generation.Policy,
		FailureTolerance: cfg.Generation.FailureTolerance,
		CancelGrace:      time.Duration(cfg.Generation.CancelGraceSeconds) * time.Second,
		OutputDir:        cfg.Paths.OutputDir,
		Defaults:         defaults,
	}
}

func (o Options) normalized() Options {
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.Policy != PolicyBestEffort {
		o.Policy = PolicyFailFast
	}
	if o.FailureTolerance < 0 {
		o.FailureTolerance = 0
	}
	if o.CancelGrace < 0 {
		o.CancelGrace = 0
	}
	if len(o.Defaults.Languages) == 0 {
		o.Defaults.Languages = []string{language.Default}
	}
	if o.Defaults.Quality == "" {
		o.Defaults.Quality = course.QualityStandard
	}
	return o
}

// Option configures optional Generator collaborators.
type Option func(*Generator)

// WithNotifier sends job lifecycle notifications through n.
func WithNotifier(n notifications.Service) Option {
	return func(g *Generator) {
		if n != nil {
			g.notifier = n
		}
	}
}

// WithJournal saves every completed course to j.
func WithJournal(j CourseJournal) Option {
	return func(g *Generator) { g.journal = j }
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// Generator drives documents through parsing and lesson production while
// keeping the job tracker current.
type Generator struct {
	tracker  *jobs.Tracker
	parser   DocumentParser
	builder  LessonBuilder
	notifier notifications.Service
	journal  CourseJournal
	opts     Options
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time

	mu      sync.Mutex
	runs    map[string]*run
	courses map[string]*course.Course
	wg      sync.WaitGroup
}

// New constructs a generator.
func New(tracker *jobs.Tracker, parser DocumentParser, builder LessonBuilder, opts Options, options ...Option) *Generator {
	g := &Generator{
		tracker:  tracker,
		parser:   parser,
		builder:  builder,
		notifier: notifications.NewService(&config.Config{}),
		opts:     opts.normalized(),
		tracer:   observability.Tracer("coursegen/pipeline"),
		now:      time.Now,
		runs:     make(map[string]*run),
		courses:  make(map[string]*course.Course),
	}
	for _, opt := range options {
		opt(g)
	}
	g.logger = logging.NewComponentLogger(g.logger, "pipeline")
	return g
}

// Submit creates a job for doc and processes it in the background. Only the
// job id is returned; poll the tracker or call Wait for the outcome.
func (g *Generator) Submit(ctx context.Context, doc course.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", services.Wrap(services.ErrCancelled, "pipeline", "submit", "", err)
	}
	jobID := g.tracker.Create()
	g.mu.Lock()
	g.runs[jobID] = newRun(jobID)
	g.mu.Unlock()

	runCtx := context.WithoutCancel(ctx)
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		_, _ = g.Run(runCtx, jobID, doc)
	}()
	g.logger.Info("job submitted",
		logging.String(logging.FieldJobID, jobID),
		logging.String("source", doc.Name),
		logging.String(logging.FieldEventType, "job_submitted"),
	)
	return jobID, nil
}

// Cancel stops an active job. In-flight lessons get the configured grace
// period to finish before they are abandoned; the job then fails. Cancelling
// a job that already finished is a no-op.
func (g *Generator) Cancel(jobID string) error {
	g.mu.Lock()
	r, ok := g.runs[jobID]
	if ok {
		r.requestCancel()
	}
	g.mu.Unlock()
	if ok {
		return nil
	}
	job, err := g.tracker.Get(jobID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return nil
	}
	return services.Wrap(services.ErrValidation, "pipeline", "cancel", fmt.Sprintf("job %s is not being processed", jobID), nil)
}

// Wait blocks until the job is terminal or ctx ends and returns its final
// snapshot.
func (g *Generator) Wait(ctx context.Context, jobID string) (jobs.Job, error) {
	g.mu.Lock()
	r, ok := g.runs[jobID]
	g.mu.Unlock()
	if ok {
		select {
		case <-r.done:
		case <-ctx.Done():
			return jobs.Job{}, ctx.Err()
		}
	}
	return g.tracker.Get(jobID)
}

// Course returns the course a completed job references.
func (g *Generator) Course(ref string) (*course.Course, error) {
	g.mu.Lock()
	c, ok := g.courses[ref]
	g.mu.Unlock()
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "pipeline", "course", fmt.Sprintf("course %s not found", ref), nil)
	}
	out := *c
	out.Lessons = append([]course.Lesson(nil), c.Lessons...)
	out.Metadata.Tags = append([]string(nil), c.Metadata.Tags...)
	return &out, nil
}

// Shutdown cancels every active job and waits for background runs to return.
func (g *Generator) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	for _, r := range g.runs {
		r.requestCancel()
	}
	g.mu.Unlock()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// attach registers the calling Run as the owner of jobID and returns a
// context that Cancel can end.
func (g *Generator) attach(ctx context.Context, jobID string) (context.Context, *run, error) {
	ctx, cancel := context.WithCancel(ctx)
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.runs[jobID]
	if !ok {
		r = newRun(jobID)
		g.runs[jobID] = r
	}
	if r.attached {
		cancel()
		return nil, nil, services.Wrap(services.ErrValidation, "pipeline", "run", fmt.Sprintf("job %s is already being processed", jobID), nil)
	}
	r.attach(cancel)
	return ctx, r, nil
}

func (g *Generator) detach(r *run) {
	g.mu.Lock()
	if g.runs[r.jobID] == r {
		delete(g.runs, r.jobID)
	}
	g.mu.Unlock()
	r.finish()
}

func (g *Generator) remember(c *course.Course) {
	g.mu.Lock()
	g.courses[c.ID] = c
	g.mu.Unlock()
}
