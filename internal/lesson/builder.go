package lesson

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"coursegen/internal/assembly"
	"coursegen/internal/course"
	"coursegen/internal/logging"
	"coursegen/internal/observability"
	"coursegen/internal/services"
	"coursegen/internal/textutil"
)

// Synthesizer narrates text. *speech.Gateway implements it.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, opts course.ProcessingOptions) (string, error)
}

// Assembler renders a lesson video. *assembly.Assembler implements it.
type Assembler interface {
	Assemble(ctx context.Context, req assembly.Request) (assembly.Result, error)
}

// Stage names the step of lesson production that failed.
type Stage string

const (
	StageSynthesis Stage = "synthesis"
	StageAssembly  Stage = "assembly"
)

// Failure labels a lesson error with the section it came from.
type Failure struct {
	Section course.Section
	Stage   Stage
	Err     error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("lesson %d %q (%s): %v", f.Section.Order, f.Section.Title, f.Stage, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Summary is a short description safe to show to end users.
func (f *Failure) Summary() string {
	var summarizer interface{ Summary() string }
	reason := services.Reason(f.Err)
	if errors.As(f.Err, &summarizer) {
		reason = summarizer.Summary()
	}
	return fmt.Sprintf("lesson %d %q: %s", f.Section.Order+1, f.Section.Title, reason)
}

// Builder produces one lesson per section by narrating it and assembling the
// video.
type Builder struct {
	speech    Synthesizer
	assembler Assembler
	workDir   string
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewBuilder constructs a builder that writes lesson assets beneath workDir.
func NewBuilder(speech Synthesizer, assembler Assembler, workDir string, logger *slog.Logger) *Builder {
	return &Builder{
		speech:    speech,
		assembler: assembler,
		workDir:   workDir,
		logger:    logging.NewComponentLogger(logger, "lesson"),
		tracer:    observability.Tracer("coursegen/lesson"),
	}
}

// Build narrates the section, assembles its video and returns the lesson.
// Errors are *Failure values wrapping the underlying synthesis or assembly
// error.
func (b *Builder) Build(ctx context.Context, jobID string, section course.Section, opts course.ProcessingOptions) (lesson course.Lesson, err error) {
	ctx = services.WithJobID(ctx, jobID)
	ctx = services.WithLessonOrder(ctx, section.Order)
	ctx, span := b.tracer.Start(ctx, "lesson.build", trace.WithAttributes(
		attribute.String("coursegen.job_id", jobID),
		attribute.Int("coursegen.lesson_order", section.Order),
		attribute.String("coursegen.quality", string(opts.Quality)),
	))
	defer func() { observability.EndSpan(span, err) }()

	logger := logging.WithContext(ctx, b.logger)
	started := time.Now()

	text := strings.TrimSpace(section.Body)
	if text == "" {
		text = strings.TrimSpace(section.Title)
	}
	digest := course.ContentDigest(section)

	audio, err := b.speech.Synthesize(services.WithStage(ctx, string(StageSynthesis)), text, opts)
	if err != nil {
		return course.Lesson{}, &Failure{Section: section, Stage: StageSynthesis, Err: err}
	}

	result, err := b.assembler.Assemble(services.WithStage(ctx, string(StageAssembly)), assembly.Request{
		AudioPath: audio,
		Title:     section.Title,
		Text:      text,
		Options:   opts,
		OutputDir: filepath.Join(b.workDir, textutil.SanitizeToken(jobID)),
		BaseName:  fmt.Sprintf("lesson-%03d-%s", section.Order, digest[:12]),
	})
	if err != nil {
		return course.Lesson{}, &Failure{Section: section, Stage: StageAssembly, Err: err}
	}

	subtitles := []course.Subtitle{}
	if len(result.Cues) > 0 {
		subtitles = append(subtitles, course.Subtitle{Language: opts.PrimaryLanguage(), Cues: result.Cues})
	}
	lesson = course.Lesson{
		ID:        course.LessonID(jobID, section.Order, digest),
		Title:     section.Title,
		Content:   section.Body,
		AudioRef:  audio,
		VideoRef:  result.VideoPath,
		Subtitles: subtitles,
		Order:     section.Order,
		Duration:  result.Duration,
	}
	logger.Info("lesson built",
		logging.String("title", section.Title),
		logging.Duration("duration", result.Duration),
		logging.Duration("elapsed", time.Since(started)),
		logging.String(logging.FieldEventType, "lesson_built"),
	)
	return lesson, nil
}
