package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"coursegen/internal/config"
	"coursegen/internal/course"
	"coursegen/internal/jobs"
	"coursegen/internal/logging"
	"coursegen/internal/observability"
	"coursegen/internal/pipeline"
	"coursegen/internal/preflight"
	"coursegen/internal/staging"
	"coursegen/internal/textutil"
)

type generateFlags struct {
	quality    string
	voice      string
	languages  []string
	music      bool
	policy     string
	workers    int
	tolerance  int
	outputDir  string
	keepWork   bool
	skipChecks bool
	jsonOutput bool
}

// generateResult is the --json view of a finished job.
type generateResult struct {
	Job       jobs.Job       `json:"job"`
	CourseDir string         `json:"courseDir,omitempty"`
	Course    *course.Course `json:"course,omitempty"`
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var flags generateFlags

	cmd := &cobra.Command{
		Use:   "generate <file>",
		Short: "Generate a course from a markdown document",
		Long: `Generate splits the document into lessons, narrates each one, renders
its video and publishes the finished course under the output directory.

Interrupting the command cancels the job; lessons already rendering get the
configured grace period to finish before the job fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCfg := *cfg
			if err := applyGenerateFlags(cmd, &runCfg, flags); err != nil {
				return err
			}
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}
			if overrides := optionOverrides(cmd, flags); overrides != nil {
				doc.Options = overrides
			}
			return runGenerate(cmd, ctx, &runCfg, doc, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.quality, "quality", "q", "", "Rendering quality: draft, standard or high")
	cmd.Flags().StringVar(&flags.voice, "voice", "", "Narration voice")
	cmd.Flags().StringSliceVarP(&flags.languages, "language", "l", nil, "Course language (repeatable; the first one is narrated and subtitled)")
	cmd.Flags().BoolVar(&flags.music, "music", false, "Mix background music into lesson videos")
	cmd.Flags().StringVar(&flags.policy, "policy", "", "Lesson failure policy: fail_fast or best_effort")
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 0, "Lessons rendered concurrently")
	cmd.Flags().IntVar(&flags.tolerance, "tolerance", 0, "Lesson failures tolerated by best_effort (0 = unlimited)")
	cmd.Flags().StringVarP(&flags.outputDir, "output", "o", "", "Directory that receives the published course")
	cmd.Flags().BoolVar(&flags.keepWork, "keep-work", false, "Keep intermediate narration and video files")
	cmd.Flags().BoolVar(&flags.skipChecks, "skip-checks", false, "Skip environment preflight checks")
	cmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "Print the finished job as JSON")
	return cmd
}

func applyGenerateFlags(cmd *cobra.Command, cfg *config.Config, flags generateFlags) error {
	if cmd.Flags().Changed("policy") {
		policy := strings.ToLower(strings.TrimSpace(flags.policy))
		if policy != config.PolicyFailFast && policy != config.PolicyBestEffort {
			return fmt.Errorf("invalid --policy %q (want %s or %s)", flags.policy, config.PolicyFailFast, config.PolicyBestEffort)
		}
		cfg.Generation.Policy = policy
	}
	if cmd.Flags().Changed("workers") {
		if flags.workers < 1 {
			return fmt.Errorf("invalid --workers %d (must be at least 1)", flags.workers)
		}
		cfg.Generation.Workers = flags.workers
	}
	if cmd.Flags().Changed("tolerance") {
		if flags.tolerance < 0 {
			return fmt.Errorf("invalid --tolerance %d (must not be negative)", flags.tolerance)
		}
		cfg.Generation.FailureTolerance = flags.tolerance
	}
	if cmd.Flags().Changed("output") {
		dir, err := config.ExpandPath(flags.outputDir)
		if err != nil {
			return fmt.Errorf("resolve --output: %w", err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory %q: %w", dir, err)
		}
		cfg.Paths.OutputDir = dir
	}
	return nil
}

// optionOverrides returns per-document options for the flags that were set,
// or nil when the configured defaults apply unchanged.
func optionOverrides(cmd *cobra.Command, flags generateFlags) *course.ProcessingOptions {
	changed := false
	var opts course.ProcessingOptions
	if cmd.Flags().Changed("quality") {
		opts.Quality = course.Quality(strings.TrimSpace(flags.quality))
		changed = true
	}
	if cmd.Flags().Changed("voice") {
		opts.Voice = flags.voice
		changed = true
	}
	if cmd.Flags().Changed("language") {
		opts.Languages = append([]string(nil), flags.languages...)
		changed = true
	}
	if flags.music {
		opts.BackgroundMusic = true
		changed = true
	}
	if !changed {
		return nil
	}
	return &opts
}

func readDocument(path string) (course.Document, error) {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return course.Document{}, fmt.Errorf("resolve document path: %w", err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return course.Document{}, fmt.Errorf("read document: %w", err)
	}
	return course.Document{Text: data, Name: filepath.Base(expanded)}, nil
}

// acquireWorkLock takes the shared work directory lock. Generations share it;
// clean needs it exclusively.
func acquireWorkLock(cfg *config.Config) (*flock.Flock, error) {
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryRLock()
	if err != nil {
		return nil, fmt.Errorf("acquire work lock: %w", err)
	}
	if !ok {
		return nil, errors.New("work directory is being cleaned; retry when `coursegen clean` finishes")
	}
	return lock, nil
}

func runGenerate(cmd *cobra.Command, cctx *commandContext, cfg *config.Config, doc course.Document, flags generateFlags) error {
	ctx := commandCtx(cmd)
	out := cmd.OutOrStdout()

	lock, err := acquireWorkLock(cfg)
	if err != nil {
		return err
	}
	defer lock.Unlock() //nolint:errcheck

	if !flags.skipChecks {
		if failed := preflight.Failed(preflight.RunAll(ctx, cfg)); len(failed) > 0 {
			for _, r := range failed {
				fmt.Fprintf(cmd.ErrOrStderr(), "preflight: %s: %s\n", r.Name, r.Detail)
			}
			return fmt.Errorf("preflight failed: %d check(s); run `coursegen check` for details", len(failed))
		}
	}

	logger, err := cctx.logger(cmd)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, version, cmd.ErrOrStderr(), logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("tracing shutdown failed", logging.Error(err))
		}
	}()

	store, err := jobs.OpenStore(cfg.JournalPath())
	if err != nil {
		return err
	}
	defer store.Close()

	tracker := jobs.NewTracker(jobs.WithRecorder(store), jobs.WithLogger(logger))
	generator := newGenerator(cfg, tracker, store, logger)

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobID, err := generator.Submit(sigCtx, doc)
	if err != nil {
		return err
	}
	if !flags.jsonOutput {
		fmt.Fprintf(out, "Job %s: %s\n", jobID, doc.Name)
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-sigCtx.Done():
			if ctx.Err() == nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "\ncancelling; waiting for lessons in progress")
			}
			if err := generator.Cancel(jobID); err != nil {
				logger.Warn("cancel failed", logging.Error(err))
			}
		case <-done:
		}
	}()

	reporter := newProgressReporter(progressWriter(cmd, flags.jsonOutput))
	var watchers sync.WaitGroup
	watchers.Add(1)
	go func() {
		defer watchers.Done()
		reporter.watch(ctx, tracker, jobID, done)
	}()

	job, waitErr := generator.Wait(context.WithoutCancel(ctx), jobID)
	close(done)
	watchers.Wait()
	if waitErr != nil {
		return waitErr
	}
	reporter.finish(job)

	if !flags.keepWork {
		if err := staging.RemoveJobDir(cfg.Paths.WorkDir, textutil.SanitizeToken(jobID)); err != nil {
			logger.Warn("work directory cleanup failed", logging.Error(err), logging.String(logging.FieldJobID, jobID))
		}
	}
	return reportGenerateResult(cmd, generator, cfg, job, flags.jsonOutput)
}

func progressWriter(cmd *cobra.Command, jsonOutput bool) io.Writer {
	if jsonOutput {
		return io.Discard
	}
	return cmd.OutOrStdout()
}

func reportGenerateResult(cmd *cobra.Command, generator *pipeline.Generator, cfg *config.Config, job jobs.Job, jsonOutput bool) error {
	out := cmd.OutOrStdout()
	if job.Status != jobs.StatusCompleted {
		if jsonOutput {
			if err := writeJSON(cmd, generateResult{Job: job}); err != nil {
				return err
			}
		} else {
			printLessonErrors(out, job.LessonErrors)
		}
		return fmt.Errorf("job %s failed: %s", job.ID, job.Error)
	}

	c, err := generator.Course(job.CourseRef)
	if err != nil {
		return err
	}
	courseDir := filepath.Join(cfg.Paths.OutputDir, c.ID)
	if jsonOutput {
		return writeJSON(cmd, generateResult{Job: job, CourseDir: courseDir, Course: c})
	}

	fmt.Fprintf(out, "Course %q published to %s\n", c.Title, courseDir)
	rows := make([][]string, 0, len(c.Lessons))
	for _, l := range c.Lessons {
		rows = append(rows, []string{strconv.Itoa(l.Order + 1), l.Title, formatClock(l.Duration)})
	}
	fmt.Fprintln(out, renderTable([]string{"#", "Lesson", "Duration"}, rows, []columnAlignment{alignRight, alignLeft, alignRight}))
	fmt.Fprintf(out, "Total duration: %s\n", formatClock(c.Metadata.TotalDuration))
	printLessonErrors(out, job.LessonErrors)
	return nil
}

func printLessonErrors(out io.Writer, lessonErrors []string) {
	if len(lessonErrors) == 0 {
		return
	}
	fmt.Fprintf(out, "Skipped lessons (%d):\n", len(lessonErrors))
	for _, msg := range lessonErrors {
		fmt.Fprintf(out, "  - %s\n", msg)
	}
}
