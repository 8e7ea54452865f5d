package assembly

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"coursegen/internal/course"
	"coursegen/internal/encoder"
	"coursegen/internal/fileutil"
	"coursegen/internal/logging"
	"coursegen/internal/services"
)

const (
	StageProbe     = "probe"
	StageBase      = "base video"
	StageSubtitles = "subtitles"
	StageMusic     = "music"
)

// Prober measures media durations.
type Prober interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// Request describes one lesson video.
type Request struct {
	AudioPath string
	Title     string
	Text      string
	Options   course.ProcessingOptions
	// OutputDir receives every stage output; BaseName prefixes their names
	// and should identify the lesson content.
	OutputDir string
	BaseName  string
}

// Result is the finished lesson video.
type Result struct {
	VideoPath    string
	SubtitlePath string
	Duration     time.Duration
	Cues         []course.Cue
}

// Options tune the default stage implementations.
type Options struct {
	FontFile    string
	MusicFile   string
	MusicVolume float64
}

// Option customizes an Assembler.
type Option func(*Assembler)

// WithVisualBackend replaces the colour card renderer.
func WithVisualBackend(v VisualBackend) Option {
	return func(a *Assembler) {
		if v != nil {
			a.visual = v
		}
	}
}

// WithMusicSource replaces the background music source.
func WithMusicSource(m MusicSource) Option {
	return func(a *Assembler) {
		if m != nil {
			a.music = m
		}
	}
}

// Assembler turns narration into a lesson video through append-only stages.
// Each stage writes a new file and reuses it when it already exists, so a
// failed assembly can be retried without redoing finished work.
type Assembler struct {
	runner      encoder.Runner
	prober      Prober
	visual      VisualBackend
	music       MusicSource
	musicVolume float64
	logger      *slog.Logger
}

// New constructs an assembler.
func New(runner encoder.Runner, prober Prober, opts Options, logger *slog.Logger, options ...Option) *Assembler {
	a := &Assembler{
		runner:      runner,
		prober:      prober,
		visual:      NewColourCard(runner, opts.FontFile),
		musicVolume: opts.MusicVolume,
		logger:      logging.NewComponentLogger(logger, "assembly"),
	}
	if strings.TrimSpace(opts.MusicFile) != "" {
		a.music = FileMusic{Path: opts.MusicFile}
	} else {
		a.music = NewGeneratedMusic(runner)
	}
	if a.musicVolume <= 0 || a.musicVolume > 1 {
		a.musicVolume = 0.3
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

// Assemble renders the base video, burns in subtitles and mixes background
// music as requested by the options.
func (a *Assembler) Assemble(ctx context.Context, req Request) (Result, error) {
	if !fileutil.NonEmpty(req.AudioPath) {
		return Result{}, stageError(StageProbe, services.Wrap(services.ErrValidation, "assembly", "assemble", "narration audio missing or empty", nil))
	}
	if strings.TrimSpace(req.OutputDir) == "" || strings.TrimSpace(req.BaseName) == "" {
		return Result{}, stageError(StageBase, services.Wrap(services.ErrConfiguration, "assembly", "assemble", "output location required", nil))
	}
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return Result{}, stageError(StageBase, services.Wrap(services.ErrConfiguration, "assembly", "assemble", "create output directory", err))
	}
	logger := logging.WithContext(ctx, a.logger)

	duration, err := a.prober.Duration(ctx, req.AudioPath)
	if err != nil {
		return Result{}, stageError(StageProbe, err)
	}
	cues := BuildCues(req.Text, duration)

	base := filepath.Join(req.OutputDir, req.BaseName+".base.mp4")
	err = a.stage(base, func(tmp string) error {
		return a.visual.Render(ctx, VisualRequest{
			Title:     req.Title,
			Text:      req.Text,
			AudioPath: req.AudioPath,
			Duration:  duration,
			Quality:   req.Options.Quality,
			Output:    tmp,
		})
	})
	if err != nil {
		return Result{}, stageError(StageBase, err)
	}

	subtitled, srtPath, err := a.BurnSubtitles(ctx, base, cues, filepath.Join(req.OutputDir, req.BaseName))
	if err != nil {
		return Result{}, err
	}
	final, err := a.MixMusic(ctx, subtitled, duration, req.Options, filepath.Join(req.OutputDir, req.BaseName))
	if err != nil {
		return Result{}, err
	}

	logger.Info("lesson video assembled",
		logging.String("video", final),
		logging.Duration("duration", duration),
		logging.Int("cues", len(cues)),
		logging.String(logging.FieldEventType, "video_assembled"),
	)
	return Result{VideoPath: final, SubtitlePath: srtPath, Duration: duration, Cues: cues}, nil
}

// BurnSubtitles writes cues to SRT and burns them into video, returning the
// new video path and the SRT path. Without cues it returns video unchanged.
func (a *Assembler) BurnSubtitles(ctx context.Context, video string, cues []course.Cue, prefix string) (string, string, error) {
	if len(cues) == 0 {
		return video, "", nil
	}
	srtPath := prefix + ".srt"
	if err := fileutil.WriteFileAtomic(srtPath, []byte(FormatSRT(cues)), 0o644); err != nil {
		return "", "", stageError(StageSubtitles, services.Wrap(services.ErrTransient, "assembly", "write srt", "", err))
	}
	output := prefix + ".subtitled.mp4"
	err := a.stage(output, func(tmp string) error {
		args := []string{
			"-i", video,
			"-vf", "subtitles=" + escapeFilterValue(srtPath),
			"-c:v", "libx264", "-preset", "veryfast", "-pix_fmt", "yuv420p",
			"-c:a", "copy",
		}
		return a.runner.Run(ctx, args, tmp)
	})
	if err != nil {
		return "", "", stageError(StageSubtitles, err)
	}
	return output, srtPath, nil
}

// MixMusic lays background music under the narration of video. It returns
// video unchanged unless opts request background music.
func (a *Assembler) MixMusic(ctx context.Context, video string, duration time.Duration, opts course.ProcessingOptions, prefix string) (string, error) {
	if !opts.BackgroundMusic {
		return video, nil
	}
	track, err := a.music.Track(ctx, duration, filepath.Dir(prefix))
	if err != nil {
		return "", stageError(StageMusic, err)
	}
	output := prefix + ".music.mp4"
	filter := fmt.Sprintf("[0:a]volume=1.0[narration];[1:a]volume=%.2f[music];[narration][music]amix=inputs=2:duration=first[mix]", a.musicVolume)
	err = a.stage(output, func(tmp string) error {
		args := []string{
			"-i", video,
			"-i", track,
			"-filter_complex", filter,
			"-map", "0:v", "-map", "[mix]",
			"-c:v", "copy", "-c:a", "aac", "-b:a", "128k",
		}
		return a.runner.Run(ctx, args, tmp)
	})
	if err != nil {
		return "", stageError(StageMusic, err)
	}
	return output, nil
}

// stage produces output once; an existing non-empty file is reused.
func (a *Assembler) stage(output string, render func(tmp string) error) error {
	if fileutil.NonEmpty(output) {
		a.logger.Debug("reusing stage output", logging.String("path", output))
		return nil
	}
	return fileutil.WriteAtomic(output, render)
}
