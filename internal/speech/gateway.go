package speech

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"coursegen/internal/course"
	"coursegen/internal/encoder"
	"coursegen/internal/fileutil"
	"coursegen/internal/logging"
	"coursegen/internal/services"
	"coursegen/internal/textutil"
)

// Request is one synthesis call handed to a backend. Output is the path the
// backend must write; the gateway owns its location and lifecycle.
type Request struct {
	Text     string
	Voice    string
	Language string
	Quality  course.Quality
	Output   string
}

// Synthesizer turns text into an audio file.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) error
}

// SynthesizerFunc adapts a function to Synthesizer.
type SynthesizerFunc func(ctx context.Context, req Request) error

// Synthesize calls f.
func (f SynthesizerFunc) Synthesize(ctx context.Context, req Request) error { return f(ctx, req) }

// Options tune gateway behaviour.
type Options struct {
	// Hint forces a backend; empty or "auto" selects per request.
	Hint       string
	WorkDir    string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	// ChunkSize bounds the characters sent per backend call; 0 disables chunking.
	ChunkSize         int
	RequestsPerSecond float64
	Burst             int
}

// Gateway routes narration requests to registered backends and owns retries,
// rate limiting, chunking and output placement.
type Gateway struct {
	opts    Options
	logger  *slog.Logger
	joiner  encoder.Runner
	limiter *rate.Limiter

	mu       sync.RWMutex
	backends map[Backend]Synthesizer
}

// NewGateway constructs a gateway. joiner concatenates chunk audio and may be
// nil when chunking is disabled.
func NewGateway(opts Options, joiner encoder.Runner, logger *slog.Logger) *Gateway {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 500 * time.Millisecond
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if strings.TrimSpace(opts.WorkDir) == "" {
		opts.WorkDir = os.TempDir()
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := max(opts.Burst, 1)
	return &Gateway{
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "speech"),
		joiner:   joiner,
		limiter:  rate.NewLimiter(limit, burst),
		backends: make(map[Backend]Synthesizer),
	}
}

// Register installs the implementation for a backend, replacing any previous one.
func (g *Gateway) Register(backend Backend, synth Synthesizer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if synth == nil {
		delete(g.backends, backend)
		return
	}
	g.backends[backend] = synth
}

// Registered reports whether a backend has an implementation.
func (g *Gateway) Registered(backend Backend) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.backends[backend]
	return ok
}

func (g *Gateway) resolve(opts course.ProcessingOptions) (Backend, Synthesizer, error) {
	selected := Select(opts, g.opts.Hint)
	g.mu.RLock()
	synth, ok := g.backends[selected]
	fallback, fallbackOK := g.backends[BackendDraft]
	g.mu.RUnlock()
	if ok {
		return selected, synth, nil
	}
	if fallbackOK {
		logging.WarnWithContext(g.logger, "speech backend not registered; using draft narration", "speech_backend_fallback",
			logging.String("requested_backend", string(selected)),
			logging.String(logging.FieldImpact, "lesson narration uses placeholder audio"),
		)
		return BackendDraft, fallback, nil
	}
	return selected, nil, &SynthesisError{
		Backend: selected,
		Err:     services.Wrap(services.ErrConfiguration, "speech", "select backend", "no backend registered for "+string(selected), nil),
	}
}

// Synthesize narrates text and returns the path of the audio file. The path
// is derived from the job, lesson and request content carried by ctx and
// opts, so repeating a call reuses the previous result.
func (g *Gateway) Synthesize(ctx context.Context, text string, opts course.ProcessingOptions) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &SynthesisError{Err: services.Wrap(services.ErrValidation, "speech", "synthesize", "empty text", nil)}
	}
	backend, synth, err := g.resolve(opts)
	if err != nil {
		return "", err
	}

	base := Request{
		Voice:    VoiceName(opts.Voice),
		Language: opts.PrimaryLanguage(),
		Quality:  opts.Quality,
	}
	output := g.outputPath(ctx, backend, base, text)
	if fileutil.NonEmpty(output) {
		g.logger.Debug("reusing narration", logging.String("path", output))
		return output, nil
	}

	chunks := textutil.Chunk(text, g.opts.ChunkSize)
	logger := logging.WithContext(ctx, g.logger)
	logger.Debug("synthesizing narration",
		logging.String("backend", string(backend)),
		logging.Int("chunks", len(chunks)),
		logging.Int("characters", len(text)),
	)

	err = fileutil.WriteAtomic(output, func(tmp string) error {
		if len(chunks) == 1 || g.joiner == nil {
			req := base
			req.Text = strings.Join(chunks, " ")
			req.Output = tmp
			return g.call(ctx, synth, req)
		}
		return g.synthesizeChunks(ctx, synth, base, chunks, tmp)
	})
	if err != nil {
		var synthErr *SynthesisError
		if errors.As(err, &synthErr) {
			synthErr.Backend = backend
			return "", synthErr
		}
		return "", &SynthesisError{Backend: backend, Err: err}
	}
	logger.Info("narration ready",
		logging.String("backend", string(backend)),
		logging.String("path", output),
		logging.String(logging.FieldEventType, "narration_ready"),
	)
	return output, nil
}

func (g *Gateway) synthesizeChunks(ctx context.Context, synth Synthesizer, base Request, chunks []string, output string) error {
	dir, err := os.MkdirTemp(filepath.Dir(output), ".chunks-*")
	if err != nil {
		return services.Wrap(services.ErrTransient, "speech", "chunk workspace", "", err)
	}
	defer os.RemoveAll(dir)

	var list strings.Builder
	for i, chunk := range chunks {
		req := base
		req.Text = chunk
		req.Output = filepath.Join(dir, fmt.Sprintf("chunk-%03d%s", i, filepath.Ext(output)))
		if err := g.call(ctx, synth, req); err != nil {
			return err
		}
		list.WriteString("file '" + strings.ReplaceAll(req.Output, "'", `'\''`) + "'\n")
	}
	listPath := filepath.Join(dir, "concat.txt")
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "speech", "concat list", "", err)
	}
	args := []string{"-f", "concat", "-safe", "0", "-i", listPath, "-c", "copy"}
	if err := g.joiner.Run(ctx, args, output); err != nil {
		return &SynthesisError{Err: err}
	}
	return nil
}

// call performs one backend request with rate limiting, a per-attempt timeout
// and linear backoff between retryable failures.
func (g *Gateway) call(ctx context.Context, synth Synthesizer, req Request) error {
	var lastErr error
	for attempt := 0; attempt <= g.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * g.opts.RetryDelay
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return &SynthesisError{Err: services.Wrap(services.ErrCancelled, "speech", "retry", "", ctx.Err())}
			case <-timer.C:
			}
		}
		if err := g.limiter.Wait(ctx); err != nil {
			return &SynthesisError{Err: services.Wrap(services.ErrCancelled, "speech", "rate limit", "", err)}
		}
		lastErr = g.attempt(ctx, synth, req)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil || !services.Retryable(lastErr) {
			break
		}
		g.logger.Debug("speech attempt failed",
			logging.Int("attempt", attempt+1),
			logging.Error(lastErr),
		)
	}
	return &SynthesisError{Err: lastErr}
}

func (g *Gateway) attempt(ctx context.Context, synth Synthesizer, req Request) error {
	callCtx := ctx
	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}
	err := synth.Synthesize(callCtx, req)
	switch {
	case err == nil:
		if !fileutil.NonEmpty(req.Output) {
			return services.Wrap(services.ErrExternalTool, "speech", "synthesize", "backend produced no audio", nil)
		}
		return nil
	case ctx.Err() != nil:
		return services.Wrap(services.ErrCancelled, "speech", "synthesize", "", ctx.Err())
	case errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, "speech", "synthesize", "backend call exceeded "+g.opts.Timeout.String(), err)
	default:
		return err
	}
}

func (g *Gateway) outputPath(ctx context.Context, backend Backend, req Request, text string) string {
	jobID, ok := services.JobIDFromContext(ctx)
	if !ok {
		jobID = "adhoc"
	}
	order := "x"
	if o, ok := services.LessonOrderFromContext(ctx); ok {
		order = strconv.Itoa(o)
	}
	sum := sha256.New()
	for _, part := range []string{string(backend), req.Voice, req.Language, string(req.Quality), text} {
		sum.Write([]byte(part))
		sum.Write([]byte{0})
	}
	digest := hex.EncodeToString(sum.Sum(nil))[:16]
	name := fmt.Sprintf("narration-%s-%s.wav", order, digest)
	return filepath.Join(g.opts.WorkDir, textutil.SanitizeToken(jobID), name)
}
