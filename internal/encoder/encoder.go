package encoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"coursegen/internal/services"
)

// Runner executes one encoder invocation that must produce output.
type Runner interface {
	Run(ctx context.Context, args []string, output string) error
}

// commandRunner executes the binary and returns its combined output.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs ffmpeg as a subprocess. Success means the process exited
// zero and left a non-empty file at the output path.
type ExecRunner struct {
	Binary  string
	Timeout time.Duration

	run commandRunner
}

// NewExecRunner constructs a runner for the given ffmpeg binary.
func NewExecRunner(binary string, timeout time.Duration) *ExecRunner {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &ExecRunner{Binary: binary, Timeout: timeout, run: defaultCommandRunner}
}

// WithCommandRunner overrides the command execution function (used in tests).
func (r *ExecRunner) WithCommandRunner(fn func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	if r != nil && fn != nil {
		r.run = fn
	}
}

// Run invokes the encoder with args followed by the output path.
func (r *ExecRunner) Run(ctx context.Context, args []string, output string) error {
	if r == nil {
		return services.Wrap(services.ErrConfiguration, "encoder", "run", "runner not initialized", nil)
	}
	if strings.TrimSpace(output) == "" {
		return services.Wrap(services.ErrValidation, "encoder", "run", "output path required", nil)
	}
	run := r.run
	if run == nil {
		run = defaultCommandRunner
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	full := make([]string, 0, len(args)+5)
	full = append(full, "-y", "-hide_banner", "-loglevel", "error")
	full = append(full, args...)
	full = append(full, output)

	out, err := run(ctx, r.Binary, full...)
	if err != nil {
		detail := tail(out, 400)
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.Canceled) {
				return services.Wrap(services.ErrCancelled, "encoder", "run", detail, ctxErr)
			}
			return services.Wrap(services.ErrTimeout, "encoder", "run", detail, ctxErr)
		}
		return services.Wrap(services.ErrExternalTool, "encoder", "run", detail, err)
	}
	return VerifyOutput(output)
}

// VerifyOutput reports an error unless path is a non-empty regular file.
func VerifyOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "encoder", "verify output", "no output produced", err)
	}
	if !info.Mode().IsRegular() || info.Size() == 0 {
		return services.Wrap(services.ErrExternalTool, "encoder", "verify output", fmt.Sprintf("empty output (%d bytes)", info.Size()), nil)
	}
	return nil
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// tail keeps the last limit bytes of trimmed tool output.
func tail(out []byte, limit int) string {
	out = bytes.TrimSpace(out)
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return string(out)
}
