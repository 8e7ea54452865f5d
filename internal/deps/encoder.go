package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"coursegen/internal/config"
)

// Requirements lists the binaries needed to render lessons with cfg.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:    "FFmpeg",
			Command: cfg.Encoder.FFmpegBinary,
			Purpose: "Renders narration, lesson video and subtitles",
		},
		{
			Name:    "FFprobe",
			Command: cfg.Encoder.FFprobeBinary,
			Purpose: "Measures narration and video durations",
		},
	}
}

type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func defaultRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// VersionProbe reads tool versions via "<binary> -version".
type VersionProbe struct {
	Timeout time.Duration
	run     commandRunner
}

// NewVersionProbe constructs a probe with a five second default timeout.
func NewVersionProbe() *VersionProbe {
	return &VersionProbe{Timeout: 5 * time.Second, run: defaultRunner}
}

// WithCommandRunner replaces process execution, mainly for tests.
func (p *VersionProbe) WithCommandRunner(fn func(ctx context.Context, name string, args ...string) ([]byte, error)) *VersionProbe {
	if fn != nil {
		p.run = fn
	}
	return p
}

// Version returns the first line the binary prints for -version, e.g.
// "ffmpeg version 7.1 Copyright (c) 2000-2024 the FFmpeg developers".
func (p *VersionProbe) Version(ctx context.Context, binary string) (string, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	output, err := p.run(ctx, binary, "-version")
	if err != nil {
		return "", fmt.Errorf("%s -version: %w", binary, err)
	}
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line, nil
		}
	}
	return "", fmt.Errorf("%s -version: no output", binary)
}
