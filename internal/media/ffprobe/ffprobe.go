package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"coursegen/internal/services"
)

// Entries is the subset of ffprobe output the generator reads. ffprobe
// reports durations as decimal strings, or "N/A" when unknown.
type Entries struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []StreamEntry `json:"streams"`
}

type StreamEntry struct {
	CodecType string `json:"codec_type"`
	Duration  string `json:"duration"`
}

// Parse decodes ffprobe JSON output.
func Parse(output []byte) (Entries, error) {
	var e Entries
	if err := json.Unmarshal(output, &e); err != nil {
		return Entries{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return e, nil
}

// Has reports whether any stream is of the given codec type ("audio", "video").
func (e Entries) Has(codecType string) bool {
	for _, s := range e.Streams {
		if strings.EqualFold(s.CodecType, codecType) {
			return true
		}
	}
	return false
}

// Duration is the container duration, or the longest stream duration when
// the container does not report one. Zero means unknown.
func (e Entries) Duration() time.Duration {
	secs := parseSeconds(e.Format.Duration)
	if secs == 0 {
		for _, s := range e.Streams {
			secs = max(secs, parseSeconds(s.Duration))
		}
	}
	return time.Duration(secs * float64(time.Second))
}

func parseSeconds(value string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	return v
}

// Prober measures media with an ffprobe binary. An empty Binary runs
// "ffprobe" from PATH.
type Prober struct {
	Binary string
}

// Inspect runs ffprobe against path.
func (p Prober) Inspect(ctx context.Context, path string) (Entries, error) {
	if strings.TrimSpace(path) == "" {
		return Entries{}, services.Wrap(services.ErrValidation, "ffprobe", "inspect", "empty path", nil)
	}
	binary := strings.TrimSpace(p.Binary)
	if binary == "" {
		binary = "ffprobe"
	}
	out, err := exec.CommandContext(ctx, binary,
		"-v", "error",
		"-show_entries", "format=duration:stream=codec_type,duration",
		"-of", "json",
		"--", path,
	).Output()
	if err != nil {
		var detail string
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			detail = strings.TrimSpace(string(exitErr.Stderr))
		}
		if ctx.Err() != nil {
			return Entries{}, services.Wrap(services.ErrTimeout, "ffprobe", "inspect", detail, ctx.Err())
		}
		return Entries{}, services.Wrap(services.ErrExternalTool, "ffprobe", "inspect", detail, err)
	}
	return Parse(out)
}

// Duration reports the playable length of the media file at path.
func (p Prober) Duration(ctx context.Context, path string) (time.Duration, error) {
	entries, err := p.Inspect(ctx, path)
	if err != nil {
		return 0, err
	}
	if d := entries.Duration(); d > 0 {
		return d, nil
	}
	return 0, services.Wrap(services.ErrValidation, "ffprobe", "duration", "no duration reported for "+path, nil)
}
