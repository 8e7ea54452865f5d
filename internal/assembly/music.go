package assembly

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"coursegen/internal/encoder"
	"coursegen/internal/fileutil"
	"coursegen/internal/services"
)

// MusicSource supplies a background track at least duration long. dir is a
// scratch directory the source may write into.
type MusicSource interface {
	Track(ctx context.Context, duration time.Duration, dir string) (string, error)
}

// FileMusic serves a fixed audio file. The mixer trims it to the narration.
type FileMusic struct {
	Path string
}

// Track implements MusicSource.
func (f FileMusic) Track(_ context.Context, _ time.Duration, _ string) (string, error) {
	path := strings.TrimSpace(f.Path)
	if path == "" {
		return "", services.Wrap(services.ErrConfiguration, "assembly", "music", "music file not configured", nil)
	}
	if _, err := os.Stat(path); err != nil {
		return "", services.Wrap(services.ErrNotFound, "assembly", "music", "music file unavailable", err)
	}
	return path, nil
}

// GeneratedMusic synthesizes a soft two-tone ambient bed with ffmpeg.
type GeneratedMusic struct {
	runner encoder.Runner
}

// NewGeneratedMusic constructs a generated music source.
func NewGeneratedMusic(runner encoder.Runner) *GeneratedMusic {
	return &GeneratedMusic{runner: runner}
}

// Track implements MusicSource. Tracks are cached per whole-second length.
func (g *GeneratedMusic) Track(ctx context.Context, duration time.Duration, dir string) (string, error) {
	if g == nil || g.runner == nil {
		return "", services.Wrap(services.ErrConfiguration, "assembly", "music", "encoder runner not configured", nil)
	}
	seconds := int(duration.Seconds()) + 1
	path := filepath.Join(dir, fmt.Sprintf("ambient-%ds.wav", seconds))
	if fileutil.NonEmpty(path) {
		return path, nil
	}
	source := fmt.Sprintf("aevalsrc=0.1*sin(2*PI*110*t)+0.08*sin(2*PI*165*t):s=44100:d=%d", seconds)
	err := fileutil.WriteAtomic(path, func(tmp string) error {
		return g.runner.Run(ctx, []string{"-f", "lavfi", "-i", source, "-c:a", "pcm_s16le"}, tmp)
	})
	if err != nil {
		return "", err
	}
	return path, nil
}
