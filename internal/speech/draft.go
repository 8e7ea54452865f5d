package speech

import (
	"context"
	"fmt"
	"time"

	"coursegen/internal/encoder"
	"coursegen/internal/services"
	"coursegen/internal/textutil"
)

// draftWordsPerMinute sizes placeholder narration like an unhurried speaker.
const draftWordsPerMinute = 150

// Draft renders placeholder narration locally with ffmpeg: a quiet tone whose
// length tracks the word count of the text.
type Draft struct {
	runner encoder.Runner
}

// NewDraft constructs the draft backend on top of an encoder runner.
func NewDraft(runner encoder.Runner) *Draft {
	return &Draft{runner: runner}
}

// DraftDuration returns the narration length used for text.
func DraftDuration(text string) time.Duration {
	words := textutil.WordCount(text)
	d := time.Duration(words) * time.Minute / draftWordsPerMinute
	if d < time.Second {
		d = time.Second
	}
	return d
}

// Synthesize implements Synthesizer.
func (d *Draft) Synthesize(ctx context.Context, req Request) error {
	if d == nil || d.runner == nil {
		return services.Wrap(services.ErrConfiguration, "speech", "draft", "encoder runner not configured", nil)
	}
	seconds := DraftDuration(req.Text).Seconds()
	source := fmt.Sprintf("sine=frequency=220:sample_rate=22050:duration=%.2f", seconds)
	args := []string{
		"-f", "lavfi", "-i", source,
		"-af", "volume=0.05",
		"-ac", "1",
		"-c:a", "pcm_s16le",
	}
	return d.runner.Run(ctx, args, req.Output)
}
