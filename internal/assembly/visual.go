package assembly

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"coursegen/internal/course"
	"coursegen/internal/encoder"
	"coursegen/internal/services"
)

// VisualRequest describes the base video for one lesson.
type VisualRequest struct {
	Title     string
	Text      string
	AudioPath string
	Duration  time.Duration
	Quality   course.Quality
	Output    string
}

// VisualBackend renders a narrated base video to req.Output.
type VisualBackend interface {
	Render(ctx context.Context, req VisualRequest) error
}

// palette holds the card background colours.
var palette = [...]string{
	"4A90E2", "50C878", "9B59B6", "F39C12",
	"E74C3C", "1ABC9C", "34495E", "E67E22",
}

// Resolution returns the output frame size for a quality level.
func Resolution(q course.Quality) (width, height int) {
	switch q {
	case course.QualityDraft:
		return 854, 480
	case course.QualityHigh:
		return 1920, 1080
	default:
		return 1280, 720
	}
}

// CardColour picks a stable palette entry for lesson content.
func CardColour(title, text string) string {
	sum := sha256.Sum256([]byte(title + "\x00" + text))
	return palette[int(sum[0])%len(palette)]
}

// ColourCard renders a solid colour card with the lesson title over the
// narration.
type ColourCard struct {
	runner   encoder.Runner
	fontFile string
}

// NewColourCard constructs the default visual backend.
func NewColourCard(runner encoder.Runner, fontFile string) *ColourCard {
	return &ColourCard{runner: runner, fontFile: strings.TrimSpace(fontFile)}
}

// Render implements VisualBackend.
func (c *ColourCard) Render(ctx context.Context, req VisualRequest) error {
	if c == nil || c.runner == nil {
		return services.Wrap(services.ErrConfiguration, "assembly", "render", "encoder runner not configured", nil)
	}
	width, height := Resolution(req.Quality)
	source := fmt.Sprintf("color=c=0x%s:s=%dx%d:r=25:d=%.3f",
		CardColour(req.Title, req.Text), width, height, max(req.Duration.Seconds(), 1))

	draw := []string{
		"text='" + escapeDrawtext(req.Title) + "'",
		"fontcolor=white",
		"fontsize=h/14",
		"x=(w-text_w)/2",
		"y=(h-text_h)/2",
	}
	if c.fontFile != "" {
		draw = append([]string{"fontfile='" + escapeFilterValue(c.fontFile) + "'"}, draw...)
	}

	args := []string{
		"-f", "lavfi", "-i", source,
		"-i", req.AudioPath,
		"-vf", "drawtext=" + strings.Join(draw, ":"),
		"-map", "0:v", "-map", "1:a",
		"-c:v", "libx264", "-preset", "veryfast", "-pix_fmt", "yuv420p",
		"-c:a", "aac", "-b:a", "128k",
		"-shortest",
	}
	return c.runner.Run(ctx, args, req.Output)
}

// escapeDrawtext escapes text for a single-quoted drawtext value.
func escapeDrawtext(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	replacer := strings.NewReplacer(
		`\`, `\\\\`,
		`'`, `'\\\''`,
		`:`, `\:`,
		`%`, `\\%`,
	)
	return replacer.Replace(text)
}

// escapeFilterValue escapes a path used inside a filter argument.
func escapeFilterValue(value string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
	)
	return replacer.Replace(value)
}
