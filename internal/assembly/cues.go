package assembly

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"coursegen/internal/course"
	"coursegen/internal/textutil"
)

// BuildCues splits text into sentences and spreads duration across them in
// proportion to their word counts. Cues are contiguous, start at zero and the
// last one ends exactly at duration.
func BuildCues(text string, duration time.Duration) []course.Cue {
	sentences := textutil.SplitSentences(text)
	if len(sentences) == 0 || duration <= 0 {
		return nil
	}
	weights := make([]int64, len(sentences))
	var total int64
	for i, s := range sentences {
		weights[i] = int64(max(textutil.WordCount(s), 1))
		total += weights[i]
	}
	cues := make([]course.Cue, 0, len(sentences))
	var cumulative int64
	start := time.Duration(0)
	for i, s := range sentences {
		cumulative += weights[i]
		end := time.Duration(int64(duration) * cumulative / total)
		if i == len(sentences)-1 {
			end = duration
		}
		cues = append(cues, course.Cue{Start: start, End: end, Text: s})
		start = end
	}
	return cues
}

// FormatSRT renders cues as a SubRip document.
func FormatSRT(cues []course.Cue) string {
	var b strings.Builder
	for i, cue := range cues {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString("\n")
		b.WriteString(formatSRTTimestamp(cue.Start))
		b.WriteString(" --> ")
		b.WriteString(formatSRTTimestamp(cue.End))
		b.WriteString("\n")
		b.WriteString(cue.Text)
		b.WriteString("\n")
	}
	return b.String()
}

func formatSRTTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	msTotal := int64(d / time.Millisecond)
	hours := msTotal / 3_600_000
	msTotal %= 3_600_000
	minutes := msTotal / 60_000
	msTotal %= 60_000
	secs := msTotal / 1_000
	millis := msTotal % 1_000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}
