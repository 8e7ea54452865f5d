package course

import (
	"time"
)

// Document is a generation request: raw text plus optional option overrides.
type Document struct {
	Text    []byte
	Options *ProcessingOptions
	// Name identifies the source (usually the file name) in logs and manifests.
	Name string
}

// Section is a titled span of source text that becomes one lesson.
type Section struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Order int    `json:"order"`
}

// Cue is one timed subtitle line.
type Cue struct {
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
	Text  string        `json:"text"`
}

// Subtitle is the cue track for one language.
type Subtitle struct {
	Language string `json:"language"`
	Cues     []Cue  `json:"cues"`
}

// Lesson is the generated artifact for one section.
type Lesson struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Content   string        `json:"content"`
	AudioRef  string        `json:"audioRef,omitempty"`
	VideoRef  string        `json:"videoRef,omitempty"`
	Subtitles []Subtitle    `json:"subtitles"`
	Order     int           `json:"order"`
	Duration  time.Duration `json:"duration"`
}

// Metadata describes authorship and presentation details of a course.
type Metadata struct {
	Author        string        `json:"author"`
	Language      string        `json:"language"`
	Tags          []string      `json:"tags"`
	TotalDuration time.Duration `json:"totalDuration"`
}

// Course is the assembled output of a completed job.
type Course struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Lessons     []Lesson  `json:"lessons"`
	Metadata    Metadata  `json:"metadata"`
	CreatedAt   time.Time `json:"createdAt"`
}
