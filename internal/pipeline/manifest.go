package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"coursegen/internal/assembly"
	"coursegen/internal/course"
	"coursegen/internal/fileutil"
	"coursegen/internal/observability"
)

// Published file names.
const (
	ManifestFile     = "course-manifest.json"
	PlayerConfigFile = "player-config.json"
	IndexFile        = "index.html"
	PackageMetaFile  = "metadata.json"
	lessonsDir       = "lessons"
	manifestVersion  = "1.0"
)

// Manifest describes a published course directory.
type Manifest struct {
	Version        string           `json:"version"`
	Course         ManifestCourse   `json:"course"`
	Assets         ManifestAssets   `json:"assets"`
	Lessons        []ManifestLesson `json:"lessons"`
	SkippedLessons []string         `json:"skippedLessons,omitempty"`
}

// ManifestCourse carries course-level metadata.
type ManifestCourse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Author      string    `json:"author"`
	Language    string    `json:"language"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ManifestAssets summarises what the course directory contains.
type ManifestAssets struct {
	TotalLessons  int    `json:"totalLessons"`
	HasVideo      bool   `json:"hasVideo"`
	HasAudio      bool   `json:"hasAudio"`
	HasSubtitles  bool   `json:"hasSubtitles"`
	TotalDuration string `json:"totalDuration"`
}

// ManifestLesson lists one lesson and its files.
type ManifestLesson struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Order    int     `json:"order"`
	Duration string  `json:"duration"`
	Files    []Asset `json:"files"`
}

// Asset is a published file with its integrity data. Path is relative to the
// course directory.
type Asset struct {
	Kind     string `json:"kind"`
	Language string `json:"language,omitempty"`
	Path     string `json:"path"`
	SHA256   string `json:"sha256"`
	Size     int64  `json:"size"`
}

// PlayerConfig is consumed by the course player.
type PlayerConfig struct {
	CourseID     string         `json:"courseId"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	TotalLessons int            `json:"totalLessons"`
	Lessons      []PlayerLesson `json:"lessons"`
	Settings     PlayerSettings `json:"settings"`
}

// PlayerLesson is one playlist entry.
type PlayerLesson struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Order           int              `json:"order"`
	DurationSeconds float64          `json:"duration"`
	VideoURL        string           `json:"videoUrl,omitempty"`
	AudioURL        string           `json:"audioUrl,omitempty"`
	Subtitles       []PlayerSubtitle `json:"subtitles,omitempty"`
}

// PlayerSubtitle references a subtitle track.
type PlayerSubtitle struct {
	Language string `json:"language"`
	URL      string `json:"url"`
}

// PlayerSettings are player defaults.
type PlayerSettings struct {
	Autoplay        bool   `json:"autoplay"`
	ShowControls    bool   `json:"showControls"`
	EnableSubtitles bool   `json:"enableSubtitles"`
	DefaultLanguage string `json:"defaultLanguage"`
	Theme           string `json:"theme"`
}

// PublishError reports that a finished course could not be written out.
type PublishError struct {
	Op  string
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish course: %s: %v", e.Op, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// Summary describes the failure without paths.
func (e *PublishError) Summary() string {
	return "course could not be published (" + e.Op + ")"
}

// Publish copies lesson assets into outputDir/<course id>, writes the
// manifest, player config, HTML index, package metadata and a zip of the
// whole course, and points the lesson references at the published files. The directory is staged and renamed into place, so a failed publish
// leaves nothing behind. It returns the course directory.
func Publish(ctx context.Context, c *course.Course, outputDir string, skipped []string) (dir string, err error) {
	_, span := observability.Tracer("coursegen/pipeline").Start(ctx, "course.publish")
	defer func() { observability.EndSpan(span, err) }()

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", &PublishError{Op: "create output directory", Err: err}
	}
	final := filepath.Join(outputDir, c.ID)
	if _, err := os.Stat(final); err == nil {
		return "", &PublishError{Op: "create course directory", Err: fmt.Errorf("%s already exists", final)}
	}
	staging, err := os.MkdirTemp(outputDir, "."+c.ID+".partial-")
	if err != nil {
		return "", &PublishError{Op: "create staging directory", Err: err}
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(staging)
		}
	}()
	if err := os.Chmod(staging, 0o755); err != nil {
		return "", &PublishError{Op: "create staging directory", Err: err}
	}
	if err := os.MkdirAll(filepath.Join(staging, lessonsDir), 0o755); err != nil {
		return "", &PublishError{Op: "create lessons directory", Err: err}
	}

	manifest := Manifest{
		Version: manifestVersion,
		Course: ManifestCourse{
			ID:          c.ID,
			Title:       c.Title,
			Description: c.Description,
			Author:      c.Metadata.Author,
			Language:    c.Metadata.Language,
			Tags:        append([]string{}, c.Metadata.Tags...),
			CreatedAt:   c.CreatedAt,
		},
		Lessons:        make([]ManifestLesson, 0, len(c.Lessons)),
		SkippedLessons: skipped,
	}
	player := PlayerConfig{
		CourseID:     c.ID,
		Title:        c.Title,
		Description:  c.Description,
		TotalLessons: len(c.Lessons),
		Lessons:      make([]PlayerLesson, 0, len(c.Lessons)),
		Settings: PlayerSettings{
			ShowControls:    true,
			EnableSubtitles: true,
			DefaultLanguage: c.Metadata.Language,
			Theme:           "default",
		},
	}

	refs := make([]course.Lesson, len(c.Lessons))
	for i, l := range c.Lessons {
		entry, playerEntry, err := publishLesson(staging, l)
		if err != nil {
			return "", err
		}
		manifest.Lessons = append(manifest.Lessons, entry)
		player.Lessons = append(player.Lessons, playerEntry)
		refs[i] = l
		for _, asset := range entry.Files {
			switch asset.Kind {
			case "video":
				manifest.Assets.HasVideo = true
				refs[i].VideoRef = filepath.Join(final, asset.Path)
			case "audio":
				manifest.Assets.HasAudio = true
				refs[i].AudioRef = filepath.Join(final, asset.Path)
			case "subtitles":
				manifest.Assets.HasSubtitles = true
			}
		}
	}
	manifest.Assets.TotalLessons = len(c.Lessons)
	manifest.Assets.TotalDuration = formatClock(c.Metadata.TotalDuration)

	if err := writeJSON(filepath.Join(staging, ManifestFile), manifest); err != nil {
		return "", &PublishError{Op: "write manifest", Err: err}
	}
	if err := writeJSON(filepath.Join(staging, PlayerConfigFile), player); err != nil {
		return "", &PublishError{Op: "write player config", Err: err}
	}
	if err := writeIndex(staging, manifest); err != nil {
		return "", &PublishError{Op: "write course index", Err: err}
	}
	if err := writePackageMetadata(staging, manifest); err != nil {
		return "", &PublishError{Op: "write package metadata", Err: err}
	}
	if err := writeArchive(staging, c.ID, c.CreatedAt); err != nil {
		return "", &PublishError{Op: "package course", Err: err}
	}
	if err := os.Rename(staging, final); err != nil {
		return "", &PublishError{Op: "finalize course directory", Err: err}
	}
	copy(c.Lessons, refs)
	return final, nil
}

func publishLesson(staging string, l course.Lesson) (ManifestLesson, PlayerLesson, error) {
	base := fmt.Sprintf("lesson-%03d", l.Order+1)
	entry := ManifestLesson{
		ID:       l.ID,
		Title:    l.Title,
		Order:    l.Order,
		Duration: formatClock(l.Duration),
		Files:    []Asset{},
	}
	playerEntry := PlayerLesson{
		ID:              l.ID,
		Title:           l.Title,
		Order:           l.Order,
		DurationSeconds: l.Duration.Seconds(),
	}

	for _, src := range []struct {
		kind string
		path string
	}{{"video", l.VideoRef}, {"audio", l.AudioRef}} {
		if src.path == "" {
			continue
		}
		rel := filepath.Join(lessonsDir, base+filepath.Ext(src.path))
		asset, err := copyAsset(src.path, staging, rel)
		if err != nil {
			return ManifestLesson{}, PlayerLesson{}, &PublishError{Op: "copy lesson " + src.kind, Err: err}
		}
		asset.Kind = src.kind
		entry.Files = append(entry.Files, asset)
		if src.kind == "video" {
			playerEntry.VideoURL = filepath.ToSlash(rel)
		} else {
			playerEntry.AudioURL = filepath.ToSlash(rel)
		}
	}

	for _, track := range l.Subtitles {
		if len(track.Cues) == 0 {
			continue
		}
		rel := filepath.Join(lessonsDir, base+"."+track.Language+".srt")
		target := filepath.Join(staging, rel)
		if err := fileutil.WriteFileAtomic(target, []byte(assembly.FormatSRT(track.Cues)), 0o644); err != nil {
			return ManifestLesson{}, PlayerLesson{}, &PublishError{Op: "write subtitles", Err: err}
		}
		digest, size, err := fileutil.Checksum(target)
		if err != nil {
			return ManifestLesson{}, PlayerLesson{}, &PublishError{Op: "checksum subtitles", Err: err}
		}
		entry.Files = append(entry.Files, Asset{
			Kind:     "subtitles",
			Language: track.Language,
			Path:     filepath.ToSlash(rel),
			SHA256:   digest,
			Size:     size,
		})
		playerEntry.Subtitles = append(playerEntry.Subtitles, PlayerSubtitle{Language: track.Language, URL: filepath.ToSlash(rel)})
	}
	return entry, playerEntry, nil
}

func copyAsset(src, staging, rel string) (Asset, error) {
	target := filepath.Join(staging, rel)
	digest, err := fileutil.CopyFileVerified(src, target)
	if err != nil {
		return Asset{}, err
	}
	info, err := os.Stat(target)
	if err != nil {
		return Asset{}, err
	}
	return Asset{Path: filepath.ToSlash(rel), SHA256: digest, Size: info.Size()}, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644)
}

// ReadManifest loads the manifest of a published course directory.
func ReadManifest(dir string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}

// formatClock renders d as H:MM:SS.
func formatClock(d time.Duration) string {
	total := int(d.Round(time.Second) / time.Second)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
