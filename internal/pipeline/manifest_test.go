package pipeline_test

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"coursegen/internal/course"
	"coursegen/internal/pipeline"
)

func writeAsset(t *testing.T, dir, name, content string) (string, string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write asset: %v", err)
	}
	sum := sha256.Sum256([]byte(content))
	return path, hex.EncodeToString(sum[:])
}

func TestPublishWritesManifestAndPlayerConfig(t *testing.T) {
	work := t.TempDir()
	out := t.TempDir()
	video, videoSum := writeAsset(t, work, "a.mp4", "video bytes")
	audio, audioSum := writeAsset(t, work, "a.wav", "audio bytes")

	c := &course.Course{
		ID:          "course-1",
		Title:       "Go Basics",
		Description: "Intro",
		Metadata:    course.Metadata{Author: "Ada", Language: "en", Tags: []string{"go"}, TotalDuration: 65 * time.Second},
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Lessons: []course.Lesson{{
			ID:       "lesson-1",
			Title:    "Variables",
			VideoRef: video,
			AudioRef: audio,
			Order:    0,
			Duration: 65 * time.Second,
			Subtitles: []course.Subtitle{{Language: "en", Cues: []course.Cue{
				{Start: 0, End: 2 * time.Second, Text: "Declare with var."},
			}}},
		}},
	}

	dir, err := pipeline.Publish(context.Background(), c, out, []string{`lesson 2 "Loops": speech synthesis timed out`})
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if dir != filepath.Join(out, "course-1") {
		t.Fatalf("unexpected course dir %q", dir)
	}

	manifest, err := pipeline.ReadManifest(dir)
	if err != nil {
		t.Fatalf("ReadManifest returned error: %v", err)
	}
	assets := manifest.Assets
	if assets.TotalLessons != 1 || !assets.HasVideo || !assets.HasAudio || !assets.HasSubtitles || assets.TotalDuration != "0:01:05" {
		t.Fatalf("unexpected assets %+v", assets)
	}
	if manifest.Course.Author != "Ada" || manifest.Course.Title != "Go Basics" || len(manifest.SkippedLessons) != 1 {
		t.Fatalf("unexpected manifest %+v", manifest)
	}
	files := manifest.Lessons[0].Files
	if len(files) != 3 {
		t.Fatalf("expected video, audio and subtitles, got %+v", files)
	}
	want := map[string]string{"video": videoSum, "audio": audioSum}
	for _, f := range files {
		if sum, ok := want[f.Kind]; ok && f.SHA256 != sum {
			t.Fatalf("%s checksum %s, want %s", f.Kind, f.SHA256, sum)
		}
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(f.Path))); err != nil {
			t.Fatalf("published file %s missing: %v", f.Path, err)
		}
	}
	if files[2].Kind != "subtitles" || files[2].Path != "lessons/lesson-001.en.srt" {
		t.Fatalf("unexpected subtitle asset %+v", files[2])
	}

	if c.Lessons[0].VideoRef != filepath.Join(dir, "lessons", "lesson-001.mp4") {
		t.Fatalf("video ref not rewritten: %q", c.Lessons[0].VideoRef)
	}

	data, err := os.ReadFile(filepath.Join(dir, pipeline.PlayerConfigFile))
	if err != nil {
		t.Fatalf("read player config: %v", err)
	}
	var player pipeline.PlayerConfig
	if err := json.Unmarshal(data, &player); err != nil {
		t.Fatalf("decode player config: %v", err)
	}
	if player.CourseID != "course-1" || len(player.Lessons) != 1 || player.Lessons[0].VideoURL != "lessons/lesson-001.mp4" {
		t.Fatalf("unexpected player config %+v", player)
	}
	if len(player.Lessons[0].Subtitles) != 1 || player.Settings.DefaultLanguage != "en" {
		t.Fatalf("unexpected player subtitles %+v", player.Lessons[0])
	}
}

func TestPublishLeavesNothingBehindOnFailure(t *testing.T) {
	out := t.TempDir()
	c := &course.Course{
		ID: "course-2",
		Lessons: []course.Lesson{{
			ID:       "l",
			VideoRef: filepath.Join(t.TempDir(), "missing.mp4"),
		}},
	}
	_, err := pipeline.Publish(context.Background(), c, out, nil)
	var publishErr *pipeline.PublishError
	if !errors.As(err, &publishErr) {
		t.Fatalf("expected PublishError, got %v", err)
	}
	if publishErr.Summary() != "course could not be published (copy lesson video)" {
		t.Fatalf("unexpected summary %q", publishErr.Summary())
	}
	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty output dir, found %d entries", len(entries))
	}
}

func TestPublishRefusesExistingCourseDirectory(t *testing.T) {
	out := t.TempDir()
	if err := os.Mkdir(filepath.Join(out, "course-3"), 0o755); err != nil {
		t.Fatal(err)
	}
	_, err := pipeline.Publish(context.Background(), &course.Course{ID: "course-3"}, out, nil)
	var publishErr *pipeline.PublishError
	if !errors.As(err, &publishErr) {
		t.Fatalf("expected PublishError, got %v", err)
	}
}

func TestPublishWritesIndexMetadataAndArchive(t *testing.T) {
	work := t.TempDir()
	out := t.TempDir()
	video, videoSum := writeAsset(t, work, "a.mp4", "video bytes")
	c := &course.Course{
		ID:        "course-4",
		Title:     "Go & <Friends>",
		Metadata:  course.Metadata{Author: "Ada", Language: "en", TotalDuration: 5 * time.Second},
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Lessons: []course.Lesson{{
			ID:       "lesson-1",
			Title:    "Variables",
			VideoRef: video,
			Duration: 5 * time.Second,
		}},
	}
	dir, err := pipeline.Publish(context.Background(), c, out, []string{"lesson 2 Loops: timed out"})
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	index, err := os.ReadFile(filepath.Join(dir, pipeline.IndexFile))
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	for _, want := range []string{
		"<h1>Go &amp; &lt;Friends&gt;</h1>",
		"Lesson 1: Variables",
		`src="lessons/lesson-001.mp4"`,
		"lesson 2 Loops: timed out",
	} {
		if !strings.Contains(string(index), want) {
			t.Fatalf("index missing %q:\n%s", want, index)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, pipeline.PackageMetaFile))
	if err != nil {
		t.Fatalf("read package metadata: %v", err)
	}
	var meta pipeline.PackageMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		t.Fatalf("decode package metadata: %v", err)
	}
	if meta.PackageType != "course" || meta.Course.ID != "course-4" || !meta.GeneratedAt.Equal(c.CreatedAt) {
		t.Fatalf("unexpected package metadata %+v", meta)
	}
	if meta.Checksums["lessons/lesson-001.mp4"] != videoSum {
		t.Fatalf("unexpected video checksum in %v", meta.Checksums)
	}
	for _, name := range []string{pipeline.ManifestFile, pipeline.PlayerConfigFile, pipeline.IndexFile} {
		if meta.Checksums[name] == "" {
			t.Fatalf("missing checksum for %s in %v", name, meta.Checksums)
		}
	}
	if _, ok := meta.Checksums[pipeline.PackageMetaFile]; ok {
		t.Fatal("package metadata must not checksum itself")
	}

	archive, err := zip.OpenReader(filepath.Join(dir, pipeline.ArchiveName("course-4")))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer archive.Close()
	var names []string
	for _, f := range archive.File {
		names = append(names, f.Name)
		if f.Name == "lessons/lesson-001.mp4" {
			rc, err := f.Open()
			if err != nil {
				t.Fatalf("open archived video: %v", err)
			}
			body, err := io.ReadAll(rc)
			rc.Close()
			if err != nil || string(body) != "video bytes" {
				t.Fatalf("archived video = %q, %v", body, err)
			}
		}
	}
	sort.Strings(names)
	want := []string{
		pipeline.ManifestFile,
		"index.html",
		"lessons/lesson-001.mp4",
		pipeline.PackageMetaFile,
		pipeline.PlayerConfigFile,
	}
	sort.Strings(want)
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("archive entries %v, want %v", names, want)
	}
}
