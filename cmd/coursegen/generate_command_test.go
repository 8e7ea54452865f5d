package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"coursegen/internal/jobs"
	"coursegen/internal/pipeline"
	"coursegen/internal/testsupport"
)

const sampleCourse = `# Intro to Go

## Variables

Declare variables with var or the short form.

## Loops

Go has a single for loop.
`

func TestGeneratePublishesCourse(t *testing.T) {
	env := setupCLITestEnv(t)
	doc := writeDocument(t, env.baseDir, "intro.md", sampleCourse)

	out, stderr, err := runCLI(t, []string{"generate", doc}, env.configPath)
	if err != nil {
		t.Fatalf("generate: %v\nstderr: %s", err, stderr)
	}
	requireContains(t, out, "Job ")
	requireContains(t, out, `Course "Intro to Go" published to`)
	requireContains(t, out, "Variables")
	requireContains(t, out, "Loops")
	requireContains(t, out, "Total duration: 0:00:05")

	courseDirs := publishedCourses(t, env.cfg.Paths.OutputDir)
	if len(courseDirs) != 1 {
		t.Fatalf("expected one published course, got %v", courseDirs)
	}
	manifest, err := pipeline.ReadManifest(courseDirs[0])
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if manifest.Assets.TotalLessons != 2 || !manifest.Assets.HasVideo || !manifest.Assets.HasSubtitles {
		t.Fatalf("unexpected manifest assets %+v", manifest.Assets)
	}
	if manifest.Lessons[0].Title != "Variables" || manifest.Lessons[1].Title != "Loops" {
		t.Fatalf("lessons out of order: %+v", manifest.Lessons)
	}

	entries, err := os.ReadDir(env.cfg.Paths.WorkDir)
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected work files to be removed, found %d entries", len(entries))
	}

	out, _, err = runCLI(t, []string{"jobs", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs list: %v", err)
	}
	requireContains(t, out, "completed")
	requireContains(t, out, "intro.md")
}

func TestGenerateKeepWorkAndJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	doc := writeDocument(t, env.baseDir, "intro.md", sampleCourse)

	out, stderr, err := runCLI(t, []string{"generate", doc, "--keep-work", "--json", "--quality", "draft"}, env.configPath)
	if err != nil {
		t.Fatalf("generate: %v\nstderr: %s", err, stderr)
	}
	var result generateResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if result.Job.Status != jobs.StatusCompleted || result.Job.Progress != 100 {
		t.Fatalf("unexpected job %+v", result.Job)
	}
	if result.Course == nil || len(result.Course.Lessons) != 2 {
		t.Fatalf("expected course with two lessons, got %+v", result.Course)
	}
	if !strings.HasPrefix(result.CourseDir, env.cfg.Paths.OutputDir) {
		t.Fatalf("course dir %q outside output dir", result.CourseDir)
	}

	entries, err := os.ReadDir(env.cfg.Paths.WorkDir)
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected the job work directory to be kept, found %d entries", len(entries))
	}
}

func TestGenerateReportsFailedLesson(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Encoder.FFmpegBinary = testsupport.WriteScript(t, filepath.Join(env.baseDir, "broken"), "ffmpeg", `case "$1" in
-version) echo "ffmpeg version broken"; exit 0 ;;
esac
echo "encoder exploded" >&2
exit 1
`)
	writeTestConfig(t, env.configPath, env.cfg)
	doc := writeDocument(t, env.baseDir, "intro.md", sampleCourse)

	_, _, err := runCLI(t, []string{"generate", doc, "--workers", "1"}, env.configPath)
	if err == nil {
		t.Fatal("expected generate to fail")
	}
	requireContains(t, err.Error(), "failed")
	requireContains(t, err.Error(), `lesson 1 "Variables"`)

	if dirs := publishedCourses(t, env.cfg.Paths.OutputDir); len(dirs) != 0 {
		t.Fatalf("failed job published %v", dirs)
	}

	out, _, err := runCLI(t, []string{"jobs", "list", "--status", "failed"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs list: %v", err)
	}
	requireContains(t, out, "failed")
}

func TestGenerateRejectsInvalidFlags(t *testing.T) {
	env := setupCLITestEnv(t)
	doc := writeDocument(t, env.baseDir, "intro.md", sampleCourse)

	tests := map[string][]string{
		"policy":  {"generate", doc, "--policy", "sometimes"},
		"workers": {"generate", doc, "--workers", "0"},
		"missing": {"generate", filepath.Join(env.baseDir, "missing.md")},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			if _, _, err := runCLI(t, args, env.configPath); err == nil {
				t.Fatalf("expected %v to fail", args)
			}
		})
	}
}

func TestGenerateRejectsInvalidOptions(t *testing.T) {
	env := setupCLITestEnv(t)
	doc := writeDocument(t, env.baseDir, "intro.md", sampleCourse)

	_, _, err := runCLI(t, []string{"generate", doc, "--quality", "ultra"}, env.configPath)
	if err == nil {
		t.Fatal("expected invalid quality to fail the job")
	}
	requireContains(t, err.Error(), "quality")
}

func TestGenerateRefusesWhenPreflightFails(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Encoder.FFprobeBinary = filepath.Join(env.baseDir, "no-such-ffprobe")
	writeTestConfig(t, env.configPath, env.cfg)
	doc := writeDocument(t, env.baseDir, "intro.md", sampleCourse)

	_, stderr, err := runCLI(t, []string{"generate", doc}, env.configPath)
	if err == nil {
		t.Fatal("expected preflight failure")
	}
	requireContains(t, err.Error(), "preflight failed")
	requireContains(t, stderr, "FFprobe")
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		percent int
		want    string
	}{
		{0, "[..........]"},
		{50, "[#####.....]"},
		{100, "[##########]"},
		{150, "[##########]"},
	}
	for _, tt := range tests {
		if got := progressBar(tt.percent, 10); got != tt.want {
			t.Fatalf("progressBar(%d) = %q, want %q", tt.percent, got, tt.want)
		}
	}
}

func publishedCourses(t *testing.T, outputDir string) []string {
	t.Helper()
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			dirs = append(dirs, filepath.Join(outputDir, e.Name()))
		}
	}
	return dirs
}
