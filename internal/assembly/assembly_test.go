package assembly

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"coursegen/internal/course"
	"coursegen/internal/services"
)

type fakeRunner struct {
	mu     sync.Mutex
	calls  [][]string
	failOn string
}

func (f *fakeRunner) Run(_ context.Context, args []string, output string) error {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), args...))
	f.mu.Unlock()
	if f.failOn != "" && strings.Contains(strings.Join(args, " "), f.failOn) {
		return services.Wrap(services.ErrExternalTool, "encoder", "run", "exit status 1", nil)
	}
	return os.WriteFile(output, []byte("video"), 0o644)
}

func (f *fakeRunner) joined() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = strings.Join(c, " ")
	}
	return out
}

type fixedProber time.Duration

func (p fixedProber) Duration(context.Context, string) (time.Duration, error) {
	return time.Duration(p), nil
}

func writeAudio(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "narration.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuildCuesDistributesByWords(t *testing.T) {
	cues := BuildCues("One two three. Four.", 8*time.Second)
	if len(cues) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(cues))
	}
	if cues[0].Start != 0 || cues[0].End != 6*time.Second || cues[0].Text != "One two three." {
		t.Fatalf("unexpected first cue %+v", cues[0])
	}
	if cues[1].Start != cues[0].End || cues[1].End != 8*time.Second {
		t.Fatalf("cues not contiguous %+v", cues)
	}
	if BuildCues("   ", time.Second) != nil || BuildCues("text", 0) != nil {
		t.Fatal("expected no cues for empty text or zero duration")
	}
}

func TestBuildCuesEndsAtDuration(t *testing.T) {
	duration := 10*time.Second + 333*time.Millisecond
	cues := BuildCues("a b. c d e. f. g h i j k.", duration)
	for i := 1; i < len(cues); i++ {
		if cues[i].Start != cues[i-1].End || cues[i].End < cues[i].Start {
			t.Fatalf("cue %d not contiguous: %+v", i, cues)
		}
	}
	if cues[len(cues)-1].End != duration {
		t.Fatalf("last cue ends at %v, want %v", cues[len(cues)-1].End, duration)
	}
}

func TestFormatSRT(t *testing.T) {
	got := FormatSRT([]course.Cue{
		{Start: 0, End: 1500 * time.Millisecond, Text: "Hello."},
		{Start: 1500 * time.Millisecond, End: time.Hour + 2*time.Minute + 3*time.Second, Text: "Bye."},
	})
	want := "1\n00:00:00,000 --> 00:00:01,500\nHello.\n\n2\n00:00:01,500 --> 01:02:03,000\nBye.\n"
	if got != want {
		t.Fatalf("unexpected SRT:\n%s", got)
	}
}

func TestResolutionAndColour(t *testing.T) {
	tests := map[course.Quality][2]int{
		course.QualityDraft:    {854, 480},
		course.QualityStandard: {1280, 720},
		course.QualityHigh:     {1920, 1080},
	}
	for q, want := range tests {
		if w, h := Resolution(q); w != want[0] || h != want[1] {
			t.Fatalf("%s: got %dx%d", q, w, h)
		}
	}
	colour := CardColour("Title", "Body")
	if colour != CardColour("Title", "Body") {
		t.Fatal("colour is not deterministic")
	}
	found := false
	for _, c := range palette {
		found = found || c == colour
	}
	if !found {
		t.Fatalf("colour %s not in palette", colour)
	}
}

func TestEscapeDrawtext(t *testing.T) {
	if got := escapeDrawtext("Ratio: 50%\n it's"); got != `Ratio\: 50\\% it'\\\''s` {
		t.Fatalf("unexpected escape %q", got)
	}
}

func TestAssembleAllStages(t *testing.T) {
	dir := t.TempDir()
	music := filepath.Join(dir, "music.mp3")
	_ = os.WriteFile(music, []byte("mp3"), 0o644)
	runner := &fakeRunner{}
	a := New(runner, fixedProber(4*time.Second), Options{}, nil, WithMusicSource(FileMusic{Path: music}))

	opts := course.DefaultOptions()
	opts.BackgroundMusic = true
	req := Request{
		AudioPath: writeAudio(t, dir),
		Title:     "Intro",
		Text:      "Hello world. Second sentence here.",
		Options:   opts,
		OutputDir: filepath.Join(dir, "out"),
		BaseName:  "lesson-000",
	}
	res, err := a.Assemble(context.Background(), req)
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	calls := runner.joined()
	if len(calls) != 3 {
		t.Fatalf("expected 3 encoder calls, got %d: %v", len(calls), calls)
	}
	if !strings.Contains(calls[0], "s=1280x720") || !strings.Contains(calls[0], "drawtext=text='Intro'") {
		t.Fatalf("unexpected base call %q", calls[0])
	}
	if !strings.Contains(calls[1], "subtitles=") {
		t.Fatalf("unexpected subtitle call %q", calls[1])
	}
	if !strings.Contains(calls[2], "volume=0.30") || !strings.Contains(calls[2], "amix=inputs=2:duration=first") {
		t.Fatalf("unexpected music call %q", calls[2])
	}
	if filepath.Base(res.VideoPath) != "lesson-000.music.mp4" || res.Duration != 4*time.Second || len(res.Cues) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if data, err := os.ReadFile(res.SubtitlePath); err != nil || !strings.Contains(string(data), "Hello world.") {
		t.Fatalf("unexpected srt %q (%v)", data, err)
	}

	if _, err := a.Assemble(context.Background(), req); err != nil {
		t.Fatalf("repeat Assemble returned error: %v", err)
	}
	if got := len(runner.joined()); got != 3 {
		t.Fatalf("expected finished stages to be reused, got %d calls", got)
	}
}

func TestAssembleSkipsOptionalStages(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{}
	a := New(runner, fixedProber(time.Second), Options{}, nil)
	opts := course.DefaultOptions()
	opts.Quality = course.QualityDraft
	res, err := a.Assemble(context.Background(), Request{
		AudioPath: writeAudio(t, dir),
		Title:     "Only title",
		Options:   opts,
		OutputDir: dir,
		BaseName:  "l",
	})
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	if len(runner.joined()) != 1 || !strings.Contains(runner.joined()[0], "s=854x480") {
		t.Fatalf("unexpected calls %v", runner.joined())
	}
	if res.VideoPath != filepath.Join(dir, "l.base.mp4") || res.SubtitlePath != "" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestAssembleReportsFailingStage(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{failOn: "subtitles="}
	a := New(runner, fixedProber(time.Second), Options{}, nil)
	_, err := a.Assemble(context.Background(), Request{
		AudioPath: writeAudio(t, dir),
		Title:     "T",
		Text:      "Some text.",
		Options:   course.DefaultOptions(),
		OutputDir: dir,
		BaseName:  "l",
	})
	var asmErr *AssemblyError
	if !errors.As(err, &asmErr) || asmErr.Stage != StageSubtitles {
		t.Fatalf("expected subtitle AssemblyError, got %v", err)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
	if asmErr.Summary() != "media assembly external tool failed (subtitles)" {
		t.Fatalf("unexpected summary %q", asmErr.Summary())
	}
	if _, statErr := os.Stat(filepath.Join(dir, "l.base.mp4")); statErr != nil {
		t.Fatalf("expected base video to remain: %v", statErr)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "l.subtitled.mp4")); !os.IsNotExist(statErr) {
		t.Fatal("expected no subtitled output after failure")
	}
}

func TestAssembleRequiresAudio(t *testing.T) {
	a := New(&fakeRunner{}, fixedProber(time.Second), Options{}, nil)
	_, err := a.Assemble(context.Background(), Request{AudioPath: filepath.Join(t.TempDir(), "none.wav"), OutputDir: t.TempDir(), BaseName: "x"})
	var asmErr *AssemblyError
	if !errors.As(err, &asmErr) || !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation AssemblyError, got %v", err)
	}
}

func TestGeneratedMusicCachesTrack(t *testing.T) {
	runner := &fakeRunner{}
	src := NewGeneratedMusic(runner)
	dir := t.TempDir()
	first, err := src.Track(context.Background(), 2500*time.Millisecond, dir)
	if err != nil {
		t.Fatalf("Track returned error: %v", err)
	}
	second, _ := src.Track(context.Background(), 2900*time.Millisecond, dir)
	if first != second || filepath.Base(first) != "ambient-3s.wav" || len(runner.joined()) != 1 {
		t.Fatalf("unexpected tracks %q %q (%d calls)", first, second, len(runner.joined()))
	}
}
