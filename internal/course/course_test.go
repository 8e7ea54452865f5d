package course_test

import (
	"errors"
	"strings"
	"testing"

	"coursegen/internal/course"
	"coursegen/internal/services"
)

func TestResolveFillsDefaults(t *testing.T) {
	defaults := course.DefaultOptions()
	defaults.Voice = "narrator"

	got := course.Resolve(defaults, nil)
	if got.Quality != course.QualityStandard || got.PrimaryLanguage() != "en" || got.Voice != "narrator" {
		t.Fatalf("unexpected defaults %+v", got)
	}

	got = course.Resolve(defaults, &course.ProcessingOptions{
		BackgroundMusic: true,
		Languages:       []string{"German", "de", "fr"},
		Quality:         "HIGH",
	})
	if !got.BackgroundMusic {
		t.Fatal("expected background music override")
	}
	if got.Quality != course.QualityHigh {
		t.Fatalf("expected high quality, got %q", got.Quality)
	}
	if strings.Join(got.Languages, ",") != "de,fr" {
		t.Fatalf("unexpected languages %v", got.Languages)
	}
	if got.Voice != "narrator" {
		t.Fatalf("expected default voice to survive override, got %q", got.Voice)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("resolved options should validate: %v", err)
	}
}

func TestValidateReportsFields(t *testing.T) {
	opts := course.ProcessingOptions{Languages: []string{"not a tag"}, Quality: "ultra"}
	err := opts.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	var optsErr *course.OptionsError
	if !errors.As(err, &optsErr) {
		t.Fatalf("expected OptionsError, got %T", err)
	}
	if len(optsErr.Fields) != 2 {
		t.Fatalf("expected 2 field errors, got %+v", optsErr.Fields)
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatal("expected validation marker")
	}
	if !strings.Contains(err.Error(), "quality") {
		t.Fatalf("expected json field name in message, got %q", err)
	}
}

func TestLessonIDIsDeterministic(t *testing.T) {
	section := course.Section{Title: "Intro", Body: "Hello", Order: 0}
	digest := course.ContentDigest(section)

	a := course.LessonID("job-1", 0, digest)
	b := course.LessonID("job-1", 0, digest)
	if a != b {
		t.Fatalf("expected stable id, got %q and %q", a, b)
	}
	if a == course.LessonID("job-2", 0, digest) {
		t.Fatal("expected job id to change lesson id")
	}
	if a == course.LessonID("job-1", 1, digest) {
		t.Fatal("expected order to change lesson id")
	}
	other := course.ContentDigest(course.Section{Title: "Intro", Body: "Hello!"})
	if a == course.LessonID("job-1", 0, other) {
		t.Fatal("expected content to change lesson id")
	}
	if course.CourseID("job-1") == course.CourseID("job-2") {
		t.Fatal("expected distinct course ids")
	}
}

func TestParseQuality(t *testing.T) {
	for _, value := range []string{"draft", " Standard ", "HIGH"} {
		if _, ok := course.ParseQuality(value); !ok {
			t.Fatalf("expected %q to parse", value)
		}
	}
	if _, ok := course.ParseQuality("ultra"); ok {
		t.Fatal("expected ultra to be rejected")
	}
}
