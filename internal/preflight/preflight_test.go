package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"coursegen/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckReadableFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "font.ttf")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckReadableFile("Font file", f); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result := CheckReadableFile("Font file", filepath.Dir(f)); result.Passed {
		t.Fatal("expected failure for directory")
	}
	if result := CheckReadableFile("Font file", f+".missing"); result.Passed {
		t.Fatal("expected failure for missing file")
	}
}

func TestCheckSpeechEndpoint(t *testing.T) {
	tests := []struct {
		name   string
		status int
		key    string
		passed bool
		detail string
	}{
		{"reachable", http.StatusMethodNotAllowed, "good-key", true, "Reachable"},
		{"bad key", http.StatusUnauthorized, "bad-key", false, "auth failed (invalid api key)"},
		{"server error", http.StatusBadGateway, "good-key", false, "service error (502)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var auth string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				auth = r.Header.Get("Authorization")
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			result := CheckSpeechEndpoint(context.Background(), srv.URL, tt.key)
			if result.Passed != tt.passed || result.Detail != tt.detail {
				t.Fatalf("unexpected result %+v", result)
			}
			if auth != "Bearer "+tt.key {
				t.Fatalf("unexpected authorization header %q", auth)
			}
		})
	}
}

func TestCheckSpeechEndpoint_MissingURL(t *testing.T) {
	result := CheckSpeechEndpoint(context.Background(), "", "key")
	if result.Passed {
		t.Fatal("expected failure for missing endpoint")
	}
}

func TestCheckSpeechEndpoint_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	result := CheckSpeechEndpoint(context.Background(), url, "")
	if result.Passed || !strings.HasPrefix(result.Detail, "unreachable") {
		t.Fatalf("expected unreachable result, got %+v", result)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func stubBinary(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func minimalConfig(t *testing.T) config.Config {
	t.Helper()
	bin := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Encoder.FFmpegBinary = stubBinary(t, bin, "ffmpeg")
	cfg.Encoder.FFprobeBinary = stubBinary(t, bin, "ffprobe")
	cfg.Speech.Backend = "draft"
	return cfg
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := minimalConfig(t)

	results := RunAll(context.Background(), &cfg)
	// Three directories plus ffmpeg and ffprobe.
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

func TestRunAll_ReportsMissingEncoder(t *testing.T) {
	cfg := minimalConfig(t)
	cfg.Encoder.FFmpegBinary = "clearly-not-present-ffmpeg"

	failed := Failed(RunAll(context.Background(), &cfg))
	if len(failed) != 1 || failed[0].Name != "FFmpeg" {
		t.Fatalf("expected only FFmpeg to fail, got %+v", failed)
	}
}

func TestRunAll_IncludesSpeechServiceForNeural(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := minimalConfig(t)
	cfg.Speech.Backend = "neural"
	cfg.Speech.Endpoint = srv.URL

	found := false
	for _, r := range RunAll(context.Background(), &cfg) {
		if r.Name == "Speech service" {
			found = true
			if !r.Passed {
				t.Errorf("speech check failed: %s", r.Detail)
			}
		}
	}
	if !found {
		t.Fatal("expected speech service check in results")
	}
}

func TestCheckSpeechFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Speech.Backend = "mock"
	if r := CheckSpeechFromConfig(context.Background(), &cfg); !r.Passed || r.Detail != "mock (offline)" {
		t.Fatalf("unexpected mock result %+v", r)
	}
	cfg.Speech.Backend = "auto"
	cfg.Speech.Endpoint = ""
	if r := CheckSpeechFromConfig(context.Background(), &cfg); !r.Passed {
		t.Fatalf("auto without endpoint should pass, got %+v", r)
	}
	cfg.Speech.Backend = "neural"
	if r := CheckSpeechFromConfig(context.Background(), &cfg); r.Passed || r.Detail != "Missing endpoint" {
		t.Fatalf("unexpected neural result %+v", r)
	}
}

func TestCheckNotificationsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	if r := CheckNotificationsFromConfig(&cfg); !r.Passed || r.Detail != "Disabled" {
		t.Fatalf("unexpected result %+v", r)
	}
}
