package testsupport

import (
	"path/filepath"
	"testing"

	"coursegen/internal/config"
)

// ConfigOption adjusts a config built by NewConfig. base is the temp
// directory every configured path lives under.
type ConfigOption func(t testing.TB, cfg *config.Config, base string)

// NewConfig returns the default config rooted in a fresh temp directory,
// with the offline mock voice and no network integrations.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths = config.Paths{
		OutputDir: filepath.Join(base, "courses"),
		WorkDir:   filepath.Join(base, "work"),
		StateDir:  filepath.Join(base, "state"),
		LogDir:    filepath.Join(base, "logs"),
	}
	cfg.Speech.Backend = "mock"
	cfg.Speech.Endpoint, cfg.Speech.APIKey = "", ""
	cfg.Notifications.NtfyTopic = ""
	cfg.Tracing.Enabled = false

	for _, opt := range opts {
		opt(t, &cfg, base)
	}
	return &cfg
}

// WithEnsuredDirectories creates every configured directory.
func WithEnsuredDirectories() ConfigOption {
	return func(t testing.TB, cfg *config.Config, _ string) {
		if err := cfg.EnsureDirectories(); err != nil {
			t.Fatalf("ensure directories: %v", err)
		}
	}
}

// WithStubEncoder points the encoder at StubFFmpeg and StubFFprobe.
func WithStubEncoder() ConfigOption {
	return func(t testing.TB, cfg *config.Config, base string) {
		bin := filepath.Join(base, "bin")
		cfg.Encoder.FFmpegBinary = WriteScript(t, bin, "ffmpeg", StubFFmpeg)
		cfg.Encoder.FFprobeBinary = WriteScript(t, bin, "ffprobe", StubFFprobe)
	}
}

// BaseDir returns the temp directory NewConfig rooted cfg in.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}
