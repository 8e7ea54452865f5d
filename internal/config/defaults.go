package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultConfigPath   = "~/.config/coursegen/config.toml"
	defaultOutputDir    = "~/coursegen/courses"
	defaultLogFormat    = "console"
	defaultLogLevel     = "info"
	defaultDefaultTitle = "Untitled Course"

	defaultSpeechBackend     = "auto"
	defaultSpeechTimeout     = 60
	defaultSpeechRetries     = 3
	defaultSpeechChunkSize   = 400
	defaultSpeechRatePerSec  = 2.0
	defaultSpeechBurst       = 2
	defaultEncoderTimeout    = 300
	defaultMusicVolume       = 0.3
	defaultWorkers           = 2
	defaultPolicy            = PolicyFailFast
	defaultCancelGrace       = 10
	defaultQuality           = "standard"
	defaultNotifyTimeout     = 10
	defaultTracingExporter   = "stdout"
	defaultTracingSample     = 1.0
	defaultLogMaxSizeMB      = 10
	defaultLogMaxBackups     = 3
	defaultLogMaxAgeDays     = 28
	speechAPIKeyEnv          = "COURSEGEN_SPEECH_API_KEY"
	speechEndpointEnv        = "COURSEGEN_SPEECH_ENDPOINT"
	ntfyTopicEnv             = "COURSEGEN_NTFY_TOPIC"
	xdgStateHomeEnv          = "XDG_STATE_HOME"
	xdgCacheHomeEnv          = "XDG_CACHE_HOME"
	defaultStateSubdirectory = "coursegen"
)

// Failure policies understood by the generation pipeline.
const (
	PolicyFailFast   = "fail_fast"
	PolicyBestEffort = "best_effort"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			WorkDir:   defaultWorkDir(),
			StateDir:  defaultStateDir(),
			LogDir:    filepath.Join(defaultStateDir(), "logs"),
		},
		Parser: Parser{
			DefaultTitle: defaultDefaultTitle,
		},
		Speech: Speech{
			Backend:           defaultSpeechBackend,
			TimeoutSeconds:    defaultSpeechTimeout,
			MaxRetries:        defaultSpeechRetries,
			ChunkSize:         defaultSpeechChunkSize,
			RequestsPerSecond: defaultSpeechRatePerSec,
			Burst:             defaultSpeechBurst,
		},
		Encoder: Encoder{
			FFmpegBinary:   "ffmpeg",
			FFprobeBinary:  "ffprobe",
			TimeoutSeconds: defaultEncoderTimeout,
			MusicVolume:    defaultMusicVolume,
		},
		Generation: Generation{
			Workers:            defaultWorkers,
			Policy:             defaultPolicy,
			CancelGraceSeconds: defaultCancelGrace,
			DefaultQuality:     defaultQuality,
			Languages:          []string{"en"},
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Tracing: Tracing{
			Exporter:    defaultTracingExporter,
			SampleRatio: defaultTracingSample,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
		},
	}
}

func defaultStateDir() string {
	if base, ok := os.LookupEnv(xdgStateHomeEnv); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, defaultStateSubdirectory)
	}
	return "~/.local/state/coursegen"
}

func defaultWorkDir() string {
	if base, ok := os.LookupEnv(xdgCacheHomeEnv); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, defaultStateSubdirectory, "work")
	}
	return "~/.cache/coursegen/work"
}
