package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeParser()
	c.normalizeSpeech()
	if err := c.normalizeEncoder(); err != nil {
		return err
	}
	c.normalizeGeneration()
	c.normalizeNotifications()
	c.normalizeTracing()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir()
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir()
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeParser() {
	c.Parser.DefaultTitle = strings.TrimSpace(c.Parser.DefaultTitle)
	if c.Parser.DefaultTitle == "" {
		c.Parser.DefaultTitle = defaultDefaultTitle
	}
}

func (c *Config) normalizeSpeech() {
	c.Speech.Backend = strings.ToLower(strings.TrimSpace(c.Speech.Backend))
	if c.Speech.Backend == "" {
		c.Speech.Backend = defaultSpeechBackend
	}
	c.Speech.Endpoint = strings.TrimSpace(c.Speech.Endpoint)
	if c.Speech.Endpoint == "" {
		if value, ok := os.LookupEnv(speechEndpointEnv); ok {
			c.Speech.Endpoint = strings.TrimSpace(value)
		}
	}
	c.Speech.APIKey = strings.TrimSpace(c.Speech.APIKey)
	if c.Speech.APIKey == "" {
		if value, ok := os.LookupEnv(speechAPIKeyEnv); ok {
			c.Speech.APIKey = strings.TrimSpace(value)
		}
	}
	c.Speech.DefaultVoice = strings.TrimSpace(c.Speech.DefaultVoice)
	if c.Speech.TimeoutSeconds <= 0 {
		c.Speech.TimeoutSeconds = defaultSpeechTimeout
	}
	if c.Speech.MaxRetries < 0 {
		c.Speech.MaxRetries = 0
	}
	if c.Speech.ChunkSize <= 0 {
		c.Speech.ChunkSize = defaultSpeechChunkSize
	}
	if c.Speech.Burst <= 0 {
		c.Speech.Burst = defaultSpeechBurst
	}
}

func (c *Config) normalizeEncoder() error {
	c.Encoder.FFmpegBinary = strings.TrimSpace(c.Encoder.FFmpegBinary)
	if c.Encoder.FFmpegBinary == "" {
		c.Encoder.FFmpegBinary = "ffmpeg"
	}
	c.Encoder.FFprobeBinary = strings.TrimSpace(c.Encoder.FFprobeBinary)
	if c.Encoder.FFprobeBinary == "" {
		c.Encoder.FFprobeBinary = "ffprobe"
	}
	if c.Encoder.TimeoutSeconds <= 0 {
		c.Encoder.TimeoutSeconds = defaultEncoderTimeout
	}
	var err error
	if c.Encoder.FontFile, err = expandPath(strings.TrimSpace(c.Encoder.FontFile)); err != nil {
		return fmt.Errorf("encoder.font_file: %w", err)
	}
	if c.Encoder.MusicFile, err = expandPath(strings.TrimSpace(c.Encoder.MusicFile)); err != nil {
		return fmt.Errorf("encoder.music_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeGeneration() {
	if c.Generation.Workers <= 0 {
		c.Generation.Workers = defaultWorkers
	}
	c.Generation.Policy = strings.ToLower(strings.TrimSpace(c.Generation.Policy))
	c.Generation.Policy = strings.ReplaceAll(c.Generation.Policy, "-", "_")
	if c.Generation.Policy == "" {
		c.Generation.Policy = defaultPolicy
	}
	if c.Generation.CancelGraceSeconds < 0 {
		c.Generation.CancelGraceSeconds = 0
	}
	c.Generation.DefaultQuality = strings.ToLower(strings.TrimSpace(c.Generation.DefaultQuality))
	if c.Generation.DefaultQuality == "" {
		c.Generation.DefaultQuality = defaultQuality
	}
	languages := make([]string, 0, len(c.Generation.Languages))
	for _, lang := range c.Generation.Languages {
		if trimmed := strings.TrimSpace(lang); trimmed != "" {
			languages = append(languages, trimmed)
		}
	}
	if len(languages) == 0 {
		languages = []string{"en"}
	}
	c.Generation.Languages = languages
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv(ntfyTopicEnv); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeTracing() {
	c.Tracing.Exporter = strings.ToLower(strings.TrimSpace(c.Tracing.Exporter))
	if c.Tracing.Exporter == "" {
		c.Tracing.Exporter = defaultTracingExporter
	}
	c.Tracing.Endpoint = strings.TrimSpace(c.Tracing.Endpoint)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
	if c.Logging.MaxAgeDays < 0 {
		c.Logging.MaxAgeDays = 0
	}
}
