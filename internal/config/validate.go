package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateParser(); err != nil {
		return err
	}
	if err := c.validateSpeech(); err != nil {
		return err
	}
	if err := c.validateEncoder(); err != nil {
		return err
	}
	if err := c.validateGeneration(); err != nil {
		return err
	}
	if err := c.validateTracing(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		return errors.New("paths.work_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateParser() error {
	if c.Parser.SectionLevel < 0 || c.Parser.SectionLevel > 6 {
		return fmt.Errorf("parser.section_level must be between 0 and 6 (got %d)", c.Parser.SectionLevel)
	}
	return nil
}

func (c *Config) validateSpeech() error {
	switch c.Speech.Backend {
	case "auto", "draft", "neural", "mock":
	default:
		return fmt.Errorf("speech.backend: unsupported value %q (expected auto, draft, neural or mock)", c.Speech.Backend)
	}
	if c.Speech.Backend == "neural" && c.Speech.Endpoint == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("speech.endpoint is required for the neural backend. Set %s or edit %s (create with 'coursegen config init')", speechEndpointEnv, defaultPath)
	}
	if c.Speech.Endpoint != "" {
		parsed, err := url.Parse(c.Speech.Endpoint)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("speech.endpoint: invalid URL %q", c.Speech.Endpoint)
		}
	}
	if c.Speech.RequestsPerSecond < 0 {
		return errors.New("speech.requests_per_second must be >= 0")
	}
	return nil
}

func (c *Config) validateEncoder() error {
	if c.Encoder.MusicVolume < 0 || c.Encoder.MusicVolume > 1 {
		return errors.New("encoder.music_volume must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateGeneration() error {
	switch c.Generation.Policy {
	case PolicyFailFast, PolicyBestEffort:
	default:
		return fmt.Errorf("generation.policy: unsupported value %q (expected %s or %s)", c.Generation.Policy, PolicyFailFast, PolicyBestEffort)
	}
	if c.Generation.FailureTolerance < 0 {
		return errors.New("generation.failure_tolerance must be >= 0")
	}
	switch c.Generation.DefaultQuality {
	case "draft", "standard", "high":
	default:
		return fmt.Errorf("generation.default_quality: unsupported value %q", c.Generation.DefaultQuality)
	}
	return nil
}

func (c *Config) validateTracing() error {
	if !c.Tracing.Enabled {
		return nil
	}
	switch c.Tracing.Exporter {
	case "stdout":
	case "otlp":
		if c.Tracing.Endpoint == "" {
			return errors.New("tracing.endpoint must be set when tracing.exporter is otlp")
		}
	default:
		return fmt.Errorf("tracing.exporter: unsupported value %q", c.Tracing.Exporter)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return errors.New("tracing.sample_ratio must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
