package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	WorkDir   string `toml:"work_dir"`
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
}

// Parser controls how documents are split into sections.
type Parser struct {
	// SectionLevel forces the header level used as the section boundary.
	// Zero selects the level automatically.
	SectionLevel int    `toml:"section_level"`
	DefaultTitle string `toml:"default_title"`
}

// Speech contains configuration for the speech synthesis gateway.
type Speech struct {
	Backend           string  `toml:"backend"`
	Endpoint          string  `toml:"endpoint"`
	APIKey            string  `toml:"api_key"`
	DefaultVoice      string  `toml:"default_voice"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	MaxRetries        int     `toml:"max_retries"`
	ChunkSize         int     `toml:"chunk_size"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// Encoder contains configuration for the external ffmpeg encoder.
type Encoder struct {
	FFmpegBinary   string  `toml:"ffmpeg_binary"`
	FFprobeBinary  string  `toml:"ffprobe_binary"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	FontFile       string  `toml:"font_file"`
	MusicFile      string  `toml:"music_file"`
	MusicVolume    float64 `toml:"music_volume"`
}

// Generation contains configuration for course generation runs.
type Generation struct {
	Workers            int      `toml:"workers"`
	Policy             string   `toml:"policy"`
	FailureTolerance   int      `toml:"failure_tolerance"`
	CancelGraceSeconds int      `toml:"cancel_grace_seconds"`
	DefaultQuality     string   `toml:"default_quality"`
	Languages          []string `toml:"languages"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout_seconds"`
}

// Tracing contains OpenTelemetry exporter configuration.
type Tracing struct {
	Enabled     bool    `toml:"enabled"`
	Exporter    string  `toml:"exporter"`
	Endpoint    string  `toml:"endpoint"`
	Insecure    bool    `toml:"insecure"`
	SampleRatio float64 `toml:"sample_ratio"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Config encapsulates all configuration values for coursegen.
//
// Configuration sections by subsystem:
//   - Paths: output, work, state and log directories
//   - Parser: section boundary selection
//   - Speech: synthesis backend selection, credentials and limits
//   - Encoder: ffmpeg/ffprobe binaries and assembly settings
//   - Generation: worker pool, failure policy and cancellation grace
//   - Notifications: ntfy push notification settings
//   - Tracing: OpenTelemetry exporter
//   - Logging: log format, level and rotation
type Config struct {
	Paths         Paths         `toml:"paths"`
	Parser        Parser        `toml:"parser"`
	Speech        Speech        `toml:"speech"`
	Encoder       Encoder       `toml:"encoder"`
	Generation    Generation    `toml:"generation"`
	Notifications Notifications `toml:"notifications"`
	Tracing       Tracing       `toml:"tracing"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path of the per-user config file.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads the config at path, or searches the default locations when path
// is empty, then applies environment overrides and validates the result. A
// missing file is not an error: defaults are used and exists is false. The
// returned path is where the config was, or would be, read from.
func Load(path string) (cfg *Config, resolved string, exists bool, err error) {
	loaded := Default()
	resolved, exists, err = locate(path)
	if err != nil {
		return nil, "", false, err
	}
	if exists {
		if err := decodeFile(resolved, &loaded); err != nil {
			return nil, "", false, err
		}
	}
	if err := loaded.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := loaded.Validate(); err != nil {
		return nil, "", false, err
	}
	return &loaded, resolved, exists, nil
}

// decodeFile decodes a TOML file into cfg, rejecting keys coursegen does not
// know so typos surface instead of silently falling back to defaults.
func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("parse config %s: %s", path, strings.TrimSpace(strict.String()))
		}
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// locate resolves an explicit path, or picks the first existing candidate
// among the user config and ./coursegen.toml. With nothing found the user
// config path is reported as the place a config would live.
func locate(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		switch _, err := os.Stat(expanded); {
		case err == nil:
			return expanded, true, nil
		case errors.Is(err, fs.ErrNotExist):
			return expanded, false, nil
		default:
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}

	var candidates []string
	for _, p := range []string{defaultConfigPath, "coursegen.toml"} {
		expanded, err := expandPath(p)
		if err != nil {
			return "", false, err
		}
		candidates = append(candidates, expanded)
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return candidates[0], false, nil
}

// EnsureDirectories creates the directories a generation run writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.WorkDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// JournalPath returns the location of the SQLite job journal.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.StateDir, "jobs.db")
}

// LockPath returns the lock file that generations share and clean takes
// exclusively.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "coursegen.lock")
}

// LogPath returns the rotated log file location, or "" when file logging is disabled.
func (c *Config) LogPath() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "coursegen.log")
}

func expandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") || strings.HasPrefix(value, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, value[1:])
	}
	absolute, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return absolute, nil
}

// ExpandPath resolves a leading "~" to the home directory and makes the
// result absolute, the same way config paths are treated.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the commented sample config to path, creating its
// directory.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
