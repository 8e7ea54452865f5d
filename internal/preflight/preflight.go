package preflight

import (
	"context"
	"strings"

	"coursegen/internal/config"
	"coursegen/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))

	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, fromStatus(status))
	}

	if strings.TrimSpace(cfg.Encoder.FontFile) != "" {
		results = append(results, CheckReadableFile("Font file", cfg.Encoder.FontFile))
	}
	if strings.TrimSpace(cfg.Encoder.MusicFile) != "" {
		results = append(results, CheckReadableFile("Music file", cfg.Encoder.MusicFile))
	}

	if usesSpeechEndpoint(cfg) {
		results = append(results, CheckSpeechEndpoint(ctx, cfg.Speech.Endpoint, cfg.Speech.APIKey))
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

func usesSpeechEndpoint(cfg *config.Config) bool {
	switch cfg.Speech.Backend {
	case "neural":
		return true
	case "auto":
		return strings.TrimSpace(cfg.Speech.Endpoint) != ""
	default:
		return false
	}
}

func fromStatus(status deps.Status) Result {
	if status.Available() {
		return Result{Name: status.Name, Passed: true, Detail: status.Path}
	}
	return Result{Name: status.Name, Passed: status.Satisfied(), Detail: status.Problem}
}
