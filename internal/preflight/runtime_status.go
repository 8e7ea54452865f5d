package preflight

import (
	"context"
	"strings"

	"coursegen/internal/config"
)

// CheckSpeechFromConfig evaluates the configured speech backend for status
// output. Offline backends pass without a network check.
func CheckSpeechFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "Speech backend"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	backend := cfg.Speech.Backend
	switch backend {
	case "draft", "mock":
		return Result{Name: name, Passed: true, Detail: backend + " (offline)"}
	case "auto", "neural":
	default:
		return Result{Name: name, Detail: "Unsupported backend " + backend}
	}
	if strings.TrimSpace(cfg.Speech.Endpoint) == "" {
		if backend == "auto" {
			return Result{Name: name, Passed: true, Detail: "auto (draft only; no neural endpoint)"}
		}
		return Result{Name: name, Detail: "Missing endpoint"}
	}
	check := CheckSpeechEndpoint(ctx, cfg.Speech.Endpoint, cfg.Speech.APIKey)
	if check.Passed {
		return Result{Name: name, Passed: true, Detail: backend + " (" + check.Detail + ")"}
	}
	return Result{Name: name, Detail: check.Detail}
}

// CheckNotificationsFromConfig reports whether ntfy delivery is configured.
func CheckNotificationsFromConfig(cfg *config.Config) Result {
	const name = "Notifications"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	return Result{Name: name, Passed: true, Detail: topic}
}
