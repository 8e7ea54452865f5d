package speech

import (
	"strings"

	"coursegen/internal/course"
)

// Backend names a synthesis implementation.
type Backend string

const (
	BackendDraft  Backend = "draft"
	BackendNeural Backend = "neural"
	BackendMock   Backend = "mock"
)

// Backends lists every known backend in selection order.
var Backends = []Backend{BackendDraft, BackendNeural, BackendMock}

// ParseBackend converts a configured name to a Backend. "auto" and the empty
// string are not backends and report false.
func ParseBackend(value string) (Backend, bool) {
	switch Backend(strings.ToLower(strings.TrimSpace(value))) {
	case BackendDraft:
		return BackendDraft, true
	case BackendNeural:
		return BackendNeural, true
	case BackendMock:
		return BackendMock, true
	default:
		return "", false
	}
}

// Select picks the backend for a request. An explicit hint wins, then a
// voice prefix naming a backend ("draft:", "neural:", "mock:"), then quality.
// VoiceName strips exactly the prefixes honoured here.
func Select(opts course.ProcessingOptions, hint string) Backend {
	if backend, ok := ParseBackend(hint); ok {
		return backend
	}
	if prefix, _, ok := strings.Cut(opts.Voice, ":"); ok {
		if backend, known := ParseBackend(prefix); known {
			return backend
		}
	}
	switch opts.Quality {
	case course.QualityDraft:
		return BackendDraft
	case course.QualityStandard, course.QualityHigh:
		return BackendNeural
	default:
		return BackendDraft
	}
}

// VoiceName strips a backend prefix from a voice selector.
func VoiceName(voice string) string {
	voice = strings.TrimSpace(voice)
	if prefix, name, ok := strings.Cut(voice, ":"); ok {
		if _, known := ParseBackend(prefix); known {
			return strings.TrimSpace(name)
		}
	}
	return voice
}
