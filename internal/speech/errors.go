package speech

import (
	"fmt"

	"coursegen/internal/services"
)

// SynthesisError reports a failed narration request.
type SynthesisError struct {
	Backend Backend
	Err     error
}

func (e *SynthesisError) Error() string {
	if e.Backend == "" {
		return fmt.Sprintf("speech synthesis: %v", e.Err)
	}
	return fmt.Sprintf("speech synthesis (%s): %v", e.Backend, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// Summary is a short description safe to show to end users.
func (e *SynthesisError) Summary() string {
	return "speech synthesis " + services.Reason(e.Err)
}
