package assembly

import (
	"fmt"

	"coursegen/internal/services"
)

// AssemblyError reports a failed assembly stage.
type AssemblyError struct {
	Stage string
	Err   error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("media assembly (%s): %v", e.Stage, e.Err)
}

func (e *AssemblyError) Unwrap() error { return e.Err }

// Summary is a short description safe to show to end users.
func (e *AssemblyError) Summary() string {
	return fmt.Sprintf("media assembly %s (%s)", services.Reason(e.Err), e.Stage)
}

func stageError(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &AssemblyError{Stage: stage, Err: err}
}
