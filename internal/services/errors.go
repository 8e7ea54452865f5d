package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
	ErrCancelled     = errors.New("cancelled")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error to the marker that best describes it. Context
// deadline and cancellation errors map to ErrTimeout and ErrCancelled.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return ErrCancelled
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	case errors.Is(err, ErrValidation):
		return ErrValidation
	case errors.Is(err, ErrConfiguration):
		return ErrConfiguration
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrExternalTool):
		return ErrExternalTool
	default:
		return ErrTransient
	}
}

// Retryable reports whether a failed call may succeed when repeated.
func Retryable(err error) bool {
	switch Classify(err) {
	case ErrTransient, ErrTimeout, ErrExternalTool:
		return true
	default:
		return false
	}
}

// Reason returns a short, user-facing description of an error's class. It never
// includes paths, identifiers or tool output.
func Reason(err error) string {
	switch Classify(err) {
	case nil:
		return ""
	case ErrCancelled:
		return "cancelled"
	case ErrTimeout:
		return "timed out"
	case ErrValidation:
		return "rejected input"
	case ErrConfiguration:
		return "misconfigured"
	case ErrNotFound:
		return "missing resource"
	case ErrExternalTool:
		return "external tool failed"
	default:
		return "backend unavailable"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
