package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrResolution    = errors.New("metadata resolution error")
	ErrExecution     = errors.New("execution error")
	ErrStore         = errors.New("store error")
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify returns the sentinel marker carried by err, or nil when the error
// is untagged.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrResolution):
		return ErrResolution
	case errors.Is(err, ErrExecution):
		return ErrExecution
	case errors.Is(err, ErrStore):
		return ErrStore
	case errors.Is(err, ErrExternalTool):
		return ErrExternalTool
	case errors.Is(err, ErrValidation):
		return ErrValidation
	case errors.Is(err, ErrConfiguration):
		return ErrConfiguration
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrTimeout):
		return ErrTimeout
	case errors.Is(err, ErrTransient):
		return ErrTransient
	default:
		return nil
	}
}

// ClassLabel returns a short log-friendly label for the marker carried by err,
// or "unclassified" when the error is untagged.
func ClassLabel(err error) string {
	switch Classify(err) {
	case ErrResolution:
		return "resolution"
	case ErrExecution:
		return "execution"
	case ErrStore:
		return "store"
	case ErrExternalTool:
		return "external_tool"
	case ErrValidation:
		return "validation"
	case ErrConfiguration:
		return "configuration"
	case ErrNotFound:
		return "not_found"
	case ErrTimeout:
		return "timeout"
	case ErrTransient:
		return "transient"
	default:
		return "unclassified"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
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
