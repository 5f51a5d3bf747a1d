package logging

import (
	"context"
	"log/slog"

	"filmpress/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized structured logging key for scan-cycle identifiers.
	FieldRunID = "run_id"
	// FieldSourcePath is the standardized structured logging key for media file paths.
	FieldSourcePath = "source_path"
	// FieldOutputPath is the standardized structured logging key for rendition paths.
	FieldOutputPath = "output_path"
	// FieldBackend is the standardized structured logging key for encode backend names.
	FieldBackend = "backend"
	// FieldStatus is the standardized structured logging key for record statuses.
	FieldStatus = "status"
	// FieldDecision is the standardized structured logging key for decision kinds.
	FieldDecision = "decision"
	// FieldEventType tags log lines with a machine-greppable event name.
	FieldEventType = "event_type"
	// FieldErrorHint carries the operator-facing remediation hint on warnings and errors.
	FieldErrorHint = "error_hint"
	// FieldErrorKind carries the failure class derived from the error marker.
	FieldErrorKind = "error_kind"
	// FieldImpact is the standardized key for the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if path, ok := services.SourcePathFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSourcePath, path))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
