package services

import "context"

type contextKey string

const (
	sourcePathKey contextKey = "source_path"
	runIDKey      contextKey = "run_id"
	requestIDKey  contextKey = "request_id"
)

// WithSourcePath annotates context with the media file being processed.
func WithSourcePath(ctx context.Context, path string) context.Context {
	if path == "" {
		return ctx
	}
	return context.WithValue(ctx, sourcePathKey, path)
}

// SourcePathFromContext extracts the media file path if present.
func SourcePathFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sourcePathKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRunID annotates context with the scan-cycle identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the scan-cycle identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
