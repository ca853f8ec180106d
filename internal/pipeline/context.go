package pipeline

import (
	"context"
	"strings"
)

type contextKey string

const (
	sampleIDKey contextKey = "sample_id"
	stageKey    contextKey = "stage"
	runIDKey    contextKey = "run_id"
)

// WithSampleID returns a context carrying the sample identifier for log
// correlation.
func WithSampleID(ctx context.Context, sampleID string) context.Context {
	sampleID = strings.TrimSpace(sampleID)
	if sampleID == "" {
		return ctx
	}
	return context.WithValue(ctx, sampleIDKey, sampleID)
}

// SampleIDFromContext extracts the sample identifier if present.
func SampleIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(sampleIDKey).(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// WithStage returns a context carrying the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	stage = strings.TrimSpace(stage)
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext extracts the pipeline stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(stageKey).(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// WithRunID returns a context carrying the workflow run identifier.
func WithRunID(ctx context.Context, runID string) context.Context {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext extracts the workflow run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(runIDKey).(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}
