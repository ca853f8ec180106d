package pipeline_test

import (
	"errors"
	"strings"
	"testing"

	"leafspec/internal/pipeline"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := pipeline.Wrap(pipeline.ErrSample, "export", "reduce", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, pipeline.ErrSample) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"export", "reduce", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := pipeline.Wrap(nil, "scan", "walk", "unreadable", nil)
	if !errors.Is(err, pipeline.ErrInfrastructure) {
		t.Fatalf("expected infrastructure marker, got %v", err)
	}
}

func TestIsFatal(t *testing.T) {
	fatal := pipeline.Wrap(pipeline.ErrInfrastructure, "scan", "walk", "missing root", nil)
	if !pipeline.IsFatal(fatal) {
		t.Fatalf("expected infrastructure error to be fatal: %v", fatal)
	}
	cfg := pipeline.Wrap(pipeline.ErrConfiguration, "export", "normalize", "unknown mode", nil)
	if !pipeline.IsFatal(cfg) {
		t.Fatalf("expected configuration error to be fatal: %v", cfg)
	}
	sample := pipeline.Wrap(pipeline.ErrSample, "export", "reduce", "empty cube", nil)
	if pipeline.IsFatal(sample) {
		t.Fatalf("expected sample error to be non-fatal: %v", sample)
	}
	if pipeline.IsFatal(nil) {
		t.Fatal("expected nil to be non-fatal")
	}
}
