package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers classify stage failures so callers can dispatch on
// errors.Is without parsing messages.
var (
	// ErrInfrastructure flags faults that must abort a stage: missing root
	// directories, unwritable outputs, unreadable required artifacts.
	ErrInfrastructure = errors.New("infrastructure error")
	// ErrSample flags per-sample faults that are recorded and skipped while
	// the batch continues.
	ErrSample = errors.New("sample error")
	// ErrValidation flags structural defects in data under inspection.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration flags unusable configuration values.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrInfrastructure
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether err should abort the current stage rather than be
// recorded against a single sample.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInfrastructure) || errors.Is(err, ErrConfiguration)
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
		return "stage failure"
	}
	return strings.Join(parts, ": ")
}
