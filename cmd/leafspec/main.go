package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"leafspec/internal/pipeline"
	"leafspec/internal/selfcheck"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode separates a self-check that found data problems (a successful run
// with a FAIL verdict) from a crashed pipeline.
func exitCode(err error) int {
	if errors.Is(err, selfcheck.ErrCheckFailed) || errors.Is(err, pipeline.ErrValidation) {
		return 1
	}
	return 2
}
