// Package ai defines the text-generation boundary shared by the extractor and
// the evaluator, plus the repair stage used to pull JSON out of model replies.
package ai

import (
	"context"
)

// Generator is the minimal text-generation capability the pipeline depends on.
// Implementations must honor low temperatures so extraction and evaluation
// stay as reproducible as the underlying model allows.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string, temperature float32) (string, error)
}

// ModelError wraps any failure of the underlying model invocation itself
// (network, quota, auth). It is recoverable per job.
type ModelError struct {
	Err error
}

func (e *ModelError) Error() string {
	return "model invocation failed: " + e.Err.Error()
}

func (e *ModelError) Unwrap() error { return e.Err }
