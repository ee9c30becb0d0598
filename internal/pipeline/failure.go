// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import "fmt"

// Kind classifies why a run failed.
type Kind string

const (
	// ConfigurationError is invalid wiring or input, detected before any
	// stage executes.
	ConfigurationError Kind = "ConfigurationError"

	// GenerationUnavailable means the generator cannot serve requests at
	// all (for example a missing credential). It is never retried.
	GenerationUnavailable Kind = "GenerationUnavailable"

	// GenerationError is a transient generator failure. It is retried
	// within the stage and only surfaces as the cause of a
	// StageContractViolation.
	GenerationError Kind = "GenerationError"

	// StageContractViolation means a stage used its whole attempt budget
	// without producing valid output.
	StageContractViolation Kind = "StageContractViolation"

	// Cancelled means the caller's context ended the run.
	Cancelled Kind = "Cancelled"
)

// Failure is the classified error returned by a failed run or an invalid
// pipeline definition.
type Failure struct {
	Kind  Kind
	Stage string
	Err   error
}

func (f *Failure) Error() string {
	if f.Stage == "" {
		return fmt.Sprintf("%s: %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("%s at stage %s: %v", f.Kind, f.Stage, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func configError(stage, format string, args ...any) *Failure {
	return &Failure{Kind: ConfigurationError, Stage: stage, Err: fmt.Errorf(format, args...)}
}
