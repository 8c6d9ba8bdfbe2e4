package evo

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration = errors.New("invalid configuration")
	ErrEvaluation    = errors.New("objective evaluation failed")
	ErrSelection     = errors.New("selection failed")
	ErrDegenerateRun = errors.New("degenerate run")
)

// ConfigurationError reports a Config field that violates its invariant.
// Err, when set, is the error the run itself would have hit, such as a
// *SelectionError for a tournament larger than the population.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrConfiguration, e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func configErrorf(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// EvaluationError is raised when the objective fails, panics or returns a
// non-finite value for an individual.
type EvaluationError struct {
	Index     int
	Phenotype []float64
	Value     float64
	Err       error
}

func (e *EvaluationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: individual %d at %v: %v", ErrEvaluation, e.Index, e.Phenotype, e.Err)
	}
	return fmt.Sprintf("%v: individual %d at %v: non-finite value %v", ErrEvaluation, e.Index, e.Phenotype, e.Value)
}

func (e *EvaluationError) Is(target error) bool {
	return target == ErrEvaluation
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

type SelectionError struct {
	Method string
	Reason string
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrSelection, e.Method, e.Reason)
}

func (e *SelectionError) Is(target error) bool {
	return target == ErrSelection
}

// DegenerateRunError means no individual of a generation has a finite
// fitness, so no best can be chosen.
type DegenerateRunError struct {
	Generation int
}

func (e *DegenerateRunError) Error() string {
	return fmt.Sprintf("%v: generation %d has no finite fitness value", ErrDegenerateRun, e.Generation)
}

func (e *DegenerateRunError) Is(target error) bool {
	return target == ErrDegenerateRun
}
