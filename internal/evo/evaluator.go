package evo

import (
	"context"
	"fmt"
	"math"
)

// Objective is the function being minimized. Implementations must be pure:
// the same phenotype always yields the same value.
type Objective interface {
	Evaluate(x []float64) (float64, error)
}

// ObjectiveFunc adapts a plain function to Objective.
type ObjectiveFunc func(x []float64) float64

func (f ObjectiveFunc) Evaluate(x []float64) (float64, error) {
	return f(x), nil
}

// Evaluator decodes individuals and scores them with the objective. It never
// caches: every call runs the objective once per individual.
type Evaluator struct {
	Objective  Objective
	Bounds     []Bounds
	BitsPerVar int
	NonFinite  NonFinitePolicy
}

func (e Evaluator) Evaluate(ctx context.Context, population []Chromosome) ([]float64, error) {
	if e.Objective == nil {
		return nil, fmt.Errorf("objective is required")
	}
	fitness := make([]float64, len(population))
	for i, chromosome := range population {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		phenotype, err := Decode(chromosome, e.Bounds, e.BitsPerVar)
		if err != nil {
			return nil, fmt.Errorf("decode individual %d: %w", i, err)
		}
		value, err := callObjective(e.Objective, phenotype)
		if err != nil {
			return nil, &EvaluationError{Index: i, Phenotype: phenotype, Err: err}
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			if e.NonFinite != NonFinitePenalize {
				return nil, &EvaluationError{Index: i, Phenotype: phenotype, Value: value}
			}
			value = math.Inf(1)
		}
		fitness[i] = value
	}
	return fitness, nil
}

// Phenotype decodes a single individual with the evaluator's encoding.
func (e Evaluator) Phenotype(chromosome Chromosome) ([]float64, error) {
	return Decode(chromosome, e.Bounds, e.BitsPerVar)
}

func callObjective(objective Objective, x []float64) (value float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("objective panicked: %v", r)
		}
	}()
	arg := append([]float64(nil), x...)
	return objective.Evaluate(arg)
}
