package evo

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// proportionalEpsilon keeps the worst individual's weight above zero.
const proportionalEpsilon = 1e-10

// Selector builds a mating pool of len(population) chromosomes, sampled with
// replacement. Lower fitness is better.
type Selector interface {
	Name() string
	Select(rng *rand.Rand, population []Chromosome, fitness []float64) ([]Chromosome, error)
}

// RankSelector samples by linear rank weights: the best of n individuals has
// weight 2n/(n(n+1)) and the worst 2/(n(n+1)).
type RankSelector struct{}

func (RankSelector) Name() string {
	return string(SelectionRank)
}

func (RankSelector) Select(rng *rand.Rand, population []Chromosome, fitness []float64) ([]Chromosome, error) {
	if err := checkSelectionInput(rng, population, fitness); err != nil {
		return nil, err
	}
	order := ascendingOrder(fitness)
	weights := RankWeights(len(population))
	cumulative := floats.CumSum(make([]float64, len(weights)), weights)

	pool := make([]Chromosome, len(population))
	for i := range pool {
		pool[i] = population[order[sampleCumulative(rng, cumulative)]]
	}
	return pool, nil
}

// RankWeights returns the sampling probability per rank, best first.
func RankWeights(n int) []float64 {
	weights := make([]float64, n)
	denom := float64(n * (n + 1))
	for rank := range weights {
		weights[rank] = 2 * float64(n-rank) / denom
	}
	return weights
}

// TournamentSelector runs one tournament of Size distinct contestants per
// pool slot; the contestant with the lowest fitness wins.
type TournamentSelector struct {
	Size int
}

func (TournamentSelector) Name() string {
	return string(SelectionTournament)
}

func (s TournamentSelector) Select(rng *rand.Rand, population []Chromosome, fitness []float64) ([]Chromosome, error) {
	if err := checkSelectionInput(rng, population, fitness); err != nil {
		return nil, err
	}
	size := s.Size
	if size <= 0 {
		size = DefaultTournamentSize
	}
	n := len(population)
	if size > n {
		return nil, &SelectionError{
			Method: s.Name(),
			Reason: fmt.Sprintf("tournament size %d exceeds population size %d", size, n),
		}
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	pool := make([]Chromosome, n)
	for slot := range pool {
		// Partial Fisher-Yates: the first size entries are a uniform draw
		// without replacement.
		for i := 0; i < size; i++ {
			j := i + rng.Intn(n-i)
			indices[i], indices[j] = indices[j], indices[i]
		}
		winner := indices[0]
		for _, idx := range indices[1:size] {
			if fitness[idx] < fitness[winner] {
				winner = idx
			}
		}
		pool[slot] = population[winner]
	}
	return pool, nil
}

// ProportionalSelector is fitness-proportional selection adapted to
// minimization: p_i = (C - f_i) / (nC - sum f) with C = max f + epsilon.
type ProportionalSelector struct{}

func (ProportionalSelector) Name() string {
	return string(SelectionProportional)
}

func (ProportionalSelector) Select(rng *rand.Rand, population []Chromosome, fitness []float64) ([]Chromosome, error) {
	if err := checkSelectionInput(rng, population, fitness); err != nil {
		return nil, err
	}
	weights := ProportionalWeights(fitness)
	cumulative := floats.CumSum(make([]float64, len(weights)), weights)

	pool := make([]Chromosome, len(population))
	for i := range pool {
		pool[i] = population[sampleCumulative(rng, cumulative)]
	}
	return pool, nil
}

// ProportionalWeights returns normalized selection probabilities. Individuals
// with non-finite fitness get zero weight; when no usable weight remains the
// distribution falls back to uniform.
func ProportionalWeights(fitness []float64) []float64 {
	n := len(fitness)
	weights := make([]float64, n)
	maxFitness := math.Inf(-1)
	for _, f := range fitness {
		if isFinite(f) && f > maxFitness {
			maxFitness = f
		}
	}
	if math.IsInf(maxFitness, -1) {
		return uniformWeights(n)
	}
	c := maxFitness + proportionalEpsilon
	for i, f := range fitness {
		if isFinite(f) {
			weights[i] = c - f
		}
	}
	total := floats.Sum(weights)
	if !(total > 0) || math.IsInf(total, 0) {
		return uniformWeights(n)
	}
	floats.Scale(1/total, weights)
	return weights
}

func uniformWeights(n int) []float64 {
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1 / float64(n)
	}
	return weights
}

// sampleCumulative draws an index from an unnormalized cumulative weight
// vector. Zero-weight entries are never returned.
func sampleCumulative(rng *rand.Rand, cumulative []float64) int {
	n := len(cumulative)
	u := rng.Float64() * cumulative[n-1]
	idx := sort.Search(n, func(i int) bool { return cumulative[i] > u })
	if idx >= n {
		idx = n - 1
	}
	return idx
}

// ascendingOrder returns population indices ordered best (lowest) first.
// Ties keep their population order.
func ascendingOrder(fitness []float64) []int {
	sorted := append([]float64(nil), fitness...)
	order := make([]int, len(fitness))
	for i := range order {
		order[i] = i
	}
	floats.ArgsortStable(sorted, order)
	return order
}

func checkSelectionInput(rng *rand.Rand, population []Chromosome, fitness []float64) error {
	if rng == nil {
		return fmt.Errorf("random source is required")
	}
	if len(population) == 0 {
		return fmt.Errorf("population is empty")
	}
	if len(population) != len(fitness) {
		return fmt.Errorf("fitness mismatch: population=%d fitness=%d", len(population), len(fitness))
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
