package evo

import (
	"fmt"
	"math/rand"
)

// Crossover recombines two equal-length parents into two children of the
// same length. Parents are never modified.
type Crossover interface {
	Name() string
	Cross(rng *rand.Rand, a, b Chromosome) (Chromosome, Chromosome)
}

type OnePointCrossover struct{}

func (OnePointCrossover) Name() string {
	return string(CrossoverOnePoint)
}

func (OnePointCrossover) Cross(rng *rand.Rand, a, b Chromosome) (Chromosome, Chromosome) {
	length := len(a)
	if length < 2 {
		return a.Clone(), b.Clone()
	}
	point := 1 + rng.Intn(length-1)
	return splice(a, b, point, length), splice(b, a, point, length)
}

type TwoPointCrossover struct{}

func (TwoPointCrossover) Name() string {
	return string(CrossoverTwoPoint)
}

func (TwoPointCrossover) Cross(rng *rand.Rand, a, b Chromosome) (Chromosome, Chromosome) {
	length := len(a)
	if length < 3 {
		return OnePointCrossover{}.Cross(rng, a, b)
	}
	first := 1 + rng.Intn(length-2)
	second := first + 1 + rng.Intn(length-1-first)
	return splice(a, b, first, second), splice(b, a, first, second)
}

type UniformCrossover struct{}

func (UniformCrossover) Name() string {
	return string(CrossoverUniform)
}

func (UniformCrossover) Cross(rng *rand.Rand, a, b Chromosome) (Chromosome, Chromosome) {
	childA := a.Clone()
	childB := b.Clone()
	for i := range childA {
		if rng.Float64() < 0.5 {
			childA[i], childB[i] = childB[i], childA[i]
		}
	}
	return childA, childB
}

// splice copies base and overwrites base[from:to] with donor[from:to].
func splice(base, donor Chromosome, from, to int) Chromosome {
	child := base.Clone()
	copy(child[from:to], donor[from:to])
	return child
}

// Recombine walks the mating pool two at a time, pairing parents[i] with
// parents[(i+1) mod n]. Each pair is crossed with probability rate and copied
// otherwise. The result has exactly len(parents) children.
func Recombine(rng *rand.Rand, parents []Chromosome, rate float64, crossover Crossover) ([]Chromosome, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if crossover == nil {
		return nil, fmt.Errorf("crossover strategy is required")
	}
	n := len(parents)
	offspring := make([]Chromosome, 0, n+1)
	for i := 0; i < n; i += 2 {
		a := parents[i]
		b := parents[(i+1)%n]
		if len(a) != len(b) {
			return nil, fmt.Errorf("parent length mismatch at pair %d: %d != %d", i/2, len(a), len(b))
		}
		if rng.Float64() < rate {
			childA, childB := crossover.Cross(rng, a, b)
			offspring = append(offspring, childA, childB)
			continue
		}
		offspring = append(offspring, a.Clone(), b.Clone())
	}
	return offspring[:n], nil
}

// StrongMutationFactor multiplies the base rate for strong mutation.
const StrongMutationFactor = 5

// Mutator flips every bit independently with the effective probability.
type Mutator struct {
	Rate     float64
	Strength MutationStrength
}

// Probability is the per-bit flip probability, clamped to [0, 1].
func (m Mutator) Probability() float64 {
	p := m.Rate
	if m.Strength == MutationStrong {
		p *= StrongMutationFactor
	}
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

func (m Mutator) Mutate(rng *rand.Rand, population []Chromosome) []Chromosome {
	p := m.Probability()
	mutated := make([]Chromosome, len(population))
	for i, chromosome := range population {
		child := chromosome.Clone()
		for j := range child {
			if rng.Float64() < p {
				child[j] ^= 1
			}
		}
		mutated[i] = child
	}
	return mutated
}

// Replace builds the next generation: the eliteSize fittest individuals of
// old survive unchanged, the remaining slots come from a shuffled copy of
// offspring.
func Replace(rng *rand.Rand, old, offspring []Chromosome, fitness []float64, eliteSize int) ([]Chromosome, error) {
	if len(old) != len(fitness) {
		return nil, fmt.Errorf("fitness mismatch: population=%d fitness=%d", len(old), len(fitness))
	}
	if eliteSize < 0 || eliteSize > len(old) {
		return nil, fmt.Errorf("elite size %d outside [0, %d]", eliteSize, len(old))
	}
	remaining := len(old) - eliteSize
	if len(offspring) < remaining {
		return nil, fmt.Errorf("not enough offspring: got=%d need=%d", len(offspring), remaining)
	}

	next := make([]Chromosome, 0, len(old))
	for _, idx := range ascendingOrder(fitness)[:eliteSize] {
		next = append(next, old[idx].Clone())
	}
	shuffled := append([]Chromosome(nil), offspring...)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	for _, child := range shuffled[:remaining] {
		next = append(next, child.Clone())
	}
	return next, nil
}
