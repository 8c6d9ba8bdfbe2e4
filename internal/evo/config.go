package evo

import (
	"fmt"
	"math"
	"strings"
)

type SelectionMethod string

const (
	SelectionRank         SelectionMethod = "rank"
	SelectionTournament   SelectionMethod = "tournament"
	SelectionProportional SelectionMethod = "proportional"
)

type CrossoverMethod string

const (
	CrossoverOnePoint CrossoverMethod = "one_point"
	CrossoverTwoPoint CrossoverMethod = "two_point"
	CrossoverUniform  CrossoverMethod = "uniform"
)

type MutationStrength string

const (
	MutationWeak   MutationStrength = "weak"
	MutationStrong MutationStrength = "strong"
)

// NonFinitePolicy decides what happens when the objective returns NaN or ±Inf.
type NonFinitePolicy string

const (
	// NonFiniteReject aborts the run with an EvaluationError.
	NonFiniteReject NonFinitePolicy = "reject"
	// NonFinitePenalize ranks the individual as +Inf (worst).
	NonFinitePenalize NonFinitePolicy = "penalize"
)

const DefaultTournamentSize = 3

// Config is the full parameter set of a single GA run. The engine copies it
// on construction; callers can reuse and modify their value freely.
type Config struct {
	PopulationSize   int              `json:"pop_size" yaml:"pop_size"`
	NumVars          int              `json:"num_vars" yaml:"num_vars"`
	Generations      int              `json:"generations" yaml:"generations"`
	CrossoverRate    float64          `json:"crossover_rate" yaml:"crossover_rate"`
	MutationRate     float64          `json:"mutation_rate" yaml:"mutation_rate"`
	Selection        SelectionMethod  `json:"selection_method" yaml:"selection_method"`
	Crossover        CrossoverMethod  `json:"crossover_method" yaml:"crossover_method"`
	MutationStrength MutationStrength `json:"mutation_strength" yaml:"mutation_strength"`
	EliteSize        int              `json:"elite_size" yaml:"elite_size"`
	Bounds           []Bounds         `json:"bounds" yaml:"bounds"`
	BitsPerVar       int              `json:"bits_per_var" yaml:"bits_per_var"`
	TournamentSize   int              `json:"tournament_size,omitempty" yaml:"tournament_size,omitempty"`
	NonFinite        NonFinitePolicy  `json:"non_finite,omitempty" yaml:"non_finite,omitempty"`
}

// DefaultConfig returns the harness defaults for the given search space.
func DefaultConfig(bounds []Bounds, bitsPerVar int) Config {
	return Config{
		PopulationSize:   30,
		NumVars:          len(bounds),
		Generations:      50,
		CrossoverRate:    0.8,
		MutationRate:     1.0 / 64,
		Selection:        SelectionRank,
		Crossover:        CrossoverOnePoint,
		MutationStrength: MutationWeak,
		EliteSize:        1,
		Bounds:           append([]Bounds(nil), bounds...),
		BitsPerVar:       bitsPerVar,
		TournamentSize:   DefaultTournamentSize,
		NonFinite:        NonFiniteReject,
	}
}

// ChromosomeLength is the number of bits per individual.
func (c Config) ChromosomeLength() int {
	return c.NumVars * c.BitsPerVar
}

func (c Config) tournamentSize() int {
	if c.TournamentSize <= 0 {
		return DefaultTournamentSize
	}
	return c.TournamentSize
}

func (c Config) nonFinitePolicy() NonFinitePolicy {
	if c.NonFinite == "" {
		return NonFiniteReject
	}
	return c.NonFinite
}

// Clone returns a copy that shares no memory with c.
func (c Config) Clone() Config {
	c.Bounds = append([]Bounds(nil), c.Bounds...)
	return c
}

// Validate checks every invariant of the configuration and returns the first
// violation as a *ConfigurationError. A tournament larger than the population
// also matches ErrSelection.
func (c Config) Validate() error {
	if c.PopulationSize <= 0 {
		return configErrorf("pop_size", "must be > 0: got %d", c.PopulationSize)
	}
	if len(c.Bounds) == 0 {
		return configErrorf("bounds", "at least one variable is required")
	}
	if c.NumVars <= 0 {
		return configErrorf("num_vars", "must be > 0: got %d", c.NumVars)
	}
	if c.NumVars != len(c.Bounds) {
		return configErrorf("num_vars", "must equal len(bounds): got=%d bounds=%d", c.NumVars, len(c.Bounds))
	}
	for i, b := range c.Bounds {
		if math.IsNaN(b.Min) || math.IsNaN(b.Max) || math.IsInf(b.Min, 0) || math.IsInf(b.Max, 0) {
			return configErrorf("bounds", "variable %d has non-finite bounds", i)
		}
		if b.Min > b.Max {
			return configErrorf("bounds", "variable %d has min %v > max %v", i, b.Min, b.Max)
		}
	}
	if c.Generations <= 0 {
		return configErrorf("generations", "must be > 0: got %d", c.Generations)
	}
	if c.BitsPerVar <= 0 || c.BitsPerVar > MaxBitsPerVar {
		return configErrorf("bits_per_var", "must be in [1, %d]: got %d", MaxBitsPerVar, c.BitsPerVar)
	}
	if !isProbability(c.CrossoverRate) {
		return configErrorf("crossover_rate", "must be in [0, 1]: got %v", c.CrossoverRate)
	}
	if !isProbability(c.MutationRate) {
		return configErrorf("mutation_rate", "must be in [0, 1]: got %v", c.MutationRate)
	}
	if c.EliteSize < 0 || c.EliteSize > c.PopulationSize {
		return configErrorf("elite_size", "must be in [0, pop_size=%d]: got %d", c.PopulationSize, c.EliteSize)
	}
	switch c.Selection {
	case SelectionRank, SelectionProportional:
	case SelectionTournament:
		if c.TournamentSize < 0 {
			return configErrorf("tournament_size", "must be >= 0: got %d", c.TournamentSize)
		}
		if c.tournamentSize() > c.PopulationSize {
			err := configErrorf("tournament_size", "must be <= pop_size=%d: got %d", c.PopulationSize, c.tournamentSize())
			err.Err = &SelectionError{Method: string(SelectionTournament), Reason: err.Reason}
			return err
		}
	default:
		return configErrorf("selection_method", "unknown method %q", c.Selection)
	}
	length := c.ChromosomeLength()
	switch c.Crossover {
	case CrossoverOnePoint:
		if length < 2 {
			return configErrorf("crossover_method", "one_point needs chromosomes of at least 2 bits: got %d", length)
		}
	case CrossoverTwoPoint:
		if length < 3 {
			return configErrorf("crossover_method", "two_point needs chromosomes of at least 3 bits: got %d", length)
		}
	case CrossoverUniform:
	default:
		return configErrorf("crossover_method", "unknown method %q", c.Crossover)
	}
	switch c.MutationStrength {
	case MutationWeak, MutationStrong:
	default:
		return configErrorf("mutation_strength", "unknown strength %q", c.MutationStrength)
	}
	switch c.nonFinitePolicy() {
	case NonFiniteReject, NonFinitePenalize:
	default:
		return configErrorf("non_finite", "unknown policy %q", c.NonFinite)
	}
	return nil
}

// Label renders the strategy part of the config, used when comparing runs.
func (c Config) Label() string {
	parts := []string{
		string(c.Selection),
		string(c.Crossover),
		string(c.MutationStrength),
		fmt.Sprintf("pop=%d", c.PopulationSize),
		fmt.Sprintf("gens=%d", c.Generations),
		fmt.Sprintf("pm=%g", c.MutationRate),
	}
	if c.Selection == SelectionTournament {
		parts = append(parts, fmt.Sprintf("k=%d", c.tournamentSize()))
	}
	return strings.Join(parts, " ")
}

func isProbability(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
