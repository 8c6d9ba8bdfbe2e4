package evo

import (
	"errors"
	"fmt"
	"sort"
)

var ErrStrategyNotFound = errors.New("strategy not found")

// SelectorFactory builds a selector for a validated configuration.
type SelectorFactory func(cfg Config) Selector

// CrossoverFactory builds a crossover strategy for a validated configuration.
type CrossoverFactory func(cfg Config) Crossover

var strategyRegistry = struct {
	selectors  map[SelectionMethod]SelectorFactory
	crossovers map[CrossoverMethod]CrossoverFactory
}{
	selectors: map[SelectionMethod]SelectorFactory{
		SelectionRank:         func(Config) Selector { return RankSelector{} },
		SelectionTournament:   func(cfg Config) Selector { return TournamentSelector{Size: cfg.tournamentSize()} },
		SelectionProportional: func(Config) Selector { return ProportionalSelector{} },
	},
	crossovers: map[CrossoverMethod]CrossoverFactory{
		CrossoverOnePoint: func(Config) Crossover { return OnePointCrossover{} },
		CrossoverTwoPoint: func(Config) Crossover { return TwoPointCrossover{} },
		CrossoverUniform:  func(Config) Crossover { return UniformCrossover{} },
	},
}

// ResolveSelector returns the selector registered for cfg.Selection.
func ResolveSelector(cfg Config) (Selector, error) {
	factory, ok := strategyRegistry.selectors[cfg.Selection]
	if !ok {
		return nil, fmt.Errorf("%w: selection %s", ErrStrategyNotFound, cfg.Selection)
	}
	return factory(cfg), nil
}

// ResolveCrossover returns the crossover registered for cfg.Crossover.
func ResolveCrossover(cfg Config) (Crossover, error) {
	factory, ok := strategyRegistry.crossovers[cfg.Crossover]
	if !ok {
		return nil, fmt.Errorf("%w: crossover %s", ErrStrategyNotFound, cfg.Crossover)
	}
	return factory(cfg), nil
}

func ListSelectionMethods() []string {
	names := make([]string, 0, len(strategyRegistry.selectors))
	for name := range strategyRegistry.selectors {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return names
}

func ListCrossoverMethods() []string {
	names := make([]string, 0, len(strategyRegistry.crossovers))
	for name := range strategyRegistry.crossovers {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return names
}

func ListMutationStrengths() []string {
	return []string{string(MutationStrong), string(MutationWeak)}
}
