package evo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// Phase is a state of the generational loop.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseEvaluate
	PhaseSelect
	PhaseCrossover
	PhaseMutate
	PhaseReplace
	PhaseFinalize
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseEvaluate:
		return "evaluate"
	case PhaseSelect:
		return "select"
	case PhaseCrossover:
		return "crossover"
	case PhaseMutate:
		return "mutate"
	case PhaseReplace:
		return "replace"
	case PhaseFinalize:
		return "finalize"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// GenerationSnapshot is handed to an Observer after each generation has been
// evaluated. Observers must not modify it.
type GenerationSnapshot struct {
	Generation int
	Population []Chromosome
	Fitness    []float64
}

type Observer func(GenerationSnapshot)

type Result struct {
	BestSolution   []float64  `json:"best_solution"`
	BestValue      float64    `json:"best_value"`
	BestChromosome Chromosome `json:"-"`
	History        History    `json:"history"`
}

type EngineOption func(*Engine)

func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithObserver(observer Observer) EngineOption {
	return func(e *Engine) {
		e.observer = observer
	}
}

// Engine runs the generational loop for one configuration. An Engine holds no
// per-run state, so one value can serve many runs as long as each run gets
// its own random source.
type Engine struct {
	cfg       Config
	evaluator Evaluator
	selector  Selector
	crossover Crossover
	mutator   Mutator
	logger    *slog.Logger
	observer  Observer
}

// NewEngine validates cfg and binds the strategies it names. Invalid
// configurations fail here, before any generation is executed.
func NewEngine(cfg Config, objective Objective, opts ...EngineOption) (*Engine, error) {
	if objective == nil {
		return nil, fmt.Errorf("objective is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.Clone()

	selector, err := ResolveSelector(cfg)
	if err != nil {
		return nil, err
	}
	crossover, err := ResolveCrossover(cfg)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg: cfg,
		evaluator: Evaluator{
			Objective:  objective,
			Bounds:     cfg.Bounds,
			BitsPerVar: cfg.BitsPerVar,
			NonFinite:  cfg.nonFinitePolicy(),
		},
		selector:  selector,
		crossover: crossover,
		mutator:   Mutator{Rate: cfg.MutationRate, Strength: cfg.MutationStrength},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) Config() Config {
	return e.cfg.Clone()
}

type runState struct {
	phase      Phase
	generation int
	population []Chromosome
	fitness    []float64
	pool       []Chromosome
	offspring  []Chromosome
	history    History
	result     Result
}

// Run executes exactly cfg.Generations generations and returns the best
// individual of the final population. ctx is checked between generations.
func (e *Engine) Run(ctx context.Context, rng *rand.Rand) (Result, error) {
	if rng == nil {
		return Result{}, fmt.Errorf("random source is required")
	}

	st := &runState{phase: PhaseInit, history: newHistory(e.cfg.Generations)}
	for st.phase != PhaseDone {
		next, err := e.step(ctx, rng, st)
		if err != nil {
			return Result{}, fmt.Errorf("generation %d %s: %w", st.generation, st.phase, err)
		}
		st.phase = next
	}
	return st.result, nil
}

func (e *Engine) step(ctx context.Context, rng *rand.Rand, st *runState) (Phase, error) {
	var err error
	switch st.phase {
	case PhaseInit:
		st.population = RandomPopulation(rng, e.cfg.PopulationSize, e.cfg.ChromosomeLength())
		return PhaseEvaluate, nil

	case PhaseEvaluate:
		if err := ctx.Err(); err != nil {
			return PhaseDone, err
		}
		st.fitness, err = e.evaluate(ctx, st.population, st.generation)
		if err != nil {
			return PhaseDone, err
		}
		st.history.record(st.fitness)
		e.logger.Debug("generation evaluated",
			"generation", st.generation+1,
			"best", st.history.Best[st.generation],
			"mean", st.history.Mean[st.generation],
			"worst", st.history.Worst[st.generation],
		)
		if e.observer != nil {
			e.observer(GenerationSnapshot{Generation: st.generation, Population: st.population, Fitness: st.fitness})
		}
		return PhaseSelect, nil

	case PhaseSelect:
		st.pool, err = e.selector.Select(rng, st.population, st.fitness)
		if err != nil {
			return PhaseDone, err
		}
		return PhaseCrossover, nil

	case PhaseCrossover:
		st.offspring, err = Recombine(rng, st.pool, e.cfg.CrossoverRate, e.crossover)
		if err != nil {
			return PhaseDone, err
		}
		return PhaseMutate, nil

	case PhaseMutate:
		st.offspring = e.mutator.Mutate(rng, st.offspring)
		return PhaseReplace, nil

	case PhaseReplace:
		st.population, err = Replace(rng, st.population, st.offspring, st.fitness, e.cfg.EliteSize)
		if err != nil {
			return PhaseDone, err
		}
		if len(st.population) != e.cfg.PopulationSize {
			return PhaseDone, fmt.Errorf("population size drifted: got=%d want=%d", len(st.population), e.cfg.PopulationSize)
		}
		st.pool, st.offspring, st.fitness = nil, nil, nil
		st.generation++
		if st.generation < e.cfg.Generations {
			return PhaseEvaluate, nil
		}
		return PhaseFinalize, nil

	case PhaseFinalize:
		if err := ctx.Err(); err != nil {
			return PhaseDone, err
		}
		st.fitness, err = e.evaluate(ctx, st.population, st.generation)
		if err != nil {
			return PhaseDone, err
		}
		best := floats.MinIdx(st.fitness)
		solution, err := e.evaluator.Phenotype(st.population[best])
		if err != nil {
			return PhaseDone, err
		}
		st.result = Result{
			BestSolution:   solution,
			BestValue:      st.fitness[best],
			BestChromosome: st.population[best].Clone(),
			History:        st.history,
		}
		e.logger.Debug("run finalized", "best_value", st.result.BestValue, "best_solution", solution)
		return PhaseDone, nil

	default:
		return PhaseDone, fmt.Errorf("unexpected phase %s", st.phase)
	}
}

func (e *Engine) evaluate(ctx context.Context, population []Chromosome, generation int) ([]float64, error) {
	fitness, err := e.evaluator.Evaluate(ctx, population)
	if err != nil {
		return nil, err
	}
	if !math.IsInf(floats.Min(fitness), 1) {
		return fitness, nil
	}
	return nil, &DegenerateRunError{Generation: generation}
}

// RandomPopulation draws size chromosomes of uniformly random bits.
func RandomPopulation(rng *rand.Rand, size, length int) []Chromosome {
	population := make([]Chromosome, size)
	for i := range population {
		chromosome := make(Chromosome, length)
		for j := range chromosome {
			chromosome[j] = byte(rng.Intn(2))
		}
		population[i] = chromosome
	}
	return population
}
