package evo

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(x []float64) float64 {
	return x[0] * x[0]
}

func sphere(x []float64) float64 {
	total := 0.0
	for _, v := range x {
		total += v * v
	}
	return total
}

func squareConfig() Config {
	cfg := DefaultConfig([]Bounds{{Min: -5, Max: 5}}, 16)
	cfg.PopulationSize = 20
	cfg.Generations = 30
	cfg.EliteSize = 1
	cfg.Selection = SelectionTournament
	cfg.Crossover = CrossoverOnePoint
	cfg.MutationRate = 1.0 / 64
	return cfg
}

func TestEngineConvergesOnSquare(t *testing.T) {
	engine, err := NewEngine(squareConfig(), ObjectiveFunc(square))
	require.NoError(t, err)

	result, err := engine.Run(context.Background(), rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	assert.Less(t, result.BestValue, 1.0)
	require.Len(t, result.BestSolution, 1)
	assert.InDelta(t, result.BestValue, square(result.BestSolution), 1e-12)
	assert.Len(t, result.BestChromosome, 16)
}

func TestEngineHistoryShape(t *testing.T) {
	cfg := squareConfig()
	cfg.Generations = 12
	engine, err := NewEngine(cfg, ObjectiveFunc(square))
	require.NoError(t, err)

	result, err := engine.Run(context.Background(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	h := result.History
	require.Equal(t, 12, h.Len())
	require.Len(t, h.Mean, 12)
	require.Len(t, h.Worst, 12)
	for g := range h.Best {
		assert.LessOrEqual(t, h.Best[g], h.Mean[g])
		assert.LessOrEqual(t, h.Mean[g], h.Worst[g])
	}
}

func TestEngineElitismInvariants(t *testing.T) {
	cfg := DefaultConfig([]Bounds{{Min: -3, Max: 3}, {Min: -3, Max: 3}}, 10)
	cfg.PopulationSize = 16
	cfg.Generations = 25
	cfg.EliteSize = 3
	cfg.Selection = SelectionProportional
	cfg.Crossover = CrossoverUniform
	cfg.MutationStrength = MutationStrong
	cfg.MutationRate = 0.1

	var snapshots []GenerationSnapshot
	engine, err := NewEngine(cfg, ObjectiveFunc(sphere), WithObserver(func(s GenerationSnapshot) {
		snapshots = append(snapshots, s)
	}))
	require.NoError(t, err)

	result, err := engine.Run(context.Background(), rand.New(rand.NewSource(99)))
	require.NoError(t, err)
	require.Len(t, snapshots, cfg.Generations)

	for g, snap := range snapshots {
		require.Equal(t, g, snap.Generation)
		require.Len(t, snap.Population, cfg.PopulationSize)
		for _, chromosome := range snap.Population {
			require.Len(t, chromosome, cfg.ChromosomeLength())
		}
	}

	for g := 0; g+1 < len(snapshots); g++ {
		current, next := snapshots[g], snapshots[g+1]
		elites := ascendingOrder(current.Fitness)[:cfg.EliteSize]
		for i, idx := range elites {
			assert.Equalf(t, current.Population[idx], next.Population[i], "generation %d elite %d", g, i)
		}
	}

	for g := 1; g < result.History.Len(); g++ {
		assert.LessOrEqualf(t, result.History.Best[g], result.History.Best[g-1], "best regressed at generation %d", g)
	}
	assert.LessOrEqual(t, result.BestValue, result.History.Best[result.History.Len()-1])
}

func TestEngineIsReproducibleForSeed(t *testing.T) {
	engine, err := NewEngine(squareConfig(), ObjectiveFunc(square))
	require.NoError(t, err)

	first, err := engine.Run(context.Background(), rand.New(rand.NewSource(5)))
	require.NoError(t, err)
	second, err := engine.Run(context.Background(), rand.New(rand.NewSource(5)))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEngineCallsObjectiveOncePerIndividualPerGeneration(t *testing.T) {
	cfg := squareConfig()
	calls := 0
	engine, err := NewEngine(cfg, ObjectiveFunc(func(x []float64) float64 {
		calls++
		return square(x)
	}))
	require.NoError(t, err)

	_, err = engine.Run(context.Background(), rand.New(rand.NewSource(5)))
	require.NoError(t, err)
	// One evaluation per generation plus the final one.
	assert.Equal(t, cfg.PopulationSize*(cfg.Generations+1), calls)
}

func TestEngineRejectsInvalidConfigBeforeRunning(t *testing.T) {
	cfg := squareConfig()
	cfg.EliteSize = cfg.PopulationSize + 1
	calls := 0
	_, err := NewEngine(cfg, ObjectiveFunc(func(x []float64) float64 {
		calls++
		return 0
	}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.Zero(t, calls)
}

func TestEngineSurfacesNonFiniteObjective(t *testing.T) {
	engine, err := NewEngine(squareConfig(), ObjectiveFunc(func(x []float64) float64 {
		if x[0] > 0 {
			return math.NaN()
		}
		return square(x)
	}))
	require.NoError(t, err)

	_, err = engine.Run(context.Background(), rand.New(rand.NewSource(3)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEvaluation))
	var evalErr *EvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.True(t, math.IsNaN(evalErr.Value))
	assert.Greater(t, evalErr.Phenotype[0], 0.0)
}

func TestEngineSurfacesObjectiveErrorsAndPanics(t *testing.T) {
	boom := errors.New("boom")
	cases := map[string]Objective{
		"error": objectiveWithError{err: boom},
		"panic": ObjectiveFunc(func([]float64) float64 { panic("kaboom") }),
	}
	for name, objective := range cases {
		t.Run(name, func(t *testing.T) {
			engine, err := NewEngine(squareConfig(), objective)
			require.NoError(t, err)
			_, err = engine.Run(context.Background(), rand.New(rand.NewSource(3)))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrEvaluation))
		})
	}
	engine, err := NewEngine(squareConfig(), objectiveWithError{err: boom})
	require.NoError(t, err)
	_, err = engine.Run(context.Background(), rand.New(rand.NewSource(3)))
	assert.True(t, errors.Is(err, boom))
}

type objectiveWithError struct {
	err error
}

func (o objectiveWithError) Evaluate([]float64) (float64, error) {
	return 0, o.err
}

func TestEnginePenalizePolicy(t *testing.T) {
	cfg := squareConfig()
	cfg.NonFinite = NonFinitePenalize
	engine, err := NewEngine(cfg, ObjectiveFunc(func(x []float64) float64 {
		if x[0] > 0 {
			return math.NaN()
		}
		return square(x)
	}))
	require.NoError(t, err)

	result, err := engine.Run(context.Background(), rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	assert.LessOrEqual(t, result.BestSolution[0], 0.0)
	assert.False(t, math.IsInf(result.BestValue, 0))

	degenerate, err := NewEngine(cfg, ObjectiveFunc(func([]float64) float64 { return math.Inf(1) }))
	require.NoError(t, err)
	_, err = degenerate.Run(context.Background(), rand.New(rand.NewSource(3)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDegenerateRun))
}

func TestEngineStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := squareConfig()
	cfg.Generations = 1000
	generations := 0
	engine, err := NewEngine(cfg, ObjectiveFunc(square), WithObserver(func(s GenerationSnapshot) {
		generations++
		if s.Generation == 4 {
			cancel()
		}
	}))
	require.NoError(t, err)

	_, err = engine.Run(ctx, rand.New(rand.NewSource(3)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 5, generations)
}

func TestEngineRequiresRandomSource(t *testing.T) {
	engine, err := NewEngine(squareConfig(), ObjectiveFunc(square))
	require.NoError(t, err)
	_, err = engine.Run(context.Background(), nil)
	require.Error(t, err)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "evaluate", PhaseEvaluate.String())
	assert.Equal(t, "finalize", PhaseFinalize.String())
	assert.Equal(t, "phase(42)", Phase(42).String())
}
