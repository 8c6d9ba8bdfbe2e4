package experiment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"genopt/internal/evo"
)

// Spec names one configuration taking part in an experiment.
type Spec struct {
	Label  string     `json:"label" yaml:"label"`
	Config evo.Config `json:"config" yaml:"config"`
}

// Options control how trials are repeated and judged.
type Options struct {
	NumRuns   int
	Target    float64
	Tolerance float64
	// Seed is the base from which every trial seed is derived.
	Seed int64
	// Workers bounds the number of concurrently running trials. Values below
	// one run trials sequentially.
	Workers int
	Logger  *slog.Logger
}

type Runner struct {
	opts   Options
	logger *slog.Logger
}

func NewRunner(opts Options) (*Runner, error) {
	if opts.NumRuns <= 0 {
		return nil, fmt.Errorf("num runs must be > 0: got %d", opts.NumRuns)
	}
	if opts.Tolerance < 0 {
		return nil, fmt.Errorf("tolerance must be >= 0: got %v", opts.Tolerance)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{opts: opts, logger: logger}, nil
}

func (r *Runner) Options() Options {
	return r.opts
}

// Run executes NumRuns independent trials for every spec and aggregates them.
// Every configuration is validated before the first trial starts. A trial that
// fails with an evaluation or degenerate-run error is recorded as failed and
// the batch continues; cancellation of ctx aborts the whole batch.
func (r *Runner) Run(ctx context.Context, objective evo.Objective, specs []Spec) ([]Result, error) {
	if objective == nil {
		return nil, errors.New("objective is required")
	}
	if len(specs) == 0 {
		return nil, errors.New("at least one configuration is required")
	}

	engines := make([]*evo.Engine, len(specs))
	for i, spec := range specs {
		engine, err := evo.NewEngine(spec.Config, objective, evo.WithLogger(r.logger))
		if err != nil {
			return nil, fmt.Errorf("config %d (%s): %w", i, specLabel(spec), err)
		}
		engines[i] = engine
	}

	results := make([]Result, 0, len(specs))
	for i, spec := range specs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		started := time.Now()
		outcomes, err := r.runTrials(ctx, i, engines[i])
		if err != nil {
			return nil, err
		}
		result := Aggregate(specLabel(spec), engines[i].Config(), outcomes)
		r.logger.Info("configuration finished",
			"label", result.Label,
			"runs", result.Runs,
			"failures", result.Failures,
			"reliability", result.Reliability,
			"best_mean", result.BestValueMean,
			"elapsed", time.Since(started),
		)
		results = append(results, result)
	}
	return results, nil
}

func (r *Runner) runTrials(ctx context.Context, configIndex int, engine *evo.Engine) ([]RunOutcome, error) {
	outcomes := make([]RunOutcome, r.opts.NumRuns)
	cancelled := make([]error, r.opts.NumRuns)

	p := pool.New().WithMaxGoroutines(r.opts.Workers)
	for trial := 0; trial < r.opts.NumRuns; trial++ {
		trial := trial
		p.Go(func() {
			if err := ctx.Err(); err != nil {
				cancelled[trial] = err
				return
			}
			seed := TrialSeed(r.opts.Seed, configIndex, trial)
			result, err := engine.Run(ctx, rand.New(rand.NewSource(seed)))
			if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
				cancelled[trial] = err
				return
			}
			outcomes[trial] = r.judge(trial, seed, engine.Config().Generations, result, err)
		})
	}
	p.Wait()

	for _, err := range cancelled {
		if err != nil {
			return nil, err
		}
	}
	return outcomes, nil
}

func (r *Runner) judge(trial int, seed int64, generations int, result evo.Result, err error) RunOutcome {
	outcome := RunOutcome{Trial: trial, Seed: seed, FirstHit: -1}
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Error = err.Error()
		r.logger.Warn("trial failed", "trial", trial, "seed", seed, "error", err)
		return outcome
	}
	outcome.BestValue = result.BestValue
	outcome.BestSolution = result.BestSolution
	outcome.History = result.History
	if withinTolerance(result.BestValue, r.opts.Target, r.opts.Tolerance) {
		outcome.Status = StatusSucceeded
		outcome.FirstHit = firstHit(result.History, r.opts.Target, r.opts.Tolerance, generations)
	} else {
		outcome.Status = StatusUnsuccessful
	}
	r.logger.Debug("trial finished", "trial", trial, "seed", seed, "status", outcome.Status, "best_value", outcome.BestValue)
	return outcome
}

// TrialSeed derives the seed of one trial from the experiment base seed. The
// mapping only depends on its inputs, so results do not change with the number
// of workers.
func TrialSeed(base int64, configIndex, trial int) int64 {
	z := uint64(base)
	z = splitmix(z ^ uint64(configIndex)*0x9e3779b97f4a7c15)
	z = splitmix(z ^ uint64(trial)*0xbf58476d1ce4e5b9)
	return int64(z >> 1)
}

func splitmix(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func specLabel(spec Spec) string {
	if label := strings.TrimSpace(spec.Label); label != "" {
		return label
	}
	return spec.Config.Label()
}
