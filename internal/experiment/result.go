package experiment

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"genopt/internal/evo"
)

type RunStatus string

const (
	StatusSucceeded    RunStatus = "succeeded"
	StatusUnsuccessful RunStatus = "unsuccessful"
	StatusFailed       RunStatus = "failed"
)

// RunOutcome is the record of one trial. FirstHit is the index of the first
// generation whose best value entered the tolerance band, or -1.
type RunOutcome struct {
	Trial        int         `json:"trial"`
	Seed         int64       `json:"seed"`
	Status       RunStatus   `json:"status"`
	BestValue    float64     `json:"best_value"`
	BestSolution []float64   `json:"best_solution,omitempty"`
	FirstHit     int         `json:"first_hit"`
	History      evo.History `json:"history"`
	Error        string      `json:"error,omitempty"`
}

func (o RunOutcome) Completed() bool {
	return o.Status != StatusFailed
}

// Result aggregates every trial of one configuration.
type Result struct {
	Label     string     `json:"label"`
	Config    evo.Config `json:"config"`
	Runs      int        `json:"runs"`
	Successes int        `json:"successes"`
	Failures  int        `json:"failures"`
	// Reliability is the success percentage over completed trials.
	Reliability float64 `json:"reliability"`
	// OverallReliability is the success percentage over all trials, failed
	// ones included.
	OverallReliability float64 `json:"overall_reliability"`
	// AverageIterations is nil when no trial succeeded.
	AverageIterations *float64     `json:"average_iterations"`
	BestValueMean     float64      `json:"best_value_mean"`
	BestValueStd      float64      `json:"best_value_std"`
	Averaged          evo.History  `json:"averaged"`
	Outcomes          []RunOutcome `json:"outcomes"`
}

func (r Result) Completed() int {
	return r.Runs - r.Failures
}

// Aggregate folds trial outcomes into a Result. Reliability and best-value
// statistics are taken over completed trials; average iterations over
// successful ones.
func Aggregate(label string, cfg evo.Config, outcomes []RunOutcome) Result {
	result := Result{
		Label:    label,
		Config:   cfg,
		Runs:     len(outcomes),
		Outcomes: outcomes,
	}

	bestValues := make([]float64, 0, len(outcomes))
	hits := make([]float64, 0, len(outcomes))
	completed := make([]evo.History, 0, len(outcomes))
	for _, outcome := range outcomes {
		switch outcome.Status {
		case StatusFailed:
			result.Failures++
			continue
		case StatusSucceeded:
			result.Successes++
			hits = append(hits, float64(outcome.FirstHit))
		}
		bestValues = append(bestValues, outcome.BestValue)
		completed = append(completed, outcome.History)
	}

	if len(bestValues) > 0 {
		result.Reliability = 100 * float64(result.Successes) / float64(len(bestValues))
		result.BestValueMean, result.BestValueStd = stat.PopMeanStdDev(bestValues, nil)
	}
	if result.Runs > 0 {
		result.OverallReliability = 100 * float64(result.Successes) / float64(result.Runs)
	}
	if len(hits) > 0 {
		avg := stat.Mean(hits, nil)
		result.AverageIterations = &avg
	}
	result.Averaged = averageHistories(completed)
	return result
}

func averageHistories(histories []evo.History) evo.History {
	if len(histories) == 0 {
		return evo.History{}
	}
	return evo.History{
		Best:  averageSeries(histories, func(h evo.History) []float64 { return h.Best }),
		Mean:  averageSeries(histories, func(h evo.History) []float64 { return h.Mean }),
		Worst: averageSeries(histories, func(h evo.History) []float64 { return h.Worst }),
	}
}

func averageSeries(histories []evo.History, series func(evo.History) []float64) []float64 {
	length := len(series(histories[0]))
	for _, h := range histories[1:] {
		if n := len(series(h)); n < length {
			length = n
		}
	}
	out := make([]float64, length)
	for _, h := range histories {
		floats.Add(out, series(h)[:length])
	}
	floats.Scale(1/float64(len(histories)), out)
	return out
}

func withinTolerance(value, target, tolerance float64) bool {
	return math.Abs(value-target) <= tolerance
}

// firstHit scans one trial's own best curve. When only the final evaluation
// reached the band the hit is reported at index generations.
func firstHit(history evo.History, target, tolerance float64, generations int) int {
	for g, best := range history.Best {
		if withinTolerance(best, target, tolerance) {
			return g
		}
	}
	return generations
}

// Comparison is the per-configuration view used by reports and plots.
type Comparison struct {
	Label              string     `json:"label"`
	Reliability        float64    `json:"reliability"`
	OverallReliability float64    `json:"overall_reliability"`
	AverageIterations  *float64   `json:"average_iterations"`
	Failures           int        `json:"failures"`
	BestValueMean      float64    `json:"best_value_mean"`
	BestValueStd       float64    `json:"best_value_std"`
	Metric             evo.Metric `json:"metric"`
	Curve              []float64  `json:"curve"`
}

// Compare extracts the averaged curve named by metric from each result.
func Compare(results []Result, metric evo.Metric) ([]Comparison, error) {
	out := make([]Comparison, 0, len(results))
	for _, result := range results {
		curve, err := result.Averaged.Metric(metric)
		if err != nil {
			return nil, fmt.Errorf("compare %s: %w", result.Label, err)
		}
		out = append(out, Comparison{
			Label:              result.Label,
			Reliability:        result.Reliability,
			OverallReliability: result.OverallReliability,
			AverageIterations:  result.AverageIterations,
			Failures:           result.Failures,
			BestValueMean:      result.BestValueMean,
			BestValueStd:       result.BestValueStd,
			Metric:             metric,
			Curve:              append([]float64(nil), curve...),
		})
	}
	return out, nil
}
