package experiment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genopt/internal/evo"
)

func history(best ...float64) evo.History {
	h := evo.History{}
	for _, b := range best {
		h.Best = append(h.Best, b)
		h.Mean = append(h.Mean, b+1)
		h.Worst = append(h.Worst, b+2)
	}
	return h
}

func TestAggregateUsesEachTrialsOwnFirstHit(t *testing.T) {
	outcomes := []RunOutcome{
		{Trial: 0, Status: StatusSucceeded, BestValue: 0.001, FirstHit: firstHit(history(5, 0.5, 0.001), 0, 0.01, 3), History: history(5, 0.5, 0.001)},
		{Trial: 1, Status: StatusSucceeded, BestValue: 0.002, FirstHit: firstHit(history(0.002, 0.002, 0.002), 0, 0.01, 3), History: history(0.002, 0.002, 0.002)},
		{Trial: 2, Status: StatusUnsuccessful, BestValue: 1, FirstHit: -1, History: history(3, 2, 1)},
		{Trial: 3, Status: StatusFailed, FirstHit: -1, Error: "boom"},
	}
	assert.Equal(t, 2, outcomes[0].FirstHit)
	assert.Equal(t, 0, outcomes[1].FirstHit)

	result := Aggregate("cfg", evo.Config{}, outcomes)
	assert.Equal(t, 4, result.Runs)
	assert.Equal(t, 2, result.Successes)
	assert.Equal(t, 1, result.Failures)
	assert.InDelta(t, 200.0/3, result.Reliability, 1e-9)
	assert.InDelta(t, 50.0, result.OverallReliability, 1e-9)
	require.NotNil(t, result.AverageIterations)
	assert.Equal(t, 1.0, *result.AverageIterations)

	values := []float64{0.001, 0.002, 1}
	mean := (values[0] + values[1] + values[2]) / 3
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	assert.InDelta(t, mean, result.BestValueMean, 1e-12)
	assert.InDelta(t, math.Sqrt(variance/3), result.BestValueStd, 1e-12)

	assert.InDeltaSlice(t, []float64{(5 + 0.002 + 3) / 3, (0.5 + 0.002 + 2) / 3, (0.001 + 0.002 + 1) / 3}, result.Averaged.Best, 1e-12)
	require.Len(t, result.Averaged.Mean, 3)
	assert.InDelta(t, result.Averaged.Best[0]+1, result.Averaged.Mean[0], 1e-12)
}

func TestOverallReliabilityCountsFailedTrials(t *testing.T) {
	outcomes := make([]RunOutcome, 0, 10)
	for i := 0; i < 5; i++ {
		outcomes = append(outcomes, RunOutcome{Trial: i, Status: StatusSucceeded, BestValue: 0, FirstHit: 0, History: history(0, 0, 0)})
	}
	for i := 5; i < 10; i++ {
		outcomes = append(outcomes, RunOutcome{Trial: i, Status: StatusFailed, FirstHit: -1, Error: "nan"})
	}

	result := Aggregate("half-failed", evo.Config{}, outcomes)
	assert.Equal(t, 100.0, result.Reliability)
	assert.Equal(t, 50.0, result.OverallReliability)

	comparisons, err := Compare([]Result{result}, evo.MetricBest)
	require.NoError(t, err)
	assert.Equal(t, 50.0, comparisons[0].OverallReliability)
}

func TestFirstHitFallsBackToFinalEvaluation(t *testing.T) {
	assert.Equal(t, 3, firstHit(history(1, 1, 1), 0, 0.5, 3))
}

func TestAggregateEmpty(t *testing.T) {
	result := Aggregate("none", evo.Config{}, nil)
	assert.Zero(t, result.Runs)
	assert.Zero(t, result.Reliability)
	assert.Zero(t, result.OverallReliability)
	assert.Nil(t, result.AverageIterations)
	assert.Zero(t, result.Averaged.Len())
}

func TestCompareSelectsMetric(t *testing.T) {
	outcomes := []RunOutcome{{Status: StatusSucceeded, FirstHit: 0, History: history(1, 0.5)}}
	results := []Result{Aggregate("a", evo.Config{}, outcomes), Aggregate("b", evo.Config{}, outcomes)}

	worst, err := Compare(results, evo.MetricWorst)
	require.NoError(t, err)
	require.Len(t, worst, 2)
	assert.Equal(t, "a", worst[0].Label)
	assert.Equal(t, []float64{3, 2.5}, worst[0].Curve)
	assert.Equal(t, evo.MetricWorst, worst[0].Metric)

	worst[0].Curve[0] = 100
	assert.Equal(t, 3.0, results[0].Averaged.Worst[0])

	_, err = Compare(results, "median")
	assert.Error(t, err)
}
