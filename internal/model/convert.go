package model

import (
	"genopt/internal/evo"
	"genopt/internal/experiment"
)

func NewHistoryRecord(h evo.History) HistoryRecord {
	return HistoryRecord{
		Best:  Series(append([]float64(nil), h.Best...)),
		Mean:  Series(append([]float64(nil), h.Mean...)),
		Worst: Series(append([]float64(nil), h.Worst...)),
	}
}

func (h HistoryRecord) History() evo.History {
	return evo.History{
		Best:  append([]float64(nil), h.Best...),
		Mean:  append([]float64(nil), h.Mean...),
		Worst: append([]float64(nil), h.Worst...),
	}
}

func NewConfigResult(result experiment.Result) ConfigResult {
	out := ConfigResult{
		Label:              result.Label,
		Config:             result.Config.Clone(),
		Runs:               result.Runs,
		Successes:          result.Successes,
		Failures:           result.Failures,
		Reliability:        result.Reliability,
		OverallReliability: result.OverallReliability,
		AverageIterations:  result.AverageIterations,
		BestValueMean:      result.BestValueMean,
		BestValueStd:       result.BestValueStd,
		Averaged:           NewHistoryRecord(result.Averaged),
		Trials:             make([]RunRecord, 0, len(result.Outcomes)),
	}
	for _, outcome := range result.Outcomes {
		out.Trials = append(out.Trials, RunRecord{
			Trial:        outcome.Trial,
			Seed:         outcome.Seed,
			Status:       string(outcome.Status),
			BestValue:    outcome.BestValue,
			BestSolution: append([]float64(nil), outcome.BestSolution...),
			FirstHit:     outcome.FirstHit,
			History:      NewHistoryRecord(outcome.History),
			Error:        outcome.Error,
		})
	}
	return out
}

// Result rebuilds the in-memory aggregate so stored experiments can be
// compared and rendered like fresh ones.
func (c ConfigResult) Result() experiment.Result {
	out := experiment.Result{
		Label:              c.Label,
		Config:             c.Config.Clone(),
		Runs:               c.Runs,
		Successes:          c.Successes,
		Failures:           c.Failures,
		Reliability:        c.Reliability,
		OverallReliability: c.OverallReliability,
		AverageIterations:  c.AverageIterations,
		BestValueMean:      c.BestValueMean,
		BestValueStd:       c.BestValueStd,
		Averaged:           c.Averaged.History(),
		Outcomes:           make([]experiment.RunOutcome, 0, len(c.Trials)),
	}
	for _, trial := range c.Trials {
		out.Outcomes = append(out.Outcomes, experiment.RunOutcome{
			Trial:        trial.Trial,
			Seed:         trial.Seed,
			Status:       experiment.RunStatus(trial.Status),
			BestValue:    trial.BestValue,
			BestSolution: append([]float64(nil), trial.BestSolution...),
			FirstHit:     trial.FirstHit,
			History:      trial.History.History(),
			Error:        trial.Error,
		})
	}
	return out
}

func (r ExperimentRecord) Results() []experiment.Result {
	out := make([]experiment.Result, len(r.Configs))
	for i, cfg := range r.Configs {
		out[i] = cfg.Result()
	}
	return out
}
