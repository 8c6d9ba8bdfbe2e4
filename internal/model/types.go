package model

import (
	"genopt/internal/evo"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// ExperimentRecord is one stored experiment: the batch parameters and the
// aggregated result of every configuration that took part.
type ExperimentRecord struct {
	VersionedRecord
	ID           string         `json:"id"`
	Objective    string         `json:"objective"`
	CreatedAtUTC string         `json:"created_at_utc"`
	NumRuns      int            `json:"num_runs"`
	Target       float64        `json:"target"`
	Tolerance    float64        `json:"tolerance"`
	Seed         int64          `json:"seed"`
	Workers      int            `json:"workers"`
	Notes        string         `json:"notes,omitempty"`
	Configs      []ConfigResult `json:"configs"`
}

// ExperimentSummary is the listing view of an ExperimentRecord.
type ExperimentSummary struct {
	ID           string  `json:"id"`
	Objective    string  `json:"objective"`
	CreatedAtUTC string  `json:"created_at_utc"`
	NumRuns      int     `json:"num_runs"`
	Configs      int     `json:"configs"`
	BestReliable float64 `json:"best_reliability"`
}

type ConfigResult struct {
	Label              string        `json:"label"`
	Config             evo.Config    `json:"config"`
	Runs               int           `json:"runs"`
	Successes          int           `json:"successes"`
	Failures           int           `json:"failures"`
	Reliability        float64       `json:"reliability"`
	OverallReliability float64       `json:"overall_reliability"`
	AverageIterations  *float64      `json:"average_iterations"`
	BestValueMean      float64       `json:"best_value_mean"`
	BestValueStd       float64       `json:"best_value_std"`
	Averaged           HistoryRecord `json:"averaged"`
	Trials             []RunRecord   `json:"trials"`
}

type RunRecord struct {
	Trial        int           `json:"trial"`
	Seed         int64         `json:"seed"`
	Status       string        `json:"status"`
	BestValue    float64       `json:"best_value"`
	BestSolution []float64     `json:"best_solution,omitempty"`
	FirstHit     int           `json:"first_hit"`
	History      HistoryRecord `json:"history"`
	Error        string        `json:"error,omitempty"`
}

type HistoryRecord struct {
	Best  Series `json:"best"`
	Mean  Series `json:"mean"`
	Worst Series `json:"worst"`
}

func (r ExperimentRecord) Summary() ExperimentSummary {
	summary := ExperimentSummary{
		ID:           r.ID,
		Objective:    r.Objective,
		CreatedAtUTC: r.CreatedAtUTC,
		NumRuns:      r.NumRuns,
		Configs:      len(r.Configs),
	}
	for _, cfg := range r.Configs {
		if cfg.Reliability > summary.BestReliable {
			summary.BestReliable = cfg.Reliability
		}
	}
	return summary
}
