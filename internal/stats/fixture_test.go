package stats

import (
	"math"

	"genopt/internal/evo"
	"genopt/internal/model"
)

func sampleRecord(id string) model.ExperimentRecord {
	avg := 4.5
	cfg := evo.DefaultConfig([]evo.Bounds{{Min: -5, Max: 5}, {Min: -5, Max: 5}}, 16)
	tournament := cfg.Clone()
	tournament.Selection = evo.SelectionTournament
	return model.ExperimentRecord{
		VersionedRecord: model.VersionedRecord{SchemaVersion: 1, CodecVersion: 1},
		ID:              id,
		Objective:       "sphere",
		CreatedAtUTC:    "2024-05-01T10:00:00Z",
		NumRuns:         2,
		Tolerance:       0.003,
		Configs: []model.ConfigResult{
			{
				Label:              "rank",
				Config:             cfg,
				Runs:               2,
				Successes:          2,
				Reliability:        100,
				OverallReliability: 100,
				AverageIterations:  &avg,
				BestValueMean:      0.001,
				BestValueStd:       0.0005,
				Averaged: model.HistoryRecord{
					Best:  model.Series{2, 1, 0.001},
					Mean:  model.Series{5, 3, 1},
					Worst: model.Series{math.Inf(1), 9, 8},
				},
				Trials: []model.RunRecord{
					{Trial: 0, Seed: 1, Status: "succeeded", BestValue: 0.0005, FirstHit: 4},
					{Trial: 1, Seed: 2, Status: "succeeded", BestValue: 0.0015, FirstHit: 5},
				},
			},
			{
				Label:       "tournament",
				Config:      tournament,
				Runs:        2,
				Failures:    1,
				Reliability: 0,
				Averaged: model.HistoryRecord{
					Best:  model.Series{3, 2, 1},
					Mean:  model.Series{6, 4, 2},
					Worst: model.Series{10, 9, 8},
				},
				Trials: []model.RunRecord{
					{Trial: 0, Seed: 3, Status: "unsuccessful", BestValue: 1, FirstHit: -1},
					{Trial: 1, Seed: 4, Status: "failed", FirstHit: -1, Error: "objective evaluation failed"},
				},
			},
		},
	}
}
