package storage

import (
	"genopt/internal/evo"
	"genopt/internal/model"
)

func sampleExperiment(id, createdAt string) model.ExperimentRecord {
	avg := 3.0
	return Stamp(model.ExperimentRecord{
		ID:           id,
		Objective:    "sphere",
		CreatedAtUTC: createdAt,
		NumRuns:      2,
		Tolerance:    0.003,
		Seed:         7,
		Workers:      1,
		Configs: []model.ConfigResult{{
			Label:             "rank",
			Config:            evo.DefaultConfig([]evo.Bounds{{Min: -5, Max: 5}, {Min: -5, Max: 5}}, 16),
			Runs:              2,
			Successes:         1,
			Reliability:       50,
			AverageIterations: &avg,
			BestValueMean:     0.002,
			Averaged: model.HistoryRecord{
				Best:  model.Series{1, 0.5, 0.002},
				Mean:  model.Series{4, 2, 1},
				Worst: model.Series{9, 8, 7},
			},
			Trials: []model.RunRecord{
				{Trial: 0, Seed: 1, Status: "succeeded", BestValue: 0.001, FirstHit: 3},
				{Trial: 1, Seed: 2, Status: "unsuccessful", BestValue: 0.003, FirstHit: -1},
			},
		}},
	})
}
