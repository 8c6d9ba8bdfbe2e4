package storage

import (
	"context"

	"genopt/internal/model"
)

// Store persists experiment records between CLI invocations.
type Store interface {
	Init(ctx context.Context) error
	SaveExperiment(ctx context.Context, record model.ExperimentRecord) error
	GetExperiment(ctx context.Context, id string) (model.ExperimentRecord, bool, error)
	ListExperiments(ctx context.Context) ([]model.ExperimentSummary, error)
	DeleteExperiment(ctx context.Context, id string) error
}
