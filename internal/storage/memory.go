package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"genopt/internal/model"
)

// MemoryStore keeps encoded records so callers never share memory with the
// stored copy.
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	experiments map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.experiments = make(map[string][]byte)
	return nil
}

func (s *MemoryStore) SaveExperiment(_ context.Context, record model.ExperimentRecord) error {
	if record.ID == "" {
		return errors.New("experiment id is required")
	}
	payload, err := EncodeExperiment(record)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	s.experiments[record.ID] = payload
	return nil
}

func (s *MemoryStore) GetExperiment(_ context.Context, id string) (model.ExperimentRecord, bool, error) {
	s.mu.RLock()
	payload, ok := s.experiments[id]
	s.mu.RUnlock()
	if !ok {
		return model.ExperimentRecord{}, false, nil
	}
	record, err := DecodeExperiment(payload)
	if err != nil {
		return model.ExperimentRecord{}, false, err
	}
	return record, true, nil
}

func (s *MemoryStore) ListExperiments(_ context.Context) ([]model.ExperimentSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.ExperimentSummary, 0, len(s.experiments))
	for _, payload := range s.experiments {
		record, err := DecodeExperiment(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, record.Summary())
	}
	sortSummaries(out)
	return out, nil
}

func (s *MemoryStore) DeleteExperiment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.experiments, id)
	return nil
}

// sortSummaries orders newest first, ties broken by id.
func sortSummaries(summaries []model.ExperimentSummary) {
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CreatedAtUTC != summaries[j].CreatedAtUTC {
			return summaries[i].CreatedAtUTC > summaries[j].CreatedAtUTC
		}
		return summaries[i].ID < summaries[j].ID
	})
}
