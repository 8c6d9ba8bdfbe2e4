package storage

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreExperimentRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := sampleExperiment("exp-1", "2024-01-01T00:00:00Z")
	if err := store.SaveExperiment(ctx, input); err != nil {
		t.Fatalf("save experiment: %v", err)
	}

	output, ok, err := store.GetExperiment(ctx, "exp-1")
	if err != nil {
		t.Fatalf("get experiment: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted experiment")
	}
	if output.Objective != "sphere" || len(output.Configs) != 1 || output.Configs[0].Trials[1].FirstHit != -1 {
		t.Fatalf("unexpected experiment: %+v", output)
	}
	if *output.Configs[0].AverageIterations != 3 {
		t.Fatalf("unexpected average iterations: %v", *output.Configs[0].AverageIterations)
	}

	output.Configs[0].Label = "changed"
	again, _, _ := store.GetExperiment(ctx, "exp-1")
	if again.Configs[0].Label != "rank" {
		t.Fatal("stored record was modified through a loaded copy")
	}
}

func TestMemoryStoreListAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	for _, record := range []struct{ id, at string }{
		{"old", "2024-01-01T00:00:00Z"},
		{"new", "2024-03-01T00:00:00Z"},
		{"mid", "2024-02-01T00:00:00Z"},
	} {
		if err := store.SaveExperiment(ctx, sampleExperiment(record.id, record.at)); err != nil {
			t.Fatalf("save %s: %v", record.id, err)
		}
	}

	summaries, err := store.ListExperiments(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(summaries) != 3 || summaries[0].ID != "new" || summaries[2].ID != "old" {
		t.Fatalf("unexpected listing order: %+v", summaries)
	}
	if summaries[0].BestReliable != 50 || summaries[0].Configs != 1 {
		t.Fatalf("unexpected summary: %+v", summaries[0])
	}

	if err := store.DeleteExperiment(ctx, "mid"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.GetExperiment(ctx, "mid"); ok {
		t.Fatal("expected deleted experiment to be gone")
	}
}

func TestMemoryStoreRejectsUnversionedRecords(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	record := sampleExperiment("exp-1", "")
	record.SchemaVersion = 0
	if err := store.SaveExperiment(ctx, record); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got: %v", err)
	}
	record = sampleExperiment("", "")
	if err := store.SaveExperiment(ctx, record); err == nil {
		t.Fatal("expected missing id error")
	}
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	if err := store.SaveExperiment(context.Background(), sampleExperiment("exp-1", "")); err == nil {
		t.Fatal("expected uninitialized store error")
	}
}
