package genopt

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"genopt/internal/evo"
	"genopt/internal/experiment"
	"genopt/internal/objective"
	"genopt/internal/stats"
	"genopt/internal/storage"
)

func newTestClient(t *testing.T) (*Client, string) {
	t.Helper()
	base := t.TempDir()
	client, err := New(Options{
		StoreKind:    "memory",
		ArtifactsDir: filepath.Join(base, "experiments"),
		ExportsDir:   filepath.Join(base, "exports"),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := client.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, base
}

func smallSpecs(t *testing.T) []experiment.Spec {
	t.Helper()
	rank, err := DefaultConfig("sphere", 12)
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	rank.PopulationSize = 12
	rank.Generations = 8
	tournament := rank.Clone()
	tournament.Selection = evo.SelectionTournament
	return []experiment.Spec{{Label: "rank", Config: rank}, {Label: "tournament", Config: tournament}}
}

func TestClientOptimize(t *testing.T) {
	client, _ := newTestClient(t)

	summary, err := client.Optimize(context.Background(), OptimizeRequest{Function: "sphere", Seed: 7})
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if summary.Function != "sphere" || len(summary.Result.BestSolution) != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Result.History.Len() != 50 {
		t.Fatalf("expected default generation count, got %d", summary.Result.History.Len())
	}

	again, err := client.Optimize(context.Background(), OptimizeRequest{Function: "sphere", Seed: 7})
	if err != nil {
		t.Fatalf("optimize again: %v", err)
	}
	if again.Result.BestValue != summary.Result.BestValue {
		t.Fatalf("expected reproducible run: %v != %v", again.Result.BestValue, summary.Result.BestValue)
	}

	if _, err := client.Optimize(context.Background(), OptimizeRequest{Function: "missing"}); !errors.Is(err, objective.ErrFunctionNotFound) {
		t.Fatalf("expected ErrFunctionNotFound, got: %v", err)
	}

	cfg, _ := DefaultConfig("sphere", 8)
	cfg.EliteSize = -1
	if _, err := client.Optimize(context.Background(), OptimizeRequest{Function: "sphere", Config: cfg}); !errors.Is(err, evo.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got: %v", err)
	}
}

func TestClientExperimentLifecycle(t *testing.T) {
	client, base := newTestClient(t)
	ctx := context.Background()
	wide := 1e6

	summary, err := client.RunExperiment(ctx, ExperimentRequest{
		ID:        "exp-1",
		Function:  "sphere",
		Specs:     smallSpecs(t),
		NumRuns:   3,
		Seed:      11,
		Workers:   2,
		Tolerance: &wide,
		Plots:     true,
		Workbook:  true,
	})
	if err != nil {
		t.Fatalf("run experiment: %v", err)
	}
	if summary.ID != "exp-1" || len(summary.Rows) != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	for _, row := range summary.Rows {
		if row.Reliability != 100 {
			t.Fatalf("expected full reliability with wide tolerance: %+v", row)
		}
	}
	if len(summary.Files) != 4 {
		t.Fatalf("expected three plots and a workbook, got %v", summary.Files)
	}
	for _, path := range summary.Files {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected file %s: %v", path, err)
		}
	}

	items, err := client.Experiments(ctx, 10)
	if err != nil {
		t.Fatalf("list experiments: %v", err)
	}
	if len(items) != 1 || items[0].ID != "exp-1" || items[0].Configs != 2 {
		t.Fatalf("unexpected listing: %+v", items)
	}

	record, err := client.Experiment(ctx, "exp-1")
	if err != nil {
		t.Fatalf("get experiment: %v", err)
	}
	if record.Tolerance != wide || record.Workers != 2 {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.SchemaVersion != storage.CurrentSchemaVersion || record.CodecVersion != storage.CurrentCodecVersion {
		t.Fatalf("expected stamped record versions, got %+v", record.VersionedRecord)
	}

	latest, err := client.Lookup(ctx, "", true)
	if err != nil {
		t.Fatalf("lookup latest: %v", err)
	}
	if latest.ID != "exp-1" {
		t.Fatalf("unexpected latest experiment: %s", latest.ID)
	}

	compare, err := client.Compare(ctx, CompareRequest{Latest: true, Metric: evo.MetricMean})
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if compare.ID != "exp-1" || len(compare.Comparisons) != 2 || len(compare.Comparisons[0].Curve) != 8 {
		t.Fatalf("unexpected comparison: %+v", compare)
	}

	plotPath, err := client.Plot(ctx, PlotRequest{ID: "exp-1", Metric: evo.MetricWorst, OutPath: filepath.Join(base, "worst.svg")})
	if err != nil {
		t.Fatalf("plot: %v", err)
	}
	if _, err := os.Stat(plotPath); err != nil {
		t.Fatalf("expected plot file: %v", err)
	}

	exported, err := client.Export(ctx, ExportRequest{Latest: true})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := os.Stat(filepath.Join(exported.Directory, "report.xlsx")); err != nil {
		t.Fatalf("expected exported workbook: %v", err)
	}

	if err := client.Delete(ctx, "exp-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := client.Experiment(ctx, "exp-1"); err == nil {
		t.Fatal("expected deleted experiment to be missing")
	}
}

func TestClientExperimentSurvivesNewClient(t *testing.T) {
	client, base := newTestClient(t)
	ctx := context.Background()

	summary, err := client.RunExperiment(ctx, ExperimentRequest{Function: "sphere", Specs: smallSpecs(t), NumRuns: 2})
	if err != nil {
		t.Fatalf("run experiment: %v", err)
	}
	if summary.ID == "" {
		t.Fatal("expected generated experiment id")
	}

	fresh, err := New(Options{StoreKind: "memory", ArtifactsDir: filepath.Join(base, "experiments")})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := fresh.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	record, err := fresh.Experiment(ctx, summary.ID)
	if err != nil {
		t.Fatalf("load from artifacts: %v", err)
	}
	if record.Objective != "sphere" || len(record.Configs) != 2 {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func TestClientExperimentsMergesStoreAndIndex(t *testing.T) {
	client, base := newTestClient(t)
	ctx := context.Background()

	for _, id := range []string{"first", "second"} {
		if _, err := client.RunExperiment(ctx, ExperimentRequest{ID: id, Function: "sphere", Specs: smallSpecs(t), NumRuns: 1}); err != nil {
			t.Fatalf("run experiment %s: %v", id, err)
		}
	}
	artifactsDir := filepath.Join(base, "experiments")
	if err := os.Remove(filepath.Join(artifactsDir, "experiment_index.json")); err != nil {
		t.Fatalf("remove index: %v", err)
	}

	items, err := client.Experiments(ctx, 0)
	if err != nil {
		t.Fatalf("list experiments: %v", err)
	}
	if len(items) != 2 || items[0].ID != "second" || items[1].ID != "first" {
		t.Fatalf("expected store listing newest first, got %+v", items)
	}
	latest, err := client.Lookup(ctx, "", true)
	if err != nil || latest.ID != "second" {
		t.Fatalf("lookup latest from store: id=%s err=%v", latest.ID, err)
	}

	fresh, err := New(Options{StoreKind: "memory", ArtifactsDir: artifactsDir})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := fresh.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if items, err := fresh.Experiments(ctx, 0); err != nil || len(items) != 0 {
		t.Fatalf("expected empty listing without store or index: %+v err=%v", items, err)
	}

	summary, err := client.RunExperiment(ctx, ExperimentRequest{ID: "third", Function: "sphere", Specs: smallSpecs(t), NumRuns: 1})
	if err != nil {
		t.Fatalf("run experiment third: %v", err)
	}
	items, err = fresh.Experiments(ctx, 0)
	if err != nil || len(items) != 1 || items[0].ID != summary.ID {
		t.Fatalf("expected index listing for fresh client: %+v err=%v", items, err)
	}
}

func TestClientRequestValidation(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	if _, err := client.RunExperiment(ctx, ExperimentRequest{Function: "sphere", NumRuns: 0}); err == nil {
		t.Fatal("expected num runs error")
	}
	if _, err := client.Compare(ctx, CompareRequest{}); err == nil {
		t.Fatal("expected missing id error")
	}
	if _, err := client.Compare(ctx, CompareRequest{ID: "x", Latest: true}); err == nil {
		t.Fatal("expected conflicting selector error")
	}
	if _, err := client.Export(ctx, ExportRequest{Latest: true}); err == nil {
		t.Fatal("expected no experiments error")
	}
	if err := client.Delete(ctx, " "); err == nil {
		t.Fatal("expected empty id error")
	}
}

func TestClientRejectsExperimentIDsOutsideArtifactsDir(t *testing.T) {
	client, base := newTestClient(t)
	ctx := context.Background()
	outside := filepath.Join(base, "precious.txt")
	if err := os.WriteFile(outside, []byte("keep"), 0o644); err != nil {
		t.Fatalf("write outside file: %v", err)
	}

	for _, id := range []string{"..", ".", "../escape", "nested/id"} {
		if err := client.Delete(ctx, id); !errors.Is(err, stats.ErrInvalidExperimentID) {
			t.Fatalf("delete %q: expected ErrInvalidExperimentID, got %v", id, err)
		}
		if _, err := client.Experiment(ctx, id); !errors.Is(err, stats.ErrInvalidExperimentID) {
			t.Fatalf("experiment %q: expected ErrInvalidExperimentID, got %v", id, err)
		}
		if _, err := client.Export(ctx, ExportRequest{ID: id}); !errors.Is(err, stats.ErrInvalidExperimentID) {
			t.Fatalf("export %q: expected ErrInvalidExperimentID, got %v", id, err)
		}
		_, err := client.RunExperiment(ctx, ExperimentRequest{ID: id, Function: "sphere", Specs: smallSpecs(t), NumRuns: 1})
		if !errors.Is(err, stats.ErrInvalidExperimentID) {
			t.Fatalf("run experiment %q: expected ErrInvalidExperimentID, got %v", id, err)
		}
	}
	if _, err := os.Stat(outside); err != nil {
		t.Fatalf("file outside artifacts dir was touched: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "escape")); !os.IsNotExist(err) {
		t.Fatalf("expected nothing written outside artifacts dir, stat err: %v", err)
	}
}

func TestClientFunctions(t *testing.T) {
	client, _ := newTestClient(t)
	items := client.Functions()
	if len(items) < 6 {
		t.Fatalf("expected built-in functions, got %d", len(items))
	}
	for _, item := range items {
		if len(item.Bounds) == 0 || item.Tolerance <= 0 {
			t.Fatalf("unexpected function item: %+v", item)
		}
	}
}
