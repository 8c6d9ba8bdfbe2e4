package genopt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"genopt/internal/evo"
	"genopt/internal/experiment"
	"genopt/internal/model"
	"genopt/internal/objective"
	"genopt/internal/stats"
	"genopt/internal/storage"
)

const (
	defaultArtifactsDir = "experiments"
	defaultExportsDir   = "exports"
	defaultDBPath       = "genopt.db"

	DefaultBitsPerVar = 16

	// Fixed-width so index entries sort lexically by time.
	timestampLayout = "2006-01-02T15:04:05.000000000Z"
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string
	Logger       *slog.Logger
}

type Client struct {
	store  storage.Store
	logger *slog.Logger

	artifactsDir string
	exportsDir   string
}

// OptimizeRequest describes a single GA run. A zero Config is replaced by the
// default configuration for the function.
type OptimizeRequest struct {
	Function string
	Config   evo.Config
	Seed     int64
}

type OptimizeSummary struct {
	Function  string
	Target    float64
	Tolerance float64
	Succeeded bool
	Result    evo.Result
}

type ExperimentRequest struct {
	ID       string
	Function string
	Specs    []experiment.Spec
	NumRuns  int
	Seed     int64
	Workers  int
	// Target and Tolerance override the values registered with the function.
	Target    *float64
	Tolerance *float64
	Notes     string
	Plots     bool
	Workbook  bool
}

type ExperimentSummary struct {
	ID        string
	Directory string
	Record    model.ExperimentRecord
	Rows      []stats.SummaryRow
	Files     []string
}

type CompareRequest struct {
	ID     string
	Latest bool
	Metric evo.Metric
}

type CompareSummary struct {
	ID          string
	Function    string
	Rows        []stats.SummaryRow
	Comparisons []experiment.Comparison
}

type ExportRequest struct {
	ID       string
	Latest   bool
	OutDir   string
	Workbook bool
}

type ExportSummary struct {
	ID        string
	Directory string
}

type PlotRequest struct {
	ID      string
	Latest  bool
	Metric  evo.Metric
	OutPath string
}

type FunctionItem struct {
	Name        string
	Description string
	Bounds      []evo.Bounds
	Target      float64
	Tolerance   float64
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:        store,
		logger:       logger,
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

// DefaultConfig returns the default GA configuration over the search space of
// the named function.
func DefaultConfig(function string, bitsPerVar int) (evo.Config, error) {
	fn, err := objective.Resolve(function)
	if err != nil {
		return evo.Config{}, err
	}
	if bitsPerVar <= 0 {
		bitsPerVar = DefaultBitsPerVar
	}
	return evo.DefaultConfig(fn.Bounds, bitsPerVar), nil
}

func (c *Client) Functions() []FunctionItem {
	fns := objective.List()
	out := make([]FunctionItem, 0, len(fns))
	for _, fn := range fns {
		out = append(out, FunctionItem{
			Name:        fn.Name,
			Description: fn.Description,
			Bounds:      fn.Bounds,
			Target:      fn.Target,
			Tolerance:   fn.Tolerance,
		})
	}
	return out
}

func (c *Client) Optimize(ctx context.Context, req OptimizeRequest) (OptimizeSummary, error) {
	fn, err := objective.Resolve(req.Function)
	if err != nil {
		return OptimizeSummary{}, err
	}
	cfg := req.Config
	if cfg.PopulationSize == 0 && len(cfg.Bounds) == 0 {
		cfg = evo.DefaultConfig(fn.Bounds, DefaultBitsPerVar)
	}

	engine, err := evo.NewEngine(cfg, fn, evo.WithLogger(c.logger))
	if err != nil {
		return OptimizeSummary{}, err
	}
	started := time.Now()
	result, err := engine.Run(ctx, rand.New(rand.NewSource(req.Seed)))
	if err != nil {
		return OptimizeSummary{}, err
	}
	c.logger.Info("run finished",
		"function", fn.Name,
		"seed", req.Seed,
		"best_value", result.BestValue,
		"elapsed", time.Since(started),
	)
	return OptimizeSummary{
		Function:  fn.Name,
		Target:    fn.Target,
		Tolerance: fn.Tolerance,
		Succeeded: fn.Succeeded(result.BestValue),
		Result:    result,
	}, nil
}

// RunExperiment repeats every spec NumRuns times, stores the aggregated record
// and writes its artifacts.
func (c *Client) RunExperiment(ctx context.Context, req ExperimentRequest) (ExperimentSummary, error) {
	fn, err := objective.Resolve(req.Function)
	if err != nil {
		return ExperimentSummary{}, err
	}
	if len(req.Specs) == 0 {
		cfg := evo.DefaultConfig(fn.Bounds, DefaultBitsPerVar)
		req.Specs = []experiment.Spec{{Config: cfg}}
	}
	target := fn.Target
	if req.Target != nil {
		target = *req.Target
	}
	tolerance := fn.Tolerance
	if req.Tolerance != nil {
		tolerance = *req.Tolerance
	}

	runner, err := experiment.NewRunner(experiment.Options{
		NumRuns:   req.NumRuns,
		Target:    target,
		Tolerance: tolerance,
		Seed:      req.Seed,
		Workers:   req.Workers,
		Logger:    c.logger,
	})
	if err != nil {
		return ExperimentSummary{}, err
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}
	if err := stats.ValidateExperimentID(id); err != nil {
		return ExperimentSummary{}, err
	}
	c.logger.Info("experiment started", "id", id, "function", fn.Name, "configs", len(req.Specs), "runs", req.NumRuns)

	results, err := runner.Run(ctx, fn, req.Specs)
	if err != nil {
		return ExperimentSummary{}, err
	}

	record := model.ExperimentRecord{
		ID:           id,
		Objective:    fn.Name,
		CreatedAtUTC: time.Now().UTC().Format(timestampLayout),
		NumRuns:      req.NumRuns,
		Target:       target,
		Tolerance:    tolerance,
		Seed:         req.Seed,
		Workers:      runner.Options().Workers,
		Notes:        strings.TrimSpace(req.Notes),
		Configs:      make([]model.ConfigResult, 0, len(results)),
	}
	for _, result := range results {
		record.Configs = append(record.Configs, model.NewConfigResult(result))
	}
	record = storage.Stamp(record)

	if err := c.store.SaveExperiment(ctx, record); err != nil {
		return ExperimentSummary{}, fmt.Errorf("save experiment %s: %w", id, err)
	}
	dir, err := stats.WriteExperimentArtifacts(c.artifactsDir, record)
	if err != nil {
		return ExperimentSummary{}, err
	}
	if err := stats.AppendExperimentIndex(c.artifactsDir, record.Summary()); err != nil {
		return ExperimentSummary{}, err
	}

	summary := ExperimentSummary{
		ID:        id,
		Directory: filepath.Clean(dir),
		Record:    record,
		Rows:      stats.BuildSummaryRows(record),
	}
	if req.Plots {
		paths, err := stats.WriteConvergencePlots(dir, record)
		if err != nil {
			return ExperimentSummary{}, err
		}
		summary.Files = append(summary.Files, paths...)
	}
	if req.Workbook {
		path := filepath.Join(dir, "report.xlsx")
		if err := stats.WriteWorkbook(path, record); err != nil {
			return ExperimentSummary{}, err
		}
		summary.Files = append(summary.Files, path)
	}
	return summary, nil
}

// Experiments lists experiments known to the store or to the artifact index,
// newest first. Store entries win when both know an id.
func (c *Client) Experiments(ctx context.Context, limit int) ([]model.ExperimentSummary, error) {
	stored, err := c.store.ListExperiments(ctx)
	if err != nil {
		return nil, err
	}
	indexed, err := stats.ListExperimentIndex(c.artifactsDir)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(stored)+len(indexed))
	entries := make([]model.ExperimentSummary, 0, len(stored)+len(indexed))
	for _, group := range [][]model.ExperimentSummary{stored, indexed} {
		for _, entry := range group {
			if _, ok := seen[entry.ID]; ok {
				continue
			}
			seen[entry.ID] = struct{}{}
			entries = append(entries, entry)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAtUTC != entries[j].CreatedAtUTC {
			return entries[i].CreatedAtUTC > entries[j].CreatedAtUTC
		}
		return entries[i].ID < entries[j].ID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Experiment loads one record from the store, falling back to the artifacts
// written by earlier processes.
func (c *Client) Experiment(ctx context.Context, id string) (model.ExperimentRecord, error) {
	if err := stats.ValidateExperimentID(id); err != nil {
		return model.ExperimentRecord{}, err
	}
	record, ok, err := c.store.GetExperiment(ctx, id)
	if err != nil {
		return model.ExperimentRecord{}, err
	}
	if ok {
		return record, nil
	}
	record, ok, err = stats.ReadExperimentArtifacts(c.artifactsDir, id)
	if err != nil {
		return model.ExperimentRecord{}, err
	}
	if !ok {
		return model.ExperimentRecord{}, fmt.Errorf("experiment not found: %s", id)
	}
	return record, nil
}

// Lookup loads the experiment named by id, or the most recent one when latest
// is set.
func (c *Client) Lookup(ctx context.Context, id string, latest bool) (model.ExperimentRecord, error) {
	id, err := c.resolveID(ctx, id, latest)
	if err != nil {
		return model.ExperimentRecord{}, err
	}
	return c.Experiment(ctx, id)
}

func (c *Client) Compare(ctx context.Context, req CompareRequest) (CompareSummary, error) {
	record, err := c.Lookup(ctx, req.ID, req.Latest)
	if err != nil {
		return CompareSummary{}, err
	}
	metric := req.Metric
	if metric == "" {
		metric = evo.MetricBest
	}
	comparisons, err := experiment.Compare(record.Results(), metric)
	if err != nil {
		return CompareSummary{}, err
	}
	return CompareSummary{
		ID:          record.ID,
		Function:    record.Objective,
		Rows:        stats.BuildSummaryRows(record),
		Comparisons: comparisons,
	}, nil
}

func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	id, err := c.resolveID(ctx, req.ID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}
	if req.Workbook {
		record, err := c.Experiment(ctx, id)
		if err != nil {
			return ExportSummary{}, err
		}
		if err := stats.WriteWorkbook(filepath.Join(c.artifactsDir, id, "report.xlsx"), record); err != nil {
			return ExportSummary{}, err
		}
	}
	exportedDir, err := stats.ExportExperimentArtifacts(c.artifactsDir, id, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{ID: id, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) Plot(ctx context.Context, req PlotRequest) (string, error) {
	record, err := c.Lookup(ctx, req.ID, req.Latest)
	if err != nil {
		return "", err
	}
	id := record.ID
	metric := req.Metric
	if metric == "" {
		metric = evo.MetricBest
	}
	out := req.OutPath
	if out == "" {
		out = filepath.Join(c.artifactsDir, id, fmt.Sprintf("convergence_%s.png", metric))
	}
	if err := stats.WriteConvergencePlot(out, record, metric); err != nil {
		return "", err
	}
	return filepath.Clean(out), nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if err := stats.ValidateExperimentID(id); err != nil {
		return err
	}
	if err := c.store.DeleteExperiment(ctx, id); err != nil {
		return err
	}
	return stats.RemoveExperimentArtifacts(c.artifactsDir, id)
}

func (c *Client) resolveID(ctx context.Context, id string, latest bool) (string, error) {
	id = strings.TrimSpace(id)
	if id != "" && latest {
		return "", errors.New("use either experiment id or latest")
	}
	if id != "" {
		if err := stats.ValidateExperimentID(id); err != nil {
			return "", err
		}
		return id, nil
	}
	if !latest {
		return "", errors.New("experiment id or latest is required")
	}
	entries, err := c.Experiments(ctx, 1)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no experiments available")
	}
	return entries[0].ID, nil
}
