package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"genopt/internal/evo"
	"genopt/internal/experiment"
	"genopt/internal/model"
	"genopt/internal/stats"
	"genopt/internal/storage"
	"genopt/pkg/genopt"
)

const (
	defaultRuns  = 20
	defaultDB    = "genopt.db"
	artifactsDir = "experiments"
	exportsDir   = "exports"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	global := flag.NewFlagSet("genoptctl", flag.ContinueOnError)
	logLevel := global.String("log-level", "warn", "log level: debug|info|warn|error")
	logFormat := global.String("log-format", "text", "log format: text|json")
	if err := global.Parse(args); err != nil {
		return err
	}
	logger, err := newLogger(os.Stderr, *logLevel, *logFormat)
	if err != nil {
		return err
	}

	args = global.Args()
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, logger, args[1:])
	case "experiment":
		return runExperiment(ctx, logger, args[1:])
	case "compare":
		return runCompare(ctx, logger, args[1:])
	case "list":
		return runList(ctx, logger, args[1:])
	case "show":
		return runShow(ctx, logger, args[1:])
	case "export":
		return runExport(ctx, logger, args[1:])
	case "plot":
		return runPlot(ctx, logger, args[1:])
	case "functions":
		return runFunctions(args[1:])
	case "delete":
		return runDelete(ctx, logger, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
}

type storeFlags struct {
	kind   *string
	dbPath *string
}

func addStoreFlags(fs *flag.FlagSet) storeFlags {
	return storeFlags{
		kind:   fs.String("store", storage.DefaultStoreKind(), "store backend: "+choices(storage.StoreKinds())),
		dbPath: fs.String("db-path", defaultDB, "sqlite database path"),
	}
}

func (f storeFlags) open(ctx context.Context, logger *slog.Logger) (*genopt.Client, error) {
	client, err := genopt.New(genopt.Options{
		StoreKind:    *f.kind,
		DBPath:       *f.dbPath,
		ArtifactsDir: artifactsDir,
		ExportsDir:   exportsDir,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	if err := client.Init(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

type selectorFlags struct {
	id     *string
	latest *bool
}

func addSelectorFlags(fs *flag.FlagSet) selectorFlags {
	return selectorFlags{
		id:     fs.String("id", "", "experiment id"),
		latest: fs.Bool("latest", false, "use the most recent experiment from the index"),
	}
}

func runRun(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	function := fs.String("function", "rastrigin", "objective function name")
	bits := fs.Int("bits", genopt.DefaultBitsPerVar, "bits per variable")
	population := fs.Int("pop", 30, "population size")
	generations := fs.Int("gens", 50, "generation count")
	crossoverRate := fs.Float64("pc", 0.8, "crossover probability per pair")
	mutationRate := fs.Float64("pm", 1.0/64, "mutation rate")
	selection := fs.String("selection", string(evo.SelectionRank), "selection method: "+choices(evo.ListSelectionMethods()))
	crossover := fs.String("crossover", string(evo.CrossoverOnePoint), "crossover method: "+choices(evo.ListCrossoverMethods()))
	strength := fs.String("mutation", string(evo.MutationWeak), "mutation strength: "+choices(evo.ListMutationStrengths()))
	elite := fs.Int("elite", 1, "elite count")
	tournamentSize := fs.Int("tournament-size", evo.DefaultTournamentSize, "tournament size")
	nonFinite := fs.String("non-finite", string(evo.NonFiniteReject), "non-finite objective policy: reject|penalize")
	seed := fs.Int64("seed", 1, "rng seed")
	jsonOut := fs.Bool("json", false, "emit result as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := genopt.DefaultConfig(*function, *bits)
	if err != nil {
		return err
	}
	cfg.PopulationSize = *population
	cfg.Generations = *generations
	cfg.CrossoverRate = *crossoverRate
	cfg.MutationRate = *mutationRate
	cfg.Selection = evo.SelectionMethod(*selection)
	cfg.Crossover = evo.CrossoverMethod(*crossover)
	cfg.MutationStrength = evo.MutationStrength(*strength)
	cfg.EliteSize = *elite
	cfg.TournamentSize = *tournamentSize
	cfg.NonFinite = evo.NonFinitePolicy(*nonFinite)

	client, err := genopt.New(genopt.Options{StoreKind: "memory", Logger: logger})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Optimize(ctx, genopt.OptimizeRequest{Function: *function, Config: cfg, Seed: *seed})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(map[string]any{
			"function":      summary.Function,
			"seed":          *seed,
			"best_value":    summary.Result.BestValue,
			"best_solution": summary.Result.BestSolution,
			"succeeded":     summary.Succeeded,
			"history":       model.NewHistoryRecord(summary.Result.History),
		})
	}
	if err := stats.RenderRun(os.Stdout, summary.Function, summary.Result); err != nil {
		return err
	}
	fmt.Printf("succeeded=%t target=%g tolerance=%g\n", summary.Succeeded, summary.Target, summary.Tolerance)
	return nil
}

func runExperiment(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("experiment", flag.ContinueOnError)
	configPath := fs.String("config", "", "experiment file (YAML or JSON)")
	id := fs.String("id", "", "explicit experiment id (optional)")
	function := fs.String("function", "rastrigin", "objective function name")
	selections := fs.String("selections", strings.Join(evo.ListSelectionMethods(), ","), "comma-separated selection methods to compare: "+choices(evo.ListSelectionMethods()))
	bits := fs.Int("bits", genopt.DefaultBitsPerVar, "bits per variable")
	population := fs.Int("pop", 30, "population size")
	generations := fs.Int("gens", 50, "generation count")
	runs := fs.Int("runs", defaultRuns, "independent runs per configuration")
	seed := fs.Int64("seed", 1, "base rng seed")
	workers := fs.Int("workers", 4, "concurrent trials")
	tolerance := fs.Float64("tolerance", 0, "success tolerance override")
	target := fs.Float64("target", 0, "target value override")
	notes := fs.String("notes", "", "free-form notes stored with the experiment")
	plots := fs.Bool("plots", true, "write convergence plots")
	workbook := fs.Bool("workbook", false, "write an xlsx report")
	jsonOut := fs.Bool("json", false, "emit summary rows as JSON")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var req genopt.ExperimentRequest
	if *configPath != "" {
		for _, name := range []string{"function", "selections", "bits", "pop", "gens"} {
			if set[name] {
				return fmt.Errorf("--%s cannot be combined with --config; set it in the experiment file", name)
			}
		}
		file, err := loadExperimentFile(*configPath)
		if err != nil {
			return err
		}
		req, err = file.request()
		if err != nil {
			return err
		}
		if set["runs"] {
			req.NumRuns = *runs
		}
		if set["seed"] {
			req.Seed = *seed
		}
		if set["workers"] || req.Workers == 0 {
			req.Workers = *workers
		}
		if set["id"] {
			req.ID = *id
		}
		if set["notes"] {
			req.Notes = *notes
		}
	} else {
		specs, err := selectionSpecs(*function, *selections, *bits, *population, *generations)
		if err != nil {
			return err
		}
		req = genopt.ExperimentRequest{
			ID:       *id,
			Function: *function,
			Specs:    specs,
			NumRuns:  *runs,
			Seed:     *seed,
			Workers:  *workers,
			Notes:    *notes,
		}
	}
	if set["tolerance"] {
		req.Tolerance = tolerance
	}
	if set["target"] {
		req.Target = target
	}
	req.Plots = *plots
	req.Workbook = *workbook

	client, err := sf.open(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.RunExperiment(ctx, req)
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(summary.Rows)
	}
	fmt.Printf("experiment id=%s function=%s runs=%d dir=%s\n", summary.ID, summary.Record.Objective, summary.Record.NumRuns, summary.Directory)
	return stats.RenderComparison(os.Stdout, summary.Rows)
}

// selectionSpecs builds one configuration per selection method, the
// comparison the harness runs for every function by default.
func selectionSpecs(function, selections string, bits, population, generations int) ([]experiment.Spec, error) {
	base, err := genopt.DefaultConfig(function, bits)
	if err != nil {
		return nil, err
	}
	base.PopulationSize = population
	base.Generations = generations

	var specs []experiment.Spec
	for _, name := range strings.Split(selections, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		cfg := base.Clone()
		cfg.Selection = evo.SelectionMethod(name)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		specs = append(specs, experiment.Spec{Label: name, Config: cfg})
	}
	if len(specs) == 0 {
		return nil, errors.New("at least one selection method is required")
	}
	return specs, nil
}

func runCompare(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("compare", flag.ContinueOnError)
	sel := addSelectorFlags(fs)
	metric := fs.String("metric", string(evo.MetricBest), "curve metric: best|mean|worst")
	jsonOut := fs.Bool("json", false, "emit comparison as JSON")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := sf.open(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Compare(ctx, genopt.CompareRequest{ID: *sel.id, Latest: *sel.latest, Metric: evo.Metric(*metric)})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(summary.Comparisons)
	}
	fmt.Printf("experiment id=%s function=%s metric=%s\n", summary.ID, summary.Function, *metric)
	return stats.RenderComparison(os.Stdout, summary.Rows)
}

func runList(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max experiments to list")
	jsonOut := fs.Bool("json", false, "emit experiment list as JSON")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := sf.open(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	entries, err := client.Experiments(ctx, *limit)
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(entries)
	}
	if len(entries) == 0 {
		fmt.Println("no experiments found")
		return nil
	}
	return stats.RenderExperimentList(os.Stdout, entries)
}

func runShow(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	sel := addSelectorFlags(fs)
	jsonOut := fs.Bool("json", false, "emit the full experiment record as JSON")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := sf.open(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	record, err := client.Lookup(ctx, *sel.id, *sel.latest)
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(record)
	}
	fmt.Printf("experiment id=%s function=%s created_at=%s runs=%d seed=%d workers=%d target=%g tolerance=%g\n",
		record.ID,
		record.Objective,
		record.CreatedAtUTC,
		record.NumRuns,
		record.Seed,
		record.Workers,
		record.Target,
		record.Tolerance,
	)
	if record.Notes != "" {
		fmt.Printf("notes: %s\n", record.Notes)
	}
	return stats.RenderComparison(os.Stdout, stats.BuildSummaryRows(record))
}

func runExport(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	sel := addSelectorFlags(fs)
	outDir := fs.String("out", exportsDir, "export output directory")
	workbook := fs.Bool("workbook", true, "include an xlsx report")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := sf.open(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Export(ctx, genopt.ExportRequest{ID: *sel.id, Latest: *sel.latest, OutDir: *outDir, Workbook: *workbook})
	if err != nil {
		return err
	}
	fmt.Printf("exported id=%s to=%s\n", summary.ID, summary.Directory)
	return nil
}

func runPlot(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("plot", flag.ContinueOnError)
	sel := addSelectorFlags(fs)
	metric := fs.String("metric", string(evo.MetricBest), "curve metric: best|mean|worst")
	out := fs.String("out", "", "output image path (.png or .svg); defaults to the experiment directory")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := sf.open(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	path, err := client.Plot(ctx, genopt.PlotRequest{ID: *sel.id, Latest: *sel.latest, Metric: evo.Metric(*metric), OutPath: *out})
	if err != nil {
		return err
	}
	fmt.Printf("plot written to=%s\n", path)
	return nil
}

func runFunctions(args []string) error {
	fs := flag.NewFlagSet("functions", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit functions as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := genopt.New(genopt.Options{StoreKind: "memory"})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items := client.Functions()
	if *jsonOut {
		return writeJSON(items)
	}
	for _, item := range items {
		bounds := make([]string, len(item.Bounds))
		for i, b := range item.Bounds {
			bounds[i] = fmt.Sprintf("[%g,%g]", b.Min, b.Max)
		}
		fmt.Printf("name=%s bounds=%s target=%g tolerance=%g description=%q\n",
			item.Name, strings.Join(bounds, "x"), item.Target, item.Tolerance, item.Description)
	}
	return nil
}

func runDelete(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	id := fs.String("id", "", "experiment id")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("delete requires --id")
	}

	client, err := sf.open(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Delete(ctx, *id); err != nil {
		return err
	}
	fmt.Printf("deleted id=%s\n", *id)
	return nil
}

func choices(names []string) string {
	return strings.Join(names, "|")
}

func writeJSON(value any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: genoptctl [--log-level L] [--log-format F] <run|experiment|compare|list|show|export|plot|functions|delete> [flags]", msg)
}
