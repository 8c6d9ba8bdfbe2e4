package stats

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gosuri/uitable"

	"genopt/internal/evo"
	"genopt/internal/model"
)

const maxColWidth = 60

// SummaryRow is one line of the reliability table.
type SummaryRow struct {
	Function           string   `json:"function"`
	Label              string   `json:"label"`
	Selection          string   `json:"selection"`
	Crossover          string   `json:"crossover"`
	Mutation           string   `json:"mutation"`
	Runs               int      `json:"runs"`
	Failures           int      `json:"failures"`
	Reliability        float64  `json:"reliability"`
	OverallReliability float64  `json:"overall_reliability"`
	AverageIterations  *float64 `json:"average_iterations"`
	BestValueMean      float64  `json:"best_value_mean"`
	BestValueStd       float64  `json:"best_value_std"`
}

func BuildSummaryRows(record model.ExperimentRecord) []SummaryRow {
	rows := make([]SummaryRow, 0, len(record.Configs))
	for _, cfg := range record.Configs {
		rows = append(rows, SummaryRow{
			Function:           record.Objective,
			Label:              cfg.Label,
			Selection:          string(cfg.Config.Selection),
			Crossover:          string(cfg.Config.Crossover),
			Mutation:           string(cfg.Config.MutationStrength),
			Runs:               cfg.Runs,
			Failures:           cfg.Failures,
			Reliability:        cfg.Reliability,
			OverallReliability: cfg.OverallReliability,
			AverageIterations:  cfg.AverageIterations,
			BestValueMean:      cfg.BestValueMean,
			BestValueStd:       cfg.BestValueStd,
		})
	}
	return rows
}

func RenderComparison(w io.Writer, rows []SummaryRow) error {
	table := uitable.New()
	table.MaxColWidth = maxColWidth
	table.Wrap = false
	table.AddRow("FUNCTION", "CONFIG", "SELECTION", "RELIABILITY", "AVG ITERS", "FAILED", "OF ALL RUNS", "BEST MEAN", "BEST STD")
	for _, row := range rows {
		table.AddRow(
			row.Function,
			row.Label,
			row.Selection,
			fmt.Sprintf("%.1f%%", row.Reliability),
			formatIterations(row.AverageIterations),
			strconv.Itoa(row.Failures),
			fmt.Sprintf("%.1f%%", row.OverallReliability),
			fmt.Sprintf("%.6g", row.BestValueMean),
			fmt.Sprintf("%.6g", row.BestValueStd),
		)
	}
	_, err := fmt.Fprintln(w, table)
	return err
}

func RenderExperimentList(w io.Writer, summaries []model.ExperimentSummary) error {
	if len(summaries) == 0 {
		_, err := fmt.Fprintln(w, "no experiments")
		return err
	}
	table := uitable.New()
	table.MaxColWidth = maxColWidth
	table.Wrap = false
	table.AddRow("ID", "FUNCTION", "CONFIGS", "RUNS", "BEST RELIABILITY", "CREATED")
	for _, s := range summaries {
		table.AddRow(s.ID, s.Objective, s.Configs, s.NumRuns, fmt.Sprintf("%.1f%%", s.BestReliable), s.CreatedAtUTC)
	}
	_, err := fmt.Fprintln(w, table)
	return err
}

// RenderRun prints the outcome of a single optimization run.
func RenderRun(w io.Writer, function string, result evo.Result) error {
	table := uitable.New()
	table.MaxColWidth = maxColWidth
	table.AddRow("function:", function)
	table.AddRow("best value:", fmt.Sprintf("%.10g", result.BestValue))
	table.AddRow("best solution:", formatVector(result.BestSolution))
	table.AddRow("generations:", result.History.Len())
	if n := result.History.Len(); n > 0 {
		table.AddRow("final mean:", fmt.Sprintf("%.6g", result.History.Mean[n-1]))
	}
	_, err := fmt.Fprintln(w, table)
	return err
}

func formatIterations(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func formatVector(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%.6f", v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
