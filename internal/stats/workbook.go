package stats

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"genopt/internal/model"
)

const (
	summarySheet = "Summary"
	curvesSheet  = "Curves"
	trialsSheet  = "Trials"
)

// WriteWorkbook exports the reliability table, the averaged curves and the
// per-trial outcomes of an experiment as an XLSX workbook.
func WriteWorkbook(path string, record model.ExperimentRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(summarySheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	summary := [][]any{{"Function", "Config", "Selection", "Crossover", "Mutation", "Runs", "Failures", "Reliability %", "Overall reliability %", "Avg iterations", "Best mean", "Best std"}}
	for _, row := range BuildSummaryRows(record) {
		var iterations any = "-"
		if row.AverageIterations != nil {
			iterations = *row.AverageIterations
		}
		summary = append(summary, []any{
			row.Function, row.Label, row.Selection, row.Crossover, row.Mutation,
			row.Runs, row.Failures, row.Reliability, row.OverallReliability, iterations, row.BestValueMean, row.BestValueStd,
		})
	}
	if err := writeRows(f, summarySheet, summary); err != nil {
		return err
	}

	if _, err := f.NewSheet(curvesSheet); err != nil {
		return err
	}
	curves := [][]any{{"Config", "Generation", "Best", "Mean", "Worst"}}
	for _, cfg := range record.Configs {
		for g := range cfg.Averaged.Best {
			curves = append(curves, []any{
				cfg.Label, g + 1,
				cellFloat(cfg.Averaged.Best[g]),
				cellFloat(seriesAt(cfg.Averaged.Mean, g)),
				cellFloat(seriesAt(cfg.Averaged.Worst, g)),
			})
		}
	}
	if err := writeRows(f, curvesSheet, curves); err != nil {
		return err
	}

	if _, err := f.NewSheet(trialsSheet); err != nil {
		return err
	}
	trials := [][]any{{"Config", "Trial", "Seed", "Status", "Best value", "First hit", "Error"}}
	for _, cfg := range record.Configs {
		for _, trial := range cfg.Trials {
			trials = append(trials, []any{cfg.Label, trial.Trial, trial.Seed, trial.Status, trial.BestValue, trial.FirstHit, trial.Error})
		}
	}
	if err := writeRows(f, trialsSheet, trials); err != nil {
		return err
	}

	return f.SaveAs(path)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		for j, value := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("%s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}

// cellFloat keeps +Inf out of numeric cells, which XLSX cannot store.
func cellFloat(v float64) any {
	if math.IsInf(v, 0) {
		return formatFloat(v)
	}
	return v
}
