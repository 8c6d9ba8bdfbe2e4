package evo

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// History holds one best/mean/worst entry per generation.
type History struct {
	Best  []float64 `json:"best"`
	Mean  []float64 `json:"mean"`
	Worst []float64 `json:"worst"`
}

func newHistory(generations int) History {
	return History{
		Best:  make([]float64, 0, generations),
		Mean:  make([]float64, 0, generations),
		Worst: make([]float64, 0, generations),
	}
}

func (h *History) record(fitness []float64) {
	h.Best = append(h.Best, floats.Min(fitness))
	h.Mean = append(h.Mean, stat.Mean(fitness, nil))
	h.Worst = append(h.Worst, floats.Max(fitness))
}

func (h History) Len() int {
	return len(h.Best)
}

// Metric returns the series named by m.
func (h History) Metric(m Metric) ([]float64, error) {
	switch m {
	case MetricBest:
		return h.Best, nil
	case MetricMean:
		return h.Mean, nil
	case MetricWorst:
		return h.Worst, nil
	default:
		return nil, fmt.Errorf("unknown history metric: %q", m)
	}
}

type Metric string

const (
	MetricBest  Metric = "best"
	MetricMean  Metric = "mean"
	MetricWorst Metric = "worst"
)
