package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"genopt/internal/evo"
	"genopt/internal/experiment"
	"genopt/pkg/genopt"
)

// experimentFile is the on-disk experiment description. JSON files parse too,
// since JSON is a subset of YAML.
type experimentFile struct {
	ID        string           `yaml:"id"`
	Function  string           `yaml:"function"`
	Runs      int              `yaml:"runs"`
	Seed      int64            `yaml:"seed"`
	Workers   int              `yaml:"workers"`
	Bits      int              `yaml:"bits"`
	Target    *float64         `yaml:"target"`
	Tolerance *float64         `yaml:"tolerance"`
	Notes     string           `yaml:"notes"`
	Base      configOverride   `yaml:"base"`
	Configs   []configOverride `yaml:"configs"`
}

// configOverride holds the fields a file may set on top of the default
// configuration. Unset fields keep the default.
type configOverride struct {
	Label            string   `yaml:"label"`
	PopulationSize   *int     `yaml:"pop_size"`
	Generations      *int     `yaml:"generations"`
	CrossoverRate    *float64 `yaml:"crossover_rate"`
	MutationRate     *float64 `yaml:"mutation_rate"`
	Selection        *string  `yaml:"selection_method"`
	Crossover        *string  `yaml:"crossover_method"`
	MutationStrength *string  `yaml:"mutation_strength"`
	EliteSize        *int     `yaml:"elite_size"`
	BitsPerVar       *int     `yaml:"bits_per_var"`
	TournamentSize   *int     `yaml:"tournament_size"`
	NonFinite        *string  `yaml:"non_finite"`
}

func (o configOverride) apply(cfg evo.Config) evo.Config {
	if o.PopulationSize != nil {
		cfg.PopulationSize = *o.PopulationSize
	}
	if o.Generations != nil {
		cfg.Generations = *o.Generations
	}
	if o.CrossoverRate != nil {
		cfg.CrossoverRate = *o.CrossoverRate
	}
	if o.MutationRate != nil {
		cfg.MutationRate = *o.MutationRate
	}
	if o.Selection != nil {
		cfg.Selection = evo.SelectionMethod(*o.Selection)
	}
	if o.Crossover != nil {
		cfg.Crossover = evo.CrossoverMethod(*o.Crossover)
	}
	if o.MutationStrength != nil {
		cfg.MutationStrength = evo.MutationStrength(*o.MutationStrength)
	}
	if o.EliteSize != nil {
		cfg.EliteSize = *o.EliteSize
	}
	if o.BitsPerVar != nil {
		cfg.BitsPerVar = *o.BitsPerVar
	}
	if o.TournamentSize != nil {
		cfg.TournamentSize = *o.TournamentSize
	}
	if o.NonFinite != nil {
		cfg.NonFinite = evo.NonFinitePolicy(*o.NonFinite)
	}
	return cfg
}

func loadExperimentFile(path string) (experimentFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return experimentFile{}, err
	}
	return parseExperimentFile(data)
}

func parseExperimentFile(data []byte) (experimentFile, error) {
	var file experimentFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return experimentFile{}, errors.New("experiment file is empty")
		}
		return experimentFile{}, fmt.Errorf("parse experiment file: %w", err)
	}
	if strings.TrimSpace(file.Function) == "" {
		return experimentFile{}, errors.New("experiment file: function is required")
	}
	return file, nil
}

// request builds the client request, validating every configuration before
// any run starts.
func (f experimentFile) request() (genopt.ExperimentRequest, error) {
	defaults, err := genopt.DefaultConfig(f.Function, f.Bits)
	if err != nil {
		return genopt.ExperimentRequest{}, err
	}
	base := f.Base.apply(defaults)

	overrides := f.Configs
	if len(overrides) == 0 {
		overrides = []configOverride{{}}
	}
	specs := make([]experiment.Spec, 0, len(overrides))
	for i, override := range overrides {
		cfg := override.apply(base.Clone())
		if err := cfg.Validate(); err != nil {
			return genopt.ExperimentRequest{}, fmt.Errorf("configs[%d]: %w", i, err)
		}
		specs = append(specs, experiment.Spec{Label: strings.TrimSpace(override.Label), Config: cfg})
	}

	runs := f.Runs
	if runs == 0 {
		runs = defaultRuns
	}
	return genopt.ExperimentRequest{
		ID:        f.ID,
		Function:  f.Function,
		Specs:     specs,
		NumRuns:   runs,
		Seed:      f.Seed,
		Workers:   f.Workers,
		Target:    f.Target,
		Tolerance: f.Tolerance,
		Notes:     f.Notes,
	}, nil
}
