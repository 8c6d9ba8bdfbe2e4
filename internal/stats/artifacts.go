package stats

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"genopt/internal/model"
)

const (
	experimentIndexFile = "experiment_index.json"
	experimentFile      = "experiment.json"
	summaryFile         = "summary.json"
	curvesFile          = "curves.csv"
)

var ErrInvalidExperimentID = errors.New("invalid experiment id")

// ValidateExperimentID accepts only ids that name a single directory entry
// directly below the artifacts directory.
func ValidateExperimentID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: id is required", ErrInvalidExperimentID)
	case id == "." || id == "..":
		return fmt.Errorf("%w: %q", ErrInvalidExperimentID, id)
	case strings.ContainsAny(id, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidExperimentID, id)
	case filepath.Base(id) != id || filepath.VolumeName(id) != "":
		return fmt.Errorf("%w: %q", ErrInvalidExperimentID, id)
	}
	return nil
}

// WriteExperimentArtifacts writes the full record, the summary rows and the
// averaged curves of one experiment under baseDir/<id>.
func WriteExperimentArtifacts(baseDir string, record model.ExperimentRecord) (string, error) {
	if err := ValidateExperimentID(record.ID); err != nil {
		return "", err
	}

	dir := filepath.Join(baseDir, record.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(dir, experimentFile), record); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, summaryFile), BuildSummaryRows(record)); err != nil {
		return "", err
	}
	if err := WriteCurves(filepath.Join(dir, curvesFile), record); err != nil {
		return "", err
	}
	return dir, nil
}

func ReadExperimentArtifacts(baseDir, id string) (model.ExperimentRecord, bool, error) {
	if err := ValidateExperimentID(id); err != nil {
		return model.ExperimentRecord{}, false, err
	}
	data, err := os.ReadFile(filepath.Join(baseDir, id, experimentFile))
	if err != nil {
		if os.IsNotExist(err) {
			return model.ExperimentRecord{}, false, nil
		}
		return model.ExperimentRecord{}, false, err
	}
	var record model.ExperimentRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.ExperimentRecord{}, false, err
	}
	return record, true, nil
}

// WriteCurves writes one row per configuration and generation with the
// averaged best, mean and worst values.
func WriteCurves(path string, record model.ExperimentRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"label", "generation", "best", "mean", "worst"}); err != nil {
		return err
	}
	for _, cfg := range record.Configs {
		h := cfg.Averaged
		for g := range h.Best {
			if err := writer.Write([]string{
				cfg.Label,
				strconv.Itoa(g + 1),
				formatFloat(h.Best[g]),
				formatFloat(seriesAt(h.Mean, g)),
				formatFloat(seriesAt(h.Worst, g)),
			}); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

func AppendExperimentIndex(baseDir string, entry model.ExperimentSummary) error {
	if err := ValidateExperimentID(entry.ID); err != nil {
		return err
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListExperimentIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].ID == entry.ID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, experimentIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, experimentIndexFile), index)
}

// ListExperimentIndex returns index entries newest first.
func ListExperimentIndex(baseDir string) ([]model.ExperimentSummary, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, experimentIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []model.ExperimentSummary{}, nil
		}
		return nil, err
	}

	var entries []model.ExperimentSummary
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAtUTC > entries[j].CreatedAtUTC
	})
	return entries, nil
}

// ExportExperimentArtifacts copies the artifacts of one experiment to outDir.
func ExportExperimentArtifacts(baseDir, id, outDir string) (string, error) {
	if err := ValidateExperimentID(id); err != nil {
		return "", err
	}

	src := filepath.Join(baseDir, id)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, id)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range []string{experimentFile, summaryFile, curvesFile} {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		switch filepath.Ext(entry.Name()) {
		case ".png", ".svg", ".xlsx":
			if err := copyFile(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name())); err != nil {
				return "", err
			}
		}
	}
	return dst, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func seriesAt(s model.Series, i int) float64 {
	if i < len(s) {
		return s[i]
	}
	return 0
}

// RemoveExperimentArtifacts deletes the artifacts directory of one experiment
// and drops it from the index.
func RemoveExperimentArtifacts(baseDir, id string) error {
	if err := ValidateExperimentID(id); err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(baseDir, id)); err != nil {
		return err
	}
	index, err := ListExperimentIndex(baseDir)
	if err != nil {
		return err
	}
	kept := index[:0]
	for _, entry := range index {
		if entry.ID != id {
			kept = append(kept, entry)
		}
	}
	if len(kept) == len(index) {
		return nil
	}
	return writeJSON(filepath.Join(baseDir, experimentIndexFile), kept)
}
