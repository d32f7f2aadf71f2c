// Package report writes the human-facing products of an analysis run: the
// zones workbook and the run summary.
package report

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/siting-cli/internal/model"
)

// Summary is the YAML run summary written next to the workspace results.
type Summary struct {
	RunID       string           `yaml:"run_id"`
	GeneratedAt time.Time        `yaml:"generated_at"`
	Params      model.RunParams  `yaml:"params"`
	Result      *model.RunResult `yaml:"result"`
}

// NewSummary builds a summary stamped with the current time.
func NewSummary(runID string, params model.RunParams, result *model.RunResult) Summary {
	return Summary{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		Params:      params,
		Result:      result,
	}
}

// WriteSummary writes s as YAML.
func WriteSummary(path string, s Summary) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return eris.Wrap(err, "report: encode summary")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "report: write summary %s", path)
	}
	return nil
}

// ReadSummary reads a summary written by WriteSummary.
func ReadSummary(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "report: read summary %s", path)
	}
	var s Summary
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, eris.Wrap(err, "report: parse summary")
	}
	return &s, nil
}
