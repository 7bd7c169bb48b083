package report

import (
	"github.com/m-lab/ccstats/dataset"
	"github.com/m-lab/ccstats/model"
)

// DirRenderer writes summaries and matrices as files below Dir.
type DirRenderer struct {
	Dir string
}

// RenderSummary exports s with Export.
func (d DirRenderer) RenderSummary(s model.RunSummary) (string, error) {
	return Export(d.Dir, s)
}

// RenderMatrix writes m with WriteMatrix and returns both paths.
func (d DirRenderer) RenderMatrix(view string, m *dataset.Matrix) ([]string, error) {
	csvPath, jsonPath, err := WriteMatrix(d.Dir, view, m)
	if err != nil {
		return nil, err
	}
	return []string{csvPath, jsonPath}, nil
}
