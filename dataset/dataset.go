// Package dataset assembles persisted run summaries into dense comparative
// matrices indexed by congestion control scheme and network scenario.
package dataset

import (
	"github.com/apex/log"
	"golang.org/x/exp/slices"

	"github.com/m-lab/ccstats/logging"
	"github.com/m-lab/ccstats/metrics"
	"github.com/m-lab/ccstats/model"
)

// Cell is one (scheme, scenario) entry of a Matrix.
type Cell struct {
	// Value is the selected metric value, or zero when no summary matched.
	Value float64 `json:"value"`

	// Present is true when at least one summary matched.
	Present bool `json:"present"`

	// Count is the number of summaries that matched. Values larger than one
	// mean the input contained duplicates and the first one was kept.
	Count int `json:"count"`
}

// Duplicate identifies a cell that more than one summary matched.
type Duplicate struct {
	Scheme   model.Scheme   `json:"cc_scheme"`
	Scenario model.Scenario `json:"scenario"`
	Count    int            `json:"count"`
}

// Matrix is the comparative dataset of one metric. Cells is indexed by the
// position of the scheme in Schemes and of the scenario in Scenarios.
type Matrix struct {
	Metric    model.Metric
	Schemes   []model.Scheme
	Scenarios []model.Scenario
	Cells     [][]Cell
}

// Build creates the Matrix of metric over the Cartesian product of schemes
// and scenarios. Summaries outside of that product are ignored. When several
// summaries share a key, the first one in input order wins. Build does not
// retain or modify its arguments.
func Build(summaries []model.RunSummary, metric model.Metric, schemes []model.Scheme, scenarios []model.Scenario) *Matrix {
	m := &Matrix{
		Metric:    metric,
		Schemes:   slices.Clone(schemes),
		Scenarios: slices.Clone(scenarios),
		Cells:     make([][]Cell, len(schemes)),
	}
	for i := range m.Cells {
		m.Cells[i] = make([]Cell, len(scenarios))
	}
	for k := range summaries {
		s := &summaries[k]
		cell := m.cell(s.Scheme, s.Scenario)
		if cell == nil {
			continue
		}
		if cell.Count == 0 {
			cell.Value = metric.Value(s)
			cell.Present = true
		}
		cell.Count++
	}
	m.account()
	return m
}

func (m *Matrix) cell(scheme model.Scheme, scenario model.Scenario) *Cell {
	i := slices.Index(m.Schemes, scheme)
	j := slices.Index(m.Scenarios, scenario)
	if i < 0 || j < 0 {
		return nil
	}
	return &m.Cells[i][j]
}

func (m *Matrix) account() {
	for _, row := range m.Cells {
		for _, c := range row {
			switch {
			case c.Count == 0:
				metrics.DatasetCells.WithLabelValues("missing").Inc()
			case c.Count == 1:
				metrics.DatasetCells.WithLabelValues("present").Inc()
			default:
				metrics.DatasetCells.WithLabelValues("duplicate").Inc()
			}
		}
	}
	for _, d := range m.Duplicates() {
		logging.Logger.WithFields(log.Fields{
			"metric":   m.Metric.String(),
			"scheme":   d.Scheme.String(),
			"scenario": d.Scenario.String(),
			"count":    d.Count,
		}).Warn("dataset: duplicate summaries, keeping the first")
	}
}

// Lookup returns the value of a cell and whether any summary matched it.
func (m *Matrix) Lookup(scheme model.Scheme, scenario model.Scenario) (float64, bool) {
	c := m.cell(scheme, scenario)
	if c == nil || !c.Present {
		return 0, false
	}
	return c.Value, true
}

// Value returns the value of a cell, or zero when it has no data.
func (m *Matrix) Value(scheme model.Scheme, scenario model.Scenario) float64 {
	v, _ := m.Lookup(scheme, scenario)
	return v
}

// Row returns the zero-filled values of scheme in scenario order, or nil
// when scheme is not part of the matrix.
func (m *Matrix) Row(scheme model.Scheme) []float64 {
	i := slices.Index(m.Schemes, scheme)
	if i < 0 {
		return nil
	}
	row := make([]float64, len(m.Scenarios))
	for j, c := range m.Cells[i] {
		row[j] = c.Value
	}
	return row
}

// Duplicates lists the cells matched by more than one summary, in scheme
// then scenario order.
func (m *Matrix) Duplicates() []Duplicate {
	var dups []Duplicate
	for i, row := range m.Cells {
		for j, c := range row {
			if c.Count > 1 {
				dups = append(dups, Duplicate{
					Scheme:   m.Schemes[i],
					Scenario: m.Scenarios[j],
					Count:    c.Count,
				})
			}
		}
	}
	return dups
}

// BuildView builds one Matrix per metric of view, in the view's metric order.
func BuildView(summaries []model.RunSummary, view View) []*Matrix {
	out := make([]*Matrix, 0, len(view.Metrics))
	for _, metric := range view.Metrics {
		out = append(out, Build(summaries, metric, view.Schemes, view.Scenarios))
	}
	return out
}
