package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"

	"github.com/m-lab/ccstats/dataset"
	"github.com/m-lab/ccstats/model"
)

// ScenarioInfo describes one column of a published matrix.
type ScenarioInfo struct {
	Name        model.Scenario `json:"name"`
	Description string         `json:"description,omitempty"`
	MinRTTMs    *int64         `json:"min_rtt_ms,omitempty"`
}

// Payload is the renderer friendly form of a dataset.Matrix. Values is
// zero-filled; Present tells measured zeros apart from missing cells.
type Payload struct {
	View       string              `json:"view"`
	Metric     model.Metric        `json:"metric"`
	Label      string              `json:"label"`
	Schemes    []model.Scheme      `json:"schemes"`
	Scenarios  []ScenarioInfo      `json:"scenarios"`
	Values     [][]float64         `json:"values"`
	Present    [][]bool            `json:"present"`
	Duplicates []dataset.Duplicate `json:"duplicates,omitempty"`
}

// NewPayload converts m, built for view, into a Payload.
func NewPayload(view string, m *dataset.Matrix) Payload {
	p := Payload{
		View:       view,
		Metric:     m.Metric,
		Label:      m.Metric.Label(),
		Schemes:    append([]model.Scheme(nil), m.Schemes...),
		Values:     make([][]float64, len(m.Schemes)),
		Present:    make([][]bool, len(m.Schemes)),
		Duplicates: m.Duplicates(),
	}
	for _, sc := range m.Scenarios {
		info := ScenarioInfo{Name: sc, Description: sc.Description()}
		if rtt, ok := sc.MinRTT(); ok {
			ms := rtt.Milliseconds()
			info.MinRTTMs = &ms
		}
		p.Scenarios = append(p.Scenarios, info)
	}
	for i, row := range m.Cells {
		p.Values[i] = make([]float64, len(row))
		p.Present[i] = make([]bool, len(row))
		for j, c := range row {
			p.Values[i][j] = c.Value
			p.Present[i][j] = c.Present
		}
	}
	return p
}

// MatrixFileName returns the base name, without extension, of the files
// WriteMatrix writes.
func MatrixFileName(view string, m *dataset.Matrix) string {
	return view + "_" + m.Metric.String()
}

// WriteMatrix writes m as dir/<view>_<metric>.csv and
// dir/<view>_<metric>.json and returns both paths.
func WriteMatrix(dir, view string, m *dataset.Matrix) (string, string, error) {
	base := MatrixFileName(view, m)
	csvPath, err := writeAtomic(dir, base+".csv", func(w io.Writer) error {
		return writeMatrixCSV(w, m)
	})
	if err != nil {
		return "", "", err
	}
	payload := NewPayload(view, m)
	jsonPath, err := writeAtomic(dir, base+".json", func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	})
	if err != nil {
		return "", "", err
	}
	return csvPath, jsonPath, nil
}

func writeMatrixCSV(w io.Writer, m *dataset.Matrix) error {
	cw := gocsv.DefaultCSVWriter(w)
	header := []string{"cc_scheme"}
	for _, sc := range m.Scenarios {
		header = append(header, sc.String())
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, scheme := range m.Schemes {
		row := []string{scheme.String()}
		for _, v := range m.Row(scheme) {
			row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("writing matrix csv: %w", err)
	}
	return nil
}
