// Package report persists run summaries as flat CSV files and publishes the
// comparative matrices built from them.
package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"golang.org/x/exp/slices"

	"github.com/m-lab/ccstats/logging"
	"github.com/m-lab/ccstats/model"
)

var (
	// ErrNoSummaries is returned when no summary file could be found.
	ErrNoSummaries = errors.New("no summary files found")

	// ErrBadHeader is returned for summary files whose header does not name
	// the summary columns in order.
	ErrBadHeader = errors.New("unexpected summary header")
)

// SummaryPattern matches the files written by Export.
const SummaryPattern = model.SummaryFilePrefix + "*.csv"

// SummaryFileName returns the name of the file Export writes for s.
func SummaryFileName(s *model.RunSummary) string {
	return fmt.Sprintf("%s%s_%s.csv", model.SummaryFilePrefix, s.Scheme, s.Scenario)
}

// Export writes s to dir/summary_<scheme>_<scenario>.csv and returns the
// path of the file. The file is replaced atomically, so concurrent readers
// see either the previous or the new content.
func Export(dir string, s model.RunSummary) (string, error) {
	if s.Scheme == model.SchemeUnknown {
		return "", fmt.Errorf("%w: cannot export scheme %q", model.ErrUnknownLabel, s.Scheme)
	}
	if s.Scenario == model.ScenarioUnknown {
		return "", fmt.Errorf("%w: cannot export scenario %q", model.ErrUnknownLabel, s.Scenario)
	}
	rows := []model.RunSummary{s}
	path, err := writeAtomic(dir, SummaryFileName(&s), func(w io.Writer) error {
		return gocsv.Marshal(rows, w)
	})
	if err != nil {
		logging.Logger.WithError(err).Warn("report: export failed")
		return "", err
	}
	return path, nil
}

// writeAtomic writes a file through a temporary file in the same directory
// and renames it into place.
func writeAtomic(dir, name string, write func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	fp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", err
	}
	tmp := fp.Name()
	err = write(fp)
	if cerr := fp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tmp, 0644)
	}
	path := filepath.Join(dir, name)
	if err == nil {
		err = os.Rename(tmp, path)
	}
	if err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// Load reads the summaries stored in the given files, in argument order.
func Load(paths ...string) ([]model.RunSummary, error) {
	var all []model.RunSummary
	for _, p := range paths {
		rows, err := loadFile(p)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}
	return all, nil
}

// LoadDir reads every summary file of dir in lexical file name order.
func LoadDir(dir string) ([]model.RunSummary, error) {
	paths, err := filepath.Glob(filepath.Join(dir, SummaryPattern))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSummaries, dir)
	}
	slices.Sort(paths)
	return Load(paths...)
}

func loadFile(path string) ([]model.RunSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if !slices.Equal(header, model.SummaryColumns) {
		return nil, fmt.Errorf("%w in %s: %s", ErrBadHeader, path, strings.Join(header, ","))
	}
	var rows []model.RunSummary
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}
