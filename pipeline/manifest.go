package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/m-lab/ccstats/model"
)

var (
	// ErrEmptyManifest is returned for manifests without runs.
	ErrEmptyManifest = errors.New("manifest lists no runs")

	// ErrDuplicateRun is returned for manifests listing the same scheme and
	// scenario twice. Both runs would export to the same summary file.
	ErrDuplicateRun = errors.New("duplicate run")
)

type manifestRun struct {
	Log      string        `yaml:"log"`
	CC       string        `yaml:"cc"`
	Scenario string        `yaml:"scenario"`
	MinRTT   time.Duration `yaml:"min_rtt"`
}

type runKey struct {
	scheme   model.Scheme
	scenario model.Scenario
}

type manifest struct {
	Runs []manifestRun `yaml:"runs"`
}

// LoadManifest reads a YAML list of runs. Unknown fields, labels and repeated
// (cc, scenario) pairs are rejected.
//
//	runs:
//	  - log: logs/bbr_sc1.log
//	    cc: bbr
//	    scenario: sc1
//	  - log: exec:dmesg
//	    cc: cubic
//	    scenario: sc5
//	    min_rtt: 50ms
func LoadManifest(r io.Reader) ([]Job, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var m manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	if len(m.Runs) == 0 {
		return nil, ErrEmptyManifest
	}
	jobs := make([]Job, 0, len(m.Runs))
	seen := make(map[runKey]int, len(m.Runs))
	for i, run := range m.Runs {
		if run.Log == "" {
			return nil, fmt.Errorf("manifest run %d: missing log", i)
		}
		scheme, err := model.LookupScheme(run.CC)
		if err != nil {
			return nil, fmt.Errorf("manifest run %d: %w", i, err)
		}
		scenario, err := model.LookupScenario(run.Scenario)
		if err != nil {
			return nil, fmt.Errorf("manifest run %d: %w", i, err)
		}
		key := runKey{scheme, scenario}
		if j, ok := seen[key]; ok {
			return nil, fmt.Errorf("manifest run %d: %w: %s/%s already listed by run %d",
				i, ErrDuplicateRun, scheme, scenario, j)
		}
		seen[key] = i
		jobs = append(jobs, Job{Log: run.Log, Scheme: scheme, Scenario: scenario, MinRTT: run.MinRTT})
	}
	return jobs, nil
}

// LoadManifestFile is LoadManifest reading from the named file.
func LoadManifestFile(path string) ([]Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadManifest(f)
}
