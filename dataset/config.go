package dataset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"github.com/m-lab/ccstats/model"
)

// ErrInvalidView is returned for views that cannot be built.
var ErrInvalidView = errors.New("invalid view")

var viewNameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// View selects the ordered schemes, scenarios and metrics of a family of
// comparative matrices.
type View struct {
	Name      string
	Schemes   []model.Scheme
	Scenarios []model.Scenario
	Metrics   []model.Metric
}

type viewConfig struct {
	Name      string   `yaml:"name"`
	Schemes   []string `yaml:"schemes"`
	Scenarios []string `yaml:"scenarios"`
	Metrics   []string `yaml:"metrics"`
}

type config struct {
	Views []viewConfig `yaml:"views"`
}

// DefaultViews returns the interference comparison over sc0-sc2 and the RTT
// sweep over sc3-sc7.
func DefaultViews() []View {
	return []View{
		{
			Name:      "comparative",
			Schemes:   model.Schemes(),
			Scenarios: model.InterferenceScenarios(),
			Metrics: []model.Metric{
				model.MetricAvgCwnd,
				model.MetricAvgRTT,
				model.MetricStdRTT,
				model.MetricAvgSendingRate,
				model.MetricTotalRetrans,
				model.MetricRetransRate,
			},
		},
		{
			Name:      "rtt",
			Schemes:   model.Schemes(),
			Scenarios: model.RTTScenarios(),
			Metrics: []model.Metric{
				model.MetricAvgRTT,
				model.MetricStdRTT,
				model.MetricAvgSendingRate,
			},
		},
	}
}

// LoadConfig reads a YAML list of views from r. Unknown fields and labels
// are rejected.
//
//	views:
//	  - name: comparative
//	    schemes: [reno, cubic, bbr]
//	    scenarios: [sc0, sc1, sc2]
//	    metrics: [avg_cwnd, avg_rtt]
func LoadConfig(r io.Reader) ([]View, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var cfg config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decoding view config: %w", err)
	}
	if len(cfg.Views) == 0 {
		return nil, fmt.Errorf("%w: no views configured", ErrInvalidView)
	}
	views := make([]View, 0, len(cfg.Views))
	var names []string
	for _, vc := range cfg.Views {
		v, err := vc.resolve()
		if err != nil {
			return nil, err
		}
		if slices.Contains(names, v.Name) {
			return nil, fmt.Errorf("%w: view %q defined twice", ErrInvalidView, v.Name)
		}
		names = append(names, v.Name)
		views = append(views, v)
	}
	return views, nil
}

// LoadConfigFile is LoadConfig reading from the named file.
func LoadConfigFile(path string) ([]View, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadConfig(f)
}

func (vc viewConfig) resolve() (View, error) {
	v := View{Name: vc.Name}
	if !viewNameRe.MatchString(vc.Name) {
		return v, fmt.Errorf("%w: bad view name %q", ErrInvalidView, vc.Name)
	}
	// Matrix files are named <view>_<metric> and must not look like summaries.
	if strings.HasPrefix(vc.Name+"_", model.SummaryFilePrefix) {
		return v, fmt.Errorf("%w: view name %q is reserved", ErrInvalidView, vc.Name)
	}
	if len(vc.Schemes) == 0 || len(vc.Scenarios) == 0 || len(vc.Metrics) == 0 {
		return v, fmt.Errorf("%w: view %q needs schemes, scenarios and metrics", ErrInvalidView, vc.Name)
	}
	for _, s := range vc.Schemes {
		scheme, err := model.LookupScheme(s)
		if err != nil {
			return v, fmt.Errorf("view %q: %w", vc.Name, err)
		}
		if slices.Contains(v.Schemes, scheme) {
			return v, fmt.Errorf("%w: view %q lists %s twice", ErrInvalidView, vc.Name, scheme)
		}
		v.Schemes = append(v.Schemes, scheme)
	}
	for _, s := range vc.Scenarios {
		scenario, err := model.LookupScenario(s)
		if err != nil {
			return v, fmt.Errorf("view %q: %w", vc.Name, err)
		}
		if slices.Contains(v.Scenarios, scenario) {
			return v, fmt.Errorf("%w: view %q lists %s twice", ErrInvalidView, vc.Name, scenario)
		}
		v.Scenarios = append(v.Scenarios, scenario)
	}
	for _, s := range vc.Metrics {
		metric, err := model.ParseMetric(s)
		if err != nil {
			return v, fmt.Errorf("view %q: %w", vc.Name, err)
		}
		if slices.Contains(v.Metrics, metric) {
			return v, fmt.Errorf("%w: view %q lists %s twice", ErrInvalidView, vc.Name, metric)
		}
		v.Metrics = append(v.Metrics, metric)
	}
	return v, nil
}
