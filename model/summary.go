package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMetric is returned when a metric name does not name a RunSummary
// column.
var ErrUnknownMetric = errors.New("unknown metric")

// RunSummary is the fixed-schema statistical reduction of one Run. The csv
// tags define the persisted column names and their order.
type RunSummary struct {
	Scheme         Scheme   `csv:"cc_scheme" json:"cc_scheme"`
	Scenario       Scenario `csv:"scenario" json:"scenario"`
	AvgCwnd        float64  `csv:"avg_cwnd" json:"avg_cwnd"`
	StdCwnd        float64  `csv:"std_cwnd" json:"std_cwnd"`
	AvgRTT         float64  `csv:"avg_rtt" json:"avg_rtt"`
	StdRTT         float64  `csv:"std_rtt" json:"std_rtt"`
	AvgSendingRate float64  `csv:"avg_sending_rate" json:"avg_sending_rate"`
	StdSendingRate float64  `csv:"std_sending_rate" json:"std_sending_rate"`
	TotalRetrans   uint64   `csv:"total_retrans" json:"total_retrans"`
	RetransRate    float64  `csv:"retrans_rate" json:"retrans_rate"`
}

// SummaryFilePrefix starts the name of every persisted summary file.
const SummaryFilePrefix = "summary_"

// SummaryColumns lists the persisted RunSummary columns in order.
var SummaryColumns = []string{
	"cc_scheme",
	"scenario",
	"avg_cwnd",
	"std_cwnd",
	"avg_rtt",
	"std_rtt",
	"avg_sending_rate",
	"std_sending_rate",
	"total_retrans",
	"retrans_rate",
}

// Metric names one numeric column of RunSummary.
type Metric int

// The numeric RunSummary columns.
const (
	MetricAvgCwnd Metric = iota
	MetricStdCwnd
	MetricAvgRTT
	MetricStdRTT
	MetricAvgSendingRate
	MetricStdSendingRate
	MetricTotalRetrans
	MetricRetransRate
)

type metricInfo struct {
	name  string
	label string
	value func(*RunSummary) float64
}

var metrics = [...]metricInfo{
	MetricAvgCwnd: {"avg_cwnd", "Average Window Size",
		func(s *RunSummary) float64 { return s.AvgCwnd }},
	MetricStdCwnd: {"std_cwnd", "Window Size Std. Dev.",
		func(s *RunSummary) float64 { return s.StdCwnd }},
	MetricAvgRTT: {"avg_rtt", "Average RTT (ms)",
		func(s *RunSummary) float64 { return s.AvgRTT }},
	MetricStdRTT: {"std_rtt", "RTT Standard Deviation (ms)",
		func(s *RunSummary) float64 { return s.StdRTT }},
	MetricAvgSendingRate: {"avg_sending_rate", "Average Sending Rate (Mbps)",
		func(s *RunSummary) float64 { return s.AvgSendingRate }},
	MetricStdSendingRate: {"std_sending_rate", "Sending Rate Std. Dev. (Mbps)",
		func(s *RunSummary) float64 { return s.StdSendingRate }},
	MetricTotalRetrans: {"total_retrans", "Total Retransmissions",
		func(s *RunSummary) float64 { return float64(s.TotalRetrans) }},
	MetricRetransRate: {"retrans_rate", "Retransmissions per Observation",
		func(s *RunSummary) float64 { return s.RetransRate }},
}

// ParseMetric returns the Metric for a column name.
func ParseMetric(name string) (Metric, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, m := range metrics {
		if m.name == name {
			return Metric(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
}

// Metrics returns every metric in column order.
func Metrics() []Metric {
	all := make([]Metric, len(metrics))
	for i := range metrics {
		all[i] = Metric(i)
	}
	return all
}

func (m Metric) valid() bool {
	return m >= 0 && int(m) < len(metrics)
}

func (m Metric) String() string {
	if !m.valid() {
		return fmt.Sprintf("metric(%d)", int(m))
	}
	return metrics[m].name
}

// Label returns the axis label used when rendering this metric.
func (m Metric) Label() string {
	if !m.valid() {
		return m.String()
	}
	return metrics[m].label
}

// Value extracts this metric from a summary.
func (m Metric) Value(s *RunSummary) float64 {
	if !m.valid() {
		return 0
	}
	return metrics[m].value(s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Metric) MarshalText() ([]byte, error) {
	if !m.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMetric, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Metric) UnmarshalText(b []byte) error {
	v, err := ParseMetric(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
