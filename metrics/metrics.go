// Package metrics contains the Prometheus metrics exported by the ccstats
// tools.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the ingestion pipeline and the comparative dataset builder.
var (
	ParserLines = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ccstats_parser_lines_total",
			Help: "Number of log lines read by the telemetry parser, by result.",
		},
		[]string{"result"},
	)
	RateExcluded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ccstats_rate_excluded_total",
			Help: "Number of records excluded from the sending rate because rtt was zero.",
		},
	)
	RunCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ccstats_runs_total",
			Help: "Number of runs processed by the pipeline, by result.",
		},
		[]string{"result"},
	)
	RunRecords = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "ccstats_run_records",
			Help: "A histogram of the number of records per run.",
			Buckets: []float64{
				1, 2, 5, 10, 25, 50, 100, 250, 500,
				1000, 2500, 5000, 10000, 25000, 50000},
		},
	)
	DatasetCells = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ccstats_dataset_cells_total",
			Help: "Number of comparative dataset cells built, by state.",
		},
		[]string{"state"},
	)
	SamplerSamples = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ccstats_sampler_samples_total",
			Help: "Number of TCP_INFO samples taken by the sampler, by result.",
		},
		[]string{"result"},
	)
)
