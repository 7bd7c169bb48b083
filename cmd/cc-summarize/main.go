// cc-summarize reduces the tcp_monitor telemetry of experiment runs to one
// summary file per (congestion control, scenario) pair.
//
// A single run is described by flags:
//
//	cc-summarize -log kern.log -cc bbr -scenario sc1 -output results
//
// and a batch of runs by a YAML manifest:
//
//	cc-summarize -manifest runs.yaml -output results
//
// Every flag can also be set through the environment, e.g. CC=bbr.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/prometheusx"
	"github.com/m-lab/go/rtx"

	"github.com/m-lab/ccstats/archive"
	"github.com/m-lab/ccstats/logging"
	"github.com/m-lab/ccstats/metadata"
	"github.com/m-lab/ccstats/model"
	"github.com/m-lab/ccstats/pipeline"
	"github.com/m-lab/ccstats/rate"
	"github.com/m-lab/ccstats/report"
)

var (
	logSource = flag.String("log", "-", "Log source: a file, - for stdin, a ws:// URL, exec:<command> or tcp://host:port?duration=10s to sample a transfer using -cc")
	cc        = flag.String("cc", "", "Congestion control scheme of the run (reno, cubic, bbr, bbr2, vegas)")
	scenario  = flag.String("scenario", "", "Scenario of the run (sc0 to sc7)")
	output    = flag.String("output", "results", "Directory receiving the summary files")
	window    = flag.Int("window", rate.DefaultWindow, "Sending rate moving average window")
	manifest  = flag.String("manifest", "", "YAML manifest of runs to process in parallel, replaces -log, -cc and -scenario")
	logLevel  = flag.String("log.level", "info", "Log level")

	archiveDir    = flag.String("archive.dir", "", "Directory archiving the enriched records of each run, disabled when empty")
	archiveFormat = flagx.Enum{
		Options: archive.Formats,
		Value:   archive.FormatJSONL,
	}
	archiveLabels metadata.Labels

	// Context and cancellation for testing.
	ctx, cancel = context.WithCancel(context.Background())

	logFatal = log.Fatal
)

func init() {
	flag.Var(&archiveFormat, "archive.format", "Format of the run archive: jsonl or parquet")
	flag.Var(&archiveLabels, "archive.label", "name=value label stored with every archived run, may be repeated")
}

func jobs() ([]pipeline.Job, error) {
	if *manifest != "" {
		return pipeline.LoadManifestFile(*manifest)
	}
	scheme, err := model.LookupScheme(*cc)
	if err != nil {
		return nil, err
	}
	sc, err := model.LookupScenario(*scenario)
	if err != nil {
		return nil, err
	}
	return []pipeline.Job{{Log: *logSource, Scheme: scheme, Scenario: sc}}, nil
}

func main() {
	flag.Parse()
	rtx.Must(flagx.ArgsFromEnv(flag.CommandLine), "Could not get args from environment variables")
	rtx.Must(logging.SetLevel(*logLevel), "Invalid log level")

	js, err := jobs()
	if err != nil {
		logFatal("Invalid runs: ", err)
		return
	}
	cfg := pipeline.Config{
		Window:        *window,
		Renderer:      report.DirRenderer{Dir: *output},
		ArchiveDir:    *archiveDir,
		ArchiveFormat: archiveFormat.Value,
		ArchiveLabels: archiveLabels.With(prometheusx.GitShortCommit),
	}
	exported := 0
	for _, res := range pipeline.RunBatch(ctx, cfg, js) {
		if res.Err != nil {
			continue
		}
		exported++
		fmt.Println(res.SummaryPath)
	}
	if exported == 0 {
		logFatal("No summary exported out of ", len(js), " runs")
	}
}
