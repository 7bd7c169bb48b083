// cc-compare loads the summary files written by cc-summarize and builds the
// comparative datasets of every configured view. The datasets are written as
// CSV and JSON files and, with -serve, published over HTTP.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"

	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/httpx"
	"github.com/m-lab/go/prometheusx"
	"github.com/m-lab/go/rtx"

	"github.com/m-lab/ccstats/dataset"
	"github.com/m-lab/ccstats/logging"
	"github.com/m-lab/ccstats/pipeline"
	"github.com/m-lab/ccstats/report"
)

var (
	results  = flag.String("results", "results", "Directory holding the summary_*.csv files")
	config   = flag.String("config", "", "YAML file of views, the built-in comparative and rtt views when empty")
	output   = flag.String("output", "datasets", "Directory receiving the dataset files")
	serve    = flag.String("serve", "", "Address serving the datasets and metrics over HTTP, disabled when empty")
	logLevel = flag.String("log.level", "info", "Log level")

	// Context and cancellation for testing.
	ctx, cancel = context.WithCancel(context.Background())

	logFatal = log.Fatal
)

func main() {
	flag.Parse()
	rtx.Must(flagx.ArgsFromEnv(flag.CommandLine), "Could not get args from environment variables")
	rtx.Must(logging.SetLevel(*logLevel), "Invalid log level")

	views := dataset.DefaultViews()
	if *config != "" {
		var err error
		views, err = dataset.LoadConfigFile(*config)
		if err != nil {
			logFatal("Invalid view config: ", err)
			return
		}
	}
	summaries, err := report.LoadDir(*results)
	if err != nil {
		logFatal(err)
		return
	}
	matrices, err := pipeline.Aggregate(summaries, views, report.DirRenderer{Dir: *output})
	if err != nil {
		logFatal("Could not write datasets: ", err)
		return
	}
	logging.Logger.Infof("%d summaries aggregated into %s", len(summaries), *output)
	if *serve == "" {
		return
	}

	promSrv := prometheusx.MustServeMetrics()
	defer promSrv.Close()

	h := report.NewHandler()
	for _, v := range views {
		h.Publish(v.Name, matrices[v.Name])
	}
	mux := http.NewServeMux()
	mux.Handle(report.DatasetsPath, h)
	mux.Handle(report.DatasetsPath+"/", h)
	srv := &http.Server{
		Addr:    *serve,
		Handler: logging.MakeAccessLogHandler(mux),
	}
	logging.Logger.Info("About to listen for dataset requests on " + *serve)
	rtx.Must(httpx.ListenAndServeAsync(srv), "Could not start dataset server")
	defer srv.Close()

	<-ctx.Done()
}
