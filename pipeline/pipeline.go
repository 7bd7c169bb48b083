// Package pipeline wires the parser, the rate calculator, the summarizer and
// the exporter into the processing of complete runs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/m-lab/go/warnonerror"

	"github.com/m-lab/ccstats/archive"
	"github.com/m-lab/ccstats/dataset"
	"github.com/m-lab/ccstats/logging"
	"github.com/m-lab/ccstats/metadata"
	"github.com/m-lab/ccstats/metrics"
	"github.com/m-lab/ccstats/model"
	"github.com/m-lab/ccstats/parser"
	"github.com/m-lab/ccstats/rate"
	"github.com/m-lab/ccstats/source"
	"github.com/m-lab/ccstats/summary"
)

// ErrNoRecords is returned for runs whose log yielded no parsable record.
// Such runs are not exported.
var ErrNoRecords = errors.New("no parsable records")

// Job identifies one run to process.
type Job struct {
	// Log names the log source, see source.Open.
	Log      string
	Scheme   model.Scheme
	Scenario model.Scenario

	// MinRTT overrides the minimum RTT of the scenario, when not zero.
	MinRTT time.Duration
}

// RTT returns the minimum RTT the run was configured with, if any.
func (j Job) RTT() (time.Duration, bool) {
	if j.MinRTT > 0 {
		return j.MinRTT, true
	}
	return j.Scenario.MinRTT()
}

// Provisioner supplies the log stream of a run. The emulated network and the
// traffic generators that produce the log live behind this interface.
type Provisioner interface {
	Provision(ctx context.Context, job Job) (io.ReadCloser, error)
}

// SourceProvisioner opens Job.Log with source.Open. A tcp:// log is sampled
// with the congestion control of the job.
type SourceProvisioner struct{}

// Provision implements Provisioner.
func (SourceProvisioner) Provision(ctx context.Context, job Job) (io.ReadCloser, error) {
	if strings.HasPrefix(job.Log, source.TCPPrefix) {
		return source.SampleTCP(ctx, job.Log, job.Scheme)
	}
	return source.Open(ctx, job.Log)
}

// Renderer consumes summaries and comparative matrices. report.DirRenderer
// writes them as files.
type Renderer interface {
	RenderSummary(s model.RunSummary) (string, error)
	RenderMatrix(view string, m *dataset.Matrix) ([]string, error)
}

// Config configures the processing of runs.
type Config struct {
	// Window is the sending rate smoothing window.
	Window int

	// Renderer receives the summary of every run with records.
	Renderer Renderer

	// Provisioner opens the log of a Job. Defaults to SourceProvisioner.
	Provisioner Provisioner

	// ArchiveDir enables archiving of the enriched records when not empty.
	ArchiveDir    string
	ArchiveFormat string
	ArchiveLabels []metadata.NameValue

	// Clock stamps the parsed records. Defaults to parser.WallClock.
	Clock parser.Clock
}

// Result is the outcome of one run.
type Result struct {
	Job         Job
	Stats       parser.Stats
	Excluded    int
	Summary     model.RunSummary
	SummaryPath string
	ArchivePath string
	Err         error
}

// Process parses r as the log of job and renders its summary. The returned
// Result always carries the job; Err is set on failure.
func Process(cfg Config, r io.Reader, job Job) Result {
	res := Result{Job: job}
	calc, err := rate.New(cfg.Window)
	if err != nil {
		return finish(res, err)
	}
	p := parser.New(r, cfg.Clock)
	run, err := parser.Collect(p, job.Scheme, job.Scenario)
	res.Stats = p.Stats()
	if err != nil {
		return finish(res, err)
	}
	if run.Len() == 0 {
		return finish(res, ErrNoRecords)
	}
	run.MinRTT, _ = job.RTT()
	metrics.RunRecords.Observe(float64(run.Len()))
	res.Excluded = calc.Apply(run).Excluded
	res.Summary = summary.Summarize(run)
	if cfg.Renderer != nil {
		res.SummaryPath, err = cfg.Renderer.RenderSummary(res.Summary)
		if err != nil {
			return finish(res, err)
		}
	}
	if cfg.ArchiveDir != "" {
		res.ArchivePath, err = archive.Write(cfg.ArchiveDir, cfg.ArchiveFormat, run, &res.Summary, cfg.ArchiveLabels...)
		if err != nil {
			return finish(res, fmt.Errorf("archiving run: %w", err))
		}
	}
	return finish(res, nil)
}

func finish(res Result, err error) Result {
	res.Err = err
	fields := log.Fields{
		"scheme":    res.Job.Scheme.String(),
		"scenario":  res.Job.Scenario.String(),
		"parsed":    res.Stats.Parsed,
		"malformed": res.Stats.Malformed,
	}
	if rtt, ok := res.Job.RTT(); ok {
		fields["min_rtt"] = rtt.String()
	}
	switch {
	case err == nil:
		metrics.RunCount.WithLabelValues("ok").Inc()
		logging.Logger.WithFields(fields).Info("run processed")
	case errors.Is(err, ErrNoRecords):
		metrics.RunCount.WithLabelValues("no_records").Inc()
		logging.Logger.WithFields(fields).Warn("run has no records")
	default:
		metrics.RunCount.WithLabelValues("error").Inc()
		logging.Logger.WithFields(fields).WithError(err).Warn("run failed")
	}
	return res
}

// Run provisions the log of job and processes it.
func Run(ctx context.Context, cfg Config, job Job) Result {
	prov := cfg.Provisioner
	if prov == nil {
		prov = SourceProvisioner{}
	}
	r, err := prov.Provision(ctx, job)
	if err != nil {
		return finish(Result{Job: job}, fmt.Errorf("opening %q: %w", job.Log, err))
	}
	defer warnonerror.Close(r, "pipeline: cannot close log source "+job.Log)
	return Process(cfg, r, job)
}

// RunBatch processes independent jobs in parallel, one goroutine per job.
// A failing job does not affect the others. Results are in job order.
func RunBatch(ctx context.Context, cfg Config, jobs []Job) []Result {
	results := make([]Result, len(jobs))
	wg := sync.WaitGroup{}
	wg.Add(len(jobs))
	for i := range jobs {
		go func(i int) {
			defer wg.Done()
			results[i] = Run(ctx, cfg, jobs[i])
		}(i)
	}
	wg.Wait()
	return results
}

// Aggregate builds the matrices of every view from summaries and hands them
// to r, when not nil. The matrices are returned by view name.
func Aggregate(summaries []model.RunSummary, views []dataset.View, r Renderer) (map[string][]*dataset.Matrix, error) {
	out := make(map[string][]*dataset.Matrix, len(views))
	for _, v := range views {
		ms := dataset.BuildView(summaries, v)
		out[v.Name] = ms
		if r == nil {
			continue
		}
		for _, m := range ms {
			if _, err := r.RenderMatrix(v.Name, m); err != nil {
				return out, err
			}
		}
	}
	return out, nil
}
