package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/m-lab/go/rtx"

	"github.com/m-lab/ccstats/archive"
	"github.com/m-lab/ccstats/dataset"
	"github.com/m-lab/ccstats/model"
	"github.com/m-lab/ccstats/parser"
	"github.com/m-lab/ccstats/report"
)

const sampleLog = `[  1.0] boot
[  2.0] TCP_MONITOR: sock=ffff01 cwnd=10 rtt=100 bytes_in_flight=1000 retrans=0
[  2.1] TCP_MONITOR: sock=ffff01 cwnd=oops
[  3.0] TCP_MONITOR: sock=ffff01 cwnd=12 rtt=100 bytes_in_flight=1200 retrans=1
[  4.0] TCP_MONITOR: sock=ffff01 cwnd=14 rtt=100 bytes_in_flight=1400 retrans=1
`

func writeLog(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	rtx.Must(os.WriteFile(p, []byte(content), 0644), "Could not write log")
	return p
}

func testConfig(dir string) Config {
	return Config{
		Window:   5,
		Renderer: report.DirRenderer{Dir: dir},
		Clock:    parser.NewReplayClock(time.Unix(0, 0), time.Second),
	}
}

func TestProcess(t *testing.T) {
	dir := t.TempDir()
	job := Job{Scheme: model.SchemeCubic, Scenario: model.ScenarioSC0}
	res := Process(testConfig(dir), strings.NewReader(sampleLog), job)
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if res.Stats != (parser.Stats{Parsed: 3, Untagged: 1, Malformed: 1}) {
		t.Errorf("Process() stats = %+v", res.Stats)
	}
	if res.Summary.AvgCwnd != 12 || res.Summary.TotalRetrans != 1 {
		t.Errorf("Process() summary = %+v", res.Summary)
	}
	if filepath.Base(res.SummaryPath) != "summary_cubic_sc0.csv" {
		t.Errorf("Process() path = %q", res.SummaryPath)
	}
	loaded, err := report.Load(res.SummaryPath)
	rtx.Must(err, "Could not load summary")
	if len(loaded) != 1 || loaded[0] != res.Summary {
		t.Errorf("Load() = %+v, want %+v", loaded, res.Summary)
	}
}

func TestProcess_NoRecords(t *testing.T) {
	dir := t.TempDir()
	job := Job{Scheme: model.SchemeReno, Scenario: model.ScenarioSC1}
	res := Process(testConfig(dir), strings.NewReader("nothing\nTCP_MONITOR: junk\n"), job)
	if !errors.Is(res.Err, ErrNoRecords) {
		t.Errorf("Process() error = %v, want ErrNoRecords", res.Err)
	}
	if files, _ := os.ReadDir(dir); len(files) != 0 {
		t.Errorf("Process() exported %d files for an empty run", len(files))
	}
}

func TestProcess_BadWindow(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Window = 0
	res := Process(cfg, strings.NewReader(sampleLog), Job{Scheme: model.SchemeBBR, Scenario: model.ScenarioSC0})
	if res.Err == nil {
		t.Error("Process() with a zero window should fail")
	}
}

func TestProcess_UnknownLabels(t *testing.T) {
	res := Process(testConfig(t.TempDir()), strings.NewReader(sampleLog), Job{})
	if !errors.Is(res.Err, model.ErrUnknownLabel) {
		t.Errorf("Process() error = %v, want ErrUnknownLabel", res.Err)
	}
}

func TestProcess_Archive(t *testing.T) {
	for _, format := range archive.Formats {
		t.Run(format, func(t *testing.T) {
			dir := t.TempDir()
			cfg := testConfig(filepath.Join(dir, "out"))
			cfg.ArchiveDir = filepath.Join(dir, "archive")
			cfg.ArchiveFormat = format
			res := Process(cfg, strings.NewReader(sampleLog), Job{Scheme: model.SchemeVegas, Scenario: model.ScenarioSC2})
			if res.Err != nil {
				t.Fatal(res.Err)
			}
			if !strings.HasPrefix(res.ArchivePath, cfg.ArchiveDir) {
				t.Errorf("ArchivePath = %q", res.ArchivePath)
			}
			if _, err := os.Stat(res.ArchivePath); err != nil {
				t.Error(err)
			}
		})
	}
}

type fakeProvisioner struct {
	logs map[string]string
}

func (f *fakeProvisioner) Provision(ctx context.Context, job Job) (io.ReadCloser, error) {
	content, ok := f.logs[job.Log]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func TestRunBatch(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.Clock = nil
	cfg.Provisioner = &fakeProvisioner{logs: map[string]string{
		"good":  sampleLog,
		"empty": "",
	}}
	jobs := []Job{
		{Log: "good", Scheme: model.SchemeBBR, Scenario: model.ScenarioSC0},
		{Log: "missing", Scheme: model.SchemeBBR, Scenario: model.ScenarioSC1},
		{Log: "empty", Scheme: model.SchemeBBR, Scenario: model.ScenarioSC2},
		{Log: "good", Scheme: model.SchemeCubic, Scenario: model.ScenarioSC0},
	}
	results := RunBatch(context.Background(), cfg, jobs)
	if len(results) != len(jobs) {
		t.Fatalf("RunBatch() = %d results", len(results))
	}
	if results[0].Err != nil || results[3].Err != nil {
		t.Errorf("RunBatch() good jobs failed: %v, %v", results[0].Err, results[3].Err)
	}
	if !errors.Is(results[1].Err, os.ErrNotExist) {
		t.Errorf("RunBatch() missing job error = %v", results[1].Err)
	}
	if !errors.Is(results[2].Err, ErrNoRecords) {
		t.Errorf("RunBatch() empty job error = %v", results[2].Err)
	}
	for i, r := range results {
		if r.Job != jobs[i] {
			t.Errorf("result %d is for job %+v", i, r.Job)
		}
	}
	summaries, err := report.LoadDir(dir)
	rtx.Must(err, "Could not load summaries")
	if len(summaries) != 2 {
		t.Errorf("LoadDir() = %d summaries, want 2", len(summaries))
	}
}

func TestProcess_ArchiveMinRTT(t *testing.T) {
	tests := []struct {
		name string
		job  Job
		want time.Duration
	}{
		{name: "scenario", job: Job{Scheme: model.SchemeBBR, Scenario: model.ScenarioSC5}, want: 50 * time.Millisecond},
		{name: "override", job: Job{Scheme: model.SchemeBBR, Scenario: model.ScenarioSC5, MinRTT: 42 * time.Millisecond}, want: 42 * time.Millisecond},
		{name: "interference", job: Job{Scheme: model.SchemeReno, Scenario: model.ScenarioSC1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			cfg := testConfig(filepath.Join(dir, "out"))
			cfg.ArchiveDir = filepath.Join(dir, "archive")
			cfg.ArchiveFormat = archive.FormatJSONL
			res := Process(cfg, strings.NewReader(sampleLog), tt.job)
			if res.Err != nil {
				t.Fatal(res.Err)
			}
			header, _, err := archive.ReadJSONL(res.ArchivePath)
			rtx.Must(err, "Could not read archive")
			if header.MinRTT != tt.want {
				t.Errorf("archived MinRTT = %v, want %v", header.MinRTT, tt.want)
			}
		})
	}
}

func TestRun_Source(t *testing.T) {
	dir := t.TempDir()
	log := writeLog(t, dir, "bbr.log", sampleLog)
	res := Run(context.Background(), testConfig(filepath.Join(dir, "out")),
		Job{Log: log, Scheme: model.SchemeBBR, Scenario: model.ScenarioSC3})
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if rtt, ok := res.Job.RTT(); !ok || rtt != 5*time.Millisecond {
		t.Errorf("RTT() = %v, %t", rtt, ok)
	}
}

func TestAggregate(t *testing.T) {
	dir := t.TempDir()
	summaries := []model.RunSummary{
		{Scheme: model.SchemeReno, Scenario: model.ScenarioSC0, AvgCwnd: 3},
	}
	out, err := Aggregate(summaries, dataset.DefaultViews(), report.DirRenderer{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if len(out["comparative"]) != 6 || len(out["rtt"]) != 3 {
		t.Errorf("Aggregate() = %d/%d matrices", len(out["comparative"]), len(out["rtt"]))
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	rtx.Must(err, "Could not glob")
	if len(files) != 9 {
		t.Errorf("Aggregate() wrote %d csv files, want 9", len(files))
	}
	if v := out["comparative"][0].Value(model.SchemeReno, model.ScenarioSC0); v != 3 {
		t.Errorf("avg_cwnd(reno, sc0) = %v, want 3", v)
	}
}
