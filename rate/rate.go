// Package rate derives the smoothed sending rate of each telemetry record.
//
// The raw rate of a record is (bytes_in_flight * 8) / (rtt * 1000) Mbit/s.
// A record with rtt == 0 has no raw rate: it is treated as a missing sample,
// never as a zero rate. The raw series is then smoothed with a trailing
// moving average that uses a partial window at the start of the run.
package rate

import (
	"errors"
	"fmt"

	"github.com/apex/log"
	"github.com/m-lab/ccstats/logging"
	"github.com/m-lab/ccstats/metrics"
	"github.com/m-lab/ccstats/model"
	"gonum.org/v1/gonum/stat"
)

// DefaultWindow is the default size of the moving average window.
const DefaultWindow = 5

// ErrInvalidWindow is returned by New for windows smaller than one.
var ErrInvalidWindow = errors.New("invalid smoothing window")

// Calculator attaches smoothed sending rates to runs.
type Calculator struct {
	window int
}

// New returns a Calculator with the given moving average window.
func New(window int) (*Calculator, error) {
	if window < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWindow, window)
	}
	return &Calculator{window: window}, nil
}

// Window returns the size of the moving average window.
func (c *Calculator) Window() int {
	return c.window
}

// Result describes what Apply did to a run.
type Result struct {
	// Computed is false when the run was too short to compute a rate.
	Computed bool

	// Excluded counts the records that contributed no raw sample because
	// their rtt was zero.
	Excluded int
}

// Raw returns the unsmoothed sending rate of r in Mbit/s. The second value
// is false when rtt is zero.
func Raw(r *model.Record) (float64, bool) {
	if r.RTT == 0 {
		return 0, false
	}
	return float64(r.BytesInFlight) * 8 / (float64(r.RTT) * 1000), true
}

// Apply sets SendingRate on every record of run. Runs with fewer than two
// records are left untouched. The smoothed value at position i is the mean of
// the raw samples available in positions max(0, i-W+1) through i; it is nil
// when none of them has a sample.
func (c *Calculator) Apply(run *model.Run) Result {
	n := len(run.Records)
	if n < 2 {
		return Result{}
	}
	raw := make([]float64, n)
	valid := make([]bool, n)
	res := Result{Computed: true}
	for i := range run.Records {
		raw[i], valid[i] = Raw(&run.Records[i])
		if !valid[i] {
			res.Excluded++
		}
	}
	window := make([]float64, 0, c.window)
	for i := range run.Records {
		window = window[:0]
		lo := i - c.window + 1
		if lo < 0 {
			lo = 0
		}
		for j := lo; j <= i; j++ {
			if valid[j] {
				window = append(window, raw[j])
			}
		}
		if len(window) == 0 {
			run.Records[i].SendingRate = nil
			continue
		}
		v := stat.Mean(window, nil)
		run.Records[i].SendingRate = &v
	}
	if res.Excluded > 0 {
		metrics.RateExcluded.Add(float64(res.Excluded))
		logging.Logger.WithFields(log.Fields{
			"scheme":   run.Scheme.String(),
			"scenario": run.Scenario.String(),
			"excluded": res.Excluded,
		}).Debug("rate: records with rtt=0 excluded")
	}
	return res
}
