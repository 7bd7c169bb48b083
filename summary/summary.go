// Package summary reduces an enriched run to a RunSummary.
package summary

import (
	"github.com/apex/log"
	"github.com/m-lab/ccstats/logging"
	"github.com/m-lab/ccstats/model"
	"gonum.org/v1/gonum/stat"
)

// Summarize computes the RunSummary of run. Sending rate statistics use only
// the records with a rate attached. Fewer than two samples give a standard
// deviation of zero, and runs with fewer than two records report no
// retransmissions.
func Summarize(run *model.Run) model.RunSummary {
	s := model.RunSummary{
		Scheme:   run.Scheme,
		Scenario: run.Scenario,
	}
	n := len(run.Records)
	if n == 0 {
		return s
	}
	cwnd := make([]float64, 0, n)
	rtt := make([]float64, 0, n)
	rates := make([]float64, 0, n)
	for i := range run.Records {
		r := &run.Records[i]
		cwnd = append(cwnd, float64(r.Cwnd))
		rtt = append(rtt, float64(r.RTT))
		if r.SendingRate != nil {
			rates = append(rates, *r.SendingRate)
		}
	}
	s.AvgCwnd, s.StdCwnd = meanStd(cwnd)
	s.AvgRTT, s.StdRTT = meanStd(rtt)
	s.AvgSendingRate, s.StdSendingRate = meanStd(rates)
	if n < 2 {
		return s
	}
	s.TotalRetrans = totalRetrans(run)
	s.RetransRate = float64(s.TotalRetrans) / float64(n)
	return s
}

func meanStd(x []float64) (float64, float64) {
	switch len(x) {
	case 0:
		return 0, 0
	case 1:
		return x[0], 0
	}
	return stat.Mean(x, nil), stat.StdDev(x, nil)
}

// totalRetrans returns the net retransmissions between the first and last
// record. A decreasing counter yields zero.
func totalRetrans(run *model.Run) uint64 {
	first := run.Records[0].Retrans
	last := run.Records[len(run.Records)-1].Retrans
	if last < first {
		logging.Logger.WithFields(log.Fields{
			"scheme":   run.Scheme.String(),
			"scenario": run.Scenario.String(),
			"first":    first,
			"last":     last,
		}).Warn("summary: retransmission counter decreased")
		return 0
	}
	return last - first
}
