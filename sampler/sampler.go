// Package sampler produces telemetry records by periodically reading the
// TCP_INFO of a live connection. It is the userspace counterpart of the
// tcp_monitor kernel module: records carry the same fields and can be fed to
// the same pipeline.
package sampler

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/apex/log"
	"github.com/m-lab/go/memoryless"
	"github.com/m-lab/tcp-info/tcp"

	"github.com/m-lab/ccstats/logging"
	"github.com/m-lab/ccstats/metrics"
	"github.com/m-lab/ccstats/model"
	"github.com/m-lab/ccstats/netx/iface"
	"github.com/m-lab/ccstats/parser"
	"github.com/m-lab/ccstats/platformx"
	"github.com/m-lab/ccstats/tcpinfox"
)

// Sampling intervals of the memoryless ticker.
const (
	MinSamplingInterval     = 10 * time.Millisecond
	AverageSamplingInterval = 50 * time.Millisecond
	MaxSamplingInterval     = 250 * time.Millisecond
)

// FromTCPInfo converts a TCP_INFO snapshot to a record. RTT is converted
// from microseconds to milliseconds and bytes in flight are estimated from
// the segments in flight and the sender MSS.
func FromTCPInfo(info *tcp.LinuxTCPInfo) model.Record {
	return model.Record{
		Cwnd:          uint64(info.SndCwnd),
		RTT:           uint64(info.RTT) / 1000,
		BytesInFlight: tcpinfox.PacketsInFlight(info) * uint64(info.SndMSS),
		Retrans:       uint64(info.TotalRetrans),
	}
}

// Sampler samples one connection.
type Sampler struct {
	conn   *net.TCPConn
	scheme model.Scheme

	// Config is the memoryless ticker configuration.
	Config memoryless.Config

	// Clock stamps the records.
	Clock parser.Clock

	connFile iface.ConnFile
	netInfo  iface.NetInfo
	cancel   context.CancelFunc
}

// New returns a Sampler for conn. When scheme is not SchemeUnknown, the
// sampler selects it on the socket before sampling.
func New(conn *net.TCPConn, scheme model.Scheme) *Sampler {
	platformx.WarnIfNotFullySupported()
	return &Sampler{
		conn:   conn,
		scheme: scheme,
		Config: memoryless.Config{
			Min:      MinSamplingInterval,
			Expected: AverageSamplingInterval,
			Max:      MaxSamplingInterval,
		},
		Clock:    parser.WallClock{},
		connFile: &iface.RealConnInfo{},
		netInfo:  &iface.RealConnInfo{},
	}
}

func (s *Sampler) prepare() (*os.File, string, error) {
	fp, err := s.connFile.DupFile(s.conn)
	if err != nil {
		return nil, "", err
	}
	if s.scheme != model.SchemeUnknown {
		err = s.netInfo.SetCongestionControl(fp, s.scheme.Kernel())
		if err != nil {
			logging.Logger.WithError(err).Warnf("Cannot enable %s", s.scheme)
			// FALLTHROUGH
		}
	}
	id, err := s.netInfo.GetUUID(fp)
	if err != nil {
		logging.Logger.WithError(err).Warn("GetUUID failed")
		id = fmt.Sprintf("fd%d", fp.Fd())
	}
	return fp, id, nil
}

func (s *Sampler) loop(samplerctx context.Context, dst chan<- model.Record) {
	logging.Logger.Debug("sampler: start")
	defer logging.Logger.Debug("sampler: stop")
	defer close(dst)
	fp, id, err := s.prepare()
	if err != nil {
		logging.Logger.WithError(err).Warn("sampler: cannot access the socket")
		return
	}
	defer fp.Close()
	// The ticker closes its channel once samplerctx expires.
	ticker, err := memoryless.NewTicker(samplerctx, s.Config)
	if err != nil {
		logging.Logger.WithError(err).Warn("memoryless.NewTicker failed")
		return
	}
	for range ticker.C {
		info, err := s.netInfo.GetTCPInfo(fp)
		if err != nil {
			metrics.SamplerSamples.WithLabelValues("error").Inc()
			logging.Logger.WithError(err).WithFields(log.Fields{"socket": id}).Debug("GetTCPInfo failed")
			continue
		}
		metrics.SamplerSamples.WithLabelValues("ok").Inc()
		rec := FromTCPInfo(info)
		rec.SocketID = id
		rec.Timestamp = s.Clock.Now()
		dst <- rec // Liveness: this is blocking
	}
}

// Start runs the sampling loop in a background goroutine and emits the
// records on the returned channel.
//
// Liveness guarantee: the sampler always terminates after timeout, provided
// that the consumer keeps reading from the returned channel. It may be
// stopped early by canceling ctx or by calling Stop.
func (s *Sampler) Start(ctx context.Context, timeout time.Duration) <-chan model.Record {
	dst := make(chan model.Record)
	samplerctx, cancel := context.WithTimeout(ctx, timeout)
	s.cancel = cancel
	go func() {
		defer cancel()
		s.loop(samplerctx, dst)
	}()
	return dst
}

// Stop ends sampling and drains src, which guarantees that the sampling
// goroutine completes. Users that call Start should also call Stop.
func (s *Sampler) Stop(src <-chan model.Record) {
	if s.cancel != nil {
		s.cancel()
	}
	for range src {
		// make sure we drain the channel, so the sampling loop can exit.
	}
}

// Collect reads src until it is closed and returns the records as a Run.
func Collect(src <-chan model.Record, scheme model.Scheme, scenario model.Scenario) *model.Run {
	run := &model.Run{Scheme: scheme, Scenario: scenario}
	for rec := range src {
		run.Records = append(run.Records, rec)
	}
	return run
}

// WriteLines renders the records of src in the tcp_monitor log format, so
// that sampled connections can be processed like kernel logs. It drains src
// even after a write error and returns the first error.
func WriteLines(w io.Writer, src <-chan model.Record) error {
	var first error
	for rec := range src {
		if first != nil {
			continue
		}
		_, first = fmt.Fprintln(w, parser.FormatLine(rec))
	}
	return first
}
