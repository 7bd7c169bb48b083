package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/m-lab/ccstats/logging"
	"github.com/m-lab/ccstats/model"
	"github.com/m-lab/ccstats/sampler"
)

// TCPPrefix introduces a sampled connection source.
const TCPPrefix = "tcp://"

// DefaultSampleDuration is the length of a sampled transfer without an
// explicit duration.
const DefaultSampleDuration = 10 * time.Second

// ErrBadURL is returned for tcp:// sources that cannot be parsed.
var ErrBadURL = errors.New("bad tcp source")

// bulkSize is the size of each write of the bulk transfer.
const bulkSize = 64 << 10

// tcpReader exposes the samples of a transfer as tcp_monitor lines.
type tcpReader struct {
	*io.PipeReader
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Close stops the transfer and waits for its goroutines.
func (r *tcpReader) Close() error {
	r.cancel()
	err := r.PipeReader.Close()
	r.wg.Wait()
	return err
}

// SampleTCP connects to the host of rawurl, selects scheme on the connection
// unless it is SchemeUnknown, and sends bulk data while sampling the
// connection's TCP_INFO. The samples are returned in the tcp_monitor line
// format. The transfer lasts for the duration query parameter, e.g.
// tcp://sink:9000?duration=30s, or DefaultSampleDuration, and ends early
// when ctx is done or on Close. The peer is expected to discard what it
// reads.
func SampleTCP(ctx context.Context, rawurl string, scheme model.Scheme) (io.ReadCloser, error) {
	u, err := url.Parse(rawurl)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrBadURL, rawurl)
	}
	duration := DefaultSampleDuration
	if d := u.Query().Get("duration"); d != "" {
		duration, err = time.ParseDuration(d)
		if err != nil || duration <= 0 {
			return nil, fmt.Errorf("%w: duration %q", ErrBadURL, d)
		}
	}
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", u.Host)
	if err != nil {
		return nil, err
	}
	tc := conn.(*net.TCPConn)

	sctx, cancel := context.WithCancel(ctx)
	s := sampler.New(tc, scheme)
	records := s.Start(sctx, duration)
	pr, pw := io.Pipe()
	r := &tcpReader{PipeReader: pr, cancel: cancel}
	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		send(sctx, tc)
	}()
	go func() {
		defer r.wg.Done()
		err := sampler.WriteLines(pw, records)
		// The sampler is done: stop the transfer.
		cancel()
		tc.Close()
		pw.CloseWithError(err)
	}()
	logging.Logger.WithFields(log.Fields{
		"host":     u.Host,
		"scheme":   scheme.String(),
		"duration": duration.String(),
	}).Debug("source: tcp sampling start")
	return r, nil
}

func send(ctx context.Context, tc *net.TCPConn) {
	buf := make([]byte, bulkSize)
	for ctx.Err() == nil {
		if _, err := tc.Write(buf); err != nil {
			return
		}
	}
}
