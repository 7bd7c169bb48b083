package source

import (
	"context"
	"io"

	"gopkg.in/m-lab/pipe.v3"

	"github.com/m-lab/ccstats/logging"
)

type commandReader struct {
	*io.PipeReader
	cancel context.CancelFunc
}

func (c *commandReader) Close() error {
	c.cancel()
	return c.PipeReader.Close()
}

// Command runs name with args and streams its standard output. A failing
// command surfaces as a read error once its output has been consumed.
func Command(ctx context.Context, name string, args ...string) io.ReadCloser {
	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()
	go func() {
		logging.Logger.Debugf("source: exec %s start", name)
		defer logging.Logger.Debugf("source: exec %s stop", name)
		err := pipe.Run(pipe.Line(
			pipe.Exec(name, args...),
			pipe.Write(pw),
		))
		if err != nil {
			logging.Logger.WithError(err).Warnf("source: %s failed", name)
		}
		pw.CloseWithError(err)
	}()
	go func() {
		// Unblocks the writer when the consumer goes away.
		<-ctx.Done()
		pr.CloseWithError(ctx.Err())
	}()
	return &commandReader{PipeReader: pr, cancel: cancel}
}
