// Package source opens the log streams consumed by the telemetry parser.
//
// A source is named by a string:
//
//	-                     the standard input
//	ws://host/path        lines received over a WebSocket (also wss://)
//	exec:dmesg -w         the standard output of a command
//	tcp://host:port       samples of a bulk transfer to host, see SampleTCP
//	anything else         a file path
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/m-lab/ccstats/model"
)

// ExecPrefix introduces a command source.
const ExecPrefix = "exec:"

// ErrEmptyCommand is returned for an exec source without a command.
var ErrEmptyCommand = errors.New("empty command")

// Open returns a reader over the named log source. The caller must Close
// it. Sources that own goroutines stop them when ctx is done or on Close.
func Open(ctx context.Context, name string) (io.ReadCloser, error) {
	switch {
	case name == "-":
		return io.NopCloser(os.Stdin), nil
	case strings.HasPrefix(name, "ws://"), strings.HasPrefix(name, "wss://"):
		return DialWebSocket(ctx, name)
	case strings.HasPrefix(name, ExecPrefix):
		args := strings.Fields(strings.TrimPrefix(name, ExecPrefix))
		if len(args) == 0 {
			return nil, fmt.Errorf("%w in %q", ErrEmptyCommand, name)
		}
		return Command(ctx, args[0], args[1:]...), nil
	case strings.HasPrefix(name, TCPPrefix):
		return SampleTCP(ctx, name, model.SchemeUnknown)
	default:
		return os.Open(name)
	}
}
