//go:build !linux
// +build !linux

package platformx

import (
	"github.com/m-lab/ccstats/logging"
)

func maybeEmitWarning() {
	logging.Logger.Warn("Live sampling is only supported on Linux. Samples will not be collected.")
}
