//go:build !linux
// +build !linux

package netx

import (
	"os"

	"github.com/m-lab/ccstats/logging"
)

// SetCongestionControl returns ErrNoSupport on this platform.
func SetCongestionControl(fp *os.File, name string) error {
	logging.Logger.WithField("cc", name).Warn("TCP_CONGESTION not available on this platform")
	return ErrNoSupport
}

// CongestionControl returns ErrNoSupport on this platform.
func CongestionControl(fp *os.File) (string, error) {
	return "", ErrNoSupport
}
