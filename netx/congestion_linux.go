package netx

import (
	"os"

	"github.com/apex/log"
	"golang.org/x/sys/unix"

	"github.com/m-lab/ccstats/logging"
)

// SetCongestionControl selects the congestion control algorithm |name| on
// the socket behind |fp|. The kernel module implementing it must be loaded.
func SetCongestionControl(fp *os.File, name string) error {
	err := unix.SetsockoptString(int(fp.Fd()), unix.IPPROTO_TCP, unix.TCP_CONGESTION, name)
	if err != nil {
		logging.Logger.WithError(err).WithField("cc", name).Warn("SetsockoptString() failed")
		return err
	}
	logging.Logger.WithFields(log.Fields{"cc": name}).Debug("congestion control enabled")
	return nil
}

// CongestionControl returns the congestion control algorithm of the socket
// behind |fp|.
func CongestionControl(fp *os.File) (string, error) {
	return unix.GetsockoptString(int(fp.Fd()), unix.IPPROTO_TCP, unix.TCP_CONGESTION)
}
