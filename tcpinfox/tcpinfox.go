// Package tcpinfox reads TCP_INFO statistics from a socket.
package tcpinfox

import (
	"errors"
	"os"

	"github.com/m-lab/tcp-info/tcp"
)

// ErrNoSupport is returned on systems that do not support TCP_INFO.
var ErrNoSupport = errors.New("TCP_INFO not supported")

// GetTCPInfo reads the TCP_INFO of the socket behind |fp|.
func GetTCPInfo(fp *os.File) (*tcp.LinuxTCPInfo, error) {
	return getTCPInfo(fp)
}

// PacketsInFlight estimates the segments in flight the way the kernel does
// in tcp_packets_in_flight: unacked minus those sacked or lost, plus those
// retransmitted.
func PacketsInFlight(info *tcp.LinuxTCPInfo) uint64 {
	left := uint64(info.Sacked) + uint64(info.Lost)
	unacked := uint64(info.Unacked)
	if left > unacked {
		return uint64(info.Retrans)
	}
	return unacked - left + uint64(info.Retrans)
}
