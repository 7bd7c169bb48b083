// Package iface provides access to network connection operations via file
// descriptor. The implementation MUST be correct by inspection.
package iface

import (
	"net"
	"os"

	"github.com/m-lab/tcp-info/tcp"
	"github.com/m-lab/uuid"

	"github.com/m-lab/ccstats/netx"
	"github.com/m-lab/ccstats/tcpinfox"
)

// ConnFile provides access to underlying network file.
type ConnFile interface {
	DupFile(tc *net.TCPConn) (*os.File, error)
}

// NetInfo provides access to network connection metadata.
type NetInfo interface {
	GetUUID(fp *os.File) (string, error)
	GetTCPInfo(fp *os.File) (*tcp.LinuxTCPInfo, error)
	SetCongestionControl(fp *os.File, name string) error
}

// RealConnInfo implements both the ConnFile and NetInfo interfaces.
type RealConnInfo struct{}

// DupFile returns a dup() of the socket of tc. The caller owns the returned
// file and must Close it in addition to tc.
func (f *RealConnInfo) DupFile(tc *net.TCPConn) (*os.File, error) {
	return tc.File()
}

// GetUUID returns a UUID for the given file pointer.
func (f *RealConnInfo) GetUUID(fp *os.File) (string, error) {
	return uuid.FromFile(fp)
}

// GetTCPInfo returns TCPInfo for the given file pointer.
func (f *RealConnInfo) GetTCPInfo(fp *os.File) (*tcp.LinuxTCPInfo, error) {
	return tcpinfox.GetTCPInfo(fp)
}

// SetCongestionControl selects the congestion control of the given file
// pointer.
func (f *RealConnInfo) SetCongestionControl(fp *os.File, name string) error {
	return netx.SetCongestionControl(fp, name)
}
