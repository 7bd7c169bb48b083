package tcpinfox

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/m-lab/tcp-info/tcp"
)

func getTCPInfo(fp *os.File) (*tcp.LinuxTCPInfo, error) {
	info := &tcp.LinuxTCPInfo{}
	size := uint32(unsafe.Sizeof(*info))
	_, _, errno := unix.Syscall6(
		unix.SYS_GETSOCKOPT,
		fp.Fd(),
		unix.SOL_TCP,
		unix.TCP_INFO,
		uintptr(unsafe.Pointer(info)),
		uintptr(unsafe.Pointer(&size)),
		0)
	if errno != 0 {
		return info, errno
	}
	return info, nil
}
