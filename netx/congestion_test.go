package netx

import (
	"errors"
	"net"
	"os"
	"testing"

	"github.com/m-lab/go/rtx"
)

func TestSetCongestionControl(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	rtx.Must(err, "Could not listen")
	defer ln.Close()
	conn, err := net.Dial("tcp", ln.Addr().String())
	rtx.Must(err, "Could not dial")
	defer conn.Close()
	fp, err := conn.(*net.TCPConn).File()
	rtx.Must(err, "Could not get file")
	defer fp.Close()

	// reno is built into every Linux kernel.
	err = SetCongestionControl(fp, "reno")
	if errors.Is(err, ErrNoSupport) {
		t.Skip("TCP_CONGESTION not supported on this platform")
	}
	if err != nil {
		t.Fatal(err)
	}
	got, err := CongestionControl(fp)
	if err != nil {
		t.Fatal(err)
	}
	if got != "reno" {
		t.Errorf("CongestionControl() = %q, want reno", got)
	}
	if err := SetCongestionControl(fp, "no-such-cc"); err == nil {
		t.Error("SetCongestionControl() accepted an unknown algorithm")
	}
}

func TestSetCongestionControl_NotASocket(t *testing.T) {
	fp, err := os.CreateTemp(t.TempDir(), "netx")
	rtx.Must(err, "Could not create file")
	defer fp.Close()
	if err := SetCongestionControl(fp, "reno"); err == nil {
		t.Error("SetCongestionControl() on a regular file should fail")
	}
}
