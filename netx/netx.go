// Package netx extends the functionality of the net package. It selects the
// congestion control algorithm of a socket.
package netx

import "errors"

// ErrNoSupport is returned on platforms without per-socket congestion
// control selection.
var ErrNoSupport = errors.New("TCP_CONGESTION not supported")
