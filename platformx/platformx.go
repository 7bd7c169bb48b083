// Package platformx contains platform specific code
package platformx

// WarnIfNotFullySupported will emit a warning if the platform cannot sample
// TCP_INFO or switch the congestion control of a socket.
func WarnIfNotFullySupported() {
	maybeEmitWarning()
}
