//go:build !darwin && !windows

package osutils

// WakeUp is a no-op stub for unsupported platforms
func WakeUp() {
	logger.Debug("wake up not implemented on this platform")
}
