//go:build !windows

package osutils

import (
	"fmt"
	"os/exec"
	"runtime"
)

// IsAdmin is a stub for non-Windows platforms
func IsAdmin() bool {
	return false
}

// TurnOffDisplay puts the monitor to sleep
func TurnOffDisplay() error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("pmset", "displaysleepnow").Run()
	case "linux", "freebsd", "openbsd", "netbsd":
		if out, err := exec.Command("xset", "dpms", "force", "off").CombinedOutput(); err != nil {
			return fmt.Errorf("xset: %w (output: %s)", err, out)
		}
		return nil
	}
	return fmt.Errorf("TurnOffDisplay not supported on %s", runtime.GOOS)
}

// EnsureFirewallRule is a stub for non-Windows platforms
func EnsureFirewallRule(port int) error {
	logger.Debug("automatic firewall rules are only managed on windows", "port", port)
	return nil
}
