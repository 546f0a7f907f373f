//go:build windows

package osutils

import (
	"fmt"
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/sys/windows"
)

var (
	user32          = windows.NewLazySystemDLL("user32.dll")
	procSendInput   = user32.NewProc("SendInput")
	procPostMessage = user32.NewProc("PostMessageW")
)

const (
	hwndBroadcast   = 0xFFFF
	wmSysCommand    = 0x0112
	scMonitorPower  = 0xF170
	monitorPowerOff = 2
)

// firewallRuleName is the display name of the inbound rule for the pairing
// listener. The rule is replaced whenever the session moves to a new port.
const firewallRuleName = "Remotepad Pairing"

// IsAdmin checks if the current process has administrative privileges
func IsAdmin() bool {
	var token windows.Token
	h, _ := windows.GetCurrentProcess()
	err := windows.OpenProcessToken(h, windows.TOKEN_QUERY, &token)
	if err != nil {
		return false
	}
	defer token.Close()

	var sid *windows.SID
	err = windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&sid,
	)
	if err != nil {
		return false
	}
	defer windows.FreeSid(sid)

	member, err := token.IsMember(sid)
	if err != nil {
		return false
	}

	return member
}

// TurnOffDisplay asks every top-level window to power the monitor down
func TurnOffDisplay() error {
	r, _, err := procPostMessage.Call(hwndBroadcast, wmSysCommand, scMonitorPower, monitorPowerOff)
	if r == 0 {
		return fmt.Errorf("PostMessage: %w", err)
	}
	return nil
}

// EnsureFirewallRule makes sure an inbound rule allows the pairing port,
// replacing a stale rule left over from an earlier port. Without elevation it
// requests UAC through ShellExecute.
func EnsureFirewallRule(port int) error {
	logger.Debug("checking firewall rule", "rule", firewallRuleName, "port", port)

	checkCmd := exec.Command("netsh", "advfirewall", "firewall", "show", "rule", "name="+firewallRuleName)
	output, err := checkCmd.CombinedOutput()
	outputStr := string(output)

	if err == nil && strings.Contains(outputStr, firewallRuleName) {
		portStr := fmt.Sprintf("%d", port)
		if strings.Contains(outputStr, portStr) && strings.Contains(outputStr, "Allow") {
			logger.Debug("firewall rule up to date", "port", port)
			return nil
		}
		logger.Info("firewall rule points at an old port, updating", "port", port)
	} else {
		logger.Info("firewall rule not found, creating", "port", port)
	}

	// No -Program restriction, so the rule survives the binary moving.
	psCommand := fmt.Sprintf(
		"Remove-NetFirewallRule -DisplayName '%s' -ErrorAction SilentlyContinue; New-NetFirewallRule -DisplayName '%s' -Direction Inbound -LocalPort %d -Protocol TCP -Action Allow -Profile Private,Domain",
		firewallRuleName, firewallRuleName, port,
	)

	if !IsAdmin() {
		logger.Info("process is not elevated, requesting UAC elevation")

		verbPtr, _ := syscall.UTF16PtrFromString("runas")
		exePtr, _ := syscall.UTF16PtrFromString("powershell.exe")
		argPtr, _ := syscall.UTF16PtrFromString(fmt.Sprintf("-NoProfile -WindowStyle Hidden -Command \"%s\"", psCommand))

		var showCmd int32 = 0 // SW_HIDE

		if err := windows.ShellExecute(0, verbPtr, exePtr, argPtr, nil, showCmd); err != nil {
			return fmt.Errorf("failed to launch elevated powershell via ShellExecute: %w", err)
		}
		logger.Info("UAC prompt requested")
		return nil
	}

	cmd := exec.Command("powershell", "-NoProfile", "-Command", psCommand)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to create firewall rule: %w (output: %s)", err, string(output))
	}
	logger.Info("firewall rule applied", "port", port)
	return nil
}
