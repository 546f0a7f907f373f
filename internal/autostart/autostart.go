// Package autostart registers the host to start on login.
package autostart

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"
)

// ErrUnsupported is returned on platforms without a login item mechanism
var ErrUnsupported = errors.New("autostart not supported on this platform")

const label = "com.remotepad.host"

var entryTemplates = map[string]*template.Template{
	"darwin": template.Must(template.New("plist").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>` + label + `</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.Executable}}</string>
{{- range .Args}}
        <string>{{.}}</string>
{{- end}}
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <false/>
</dict>
</plist>
`)),
	"linux": template.Must(template.New("desktop").Parse(`[Desktop Entry]
Type=Application
Name=remotepad
Comment=LAN remote touchpad and keyboard host
Exec={{.Command}}
X-GNOME-Autostart-enabled=true
`)),
	"windows": template.Must(template.New("cmd").Parse("@echo off\r\nstart \"\" {{.Command}}\r\n")),
}

// Launcher describes the login entry of one executable
type Launcher struct {
	GOOS       string
	Home       string
	ConfigHome string
	AppData    string
	Executable string
	Args       []string
}

// Current returns the launcher for the running executable
func Current(args ...string) (*Launcher, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Launcher{
		GOOS:       runtime.GOOS,
		Home:       home,
		ConfigHome: os.Getenv("XDG_CONFIG_HOME"),
		AppData:    os.Getenv("APPDATA"),
		Executable: exe,
		Args:       args,
	}, nil
}

// Path returns where the login entry lives
func (l *Launcher) Path() (string, error) {
	switch l.GOOS {
	case "darwin":
		return filepath.Join(l.Home, "Library", "LaunchAgents", label+".plist"), nil
	case "linux":
		dir := l.ConfigHome
		if dir == "" {
			dir = filepath.Join(l.Home, ".config")
		}
		return filepath.Join(dir, "autostart", "remotepad.desktop"), nil
	case "windows":
		dir := l.AppData
		if dir == "" {
			dir = filepath.Join(l.Home, "AppData", "Roaming")
		}
		return filepath.Join(dir, "Microsoft", "Windows", "Start Menu", "Programs", "Startup", "remotepad.cmd"), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupported, l.GOOS)
}

// Enable writes the login entry
func (l *Launcher) Enable() error {
	path, err := l.Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return entryTemplates[l.GOOS].Execute(f, struct {
		Executable string
		Args       []string
		Command    string
	}{l.Executable, l.Args, l.command()})
}

// Disable removes the login entry. A missing entry is not an error.
func (l *Launcher) Disable() error {
	path, err := l.Path()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsEnabled checks if the login entry exists
func (l *Launcher) IsEnabled() bool {
	path, err := l.Path()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// command is the quoted command line used by desktop and cmd entries
func (l *Launcher) command() string {
	parts := make([]string, 0, len(l.Args)+1)
	for _, p := range append([]string{l.Executable}, l.Args...) {
		if strings.ContainsAny(p, " \t\"") {
			p = `"` + strings.ReplaceAll(p, `"`, `\"`) + `"`
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, " ")
}
