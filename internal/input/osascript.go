package input

import "fmt"

// helper is a process invocation that performs a command macOS has no
// CoreGraphics event for.
type helper struct {
	name string
	args []string
}

func systemEvents(script string) helper {
	return helper{name: "osascript", args: []string{"-e", `tell application "System Events" to ` + script}}
}

func appleScript(script string) helper {
	return helper{name: "osascript", args: []string{"-e", script}}
}

// macActions covers the F-key row actions and the media keys.
var macActions = map[string]helper{
	"brightnessUp":    systemEvents("key code 144"),
	"brightnessDown":  systemEvents("key code 145"),
	"missionControl":  {name: "open", args: []string{"-a", "Mission Control"}},
	"spotlightSearch": systemEvents(`keystroke " " using {command down}`),
	"mute":            appleScript("set volume output muted true"),
	"unmute":          appleScript("set volume output muted false"),
	"volumeUp":        appleScript("set volume output volume ((output volume of (get volume settings)) + 5)"),
	"volumeDown":      appleScript("set volume output volume ((output volume of (get volume settings)) - 5)"),
	"playPause":       systemEvents("key code 16 using {command down, option down}"),
	"nextTrack":       systemEvents("key code 19 using {command down, option down}"),
	"previousTrack":   systemEvents("key code 18 using {command down, option down}"),
	MediaNext:         systemEvents("key code 19 using {command down, option down}"),
	MediaPrevious:     systemEvents("key code 18 using {command down, option down}"),
}

// macHelper returns the helper process for cmd, or ok=false when the command
// is injected directly.
func macHelper(cmd Command) (h helper, ok bool, err error) {
	switch cmd.Kind {
	case KindToggleCapsLock:
		return systemEvents("key code 57"), true, nil
	case KindSpecialKey, KindMediaKey:
		h, found := macActions[cmd.Action]
		if !found {
			return helper{}, true, fmt.Errorf("%w: action %q", ErrUnsupported, cmd.Action)
		}
		return h, true, nil
	}
	return helper{}, false, nil
}
