package input

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"

	"remotepad/internal/osutils"
)

// scrollStep is the pointer distance that makes one wheel click.
const scrollStep = 10.0

// xKeysyms maps normalized key names to X keysym names.
var xKeysyms = map[string]string{
	"escape":    "Escape",
	"enter":     "Return",
	"backspace": "BackSpace",
	"delete":    "Delete",
	"tab":       "Tab",
	"space":     "space",
	"up":        "Up",
	"down":      "Down",
	"left":      "Left",
	"right":     "Right",
	"home":      "Home",
	"end":       "End",
	"pageup":    "Prior",
	"pagedown":  "Next",
	"capslock":  "Caps_Lock",
	"shift":     "shift",
	"control":   "ctrl",
	"alt":       "alt",
	"command":   "super",
}

// xActions maps special and media actions to XF86 keysyms.
var xActions = map[string]string{
	"brightnessDown": "XF86MonBrightnessDown",
	"brightnessUp":   "XF86MonBrightnessUp",
	"mute":           "XF86AudioMute",
	"volumeDown":     "XF86AudioLowerVolume",
	"volumeUp":       "XF86AudioRaiseVolume",
	"playPause":      "XF86AudioPlay",
	"nextTrack":      "XF86AudioNext",
	"previousTrack":  "XF86AudioPrev",
	MediaNext:        "XF86AudioNext",
	MediaPrevious:    "XF86AudioPrev",
}

// Xdotool injects commands by running xdotool. It works on any X11 session.
type Xdotool struct {
	logger hclog.Logger
	run    runner

	mu          sync.Mutex
	scrollAccum float64
}

// NewXdotool creates an xdotool actuator.
func NewXdotool(logger hclog.Logger) *Xdotool {
	return &Xdotool{logger: logger, run: execRunner}
}

// Execute runs cmd through xdotool.
func (x *Xdotool) Execute(cmd Command) error {
	if cmd.Kind == KindSystemCommand {
		if cmd.Action != SystemLock {
			return actuatorError(cmd, fmt.Errorf("%w: system command %q", ErrUnsupported, cmd.Action))
		}
		if err := osutils.TurnOffDisplay(); err != nil {
			return actuatorError(cmd, err)
		}
		return nil
	}

	args, err := x.args(cmd)
	if err != nil {
		return actuatorError(cmd, err)
	}
	if args == nil {
		return nil
	}
	if err := runHelper(x.run, "xdotool", args...); err != nil {
		return actuatorError(cmd, err)
	}
	return nil
}

// args builds the xdotool argument list for cmd. A nil list with a nil
// error means there is nothing to do.
func (x *Xdotool) args(cmd Command) ([]string, error) {
	switch cmd.Kind {
	case KindMove, KindDrag:
		dx, dy := int(math.Round(cmd.DX)), int(math.Round(cmd.DY))
		if dx == 0 && dy == 0 {
			return nil, nil
		}
		return []string{"mousemove_relative", "--", strconv.Itoa(dx), strconv.Itoa(dy)}, nil
	case KindMoveTo:
		return []string{"mousemove", strconv.Itoa(int(math.Round(cmd.X))), strconv.Itoa(int(math.Round(cmd.Y)))}, nil
	case KindClick:
		return []string{"click", "1"}, nil
	case KindRightClick:
		return []string{"click", "3"}, nil
	case KindDoubleClick:
		return []string{"click", "--repeat", "2", "1"}, nil
	case KindMouseDown:
		return []string{"mousedown", "1"}, nil
	case KindMouseUp:
		return []string{"mouseup", "1"}, nil
	case KindScroll:
		return x.scrollArgs(cmd.DY), nil
	case KindKeyTap:
		combo := make([]string, 0, len(cmd.Modifiers)+1)
		for _, m := range cmd.Modifiers {
			combo = append(combo, xKeysym(m))
		}
		combo = append(combo, xKeysym(cmd.Key))
		return []string{"key", "--clearmodifiers", strings.Join(combo, "+")}, nil
	case KindKeyDown:
		return []string{"keydown", xKeysym(cmd.Key)}, nil
	case KindKeyUp:
		return []string{"keyup", xKeysym(cmd.Key)}, nil
	case KindToggleCapsLock:
		return []string{"key", "Caps_Lock"}, nil
	case KindSpecialKey, KindMediaKey:
		sym, ok := xActions[cmd.Action]
		if !ok {
			return nil, fmt.Errorf("%w: action %q", ErrUnsupported, cmd.Action)
		}
		return []string{"key", sym}, nil
	case KindTypeText:
		if cmd.Text == "" {
			return nil, nil
		}
		return []string{"type", "--delay", "0", "--", cmd.Text}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, cmd.Kind)
	}
}

// scrollArgs converts pointer distance into whole wheel clicks, carrying the
// remainder to the next scroll.
func (x *Xdotool) scrollArgs(dy float64) []string {
	x.mu.Lock()
	x.scrollAccum += dy
	clicks := int(x.scrollAccum / scrollStep)
	x.scrollAccum -= float64(clicks) * scrollStep
	x.mu.Unlock()

	if clicks == 0 {
		return nil
	}
	button := "4"
	if clicks < 0 {
		button = "5"
		clicks = -clicks
	}
	return []string{"click", "--repeat", strconv.Itoa(clicks), button}
}

func xKeysym(key string) string {
	if sym, ok := xKeysyms[key]; ok {
		return sym
	}
	if len(key) > 1 && key[0] == 'f' {
		if _, err := strconv.Atoi(key[1:]); err == nil {
			return "F" + key[1:]
		}
	}
	return key
}
