// Package input defines the normalized commands the host executes and the
// platform back-ends that inject them into the operating system.
package input

import (
	"fmt"
	"strings"
)

// Kind identifies a normalized command
type Kind string

const (
	KindMove           Kind = "move"
	KindMoveTo         Kind = "moveTo"
	KindClick          Kind = "click"
	KindRightClick     Kind = "rightClick"
	KindDoubleClick    Kind = "doubleClick"
	KindScroll         Kind = "scroll"
	KindMouseDown      Kind = "mouseDown"
	KindMouseUp        Kind = "mouseUp"
	KindDrag           Kind = "drag"
	KindKeyTap         Kind = "keyTap"
	KindKeyDown        Kind = "keyDown"
	KindKeyUp          Kind = "keyUp"
	KindToggleCapsLock Kind = "toggleCapsLock"
	KindSpecialKey     Kind = "specialKey"
	KindMediaKey       Kind = "mediaKey"
	KindTypeText       Kind = "type"
	KindSystemCommand  Kind = "systemCommand"
)

// Media actions understood by KindMediaKey
const (
	MediaPlayPause = "playPause"
	MediaNext      = "next"
	MediaPrevious  = "previous"
)

// SystemLock puts the display to sleep. It is the only system command
// accepted.
const SystemLock = "lock"

// Command is one normalized instruction for the actuator. Commands are
// values; they are executed once and never queued or retried.
type Command struct {
	Kind Kind

	// DX and DY are relative offsets for move, drag and scroll (DY only).
	DX float64
	DY float64

	// X and Y are the absolute target of moveTo.
	X float64
	Y float64

	// Key and Modifiers are set for key commands.
	Key       string
	Modifiers []string

	// Action names the special, media or system action.
	Action string

	// Text is the string typed by a type command.
	Text string
}

// Move returns a relative pointer move.
func Move(dx, dy float64) Command { return Command{Kind: KindMove, DX: dx, DY: dy} }

// Scroll returns a vertical scroll.
func Scroll(dy float64) Command { return Command{Kind: KindScroll, DY: dy} }

// KeyTap returns a key tap with the given active modifiers.
func KeyTap(key string, modifiers []string) Command {
	return Command{Kind: KindKeyTap, Key: key, Modifiers: modifiers}
}

// KeyDown returns a key press.
func KeyDown(key string) Command { return Command{Kind: KindKeyDown, Key: key} }

// KeyUp returns a key release.
func KeyUp(key string) Command { return Command{Kind: KindKeyUp, Key: key} }

// Simple returns an argument-less command such as click.
func Simple(kind Kind) Command { return Command{Kind: kind} }

// WithAction returns a command carrying an action name.
func WithAction(kind Kind, action string) Command { return Command{Kind: kind, Action: action} }

func (c Command) String() string {
	switch c.Kind {
	case KindMove, KindDrag:
		return fmt.Sprintf("%s(%.1f,%.1f)", c.Kind, c.DX, c.DY)
	case KindMoveTo:
		return fmt.Sprintf("%s(%.0f,%.0f)", c.Kind, c.X, c.Y)
	case KindScroll:
		return fmt.Sprintf("%s(%.1f)", c.Kind, c.DY)
	case KindKeyTap:
		if len(c.Modifiers) > 0 {
			return fmt.Sprintf("%s(%s+%s)", c.Kind, strings.Join(c.Modifiers, "+"), c.Key)
		}
		return fmt.Sprintf("%s(%s)", c.Kind, c.Key)
	case KindKeyDown, KindKeyUp:
		return fmt.Sprintf("%s(%s)", c.Kind, c.Key)
	case KindSpecialKey, KindMediaKey, KindSystemCommand:
		return fmt.Sprintf("%s(%s)", c.Kind, c.Action)
	case KindTypeText:
		return fmt.Sprintf("%s(%d chars)", c.Kind, len([]rune(c.Text)))
	default:
		return string(c.Kind)
	}
}
