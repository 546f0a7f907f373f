package input

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
)

// TestCommandString tests the log form of commands
func TestCommandString(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{Move(1.5, -2), "move(1.5,-2.0)"},
		{Scroll(-3), "scroll(-3.0)"},
		{KeyTap("a", []string{"command", "shift"}), "keyTap(command+shift+a)"},
		{KeyTap("escape", nil), "keyTap(escape)"},
		{KeyDown("shift"), "keyDown(shift)"},
		{WithAction(KindMediaKey, MediaNext), "mediaKey(next)"},
		{Command{Kind: KindTypeText, Text: "héllo"}, "type(5 chars)"},
		{Simple(KindClick), "click"},
	}

	for _, tt := range tests {
		if got := tt.cmd.String(); got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, got)
		}
	}
}

type recordedRun struct {
	name string
	args []string
}

func newRecordingXdotool() (*Xdotool, *[]recordedRun) {
	var runs []recordedRun
	x := NewXdotool(hclog.NewNullLogger())
	x.run = func(ctx context.Context, name string, args ...string) error {
		runs = append(runs, recordedRun{name: name, args: args})
		return nil
	}
	return x, &runs
}

// TestXdotoolArgs tests command translation for the xdotool back-end
func TestXdotoolArgs(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{Move(3.4, -7.6), "mousemove_relative -- 3 -8"},
		{Command{Kind: KindMoveTo, X: 100, Y: 200}, "mousemove 100 200"},
		{Simple(KindClick), "click 1"},
		{Simple(KindRightClick), "click 3"},
		{Simple(KindDoubleClick), "click --repeat 2 1"},
		{Simple(KindMouseDown), "mousedown 1"},
		{Command{Kind: KindDrag, DX: 2, DY: 2}, "mousemove_relative -- 2 2"},
		{KeyTap("a", []string{"command", "shift"}), "key --clearmodifiers super+shift+a"},
		{KeyTap("escape", nil), "key --clearmodifiers Escape"},
		{KeyTap("f5", nil), "key --clearmodifiers F5"},
		{KeyDown("control"), "keydown ctrl"},
		{KeyUp("alt"), "keyup alt"},
		{Simple(KindToggleCapsLock), "key Caps_Lock"},
		{WithAction(KindSpecialKey, "volumeUp"), "key XF86AudioRaiseVolume"},
		{WithAction(KindMediaKey, MediaPlayPause), "key XF86AudioPlay"},
		{Command{Kind: KindTypeText, Text: "hi there"}, "type --delay 0 -- hi there"},
	}

	for _, tt := range tests {
		x, runs := newRecordingXdotool()
		if err := x.Execute(tt.cmd); err != nil {
			t.Errorf("%s: unexpected error %v", tt.cmd, err)
			continue
		}
		if len(*runs) != 1 {
			t.Errorf("%s: expected 1 run, got %d", tt.cmd, len(*runs))
			continue
		}
		r := (*runs)[0]
		if r.name != "xdotool" {
			t.Errorf("Expected xdotool, got %s", r.name)
		}
		if got := strings.Join(r.args, " "); got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.cmd, tt.want, got)
		}
	}
}

// TestXdotoolSkipsNoops tests that zero moves spawn no process
func TestXdotoolSkipsNoops(t *testing.T) {
	x, runs := newRecordingXdotool()
	for _, cmd := range []Command{Move(0.2, -0.3), Scroll(4), {Kind: KindTypeText}} {
		if err := x.Execute(cmd); err != nil {
			t.Errorf("%s: unexpected error %v", cmd, err)
		}
	}
	if len(*runs) != 0 {
		t.Errorf("Expected no runs, got %v", *runs)
	}
}

// TestXdotoolScrollAccumulates tests that small scrolls add up to wheel clicks
func TestXdotoolScrollAccumulates(t *testing.T) {
	x, runs := newRecordingXdotool()
	x.Execute(Scroll(6))
	x.Execute(Scroll(6))
	x.Execute(Scroll(-25))

	want := []recordedRun{
		{"xdotool", []string{"click", "--repeat", "1", "4"}},
		{"xdotool", []string{"click", "--repeat", "2", "5"}},
	}
	if !reflect.DeepEqual(*runs, want) {
		t.Errorf("Expected %v, got %v", want, *runs)
	}
	if x.scrollAccum != -3 {
		t.Errorf("Expected remainder -3, got %v", x.scrollAccum)
	}
}

// TestXdotoolErrors tests that failures wrap ErrActuator
func TestXdotoolErrors(t *testing.T) {
	x, _ := newRecordingXdotool()
	err := x.Execute(WithAction(KindSpecialKey, "missionControl"))
	if !errors.Is(err, ErrActuator) || !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrActuator and ErrUnsupported, got %v", err)
	}

	err = x.Execute(WithAction(KindSystemCommand, "shutdown"))
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported for shutdown, got %v", err)
	}

	boom := errors.New("exit status 1")
	x.run = func(ctx context.Context, name string, args ...string) error { return boom }
	err = x.Execute(Simple(KindClick))
	if !errors.Is(err, ErrActuator) || !errors.Is(err, boom) {
		t.Errorf("Expected wrapped runner error, got %v", err)
	}
}

// TestMacHelper tests the osascript fallbacks
func TestMacHelper(t *testing.T) {
	h, ok, err := macHelper(Simple(KindToggleCapsLock))
	if !ok || err != nil {
		t.Fatalf("Expected caps lock helper, got ok=%v err=%v", ok, err)
	}
	if h.name != "osascript" || !strings.Contains(h.args[1], "key code 57") {
		t.Errorf("Unexpected caps lock helper %+v", h)
	}

	h, ok, _ = macHelper(WithAction(KindMediaKey, MediaPlayPause))
	if !ok || !strings.Contains(h.args[1], "key code 16 using {command down, option down}") {
		t.Errorf("Unexpected play/pause helper %+v", h)
	}

	h, ok, _ = macHelper(WithAction(KindSpecialKey, "missionControl"))
	if !ok || h.name != "open" {
		t.Errorf("Expected open for mission control, got %+v", h)
	}

	if _, ok, err := macHelper(WithAction(KindSpecialKey, "dictation")); !ok || !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported for dictation, got ok=%v err=%v", ok, err)
	}

	if _, ok, _ := macHelper(Move(1, 1)); ok {
		t.Error("Expected moves to be injected directly")
	}
}

// TestNewBackend tests back-end selection
func TestNewBackend(t *testing.T) {
	a, err := New(BackendLog, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := a.(*LogActuator); !ok {
		t.Errorf("Expected *LogActuator, got %T", a)
	}
	if err := a.Execute(Simple(KindClick)); err != nil {
		t.Errorf("Expected dry run to succeed, got %v", err)
	}

	if _, err := New("telepathy", nil); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("Expected ErrUnknownBackend, got %v", err)
	}
}
