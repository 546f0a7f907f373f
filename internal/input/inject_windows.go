//go:build windows

package input

import (
	"fmt"
	"math"
	"sync"
	"unicode/utf16"
	"unsafe"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sys/windows"

	"remotepad/internal/osutils"
)

var (
	user32           = windows.NewLazySystemDLL("user32.dll")
	procSendInput    = user32.NewProc("SendInput")
	procSetCursorPos = user32.NewProc("SetCursorPos")
)

const (
	inputMouse    = 0
	inputKeyboard = 1

	mouseeventfMove      = 0x0001
	mouseeventfLeftDown  = 0x0002
	mouseeventfLeftUp    = 0x0004
	mouseeventfRightDown = 0x0008
	mouseeventfRightUp   = 0x0010
	mouseeventfWheel     = 0x0800

	keyeventfKeyUp   = 0x0002
	keyeventfUnicode = 0x0004

	wheelDelta = 120
)

type mouseInput struct {
	Dx        int32
	Dy        int32
	MouseData uint32
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

type keybdInput struct {
	Vk        uint16
	Scan      uint16
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
	_         [8]byte // pads to the size of the MOUSEINPUT union member
}

type mouseINPUT struct {
	Type uint32
	Mi   mouseInput
}

type keyINPUT struct {
	Type uint32
	Ki   keybdInput
}

// vkCodes maps normalized key names to Windows virtual-key codes.
// Reference: https://docs.microsoft.com/en-us/windows/win32/inputdev/virtual-key-codes
var vkCodes = map[string]uint16{
	"backspace": 0x08,
	"tab":       0x09,
	"enter":     0x0D,
	"shift":     0x10,
	"control":   0x11,
	"alt":       0x12,
	"capslock":  0x14,
	"escape":    0x1B,
	"space":     0x20,
	"pageup":    0x21,
	"pagedown":  0x22,
	"end":       0x23,
	"home":      0x24,
	"left":      0x25,
	"up":        0x26,
	"right":     0x27,
	"down":      0x28,
	"delete":    0x2E,
	"command":   0x5B,

	";": 0xBA, "=": 0xBB, ",": 0xBC, "-": 0xBD, ".": 0xBE, "/": 0xBF,
	"`": 0xC0, "[": 0xDB, "\\": 0xDC, "]": 0xDD, "'": 0xDE,
}

// vkActions maps special and media actions to virtual-key codes.
var vkActions = map[string]uint16{
	"mute":          0xAD,
	"volumeDown":    0xAE,
	"volumeUp":      0xAF,
	"nextTrack":     0xB0,
	"previousTrack": 0xB1,
	"playPause":     0xB3,
	MediaNext:       0xB0,
	MediaPrevious:   0xB1,
}

func vkCode(key string) (uint16, bool) {
	if vk, ok := vkCodes[key]; ok {
		return vk, true
	}
	if len(key) == 1 {
		c := key[0]
		switch {
		case c >= 'a' && c <= 'z':
			return uint16(c - 'a' + 'A'), true
		case c >= '0' && c <= '9':
			return uint16(c), true
		}
	}
	var n int
	if _, err := fmt.Sscanf(key, "f%d", &n); err == nil && n >= 1 && n <= 24 {
		return uint16(0x70 + n - 1), true
	}
	return 0, false
}

// SendInput injects commands through the Win32 SendInput API.
type SendInput struct {
	logger hclog.Logger
	mu     sync.Mutex
}

func newSendInput(logger hclog.Logger) (Actuator, error) {
	if err := procSendInput.Find(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	return &SendInput{logger: logger}, nil
}

// Execute injects cmd.
func (s *SendInput) Execute(cmd Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	switch cmd.Kind {
	case KindMove, KindDrag:
		err = s.mouse(int32(math.Round(cmd.DX)), int32(math.Round(cmd.DY)), 0, mouseeventfMove)
	case KindMoveTo:
		r, _, callErr := procSetCursorPos.Call(uintptr(int32(cmd.X)), uintptr(int32(cmd.Y)))
		if r == 0 {
			err = callErr
		}
	case KindClick:
		err = s.buttons(mouseeventfLeftDown, mouseeventfLeftUp)
	case KindRightClick:
		err = s.buttons(mouseeventfRightDown, mouseeventfRightUp)
	case KindDoubleClick:
		err = s.buttons(mouseeventfLeftDown, mouseeventfLeftUp, mouseeventfLeftDown, mouseeventfLeftUp)
	case KindMouseDown:
		err = s.buttons(mouseeventfLeftDown)
	case KindMouseUp:
		err = s.buttons(mouseeventfLeftUp)
	case KindScroll:
		err = s.mouse(0, 0, uint32(int32(math.Round(cmd.DY*wheelDelta/scrollStep))), mouseeventfWheel)
	case KindKeyTap:
		err = s.keyTap(cmd)
	case KindKeyDown, KindKeyUp:
		vk, ok := vkCode(cmd.Key)
		if !ok {
			return actuatorError(cmd, fmt.Errorf("%w: key %q", ErrUnsupported, cmd.Key))
		}
		err = s.key(vk, cmd.Kind == KindKeyUp)
	case KindToggleCapsLock:
		err = s.tap(vkCodes["capslock"])
	case KindSpecialKey, KindMediaKey:
		vk, ok := vkActions[cmd.Action]
		if !ok {
			return actuatorError(cmd, fmt.Errorf("%w: action %q", ErrUnsupported, cmd.Action))
		}
		err = s.tap(vk)
	case KindTypeText:
		err = s.typeText(cmd.Text)
	case KindSystemCommand:
		if cmd.Action != SystemLock {
			return actuatorError(cmd, fmt.Errorf("%w: system command %q", ErrUnsupported, cmd.Action))
		}
		err = osutils.TurnOffDisplay()
	default:
		err = ErrUnsupported
	}
	if err != nil {
		return actuatorError(cmd, err)
	}
	return nil
}

func (s *SendInput) mouse(dx, dy int32, data, flags uint32) error {
	in := mouseINPUT{Type: inputMouse, Mi: mouseInput{Dx: dx, Dy: dy, MouseData: data, Flags: flags}}
	return send(unsafe.Pointer(&in), unsafe.Sizeof(in))
}

func (s *SendInput) buttons(flags ...uint32) error {
	for _, f := range flags {
		if err := s.mouse(0, 0, 0, f); err != nil {
			return err
		}
	}
	return nil
}

func (s *SendInput) key(vk uint16, up bool) error {
	in := keyINPUT{Type: inputKeyboard, Ki: keybdInput{Vk: vk}}
	if up {
		in.Ki.Flags = keyeventfKeyUp
	}
	return send(unsafe.Pointer(&in), unsafe.Sizeof(in))
}

func (s *SendInput) tap(vk uint16) error {
	if err := s.key(vk, false); err != nil {
		return err
	}
	return s.key(vk, true)
}

func (s *SendInput) keyTap(cmd Command) error {
	vk, ok := vkCode(cmd.Key)
	if !ok {
		if len([]rune(cmd.Key)) == 1 && len(cmd.Modifiers) == 0 {
			return s.typeText(cmd.Key)
		}
		return fmt.Errorf("%w: key %q", ErrUnsupported, cmd.Key)
	}

	var held []uint16
	for _, m := range cmd.Modifiers {
		if mvk, ok := vkCodes[m]; ok {
			if err := s.key(mvk, false); err != nil {
				return err
			}
			held = append(held, mvk)
		}
	}
	err := s.tap(vk)
	for i := len(held) - 1; i >= 0; i-- {
		if upErr := s.key(held[i], true); upErr != nil && err == nil {
			err = upErr
		}
	}
	return err
}

func (s *SendInput) typeText(text string) error {
	for _, unit := range utf16.Encode([]rune(text)) {
		for _, flags := range []uint32{keyeventfUnicode, keyeventfUnicode | keyeventfKeyUp} {
			in := keyINPUT{Type: inputKeyboard, Ki: keybdInput{Scan: unit, Flags: flags}}
			if err := send(unsafe.Pointer(&in), unsafe.Sizeof(in)); err != nil {
				return err
			}
		}
	}
	return nil
}

func send(in unsafe.Pointer, size uintptr) error {
	n, _, err := procSendInput.Call(1, uintptr(in), size)
	if n != 1 {
		return fmt.Errorf("SendInput: %v", err)
	}
	return nil
}
