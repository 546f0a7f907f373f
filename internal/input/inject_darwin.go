//go:build darwin

package input

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation -framework ApplicationServices

#include <CoreGraphics/CoreGraphics.h>
#include <CoreFoundation/CoreFoundation.h>
#include <ApplicationServices/ApplicationServices.h>

bool hasAccessibilityPermissions() {
    return AXIsProcessTrusted();
}

CGPoint getCurrentMousePosition() {
    CGEventRef event = CGEventCreate(NULL);
    CGPoint cursor = CGEventGetLocation(event);
    CFRelease(event);
    return cursor;
}

void postMouse(CGEventType type, CGPoint pos, CGMouseButton button, int clickCount) {
    CGEventRef event = CGEventCreateMouseEvent(NULL, type, pos, button);
    if (clickCount > 1) {
        CGEventSetIntegerValueField(event, kCGMouseEventClickState, clickCount);
    }
    CGEventPost(kCGSessionEventTap, event);
    CFRelease(event);
}

// injectMouseMove moves by a relative delta. While the left button is held
// the move is posted as a drag so the target sees drag-and-drop.
void injectMouseMove(CGFloat dx, CGFloat dy, bool dragging) {
    CGPoint pos = getCurrentMousePosition();
    CGPoint newPos = CGPointMake(pos.x + dx, pos.y + dy);
    postMouse(dragging ? kCGEventLeftMouseDragged : kCGEventMouseMoved, newPos, kCGMouseButtonLeft, 1);
}

void injectMouseMoveTo(CGFloat x, CGFloat y) {
    postMouse(kCGEventMouseMoved, CGPointMake(x, y), kCGMouseButtonLeft, 1);
}

void injectMouseButton(int button, bool pressed, int clickCount) {
    CGMouseButton cgButton;
    CGEventType eventType;

    switch (button) {
        case 1:
            cgButton = kCGMouseButtonLeft;
            eventType = pressed ? kCGEventLeftMouseDown : kCGEventLeftMouseUp;
            break;
        case 2:
            cgButton = kCGMouseButtonRight;
            eventType = pressed ? kCGEventRightMouseDown : kCGEventRightMouseUp;
            break;
        case 3:
            cgButton = kCGMouseButtonCenter;
            eventType = pressed ? kCGEventOtherMouseDown : kCGEventOtherMouseUp;
            break;
        default:
            return;
    }
    postMouse(eventType, getCurrentMousePosition(), cgButton, clickCount);
}

void injectScroll(int32_t dy) {
    CGEventRef event = CGEventCreateScrollWheelEvent(NULL, kCGScrollEventUnitPixel, 1, dy);
    CGEventPost(kCGSessionEventTap, event);
    CFRelease(event);
}

void injectKey(CGKeyCode keyCode, bool pressed, CGEventFlags flags) {
    CGEventRef event = CGEventCreateKeyboardEvent(NULL, keyCode, pressed);
    if (flags != 0) {
        CGEventSetFlags(event, flags);
    }
    CGEventPost(kCGSessionEventTap, event);
    CFRelease(event);
}

void injectUnicode(UniChar *chars, int length) {
    CGEventRef down = CGEventCreateKeyboardEvent(NULL, 0, true);
    CGEventKeyboardSetUnicodeString(down, length, chars);
    CGEventPost(kCGSessionEventTap, down);
    CFRelease(down);

    CGEventRef up = CGEventCreateKeyboardEvent(NULL, 0, false);
    CGEventKeyboardSetUnicodeString(up, length, chars);
    CGEventPost(kCGSessionEventTap, up);
    CFRelease(up);
}
*/
import "C"

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"unicode/utf16"
	"unsafe"

	"github.com/hashicorp/go-hclog"

	"remotepad/internal/osutils"
)

// macKeyCodes maps normalized key names to CGKeyCode values.
// Reference: https://developer.apple.com/documentation/coregraphics/cgkeycode
var macKeyCodes = map[string]uint16{
	"a": 0x00, "b": 0x0B, "c": 0x08, "d": 0x02, "e": 0x0E, "f": 0x03,
	"g": 0x05, "h": 0x04, "i": 0x22, "j": 0x26, "k": 0x28, "l": 0x25,
	"m": 0x2E, "n": 0x2D, "o": 0x1F, "p": 0x23, "q": 0x0C, "r": 0x0F,
	"s": 0x01, "t": 0x11, "u": 0x20, "v": 0x09, "w": 0x0D, "x": 0x07,
	"y": 0x10, "z": 0x06,

	"0": 0x1D, "1": 0x12, "2": 0x13, "3": 0x14, "4": 0x15,
	"5": 0x17, "6": 0x16, "7": 0x1A, "8": 0x1C, "9": 0x19,

	"f1": 0x7A, "f2": 0x78, "f3": 0x63, "f4": 0x76, "f5": 0x60, "f6": 0x61,
	"f7": 0x62, "f8": 0x64, "f9": 0x65, "f10": 0x6D, "f11": 0x67, "f12": 0x6F,

	"backspace": 0x33,
	"tab":       0x30,
	"enter":     0x24,
	"escape":    0x35,
	"space":     0x31,
	"delete":    0x75,
	"left":      0x7B,
	"up":        0x7E,
	"right":     0x7C,
	"down":      0x7D,
	"pageup":    0x74,
	"pagedown":  0x79,
	"end":       0x77,
	"home":      0x73,

	"shift":    0x38,
	"control":  0x3B,
	"alt":      0x3A,
	"command":  0x37,
	"capslock": 0x39,

	";": 0x29, "=": 0x18, ",": 0x2B, "-": 0x1B, ".": 0x2F, "/": 0x2C,
	"`": 0x32, "[": 0x21, "\\": 0x2A, "]": 0x1E, "'": 0x27,
}

var macModifierFlags = map[string]C.CGEventFlags{
	"shift":   C.kCGEventFlagMaskShift,
	"control": C.kCGEventFlagMaskControl,
	"alt":     C.kCGEventFlagMaskAlternate,
	"command": C.kCGEventFlagMaskCommand,
}

var errNoAccessibility = errors.New("accessibility permission not granted")

// CoreGraphics injects commands through Quartz event services.
type CoreGraphics struct {
	logger hclog.Logger
	run    runner

	mu       sync.Mutex
	leftDown bool
}

func newCoreGraphics(logger hclog.Logger) (Actuator, error) {
	if !bool(C.hasAccessibilityPermissions()) {
		logger.Warn("accessibility permission missing; events will be dropped until granted")
	}
	return &CoreGraphics{logger: logger, run: execRunner}, nil
}

// Execute injects cmd.
func (g *CoreGraphics) Execute(cmd Command) error {
	if h, ok, err := macHelper(cmd); ok {
		if err != nil {
			return actuatorError(cmd, err)
		}
		if err := runHelper(g.run, h.name, h.args...); err != nil {
			return actuatorError(cmd, err)
		}
		return nil
	}

	if !bool(C.hasAccessibilityPermissions()) {
		return actuatorError(cmd, errNoAccessibility)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	switch cmd.Kind {
	case KindMove, KindDrag:
		C.injectMouseMove(C.CGFloat(cmd.DX), C.CGFloat(cmd.DY), C.bool(g.leftDown || cmd.Kind == KindDrag))
	case KindMoveTo:
		C.injectMouseMoveTo(C.CGFloat(cmd.X), C.CGFloat(cmd.Y))
	case KindClick:
		g.click(1, 1)
	case KindRightClick:
		g.click(2, 1)
	case KindDoubleClick:
		g.click(1, 1)
		g.click(1, 2)
	case KindMouseDown:
		C.injectMouseButton(1, C.bool(true), 1)
		g.leftDown = true
	case KindMouseUp:
		C.injectMouseButton(1, C.bool(false), 1)
		g.leftDown = false
	case KindScroll:
		dy := int32(math.Round(cmd.DY))
		if dy != 0 {
			C.injectScroll(C.int32_t(dy))
		}
	case KindKeyTap:
		return g.keyTap(cmd)
	case KindKeyDown, KindKeyUp:
		code, ok := macKeyCodes[cmd.Key]
		if !ok {
			return actuatorError(cmd, fmt.Errorf("%w: key %q", ErrUnsupported, cmd.Key))
		}
		C.injectKey(C.CGKeyCode(code), C.bool(cmd.Kind == KindKeyDown), 0)
	case KindTypeText:
		g.typeText(cmd.Text)
	case KindSystemCommand:
		if cmd.Action != SystemLock {
			return actuatorError(cmd, fmt.Errorf("%w: system command %q", ErrUnsupported, cmd.Action))
		}
		if err := osutils.TurnOffDisplay(); err != nil {
			return actuatorError(cmd, err)
		}
	default:
		return actuatorError(cmd, ErrUnsupported)
	}
	return nil
}

func (g *CoreGraphics) click(button, count int) {
	C.injectMouseButton(C.int(button), C.bool(true), C.int(count))
	C.injectMouseButton(C.int(button), C.bool(false), C.int(count))
}

func (g *CoreGraphics) keyTap(cmd Command) error {
	var flags C.CGEventFlags
	for _, m := range cmd.Modifiers {
		flags |= macModifierFlags[m]
	}

	code, ok := macKeyCodes[cmd.Key]
	if !ok {
		// Single characters without a key code are typed as text so the
		// layout resolves them.
		if len([]rune(cmd.Key)) == 1 && flags == 0 {
			g.typeText(cmd.Key)
			return nil
		}
		return actuatorError(cmd, fmt.Errorf("%w: key %q", ErrUnsupported, cmd.Key))
	}

	C.injectKey(C.CGKeyCode(code), C.bool(true), flags)
	C.injectKey(C.CGKeyCode(code), C.bool(false), flags)
	return nil
}

func (g *CoreGraphics) typeText(text string) {
	for _, r := range text {
		units := utf16.Encode([]rune{r})
		C.injectUnicode((*C.UniChar)(unsafe.Pointer(&units[0])), C.int(len(units)))
	}
}
