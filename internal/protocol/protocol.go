// Package protocol defines the WebSocket frames exchanged between a remote
// controller and the host.
//
// Every frame is a JSON text message {"event": name, "data": payload}. The
// payload is read leniently: it may be an object with named fields, a
// positional array in the order the fields are declared for the event, or,
// for single-field events, a bare value.
package protocol

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// EventType names a frame
type EventType string

const (
	// Pointer commands already recognized on the controller
	EventMove        EventType = "move"
	EventMoveTo      EventType = "moveTo"
	EventClick       EventType = "click"
	EventRightClick  EventType = "rightClick"
	EventDoubleClick EventType = "doubleClick"
	EventScroll      EventType = "scroll"
	EventMouseDown   EventType = "mouseDown"
	EventMouseUp     EventType = "mouseUp"
	EventDrag        EventType = "drag"

	// Keyboard commands already resolved on the controller
	EventKeyTap         EventType = "keyTap"
	EventKeyDown        EventType = "keyDown"
	EventKeyUp          EventType = "keyUp"
	EventToggleCapsLock EventType = "toggleCapsLock"
	EventSpecialKey     EventType = "specialKey"
	EventMediaKey       EventType = "mediaKey"
	EventTypeText       EventType = "type"
	EventSystemCommand  EventType = "systemCommand"

	// Raw device events interpreted on the host
	EventPointerDown   EventType = "pointerDown"
	EventPointerMove   EventType = "pointerMove"
	EventPointerUp     EventType = "pointerUp"
	EventPointerCancel EventType = "pointerCancel"
	EventKey           EventType = "key"
	EventKeyPress      EventType = "keyPress"
	EventKeyRelease    EventType = "keyRelease"
	EventKeyCancel     EventType = "keyCancel"
	EventBlur          EventType = "blur"

	// Session frames
	EventPing  EventType = "ping"
	EventPong  EventType = "pong"
	EventReady EventType = "ready"
)

// Surfaces a raw pointer event can originate from
const (
	SurfacePad    = "pad"
	SurfaceScroll = "scroll"
)

// fields lists the positional order of payload fields per event.
var fields = map[EventType][]string{
	EventMove:          {"dx", "dy"},
	EventDrag:          {"dx", "dy"},
	EventMoveTo:        {"x", "y"},
	EventScroll:        {"dy"},
	EventKeyTap:        {"key", "modifiers"},
	EventKeyDown:       {"key"},
	EventKeyUp:         {"key"},
	EventKey:           {"key"},
	EventKeyPress:      {"key"},
	EventKeyRelease:    {"key"},
	EventKeyCancel:     {"key"},
	EventSpecialKey:    {"action"},
	EventMediaKey:      {"action"},
	EventSystemCommand: {"action"},
	EventTypeText:      {"text"},
	EventPointerDown:   pointerFields,
	EventPointerMove:   pointerFields,
	EventPointerUp:     pointerFields,
	EventPointerCancel: pointerFields,
}

var pointerFields = []string{"surface", "x", "y", "t", "w", "h", "left", "top"}

// ErrMalformedFrame is returned for frames that are not JSON objects with a
// string event name.
var ErrMalformedFrame = errors.New("malformed frame")

// Event is a decoded frame.
type Event struct {
	Type EventType
	data gjson.Result
}

// Parse decodes a frame. Unknown event names are not an error.
func Parse(b []byte) (Event, error) {
	if !gjson.ValidBytes(b) {
		return Event{}, fmt.Errorf("%w: invalid json", ErrMalformedFrame)
	}
	root := gjson.ParseBytes(b)
	if !root.IsObject() {
		return Event{}, fmt.Errorf("%w: not an object", ErrMalformedFrame)
	}
	name := root.Get("event")
	if name.Type != gjson.String || name.Str == "" {
		return Event{}, fmt.Errorf("%w: missing event name", ErrMalformedFrame)
	}
	return Event{Type: EventType(name.Str), data: root.Get("data")}, nil
}

// NewEvent builds an event from a raw JSON payload. It is used by tests and
// by callers that already hold a payload.
func NewEvent(t EventType, data string) Event {
	return Event{Type: t, data: gjson.Parse(data)}
}

// field resolves a named payload field, falling back to its positional slot.
func (e Event) field(name string) gjson.Result {
	switch {
	case e.data.IsObject():
		return e.data.Get(name)
	case e.data.IsArray():
		idx := indexOf(fields[e.Type], name)
		if idx < 0 {
			return gjson.Result{}
		}
		items := e.data.Array()
		if idx >= len(items) {
			return gjson.Result{}
		}
		return items[idx]
	case e.data.Exists() && e.data.Type != gjson.Null:
		if f := fields[e.Type]; len(f) > 0 && f[0] == name {
			return e.data
		}
	}
	return gjson.Result{}
}

// Float returns a numeric field, or 0 when absent or not a number.
func (e Event) Float(name string) float64 {
	r := e.field(name)
	if r.Type != gjson.Number {
		return 0
	}
	return r.Num
}

// Has reports whether a numeric field is present.
func (e Event) Has(name string) bool {
	return e.field(name).Type == gjson.Number
}

// Str returns a string field, or "" when absent.
func (e Event) Str(name string) string {
	r := e.field(name)
	if r.Type != gjson.String {
		return ""
	}
	return r.Str
}

// Strings returns a string array field. Non-string members are skipped.
func (e Event) Strings(name string) []string {
	r := e.field(name)
	if !r.IsArray() {
		return nil
	}
	var out []string
	for _, v := range r.Array() {
		if v.Type == gjson.String {
			out = append(out, v.Str)
		}
	}
	return out
}

// Encode builds a frame. data may be nil, a map, a struct or a raw value.
func Encode(t EventType, data any) ([]byte, error) {
	b, err := sjson.SetBytes([]byte(`{}`), "event", string(t))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return b, nil
	}
	return sjson.SetBytes(b, "data", data)
}

// Fields returns the positional field order for an event type.
func Fields(t EventType) []string {
	return fields[t]
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
