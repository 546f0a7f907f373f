package protocol

import (
	"errors"
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	ev, err := Parse([]byte(`{"event":"move","data":{"dx":3.5,"dy":-2}}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ev.Type != EventMove {
		t.Errorf("Type = %q", ev.Type)
	}
	if ev.Float("dx") != 3.5 || ev.Float("dy") != -2 {
		t.Errorf("got dx=%v dy=%v", ev.Float("dx"), ev.Float("dy"))
	}
}

func TestParseMalformed(t *testing.T) {
	for _, in := range []string{
		``,
		`not json`,
		`[1,2]`,
		`{"data":{}}`,
		`{"event":42}`,
		`{"event":""}`,
	} {
		if _, err := Parse([]byte(in)); !errors.Is(err, ErrMalformedFrame) {
			t.Errorf("Parse(%q) error = %v, want ErrMalformedFrame", in, err)
		}
	}
}

func TestParseUnknownEvent(t *testing.T) {
	ev, err := Parse([]byte(`{"event":"teleport","data":{"x":1}}`))
	if err != nil {
		t.Fatalf("unknown events must decode, got %v", err)
	}
	if ev.Type != "teleport" {
		t.Errorf("Type = %q", ev.Type)
	}
}

func TestPayloadShapes(t *testing.T) {
	tests := []struct {
		name     string
		frame    string
		wantKey  string
		wantMods []string
	}{
		{"object", `{"event":"keyTap","data":{"key":"a","modifiers":["shift"]}}`, "a", []string{"shift"}},
		{"positional", `{"event":"keyTap","data":["a",["command","shift"]]}`, "a", []string{"command", "shift"}},
		{"positional key only", `{"event":"keyTap","data":["a"]}`, "a", nil},
		{"bare value", `{"event":"keyTap","data":"a"}`, "a", nil},
		{"no data", `{"event":"keyTap"}`, "", nil},
		{"null data", `{"event":"keyTap","data":null}`, "", nil},
		{"mixed modifiers", `{"event":"keyTap","data":{"key":"b","modifiers":["alt",7,null]}}`, "b", []string{"alt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Parse([]byte(tt.frame))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got := ev.Str("key"); got != tt.wantKey {
				t.Errorf("key = %q, want %q", got, tt.wantKey)
			}
			if got := ev.Strings("modifiers"); !reflect.DeepEqual(got, tt.wantMods) {
				t.Errorf("modifiers = %v, want %v", got, tt.wantMods)
			}
		})
	}
}

func TestAbsentFieldsDefaultToZero(t *testing.T) {
	ev := NewEvent(EventMove, `{"dx":"fast"}`)
	if ev.Float("dx") != 0 || ev.Float("dy") != 0 {
		t.Errorf("expected zero defaults, got %v %v", ev.Float("dx"), ev.Float("dy"))
	}
	if ev.Has("dx") {
		t.Error("non-numeric dx reported as present")
	}

	// A bare value only fills the first field.
	ev = NewEvent(EventMove, `4`)
	if ev.Float("dx") != 4 || ev.Float("dy") != 0 {
		t.Errorf("bare value: got %v %v", ev.Float("dx"), ev.Float("dy"))
	}
}

func TestPointerPositional(t *testing.T) {
	ev := NewEvent(EventPointerDown, `["pad", 10, 20, 1000, 300, 200, 5, 6]`)
	if ev.Str("surface") != SurfacePad {
		t.Errorf("surface = %q", ev.Str("surface"))
	}
	want := map[string]float64{"x": 10, "y": 20, "t": 1000, "w": 300, "h": 200, "left": 5, "top": 6}
	for name, v := range want {
		if got := ev.Float(name); got != v {
			t.Errorf("%s = %v, want %v", name, got, v)
		}
	}
}

func TestEncode(t *testing.T) {
	b, err := Encode(EventScroll, map[string]any{"dy": -3})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	ev, err := Parse(b)
	if err != nil {
		t.Fatalf("Parse(%s): %v", b, err)
	}
	if ev.Type != EventScroll || ev.Float("dy") != -3 {
		t.Errorf("decoded %q dy=%v from %s", ev.Type, ev.Float("dy"), b)
	}

	b, err = Encode(EventClick, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(b) != `{"event":"click"}` {
		t.Errorf("Encode(click) = %s", b)
	}
}
