package client

import (
	"reflect"
	"testing"
)

func TestParseKeys(t *testing.T) {
	tests := []struct {
		in   string
		want []Key
		quit bool
	}{
		{"ab", []Key{{Name: "a"}, {Name: "b"}}, false},
		{"A ", []Key{{Name: "a", Modifiers: []string{"shift"}}, {Name: "space"}}, false},
		{"\r\t\x7f", []Key{{Name: "enter"}, {Name: "tab"}, {Name: "backspace"}}, false},
		{"\x03", []Key{{Name: "c", Modifiers: []string{"control"}}}, false},
		{"\x1b[A\x1b[3~", []Key{{Name: "up"}, {Name: "delete"}}, false},
		{"\x1b[15~", []Key{{Name: "f5"}}, false},
		{"\x1bOP", []Key{{Name: "f1"}}, false},
		{"\x1bx", []Key{{Name: "x", Modifiers: []string{"alt"}}}, false},
		{"\x1bX", []Key{{Name: "x", Modifiers: []string{"alt", "shift"}}}, false},
		{"\x1b", []Key{{Name: "escape"}}, false},
		{"é", []Key{{Name: "é"}}, false},
		{"a\x1db", []Key{{Name: "a"}}, true},
	}

	for _, tt := range tests {
		got, quit := ParseKeys([]byte(tt.in))
		if !reflect.DeepEqual(got, tt.want) || quit != tt.quit {
			t.Errorf("ParseKeys(%q) = %v, %v; want %v, %v", tt.in, got, quit, tt.want, tt.quit)
		}
	}
}
