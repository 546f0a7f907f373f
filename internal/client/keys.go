package client

import (
	"bytes"
	"unicode/utf8"
)

// QuitByte ends an interactive session (Ctrl-]).
const QuitByte = 0x1d

// Key is one key tap read from the terminal
type Key struct {
	Name      string
	Modifiers []string
}

var escapeSequences = map[string]string{
	"\x1b[A": "up", "\x1b[B": "down", "\x1b[C": "right", "\x1b[D": "left",
	"\x1bOA": "up", "\x1bOB": "down", "\x1bOC": "right", "\x1bOD": "left",
	"\x1b[H": "home", "\x1b[F": "end", "\x1bOH": "home", "\x1bOF": "end",
	"\x1b[1~": "home", "\x1b[4~": "end",
	"\x1b[3~": "delete", "\x1b[5~": "pageup", "\x1b[6~": "pagedown",
	"\x1bOP": "f1", "\x1bOQ": "f2", "\x1bOR": "f3", "\x1bOS": "f4",
	"\x1b[15~": "f5", "\x1b[17~": "f6", "\x1b[18~": "f7", "\x1b[19~": "f8",
	"\x1b[20~": "f9", "\x1b[21~": "f10", "\x1b[23~": "f11", "\x1b[24~": "f12",
}

// ParseKeys translates bytes read from a raw mode terminal into key taps.
// quit reports that QuitByte was seen; keys after it are dropped.
func ParseKeys(b []byte) (keys []Key, quit bool) {
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c == QuitByte:
			return keys, true
		case c == 0x1b:
			if name, n := escapeSequence(b[i:]); n > 0 {
				keys = append(keys, Key{Name: name})
				i += n
				continue
			}
			if i+1 < len(b) && b[i+1] >= 0x20 && b[i+1] < 0x7f {
				k := printable(b[i+1])
				k.Modifiers = append([]string{"alt"}, k.Modifiers...)
				keys = append(keys, k)
				i += 2
				continue
			}
			keys = append(keys, Key{Name: "escape"})
		case c == '\r' || c == '\n':
			keys = append(keys, Key{Name: "enter"})
		case c == '\t':
			keys = append(keys, Key{Name: "tab"})
		case c == 0x7f || c == 0x08:
			keys = append(keys, Key{Name: "backspace"})
		case c >= 0x01 && c <= 0x1a:
			keys = append(keys, Key{Name: string(rune('a' + c - 1)), Modifiers: []string{"control"}})
		case c < 0x20:
			// no portable mapping
		case c < 0x7f:
			keys = append(keys, printable(c))
		default:
			r, size := utf8.DecodeRune(b[i:])
			if r != utf8.RuneError {
				keys = append(keys, Key{Name: string(r)})
			}
			i += size
			continue
		}
		i++
	}
	return keys, false
}

// escapeSequence returns the key of the longest known sequence b starts with
func escapeSequence(b []byte) (string, int) {
	var name string
	var n int
	for seq, key := range escapeSequences {
		if len(seq) > n && bytes.HasPrefix(b, []byte(seq)) {
			name, n = key, len(seq)
		}
	}
	return name, n
}

func printable(c byte) Key {
	switch {
	case c == ' ':
		return Key{Name: "space"}
	case c >= 'A' && c <= 'Z':
		return Key{Name: string(rune(c + 'a' - 'A')), Modifiers: []string{"shift"}}
	}
	return Key{Name: string(rune(c))}
}
