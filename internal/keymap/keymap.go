// Package keymap maps the free-form key and modifier names sent by remote
// keyboards onto the canonical vocabulary understood by the actuators.
package keymap

import "strings"

// keyTable holds canonical names for keys that differ from their client label.
// An empty value marks a key that is handled on the client only and must not
// be forwarded.
var keyTable = map[string]string{
	"caps_lock": "capslock",
	"capslock":  "capslock",
	"option":    "alt",
	"alt":       "alt",
	"command":   "command",
	"cmd":       "command",
	"control":   "control",
	"ctrl":      "control",
	"shift":     "shift",
	"fn":        "",
	"delete":    "delete",
	"backspace": "backspace",
	"left":      "left",
	"right":     "right",
	"up":        "up",
	"down":      "down",
	"enter":     "enter",
	"return":    "enter",
	"space":     "space",
	"tab":       "tab",
	"esc":       "escape",
	"escape":    "escape",
}

// modifierTable is the subset of names allowed in a modifier list.
var modifierTable = map[string]string{
	"shift":   "shift",
	"control": "control",
	"ctrl":    "control",
	"option":  "alt",
	"alt":     "alt",
	"command": "command",
	"cmd":     "command",
}

// physicalModifiers are the keys tracked by the modifier state machine.
// fn is tracked too even though it is never forwarded.
var physicalModifiers = map[string]bool{
	"shift":   true,
	"control": true,
	"ctrl":    true,
	"option":  true,
	"alt":     true,
	"command": true,
	"cmd":     true,
	"fn":      true,
}

// specialActions maps function keys to the media/system action they trigger
// when fn is not held.
var specialActions = map[string]string{
	"f1":  "brightnessDown",
	"f2":  "brightnessUp",
	"f3":  "missionControl",
	"f4":  "spotlightSearch",
	"f5":  "dictation",
	"f6":  "focusMode",
	"f7":  "previousTrack",
	"f8":  "playPause",
	"f9":  "nextTrack",
	"f10": "mute",
	"f11": "volumeDown",
	"f12": "volumeUp",
}

// NormalizeKey returns the canonical name for a key. Unknown keys pass through
// lower-cased. ok is false for empty names and for client-only keys, which the
// caller must drop.
func NormalizeKey(name string) (key string, ok bool) {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return "", false
	}
	if mapped, found := keyTable[lower]; found {
		return mapped, mapped != ""
	}
	return lower, true
}

// NormalizeModifiers maps each name through the modifier table. Names with no
// mapping are dropped. The result never contains duplicates.
func NormalizeModifiers(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		mapped, ok := modifierTable[strings.ToLower(strings.TrimSpace(n))]
		if !ok || seen[mapped] {
			continue
		}
		seen[mapped] = true
		out = append(out, mapped)
	}
	return out
}

// IsModifier reports whether name is a physical modifier key.
func IsModifier(name string) bool {
	return physicalModifiers[strings.ToLower(strings.TrimSpace(name))]
}

// ModifierID returns the identity under which a physical modifier is tracked,
// folding aliases such as ctrl and control onto one key. fn keeps its own
// identity so its state is known even though it is never forwarded.
func ModifierID(name string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(name))
	if !physicalModifiers[lower] {
		return "", false
	}
	if lower == "fn" {
		return "fn", true
	}
	return modifierTable[lower], true
}

// IsCapsLock reports whether name is the caps-lock key.
func IsCapsLock(name string) bool {
	key, ok := NormalizeKey(name)
	return ok && key == "capslock"
}

// SpecialAction returns the action bound to a function key.
func SpecialAction(name string) (string, bool) {
	action, ok := specialActions[strings.ToLower(strings.TrimSpace(name))]
	return action, ok
}
