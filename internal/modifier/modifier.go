// Package modifier tracks momentary and locked modifier keys for one remote
// keyboard.
//
// A modifier pressed and released before the hold threshold is momentary: it
// is active for the next key event only and is force-released right after
// it. A modifier held past the threshold locks and stays active until the key
// is tapped again. The machine never starts timers itself; callers feed it
// the current time and poll NextDeadline to schedule Advance.
package modifier

import (
	"sort"
	"time"
)

// Mode is the state of one modifier key.
type Mode int

const (
	Idle Mode = iota
	PressedMomentary
	Locked
)

func (m Mode) String() string {
	switch m {
	case PressedMomentary:
		return "pressed"
	case Locked:
		return "locked"
	default:
		return "idle"
	}
}

// ActionKind is the kind of effect a transition produces.
type ActionKind int

const (
	// Press asks the actuator to hold the key down.
	Press ActionKind = iota
	// Release asks the actuator to let the key go.
	Release
	// Lock reports that a held key has become locked.
	Lock
)

func (k ActionKind) String() string {
	switch k {
	case Press:
		return "press"
	case Release:
		return "release"
	case Lock:
		return "lock"
	default:
		return "unknown"
	}
}

// Action is one effect produced by a transition.
type Action struct {
	Kind ActionKind
	Key  string
}

// State is the tracked state of one modifier key.
type State struct {
	Key       string
	Mode      Mode
	PressedAt time.Time

	// held is true while the physical key is down. For a locked key it
	// distinguishes the release that ends the engaging hold from the tap
	// that unlocks.
	held    bool
	rearmed bool
}

// Chord is the result of a normal key event.
type Chord struct {
	// Before holds locks that engaged on the way to this event.
	Before []Action
	// Active is the modifier set the key event fires with.
	Active []string
	// After holds the force-releases of the momentary modifiers in Active.
	After []Action
}

// Machine tracks every modifier key of one connection. It is not safe for
// concurrent use; a connection drives it from a single goroutine.
type Machine struct {
	hold   time.Duration
	states map[string]*State
}

// New creates a machine with the given lock threshold.
func New(hold time.Duration) *Machine {
	return &Machine{
		hold:   hold,
		states: make(map[string]*State),
	}
}

// Hold returns the lock threshold.
func (m *Machine) Hold() time.Duration {
	return m.hold
}

// Mode returns the current mode of key.
func (m *Machine) Mode(key string) Mode {
	if s, ok := m.states[key]; ok {
		return s.Mode
	}
	return Idle
}

// Down handles a physical key-down.
func (m *Machine) Down(key string, now time.Time) []Action {
	s, ok := m.states[key]
	if !ok {
		m.states[key] = &State{Key: key, Mode: PressedMomentary, PressedAt: now, held: true}
		return []Action{{Kind: Press, Key: key}}
	}

	// Repeated downs never restart the hold timer. A fresh down on a locked
	// key arms the toggle-off.
	if s.Mode == Locked && !s.held {
		s.held = true
		s.rearmed = true
	}
	return nil
}

// Up handles a physical key-up.
func (m *Machine) Up(key string, now time.Time) []Action {
	s, ok := m.states[key]
	if !ok {
		return nil
	}

	switch s.Mode {
	case PressedMomentary:
		if !now.Before(s.PressedAt.Add(m.hold)) {
			// The deadline passed before the timer fired: this release ends
			// the engaging hold.
			s.Mode = Locked
			s.held = false
			return []Action{{Kind: Lock, Key: key}}
		}
		delete(m.states, key)
		return []Action{{Kind: Release, Key: key}}

	case Locked:
		if s.rearmed {
			delete(m.states, key)
			return []Action{{Kind: Release, Key: key}}
		}
		s.held = false
	}
	return nil
}

// Advance locks every momentary key held past the threshold at now.
func (m *Machine) Advance(now time.Time) []Action {
	var actions []Action
	for _, key := range m.keys() {
		s := m.states[key]
		if s.Mode == PressedMomentary && !now.Before(s.PressedAt.Add(m.hold)) {
			s.Mode = Locked
			s.held = true
			actions = append(actions, Action{Kind: Lock, Key: key})
		}
	}
	return actions
}

// NextDeadline returns the earliest pending lock deadline.
func (m *Machine) NextDeadline() (time.Time, bool) {
	var next time.Time
	found := false
	for _, s := range m.states {
		if s.Mode != PressedMomentary {
			continue
		}
		d := s.PressedAt.Add(m.hold)
		if !found || d.Before(next) {
			next = d
			found = true
		}
	}
	return next, found
}

// Chord computes the modifier set for a normal key event at now and
// force-releases the momentary members of that set.
func (m *Machine) Chord(now time.Time) Chord {
	c := Chord{Before: m.Advance(now)}
	for _, key := range m.keys() {
		s := m.states[key]
		c.Active = append(c.Active, key)
		if s.Mode == PressedMomentary {
			c.After = append(c.After, Action{Kind: Release, Key: key})
			delete(m.states, key)
		}
	}
	return c
}

// Cancel force-releases key if it is momentary. Locked keys only drop a
// pending toggle-off.
func (m *Machine) Cancel(key string) []Action {
	s, ok := m.states[key]
	if !ok {
		return nil
	}
	switch s.Mode {
	case PressedMomentary:
		delete(m.states, key)
		return []Action{{Kind: Release, Key: key}}
	case Locked:
		s.held = false
		s.rearmed = false
	}
	return nil
}

// CancelAll applies Cancel to every tracked key.
func (m *Machine) CancelAll() []Action {
	var actions []Action
	for _, key := range m.keys() {
		actions = append(actions, m.Cancel(key)...)
	}
	return actions
}

// Reset releases every tracked key, locked or not, and forgets them.
func (m *Machine) Reset() []Action {
	var actions []Action
	for _, key := range m.keys() {
		actions = append(actions, Action{Kind: Release, Key: key})
	}
	m.states = make(map[string]*State)
	return actions
}

// Active returns the currently active modifiers without side effects.
func (m *Machine) Active() []string {
	return m.keys()
}

// keys returns the tracked keys in a stable order.
func (m *Machine) keys() []string {
	keys := make([]string, 0, len(m.states))
	for k := range m.states {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
