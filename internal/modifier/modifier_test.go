package modifier

import (
	"reflect"
	"testing"
	"time"
)

const hold = 500 * time.Millisecond

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

func TestMomentaryPressRelease(t *testing.T) {
	m := New(hold)

	if got := m.Down("shift", at(0)); !reflect.DeepEqual(got, []Action{{Press, "shift"}}) {
		t.Fatalf("Down: got %v", got)
	}
	if m.Mode("shift") != PressedMomentary {
		t.Fatalf("expected pressed, got %v", m.Mode("shift"))
	}

	got := m.Up("shift", at(100))
	if !reflect.DeepEqual(got, []Action{{Release, "shift"}}) {
		t.Fatalf("Up: expected exactly one release, got %v", got)
	}
	if m.Mode("shift") != Idle {
		t.Errorf("expected idle after quick release, got %v", m.Mode("shift"))
	}
	if _, ok := m.NextDeadline(); ok {
		t.Error("expected no pending deadline")
	}
}

func TestHoldLocks(t *testing.T) {
	m := New(hold)
	m.Down("command", at(0))

	deadline, ok := m.NextDeadline()
	if !ok || !deadline.Equal(at(500)) {
		t.Fatalf("NextDeadline = (%v, %v), want %v", deadline, ok, at(500))
	}

	if got := m.Advance(at(499)); len(got) != 0 {
		t.Fatalf("Advance before deadline emitted %v", got)
	}
	if got := m.Advance(at(500)); !reflect.DeepEqual(got, []Action{{Lock, "command"}}) {
		t.Fatalf("Advance at deadline: got %v", got)
	}
	if m.Mode("command") != Locked {
		t.Fatalf("expected locked, got %v", m.Mode("command"))
	}

	// Releasing the engaging hold keeps the lock.
	if got := m.Up("command", at(800)); len(got) != 0 {
		t.Fatalf("Up after lock emitted %v", got)
	}
	if m.Mode("command") != Locked {
		t.Fatalf("expected still locked, got %v", m.Mode("command"))
	}

	// The next tap toggles it off.
	if got := m.Down("command", at(2000)); len(got) != 0 {
		t.Fatalf("Down on locked key emitted %v", got)
	}
	if got := m.Up("command", at(2050)); !reflect.DeepEqual(got, []Action{{Release, "command"}}) {
		t.Fatalf("toggle-off: got %v", got)
	}
	if m.Mode("command") != Idle {
		t.Errorf("expected idle after toggle-off, got %v", m.Mode("command"))
	}
}

func TestLateReleaseLocksWithoutTimer(t *testing.T) {
	m := New(hold)
	m.Down("alt", at(0))

	if got := m.Up("alt", at(700)); !reflect.DeepEqual(got, []Action{{Lock, "alt"}}) {
		t.Fatalf("expected lock on late release, got %v", got)
	}
	if m.Mode("alt") != Locked {
		t.Errorf("expected locked, got %v", m.Mode("alt"))
	}
}

func TestRepeatedDownIsNoop(t *testing.T) {
	m := New(hold)
	m.Down("shift", at(0))

	if got := m.Down("shift", at(300)); len(got) != 0 {
		t.Fatalf("repeated down emitted %v", got)
	}
	deadline, _ := m.NextDeadline()
	if !deadline.Equal(at(500)) {
		t.Errorf("repeated down restarted the hold timer: deadline %v", deadline)
	}

	m.Advance(at(500))
	if got := m.Down("shift", at(600)); len(got) != 0 {
		t.Errorf("down while locked and held emitted %v", got)
	}
}

func TestUpUntrackedIgnored(t *testing.T) {
	m := New(hold)
	if got := m.Up("control", at(0)); len(got) != 0 {
		t.Errorf("expected untracked release to be ignored, got %v", got)
	}
}

func TestChordForceReleasesMomentary(t *testing.T) {
	m := New(hold)
	m.Down("command", at(0))
	m.Advance(at(600))
	m.Up("command", at(700))

	m.Down("shift", at(1000))

	c := m.Chord(at(1100))
	if len(c.Before) != 0 {
		t.Errorf("unexpected locks: %v", c.Before)
	}
	if !reflect.DeepEqual(c.Active, []string{"command", "shift"}) {
		t.Errorf("Active = %v", c.Active)
	}
	if !reflect.DeepEqual(c.After, []Action{{Release, "shift"}}) {
		t.Errorf("After = %v", c.After)
	}

	if m.Mode("shift") != Idle {
		t.Errorf("expected shift idle after chord, got %v", m.Mode("shift"))
	}
	if m.Mode("command") != Locked {
		t.Errorf("expected command still locked, got %v", m.Mode("command"))
	}

	// The physical release of the already force-released key is ignored.
	if got := m.Up("shift", at(1200)); len(got) != 0 {
		t.Errorf("expected no action, got %v", got)
	}

	// A second key event only carries the lock.
	c = m.Chord(at(1300))
	if !reflect.DeepEqual(c.Active, []string{"command"}) || len(c.After) != 0 {
		t.Errorf("second chord = %+v", c)
	}
}

func TestChordLocksOverdueKeysFirst(t *testing.T) {
	m := New(hold)
	m.Down("control", at(0))

	c := m.Chord(at(900))
	if !reflect.DeepEqual(c.Before, []Action{{Lock, "control"}}) {
		t.Errorf("Before = %v", c.Before)
	}
	if !reflect.DeepEqual(c.Active, []string{"control"}) || len(c.After) != 0 {
		t.Errorf("chord = %+v", c)
	}
}

func TestCancelReleasesOnlyMomentary(t *testing.T) {
	m := New(hold)
	m.Down("command", at(0))
	m.Advance(at(500))
	m.Up("command", at(600))
	m.Down("shift", at(700))

	got := m.CancelAll()
	if !reflect.DeepEqual(got, []Action{{Release, "shift"}}) {
		t.Fatalf("CancelAll = %v", got)
	}
	if m.Mode("command") != Locked {
		t.Errorf("cancel must not affect locked keys, got %v", m.Mode("command"))
	}

	// A pending toggle-off is dropped, so the next release does not unlock.
	m.Down("command", at(800))
	m.Cancel("command")
	if got := m.Up("command", at(900)); len(got) != 0 {
		t.Errorf("expected no release after cancelled tap, got %v", got)
	}
	if m.Mode("command") != Locked {
		t.Errorf("expected still locked, got %v", m.Mode("command"))
	}
}

func TestResetReleasesEverything(t *testing.T) {
	m := New(hold)
	m.Down("command", at(0))
	m.Advance(at(500))
	m.Down("shift", at(600))

	got := m.Reset()
	want := []Action{{Release, "command"}, {Release, "shift"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Reset = %v, want %v", got, want)
	}
	if len(m.Active()) != 0 {
		t.Errorf("expected no active keys, got %v", m.Active())
	}
}
