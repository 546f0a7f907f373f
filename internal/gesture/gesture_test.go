package gesture

import (
	"testing"
	"time"
)

var (
	t0  = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	pad = Rect{Left: 0, Top: 0, Width: 100, Height: 100}
)

func sample(x, y float64, ms int) Sample {
	return Sample{Pos: Point{X: x, Y: y}, Time: t0.Add(time.Duration(ms) * time.Millisecond)}
}

func kinds(outs []Output) []OutputKind {
	ks := make([]OutputKind, len(outs))
	for i, o := range outs {
		ks[i] = o.Kind
	}
	return ks
}

func TestTapOutsideHotZoneClicks(t *testing.T) {
	p := NewPad(DefaultConfig())
	var outs []Output
	outs = append(outs, p.Down(sample(20, 20, 0))...)
	outs = append(outs, p.Move(sample(20, 20, 100))...)
	outs = append(outs, p.Up(sample(20, 20, 200), pad)...)

	if len(outs) != 1 || outs[0].Kind != Click {
		t.Fatalf("expected exactly one click, got %v", kinds(outs))
	}
	if p.Phase() != Idle {
		t.Errorf("expected idle after up, got %v", p.Phase())
	}
}

func TestTapInHotZoneRightClicksAndLocksOut(t *testing.T) {
	p := NewPad(DefaultConfig())
	p.Down(sample(90, 90, 0))
	outs := p.Up(sample(90, 90, 200), pad)

	if len(outs) != 1 || outs[0].Kind != RightClick {
		t.Fatalf("expected exactly one right-click, got %v", kinds(outs))
	}
	if want := t0.Add(400 * time.Millisecond); !p.LockedUntil().Equal(want) {
		t.Errorf("LockedUntil = %v, want %v", p.LockedUntil(), want)
	}

	// Trailing input inside the lockout is ignored.
	p.Down(sample(10, 10, 250))
	if p.Phase() != Idle {
		t.Fatalf("down during lockout started a gesture")
	}
	if outs := p.Move(sample(40, 40, 300)); len(outs) != 0 {
		t.Fatalf("move during lockout emitted %v", kinds(outs))
	}
	if outs := p.Up(sample(40, 40, 350), pad); len(outs) != 0 {
		t.Fatalf("up during lockout emitted %v", kinds(outs))
	}

	// Once the lockout ends the pad works again.
	p.Down(sample(10, 10, 400))
	if p.Phase() != TapPending {
		t.Fatalf("expected tap-pending after lockout, got %v", p.Phase())
	}
}

func TestHotZoneBoundary(t *testing.T) {
	cases := []struct {
		name string
		x, y float64
		want OutputKind
	}{
		{"inside", 71, 71, RightClick},
		{"left of zone", 69, 90, Click},
		{"above zone", 90, 69, Click},
		{"on edge", 70, 70, Click},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPad(DefaultConfig())
			p.Down(sample(tc.x, tc.y, 0))
			outs := p.Up(sample(tc.x, tc.y, 50), pad)
			if len(outs) != 1 || outs[0].Kind != tc.want {
				t.Errorf("got %v, want %v", kinds(outs), tc.want)
			}
		})
	}
}

func TestOffsetBounds(t *testing.T) {
	p := NewPad(DefaultConfig())
	bounds := Rect{Left: 200, Top: 100, Width: 100, Height: 50}
	p.Down(sample(290, 145, 0))
	outs := p.Up(sample(290, 145, 50), bounds)
	if len(outs) != 1 || outs[0].Kind != RightClick {
		t.Errorf("expected right-click in offset bounds, got %v", kinds(outs))
	}
}

func TestDragStreamsScaledMoves(t *testing.T) {
	p := NewPad(DefaultConfig())
	p.Down(sample(0, 0, 0))

	var outs []Output
	for i := 1; i <= 10; i++ {
		outs = append(outs, p.Move(sample(float64(i), 0, i*10))...)
	}
	outs = append(outs, p.Up(sample(10, 0, 120), pad)...)

	var sumX, sumY float64
	for _, o := range outs {
		if o.Kind != Move {
			t.Fatalf("drag emitted %v", o.Kind)
		}
		sumX += o.DX
		sumY += o.DY
	}
	if sumX != 15 || sumY != 0 {
		t.Errorf("summed move = (%v, %v), want (15, 0)", sumX, sumY)
	}
	// The first sample stays under epsilon, the rest stream one per sample.
	if len(outs) != 9 {
		t.Errorf("expected 9 streamed moves, got %d", len(outs))
	}
}

func TestDragNegativeDirection(t *testing.T) {
	p := NewPad(DefaultConfig())
	p.Down(sample(50, 50, 0))
	outs := p.Move(sample(46, 47, 10))
	outs = append(outs, p.Move(sample(44, 47, 20))...)

	var sumX, sumY float64
	for _, o := range outs {
		sumX += o.DX
		sumY += o.DY
	}
	if sumX != -9 || sumY != -4.5 {
		t.Errorf("summed move = (%v, %v), want (-9, -4.5)", sumX, sumY)
	}
	if p.Phase() != Dragging {
		t.Errorf("expected dragging, got %v", p.Phase())
	}
}

func TestSubEpsilonJitterStillTaps(t *testing.T) {
	p := NewPad(DefaultConfig())
	p.Down(sample(20, 20, 0))
	if outs := p.Move(sample(20.5, 20, 20)); len(outs) != 0 {
		t.Fatalf("jitter emitted %v", kinds(outs))
	}
	outs := p.Up(sample(20.5, 20, 100), pad)
	if len(outs) != 1 || outs[0].Kind != Click {
		t.Errorf("expected click, got %v", kinds(outs))
	}
}

func TestLongPressEmitsNothing(t *testing.T) {
	p := NewPad(DefaultConfig())
	p.Down(sample(20, 20, 0))
	if outs := p.Up(sample(20, 20, 250), pad); len(outs) != 0 {
		t.Errorf("expected no output for slow tap, got %v", kinds(outs))
	}
}

func TestCancelTerminatesLikeUp(t *testing.T) {
	p := NewPad(DefaultConfig())
	p.Down(sample(20, 20, 0))
	outs := p.Cancel(sample(20, 20, 50), pad)
	if len(outs) != 1 || outs[0].Kind != Click {
		t.Errorf("expected click on cancel, got %v", kinds(outs))
	}
	if outs := p.Move(sample(60, 60, 60)); len(outs) != 0 {
		t.Errorf("move after cancel emitted %v", kinds(outs))
	}
}

func TestMoveWithoutDownIgnored(t *testing.T) {
	p := NewPad(DefaultConfig())
	if outs := p.Move(sample(10, 10, 0)); len(outs) != 0 {
		t.Errorf("move without down emitted %v", kinds(outs))
	}
	if outs := p.Up(sample(10, 10, 10), pad); len(outs) != 0 {
		t.Errorf("up without down emitted %v", kinds(outs))
	}
}

func TestScrollStrip(t *testing.T) {
	s := NewScrollStrip()
	if outs := s.Move(sample(0, 10, 0)); len(outs) != 0 {
		t.Fatalf("move before down emitted %v", kinds(outs))
	}

	s.Down(sample(0, 100, 0))
	var outs []Output
	outs = append(outs, s.Move(sample(0, 90, 10))...)
	outs = append(outs, s.Move(sample(5, 90, 20))...)
	outs = append(outs, s.Move(sample(5, 95, 30))...)
	s.Up(sample(5, 95, 40))

	if len(outs) != 2 {
		t.Fatalf("expected 2 scroll outputs, got %d", len(outs))
	}
	if outs[0].Kind != Scroll || outs[0].DY != 10 {
		t.Errorf("first scroll = %+v, want DY 10", outs[0])
	}
	if outs[1].DY != -5 {
		t.Errorf("second scroll = %+v, want DY -5", outs[1])
	}
	if s.Active() {
		t.Error("expected inactive after up")
	}
}
