// Package gesture turns raw pointer samples from a touch surface into
// relative moves, clicks and scroll deltas.
package gesture

import (
	"math"
	"time"
)

// Point is a position in surface coordinates.
type Point struct {
	X float64
	Y float64
}

// Rect is the bounding rectangle of a surface.
type Rect struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// Sample is one pointer observation.
type Sample struct {
	Pos  Point
	Time time.Time
}

// Phase is the state of a pad gesture.
type Phase int

const (
	Idle Phase = iota
	TapPending
	Dragging
)

func (p Phase) String() string {
	switch p {
	case TapPending:
		return "tap-pending"
	case Dragging:
		return "dragging"
	default:
		return "idle"
	}
}

// OutputKind identifies a recognized gesture output.
type OutputKind int

const (
	Move OutputKind = iota
	Click
	RightClick
	Scroll
)

func (k OutputKind) String() string {
	switch k {
	case Move:
		return "move"
	case Click:
		return "click"
	case RightClick:
		return "rightClick"
	case Scroll:
		return "scroll"
	default:
		return "unknown"
	}
}

// Output is one recognized gesture output. DX and DY are set for Move, DY for
// Scroll.
type Output struct {
	Kind OutputKind
	DX   float64
	DY   float64
}

// Config holds the recognizer tunables.
type Config struct {
	// Gain scales raw pointer deltas into move units.
	Gain float64
	// Epsilon is the path length a gesture must exceed to become a drag.
	Epsilon float64
	// TapThreshold is the longest gesture still classified as a tap.
	TapThreshold time.Duration
	// Lockout is how long the pad ignores input after a right-click.
	Lockout time.Duration
	// HotZone is the fraction of width and height, measured from the
	// bottom-right corner, that selects a right-click.
	HotZone float64
}

// DefaultConfig returns the reference tunables.
func DefaultConfig() Config {
	return Config{
		Gain:         1.5,
		Epsilon:      1,
		TapThreshold: 250 * time.Millisecond,
		Lockout:      200 * time.Millisecond,
		HotZone:      0.3,
	}
}

// Pad recognizes taps, right-clicks and drags on the main surface.
type Pad struct {
	cfg Config

	phase       Phase
	start       Point
	last        Point
	startTime   time.Time
	travelled   float64
	lockedUntil time.Time
}

// NewPad creates a pad recognizer.
func NewPad(cfg Config) *Pad {
	return &Pad{cfg: cfg}
}

// Phase returns the current gesture phase.
func (p *Pad) Phase() Phase {
	return p.phase
}

// LockedUntil returns the end of the current right-click lockout.
func (p *Pad) LockedUntil() time.Time {
	return p.lockedUntil
}

func (p *Pad) locked(t time.Time) bool {
	return t.Before(p.lockedUntil)
}

// Down starts a gesture.
func (p *Pad) Down(s Sample) []Output {
	if p.locked(s.Time) {
		return nil
	}
	p.phase = TapPending
	p.start = s.Pos
	p.last = s.Pos
	p.startTime = s.Time
	p.travelled = 0
	return nil
}

// Move feeds one sample of an active gesture. Moves are emitted per sample.
func (p *Pad) Move(s Sample) []Output {
	if p.phase == Idle || p.locked(s.Time) {
		return nil
	}

	dx := s.Pos.X - p.last.X
	dy := s.Pos.Y - p.last.Y
	p.last = s.Pos

	switch p.phase {
	case TapPending:
		p.travelled += math.Abs(dx) + math.Abs(dy)
		if p.travelled <= p.cfg.Epsilon {
			return nil
		}
		p.phase = Dragging
		// Flush everything accumulated since the down so the emitted total
		// matches the raw total.
		return p.move(s.Pos.X-p.start.X, s.Pos.Y-p.start.Y)

	case Dragging:
		return p.move(dx, dy)
	}
	return nil
}

func (p *Pad) move(dx, dy float64) []Output {
	if dx == 0 && dy == 0 {
		return nil
	}
	return []Output{{Kind: Move, DX: dx * p.cfg.Gain, DY: dy * p.cfg.Gain}}
}

// Up ends a gesture and classifies taps by release position.
func (p *Pad) Up(s Sample, bounds Rect) []Output {
	if p.locked(s.Time) {
		return nil
	}
	phase := p.phase
	elapsed := s.Time.Sub(p.startTime)
	p.phase = Idle

	if phase != TapPending || elapsed >= p.cfg.TapThreshold {
		return nil
	}
	if p.inHotZone(s.Pos, bounds) {
		p.lockedUntil = s.Time.Add(p.cfg.Lockout)
		return []Output{{Kind: RightClick}}
	}
	return []Output{{Kind: Click}}
}

// Cancel ends a gesture the same way Up does. It covers pointer cancel and
// pointer leave.
func (p *Pad) Cancel(s Sample, bounds Rect) []Output {
	return p.Up(s, bounds)
}

// Reset drops any gesture in progress and the lockout.
func (p *Pad) Reset() {
	*p = Pad{cfg: p.cfg}
}

func (p *Pad) inHotZone(pos Point, r Rect) bool {
	if r.Width <= 0 || r.Height <= 0 {
		return false
	}
	right := r.Left + r.Width
	bottom := r.Top + r.Height
	return pos.X > right-r.Width*p.cfg.HotZone && pos.Y > bottom-r.Height*p.cfg.HotZone
}

// ScrollStrip streams vertical scroll deltas from a dedicated surface.
type ScrollStrip struct {
	active bool
	last   Point
}

// NewScrollStrip creates a scroll strip recognizer.
func NewScrollStrip() *ScrollStrip {
	return &ScrollStrip{}
}

// Active reports whether a scroll gesture is in progress.
func (s *ScrollStrip) Active() bool {
	return s.active
}

// Down starts a scroll gesture.
func (s *ScrollStrip) Down(sample Sample) []Output {
	s.active = true
	s.last = sample.Pos
	return nil
}

// Move emits the negated vertical delta of the sample.
func (s *ScrollStrip) Move(sample Sample) []Output {
	if !s.active {
		return nil
	}
	dy := sample.Pos.Y - s.last.Y
	s.last = sample.Pos
	if dy == 0 {
		return nil
	}
	return []Output{{Kind: Scroll, DY: -dy}}
}

// Up ends a scroll gesture.
func (s *ScrollStrip) Up(Sample) []Output {
	s.active = false
	return nil
}
