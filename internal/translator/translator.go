// Package translator turns the event stream of one controller connection
// into normalized commands for the actuator.
//
// A Handler owns the modifier machine and the gesture recognizers of its
// connection and is driven from a single goroutine. Commands are sent to the
// actuator fire-and-forget: failures are logged and counted, never retried,
// and never end the connection.
package translator

import (
	"math"
	"time"

	"github.com/hashicorp/go-hclog"

	"remotepad/internal/gesture"
	"remotepad/internal/input"
	"remotepad/internal/keymap"
	"remotepad/internal/metrics"
	"remotepad/internal/modifier"
	"remotepad/internal/protocol"
)

// fnKey is tracked by the modifier machine but never forwarded.
const fnKey = "fn"

// Config holds the per-connection input tunables.
type Config struct {
	// ModifierHold is how long a modifier must be held to lock.
	ModifierHold time.Duration
	Gesture      gesture.Config
}

// DefaultConfig returns the reference tunables.
func DefaultConfig() Config {
	return Config{
		ModifierHold: 500 * time.Millisecond,
		Gesture:      gesture.DefaultConfig(),
	}
}

// Handler translates the events of one connection.
type Handler struct {
	actuator input.Actuator
	metrics  *metrics.Metrics
	logger   hclog.Logger

	modifiers *modifier.Machine
	pad       *gesture.Pad
	strip     *gesture.ScrollStrip
}

// New creates a handler for one connection.
func New(actuator input.Actuator, m *metrics.Metrics, logger hclog.Logger, cfg Config) *Handler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Handler{
		actuator:  actuator,
		metrics:   m,
		logger:    logger,
		modifiers: modifier.New(cfg.ModifierHold),
		pad:       gesture.NewPad(cfg.Gesture),
		strip:     gesture.NewScrollStrip(),
	}
}

// Handle processes one event received at now. Unknown events are ignored.
func (h *Handler) Handle(ev protocol.Event, now time.Time) {
	switch ev.Type {
	case protocol.EventMove:
		h.exec(input.Move(ev.Float("dx"), ev.Float("dy")))
	case protocol.EventDrag:
		h.exec(input.Command{Kind: input.KindDrag, DX: ev.Float("dx"), DY: ev.Float("dy")})
	case protocol.EventMoveTo:
		h.exec(input.Command{Kind: input.KindMoveTo, X: ev.Float("x"), Y: ev.Float("y")})
	case protocol.EventClick:
		h.exec(input.Simple(input.KindClick))
	case protocol.EventRightClick:
		h.exec(input.Simple(input.KindRightClick))
	case protocol.EventDoubleClick:
		h.exec(input.Simple(input.KindDoubleClick))
	case protocol.EventMouseDown:
		h.exec(input.Simple(input.KindMouseDown))
	case protocol.EventMouseUp:
		h.exec(input.Simple(input.KindMouseUp))
	case protocol.EventScroll:
		h.exec(input.Scroll(ev.Float("dy")))

	case protocol.EventKeyTap:
		key, ok := keymap.NormalizeKey(ev.Str("key"))
		if !ok {
			return
		}
		h.exec(input.KeyTap(key, keymap.NormalizeModifiers(ev.Strings("modifiers"))))
	case protocol.EventKeyDown:
		if key, ok := keymap.NormalizeKey(ev.Str("key")); ok {
			h.exec(input.KeyDown(key))
		}
	case protocol.EventKeyUp:
		if key, ok := keymap.NormalizeKey(ev.Str("key")); ok {
			h.exec(input.KeyUp(key))
		}
	case protocol.EventToggleCapsLock:
		h.exec(input.Simple(input.KindToggleCapsLock))
	case protocol.EventSpecialKey:
		h.action(input.KindSpecialKey, ev.Str("action"))
	case protocol.EventMediaKey:
		h.action(input.KindMediaKey, ev.Str("action"))
	case protocol.EventSystemCommand:
		h.action(input.KindSystemCommand, ev.Str("action"))
	case protocol.EventTypeText:
		if text := ev.Str("text"); text != "" {
			h.exec(input.Command{Kind: input.KindTypeText, Text: text})
		}

	case protocol.EventPointerDown, protocol.EventPointerMove,
		protocol.EventPointerUp, protocol.EventPointerCancel:
		h.pointer(ev, now)

	case protocol.EventKeyPress:
		h.keyPress(ev.Str("key"), now)
	case protocol.EventKeyRelease:
		h.keyRelease(ev.Str("key"), now)
	case protocol.EventKey:
		h.keyPress(ev.Str("key"), now)
		h.keyRelease(ev.Str("key"), now)
	case protocol.EventKeyCancel:
		if id, ok := keymap.ModifierID(ev.Str("key")); ok {
			h.apply(h.modifiers.Cancel(id))
		}
	case protocol.EventBlur:
		h.apply(h.modifiers.CancelAll())

	default:
		h.logger.Trace("ignoring event", "event", ev.Type)
	}
}

// Tick fires the modifier hold deadlines due at now.
func (h *Handler) Tick(now time.Time) {
	h.apply(h.modifiers.Advance(now))
}

// NextDeadline returns when Tick must next be called.
func (h *Handler) NextDeadline() (time.Time, bool) {
	return h.modifiers.NextDeadline()
}

// Close releases every modifier still held on the host and drops the
// gesture state. The handler must not be used afterwards.
func (h *Handler) Close() {
	h.apply(h.modifiers.Reset())
	h.pad.Reset()
	h.strip.Up(gesture.Sample{})
}

func (h *Handler) action(kind input.Kind, action string) {
	if action == "" {
		return
	}
	h.exec(input.WithAction(kind, action))
}

func (h *Handler) pointer(ev protocol.Event, now time.Time) {
	s := gesture.Sample{
		Pos:  gesture.Point{X: ev.Float("x"), Y: ev.Float("y")},
		Time: now,
	}
	if ev.Has("t") {
		s.Time = time.UnixMilli(int64(math.Round(ev.Float("t"))))
	}

	var out []gesture.Output
	if ev.Str("surface") == protocol.SurfaceScroll {
		switch ev.Type {
		case protocol.EventPointerDown:
			out = h.strip.Down(s)
		case protocol.EventPointerMove:
			out = h.strip.Move(s)
		default:
			out = h.strip.Up(s)
		}
	} else {
		bounds := gesture.Rect{
			Left:   ev.Float("left"),
			Top:    ev.Float("top"),
			Width:  ev.Float("w"),
			Height: ev.Float("h"),
		}
		switch ev.Type {
		case protocol.EventPointerDown:
			out = h.pad.Down(s)
		case protocol.EventPointerMove:
			out = h.pad.Move(s)
		case protocol.EventPointerUp:
			out = h.pad.Up(s, bounds)
		default:
			out = h.pad.Cancel(s, bounds)
		}
	}

	for _, o := range out {
		switch o.Kind {
		case gesture.Move:
			h.exec(input.Move(o.DX, o.DY))
		case gesture.Click:
			h.exec(input.Simple(input.KindClick))
		case gesture.RightClick:
			h.exec(input.Simple(input.KindRightClick))
		case gesture.Scroll:
			h.exec(input.Scroll(o.DY))
		}
	}
}

func (h *Handler) keyPress(name string, now time.Time) {
	if keymap.IsCapsLock(name) {
		h.exec(input.Simple(input.KindToggleCapsLock))
		return
	}
	if id, ok := keymap.ModifierID(name); ok {
		h.apply(h.modifiers.Down(id, now))
		return
	}
	key, ok := keymap.NormalizeKey(name)
	if !ok {
		return
	}

	chord := h.modifiers.Chord(now)
	h.apply(chord.Before)

	var active []string
	fn := false
	for _, m := range chord.Active {
		if m == fnKey {
			fn = true
			continue
		}
		active = append(active, m)
	}

	if action, special := keymap.SpecialAction(key); special && !fn {
		h.exec(input.WithAction(input.KindSpecialKey, action))
	} else {
		h.exec(input.KeyTap(key, active))
	}
	h.apply(chord.After)
}

func (h *Handler) keyRelease(name string, now time.Time) {
	if id, ok := keymap.ModifierID(name); ok {
		h.apply(h.modifiers.Up(id, now))
	}
}

// apply performs the effects of modifier transitions.
func (h *Handler) apply(actions []modifier.Action) {
	for _, a := range actions {
		if a.Key == fnKey {
			continue
		}
		switch a.Kind {
		case modifier.Press:
			h.exec(input.KeyDown(a.Key))
		case modifier.Release:
			h.exec(input.KeyUp(a.Key))
		case modifier.Lock:
			h.logger.Debug("modifier locked", "key", a.Key)
		}
	}
}

func (h *Handler) exec(cmd input.Command) {
	err := h.actuator.Execute(cmd)
	h.metrics.CommandExecuted(string(cmd.Kind), err)
	if err != nil {
		h.logger.Warn("command failed", "command", cmd.String(), "error", err)
		return
	}
	h.logger.Trace("command executed", "command", cmd.String())
}
