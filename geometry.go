package fable

import (
	"errors"
	"math"
)

// SessionKind selects what a geometry session manipulates.
type SessionKind uint8

const (
	SessionMove SessionKind = iota
	SessionResize
	SessionRotate
)

// Handle identifies one of the eight resize grips on a selected element's
// bounding box, or the rotate grip above it.
type Handle uint8

const (
	HandleNone Handle = iota
	HandleNW
	HandleN
	HandleNE
	HandleE
	HandleSE
	HandleS
	HandleSW
	HandleW
	HandleRotate
)

// isCorner reports whether the handle adjusts two edges at once. Only corner
// handles participate in aspect-ratio locking.
func (h Handle) isCorner() bool {
	switch h {
	case HandleNW, HandleNE, HandleSE, HandleSW:
		return true
	}
	return false
}

// rotationSnapStep is the angular grid, in degrees, used when the snap
// modifier is held during rotation.
const rotationSnapStep = 15.0

// SnapConfig controls positional grid snapping during move sessions.
type SnapConfig struct {
	Enabled  bool
	GridSize float64
}

// Snap rounds v to the nearest grid multiple when snapping is enabled;
// otherwise it is the identity.
func (c SnapConfig) Snap(v float64) float64 {
	if !c.Enabled || c.GridSize <= 0 {
		return v
	}
	return math.Round(v/c.GridSize) * c.GridSize
}

// CommitFunc receives the partial style computed by each session update.
// Sessions do not buffer: every pointer move is one immediate, idempotent
// style write through this callback.
type CommitFunc func(StylePatch)

// ErrElementLocked is returned when a session is started on a locked element.
var ErrElementLocked = errors.New("element is locked")

// Session is a single direct-manipulation interaction: one pointer drag
// moving, resizing, or rotating one element. It is stateless math over the
// style captured at Begin time. Updates never read back the mutated style,
// so intermediate commits cannot compound rounding.
type Session struct {
	kind    SessionKind
	handle  Handle
	origin  Vec2
	initial ElementStyle
	snap    SnapConfig
	commit  CommitFunc

	// Rotation state: the pivot is the element's bounding-rect center and
	// startAngle the pointer's initial bearing from it.
	centerX, centerY float64
	startAngle       float64

	active bool
}

// BeginSession starts a manipulation session for the given element. Locked
// elements refuse to begin. The handle is only meaningful for resize sessions.
func BeginSession(kind SessionKind, handle Handle, origin Vec2, el *StoryElement, snap SnapConfig, commit CommitFunc) (*Session, error) {
	if el.Locked {
		return nil, ErrElementLocked
	}
	s := &Session{
		kind:    kind,
		handle:  handle,
		origin:  origin,
		initial: el.Style,
		snap:    snap,
		commit:  commit,
		active:  true,
	}
	if kind == SessionRotate {
		s.centerX, s.centerY = el.Style.Bounds().Center()
		s.startAngle = math.Atan2(origin.Y-s.centerY, origin.X-s.centerX)
	}
	return s, nil
}

// Active reports whether the session has not yet ended.
func (s *Session) Active() bool { return s.active }

// End releases the session. Further updates are ignored. End is safe to call
// more than once so all exit paths (pointer up, cancel, teardown) may call it.
func (s *Session) End() { s.active = false }

// Update maps the current pointer position to a style patch, commits it, and
// returns it. Out-of-range deltas are clamped, never rejected.
func (s *Session) Update(p Vec2, mods KeyModifiers) StylePatch {
	if !s.active {
		return StylePatch{}
	}

	var patch StylePatch
	switch s.kind {
	case SessionMove:
		patch = s.move(p)
	case SessionResize:
		patch = s.resize(p, mods)
	case SessionRotate:
		patch = s.rotate(p, mods)
	}

	if s.commit != nil {
		s.commit(patch)
	}
	return patch
}

func (s *Session) move(p Vec2) StylePatch {
	return StylePatch{
		X: ptr(s.snap.Snap(s.initial.X + (p.X - s.origin.X))),
		Y: ptr(s.snap.Snap(s.initial.Y + (p.Y - s.origin.Y))),
	}
}

// resize maps a pointer delta to the subset of {x, y, width, height} its
// handle controls. Corner handles move two edges; edge handles one dimension.
// Width and height clamp to MinElementSize regardless of handle. Holding the
// aspect modifier on a corner handle re-derives height from the initial
// aspect ratio after width is computed.
func (s *Session) resize(p Vec2, mods KeyModifiers) StylePatch {
	dx := p.X - s.origin.X
	dy := p.Y - s.origin.Y

	x := s.initial.X
	y := s.initial.Y
	w := s.initial.Width
	h := s.initial.Height

	var patch StylePatch

	switch s.handle {
	case HandleNW:
		x += dx
		y += dy
		w -= dx
		h -= dy
		patch.X, patch.Y = ptr(x), ptr(y)
	case HandleN:
		y += dy
		h -= dy
		patch.Y = ptr(y)
	case HandleNE:
		y += dy
		w += dx
		h -= dy
		patch.Y = ptr(y)
	case HandleE:
		w += dx
	case HandleSE:
		w += dx
		h += dy
	case HandleS:
		h += dy
	case HandleSW:
		x += dx
		w -= dx
		h += dy
		patch.X = ptr(x)
	case HandleW:
		x += dx
		w -= dx
		patch.X = ptr(x)
	}

	w = math.Max(MinElementSize, w)
	h = math.Max(MinElementSize, h)

	if mods&ModShift != 0 && s.handle.isCorner() && s.initial.Height != 0 {
		aspect := s.initial.Width / s.initial.Height
		if aspect != 0 {
			h = math.Max(MinElementSize, w/aspect)
		}
	}

	patch.Width = ptr(w)
	patch.Height = ptr(h)
	return patch
}

// rotate derives the new rotation from the pointer's bearing around the
// element center, relative to the bearing at Begin. The snap modifier
// quantizes the committed value to the nearest 15° multiple.
func (s *Session) rotate(p Vec2, mods KeyModifiers) StylePatch {
	currentAngle := math.Atan2(p.Y-s.centerY, p.X-s.centerX)
	rotation := s.initial.Rotation + (currentAngle-s.startAngle)*180/math.Pi
	if mods&ModShift != 0 {
		rotation = math.Round(rotation/rotationSnapStep) * rotationSnapStep
	}
	return StylePatch{Rotation: ptr(rotation)}
}
