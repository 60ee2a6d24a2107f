package fable

import (
	"errors"
	"fmt"
	"math"
)

// Handle grip geometry, in canvas pixels. The rotate grip floats above the
// element's top-center.
const (
	handleHitRadius    = 8.0
	rotateHandleOffset = 24.0
)

// duplicateOffset is the position nudge applied to duplicated elements so the
// copy does not hide its source.
const duplicateOffset = 20.0

var (
	// ErrElementNotFound is returned for operations naming an unknown element.
	ErrElementNotFound = errors.New("element not found")
	// ErrSessionActive is returned when a second session is started while one
	// is still active. Sessions are exclusive per editor.
	ErrSessionActive = errors.New("geometry session already active")
	// ErrEditingDisabled is returned for edit operations while playback runs.
	ErrEditingDisabled = errors.New("editing is disabled during playback")
)

// Editor is the selection and manipulation controller: the only writer of
// slide and element data while editing. Every mutation replaces the owning
// object graph rather than updating it in place, so an external history
// collaborator can snapshot Story() before and after at pointer cost.
type Editor struct {
	story    *Story
	current  int
	selected []string

	// Exclusive active-session state.
	session   *Session
	sessionEl string

	snap     SnapConfig
	disabled bool

	// OnChange, when set, fires after every committed mutation with the new
	// story graph. This is the hook external undo/redo snapshots from.
	OnChange func(*Story)
}

// NewEditor creates an editor over the given story. The story must have at
// least one slide.
func NewEditor(story *Story) (*Editor, error) {
	if err := story.Validate(); err != nil {
		return nil, fmt.Errorf("new editor: %w", err)
	}
	return &Editor{story: story, snap: SnapConfig{Enabled: true, GridSize: 10}}, nil
}

// Story returns the current committed story graph.
func (e *Editor) Story() *Story { return e.story }

// SetSnap configures grid snapping for move sessions.
func (e *Editor) SetSnap(cfg SnapConfig) { e.snap = cfg }

// SetDisabled toggles edit lockout. The playback host disables editing while
// a player owns the story and re-enables it on close.
func (e *Editor) SetDisabled(disabled bool) {
	e.disabled = disabled
	if disabled {
		e.EndSession()
	}
}

// CurrentSlideIndex returns the index of the slide being edited.
func (e *Editor) CurrentSlideIndex() int { return e.current }

// SetCurrentSlide switches the slide being edited, clearing the selection.
func (e *Editor) SetCurrentSlide(i int) error {
	if i < 0 || i >= len(e.story.Slides) {
		return fmt.Errorf("set current slide: index %d out of range [0,%d)", i, len(e.story.Slides))
	}
	e.EndSession()
	e.current = i
	e.selected = nil
	return nil
}

// CurrentSlide returns the slide being edited.
func (e *Editor) CurrentSlide() *StorySlide { return e.story.Slides[e.current] }

// --- Selection ---

// Select adds id to the selection, or replaces it when multi is false.
// Selecting an unknown id clears the selection.
func (e *Editor) Select(id string, multi bool) {
	if e.CurrentSlide().ElementByID(id) == nil {
		e.selected = nil
		return
	}
	if !multi {
		e.selected = []string{id}
		return
	}
	for _, s := range e.selected {
		if s == id {
			return
		}
	}
	e.selected = append(e.selected, id)
}

// Deselect clears the selection.
func (e *Editor) Deselect() { e.selected = nil }

// Selection returns the selected element IDs in selection order.
func (e *Editor) Selection() []string { return e.selected }

// SelectedElement returns the primary (first) selected element, or nil.
func (e *Editor) SelectedElement() *StoryElement {
	if len(e.selected) == 0 {
		return nil
	}
	return e.CurrentSlide().ElementByID(e.selected[0])
}

// --- Mutations ---

// mutateElement clones the current slide, applies fn to the named element's
// clone, and commits the new graph. The pre-mutation graph is never touched.
func (e *Editor) mutateElement(id string, fn func(*StoryElement)) error {
	if e.disabled {
		return ErrEditingDisabled
	}
	slide := e.CurrentSlide()
	if slide.ElementByID(id) == nil {
		return fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	next := slide.Clone()
	fn(next.ElementByID(id))
	e.commitSlide(next)
	return nil
}

func (e *Editor) commitSlide(slide *StorySlide) {
	e.story = e.story.withSlide(e.current, slide)
	if e.OnChange != nil {
		e.OnChange(e.story)
	}
}

// UpdateElement applies a partial style update to the named element.
func (e *Editor) UpdateElement(id string, patch StylePatch) error {
	return e.mutateElement(id, func(el *StoryElement) {
		patch.ApplyTo(&el.Style)
	})
}

// SlidePatch is a partial slide update. Nil fields are left untouched.
type SlidePatch struct {
	Duration   *float64
	Background *Background
	Transition *TransitionSpec
	Audio      **AudioClip // set to new(..) pointing at nil to clear audio
}

// UpdateSlide applies a partial update to the slide with the given ID.
func (e *Editor) UpdateSlide(id string, patch SlidePatch) error {
	if e.disabled {
		return ErrEditingDisabled
	}
	for i, s := range e.story.Slides {
		if s.ID != id {
			continue
		}
		next := s.Clone()
		if patch.Duration != nil {
			next.Duration = *patch.Duration
		}
		if patch.Background != nil {
			next.Background = *patch.Background
		}
		if patch.Transition != nil {
			next.Transition = *patch.Transition
		}
		if patch.Audio != nil {
			next.Audio = *patch.Audio
		}
		e.story = e.story.withSlide(i, next)
		if e.OnChange != nil {
			e.OnChange(e.story)
		}
		return nil
	}
	return fmt.Errorf("update slide: no slide %s", id)
}

// AddElement appends an element to the current slide and selects it.
func (e *Editor) AddElement(el *StoryElement) error {
	if e.disabled {
		return ErrEditingDisabled
	}
	next := e.CurrentSlide().Clone()
	next.Elements = append(next.Elements, el)
	e.commitSlide(next)
	e.selected = []string{el.ID}
	return nil
}

// DeleteElement removes the named element from the current slide.
func (e *Editor) DeleteElement(id string) error {
	if e.disabled {
		return ErrEditingDisabled
	}
	slide := e.CurrentSlide()
	if slide.ElementByID(id) == nil {
		return fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	if e.sessionEl == id {
		e.EndSession()
	}
	next := slide.Clone()
	for i, el := range next.Elements {
		if el.ID == id {
			next.Elements = append(next.Elements[:i], next.Elements[i+1:]...)
			break
		}
	}
	e.commitSlide(next)
	e.selected = removeID(e.selected, id)
	return nil
}

func removeID(ids []string, id string) []string {
	for i, s := range ids {
		if s == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// DuplicateElement clones the named element with a fresh ID and a +20/+20
// position offset, appends it, and selects the copy.
func (e *Editor) DuplicateElement(id string) (*StoryElement, error) {
	if e.disabled {
		return nil, ErrEditingDisabled
	}
	src := e.CurrentSlide().ElementByID(id)
	if src == nil {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	dup := src.Clone()
	dup.ID = nextElementID()
	dup.Style.X += duplicateOffset
	dup.Style.Y += duplicateOffset
	if err := e.AddElement(dup); err != nil {
		return nil, err
	}
	return dup, nil
}

// ReorderElement moves the named element to the given index in the slide's
// paint order. The index is clamped into range.
func (e *Editor) ReorderElement(id string, index int) error {
	if e.disabled {
		return ErrEditingDisabled
	}
	slide := e.CurrentSlide()
	from := -1
	for i, el := range slide.Elements {
		if el.ID == id {
			from = i
			break
		}
	}
	if from < 0 {
		return fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	if index < 0 {
		index = 0
	}
	if index >= len(slide.Elements) {
		index = len(slide.Elements) - 1
	}
	next := slide.Clone()
	el := next.Elements[from]
	next.Elements = append(next.Elements[:from], next.Elements[from+1:]...)
	next.Elements = append(next.Elements[:index], append([]*StoryElement{el}, next.Elements[index:]...)...)
	e.commitSlide(next)
	return nil
}

// ToggleLock flips the named element's lock flag. Locking an element while a
// session manipulates it ends the session.
func (e *Editor) ToggleLock(id string) error {
	err := e.mutateElement(id, func(el *StoryElement) {
		el.Locked = !el.Locked
	})
	if err == nil && e.sessionEl == id {
		e.EndSession()
	}
	return err
}

// ToggleVisibility flips the named element's visible flag.
func (e *Editor) ToggleVisibility(id string) error {
	return e.mutateElement(id, func(el *StoryElement) {
		el.Visible = !el.Visible
	})
}

// --- Sessions ---

// BeginMove starts a move session for the named element.
func (e *Editor) BeginMove(id string, origin Vec2) error {
	return e.beginSession(SessionMove, HandleNone, id, origin)
}

// BeginResize starts a resize session on the given handle.
func (e *Editor) BeginResize(id string, handle Handle, origin Vec2) error {
	return e.beginSession(SessionResize, handle, id, origin)
}

// BeginRotate starts a rotate session for the named element.
func (e *Editor) BeginRotate(id string, origin Vec2) error {
	return e.beginSession(SessionRotate, HandleNone, id, origin)
}

func (e *Editor) beginSession(kind SessionKind, handle Handle, id string, origin Vec2) error {
	if e.disabled {
		return ErrEditingDisabled
	}
	if e.session != nil && e.session.Active() {
		return ErrSessionActive
	}
	el := e.CurrentSlide().ElementByID(id)
	if el == nil {
		return fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	session, err := BeginSession(kind, handle, origin, el, e.snap, func(patch StylePatch) {
		// Commit callback: each update is an immediate write into the model.
		_ = e.UpdateElement(id, patch)
	})
	if err != nil {
		return err
	}
	e.session = session
	e.sessionEl = id
	return nil
}

// UpdateSession forwards the pointer position to the active session, if any.
func (e *Editor) UpdateSession(p Vec2, mods KeyModifiers) {
	if e.session != nil && e.session.Active() {
		e.session.Update(p, mods)
	}
}

// EndSession releases the active session. Called from pointer up, pointer
// cancel, and editor teardown. This is the only release path, and it is
// idempotent.
func (e *Editor) EndSession() {
	if e.session != nil {
		e.session.End()
		e.session = nil
		e.sessionEl = ""
	}
}

// ActiveSession reports whether a manipulation drag is in progress.
func (e *Editor) ActiveSession() bool {
	return e.session != nil && e.session.Active()
}

// --- Pointer flow ---

// PointerDown routes a press to handle grips, the selected element, or a hit
// element, beginning the matching session. A press on empty canvas clears the
// selection.
func (e *Editor) PointerDown(p Vec2, mods KeyModifiers) {
	if e.disabled {
		return
	}
	if sel := e.SelectedElement(); sel != nil {
		if h := handleAt(sel.Style, p); h != HandleNone {
			if h == HandleRotate {
				_ = e.BeginRotate(sel.ID, p)
			} else {
				_ = e.BeginResize(sel.ID, h, p)
			}
			return
		}
	}
	if el := e.HitTest(p); el != nil {
		e.Select(el.ID, mods&ModShift != 0)
		_ = e.BeginMove(el.ID, p)
		return
	}
	e.Deselect()
}

// PointerMove forwards pointer motion to the active session.
func (e *Editor) PointerMove(p Vec2, mods KeyModifiers) {
	e.UpdateSession(p, mods)
}

// PointerUp ends the active session. Also used for pointer cancel.
func (e *Editor) PointerUp() {
	e.EndSession()
}

// HitTest finds the topmost visible element at p in the current slide,
// walking reverse paint order refined by ZIndex. Rotated elements are tested
// in their own local space.
func (e *Editor) HitTest(p Vec2) *StoryElement {
	ordered := paintOrder(e.CurrentSlide().Elements)
	for i := len(ordered) - 1; i >= 0; i-- {
		el := ordered[i]
		if !el.Visible {
			continue
		}
		if elementContains(el.Style, p) {
			return el
		}
	}
	return nil
}

// elementContains tests p against the element's bounds in local space:
// the point is rotated about the element center by the negated rotation,
// then checked against the axis-aligned bounds.
func elementContains(style ElementStyle, p Vec2) bool {
	lx, ly := toLocal(style, p)
	return style.Bounds().Contains(lx, ly)
}

func toLocal(style ElementStyle, p Vec2) (float64, float64) {
	cx, cy := style.Bounds().Center()
	rad := -style.Rotation * math.Pi / 180
	sin, cos := math.Sincos(rad)
	dx := p.X - cx
	dy := p.Y - cy
	return cx + dx*cos - dy*sin, cy + dx*sin + dy*cos
}

// handleAnchors returns the unrotated grip anchor points indexed by Handle.
func handleAnchors(b Rect) [HandleRotate + 1]Vec2 {
	var a [HandleRotate + 1]Vec2
	midX := b.X + b.Width/2
	midY := b.Y + b.Height/2
	a[HandleNW] = Vec2{b.X, b.Y}
	a[HandleN] = Vec2{midX, b.Y}
	a[HandleNE] = Vec2{b.X + b.Width, b.Y}
	a[HandleE] = Vec2{b.X + b.Width, midY}
	a[HandleSE] = Vec2{b.X + b.Width, b.Y + b.Height}
	a[HandleS] = Vec2{midX, b.Y + b.Height}
	a[HandleSW] = Vec2{b.X, b.Y + b.Height}
	a[HandleW] = Vec2{b.X, midY}
	a[HandleRotate] = Vec2{midX, b.Y - rotateHandleOffset}
	return a
}

// handleAt finds the grip under p for an element with the given style, or
// HandleNone. Grips rotate with the element, so the pointer is first mapped
// into local space.
func handleAt(style ElementStyle, p Vec2) Handle {
	lx, ly := toLocal(style, p)
	anchors := handleAnchors(style.Bounds())
	for h := HandleNW; h <= HandleRotate; h++ {
		dx := lx - anchors[h].X
		dy := ly - anchors[h].Y
		if dx*dx+dy*dy <= handleHitRadius*handleHitRadius {
			return h
		}
	}
	return HandleNone
}

// paintOrder returns elements in slice order refined by ZIndex, stable so
// equal ZIndex values keep authoring order.
func paintOrder(elements []*StoryElement) []*StoryElement {
	ordered := make([]*StoryElement, len(elements))
	copy(ordered, elements)
	// Insertion sort: element counts per slide are small and the input is
	// usually already ordered.
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j-1].Style.ZIndex > ordered[j].Style.ZIndex; j-- {
			ordered[j-1], ordered[j] = ordered[j], ordered[j-1]
		}
	}
	return ordered
}
