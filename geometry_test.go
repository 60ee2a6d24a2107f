package fable

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func assertNear(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > epsilon {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func testElement(x, y, w, h float64) *StoryElement {
	el := NewShapeElement("rectangle")
	el.Style.X = x
	el.Style.Y = y
	el.Style.Width = w
	el.Style.Height = h
	return el
}

func noSnap() SnapConfig { return SnapConfig{} }

// --- Move ---

func TestMoveSessionAppliesDelta(t *testing.T) {
	el := testElement(50, 60, 100, 80)
	s, err := BeginSession(SessionMove, HandleNone, Vec2{200, 200}, el, noSnap(), nil)
	if err != nil {
		t.Fatalf("BeginSession: %v", err)
	}
	patch := s.Update(Vec2{230, 215}, 0)
	assertNear(t, "x", *patch.X, 80)
	assertNear(t, "y", *patch.Y, 75)
}

func TestMoveSessionSnapsToGrid(t *testing.T) {
	el := testElement(0, 0, 100, 80)
	s, _ := BeginSession(SessionMove, HandleNone, Vec2{0, 0}, el, SnapConfig{Enabled: true, GridSize: 10}, nil)
	patch := s.Update(Vec2{23, 37}, 0)
	assertNear(t, "x", *patch.X, 20)
	assertNear(t, "y", *patch.Y, 40)
}

func TestMoveSessionWithoutSnapIsIdentity(t *testing.T) {
	el := testElement(0, 0, 100, 80)
	s, _ := BeginSession(SessionMove, HandleNone, Vec2{0, 0}, el, SnapConfig{Enabled: false, GridSize: 10}, nil)
	patch := s.Update(Vec2{23, 37}, 0)
	assertNear(t, "x", *patch.X, 23)
	assertNear(t, "y", *patch.Y, 37)
}

// --- Resize ---

// Scenario: se handle, delta (30, 20) grows the element without moving it.
func TestResizeSoutheastGrowsInPlace(t *testing.T) {
	el := testElement(0, 0, 100, 80)
	s, _ := BeginSession(SessionResize, HandleSE, Vec2{100, 80}, el, noSnap(), nil)
	patch := s.Update(Vec2{130, 100}, 0)
	if patch.X != nil || patch.Y != nil {
		t.Errorf("se resize should not move the element, got x=%v y=%v", patch.X, patch.Y)
	}
	assertNear(t, "width", *patch.Width, 130)
	assertNear(t, "height", *patch.Height, 100)
}

// Scenario: nw handle, delta (30, 20) moves the origin and shrinks the size.
func TestResizeNorthwestMovesAndShrinks(t *testing.T) {
	el := testElement(0, 0, 100, 80)
	s, _ := BeginSession(SessionResize, HandleNW, Vec2{0, 0}, el, noSnap(), nil)
	patch := s.Update(Vec2{30, 20}, 0)
	assertNear(t, "x", *patch.X, 30)
	assertNear(t, "y", *patch.Y, 20)
	assertNear(t, "width", *patch.Width, 70)
	assertNear(t, "height", *patch.Height, 60)
}

func TestResizeEdgeHandlesSingleDimension(t *testing.T) {
	tests := []struct {
		name    string
		handle  Handle
		pointer Vec2
		wantW   float64
		wantH   float64
		wantX   *float64
		wantY   *float64
	}{
		{"east grows width", HandleE, Vec2{25, 0}, 125, 80, nil, nil},
		{"south grows height", HandleS, Vec2{0, 30}, 100, 110, nil, nil},
		{"west moves x", HandleW, Vec2{10, 0}, 90, 80, ptr(10.0), nil},
		{"north moves y", HandleN, Vec2{0, 10}, 100, 70, nil, ptr(10.0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el := testElement(0, 0, 100, 80)
			s, _ := BeginSession(SessionResize, tt.handle, Vec2{0, 0}, el, noSnap(), nil)
			patch := s.Update(tt.pointer, 0)
			assertNear(t, "width", *patch.Width, tt.wantW)
			assertNear(t, "height", *patch.Height, tt.wantH)
			if tt.wantX != nil {
				assertNear(t, "x", *patch.X, *tt.wantX)
			} else if patch.X != nil {
				t.Errorf("x = %v, want unchanged", *patch.X)
			}
			if tt.wantY != nil {
				assertNear(t, "y", *patch.Y, *tt.wantY)
			} else if patch.Y != nil {
				t.Errorf("y = %v, want unchanged", *patch.Y)
			}
		})
	}
}

// Resize clamp property: any handle, any delta, the result never drops below
// the minimum size.
func TestResizeClampProperty(t *testing.T) {
	handles := []Handle{HandleNW, HandleN, HandleNE, HandleE, HandleSE, HandleS, HandleSW, HandleW}
	deltas := []Vec2{
		{-500, -500}, {500, 500}, {-500, 500}, {500, -500},
		{-95, 0}, {0, -75}, {-99.5, -79.5}, {0, 0},
	}
	for _, h := range handles {
		for _, d := range deltas {
			el := testElement(0, 0, 100, 80)
			s, _ := BeginSession(SessionResize, h, Vec2{0, 0}, el, noSnap(), nil)
			patch := s.Update(Vec2{d.X, d.Y}, 0)
			if *patch.Width < MinElementSize {
				t.Errorf("handle %d delta %v: width %v < %v", h, d, *patch.Width, MinElementSize)
			}
			if *patch.Height < MinElementSize {
				t.Errorf("handle %d delta %v: height %v < %v", h, d, *patch.Height, MinElementSize)
			}
		}
	}
}

func TestResizeAspectLockOnCorner(t *testing.T) {
	el := testElement(0, 0, 100, 50) // aspect 2:1
	s, _ := BeginSession(SessionResize, HandleSE, Vec2{100, 50}, el, noSnap(), nil)
	patch := s.Update(Vec2{160, 55}, ModShift)
	assertNear(t, "width", *patch.Width, 160)
	assertNear(t, "height", *patch.Height, 80)
}

func TestResizeAspectLockIgnoredOnEdge(t *testing.T) {
	el := testElement(0, 0, 100, 50)
	s, _ := BeginSession(SessionResize, HandleE, Vec2{100, 0}, el, noSnap(), nil)
	patch := s.Update(Vec2{160, 0}, ModShift)
	assertNear(t, "width", *patch.Width, 160)
	assertNear(t, "height", *patch.Height, 50)
}

// --- Rotate ---

func TestRotateFollowsPointerBearing(t *testing.T) {
	el := testElement(0, 0, 100, 100) // center (50, 50)
	// Start due east of center, drag to due south: +90°.
	s, _ := BeginSession(SessionRotate, HandleNone, Vec2{150, 50}, el, noSnap(), nil)
	patch := s.Update(Vec2{50, 150}, 0)
	assertNear(t, "rotation", *patch.Rotation, 90)
}

func TestRotateAccumulatesOnInitialRotation(t *testing.T) {
	el := testElement(0, 0, 100, 100)
	el.Style.Rotation = 350
	s, _ := BeginSession(SessionRotate, HandleNone, Vec2{150, 50}, el, noSnap(), nil)
	patch := s.Update(Vec2{50, 150}, 0)
	// Unbounded by design: 350 + 90, not (350+90) mod 360.
	assertNear(t, "rotation", *patch.Rotation, 440)
}

// Scenario: a raw rotation of 53° with the snap modifier commits 60°, the
// nearest 15° multiple.
func TestRotateSnapsToAngleStep(t *testing.T) {
	el := testElement(0, 0, 100, 100)
	rad := 53 * math.Pi / 180
	p := Vec2{50 + 100*math.Cos(rad), 50 + 100*math.Sin(rad)}
	s, _ := BeginSession(SessionRotate, HandleNone, Vec2{150, 50}, el, noSnap(), nil)
	patch := s.Update(p, ModShift)
	assertNear(t, "rotation", *patch.Rotation, 60)
}

// Rotation pivot property: rotating never changes the bounding-box center.
func TestRotateKeepsCenterFixed(t *testing.T) {
	el := testElement(20, 30, 120, 60)
	cx0, cy0 := el.Style.Bounds().Center()
	s, _ := BeginSession(SessionRotate, HandleNone, Vec2{200, 60}, el, noSnap(), func(p StylePatch) {
		p.ApplyTo(&el.Style)
	})
	for _, target := range []Vec2{{200, 200}, {20, 200}, {20, 20}, {300, 45}} {
		s.Update(target, 0)
		cx, cy := el.Style.Bounds().Center()
		assertNear(t, "center x", cx, cx0)
		assertNear(t, "center y", cy, cy0)
	}
}

// --- Session lifecycle ---

func TestLockedElementRefusesSession(t *testing.T) {
	el := testElement(0, 0, 100, 80)
	el.Locked = true
	for _, kind := range []SessionKind{SessionMove, SessionResize, SessionRotate} {
		if _, err := BeginSession(kind, HandleSE, Vec2{}, el, noSnap(), nil); err != ErrElementLocked {
			t.Errorf("kind %d: err = %v, want ErrElementLocked", kind, err)
		}
	}
}

func TestSessionCommitsEveryUpdate(t *testing.T) {
	el := testElement(0, 0, 100, 80)
	var commits int
	s, _ := BeginSession(SessionMove, HandleNone, Vec2{0, 0}, el, noSnap(), func(StylePatch) {
		commits++
	})
	s.Update(Vec2{1, 1}, 0)
	s.Update(Vec2{2, 2}, 0)
	s.Update(Vec2{3, 3}, 0)
	if commits != 3 {
		t.Errorf("commits = %d, want 3", commits)
	}
}

func TestEndedSessionIgnoresUpdates(t *testing.T) {
	el := testElement(0, 0, 100, 80)
	var commits int
	s, _ := BeginSession(SessionMove, HandleNone, Vec2{0, 0}, el, noSnap(), func(StylePatch) {
		commits++
	})
	s.End()
	s.End() // idempotent
	if patch := s.Update(Vec2{50, 50}, 0); patch.X != nil {
		t.Error("ended session should return an empty patch")
	}
	if commits != 0 {
		t.Errorf("commits = %d, want 0", commits)
	}
}

// Updates are stateless over the initial style: the same pointer position
// always produces the same patch, so repeated moves cannot compound.
func TestSessionUpdatesAreIdempotent(t *testing.T) {
	el := testElement(10, 10, 100, 80)
	s, _ := BeginSession(SessionMove, HandleNone, Vec2{0, 0}, el, noSnap(), nil)
	first := s.Update(Vec2{40, 25}, 0)
	second := s.Update(Vec2{40, 25}, 0)
	assertNear(t, "x", *second.X, *first.X)
	assertNear(t, "y", *second.Y, *first.Y)
}
