package fable

import (
	"github.com/tanema/gween/ease"
)

// TransitionType names the visual handoff between the outgoing and incoming
// slide. Unknown values behave like TransitionNone: an instantaneous swap.
type TransitionType string

const (
	TransitionNone     TransitionType = "none"
	TransitionFade     TransitionType = "fade"
	TransitionSlide    TransitionType = "slide"
	TransitionZoom     TransitionType = "zoom"
	TransitionFlip     TransitionType = "flip"
	TransitionCube     TransitionType = "cube"
	TransitionDissolve TransitionType = "dissolve"
	TransitionWipe     TransitionType = "wipe"
)

// Animates reports whether the type plays a two-phase animation at all.
func (t TransitionType) Animates() bool {
	switch t {
	case TransitionFade, TransitionSlide, TransitionZoom, TransitionFlip,
		TransitionCube, TransitionDissolve, TransitionWipe:
		return true
	}
	return false
}

// TransitionPhase is which half of the handoff is playing.
type TransitionPhase uint8

const (
	// PhaseOut animates the outgoing slide from identity to its exit pose.
	PhaseOut TransitionPhase = iota
	// PhaseIn animates the incoming slide from its enter pose to identity.
	PhaseIn
)

// SlideFrame is the pose of one slide container at an instant of a
// transition. Offsets are fractions of the stage size; Scale and Opacity are
// absolute; RotateY is degrees of horizontal fold for flip/cube; ClipFrom and
// ClipTo bound the horizontal visible window for wipe, as stage fractions.
type SlideFrame struct {
	OffsetX  float64
	OffsetY  float64
	Opacity  float64
	Scale    float64
	RotateY  float64
	ClipFrom float64
	ClipTo   float64
}

// identityFrame is a fully visible, unmoved slide.
func identityFrame() SlideFrame {
	return SlideFrame{Opacity: 1, Scale: 1, ClipFrom: 0, ClipTo: 1}
}

// lerp interpolates a..b by t.
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// easeInOut maps linear phase progress through the quadratic in-out curve.
func easeInOut(t float64) float64 {
	return float64(ease.InOutQuad(float32(t), 0, 1, 1))
}

// easeOut maps linear phase progress through the cubic out curve.
func easeOut(t float64) float64 {
	return float64(ease.OutCubic(float32(t), 0, 1, 1))
}

// TransitionFrame evaluates a transition type at phase progress t ∈ [0, 1].
// Each type is a symmetric pair: the exit pose the out phase reaches is
// mirrored by the enter pose the in phase starts from. Types with no
// animation return the identity frame so the swap is instantaneous.
func TransitionFrame(typ TransitionType, phase TransitionPhase, t float64) SlideFrame {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	f := identityFrame()

	switch typ {
	case TransitionFade:
		if phase == PhaseOut {
			f.Opacity = lerp(1, 0, t)
		} else {
			f.Opacity = lerp(0, 1, t)
		}

	case TransitionSlide:
		// Outgoing exits left, incoming enters from the right.
		e := easeInOut(t)
		if phase == PhaseOut {
			f.OffsetX = lerp(0, -1, e)
		} else {
			f.OffsetX = lerp(1, 0, e)
		}

	case TransitionZoom:
		e := easeOut(t)
		if phase == PhaseOut {
			f.Scale = lerp(1, 1.2, e)
			f.Opacity = lerp(1, 0, e)
		} else {
			f.Scale = lerp(0.8, 1, e)
			f.Opacity = lerp(0, 1, e)
		}

	case TransitionFlip:
		e := easeInOut(t)
		if phase == PhaseOut {
			f.RotateY = lerp(0, 90, e)
		} else {
			f.RotateY = lerp(-90, 0, e)
		}

	case TransitionCube:
		e := easeInOut(t)
		if phase == PhaseOut {
			f.OffsetX = lerp(0, -1, e)
			f.RotateY = lerp(0, -90, e)
		} else {
			f.OffsetX = lerp(1, 0, e)
			f.RotateY = lerp(90, 0, e)
		}

	case TransitionDissolve:
		// Like fade but with a softer tail and a slight settle in scale.
		e := easeOut(t)
		if phase == PhaseOut {
			f.Opacity = lerp(1, 0, e)
			f.Scale = lerp(1, 1.04, e)
		} else {
			f.Opacity = lerp(0, 1, e)
			f.Scale = lerp(1.04, 1, e)
		}

	case TransitionWipe:
		// A directional clip-mask sweep, left to right.
		e := easeInOut(t)
		if phase == PhaseOut {
			f.ClipFrom = lerp(0, 1, e)
		} else {
			f.ClipTo = lerp(0, 1, e)
		}
	}

	return f
}
