package fable

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// defaultEntranceDuration is used when an AnimationSpec omits one.
const defaultEntranceDuration = 0.4

// TweenGroup animates up to 2 float64 fields of an ElementStyle
// simultaneously. Call Update(dt) each frame; values are applied directly to
// the style. Unknown animation names produce a group that is already Done, so
// the element appears in its final state instantly.
type TweenGroup struct {
	tweens [2]*gween.Tween
	count  int
	fields [2]*float64
	Done   bool
}

// Update advances all tweens by dt seconds and writes values to the target
// fields.
func (g *TweenGroup) Update(dt float32) {
	if g.Done {
		return
	}
	allDone := true
	for i := 0; i < g.count; i++ {
		val, finished := g.tweens[i].Update(dt)
		*g.fields[i] = float64(val)
		if !finished {
			allDone = false
		}
	}
	g.Done = allDone
}

// EntranceTween builds the entrance animation for an element. The style is
// mutated to the animation's starting pose immediately; Update walks it to
// the authored pose. Nil is returned when the element has no entrance.
func EntranceTween(style *ElementStyle, spec *AnimationSpec) *TweenGroup {
	if spec == nil || spec.Entrance == "" {
		return nil
	}
	d := float32(spec.EntranceDuration)
	if d <= 0 {
		d = defaultEntranceDuration
	}

	g := &TweenGroup{}
	switch spec.Entrance {
	case "fade":
		g.tweens[0] = gween.New(0, float32(style.Opacity), d, ease.OutQuad)
		g.fields[0] = &style.Opacity
		g.count = 1
	case "slide-up":
		g.tweens[0] = gween.New(float32(style.Y+40), float32(style.Y), d, ease.OutCubic)
		g.fields[0] = &style.Y
		g.tweens[1] = gween.New(0, float32(style.Opacity), d, ease.OutQuad)
		g.fields[1] = &style.Opacity
		g.count = 2
	case "slide-down":
		g.tweens[0] = gween.New(float32(style.Y-40), float32(style.Y), d, ease.OutCubic)
		g.fields[0] = &style.Y
		g.tweens[1] = gween.New(0, float32(style.Opacity), d, ease.OutQuad)
		g.fields[1] = &style.Opacity
		g.count = 2
	case "zoom":
		g.tweens[0] = gween.New(float32(style.Width*0.6), float32(style.Width), d, ease.OutBack)
		g.fields[0] = &style.Width
		g.tweens[1] = gween.New(float32(style.Height*0.6), float32(style.Height), d, ease.OutBack)
		g.fields[1] = &style.Height
		g.count = 2
	default:
		// Unknown entrance: instant final state.
		g.Done = true
		return g
	}

	// Apply the starting pose now so the first rendered frame matches.
	g.Update(0)
	return g
}

// LoopTween animates a style field back and forth indefinitely by rebuilding
// its tween at each turnaround. Used for the pulse and float loop animations.
type LoopTween struct {
	field    *float64
	from, to float32
	duration float32
	fn       ease.TweenFunc
	tween    *gween.Tween
}

// Update advances the loop by dt seconds.
func (l *LoopTween) Update(dt float32) {
	if l == nil || l.tween == nil {
		return
	}
	val, finished := l.tween.Update(dt)
	*l.field = float64(val)
	if finished {
		l.from, l.to = l.to, l.from
		l.tween = gween.New(l.from, l.to, l.duration, l.fn)
	}
}

// LoopTweenFor builds the loop animation for an element, or nil when it has
// none. Unknown loop names yield nil (no motion, no error).
func LoopTweenFor(style *ElementStyle, spec *AnimationSpec) *LoopTween {
	if spec == nil || spec.Loop == "" {
		return nil
	}
	switch spec.Loop {
	case "pulse":
		l := &LoopTween{
			field:    &style.Opacity,
			from:     float32(style.Opacity),
			to:       float32(style.Opacity * 0.55),
			duration: 0.8,
			fn:       ease.InOutSine,
		}
		l.tween = gween.New(l.from, l.to, l.duration, l.fn)
		return l
	case "float":
		l := &LoopTween{
			field:    &style.Y,
			from:     float32(style.Y),
			to:       float32(style.Y - 10),
			duration: 1.2,
			fn:       ease.InOutSine,
		}
		l.tween = gween.New(l.from, l.to, l.duration, l.fn)
		return l
	}
	return nil
}
