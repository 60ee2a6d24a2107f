package fable

import (
	"math"
	"testing"
)

// Tween values pass through float32, so compare loosely.
const tweenEpsilon = 1e-4

func assertTweenNear(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > tweenEpsilon {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func TestEntranceFadeStartsInvisible(t *testing.T) {
	style := ElementStyle{X: 10, Y: 20, Width: 100, Height: 50, Opacity: 1}
	g := EntranceTween(&style, &AnimationSpec{Entrance: "fade", EntranceDuration: 0.5})
	if g == nil {
		t.Fatal("fade entrance should produce a tween group")
	}

	assertTweenNear(t, "starting opacity", style.Opacity, 0)

	g.Update(0.5)
	if !g.Done {
		t.Error("entrance not done after its full duration")
	}
	assertTweenNear(t, "final opacity", style.Opacity, 1)
}

func TestEntranceSlideUpRestoresAuthoredY(t *testing.T) {
	style := ElementStyle{Y: 200, Opacity: 1}
	g := EntranceTween(&style, &AnimationSpec{Entrance: "slide-up"})
	if g == nil {
		t.Fatal("slide-up entrance should produce a tween group")
	}

	assertTweenNear(t, "starting y", style.Y, 240)
	assertTweenNear(t, "starting opacity", style.Opacity, 0)

	for i := 0; i < 60; i++ {
		g.Update(1.0 / 60.0)
	}
	if !g.Done {
		t.Error("entrance not done after a full second")
	}
	assertTweenNear(t, "final y", style.Y, 200)
	assertTweenNear(t, "final opacity", style.Opacity, 1)
}

func TestEntranceZoomGrowsToAuthoredSize(t *testing.T) {
	style := ElementStyle{Width: 100, Height: 50, Opacity: 1}
	g := EntranceTween(&style, &AnimationSpec{Entrance: "zoom", EntranceDuration: 0.3})

	assertTweenNear(t, "starting width", style.Width, 60)
	assertTweenNear(t, "starting height", style.Height, 30)

	g.Update(0.3)
	assertTweenNear(t, "final width", style.Width, 100)
	assertTweenNear(t, "final height", style.Height, 50)
}

func TestEntranceUnknownNameIsInstant(t *testing.T) {
	style := ElementStyle{Opacity: 1}
	g := EntranceTween(&style, &AnimationSpec{Entrance: "teleport"})
	if g == nil || !g.Done {
		t.Fatal("unknown entrance should yield an already-done group")
	}
	assertTweenNear(t, "opacity untouched", style.Opacity, 1)
}

func TestEntranceAbsentYieldsNil(t *testing.T) {
	style := ElementStyle{Opacity: 1}
	if g := EntranceTween(&style, nil); g != nil {
		t.Error("nil spec should yield no entrance")
	}
	if g := EntranceTween(&style, &AnimationSpec{Loop: "pulse"}); g != nil {
		t.Error("loop-only spec should yield no entrance")
	}
}

func TestLoopPulseOscillatesOpacity(t *testing.T) {
	style := ElementStyle{Opacity: 1}
	l := LoopTweenFor(&style, &AnimationSpec{Loop: "pulse"})
	if l == nil {
		t.Fatal("pulse should produce a loop tween")
	}

	l.Update(0.8)
	assertTweenNear(t, "opacity at trough", style.Opacity, 0.55)

	l.Update(0.8)
	assertTweenNear(t, "opacity back at peak", style.Opacity, 1)
}

func TestLoopFloatReturnsToAuthoredY(t *testing.T) {
	style := ElementStyle{Y: 300}
	l := LoopTweenFor(&style, &AnimationSpec{Loop: "float"})
	if l == nil {
		t.Fatal("float should produce a loop tween")
	}

	l.Update(1.2)
	assertTweenNear(t, "y at top", style.Y, 290)

	l.Update(1.2)
	assertTweenNear(t, "y back at rest", style.Y, 300)
}

func TestLoopTweenNilReceiverIsSafe(t *testing.T) {
	style := ElementStyle{Y: 10}
	var l *LoopTween
	l.Update(0.1) // must not panic
	if g := LoopTweenFor(&style, &AnimationSpec{Loop: "wobble"}); g != nil {
		t.Error("unknown loop name should yield nil")
	}
}
