package fable

import (
	"image"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// whitePixel is a 1x1 white image scaled up for solid-color quads. Created
// lazily so headless code paths never touch the graphics device.
var whitePixel *ebiten.Image

func whiteImage() *ebiten.Image {
	if whitePixel == nil {
		whitePixel = ebiten.NewImage(1, 1)
		whitePixel.Fill(color.White)
	}
	return whitePixel
}

func (c Color) toRGBA() color.RGBA {
	return color.RGBA{
		R: uint8(math.Round(clamp01(c.R) * 255)),
		G: uint8(math.Round(clamp01(c.G) * 255)),
		B: uint8(math.Round(clamp01(c.B) * 255)),
		A: uint8(math.Round(clamp01(c.A) * 255)),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Draw renders the current frame into screen: the current slide, or the
// outgoing and incoming slides posed by the transition executor, plus the
// progress bar. Exact element visuals are placeholders: every element kind
// renders as its tinted quad; missing media degrades to the same quad.
func (p *Player) Draw(screen *ebiten.Image) {
	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	p.SetViewport(float64(w), float64(h))
	stage := p.stageRect()

	if p.sched.Transitioning() {
		phase, t, spec := p.sched.TransitionState()
		from, to := p.transitionSlides()
		if phase == PhaseOut {
			// Incoming slide is not on stage yet; outgoing animates to exit.
			p.drawSlide(screen, stage, from, TransitionFrame(spec.Type, PhaseOut, t))
		} else {
			p.drawSlide(screen, stage, to, TransitionFrame(spec.Type, PhaseIn, t))
		}
	} else {
		p.drawSlide(screen, stage, p.sched.Slide(), SlideFrame{Opacity: 1, Scale: 1, ClipTo: 1})
	}

	if p.story.Settings.ShowProgressBar {
		p.drawProgressBar(screen, stage)
	}
}

// transitionSlides resolves the outgoing and incoming slides of the live
// handoff. During the out phase the index still names the outgoing slide;
// during the in phase it already names the incoming one.
func (p *Player) transitionSlides() (from, to *StorySlide) {
	slides := p.story.Slides
	from = slides[clampIndex(p.sched.trans.from, len(slides))]
	to = slides[clampIndex(p.sched.trans.pending, len(slides))]
	return from, to
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// drawSlide renders one slide container posed by frame.
func (p *Player) drawSlide(screen *ebiten.Image, stage Rect, slide *StorySlide, frame SlideFrame) {
	if frame.Opacity <= 0 || frame.ClipTo <= frame.ClipFrom {
		return
	}

	target := screen
	if frame.ClipFrom > 0 || frame.ClipTo < 1 {
		// Wipe: restrict drawing to the visible horizontal window.
		clip := image.Rect(
			int(stage.X+frame.ClipFrom*stage.Width), int(stage.Y),
			int(stage.X+frame.ClipTo*stage.Width), int(stage.Y+stage.Height),
		)
		target = screen.SubImage(clip).(*ebiten.Image)
	}

	offX := frame.OffsetX * stage.Width
	offY := frame.OffsetY * stage.Height

	// Horizontal fold (flip/cube) renders as a width squash toward the
	// stage center, a flat stand-in for the perspective fold.
	foldScale := math.Abs(math.Cos(frame.RotateY * math.Pi / 180))

	pose := func(geo *ebiten.GeoM) {
		cx := stage.X + stage.Width/2 + offX
		cy := stage.Y + stage.Height/2 + offY
		geo.Translate(-StageWidth/2, -StageHeight/2)
		geo.Scale(stage.Width/StageWidth*frame.Scale*foldScale, stage.Height/StageHeight*frame.Scale)
		geo.Translate(cx, cy)
	}

	p.drawBackground(target, slide, pose, frame.Opacity)

	for _, el := range paintOrder(slide.Elements) {
		if !p.ElementVisible(el) {
			continue
		}
		style := p.playbackStyle(el)
		p.drawElement(target, style, pose, frame.Opacity)
	}
}

func (p *Player) drawBackground(target *ebiten.Image, slide *StorySlide, pose func(*ebiten.GeoM), alpha float64) {
	fill := slide.Background.Fill
	if slide.Background.Type == BackgroundGradient {
		// Flat average of the two stops; real gradients are out of scope.
		to := slide.Background.GradientTo
		fill = Color{
			R: (fill.R + to.R) / 2,
			G: (fill.G + to.G) / 2,
			B: (fill.B + to.B) / 2,
			A: (fill.A + to.A) / 2,
		}
	}

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(StageWidth, StageHeight)
	pose(&op.GeoM)
	op.ColorScale.ScaleWithColor(fill.toRGBA())
	op.ColorScale.ScaleAlpha(float32(alpha))
	target.DrawImage(whiteImage(), op)

	if slide.Background.Overlay > 0 {
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(StageWidth, StageHeight)
		pose(&op.GeoM)
		op.ColorScale.ScaleWithColor(color.RGBA{A: 255})
		op.ColorScale.ScaleAlpha(float32(clamp01(slide.Background.Overlay) * alpha))
		target.DrawImage(whiteImage(), op)
	}
}

// drawElement renders an element as a tinted quad rotated about its center.
func (p *Player) drawElement(target *ebiten.Image, style ElementStyle, pose func(*ebiten.GeoM), alpha float64) {
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(style.Width, style.Height)
	op.GeoM.Translate(-style.Width/2, -style.Height/2)
	op.GeoM.Rotate(style.Rotation * math.Pi / 180)
	op.GeoM.Translate(style.X+style.Width/2, style.Y+style.Height/2)
	pose(&op.GeoM)
	op.ColorScale.ScaleWithColor(style.Fill.toRGBA())
	op.ColorScale.ScaleAlpha(float32(clamp01(style.Opacity) * alpha))
	target.DrawImage(whiteImage(), op)
}

// drawProgressBar renders one segment per slide along the stage's top edge:
// filled for past slides, proportional for the current one.
func (p *Player) drawProgressBar(screen *ebiten.Image, stage Rect) {
	const barHeight = 3.0
	const gap = 4.0
	n := len(p.story.Slides)
	segW := (stage.Width - gap*float64(n-1)) / float64(n)
	if segW <= 0 {
		return
	}

	index := p.sched.Index()
	progress := p.sched.Progress() / 100

	for i := 0; i < n; i++ {
		x := stage.X + float64(i)*(segW+gap)

		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(segW, barHeight)
		op.GeoM.Translate(x, stage.Y+6)
		op.ColorScale.ScaleWithColor(color.RGBA{R: 255, G: 255, B: 255, A: 90})
		screen.DrawImage(whiteImage(), op)

		var fill float64
		switch {
		case i < index:
			fill = 1
		case i == index:
			fill = progress
		}
		if fill > 0 {
			op := &ebiten.DrawImageOptions{}
			op.GeoM.Scale(segW*fill, barHeight)
			op.GeoM.Translate(x, stage.Y+6)
			op.ColorScale.ScaleWithColor(color.RGBA{R: 255, G: 255, B: 255, A: 255})
			screen.DrawImage(whiteImage(), op)
		}
	}
}
