package fable

// syntheticInput is a single queued input event: either a tap at viewport
// coordinates or a discrete action. Events are consumed one per frame,
// matching the cadence of real input.
type syntheticInput struct {
	tap    bool
	x, y   float64
	action Action
}

// InjectTap queues a synthetic tap at viewport coordinates. Consumed on the
// next Update, identically to a real pointer press.
func (p *Player) InjectTap(x, y float64) {
	p.inject = append(p.inject, syntheticInput{tap: true, x: x, y: y})
}

// InjectAction queues a synthetic playback action (next, prev, pause toggle,
// mute toggle, close), as if the matching key had been pressed.
func (p *Player) InjectAction(action Action) {
	p.inject = append(p.inject, syntheticInput{action: action})
}

// consumeInjected pops one queued event and applies it.
func (p *Player) consumeInjected() {
	if len(p.inject) == 0 {
		return
	}
	evt := p.inject[0]
	copy(p.inject, p.inject[1:])
	p.inject = p.inject[:len(p.inject)-1]

	if evt.tap {
		p.HandleTap(evt.x, evt.y)
		return
	}
	p.Apply(evt.action)
}
