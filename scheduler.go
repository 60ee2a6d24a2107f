package fable

import (
	"time"
)

// PlayState is the scheduler's primary state. The Transitioning flag is
// orthogonal: a transition can be in flight while Playing or frozen while
// Paused.
type PlayState uint8

const (
	StateIdle PlayState = iota
	StatePlaying
	StatePaused
)

// tickHandle owns the per-frame playback tick. Starting a new tick or
// canceling bumps the generation, so a tick captured under an older
// generation can never fire again. A stale callback referencing a previous
// slide must be inert, not merely wasteful.
type tickHandle struct {
	gen uint64
	fn  func()
}

// Start installs fn as the live tick, replacing and invalidating any
// previous one.
func (h *tickHandle) Start(fn func()) {
	h.gen++
	gen := h.gen
	h.fn = func() {
		if h.gen == gen {
			fn()
		}
	}
}

// Cancel invalidates the live tick.
func (h *tickHandle) Cancel() {
	h.gen++
	h.fn = nil
}

// Run fires the live tick, if any.
func (h *tickHandle) Run() {
	if h.fn != nil {
		h.fn()
	}
}

// transitionState tracks an in-flight two-phase slide handoff.
type transitionState struct {
	active  bool
	phase   TransitionPhase
	spec    TransitionSpec
	start   time.Time
	from    int
	pending int
}

// Scheduler drives wall-clock progress for the current slide and decides
// when to advance, loop, or stop. It is frame-driven: the host calls Tick
// once per frame, and all time comes from the injected clock so tests can
// step it deterministically.
type Scheduler struct {
	story *Story
	now   func() time.Time

	state     PlayState
	index     int
	startTime time.Time
	frozen    float64 // progress held while paused
	pausedAt  time.Time

	tick  tickHandle
	trans transitionState

	// OnSlideChange fires when the slide index actually changes (mid-
	// transition for animated handoffs). OnFinished fires once when a
	// non-looping story runs past its last slide.
	OnSlideChange func(from, to int)
	OnFinished    func()

	finished bool
}

// NewScheduler creates a scheduler for the story, starting at startIndex
// (clamped into range) in the Idle state.
func NewScheduler(story *Story, startIndex int) *Scheduler {
	if startIndex < 0 {
		startIndex = 0
	}
	if startIndex >= len(story.Slides) {
		startIndex = len(story.Slides) - 1
	}
	return &Scheduler{
		story: story,
		now:   time.Now,
		index: startIndex,
	}
}

// SetClock replaces the wall clock. Tests install a fake.
func (s *Scheduler) SetClock(now func() time.Time) { s.now = now }

// State returns the primary playback state.
func (s *Scheduler) State() PlayState { return s.state }

// Index returns the current slide index. Exactly one slide is current at any
// time; during an animated handoff the index changes at the phase boundary.
func (s *Scheduler) Index() int { return s.index }

// Slide returns the current slide.
func (s *Scheduler) Slide() *StorySlide { return s.story.Slides[s.index] }

// Transitioning reports whether a two-phase handoff is in flight.
func (s *Scheduler) Transitioning() bool { return s.trans.active }

// TransitionState returns the live handoff's phase, progress through that
// phase in [0, 1], and spec. Only meaningful while Transitioning.
func (s *Scheduler) TransitionState() (TransitionPhase, float64, TransitionSpec) {
	if !s.trans.active {
		return PhaseIn, 1, TransitionSpec{}
	}
	d := time.Duration(s.trans.spec.Duration) * time.Millisecond
	elapsed := s.transElapsed()
	var t float64
	switch s.trans.phase {
	case PhaseOut:
		t = float64(elapsed) / float64(d)
	case PhaseIn:
		t = float64(elapsed-d) / float64(d)
	}
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return s.trans.phase, t, s.trans.spec
}

func (s *Scheduler) transElapsed() time.Duration {
	ref := s.now()
	if s.state == StatePaused {
		ref = s.pausedAt
	}
	return ref.Sub(s.trans.start)
}

// Elapsed returns the wall-clock time accrued into the current slide. It is
// zero while a handoff is in flight and frozen while paused.
func (s *Scheduler) Elapsed() time.Duration {
	switch {
	case s.trans.active:
		return 0
	case s.state == StatePlaying:
		return s.now().Sub(s.startTime)
	case s.state == StatePaused:
		d := s.slideDuration()
		return time.Duration(s.frozen / 100 * float64(d))
	default:
		return 0
	}
}

// Progress returns the current slide's completion in [0, 100]. It resets to
// 0 on every slide change and accrues nothing during a handoff.
func (s *Scheduler) Progress() float64 {
	switch {
	case s.trans.active:
		return 0
	case s.state == StatePlaying:
		d := s.slideDuration()
		if d <= 0 {
			return 100
		}
		p := float64(s.now().Sub(s.startTime)) / float64(d) * 100
		if p > 100 {
			p = 100
		}
		if p < 0 {
			p = 0
		}
		return p
	case s.state == StatePaused:
		return s.frozen
	default:
		return 0
	}
}

func (s *Scheduler) slideDuration() time.Duration {
	return time.Duration(s.Slide().Duration * float64(time.Second))
}

// Play starts playback from the Idle state. Playing or paused schedulers are
// unaffected; use TogglePause to resume.
func (s *Scheduler) Play() {
	if s.state != StateIdle {
		return
	}
	s.state = StatePlaying
	s.startTime = s.now()
	s.tick.Start(s.step)
}

// Pause cancels the tick and freezes progress.
func (s *Scheduler) Pause() {
	if s.state != StatePlaying {
		return
	}
	s.frozen = s.Progress()
	s.pausedAt = s.now()
	s.state = StatePaused
	s.tick.Cancel()
}

// Resume recomputes the slide start so playback continues from the frozen
// progress rather than restarting. A handoff frozen mid-flight keeps its
// phase position: its start shifts by the paused span.
func (s *Scheduler) Resume() {
	if s.state != StatePaused {
		return
	}
	now := s.now()
	if s.trans.active {
		s.trans.start = s.trans.start.Add(now.Sub(s.pausedAt))
	}
	s.startTime = now.Add(-time.Duration(s.frozen / 100 * float64(s.slideDuration())))
	s.state = StatePlaying
	s.tick.Start(s.step)
}

// TogglePause pauses when playing and resumes when paused.
func (s *Scheduler) TogglePause() {
	switch s.state {
	case StatePlaying:
		s.Pause()
	case StatePaused:
		s.Resume()
	}
}

// Stop cancels the tick and returns to Idle without signaling completion.
func (s *Scheduler) Stop() {
	s.state = StateIdle
	s.trans.active = false
	s.tick.Cancel()
}

// Tick advances the state machine by one frame. The host calls this from its
// game loop; it is a no-op unless playing.
func (s *Scheduler) Tick() {
	if s.state != StatePlaying {
		return
	}
	s.tick.Run()
}

// step is the live tick body. It runs under the handle's current generation:
// pause, slide change, and stop all cancel before a new tick starts.
func (s *Scheduler) step() {
	if s.trans.active {
		s.stepTransition()
		return
	}
	if s.Progress() < 100 {
		return
	}
	if s.index < len(s.story.Slides)-1 {
		s.changeSlide(s.index + 1)
	} else if s.story.Settings.Loop {
		s.changeSlide(0)
	} else {
		s.finish()
	}
}

// stepTransition walks the two-phase handoff clock. The index changes
// exactly once, at the end of the out phase; the Transitioning flag clears
// at twice the configured duration, and only then does progress accrue.
func (s *Scheduler) stepTransition() {
	d := time.Duration(s.trans.spec.Duration) * time.Millisecond
	elapsed := s.transElapsed()

	if s.trans.phase == PhaseOut && elapsed >= d {
		s.trans.phase = PhaseIn
		s.setIndex(s.trans.pending)
	}
	if s.trans.phase == PhaseIn && elapsed >= 2*d {
		s.trans.active = false
		s.startTime = s.now()
		s.tick.Start(s.step)
	}
}

// Next advances to the following slide. Past the last slide it wraps when
// the story loops, otherwise it finishes playback. Navigation never starts
// the clock: only Play moves Idle to Playing.
func (s *Scheduler) Next() {
	if s.trans.active {
		return
	}
	if s.index < len(s.story.Slides)-1 {
		s.changeSlide(s.index + 1)
	} else if s.story.Settings.Loop {
		s.changeSlide(0)
	} else if s.state == StatePlaying {
		s.finish()
	}
}

// Prev goes back one slide. It is unavailable at slide 0 and never wraps.
func (s *Scheduler) Prev() {
	if s.trans.active || s.index == 0 {
		return
	}
	s.changeSlide(s.index - 1)
}

// GoTo jumps directly to the given slide index.
func (s *Scheduler) GoTo(index int) {
	if s.trans.active || index < 0 || index >= len(s.story.Slides) {
		return
	}
	if index == s.index {
		return
	}
	s.changeSlide(index)
}

// changeSlide performs a slide change, honoring the outgoing slide's
// transition spec. Progress resets immediately; for animated handoffs the
// index itself changes only after the out phase. The playback state is never
// promoted: an idle scheduler navigates with an instant swap and stays idle,
// since nothing would drive a handoff clock without a tick.
func (s *Scheduler) changeSlide(target int) {
	spec := s.Slide().Transition
	s.tick.Cancel()

	if spec.Type.Animates() && spec.Duration > 0 && s.state != StateIdle {
		s.trans = transitionState{
			active:  true,
			phase:   PhaseOut,
			spec:    spec,
			start:   s.now(),
			from:    s.index,
			pending: target,
		}
		if s.state == StatePaused {
			// A change requested while paused freezes the handoff at 0.
			s.pausedAt = s.now()
			s.frozen = 0
			return
		}
		s.tick.Start(s.step)
		return
	}

	s.setIndex(target)
	s.startTime = s.now()
	s.frozen = 0
	if s.state == StatePlaying {
		s.tick.Start(s.step)
	}
}

func (s *Scheduler) setIndex(target int) {
	from := s.index
	s.index = target
	if s.OnSlideChange != nil {
		s.OnSlideChange(from, target)
	}
}

// finish ends playback past the final slide: the index stays on the last
// slide, the tick is canceled, and OnFinished fires exactly once.
func (s *Scheduler) finish() {
	s.state = StateIdle
	s.tick.Cancel()
	if s.finished {
		return
	}
	s.finished = true
	if s.OnFinished != nil {
		s.OnFinished()
	}
}
