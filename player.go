package fable

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// PollState is a poll element's vote lifecycle during playback.
type PollState uint8

const (
	PollIdle PollState = iota
	PollSending
	PollVoted
	PollError
)

// voteResult carries the outcome of an async vote submission back onto the
// frame loop.
type voteResult struct {
	elementID string
	err       error
}

// Vote is the payload POSTed when a poll option is tapped.
type Vote struct {
	StoryID     string `json:"storyId"`
	SlideID     string `json:"slideId"`
	ElementID   string `json:"elementId"`
	OptionIndex int    `json:"optionIndex"`
	OptionLabel string `json:"optionLabel"`
	Question    string `json:"question"`
}

// PlayerOptions configures a Player. The zero value is usable: playback
// starts at slide 0 with no audio, no vote endpoint, and the real clock.
type PlayerOptions struct {
	StartIndex    int
	PollSubmitURL string           // fallback vote endpoint for poll elements
	OnClose       func()           // fired exactly once when playback ends or the user exits
	Clock         func() time.Time // test hook; defaults to time.Now
	AudioFactory  ChannelFactory   // nil plays silently
	HTTPClient    *http.Client     // nil uses a short-timeout default
}

// elementAnim is the per-element animation state rebuilt on slide entry.
type elementAnim struct {
	style    ElementStyle // playback copy; the story is never mutated
	entrance *TweenGroup
	loop     *LoopTween
}

// Player is the playback host: it owns the scheduler, the audio
// synchronizer, per-slide element animation state, and the input controller.
// Update must be called once per frame; Draw renders into the viewport.
// Editing never runs concurrently with a player; the hosting editor is
// disabled for the player's lifetime.
type Player struct {
	story *Story
	sched *Scheduler
	audio *Synchronizer

	anims map[string]*elementAnim

	pollStates  map[string]PollState
	pollURL     string
	httpc       *http.Client
	voteResults chan voteResult

	onClose func()
	closed  bool
	done    chan struct{} // closed in Close; releases in-flight vote senders

	// Viewport geometry, updated by the host each frame before input and
	// drawing. The stage is scaled uniformly to fit and centered.
	viewportW, viewportH float64

	// Hardware polling is off until Run enables it, keeping headless players
	// (tests, scripted playback) free of ebiten's input state.
	pollHardware bool
	keysDown     map[ebiten.Key]bool
	mouseDown    bool

	inject []syntheticInput
}

// NewPlayer creates a player for the story. The story must validate; the
// player reads it but never mutates it.
func NewPlayer(story *Story, opts PlayerOptions) (*Player, error) {
	if err := story.Validate(); err != nil {
		return nil, fmt.Errorf("new player: %w", err)
	}

	p := &Player{
		story:       story,
		audio:       NewSynchronizer(opts.AudioFactory),
		anims:       make(map[string]*elementAnim),
		pollStates:  make(map[string]PollState),
		pollURL:     opts.PollSubmitURL,
		httpc:       opts.HTTPClient,
		voteResults: make(chan voteResult, 8),
		onClose:     opts.OnClose,
		done:        make(chan struct{}),
		keysDown:    make(map[ebiten.Key]bool),
		viewportW:   StageWidth,
		viewportH:   StageHeight,
	}
	if p.httpc == nil {
		p.httpc = &http.Client{Timeout: 5 * time.Second}
	}

	p.sched = NewScheduler(story, opts.StartIndex)
	if opts.Clock != nil {
		p.sched.SetClock(opts.Clock)
	}
	p.sched.OnSlideChange = p.slideChanged
	p.sched.OnFinished = p.Close

	p.audio.SetStory(story)
	p.enterSlide(p.sched.Index())
	return p, nil
}

// Start begins playback.
func (p *Player) Start() {
	if p.closed {
		return
	}
	p.sched.Play()
}

// Scheduler exposes the playback state machine (read-mostly: progress,
// index, state).
func (p *Player) Scheduler() *Scheduler { return p.sched }

// Audio exposes the audio synchronizer.
func (p *Player) Audio() *Synchronizer { return p.audio }

// Closed reports whether the player has shut down.
func (p *Player) Closed() bool { return p.closed }

// Close synchronously stops the tick and both audio channels, then fires
// OnClose exactly once. Safe to call repeatedly; nothing fires after the
// first return.
func (p *Player) Close() {
	if p.closed {
		return
	}
	p.closed = true
	close(p.done)
	p.sched.Stop()
	p.audio.Close()
	if p.onClose != nil {
		p.onClose()
	}
}

// slideChanged is the scheduler's index-change hook: rebuild the slide audio
// channel and the element animation state for the incoming slide.
func (p *Player) slideChanged(_, to int) {
	p.enterSlide(to)
}

func (p *Player) enterSlide(index int) {
	slide := p.story.Slides[index]
	p.audio.SetSlide(slide.Audio)

	clear(p.anims)
	for _, el := range slide.Elements {
		a := &elementAnim{style: el.Style}
		a.entrance = EntranceTween(&a.style, el.Animation)
		a.loop = LoopTweenFor(&a.style, el.Animation)
		p.anims[el.ID] = a
	}
}

// Update advances the player by one frame: input, scheduler tick, audio
// poll, animations, and async vote results. Returns without effect once
// closed.
func (p *Player) Update() error {
	if p.closed {
		return nil
	}

	p.consumeInjected()
	if p.pollHardware {
		p.pollKeys()
		p.pollPointer()
	}
	if p.closed { // input may have closed the player
		return nil
	}

	p.sched.Tick()
	if p.closed { // the final slide may have finished during the tick
		return nil
	}
	p.audio.Tick()
	p.updateAnimations()
	p.drainVotes()
	return nil
}

func (p *Player) updateAnimations() {
	if p.sched.State() != StatePlaying {
		return
	}
	dt := float32(1.0 / float64(ebiten.TPS()))
	for _, a := range p.anims {
		if a.entrance != nil && !a.entrance.Done {
			a.entrance.Update(dt)
			continue
		}
		a.loop.Update(dt)
	}
}

// ElementVisible applies the per-element timing gate: elements with a timing
// window render only while the slide's elapsed time is inside it; elements
// without one are always visible, subject to their Visible flag.
func (p *Player) ElementVisible(el *StoryElement) bool {
	if !el.Visible {
		return false
	}
	if el.Timing == nil {
		return true
	}
	return el.Timing.Contains(p.sched.Elapsed())
}

// playbackStyle returns the element's animated style for this frame, falling
// back to the authored style.
func (p *Player) playbackStyle(el *StoryElement) ElementStyle {
	if a, ok := p.anims[el.ID]; ok {
		return a.style
	}
	return el.Style
}

// --- Input controller ---

// SetViewport tells the player the size of the surface it is drawn into.
// Tap zones and stage fitting depend on it.
func (p *Player) SetViewport(w, h float64) {
	if w > 0 && h > 0 {
		p.viewportW, p.viewportH = w, h
	}
}

// stageRect returns the stage rectangle fitted and centered inside the
// viewport, preserving the stage aspect ratio.
func (p *Player) stageRect() Rect {
	scale := p.viewportW / StageWidth
	if s := p.viewportH / StageHeight; s < scale {
		scale = s
	}
	w := StageWidth * scale
	h := StageHeight * scale
	return Rect{
		X:      (p.viewportW - w) / 2,
		Y:      (p.viewportH - h) / 2,
		Width:  w,
		Height: h,
	}
}

// Action is a discrete playback command produced by the input controller.
type Action uint8

const (
	ActionNone Action = iota
	ActionNext
	ActionPrev
	ActionTogglePause
	ActionToggleMute
	ActionClose
)

// Apply executes an action against the player.
func (p *Player) Apply(action Action) {
	if p.closed {
		return
	}
	switch action {
	case ActionNext:
		p.sched.Next()
	case ActionPrev:
		p.sched.Prev()
	case ActionTogglePause:
		p.sched.TogglePause()
		p.audio.SetPaused(p.sched.State() == StatePaused)
	case ActionToggleMute:
		p.audio.SetMuted(!p.audio.Muted())
	case ActionClose:
		p.Close()
	}
}

// keyAction maps a just-pressed key to its playback action.
func keyAction(k ebiten.Key) Action {
	switch k {
	case ebiten.KeyArrowRight, ebiten.KeySpace:
		return ActionNext
	case ebiten.KeyArrowLeft:
		return ActionPrev
	case ebiten.KeyEscape:
		return ActionClose
	case ebiten.KeyP:
		return ActionTogglePause
	case ebiten.KeyM:
		return ActionToggleMute
	}
	return ActionNone
}

// playerKeys is the set of keys the player watches for edges.
var playerKeys = []ebiten.Key{
	ebiten.KeyArrowRight, ebiten.KeySpace, ebiten.KeyArrowLeft,
	ebiten.KeyEscape, ebiten.KeyP, ebiten.KeyM,
}

// pollKeys edge-detects the watched keys against last frame's state.
func (p *Player) pollKeys() {
	for _, k := range playerKeys {
		down := ebiten.IsKeyPressed(k)
		if down && !p.keysDown[k] {
			p.Apply(keyAction(k))
			if p.closed {
				return
			}
		}
		p.keysDown[k] = down
	}
}

// pollPointer edge-detects the primary mouse button and routes the press
// position through the tap zones.
func (p *Player) pollPointer() {
	down := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	if down && !p.mouseDown {
		mx, my := ebiten.CursorPosition()
		p.HandleTap(float64(mx), float64(my))
	}
	p.mouseDown = down
}

// HandleTap routes a tap at viewport coordinates. Poll elements take
// priority; then the stage's horizontal thirds map to prev / pause toggle /
// next; outside the stage, the viewport's outer quarter bands map to
// prev/next for easier reach on wide viewports.
func (p *Player) HandleTap(x, y float64) {
	if p.closed {
		return
	}
	stage := p.stageRect()

	if stage.Contains(x, y) {
		scale := stage.Width / StageWidth
		cx := (x - stage.X) / scale
		cy := (y - stage.Y) / scale
		if p.tapPoll(cx, cy) {
			return
		}
		switch {
		case x < stage.X+stage.Width/3:
			p.Apply(ActionPrev)
		case x < stage.X+2*stage.Width/3:
			p.Apply(ActionTogglePause)
		default:
			p.Apply(ActionNext)
		}
		return
	}

	switch {
	case x < p.viewportW/4:
		p.Apply(ActionPrev)
	case x > p.viewportW*3/4:
		p.Apply(ActionNext)
	}
}

// tapPoll hit-tests poll elements at stage coordinates and submits a vote
// for the tapped option. Returns true when the tap was consumed.
func (p *Player) tapPoll(cx, cy float64) bool {
	slide := p.sched.Slide()
	ordered := paintOrder(slide.Elements)
	for i := len(ordered) - 1; i >= 0; i-- {
		el := ordered[i]
		if el.Kind != ElementPoll || !p.ElementVisible(el) {
			continue
		}
		style := p.playbackStyle(el)
		if !elementContains(style, Vec2{cx, cy}) {
			continue
		}
		poll, ok := el.Content.(PollContent)
		if !ok || len(poll.Options) == 0 {
			return true
		}
		if option, hit := pollOptionAt(style, poll, cy); hit {
			p.submitVote(slide, el, poll, option)
		}
		return true
	}
	return false
}

// pollOptionAt maps a stage-space Y inside the poll body to an option index.
// The question occupies the top band and is inert: only taps on an option row
// report a hit.
func pollOptionAt(style ElementStyle, poll PollContent, cy float64) (int, bool) {
	top, bottom := style.Y+pollQuestionHeight, style.Y+style.Height
	if cy <= top || bottom <= top {
		return 0, false
	}
	idx := int((cy - top) / (bottom - top) * float64(len(poll.Options)))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(poll.Options) {
		idx = len(poll.Options) - 1
	}
	return idx, true
}

const pollQuestionHeight = 40.0

// PollStateFor returns the vote lifecycle state of a poll element.
func (p *Player) PollStateFor(id string) PollState {
	return p.pollStates[id]
}

// submitVote fires one vote POST. Already-sent and in-flight polls ignore
// further taps; the error state allows a manual retry by tapping again.
func (p *Player) submitVote(slide *StorySlide, el *StoryElement, poll PollContent, option int) {
	switch p.pollStates[el.ID] {
	case PollSending, PollVoted:
		return
	}

	url := poll.SubmitURL
	if url == "" {
		url = p.pollURL
	}
	if url == "" {
		return
	}

	vote := Vote{
		StoryID:     p.story.ID,
		SlideID:     slide.ID,
		ElementID:   el.ID,
		OptionIndex: option,
		OptionLabel: poll.Options[option],
		Question:    poll.Question,
	}
	p.pollStates[el.ID] = PollSending

	// Fire-and-forget: the result lands on voteResults and is folded back
	// into frame state by drainVotes. Nothing here touches player state.
	// Once the player closes nobody drains, so the send races the done
	// channel instead of blocking the sender forever.
	go func(results chan<- voteResult, client *http.Client, done <-chan struct{}) {
		res := voteResult{elementID: vote.ElementID, err: postVote(client, url, vote)}
		select {
		case results <- res:
		case <-done:
		}
	}(p.voteResults, p.httpc, p.done)
}

func postVote(client *http.Client, url string, vote Vote) error {
	body, err := json.Marshal(vote)
	if err != nil {
		return fmt.Errorf("encode vote: %w", err)
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("submit vote: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("submit vote: status %s", resp.Status)
	}
	return nil
}

// drainVotes folds async vote outcomes into the per-element poll states.
func (p *Player) drainVotes() {
	for {
		select {
		case res := <-p.voteResults:
			if res.err != nil {
				log.Printf("fable: poll vote failed: %v", res.err)
				p.pollStates[res.elementID] = PollError
			} else {
				p.pollStates[res.elementID] = PollVoted
			}
		default:
			return
		}
	}
}
