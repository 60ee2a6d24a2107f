package fable

import (
	"encoding/json"
	"errors"
	"fmt"
)

// BackgroundType selects how a slide's backdrop is rendered.
type BackgroundType string

const (
	BackgroundColor    BackgroundType = "color"
	BackgroundImage    BackgroundType = "image"
	BackgroundVideo    BackgroundType = "video"
	BackgroundGradient BackgroundType = "gradient"
)

// Background describes a slide's backdrop. Value is a media source for the
// image/video types; Fill and GradientTo drive the color and gradient types.
type Background struct {
	Type       BackgroundType `json:"type"`
	Value      string         `json:"value,omitempty"`
	Fill       Color          `json:"fill"`
	GradientTo Color          `json:"gradientTo,omitempty"`
	Overlay    float64        `json:"overlay,omitempty"` // darkening overlay opacity [0,1]
	Filter     string         `json:"filter,omitempty"`
}

// AudioClip describes an audio source with optional trim boundaries.
// StartTime/EndTime are seconds into the track; EndTime 0 means play to the
// end. Used both for the story-wide background track and per-slide clips.
type AudioClip struct {
	Src       string  `json:"src"`
	Volume    float64 `json:"volume"`
	StartTime float64 `json:"startTime,omitempty"`
	EndTime   float64 `json:"endTime,omitempty"`
}

// DefaultAudioVolume is applied when a clip does not specify one.
const DefaultAudioVolume = 0.5

// TransitionSpec configures the visual handoff into the NEXT slide.
// Duration is one phase in milliseconds; the full handoff spans twice that
// (exit phase, index change, enter phase).
type TransitionSpec struct {
	Type     TransitionType `json:"type"`
	Duration int            `json:"duration"`
}

// StorySlide is one timed unit of a story. Element order is paint order,
// refined by ZIndex at render time.
type StorySlide struct {
	ID         string          `json:"id"`
	Elements   []*StoryElement `json:"elements"`
	Background Background      `json:"background"`
	Duration   float64         `json:"duration"` // seconds of auto-advance time
	Transition TransitionSpec  `json:"transition"`
	Audio      *AudioClip      `json:"audio,omitempty"`
}

// slideIDCounter is a plain counter (no atomic, fable is single-threaded).
var slideIDCounter, storyIDCounter uint64

func nextSlideID() string {
	slideIDCounter++
	return fmt.Sprintf("slide-%d", slideIDCounter)
}

func nextStoryID() string {
	storyIDCounter++
	return fmt.Sprintf("story-%d", storyIDCounter)
}

// NewSlide creates a slide with sensible defaults: black background, 5 second
// duration, no transition.
func NewSlide() *StorySlide {
	return &StorySlide{
		ID:         nextSlideID(),
		Background: Background{Type: BackgroundColor, Fill: ColorBlack},
		Duration:   5,
		Transition: TransitionSpec{Type: TransitionNone},
	}
}

// ElementByID returns the element with the given ID, or nil.
func (s *StorySlide) ElementByID(id string) *StoryElement {
	for _, el := range s.Elements {
		if el.ID == id {
			return el
		}
	}
	return nil
}

// Clone returns a deep copy of the slide and its elements.
func (s *StorySlide) Clone() *StorySlide {
	c := *s
	c.Elements = make([]*StoryElement, len(s.Elements))
	for i, el := range s.Elements {
		c.Elements[i] = el.Clone()
	}
	if s.Audio != nil {
		a := *s.Audio
		c.Audio = &a
	}
	return &c
}

// StorySettings controls story-wide playback behavior.
type StorySettings struct {
	AutoAdvance     bool `json:"autoAdvance"`
	Loop            bool `json:"loop"`
	ShowProgressBar bool `json:"showProgressBar"`
}

// Story is a sequence of slides plus playback settings and an optional
// background audio track that loops for the whole story.
type Story struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Slides   []*StorySlide `json:"slides"`
	Settings StorySettings `json:"settings"`
	Audio    *AudioClip    `json:"audio,omitempty"`
}

// NewStory creates a story with a single default slide, keeping the
// non-empty-slides invariant from the start.
func NewStory(title string) *Story {
	return &Story{
		ID:       nextStoryID(),
		Title:    title,
		Slides:   []*StorySlide{NewSlide()},
		Settings: StorySettings{AutoAdvance: true, ShowProgressBar: true},
	}
}

// ErrNoSlides is returned when a story has an empty slide list.
var ErrNoSlides = errors.New("story has no slides")

// Validate checks the story's structural invariants.
func (st *Story) Validate() error {
	if len(st.Slides) == 0 {
		return ErrNoSlides
	}
	seen := make(map[string]struct{})
	for i, s := range st.Slides {
		if s.Duration <= 0 {
			return fmt.Errorf("slide %d (%s): non-positive duration %v", i, s.ID, s.Duration)
		}
		for _, el := range s.Elements {
			key := s.ID + "/" + el.ID
			if _, dup := seen[key]; dup {
				return fmt.Errorf("slide %d (%s): duplicate element id %s", i, s.ID, el.ID)
			}
			seen[key] = struct{}{}
		}
	}
	return nil
}

// Clone returns a deep copy of the story.
func (st *Story) Clone() *Story {
	c := *st
	c.Slides = make([]*StorySlide, len(st.Slides))
	for i, s := range st.Slides {
		c.Slides[i] = s.Clone()
	}
	if st.Audio != nil {
		a := *st.Audio
		c.Audio = &a
	}
	return &c
}

// withSlide returns a copy of the story whose slide list has index i replaced.
// The untouched slides are shared; only the slice header and the replaced
// slide are new, which keeps external history snapshots cheap.
func (st *Story) withSlide(i int, slide *StorySlide) *Story {
	c := *st
	c.Slides = make([]*StorySlide, len(st.Slides))
	copy(c.Slides, st.Slides)
	c.Slides[i] = slide
	return &c
}

// LoadStory parses a JSON-encoded story, applies defaults, and validates it.
func LoadStory(jsonData []byte) (*Story, error) {
	var st Story
	if err := json.Unmarshal(jsonData, &st); err != nil {
		return nil, fmt.Errorf("parse story: %w", err)
	}
	applyDefaults(&st)
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("parse story: %w", err)
	}
	return &st, nil
}

// Encode serializes the story to JSON.
func (st *Story) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode story: %w", err)
	}
	return data, nil
}

// applyDefaults fills zero values the authoring side may omit: audio volumes,
// opacity, and clamps opacity into [0, 1].
func applyDefaults(st *Story) {
	if st.Audio != nil && st.Audio.Volume == 0 {
		st.Audio.Volume = DefaultAudioVolume
	}
	for _, s := range st.Slides {
		if s.Audio != nil && s.Audio.Volume == 0 {
			s.Audio.Volume = DefaultAudioVolume
		}
		for _, el := range s.Elements {
			if el.Style.Opacity == 0 {
				el.Style.Opacity = 1
			}
			if el.Style.Opacity < 0 {
				el.Style.Opacity = 0
			}
			if el.Style.Opacity > 1 {
				el.Style.Opacity = 1
			}
		}
	}
}
