package fable

import (
	"encoding/json"
	"fmt"
	"time"
)

// MinElementSize is the smallest width/height an element may reach through
// resizing. Resize deltas that would shrink past it are clamped, not rejected.
const MinElementSize = 20.0

// ElementKind identifies the payload type carried by a StoryElement.
type ElementKind string

const (
	ElementText      ElementKind = "text"
	ElementImage     ElementKind = "image"
	ElementVideo     ElementKind = "video"
	ElementShape     ElementKind = "shape"
	ElementButton    ElementKind = "button"
	ElementPoll      ElementKind = "poll"
	ElementSlider    ElementKind = "slider"
	ElementCountdown ElementKind = "countdown"
)

// ElementStyle holds the geometric and visual properties every element has,
// regardless of kind. Coordinates are canvas-local pixels; Rotation is in
// degrees and is deliberately unbounded: repeated rotate sessions accumulate
// and the value is never reduced mod 360.
type ElementStyle struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"`
	Opacity  float64 `json:"opacity"`
	ZIndex   int     `json:"zIndex"`

	// Optional visuals.
	Fill       Color   `json:"fill,omitempty"`
	Background Color   `json:"background,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	Blur       float64 `json:"blur,omitempty"`
	BoxShadow  string  `json:"boxShadow,omitempty"`
}

// Bounds returns the element's unrotated bounding rectangle.
func (s ElementStyle) Bounds() Rect {
	return Rect{X: s.X, Y: s.Y, Width: s.Width, Height: s.Height}
}

// StylePatch is a partial style update. Nil fields are left untouched.
// Geometry sessions emit patches on every pointer move; the editor applies
// them copy-on-write so external history can snapshot committed states.
type StylePatch struct {
	X        *float64
	Y        *float64
	Width    *float64
	Height   *float64
	Rotation *float64
	Opacity  *float64
	ZIndex   *int
	Fill     *Color
}

// ApplyTo writes the patch's set fields onto dst.
func (p StylePatch) ApplyTo(dst *ElementStyle) {
	if p.X != nil {
		dst.X = *p.X
	}
	if p.Y != nil {
		dst.Y = *p.Y
	}
	if p.Width != nil {
		dst.Width = *p.Width
	}
	if p.Height != nil {
		dst.Height = *p.Height
	}
	if p.Rotation != nil {
		dst.Rotation = *p.Rotation
	}
	if p.Opacity != nil {
		dst.Opacity = *p.Opacity
	}
	if p.ZIndex != nil {
		dst.ZIndex = *p.ZIndex
	}
	if p.Fill != nil {
		dst.Fill = *p.Fill
	}
}

func ptr[T any](v T) *T { return &v }

// TimingWindow gates an element's visibility to an interval of the slide's
// elapsed time. Offsets are milliseconds from the start of the slide.
type TimingWindow struct {
	Start    int `json:"start"`
	Duration int `json:"duration"`
}

// Contains reports whether the elapsed time falls inside the window.
// Both boundaries are inclusive.
func (w TimingWindow) Contains(elapsed time.Duration) bool {
	ms := int(elapsed / time.Millisecond)
	return ms >= w.Start && ms <= w.Start+w.Duration
}

// AnimationSpec describes an element's optional entrance and loop animations.
type AnimationSpec struct {
	Entrance         string  `json:"entrance,omitempty"` // fade, slide-up, slide-down, zoom
	EntranceDuration float64 `json:"entranceDuration,omitempty"`
	Loop             string  `json:"loop,omitempty"` // pulse, float
}

// ElementContent is the kind-specific payload of a StoryElement. Exactly one
// concrete payload type exists per ElementKind; the JSON codec dispatches on
// the element's kind tag.
type ElementContent interface {
	kind() ElementKind
}

// TextContent is the payload for text elements.
type TextContent struct {
	Text  string `json:"text"`
	Align string `json:"align,omitempty"`
}

func (TextContent) kind() ElementKind { return ElementText }

// ImageContent is the payload for image elements.
type ImageContent struct {
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
	Fit string `json:"fit,omitempty"`
}

func (ImageContent) kind() ElementKind { return ElementImage }

// VideoContent is the payload for video elements.
type VideoContent struct {
	Src      string `json:"src"`
	Autoplay bool   `json:"autoplay,omitempty"`
	Muted    bool   `json:"muted,omitempty"`
	Loop     bool   `json:"loop,omitempty"`
}

func (VideoContent) kind() ElementKind { return ElementVideo }

// ShapeContent is the payload for shape elements.
type ShapeContent struct {
	Shape string `json:"shape"` // rectangle, circle, triangle, line
}

func (ShapeContent) kind() ElementKind { return ElementShape }

// ButtonContent is the payload for button elements.
type ButtonContent struct {
	Label string `json:"label"`
	URL   string `json:"url,omitempty"`
}

func (ButtonContent) kind() ElementKind { return ElementButton }

// PollContent is the payload for poll elements. SubmitURL overrides the
// player's fallback vote endpoint when set.
type PollContent struct {
	Question  string   `json:"question"`
	Options   []string `json:"options"`
	SubmitURL string   `json:"submitUrl,omitempty"`
}

func (PollContent) kind() ElementKind { return ElementPoll }

// SliderContent is the payload for emoji-slider elements.
type SliderContent struct {
	Question string `json:"question"`
	Emoji    string `json:"emoji,omitempty"`
}

func (SliderContent) kind() ElementKind { return ElementSlider }

// CountdownContent is the payload for countdown elements. A zero or past
// target renders a remaining time of 0 rather than a negative value.
type CountdownContent struct {
	Target time.Time `json:"target"`
	Label  string    `json:"label,omitempty"`
}

func (CountdownContent) kind() ElementKind { return ElementCountdown }

// Remaining returns the time left until the target, clamped to zero.
func (c CountdownContent) Remaining(now time.Time) time.Duration {
	if c.Target.IsZero() || !c.Target.After(now) {
		return 0
	}
	return c.Target.Sub(now)
}

// StoryElement is a positioned, stylable unit inside a slide. The Content
// payload is a tagged union keyed by Kind, so a poll cannot carry video
// fields and vice versa.
type StoryElement struct {
	ID        string
	Kind      ElementKind
	Content   ElementContent
	Style     ElementStyle
	Locked    bool
	Visible   bool
	Timing    *TimingWindow
	Animation *AnimationSpec
}

// elementIDCounter is a plain counter (no atomic, fable is single-threaded).
var elementIDCounter uint64

func nextElementID() string {
	elementIDCounter++
	return fmt.Sprintf("el-%d", elementIDCounter)
}

// elementDefaults sets the field values shared by all element constructors.
func elementDefaults(e *StoryElement) {
	if e.ID == "" {
		e.ID = nextElementID()
	}
	e.Visible = true
	if e.Style.Width == 0 {
		e.Style.Width = 120
	}
	if e.Style.Height == 0 {
		e.Style.Height = 48
	}
	e.Style.Opacity = 1
	e.Style.Fill = ColorWhite
}

// NewElement creates an element of the kind implied by the content payload.
func NewElement(content ElementContent) *StoryElement {
	e := &StoryElement{Kind: content.kind(), Content: content}
	elementDefaults(e)
	return e
}

// NewTextElement creates a text element with the given content.
func NewTextElement(text string) *StoryElement {
	return NewElement(TextContent{Text: text})
}

// NewShapeElement creates a shape element.
func NewShapeElement(shape string) *StoryElement {
	return NewElement(ShapeContent{Shape: shape})
}

// NewPollElement creates a poll element with the given question and options.
func NewPollElement(question string, options ...string) *StoryElement {
	e := NewElement(PollContent{Question: question, Options: options})
	e.Style.Height = 40 + 36*float64(len(options))
	return e
}

// Clone returns a deep copy of the element with the same ID. Content payloads
// are value types except PollContent's option slice, which is copied.
func (e *StoryElement) Clone() *StoryElement {
	c := *e
	if p, ok := e.Content.(PollContent); ok {
		opts := make([]string, len(p.Options))
		copy(opts, p.Options)
		p.Options = opts
		c.Content = p
	}
	if e.Timing != nil {
		t := *e.Timing
		c.Timing = &t
	}
	if e.Animation != nil {
		a := *e.Animation
		c.Animation = &a
	}
	return &c
}

// --- JSON codec ---

// elementJSON is the wire form of a StoryElement. Content is deferred so it
// can be decoded into the payload type selected by Kind. Visible is a pointer
// so an absent key reads as visible: a story that never mentions the flag must
// not load as a blank slide.
type elementJSON struct {
	ID        string          `json:"id"`
	Kind      ElementKind     `json:"kind"`
	Content   json.RawMessage `json:"content"`
	Style     ElementStyle    `json:"style"`
	Locked    bool            `json:"locked,omitempty"`
	Visible   *bool           `json:"visible,omitempty"`
	Timing    *TimingWindow   `json:"timings,omitempty"`
	Animation *AnimationSpec  `json:"animation,omitempty"`
}

// MarshalJSON encodes the element with its content payload inline.
func (e *StoryElement) MarshalJSON() ([]byte, error) {
	content, err := json.Marshal(e.Content)
	if err != nil {
		return nil, fmt.Errorf("encode element %s content: %w", e.ID, err)
	}
	return json.Marshal(elementJSON{
		ID:        e.ID,
		Kind:      e.Kind,
		Content:   content,
		Style:     e.Style,
		Locked:    e.Locked,
		Visible:   ptr(e.Visible),
		Timing:    e.Timing,
		Animation: e.Animation,
	})
}

// UnmarshalJSON decodes the element, dispatching the content payload on kind.
// Unknown kinds decode as shapes so a story authored against a newer editor
// still renders a placeholder instead of failing to load.
func (e *StoryElement) UnmarshalJSON(data []byte) error {
	var raw elementJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode element: %w", err)
	}

	content, err := decodeContent(raw.Kind, raw.Content)
	if err != nil {
		return fmt.Errorf("decode element %s: %w", raw.ID, err)
	}

	e.ID = raw.ID
	e.Kind = content.kind()
	e.Content = content
	e.Style = raw.Style
	e.Locked = raw.Locked
	e.Visible = raw.Visible == nil || *raw.Visible
	e.Timing = raw.Timing
	e.Animation = raw.Animation
	return nil
}

func decodeContent(kind ElementKind, raw json.RawMessage) (ElementContent, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	switch kind {
	case ElementText:
		var c TextContent
		return c, json.Unmarshal(raw, &c)
	case ElementImage:
		var c ImageContent
		return c, json.Unmarshal(raw, &c)
	case ElementVideo:
		var c VideoContent
		return c, json.Unmarshal(raw, &c)
	case ElementButton:
		var c ButtonContent
		return c, json.Unmarshal(raw, &c)
	case ElementPoll:
		var c PollContent
		return c, json.Unmarshal(raw, &c)
	case ElementSlider:
		var c SliderContent
		return c, json.Unmarshal(raw, &c)
	case ElementCountdown:
		var c CountdownContent
		return c, json.Unmarshal(raw, &c)
	default:
		var c ShapeContent
		return c, json.Unmarshal(raw, &c)
	}
}
