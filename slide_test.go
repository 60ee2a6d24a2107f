package fable

import (
	"errors"
	"strings"
	"testing"
)

func TestLoadStoryRejectsEmptySlideList(t *testing.T) {
	_, err := LoadStory([]byte(`{"id":"s1","title":"empty","slides":[]}`))
	if !errors.Is(err, ErrNoSlides) {
		t.Fatalf("err = %v, want ErrNoSlides", err)
	}
}

func TestLoadStoryRejectsNonPositiveDuration(t *testing.T) {
	_, err := LoadStory([]byte(`{"slides":[{"id":"sl-1","duration":0}]}`))
	if err == nil || !strings.Contains(err.Error(), "duration") {
		t.Fatalf("err = %v, want duration complaint", err)
	}
}

func TestLoadStoryRejectsDuplicateElementIDs(t *testing.T) {
	blob := `{"slides":[{"id":"sl-1","duration":5,"elements":[
		{"id":"e1","kind":"shape","content":{},"style":{},"visible":true},
		{"id":"e1","kind":"text","content":{},"style":{},"visible":true}
	]}]}`
	_, err := LoadStory([]byte(blob))
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("err = %v, want duplicate id complaint", err)
	}
}

func TestLoadStoryAppliesDefaults(t *testing.T) {
	blob := `{"slides":[{"id":"sl-1","duration":5,
		"audio":{"src":"a.mp3"},
		"elements":[
			{"id":"e1","kind":"shape","content":{},"style":{},"visible":true},
			{"id":"e2","kind":"shape","content":{},"style":{"opacity":4},"visible":true}
		]}],
		"audio":{"src":"bg.mp3"}}`
	st, err := LoadStory([]byte(blob))
	if err != nil {
		t.Fatalf("LoadStory: %v", err)
	}

	assertNear(t, "story audio volume", st.Audio.Volume, DefaultAudioVolume)
	assertNear(t, "slide audio volume", st.Slides[0].Audio.Volume, DefaultAudioVolume)
	assertNear(t, "zero opacity default", st.Slides[0].Elements[0].Style.Opacity, 1)
	assertNear(t, "opacity clamp", st.Slides[0].Elements[1].Style.Opacity, 1)
}

func TestLoadStoryOmittedVisibleDefaultsToVisible(t *testing.T) {
	blob := `{"slides":[{"id":"sl-1","duration":5,"elements":[
		{"id":"e1","kind":"shape","content":{},"style":{}},
		{"id":"e2","kind":"text","content":{},"style":{},"visible":false}
	]}]}`
	st, err := LoadStory([]byte(blob))
	if err != nil {
		t.Fatalf("LoadStory: %v", err)
	}

	if !st.Slides[0].Elements[0].Visible {
		t.Error("element without a visible key should load visible")
	}
	if st.Slides[0].Elements[1].Visible {
		t.Error("explicit visible:false should survive loading")
	}
}

func TestStoryEncodeRoundTrip(t *testing.T) {
	st := NewStory("demo")
	st.Settings.Loop = true
	el := NewTextElement("hi")
	el.Style.X = 42
	st.Slides[0].Elements = append(st.Slides[0].Elements, el)
	st.Slides[0].Transition = TransitionSpec{Type: TransitionFade, Duration: 300}

	data, err := st.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, err := LoadStory(data)
	if err != nil {
		t.Fatalf("LoadStory: %v", err)
	}

	if back.Title != "demo" || !back.Settings.Loop {
		t.Errorf("title/settings lost: %q %+v", back.Title, back.Settings)
	}
	if back.Slides[0].Transition.Type != TransitionFade {
		t.Errorf("transition = %v, want fade", back.Slides[0].Transition.Type)
	}
	got := back.Slides[0].ElementByID(el.ID)
	if got == nil {
		t.Fatalf("element %s lost in round trip", el.ID)
	}
	assertNear(t, "x", got.Style.X, 42)
}

func TestNewStoryStartsValid(t *testing.T) {
	st := NewStory("fresh")
	if err := st.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(st.Slides) != 1 {
		t.Fatalf("slides = %d, want 1", len(st.Slides))
	}
	if !strings.HasPrefix(st.ID, "story-") {
		t.Errorf("story id = %q, want story- prefix", st.ID)
	}
	if !strings.HasPrefix(st.Slides[0].ID, "slide-") {
		t.Errorf("slide id = %q, want slide- prefix", st.Slides[0].ID)
	}
}

func TestStoryCloneIsDeep(t *testing.T) {
	st := NewStory("orig")
	st.Audio = &AudioClip{Src: "bg.mp3", Volume: 0.5}
	st.Slides[0].Elements = append(st.Slides[0].Elements, testElement(1, 2, 30, 40))

	c := st.Clone()
	c.Slides[0].Elements[0].Style.X = 99
	c.Slides[0].Duration = 1
	c.Audio.Volume = 0.1

	assertNear(t, "x", st.Slides[0].Elements[0].Style.X, 1)
	assertNear(t, "duration", st.Slides[0].Duration, 5)
	assertNear(t, "volume", st.Audio.Volume, 0.5)
}

func TestWithSlideSharesUntouchedSlides(t *testing.T) {
	st := NewStory("share")
	st.Slides = append(st.Slides, NewSlide(), NewSlide())

	replacement := st.Slides[1].Clone()
	replacement.Duration = 9
	next := st.withSlide(1, replacement)

	if next.Slides[0] != st.Slides[0] || next.Slides[2] != st.Slides[2] {
		t.Error("untouched slides should be shared pointers")
	}
	if next.Slides[1] == st.Slides[1] {
		t.Error("replaced slide should be a new pointer")
	}
	assertNear(t, "old duration", st.Slides[1].Duration, 5)
	assertNear(t, "new duration", next.Slides[1].Duration, 9)
}
