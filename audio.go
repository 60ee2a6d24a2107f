package fable

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/audio/mp3"
	"github.com/hajimehoshi/ebiten/v2/audio/vorbis"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"
)

// AudioPlayer is the playback surface the synchronizer drives. It is exactly
// the subset of *audio.Player the engine needs, so the ebiten player
// satisfies it directly and tests substitute fakes.
type AudioPlayer interface {
	Play()
	Pause()
	IsPlaying() bool
	SetVolume(volume float64)
	SetPosition(offset time.Duration) error
	Position() time.Duration
	Close() error
}

// ChannelFactory builds a player for a clip. loop requests seamless looping
// (used by the background channel only). A nil player with a nil error means
// the source is intentionally silent; errors are degraded to silence by the
// synchronizer, never propagated to playback.
type ChannelFactory func(clip AudioClip, loop bool) (AudioPlayer, error)

// Synchronizer owns the story's two audio channels: at most one background
// player and one slide player exist at any time. All mutual-exclusion and
// mute/pause propagation decisions are made in one place (apply), so there is
// no ordering race between the channels: a slide that defines audio always
// silences the background, regardless of which toggle fired last.
type Synchronizer struct {
	factory ChannelFactory

	background AudioPlayer
	slide      AudioPlayer
	slideClip  *AudioClip

	muted      bool
	paused     bool
	slideEnded bool
}

// NewSynchronizer creates a synchronizer using the given channel factory.
// A nil factory produces a fully silent synchronizer (visuals unaffected).
func NewSynchronizer(factory ChannelFactory) *Synchronizer {
	return &Synchronizer{factory: factory}
}

// SetStory builds the background channel from the story's audio track, if
// any. The background loops for the whole story.
func (a *Synchronizer) SetStory(story *Story) {
	if a.background != nil {
		a.background.Pause()
		_ = a.background.Close()
		a.background = nil
	}
	if story.Audio == nil || a.factory == nil {
		return
	}
	player, err := a.factory(*story.Audio, true)
	if err != nil {
		log.Printf("fable: background audio %q unavailable: %v", story.Audio.Src, err)
		return
	}
	if player != nil {
		player.SetVolume(clipVolume(*story.Audio))
	}
	a.background = player
	a.apply()
}

// SetSlide tears down the previous slide channel and builds one for the new
// slide's clip, seeking to its start boundary. Passing nil clears the slide
// channel and hands the stage back to the background track.
func (a *Synchronizer) SetSlide(clip *AudioClip) {
	if a.slide != nil {
		a.slide.Pause()
		_ = a.slide.Close()
		a.slide = nil
	}
	a.slideClip = clip
	a.slideEnded = false

	if clip != nil && a.factory != nil {
		player, err := a.factory(*clip, false)
		if err != nil {
			log.Printf("fable: slide audio %q unavailable: %v", clip.Src, err)
		} else if player != nil {
			player.SetVolume(clipVolume(*clip))
			if clip.StartTime > 0 {
				if err := player.SetPosition(time.Duration(clip.StartTime * float64(time.Second))); err != nil {
					log.Printf("fable: slide audio %q seek: %v", clip.Src, err)
				}
			}
			a.slide = player
		}
	}
	a.apply()
}

// clipVolume resolves a clip's playback volume. Zero means unset, not silent:
// stories built in code get the same default as loaded ones.
func clipVolume(clip AudioClip) float64 {
	if clip.Volume == 0 {
		return DefaultAudioVolume
	}
	return clip.Volume
}

// SetMuted toggles the global mute. The active channel is determined solely
// by slide-audio presence; muting does not change which channel is active.
func (a *Synchronizer) SetMuted(muted bool) {
	a.muted = muted
	a.apply()
}

// Muted returns the global mute flag.
func (a *Synchronizer) Muted() bool { return a.muted }

// SetPaused propagates the playback pause to the active channel.
func (a *Synchronizer) SetPaused(paused bool) {
	a.paused = paused
	a.apply()
}

// Tick polls the slide channel's position and force-pauses it once it
// crosses the clip's end boundary. Call once per frame.
func (a *Synchronizer) Tick() {
	if a.slide == nil || a.slideClip == nil || a.slideEnded {
		return
	}
	if a.slideClip.EndTime <= 0 {
		return
	}
	end := time.Duration(a.slideClip.EndTime * float64(time.Second))
	if a.slide.Position() >= end {
		a.slideEnded = true
		a.apply()
	}
}

// apply reconciles both channels against the desired state. Slide audio
// always wins: whenever the current slide defines a clip, the background is
// paused, for every mute/pause combination.
func (a *Synchronizer) apply() {
	slideActive := a.slideClip != nil

	if a.background != nil {
		if slideActive || a.muted || a.paused {
			a.background.Pause()
		} else if !a.background.IsPlaying() {
			a.background.Play()
		}
	}

	if a.slide != nil {
		if a.muted || a.paused || a.slideEnded {
			a.slide.Pause()
		} else if !a.slide.IsPlaying() {
			a.slide.Play()
		}
	}
}

// Close synchronously stops and releases both channels. No channel callback
// can fire afterwards.
func (a *Synchronizer) Close() {
	if a.background != nil {
		a.background.Pause()
		_ = a.background.Close()
		a.background = nil
	}
	if a.slide != nil {
		a.slide.Pause()
		_ = a.slide.Close()
		a.slide = nil
	}
	a.slideClip = nil
}

// --- Ebiten-backed channel factory ---

// audioSampleRate is the shared audio.Context sample rate. All decoded
// streams are resampled to it.
const audioSampleRate = 48000

// NewAudioFactory returns a ChannelFactory backed by the ebiten audio
// context, decoding sources from the local filesystem by extension
// (.mp3, .ogg, .wav). The context is created on first use; creation and
// decode failures degrade to silent channels.
func NewAudioFactory() ChannelFactory {
	return func(clip AudioClip, loop bool) (AudioPlayer, error) {
		if clip.Src == "" {
			return nil, nil
		}
		ctx := audio.CurrentContext()
		if ctx == nil {
			ctx = audio.NewContext(audioSampleRate)
		}

		data, err := os.ReadFile(clip.Src)
		if err != nil {
			return nil, fmt.Errorf("read audio: %w", err)
		}
		stream, length, err := decodeAudio(clip.Src, data)
		if err != nil {
			return nil, err
		}

		var src io.Reader = stream
		if loop {
			src = audio.NewInfiniteLoop(stream, length)
		}
		player, err := ctx.NewPlayer(src)
		if err != nil {
			return nil, fmt.Errorf("audio player: %w", err)
		}
		return player, nil
	}
}

// decodeAudio picks a decoder from the source's extension and returns the
// PCM stream plus its length in bytes (needed for seamless looping).
func decodeAudio(src string, data []byte) (io.ReadSeeker, int64, error) {
	r := bytes.NewReader(data)
	switch strings.ToLower(path.Ext(src)) {
	case ".mp3":
		s, err := mp3.DecodeWithSampleRate(audioSampleRate, r)
		if err != nil {
			return nil, 0, fmt.Errorf("decode mp3: %w", err)
		}
		return s, s.Length(), nil
	case ".ogg":
		s, err := vorbis.DecodeWithSampleRate(audioSampleRate, r)
		if err != nil {
			return nil, 0, fmt.Errorf("decode ogg: %w", err)
		}
		return s, s.Length(), nil
	case ".wav":
		s, err := wav.DecodeWithSampleRate(audioSampleRate, r)
		if err != nil {
			return nil, 0, fmt.Errorf("decode wav: %w", err)
		}
		return s, s.Length(), nil
	default:
		return nil, 0, fmt.Errorf("unsupported audio format %q", path.Ext(src))
	}
}
