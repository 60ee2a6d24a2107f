// Package fable is a story editing and playback engine for [Ebitengine].
//
// A story is a sequence of timed slides, each holding freely positioned and
// rotated elements (text, images, shapes, buttons, polls, and more). Fable
// provides the two subsystems with real invariants: the direct-manipulation
// transform engine used while editing, and the playback state machine that
// auto-advances slides, runs two-phase transitions, layers background and
// per-slide audio, and gates elements by timing windows.
//
// # Quick start
//
// The simplest way to preview a story is [Run], which creates a window and
// game loop for you:
//
//	story, _ := fable.LoadStory(data)
//	player, _ := fable.NewPlayer(story, fable.PlayerOptions{
//		AudioFactory: fable.NewAudioFactory(),
//	})
//	fable.Run(player, fable.RunConfig{Title: "Preview", Width: 360, Height: 640})
//
// For full control, implement [ebiten.Game] yourself and call
// [Player.Update] and [Player.Draw] directly.
//
// # Editing
//
// [Editor] is the selection and manipulation controller. Pointer input flows
// through it into geometry [Session]s, exclusive per-drag interactions that
// move, resize, or rotate one element and commit a [StylePatch] on every
// pointer move:
//
//	editor, _ := fable.NewEditor(story)
//	editor.PointerDown(fable.Vec2{X: mx, Y: my}, mods)
//	editor.PointerMove(fable.Vec2{X: mx, Y: my}, mods)
//	editor.PointerUp()
//
// Every mutation replaces the story graph rather than updating it in place,
// so an external history collaborator can snapshot [Editor.Story] cheaply.
//
// # Playback
//
// [Player] owns the playback [Scheduler], the audio [Synchronizer], and the
// input controller (arrow keys, space, p, m, escape, and tap zones). Editing
// and playback never run simultaneously on the same story: disable the
// editor for the player's lifetime.
//
// Playback degrades silently, never crashes: missing media renders a
// placeholder, unknown transition types swap instantly, and audio failures
// are logged while visuals continue.
//
// [Ebitengine]: https://ebitengine.org
package fable
