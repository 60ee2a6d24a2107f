package fable

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// RunConfig configures the window created by Run.
type RunConfig struct {
	Title  string
	Width  int
	Height int
}

// game adapts a Player to ebiten.Game.
type game struct {
	player *Player
}

func (g *game) Update() error {
	g.player.Update()
	if g.player.Closed() {
		return ebiten.Termination
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	g.player.Draw(screen)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

// Run opens a window, enables hardware input on the player, and drives it
// until it closes. For full control, implement ebiten.Game yourself and call
// Player.Update and Player.Draw directly.
func Run(p *Player, cfg RunConfig) error {
	if cfg.Width <= 0 {
		cfg.Width = int(StageWidth)
	}
	if cfg.Height <= 0 {
		cfg.Height = int(StageHeight)
	}
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(cfg.Width, cfg.Height)

	p.pollHardware = true
	p.Start()
	return ebiten.RunGame(&game{player: p})
}
