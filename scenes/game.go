package scenes

import (
	"sync/atomic"

	"github.com/automoto/herdview/config"
	"github.com/hajimehoshi/ebiten/v2"
)

type Scene interface {
	Update()
	Draw(screen *ebiten.Image)
}

// SceneChanger allows scenes to trigger transitions
type SceneChanger interface {
	ChangeScene(scene Scene)
}

// Game adapts the active scene to ebiten.Game.
type Game struct {
	scene Scene
	quit  atomic.Bool
}

func NewGame() *Game {
	return &Game{}
}

// ChangeScene switches to a new scene
func (g *Game) ChangeScene(scene Scene) {
	g.scene = scene
}

// Quit ends the run loop after the current frame. Safe to call from any
// goroutine.
func (g *Game) Quit() {
	g.quit.Store(true)
}

func (g *Game) Update() error {
	if g.quit.Load() {
		return ebiten.Termination
	}
	if g.scene != nil {
		g.scene.Update()
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.scene != nil {
		g.scene.Draw(screen)
	}
}

func (g *Game) Layout(width, height int) (int, int) {
	return config.C.Width, config.C.Height
}
