package scenes

import (
	"context"
	"errors"

	"github.com/automoto/herdview/config"
	"github.com/automoto/herdview/network"
	"github.com/hajimehoshi/ebiten/v2"
)

// Run opens the viewer window over inbox and blocks until the window closes,
// the user quits or ctx is done. It returns the final window size.
func Run(ctx context.Context, inbox *network.Inbox, status func() string, drops func() uint64) (int, int, error) {
	ebiten.SetWindowSize(config.C.Width, config.C.Height)
	ebiten.SetWindowTitle(config.C.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	game := NewGame()
	game.ChangeScene(NewViewerScene(Feed{
		Inbox:  inbox,
		Status: status,
		Drops:  drops,
		Quit:   game.Quit,
	}))

	stop := context.AfterFunc(ctx, game.Quit)
	defer stop()

	err := ebiten.RunGame(game)
	if errors.Is(err, ebiten.Termination) {
		err = nil
	}
	w, h := ebiten.WindowSize()
	return w, h, err
}
