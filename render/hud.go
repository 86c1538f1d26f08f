package render

import (
	"github.com/automoto/herdview/config"
	"github.com/automoto/herdview/fonts"
	"github.com/automoto/herdview/systems"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text" //nolint:staticcheck // TODO: migrate to text/v2
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/yohamta/donburi"
)

const hudWidth = 220

// DrawHUD draws the selected agent panel in the top-left corner.
func DrawHUD(screen *ebiten.Image, w donburi.World) {
	lines := systems.HUDLines(w)
	if len(lines) == 0 {
		return
	}

	pad := config.View.HUDPadding
	titleFace := fonts.HUDTitle.Get()
	face := fonts.HUD.Get()
	titleH := float64(fonts.LineHeight(titleFace))
	lineH := float64(fonts.LineHeight(face))

	h := pad*2 + titleH + lineH*float64(len(lines)-1) + pad/2
	vector.FillRect(screen, float32(pad), float32(pad), hudWidth, float32(h), config.View.HUDBackground, false)

	y := pad*2 + titleH*0.8
	text.Draw(screen, lines[0], titleFace, int(pad*2), int(y), config.View.Selected)
	y += pad / 2
	for _, line := range lines[1:] {
		y += lineH
		text.Draw(screen, line, face, int(pad*2), int(y), config.View.HUDText)
	}
}

// DrawStatus draws the feed summary along the bottom edge.
func DrawStatus(screen *ebiten.Image, w donburi.World) {
	face := fonts.Status.Get()
	lineH := float64(fonts.LineHeight(face))
	sw, sh := screenSize(screen)
	pad := config.View.HUDPadding

	top := sh - lineH - pad
	vector.FillRect(screen, 0, float32(top), float32(sw), float32(lineH+pad), config.View.HUDBackground, false)
	text.Draw(screen, systems.StatusLine(w), face, int(pad), int(sh-pad/2-2), config.View.HUDText)
}
