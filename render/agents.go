package render

import (
	"github.com/automoto/herdview/components"
	"github.com/automoto/herdview/config"
	"github.com/automoto/herdview/systems"
	"github.com/automoto/herdview/tags"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/yohamta/donburi"
	"gonum.org/v1/gonum/spatial/r2"
)

// DrawAgents draws every agent as a box with a facing tick, outlining the
// selected one.
func DrawAgents(screen *ebiten.Image, w donburi.World) {
	camera := systems.CameraOf(w)
	sw, sh := screenSize(screen)
	scale := systems.Scale(camera)
	size := config.View.EntitySize * scale
	selected, hasSelection := systems.Selected(w)

	tags.Agent.Each(w, func(entry *donburi.Entry) {
		agent := components.Agent.Get(entry)
		centre := systems.WorldToScreen(camera, systems.VisualCentre(agent.Position), sw, sh)
		x, y := float32(centre.X-size/2), float32(centre.Y-size/2)

		vector.FillRect(screen, x, y, float32(size), float32(size), config.EntityColor(agent.Type), false)

		outline, width := config.View.EntityOutline, float32(1)
		if hasSelection && agent.ID == selected {
			outline, width = config.View.Selected, 2
		}
		vector.StrokeRect(screen, x, y, float32(size), float32(size), width, outline, false)

		if agent.Facing != (r2.Vec{}) {
			tip := r2.Add(centre, r2.Scale(config.View.FacingLength*scale, r2.Unit(agent.Facing)))
			vector.StrokeLine(screen, float32(centre.X), float32(centre.Y), float32(tip.X), float32(tip.Y), 2, config.View.EntityOutline, true)
		}
	})
}
