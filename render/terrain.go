package render

import (
	"image/color"
	"math"

	"github.com/automoto/herdview/components"
	"github.com/automoto/herdview/config"
	"github.com/automoto/herdview/shared/world"
	"github.com/automoto/herdview/systems"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"gonum.org/v1/gonum/spatial/r2"
)

// obstacleInset is the fraction of a cell each obstacle kind covers.
var obstacleInset = map[world.ObstacleType]float64{
	world.ObstacleTypeWall:        0.9,
	world.ObstacleTypeWaterSource: 0.85,
	world.ObstacleTypeFoodSource:  0.7,
	world.ObstacleTypeRestArea:    0.8,
}

// DrawTerrain draws the ground, grid lines and static obstacles of the latest
// snapshot.
func DrawTerrain(screen *ebiten.Image, camera *components.CameraData, state *world.State) {
	if state == nil || state.Width <= 0 || state.Height <= 0 {
		return
	}
	sw, sh := screenSize(screen)
	scale := systems.Scale(camera)

	origin := systems.WorldToScreen(camera, r2.Vec{}, sw, sh)
	w, h := state.Width*scale, state.Height*scale
	vector.FillRect(screen, float32(origin.X), float32(origin.Y), float32(w), float32(h), config.View.Background, false)

	if scale >= 4 {
		cols, rows := int(math.Ceil(state.Width)), int(math.Ceil(state.Height))
		for x := 0; x <= cols; x++ {
			px := float32(origin.X + float64(x)*scale)
			vector.StrokeLine(screen, px, float32(origin.Y), px, float32(origin.Y+h), 1, config.View.GridLine, false)
		}
		for y := 0; y <= rows; y++ {
			py := float32(origin.Y + float64(y)*scale)
			vector.StrokeLine(screen, float32(origin.X), py, float32(origin.X+w), py, 1, config.View.GridLine, false)
		}
	}

	for _, o := range state.StaticObstacles.All() {
		drawObstacle(screen, camera, o, sw, sh, scale)
	}
}

func drawObstacle(screen *ebiten.Image, camera *components.CameraData, o world.StaticObstacle, sw, sh, scale float64) {
	clr, ok := config.View.ObstacleColors[string(o.Type)]
	if !ok {
		return
	}
	inset, ok := obstacleInset[o.Type]
	if !ok {
		inset = 1
	}

	cellsW, cellsH := 1.0, 1.0
	if o.Size != nil && o.Size.X > 0 && o.Size.Y > 0 {
		cellsW, cellsH = o.Size.X, o.Size.Y
	}
	w, h := cellsW*inset*scale, cellsH*inset*scale
	centre := systems.WorldToScreen(camera, r2.Vec{X: o.Position.X + cellsW/2, Y: o.Position.Y + cellsH/2}, sw, sh)
	x, y := float32(centre.X-w/2), float32(centre.Y-h/2)

	vector.FillRect(screen, x, y, float32(w), float32(h), clr, false)
	vector.StrokeRect(screen, x, y, float32(w), float32(h), 1, color.Black, false)
}

func screenSize(screen *ebiten.Image) (float64, float64) {
	b := screen.Bounds()
	return float64(b.Dx()), float64(b.Dy())
}
