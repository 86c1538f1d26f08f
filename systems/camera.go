package systems

import (
	"math"

	"github.com/automoto/herdview/archetypes"
	"github.com/automoto/herdview/components"
	"github.com/automoto/herdview/config"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
	"github.com/yohamta/donburi"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	fitMargin = 0.92
	minZoom   = 0.1
	maxZoom   = 20
)

// CameraOf returns the camera, creating it at zoom 1 if needed.
func CameraOf(w donburi.World) *components.CameraData {
	entry, ok := components.Camera.First(w)
	if !ok {
		entry = archetypes.Camera.Spawn(w)
		components.Camera.SetValue(entry, components.CameraData{Zoom: 1})
	}
	return components.Camera.Get(entry)
}

// FitCamera eases the camera to frame a world of the given size on a screen
// of the given size. It does nothing while the camera is already fitted to
// that world size.
func FitCamera(w donburi.World, worldW, worldH, screenW, screenH float64) {
	if worldW <= 0 || worldH <= 0 || screenW <= 0 || screenH <= 0 {
		return
	}
	camera := CameraOf(w)
	if camera.Fitted && camera.WorldW == worldW && camera.WorldH == worldH {
		return
	}

	cell := config.View.CellSize
	zoom := math.Min(screenW/(worldW*cell), screenH/(worldH*cell)) * fitMargin

	camera.FromCenter = camera.Center
	camera.FromZoom = camera.Zoom
	camera.ToCenter = r2.Vec{X: worldW / 2, Y: worldH / 2}
	camera.ToZoom = clampFloat(zoom, minZoom, maxZoom)
	camera.Tween = gween.New(0, 1, float32(config.View.CameraEase), ease.OutCubic)
	camera.Fitted = true
	camera.WorldW = worldW
	camera.WorldH = worldH
}

// UpdateCamera advances the fit tween by dt seconds.
func UpdateCamera(w donburi.World, dt float64) {
	camera := CameraOf(w)
	if camera.Tween == nil {
		return
	}
	p, done := camera.Tween.Update(float32(dt))
	t := float64(p)
	if done {
		t = 1
		camera.Tween = nil
	}
	camera.Center = r2.Add(camera.FromCenter, r2.Scale(t, r2.Sub(camera.ToCenter, camera.FromCenter)))
	camera.Zoom = camera.FromZoom + (camera.ToZoom-camera.FromZoom)*t
}

// ZoomCamera multiplies the zoom by factor, cancelling any running fit.
func ZoomCamera(w donburi.World, factor float64) {
	if factor <= 0 {
		return
	}
	camera := CameraOf(w)
	camera.Tween = nil
	camera.Zoom = clampFloat(camera.Zoom*factor, minZoom, maxZoom)
}

// Scale returns screen pixels per world unit.
func Scale(camera *components.CameraData) float64 {
	return config.View.CellSize * camera.Zoom
}

// WorldToScreen maps a world point to screen pixels.
func WorldToScreen(camera *components.CameraData, p r2.Vec, screenW, screenH float64) r2.Vec {
	s := Scale(camera)
	return r2.Vec{
		X: (p.X-camera.Center.X)*s + screenW/2,
		Y: (p.Y-camera.Center.Y)*s + screenH/2,
	}
}

// ScreenToWorld maps screen pixels to a world point.
func ScreenToWorld(camera *components.CameraData, p r2.Vec, screenW, screenH float64) r2.Vec {
	s := Scale(camera)
	return r2.Vec{
		X: (p.X-screenW/2)/s + camera.Center.X,
		Y: (p.Y-screenH/2)/s + camera.Center.Y,
	}
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
