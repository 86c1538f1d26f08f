package components

import (
	"github.com/tanema/gween"
	"github.com/yohamta/donburi"
	"gonum.org/v1/gonum/spatial/r2"
)

type CameraData struct {
	Center r2.Vec  // world units
	Zoom   float64 // multiplier on config.View.CellSize

	// Fit tween state; Tween runs 0..1 from (FromCenter, FromZoom) to
	// (ToCenter, ToZoom).
	Tween      *gween.Tween
	FromCenter r2.Vec
	ToCenter   r2.Vec
	FromZoom   float64
	ToZoom     float64

	Fitted bool // fitted to the current world size
	WorldW float64
	WorldH float64
}

var Camera = donburi.NewComponentType[CameraData]()
