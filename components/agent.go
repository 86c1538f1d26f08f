package components

import (
	"github.com/yohamta/donburi"
	"gonum.org/v1/gonum/spatial/r2"
)

// AgentData is the viewer-side visual for one simulated entity. It is keyed
// by the entity id and refreshed from interpolated poses every tick.
type AgentData struct {
	ID       int
	Type     string
	State    string
	Position r2.Vec // world units
	Facing   r2.Vec // unit length, or zero
}

var Agent = donburi.NewComponentType[AgentData]()
