package systems

import (
	"github.com/automoto/herdview/tags"
	"github.com/solarlune/resolv"
	"github.com/yohamta/donburi"
	"gonum.org/v1/gonum/spatial/r2"
)

// PickAt returns the id of the agent whose shape contains the world point p.
// When shapes overlap the agent centred closest to p wins.
func PickAt(w donburi.World, p r2.Vec) (int, bool) {
	space := spaceOf(w)
	if space == nil {
		return 0, false
	}

	px, py := p.X*pickScale, p.Y*pickScale
	cursor := resolv.NewObject(px, py, 1, 1, tags.ResolvCursor)
	space.Add(cursor)
	defer space.Remove(cursor)

	collision := cursor.Check(0, 0, tags.ResolvAgent)
	if collision == nil {
		return 0, false
	}

	best, found := 0, false
	bestDist := 0.0
	for _, obj := range collision.ObjectsByTags(tags.ResolvAgent) {
		if px < obj.X || px > obj.X+obj.W || py < obj.Y || py > obj.Y+obj.H {
			continue
		}
		id, ok := obj.Data.(int)
		if !ok {
			continue
		}
		cx, cy := obj.X+obj.W/2, obj.Y+obj.H/2
		dist := (cx-px)*(cx-px) + (cy-py)*(cy-py)
		if !found || dist < bestDist {
			best, bestDist, found = id, dist, true
		}
	}
	return best, found
}

// PickOrClear selects the agent under p, or clears the selection when there
// is none.
func PickOrClear(w donburi.World, p r2.Vec) {
	if id, ok := PickAt(w, p); ok {
		Select(w, id)
		return
	}
	ClearSelection(w)
}
