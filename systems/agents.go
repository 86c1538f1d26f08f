package systems

import (
	"github.com/automoto/herdview/archetypes"
	"github.com/automoto/herdview/components"
	"github.com/automoto/herdview/config"
	"github.com/automoto/herdview/network"
	"github.com/automoto/herdview/tags"
	"github.com/solarlune/resolv"
	"github.com/yohamta/donburi"
	"gonum.org/v1/gonum/spatial/r2"
)

// pickScale is pick-space units per world unit; one resolv cell per world unit.
const pickScale = 16

// AgentSync keeps one agent entity per pose id. It is the viewer's own
// registry and never references interpolator tracks.
type AgentSync struct {
	index      map[int]donburi.Entity
	presentIDs map[int]bool
}

func NewAgentSync() *AgentSync {
	return &AgentSync{
		index:      make(map[int]donburi.Entity),
		presentIDs: make(map[int]bool),
	}
}

// Apply creates agents for new ids, moves existing ones and removes agents
// whose id is missing from poses. A missing id is not an error.
func (s *AgentSync) Apply(w donburi.World, poses []network.Pose) {
	clear(s.presentIDs)
	space := spaceOf(w)

	for _, p := range poses {
		s.presentIDs[p.ID] = true

		entity, ok := s.index[p.ID]
		if !ok || !w.Valid(entity) {
			entry := archetypes.Agent.Spawn(w)
			entity = entry.Entity()
			s.index[p.ID] = entity

			size := config.View.EntitySize * pickScale
			obj := resolv.NewObject(0, 0, size, size, tags.ResolvAgent)
			obj.Data = p.ID
			components.Object.SetValue(entry, components.ObjectData{Object: obj})
			if space != nil {
				space.Add(obj)
			}
		}

		entry := w.Entry(entity)
		agent := components.Agent.Get(entry)
		agent.ID = p.ID
		agent.Type = p.Type
		agent.State = p.State
		agent.Position = p.Position
		agent.Facing = p.Direction

		obj := components.Object.Get(entry)
		centre := VisualCentre(p.Position)
		obj.X = centre.X*pickScale - obj.W/2
		obj.Y = centre.Y*pickScale - obj.H/2
		obj.Update()
	}

	for id, entity := range s.index {
		if s.presentIDs[id] {
			continue
		}
		delete(s.index, id)
		if !w.Valid(entity) {
			continue
		}
		entry := w.Entry(entity)
		if obj := components.Object.Get(entry); obj.Object != nil && obj.Space != nil {
			obj.Space.Remove(obj.Object)
		}
		entry.Remove()
	}

	ClearSelectionIfGone(w, s.presentIDs)
}

// VisualCentre is where an agent at world position p is drawn: the centre of
// the grid cell whose corner is p.
func VisualCentre(p r2.Vec) r2.Vec {
	return r2.Vec{X: p.X + 0.5, Y: p.Y + 0.5}
}

// Entity returns the agent entity for id.
func (s *AgentSync) Entity(id int) (donburi.Entity, bool) {
	e, ok := s.index[id]
	return e, ok
}

// Len returns the number of agents in the registry.
func (s *AgentSync) Len() int {
	return len(s.index)
}

// EnsureSpace sizes the pick space to the world. When the size changes the
// space is rebuilt and every agent shape is moved into it.
func EnsureSpace(w donburi.World, width, height int) *resolv.Space {
	if width <= 0 || height <= 0 {
		return spaceOf(w)
	}
	// One spare cell absorbs agents dead-reckoned just past the edge.
	cols, rows := width+1, height+1

	entry, ok := components.Space.First(w)
	if !ok {
		entry = archetypes.Space.Spawn(w)
	} else if space := components.Space.Get(entry); space.Width() == cols && space.Height() == rows {
		return space
	}

	space := resolv.NewSpace(cols*pickScale, rows*pickScale, pickScale, pickScale)
	components.Space.Set(entry, space)
	components.Object.Each(w, func(e *donburi.Entry) {
		obj := components.Object.Get(e)
		if obj.Object == nil {
			return
		}
		if obj.Space != nil {
			obj.Space.Remove(obj.Object)
		}
		space.Add(obj.Object)
	})
	return space
}

func spaceOf(w donburi.World) *resolv.Space {
	entry, ok := components.Space.First(w)
	if !ok {
		return nil
	}
	return components.Space.Get(entry)
}
