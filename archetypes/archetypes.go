package archetypes

import (
	"github.com/automoto/herdview/components"
	"github.com/automoto/herdview/tags"
	"github.com/yohamta/donburi"
)

var (
	Agent = newArchetype(
		tags.Agent,
		components.Agent,
		components.Object,
	)
	Space = newArchetype(
		components.Space,
	)
	Camera = newArchetype(
		components.Camera,
	)
	Selection = newArchetype(
		components.Selection,
	)
	Overview = newArchetype(
		components.Overview,
	)
)

type archetype struct {
	components []donburi.IComponentType
}

func newArchetype(cs ...donburi.IComponentType) *archetype {
	return &archetype{
		components: cs,
	}
}

func (a *archetype) Spawn(w donburi.World, cs ...donburi.IComponentType) *donburi.Entry {
	all := make([]donburi.IComponentType, 0, len(a.components)+len(cs))
	all = append(all, a.components...)
	all = append(all, cs...)
	return w.Entry(w.Create(all...))
}
