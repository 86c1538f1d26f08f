package systems

import (
	"github.com/automoto/herdview/archetypes"
	"github.com/automoto/herdview/components"
	"github.com/yohamta/donburi"
)

func selectionEntry(w donburi.World) *donburi.Entry {
	entry, ok := components.Selection.First(w)
	if !ok {
		entry = archetypes.Selection.Spawn(w)
	}
	return entry
}

// Selected returns the selected entity id.
func Selected(w donburi.World) (int, bool) {
	entry, ok := components.Selection.First(w)
	if !ok {
		return 0, false
	}
	sel := components.Selection.Get(entry)
	return sel.ID, sel.Active
}

// Select marks id as selected.
func Select(w donburi.World, id int) {
	components.Selection.SetValue(selectionEntry(w), components.SelectionData{ID: id, Active: true})
}

// ClearSelection deselects.
func ClearSelection(w donburi.World) {
	components.Selection.SetValue(selectionEntry(w), components.SelectionData{})
}

// CycleSelection moves the selection step places through ids, which must be
// sorted, wrapping at either end. With nothing selected, a forward step picks
// the first id and a backward step the last.
func CycleSelection(w donburi.World, ids []int, step int) {
	if len(ids) == 0 || step == 0 {
		return
	}

	current := -1
	if id, ok := Selected(w); ok {
		for i, v := range ids {
			if v == id {
				current = i
				break
			}
		}
	}

	var next int
	switch {
	case current == -1 && step > 0:
		next = 0
	case current == -1:
		next = len(ids) - 1
	default:
		n := len(ids)
		next = ((current+step)%n + n) % n
	}
	Select(w, ids[next])
}

// ClearSelectionIfGone drops the selection when its id is no longer present.
func ClearSelectionIfGone(w donburi.World, present map[int]bool) {
	if id, ok := Selected(w); ok && !present[id] {
		ClearSelection(w)
	}
}
