package components

import "github.com/yohamta/donburi"

type SelectionData struct {
	ID     int
	Active bool
}

var Selection = donburi.NewComponentType[SelectionData]()
