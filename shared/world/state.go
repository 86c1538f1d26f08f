// Package world defines the snapshot wire model published by the simulation
// server. It must have zero dependencies on ebiten or any rendering library so
// the relay and recorder binaries stay headless.
package world

import "sort"

// EntityType labels the kind of agent. Values are opaque to the viewer.
type EntityType string

// EntityState labels the behavioural state of an agent.
type EntityState string

// ObstacleType labels a static obstacle cell.
type ObstacleType string

const (
	EntityTypeGoat  EntityType = "goat"
	EntityTypeWolf  EntityType = "wolf"
	EntityTypeAgent EntityType = "agent"

	EntityStateIdle      EntityState = "idle"
	EntityStateRoaming   EntityState = "roaming"
	EntityStateMoving    EntityState = "moving"
	EntityStateEating    EntityState = "eating"
	EntityStateDrinking  EntityState = "drinking"
	EntityStateResting   EntityState = "resting"
	EntityStateSearching EntityState = "searching"

	ObstacleTypeWall        ObstacleType = "wall"
	ObstacleTypeWaterSource ObstacleType = "water_source"
	ObstacleTypeFoodSource  ObstacleType = "food_source"
	ObstacleTypeRestArea    ObstacleType = "rest_area"
)

type Vector2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vector2D) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// Stats are auxiliary per-entity readings shown by the HUD.
type Stats struct {
	Hunger    int `json:"hunger"`
	Thirst    int `json:"thirst"`
	Tiredness int `json:"tiredness"`
}

type Entity struct {
	ID        int         `json:"id"`
	Type      EntityType  `json:"type"`
	Position  Vector2D    `json:"position"`
	State     EntityState `json:"state"`
	Direction Vector2D    `json:"direction"` // not guaranteed unit length
	TargetPos *Vector2D   `json:"target_pos,omitempty"`
	Stats     Stats       `json:"stats"`
}

type StaticObstacle struct {
	Type     ObstacleType `json:"type"`
	Position Vector2D     `json:"position"`
	Size     *Vector2D    `json:"size,omitempty"`
}

type StaticObstacles struct {
	Walls        []StaticObstacle `json:"walls"`
	WaterSources []StaticObstacle `json:"water_sources"`
	FoodSources  []StaticObstacle `json:"food_sources"`
	RestAreas    []StaticObstacle `json:"rest_areas"`
}

// All returns every obstacle regardless of kind. Obstacles without a type
// label take the kind of the list they came from.
func (o StaticObstacles) All() []StaticObstacle {
	out := make([]StaticObstacle, 0, len(o.Walls)+len(o.WaterSources)+len(o.FoodSources)+len(o.RestAreas))
	add := func(kind ObstacleType, list []StaticObstacle) {
		for _, ob := range list {
			if ob.Type == "" {
				ob.Type = kind
			}
			out = append(out, ob)
		}
	}
	add(ObstacleTypeWall, o.Walls)
	add(ObstacleTypeWaterSource, o.WaterSources)
	add(ObstacleTypeFoodSource, o.FoodSources)
	add(ObstacleTypeRestArea, o.RestAreas)
	return out
}

// Config carries server hints. TPS is informational only.
type Config struct {
	TPS int `json:"tps"`
}

// State is one authoritative world snapshot. It is treated as immutable once
// received.
type State struct {
	ID              int             `json:"id"`
	Seq             uint64          `json:"seq,omitempty"`
	Width           float64         `json:"width"`
	Height          float64         `json:"height"`
	NavigationGrid  [][]bool        `json:"navigation_grid"` // true = walkable
	StaticObstacles StaticObstacles `json:"static_obstacles"`
	Entities        []Entity        `json:"entities"`
	Config          Config          `json:"config"`

	// Sanitized counts entity entries Decode removed. Not part of the wire.
	Sanitized int `json:"-"`
}

// EntityByID returns the entity with the given id, or nil.
func (s *State) EntityByID(id int) *Entity {
	if s == nil {
		return nil
	}
	for i := range s.Entities {
		if s.Entities[i].ID == id {
			return &s.Entities[i]
		}
	}
	return nil
}

// SortedIDs returns the entity ids in ascending order.
func (s *State) SortedIDs() []int {
	if s == nil {
		return nil
	}
	ids := make([]int, 0, len(s.Entities))
	for _, e := range s.Entities {
		ids = append(ids, e.ID)
	}
	sort.Ints(ids)
	return ids
}

// WithSeq returns a shallow copy of s stamped with seq. Entities and layout are
// shared with the original.
func (s *State) WithSeq(seq uint64) *State {
	cp := *s
	cp.Seq = seq
	return &cp
}
