package world

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSnapshot = `{"id":1,"width":30,"height":20,
"navigation_grid":[[true,false],[true,true]],
"static_obstacles":{"walls":[{"type":"wall","position":{"x":1,"y":1}}],"water_sources":[{"type":"water_source","position":{"x":4,"y":2}}],"food_sources":[],"rest_areas":null},
"entities":[
 {"id":7,"type":"goat","position":{"x":2.5,"y":3},"state":"roaming","direction":{"x":0,"y":2},"stats":{"hunger":30,"thirst":25,"tiredness":20}},
 {"id":3,"type":"wolf","position":{"x":9,"y":9},"state":"idle","direction":{"x":1,"y":0},"target_pos":{"x":10,"y":9},"stats":{"hunger":1,"thirst":2,"tiredness":3}}
],
"config":{"tps":10}}`

func TestDecodeSnapshot(t *testing.T) {
	s, err := Decode([]byte(sampleSnapshot))
	require.NoError(t, err)

	assert.Equal(t, 1, s.ID)
	assert.Equal(t, 30.0, s.Width)
	assert.Equal(t, 20.0, s.Height)
	assert.Equal(t, 10, s.Config.TPS)
	assert.Zero(t, s.Seq)
	require.Len(t, s.Entities, 2)
	assert.Equal(t, EntityTypeGoat, s.Entities[0].Type)
	assert.Equal(t, Vector2D{X: 0, Y: 2}, s.Entities[0].Direction)
	assert.Nil(t, s.Entities[0].TargetPos)
	require.NotNil(t, s.Entities[1].TargetPos)
	assert.Equal(t, 25, s.Entities[0].Stats.Thirst)
	assert.Len(t, s.StaticObstacles.All(), 2)
	assert.False(t, s.NavigationGrid[0][1])
}

func TestDecodeRejectsBadFrames(t *testing.T) {
	_, err := Decode([]byte("   \n"))
	assert.ErrorIs(t, err, ErrEmptyPayload)

	_, err = Decode([]byte(`{"id":1,"entities":[`))
	assert.Error(t, err)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestDecodeRejectsNonSnapshotJSON(t *testing.T) {
	for _, frame := range []string{
		`null`,
		`{"type":"ping"}`,
		`{"id":4,"width":10,"height":10}`,
		`{"id":4,"entities":null}`,
	} {
		s, err := Decode([]byte(frame))
		assert.ErrorIs(t, err, ErrNotSnapshot, frame)
		assert.Nil(t, s, frame)
	}

	s, err := Decode([]byte(`{"id":5,"entities":[]}`))
	require.NoError(t, err, "an empty herd is still a snapshot")
	assert.Empty(t, s.Entities)
}

func TestDecodeCountsSanitizedEntities(t *testing.T) {
	s, err := Decode([]byte(`{"id":1,"entities":[{"id":2,"position":{"x":1,"y":1}},{"id":2,"position":{"x":5,"y":5}}]}`))
	require.NoError(t, err)
	assert.Len(t, s.Entities, 1)
	assert.Equal(t, 1, s.Sanitized)

	s, err = Decode([]byte(sampleSnapshot))
	require.NoError(t, err)
	assert.Zero(t, s.Sanitized)
}

func TestEncodeWritesEmptyEntityList(t *testing.T) {
	line, err := Encode(&State{ID: 9})
	require.NoError(t, err)
	assert.Contains(t, string(line), `"entities":[]`)
	assert.NotContains(t, string(line), "Sanitized")

	s, err := Decode(line)
	require.NoError(t, err)
	assert.Equal(t, 9, s.ID)
}

func TestSanitizeDropsMalformedEntities(t *testing.T) {
	s := &State{Entities: []Entity{
		{ID: 1, Position: Vector2D{X: 1, Y: 1}},
		{ID: 2, Position: Vector2D{X: math.NaN(), Y: 0}},
		{ID: 3, Direction: Vector2D{X: math.Inf(1)}},
		{ID: 1, Position: Vector2D{X: 5, Y: 5}},
		{ID: 4},
	}}

	dropped := Sanitize(s)

	assert.Equal(t, 3, dropped)
	require.Len(t, s.Entities, 2)
	assert.Equal(t, 1, s.Entities[0].ID)
	assert.Equal(t, Vector2D{X: 1, Y: 1}, s.Entities[0].Position, "first occurrence wins")
	assert.Equal(t, 4, s.Entities[1].ID)
	assert.Zero(t, Sanitize(nil))
}

func TestParseLogSkipsBadLines(t *testing.T) {
	log := strings.Join([]string{
		`{"id":1,"entities":[{"id":1,"position":{"x":0,"y":0}}]}`,
		``,
		`{"broken":`,
		`   `,
		`{"id":1,"entities":[{"id":1,"position":{"x":1,"y":0}}]}` + "\r",
		`garbage`,
		`null`,
		`{"type":"ping"}`,
	}, "\n")

	states, skipped, err := ParseLog(strings.NewReader(log))
	require.NoError(t, err)
	assert.Equal(t, 4, skipped)
	require.Len(t, states, 2)
	assert.Equal(t, 1.0, states[1].Entities[0].Position.X)
}

func TestEncodeRoundTripsThroughParseLog(t *testing.T) {
	in := &State{ID: 1, Seq: 9, Width: 5, Height: 5, Entities: []Entity{{ID: 2, Type: EntityTypeWolf}}}
	line, err := Encode(in)
	require.NoError(t, err)
	assert.NotContains(t, string(line), "\n")

	states, skipped, err := ParseLog(strings.NewReader(string(line) + "\n"))
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, states, 1)
	assert.Equal(t, uint64(9), states[0].Seq)
	assert.Equal(t, EntityTypeWolf, states[0].Entities[0].Type)
}

func TestEntityLookupAndSortedIDs(t *testing.T) {
	s, err := Decode([]byte(sampleSnapshot))
	require.NoError(t, err)

	assert.Equal(t, []int{3, 7}, s.SortedIDs())
	require.NotNil(t, s.EntityByID(7))
	assert.Equal(t, EntityStateRoaming, s.EntityByID(7).State)
	assert.Nil(t, s.EntityByID(99))

	var nilState *State
	assert.Nil(t, nilState.EntityByID(1))
	assert.Nil(t, nilState.SortedIDs())
}

func TestWithSeqCopies(t *testing.T) {
	s := &State{ID: 1, Seq: 1}
	stamped := s.WithSeq(42)
	assert.Equal(t, uint64(42), stamped.Seq)
	assert.Equal(t, uint64(1), s.Seq)
}

func TestObstaclesTakeListKind(t *testing.T) {
	o := StaticObstacles{
		Walls:        []StaticObstacle{{Position: Vector2D{X: 1}}},
		WaterSources: []StaticObstacle{{Type: "pond", Position: Vector2D{X: 2}}},
		RestAreas:    []StaticObstacle{{Position: Vector2D{X: 3}}},
	}
	all := o.All()
	require.Len(t, all, 3)
	assert.Equal(t, ObstacleTypeWall, all[0].Type)
	assert.Equal(t, ObstacleType("pond"), all[1].Type, "explicit label kept")
	assert.Equal(t, ObstacleTypeRestArea, all[2].Type)
	assert.Empty(t, o.Walls[0].Type, "source lists are not modified")
}
