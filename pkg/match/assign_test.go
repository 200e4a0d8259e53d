package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-obviously/slam2d/internal/vecmat"
)

func TestKDTreeAssignFindsNearestModelPoint(t *testing.T) {
	model := fakePointSet{points: []vecmat.Vector{vecmat.V(0, 0), vecmat.V(10, 10), vecmat.V(5, 5)}}
	scene := ScenePairsFromPoints([]vecmat.Vector{vecmat.V(4.9, 5.1)}, nil)

	assigner := NewKDTreeAssign(2)
	out := assigner.Assign(scene, model)
	require.Len(t, out, 1)
	assert.Equal(t, 2, out[0].ModelIdx)
	assert.Equal(t, vecmat.V(5, 5), out[0].Model)
}

func TestKDTreeAssignBelowMinPointsReturnsNil(t *testing.T) {
	model := fakePointSet{points: []vecmat.Vector{vecmat.V(0, 0)}}
	scene := ScenePairsFromPoints([]vecmat.Vector{vecmat.V(0, 0)}, nil)

	assigner := NewKDTreeAssign(2)
	out := assigner.Assign(scene, model)
	assert.Nil(t, out)
}

func TestKDTreeAssignSkipsInvalidModelPoints(t *testing.T) {
	model := fakePointSet{
		points: []vecmat.Vector{vecmat.V(0, 0), vecmat.V(1, 1)},
		valid:  []bool{false, true},
	}
	scene := ScenePairsFromPoints([]vecmat.Vector{vecmat.V(0, 0)}, nil)

	assigner := NewKDTreeAssign(1)
	out := assigner.Assign(scene, model)
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].ModelIdx, "the invalid model point at index 0 must never be assigned")
}

func TestKDTreeAssignCarriesModelNormals(t *testing.T) {
	model := fakePointSet{
		points:  []vecmat.Vector{vecmat.V(0, 0)},
		normals: []vecmat.Vector{vecmat.V(1, 0)},
	}
	scene := ScenePairsFromPoints([]vecmat.Vector{vecmat.V(0.1, 0)}, nil)

	assigner := NewKDTreeAssign(1)
	out := assigner.Assign(scene, model)
	require.Len(t, out, 1)
	assert.True(t, out[0].HasNormal)
	assert.Equal(t, vecmat.V(1, 0), out[0].ModelNormal)
}
