package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-obviously/slam2d/internal/vecmat"
)

func TestScenePairsFromPointsSkipsInvalid(t *testing.T) {
	points := []vecmat.Vector{vecmat.V(1, 1), vecmat.V(2, 2), vecmat.V(3, 3)}
	valid := []bool{true, false, true}

	pairs := ScenePairsFromPoints(points, valid)
	require.Len(t, pairs, 2)
	assert.Equal(t, 0, pairs[0].SceneIdx)
	assert.Equal(t, 2, pairs[1].SceneIdx)
	for _, p := range pairs {
		assert.Equal(t, -1, p.ModelIdx)
	}
}

func TestScenePairsFromPointsNilValidKeepsAll(t *testing.T) {
	points := []vecmat.Vector{vecmat.V(1, 1), vecmat.V(2, 2)}
	pairs := ScenePairsFromPoints(points, nil)
	assert.Len(t, pairs, 2)
}
