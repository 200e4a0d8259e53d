package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-obviously/slam2d/internal/vecmat"
)

func TestClosedForm2DRecoversKnownRigidTransform(t *testing.T) {
	theta := 0.2
	translation := vecmat.V(1.5, -0.7)
	truth := vecmat.FromRT(theta, translation)

	scenePoints := []vecmat.Vector{
		vecmat.V(0, 0), vecmat.V(1, 0), vecmat.V(0, 1), vecmat.V(2, 3), vecmat.V(-1, 2),
	}
	pairs := make([]Pair, len(scenePoints))
	for i, s := range scenePoints {
		pairs[i] = Pair{SceneIdx: i, ModelIdx: i, Scene: s, Model: truth.Transform(s)}
	}

	est := ClosedForm2D{}
	transform, rms, err := est.Estimate(pairs)
	require.NoError(t, err)
	assert.InDelta(t, 0, rms, 1e-6)
	assert.InDelta(t, theta, transform.Rotation(), 1e-6)
	assert.InDelta(t, translation.X, transform.Translation().X, 1e-6)
	assert.InDelta(t, translation.Y, transform.Translation().Y, 1e-6)
}

func TestClosedForm2DRankDeficientBelowThreePairs(t *testing.T) {
	est := ClosedForm2D{}
	pairs := []Pair{
		{Scene: vecmat.V(0, 0), Model: vecmat.V(0, 0)},
		{Scene: vecmat.V(1, 0), Model: vecmat.V(1, 0)},
	}
	_, _, err := est.Estimate(pairs)
	assert.ErrorIs(t, err, ErrRankDeficient)
}

func TestPointToLine2DRecoversSmallRigidTransform(t *testing.T) {
	// Point-to-line linearizes around identity, so keep the ground-truth
	// transform small for the closed-form solve to be near-exact.
	theta := 0.02
	translation := vecmat.V(0.05, -0.03)
	truth := vecmat.FromRT(theta, translation)

	// A square-ish model with outward normals, dense enough for rank 3.
	type pt struct {
		p, n vecmat.Vector
	}
	model := []pt{
		{vecmat.V(0, 0), vecmat.V(0, -1)},
		{vecmat.V(1, 0), vecmat.V(1, 0)},
		{vecmat.V(1, 1), vecmat.V(0, 1)},
		{vecmat.V(0, 1), vecmat.V(-1, 0)},
		{vecmat.V(0.5, 0), vecmat.V(0, -1)},
	}

	invTruth := truth.Inverse()
	pairs := make([]Pair, len(model))
	for i, m := range model {
		scene := invTruth.Transform(m.p)
		pairs[i] = Pair{SceneIdx: i, ModelIdx: i, Scene: scene, Model: m.p, ModelNormal: m.n, HasNormal: true}
	}

	est := PointToLine2D{}
	transform, _, err := est.Estimate(pairs)
	require.NoError(t, err)
	assert.InDelta(t, theta, transform.Rotation(), 5e-3)
	assert.InDelta(t, translation.X, transform.Translation().X, 5e-3)
	assert.InDelta(t, translation.Y, transform.Translation().Y, 5e-3)
}

func TestPointToLine2DRankDeficientWithoutNormals(t *testing.T) {
	est := PointToLine2D{}
	pairs := []Pair{
		{Scene: vecmat.V(0, 0), Model: vecmat.V(0, 0)},
		{Scene: vecmat.V(1, 0), Model: vecmat.V(1, 0)},
		{Scene: vecmat.V(0, 1), Model: vecmat.V(0, 1)},
	}
	_, _, err := est.Estimate(pairs)
	assert.ErrorIs(t, err, ErrRankDeficient)
}

func TestRmsOfZeroForExactTransform(t *testing.T) {
	pairs := []Pair{
		{Scene: vecmat.V(1, 1), Model: vecmat.V(1, 1)},
		{Scene: vecmat.V(2, 2), Model: vecmat.V(2, 2)},
	}
	rms := rmsOf(pairs, vecmat.Identity())
	assert.InDelta(t, 0, rms, 1e-12)
}

func TestRmsOfNonZeroForOffsetTransform(t *testing.T) {
	pairs := []Pair{
		{Scene: vecmat.V(0, 0), Model: vecmat.V(3, 4)},
	}
	rms := rmsOf(pairs, vecmat.Identity())
	assert.InDelta(t, 5, rms, 1e-9)
}
