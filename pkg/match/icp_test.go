package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-obviously/slam2d/internal/vecmat"
)

func TestIterateConvergesOnKnownRigidOffset(t *testing.T) {
	// Model is a ring of points; scene is the model under an inverse small
	// rigid transform, so the recovered accumulated transform should bring
	// scene back onto model.
	modelPoints := []vecmat.Vector{
		vecmat.V(0, 0), vecmat.V(1, 0), vecmat.V(1, 1), vecmat.V(0, 1),
		vecmat.V(0.5, 0.5), vecmat.V(2, 0), vecmat.V(0, 2), vecmat.V(2, 2),
	}
	theta := 0.05
	translation := vecmat.V(0.1, -0.05)
	truth := vecmat.FromRT(theta, translation)
	invTruth := truth.Inverse()

	scenePoints := make([]vecmat.Vector, len(modelPoints))
	for i, m := range modelPoints {
		scenePoints[i] = invTruth.Transform(m)
	}

	model := fakePointSet{points: modelPoints}
	scene := fakePointSet{points: scenePoints}

	cfg := Config{MaxIterations: 50, MaxRMS: 1e-8, ConvergenceCounter: 3}
	result := Iterate(model, scene, vecmat.Identity(), NewKDTreeAssign(2), ClosedForm2D{}, nil, nil, cfg)

	require.NotEqual(t, TerminationRankDeficient, result.Outcome)
	for i, s := range scenePoints {
		got := result.Transform.Transform(s)
		assert.InDelta(t, modelPoints[i].X, got.X, 0.05)
		assert.InDelta(t, modelPoints[i].Y, got.Y, 0.05)
	}
}

func TestIterateReturnsRankDeficientWithTooFewModelPoints(t *testing.T) {
	model := fakePointSet{points: []vecmat.Vector{vecmat.V(0, 0)}}
	scene := fakePointSet{points: []vecmat.Vector{vecmat.V(0, 0), vecmat.V(1, 0)}}

	cfg := Config{MaxIterations: 5, MaxRMS: 1e-9, ConvergenceCounter: 2}
	result := Iterate(model, scene, vecmat.Identity(), NewKDTreeAssign(2), ClosedForm2D{}, nil, nil, cfg)
	assert.Equal(t, TerminationRankDeficient, result.Outcome)
}

func TestIterateAppliesPreAndPostFilters(t *testing.T) {
	modelPoints := []vecmat.Vector{vecmat.V(0, 0), vecmat.V(1, 0), vecmat.V(0, 1)}
	scenePoints := []vecmat.Vector{vecmat.V(0, 0), vecmat.V(1, 0), vecmat.V(0, 1), vecmat.V(100, 100)}

	model := fakePointSet{points: modelPoints}
	scene := fakePointSet{points: scenePoints}

	pre := OutOfBoundsFilter2D{MinX: -1, MinY: -1, MaxX: 10, MaxY: 10}
	post := DistanceFilter{InitialThreshold: 0.5, Decay: 1.0, MinThreshold: 0.5}

	cfg := Config{MaxIterations: 10, MaxRMS: 1e-9, ConvergenceCounter: 2}
	result := Iterate(model, scene, vecmat.Identity(), NewKDTreeAssign(2), ClosedForm2D{}, []PairFilter{pre}, []PairFilter{post}, cfg)

	assert.NotEqual(t, TerminationRankDeficient, result.Outcome, "the three well-matched points should survive filtering and produce a usable estimate")
}
