// Package match implements the capability-set redesign of spec.md §9: a
// PairAssign interface (nearest-neighbor matching), a PairFilter interface
// (pre- and post-assignment rejection), and a RigidEstimator interface
// (closed-form rigid 2D fit), composed by the ICP driver. Grounded on the
// teacher's k-d tree (itohio/EasyRobot x/math/graph/kd_tree.go) for
// nearest-neighbor search, generalized from the teacher's polymorphic
// filter/estimator hierarchy (spec.md §9 "polymorphic hierarchies →
// capability sets") into small Go interfaces with a handful of
// interchangeable implementations.
package match

import "github.com/go-obviously/slam2d/internal/vecmat"

// Pair is a candidate correspondence between a scene point and a model
// point. ModelIdx is -1 before assignment runs (the pre-filter stage
// only has a scene point to judge).
type Pair struct {
	SceneIdx int
	ModelIdx int
	Scene    vecmat.Vector
	Model    vecmat.Vector

	ModelNormal vecmat.Vector
	HasNormal   bool

	DistSqr float64
}

// PairAssign matches each (pre-filtered) scene point to its nearest model
// point (spec.md §4.5 step 2, §9).
type PairAssign interface {
	Assign(scenePairs []Pair, model PointSet) []Pair
}

// PairFilter rejects pairs, pre- or post-assignment (spec.md §4.5 steps 1
// and 2, §9).
type PairFilter interface {
	Filter(pairs []Pair, iteration int) []Pair
}

// RigidEstimator fits a rigid 2D transform to a set of pairs (spec.md
// §4.5 step 3, §9).
type RigidEstimator interface {
	Estimate(pairs []Pair) (transform vecmat.Pose2D, rms float64, err error)
}

// PointSet is the slice of sensor.Scan the assigner needs: valid points
// and, optionally, per-point normals. Declared here rather than imported
// from pkg/sensor so pkg/match has no dependency on it.
type PointSet interface {
	Len() int
	Point(i int) vecmat.Vector
	Valid(i int) bool
	Normal(i int) (vecmat.Vector, bool)
}

// ScenePairsFromPoints builds the initial, unassigned pair list from a
// transformed scene point set — the input to the pre-filter stage.
func ScenePairsFromPoints(points []vecmat.Vector, valid []bool) []Pair {
	out := make([]Pair, 0, len(points))
	for i, p := range points {
		if valid != nil && i < len(valid) && !valid[i] {
			continue
		}
		out = append(out, Pair{SceneIdx: i, ModelIdx: -1, Scene: p})
	}
	return out
}
