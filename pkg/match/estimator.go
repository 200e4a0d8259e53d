package match

import (
	"errors"
	"math"

	"github.com/go-obviously/slam2d/internal/vecmat"
)

// ErrRankDeficient is returned by a RigidEstimator when fewer than 3 pairs
// survive filtering (spec.md §4.5, §7.4).
var ErrRankDeficient = errors.New("match: fewer than 3 pairs, rank deficient")

const minPairsForEstimate = 3

// ClosedForm2D is the closed-form rigid 2D point-to-point estimator of
// spec.md §4.5: centroid-subtract both sets, take the 2×2
// cross-covariance, recover rotation via atan2, then translation from the
// centroid difference under that rotation.
type ClosedForm2D struct{}

func (ClosedForm2D) Estimate(pairs []Pair) (vecmat.Pose2D, float64, error) {
	if len(pairs) < minPairsForEstimate {
		return vecmat.Pose2D{}, 0, ErrRankDeficient
	}

	var sceneCentroid, modelCentroid vecmat.Vector
	for _, p := range pairs {
		sceneCentroid = sceneCentroid.Add(p.Scene)
		modelCentroid = modelCentroid.Add(p.Model)
	}
	n := float64(len(pairs))
	sceneCentroid = sceneCentroid.Scale(1 / n)
	modelCentroid = modelCentroid.Scale(1 / n)

	var h00, h01, h10, h11 float64
	for _, p := range pairs {
		sc := p.Scene.Sub(sceneCentroid)
		mc := p.Model.Sub(modelCentroid)
		h00 += sc.X * mc.X
		h01 += mc.X * sc.Y
		h10 += mc.Y * sc.X
		h11 += sc.Y * mc.Y
	}

	theta := math.Atan2(h10-h01, h00+h11)
	transform := vecmat.FromRT(theta, vecmat.Vector{})
	translation := modelCentroid.Sub(transform.TransformDir(sceneCentroid))
	transform.M[0][2] = translation.X
	transform.M[1][2] = translation.Y

	rms := rmsOf(pairs, transform)
	return transform, rms, nil
}

// PointToLine2D minimizes point-to-line residuals using the model's
// per-point normals (spec.md §4.5): for small incremental rotations it
// linearizes the residual n·(T(s) − m) around the identity and solves the
// resulting 3×3 normal-equations system for (theta, tx, ty).
type PointToLine2D struct{}

func (PointToLine2D) Estimate(pairs []Pair) (vecmat.Pose2D, float64, error) {
	usable := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		if p.HasNormal {
			usable = append(usable, p)
		}
	}
	if len(usable) < minPairsForEstimate {
		return vecmat.Pose2D{}, 0, ErrRankDeficient
	}

	// Jacobian row per pair for residual r = n·(s + theta*perp(s) + t - m):
	// [n·perp(s), n.X, n.Y] with target -n·(s-m).
	a := make([][]float64, len(usable))
	b := make([]float64, len(usable))
	for i, p := range usable {
		perp := vecmat.V(-p.Scene.Y, p.Scene.X)
		n := p.ModelNormal
		a[i] = []float64{n.Dot(perp), n.X, n.Y}
		b[i] = -n.Dot(p.Scene.Sub(p.Model))
	}

	// Normal equations: (A^T A) x = A^T b, 3x3.
	var ata [3][3]float64
	var atb [3]float64
	for i := range a {
		for r := 0; r < 3; r++ {
			atb[r] += a[i][r] * b[i]
			for c := 0; c < 3; c++ {
				ata[r][c] += a[i][r] * a[i][c]
			}
		}
	}
	rows := make([][]float64, 3)
	for r := 0; r < 3; r++ {
		rows[r] = []float64{ata[r][0], ata[r][1], ata[r][2]}
	}
	x, err := vecmat.SolveSmall(rows, atb[:])
	if err != nil {
		return vecmat.Pose2D{}, 0, ErrRankDeficient
	}

	transform := vecmat.FromRT(x[0], vecmat.V(x[1], x[2]))
	rms := rmsOf(usable, transform)
	return transform, rms, nil
}

// rmsOf computes the RMS of |transform(Scene) - Model| over pairs.
func rmsOf(pairs []Pair, transform vecmat.Pose2D) float64 {
	if len(pairs) == 0 {
		return 0
	}
	var sumSqr float64
	for _, p := range pairs {
		sumSqr += transform.Transform(p.Scene).DistanceSqr(p.Model)
	}
	return math.Sqrt(sumSqr / float64(len(pairs)))
}

var (
	_ RigidEstimator = ClosedForm2D{}
	_ RigidEstimator = PointToLine2D{}
)
