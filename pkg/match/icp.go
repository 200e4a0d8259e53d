package match

import (
	"math"

	"github.com/go-obviously/slam2d/internal/vecmat"
)

// Termination is the ICP driver's stopping reason (spec.md §7.4).
type Termination int

const (
	TerminationConverged Termination = iota
	TerminationMaxIterations
	TerminationRMSThresholdMet
	TerminationRankDeficient
)

func (t Termination) String() string {
	switch t {
	case TerminationConverged:
		return "CONVERGED"
	case TerminationMaxIterations:
		return "MAX_ITERATIONS"
	case TerminationRMSThresholdMet:
		return "RMS_THRESHOLD_MET"
	case TerminationRankDeficient:
		return "RANK_DEFICIENT"
	default:
		return "UNKNOWN"
	}
}

// Config holds the ICP driver's termination criteria (spec.md §4.5).
type Config struct {
	MaxIterations      int
	MaxRMS             float64
	ConvergenceCounter int // iterations of unchanged (pair count, RMS) before declaring convergence
}

// Result is the outcome of a full ICP run.
type Result struct {
	Transform  vecmat.Pose2D
	RMS        float64
	Iterations int
	Outcome    Termination
}

// Iterate runs the ICP driver of spec.md §4.5: pre-filter the (repeatedly
// re-transformed) scene, assign nearest-neighbor pairs, post-filter,
// estimate an incremental transform, compose it onto the running
// estimate, and check termination. initial defaults to Identity when the
// zero value is passed.
func Iterate(model PointSet, scene PointSet, initial vecmat.Pose2D, assign PairAssign, estimator RigidEstimator, preFilters, postFilters []PairFilter, cfg Config) Result {
	if initial == (vecmat.Pose2D{}) {
		initial = vecmat.Identity()
	}
	accum := initial

	scenePoints := make([]vecmat.Vector, scene.Len())
	sceneValid := make([]bool, scene.Len())
	for i := 0; i < scene.Len(); i++ {
		scenePoints[i] = scene.Point(i)
		sceneValid[i] = scene.Valid(i)
	}

	prevRMS := math.Inf(1)
	prevCount := -1
	convergeStreak := 0

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		transformed := make([]vecmat.Vector, len(scenePoints))
		for i, p := range scenePoints {
			transformed[i] = accum.Transform(p)
		}

		pairs := ScenePairsFromPoints(transformed, sceneValid)
		for _, f := range preFilters {
			pairs = f.Filter(pairs, iter)
		}

		assigned := assign.Assign(pairs, model)
		for _, f := range postFilters {
			assigned = f.Filter(assigned, iter)
		}

		transform, rms, err := estimator.Estimate(assigned)
		if err != nil {
			return Result{Transform: accum, RMS: prevRMS, Iterations: iter, Outcome: TerminationRankDeficient}
		}
		accum = transform.Mul(accum)

		if rms <= cfg.MaxRMS {
			return Result{Transform: accum, RMS: rms, Iterations: iter + 1, Outcome: TerminationRMSThresholdMet}
		}

		if len(assigned) == prevCount && math.Abs(rms-prevRMS) < 1e-9 {
			convergeStreak++
			if convergeStreak >= cfg.ConvergenceCounter {
				return Result{Transform: accum, RMS: rms, Iterations: iter + 1, Outcome: TerminationConverged}
			}
		} else {
			convergeStreak = 0
		}
		prevRMS, prevCount = rms, len(assigned)
	}

	return Result{Transform: accum, RMS: prevRMS, Iterations: cfg.MaxIterations, Outcome: TerminationMaxIterations}
}
