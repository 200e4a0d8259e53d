// Package ransac implements the RANSAC scan-to-scan matcher of spec.md
// §4.6: robust coarse rigid alignment of two polar scans via an
// intra-distance-consistent sampling scheme and control-set scoring.
// Grounded on the teacher's k-d tree (internal/kdtree, itself grounded on
// itohio/EasyRobot x/math/graph/kd_tree.go) for the control-set k-NN
// scoring step, and on alitto/pond (as used in sixy6e-go-gsf/cmd/main.go)
// for parallelizing independent trials with a compare-and-swap reduction
// of the best candidate (spec.md §5).
package ransac

import (
	"math"
	"math/rand"
	"sync"

	"github.com/alitto/pond"

	"github.com/go-obviously/slam2d/internal/kdtree"
	"github.com/go-obviously/slam2d/internal/logging"
	"github.com/go-obviously/slam2d/internal/vecmat"
	"github.com/go-obviously/slam2d/pkg/match"
)

// MinValidPoints is the minimum number of valid points either scan must
// have for a match attempt (spec.md §4.6 step 1, §8).
const MinValidPoints = 10

// Config holds the matcher's tunables (spec.md §4.6).
type Config struct {
	Trials            int
	EpsThresh         float64 // coordinate tolerance; squared internally
	SizeControlSet    int
	PhiMax            float64
	TransMax          float64
	AngularResolution float64
	MinDist2ndSample  int
	MaxDist2ndSample  int
}

// Result is the matcher's outcome (spec.md §7.5): either a transform
// accepted by at least one trial, or identity with a warning counter.
type Result struct {
	Transform               vecmat.Pose2D
	Accepted                bool
	TrialsWithoutAcceptance int
}

type candidate struct {
	transform vecmat.Pose2D
	matches   int
	matchRate float64
	sumSqrErr float64
}

// Match aligns scene onto model (spec.md §4.6 pipeline). rng must be
// supplied by the caller — determinism depends on the RNG sequence
// (spec.md §4.6 "determinism note").
func Match(model, scene match.PointSet, cfg Config, rng *rand.Rand) Result {
	modelIdx := validIndices(model)
	sceneIdx := validIndices(scene)
	if len(modelIdx) < MinValidPoints || len(sceneIdx) < MinValidPoints {
		logging.Log.Warn().
			Int("model_valid", len(modelIdx)).
			Int("scene_valid", len(sceneIdx)).
			Msg("ransac: fewer than MIN_VALID_POINTS, returning identity")
		return Result{Transform: vecmat.Identity(), TrialsWithoutAcceptance: cfg.Trials}
	}

	modelPts := make([]kdtree.Point, len(modelIdx))
	for i, idx := range modelIdx {
		modelPts[i] = kdtree.Point{Coord: model.Point(idx), Index: idx}
	}
	modelTree := kdtree.Build(modelPts)

	controlSet := pickControlSet(sceneIdx, cfg.SizeControlSet, rng)
	sdists := buildIntraDistanceLUT(scene, sceneIdx, cfg)

	lastValid := modelIdx[len(modelIdx)-1]
	n := scene.Len()

	var mu sync.Mutex
	var best *candidate
	trialsWithoutAcceptance := 0

	pool := pond.New(trialWorkers(cfg.Trials), 0, pond.MinWorkers(trialWorkers(cfg.Trials)))
	defer pool.StopAndWait()

	var wg sync.WaitGroup
	for t := 0; t < cfg.Trials; t++ {
		seed := rng.Int63()
		wg.Add(1)
		pool.Submit(func() {
			defer wg.Done()
			localRng := rand.New(rand.NewSource(seed))
			cand, ok := runTrial(model, scene, modelTree, modelIdx, sceneIdx, controlSet, sdists, lastValid, n, cfg, localRng)

			mu.Lock()
			defer mu.Unlock()
			if !ok {
				trialsWithoutAcceptance++
				return
			}
			if improves(best, cand) {
				best = cand
				trialsWithoutAcceptance = 0
			} else {
				trialsWithoutAcceptance++
			}
		})
	}
	wg.Wait()

	if best == nil {
		return Result{Transform: vecmat.Identity(), TrialsWithoutAcceptance: trialsWithoutAcceptance}
	}
	return Result{Transform: best.transform, Accepted: true, TrialsWithoutAcceptance: trialsWithoutAcceptance}
}

func trialWorkers(trials int) int {
	if trials < 1 {
		return 1
	}
	if trials > 32 {
		return 32
	}
	return trials
}

// improves implements spec.md §4.6 step 5d's acceptance rule: strictly
// better match rate by more than 1e-5 and a higher match count, or a tie
// in both with lower error.
func improves(cur *candidate, next *candidate) bool {
	if cur == nil {
		return true
	}
	if next.matchRate-cur.matchRate > 1e-5 && next.matches > cur.matches {
		return true
	}
	rateTie := math.Abs(next.matchRate-cur.matchRate) <= 1e-5
	countTie := next.matches == cur.matches
	if rateTie && countTie && next.sumSqrErr < cur.sumSqrErr {
		return true
	}
	return false
}

func validIndices(ps match.PointSet) []int {
	out := make([]int, 0, ps.Len())
	for i := 0; i < ps.Len(); i++ {
		if ps.Valid(i) {
			out = append(out, i)
		}
	}
	return out
}

func pickControlSet(sceneIdx []int, size int, rng *rand.Rand) []int {
	if size >= len(sceneIdx) {
		out := make([]int, len(sceneIdx))
		copy(out, sceneIdx)
		return out
	}
	shuffled := make([]int, len(sceneIdx))
	copy(shuffled, sceneIdx)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled[:size]
}

// buildIntraDistanceLUT precomputes SDists[i][j] = |S_i - S_j|^2 for
// i < j <= i + maxDist2ndSample, NaN where either index is masked
// (spec.md §4.6 step 4). Indexed by raw scan position, not the compacted
// valid-index list, so trial sampling can do direct index arithmetic.
func buildIntraDistanceLUT(scene match.PointSet, sceneIdx []int, cfg Config) [][]float64 {
	n := scene.Len()
	valid := make([]bool, n)
	for _, idx := range sceneIdx {
		valid[idx] = true
	}

	lut := make([][]float64, n)
	for i := 0; i < n; i++ {
		span := cfg.MaxDist2ndSample
		if i+span >= n {
			span = n - i - 1
		}
		if span < 0 {
			span = 0
		}
		row := make([]float64, span+1)
		for d := 0; d <= span; d++ {
			j := i + d
			if d == 0 || !valid[i] || !valid[j] {
				row[d] = math.NaN()
				continue
			}
			row[d] = scene.Point(i).DistanceSqr(scene.Point(j))
		}
		lut[i] = row
	}
	return lut
}

func lutAt(lut [][]float64, i, j int) float64 {
	if i < 0 || i >= len(lut) || j < i {
		return math.NaN()
	}
	d := j - i
	if d >= len(lut[i]) {
		return math.NaN()
	}
	return lut[i][d]
}

// runTrial implements one RANSAC hypothesis draw and evaluation (spec.md
// §4.6 step 5).
func runTrial(model, scene match.PointSet, modelTree *kdtree.Tree, modelIdx, sceneIdx, controlSet []int, sdists [][]float64, lastValid, n int, cfg Config, rng *rand.Rand) (*candidate, bool) {
	if cfg.MaxDist2ndSample <= cfg.MinDist2ndSample {
		return nil, false
	}

	eligible := make([]int, 0, len(modelIdx))
	for _, i1 := range modelIdx {
		if i1+cfg.MinDist2ndSample <= lastValid {
			eligible = append(eligible, i1)
		}
	}
	if len(eligible) == 0 {
		return nil, false
	}
	i1 := eligible[rng.Intn(len(eligible))]

	loI2 := i1 + cfg.MinDist2ndSample
	hiI2 := i1 + cfg.MaxDist2ndSample
	if hiI2 > lastValid {
		hiI2 = lastValid
	}
	if loI2 > hiI2 {
		return nil, false
	}
	i2 := loI2 + rng.Intn(hiI2-loI2+1)
	if !model.Valid(i1) || !model.Valid(i2) {
		return nil, false
	}

	vM := model.Point(i2).Sub(model.Point(i1))
	cM := model.Point(i1).Add(model.Point(i2)).Scale(0.5)
	vMSqr := vM.SumSqr()

	span := int(cfg.PhiMax / cfg.AngularResolution)
	epsSqr := cfg.EpsThresh * cfg.EpsThresh

	var best *candidate
	lo, hi := i1-span, i1+span
	if lo < 0 {
		lo = 0
	}
	if hi >= len(sdists) {
		hi = len(sdists) - 1
	}

	for s := lo; s <= hi; s++ {
		if !scene.Valid(s) {
			continue
		}
		s2Lo := s + cfg.MinDist2ndSample
		s2Hi := s + cfg.MaxDist2ndSample
		bestS2, bestErr := -1, math.Inf(1)
		for s2 := s2Lo; s2 <= s2Hi; s2++ {
			d := lutAt(sdists, s, s2)
			if math.IsNaN(d) {
				continue
			}
			if err := math.Abs(d - vMSqr); err < bestErr {
				bestErr, bestS2 = err, s2
			}
		}
		if bestS2 < 0 || bestErr > epsSqr {
			continue
		}

		vS := scene.Point(bestS2).Sub(scene.Point(s))
		cS := scene.Point(s).Add(scene.Point(bestS2)).Scale(0.5)

		phi := vecmat.WrapToPi(vM.Angle() - vS.Angle())
		if math.Abs(phi) > cfg.PhiMax {
			continue
		}

		transform := vecmat.FromRT(phi, vecmat.Vector{})
		t := cM.Sub(transform.TransformDir(cS))
		if t.Magnitude() > cfg.TransMax {
			continue
		}
		transform.M[0][2] = t.X
		transform.M[1][2] = t.Y

		cand := scoreControlSet(scene, controlSet, modelTree, transform, phi, cfg, epsSqr, n)
		if best == nil || improves(best, cand) {
			best = cand
		}
	}

	if best == nil {
		return nil, false
	}
	return best, true
}

// scoreControlSet transforms the control set under the hypothesis and
// scores it by k-NN distance to the model (spec.md §4.6 step 5c-d). phi
// tells how much of the shared field of view rotated out of overlap, so
// points are clipped two-sided: by the control point's own raw scan index
// against clippedBeams, and by the matched model point's raw index against
// -clippedBeams — mirroring the original's two clip checks (raw index of
// the scene sample and rawIdx of its nearest model neighbor,
// RansacMatching.cpp's scoreControlSet loop) rather than clipping by
// position within the (independently shuffled) control-set slice.
func scoreControlSet(scene match.PointSet, controlSet []int, modelTree *kdtree.Tree, transform vecmat.Pose2D, phi float64, cfg Config, epsSqr float64, n int) *candidate {
	clippedBeams := int(phi / cfg.AngularResolution)

	loScene, hiScene := max(0, clippedBeams), min(n, n+clippedBeams)
	loModel, hiModel := max(0, -clippedBeams), min(n, n-clippedBeams)

	matches := 0
	var sumSqrErr float64
	considered := 0
	for _, idx := range controlSet {
		if idx < loScene || idx > hiScene {
			continue
		}
		p := transform.Transform(scene.Point(idx))
		best, distSqr, ok := modelTree.Nearest(p)
		if !ok {
			continue
		}
		if best.Index < loModel || best.Index > hiModel {
			continue
		}
		considered++
		if distSqr < epsSqr {
			matches++
			sumSqrErr += distSqr
		}
	}
	rate := 0.0
	if considered > 0 {
		rate = float64(matches) / float64(considered)
	}
	return &candidate{transform: transform, matches: matches, matchRate: rate, sumSqrErr: sumSqrErr}
}
