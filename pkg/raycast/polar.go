package raycast

import (
	"math"
	"sync"

	"github.com/go-obviously/slam2d/internal/vecmat"
	"github.com/go-obviously/slam2d/pkg/sensor"
	"github.com/go-obviously/slam2d/pkg/tsdf"
)

// DefaultStepCap bounds the fine-stepping loop; exceeding it marks a beam
// OutcomeTimeout rather than looping indefinitely on a pathological ray
// (near-parallel to the grid boundary, degenerate direction, and so on).
const DefaultStepCap = 1 << 16

// CastAll reconstructs a full synthetic scan: one Result per sensor beam,
// in the sensor's own frame (spec.md §4.4 "output is transformed back
// into sensor frame"). Beams are independent, so they are fanned out in
// chunks of 64 across plain goroutines (not the grid's worker pool); each
// goroutine writes only its own disjoint slice indices, needing no mutex
// (spec.md §5 "workers write into local buffers" — here the buffer slots
// are simply disjoint by index).
func CastAll(grid *tsdf.Grid, sen *sensor.Polar2D) []Result {
	n := sen.NumBeams()
	out := make([]Result, n)

	const chunk = 64
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for beam := start; beam < end; beam++ {
				out[beam] = CastBeam(grid, sen, beam, DefaultStepCap)
			}
		}(start, end)
	}
	wg.Wait()
	return out
}

// CastBeam implements the single-beam algorithm of spec.md §4.4.
func CastBeam(grid *tsdf.Grid, sen *sensor.Polar2D, beam int, stepCap int) Result {
	cellSize := grid.CellSize()
	origin := sen.Position()
	rayStep := sen.WorldRay(beam).Scale(cellSize) // step 1: world direction scaled by cellSize

	idxMin, idxMax, ok := clipToBounds(origin, rayStep, grid.WorldSize(), sen.MaxRange()/cellSize)
	if !ok {
		return Result{Outcome: OutcomeEdge}
	}

	idx := coarseSkip(grid, origin, rayStep, idxMin, idxMax, grid.PartitionSize())
	if idx > idxMax {
		return Result{Outcome: OutcomeMiss}
	}

	pos := origin.Add(rayStep.Scale(float64(idx)))
	status, tsdPrev := grid.InterpolateBilinear(pos)
	steps := 0
	for idx <= idxMax {
		steps++
		if steps > stepCap {
			return Result{Outcome: OutcomeTimeout}
		}
		idx++
		pos = origin.Add(rayStep.Scale(float64(idx)))
		st, tsd := grid.InterpolateBilinear(pos)
		if st != tsdf.StatusSuccess {
			status = st
			continue
		}
		if status == tsdf.StatusSuccess && tsdPrev > 0 && tsd < 0 {
			alpha := tsdPrev / (tsdPrev - tsd)
			surface := pos.Add(rayStep.Scale(alpha - 1))
			normal, ok := grid.InterpolateNormal(surface)
			if !ok {
				return Result{Outcome: OutcomeMiss}
			}
			inv := sen.Pose().Inverse()
			localPoint := inv.Transform(surface)
			localNormal := inv.TransformDir(normal)
			return Result{
				Outcome: OutcomeHit,
				Point:   localPoint,
				Normal:  localNormal,
				Range:   localPoint.Magnitude(),
			}
		}
		status, tsdPrev = st, tsd
	}
	return Result{Outcome: OutcomeMiss}
}

// coarseSkip steps by partitionSize while the lookup lands in an
// uninitialized or out-of-grid partition, returning the first index whose
// lookup is informative (spec.md §4.4 step 3).
func coarseSkip(grid *tsdf.Grid, origin, rayStep vecmat.Vector, idxMin, idxMax, partitionSize int) int {
	idx := idxMin
	for idx <= idxMax {
		pos := origin.Add(rayStep.Scale(float64(idx)))
		status, _ := grid.InterpolateBilinear(pos)
		if status != tsdf.StatusEmptyPartition && status != tsdf.StatusInvalidIndex {
			return idx
		}
		idx += partitionSize
	}
	return idx
}

// clipToBounds intersects the ray origin+rayStep*t (t in index units) with
// the grid's axis-aligned [0, worldSize]^2 box and the maxRangeSteps
// ceiling, returning the integer index range to scan.
func clipToBounds(origin, rayStep vecmat.Vector, worldSize, maxRangeSteps float64) (idxMin, idxMax int, ok bool) {
	tMin, tMax := 0.0, maxRangeSteps

	clipAxis := func(o, d float64) bool {
		if math.Abs(d) < 1e-15 {
			return o >= 0 && o <= worldSize
		}
		t1 := (0 - o) / d
		t2 := (worldSize - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tMin {
			tMin = t1
		}
		if t2 < tMax {
			tMax = t2
		}
		return tMin <= tMax
	}

	if !clipAxis(origin.X, rayStep.X) || !clipAxis(origin.Y, rayStep.Y) {
		return 0, 0, false
	}
	if tMin > tMax {
		return 0, 0, false
	}
	return int(math.Ceil(tMin)), int(math.Floor(tMax)), true
}
