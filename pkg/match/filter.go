package match

import "math"

// OutOfBoundsFilter2D rejects scene points outside an axis-aligned world
// rectangle (spec.md §4.5 step 1 pre-filter example). Used before
// assignment: pairs at this stage carry only a Scene point.
type OutOfBoundsFilter2D struct {
	MinX, MinY, MaxX, MaxY float64
}

func (f OutOfBoundsFilter2D) Filter(pairs []Pair, _ int) []Pair {
	out := pairs[:0]
	for _, p := range pairs {
		if p.Scene.X < f.MinX || p.Scene.X > f.MaxX || p.Scene.Y < f.MinY || p.Scene.Y > f.MaxY {
			continue
		}
		out = append(out, p)
	}
	return out
}

// DistanceFilter rejects assigned pairs whose distance exceeds a
// threshold that decays geometrically with iteration (spec.md §4.5 step 2
// post-filter example): threshold(iter) = max(minThreshold,
// initialThreshold * decay^iter).
type DistanceFilter struct {
	InitialThreshold float64
	Decay            float64
	MinThreshold     float64
}

// NewDistanceFilter mirrors spec.md §8 scenario 1's
// DistanceFilter(1.5, 0.01, 30): initial threshold 1.5, decaying toward a
// floor of 0.01 over roughly 30 iterations' worth of geometric decay.
func NewDistanceFilter(initial, floor float64, horizonIterations int) DistanceFilter {
	decay := 0.5
	if horizonIterations > 0 {
		ratio := floor / initial
		if ratio > 0 {
			decay = math.Pow(ratio, 1/float64(horizonIterations))
		}
	}
	return DistanceFilter{InitialThreshold: initial, Decay: decay, MinThreshold: floor}
}

func (f DistanceFilter) Filter(pairs []Pair, iteration int) []Pair {
	threshold := f.InitialThreshold * math.Pow(f.Decay, float64(iteration))
	if threshold < f.MinThreshold {
		threshold = f.MinThreshold
	}
	thresholdSqr := threshold * threshold

	out := pairs[:0]
	for _, p := range pairs {
		if p.ModelIdx < 0 {
			// Pre-assignment: no distance to judge yet, pass through.
			out = append(out, p)
			continue
		}
		if p.DistSqr > thresholdSqr {
			continue
		}
		out = append(out, p)
	}
	return out
}

var (
	_ PairFilter = OutOfBoundsFilter2D{}
	_ PairFilter = DistanceFilter{}
)
