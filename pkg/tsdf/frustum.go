package tsdf

import (
	"math"

	"github.com/go-obviously/slam2d/internal/vecmat"
)

// RangeSensor is the slice of SensorPolar2D's contract the grid needs for
// frustum testing and push (spec.md §4.3, §4.2). It is declared here
// rather than imported from pkg/sensor so tsdf has no dependency on the
// sensor package — pkg/sensor's SensorPolar2D satisfies it structurally.
type RangeSensor interface {
	Position() vecmat.Vector
	// BackProjectBatch maps world points to beam indices, -1 when a point
	// falls outside the sensor's field of view.
	BackProjectBatch(points []vecmat.Vector) []int
	Range(beam int) float64
	Valid(beam int) bool
	NumBeams() int
	MinRange() float64
	MaxRange() float64
	LowReflectivityRange() float64
}

// FrustumResult is the outcome of testing one partition (or tree node)
// against a sensor's viewing frustum (spec.md §4.3).
type FrustumResult struct {
	Visible bool // at least one beam's range exceeds nearDist
	Empty   bool // at least one valid beam covers the leaf, and every valid beam's range exceeds farDist (or is out of range)
	Culled  bool // rejected outright by the coarse distance/beam test
}

// TestFrustum implements the frustum test of spec.md §4.3. leafCorners is
// nil for internal tree nodes, which skip the per-beam visibility/
// emptiness refinement and rely on the coarse distance test alone.
func TestFrustum(centroid vecmat.Vector, circumradius float64, leafCorners *[4]vecmat.Vector, sensor RangeSensor, maxTruncation float64) FrustumResult {
	p := sensor.Position()
	d := p.Distance(centroid)
	nearDist := d - circumradius - maxTruncation
	farDist := d + circumradius + maxTruncation

	if nearDist > sensor.MaxRange() || farDist < sensor.MinRange() {
		return FrustumResult{Culled: true}
	}

	if leafCorners == nil {
		return FrustumResult{Visible: true}
	}

	corners := make([]vecmat.Vector, 4)
	copy(corners, leafCorners[:])
	beamIdx := sensor.BackProjectBatch(corners)

	minBeam, maxBeam := math.MaxInt, -1
	for _, b := range beamIdx {
		if b < 0 {
			continue
		}
		if b < minBeam {
			minBeam = b
		}
		if b > maxBeam {
			maxBeam = b
		}
	}
	if maxBeam < 0 {
		return FrustumResult{Culled: true}
	}
	if minBeam == math.MaxInt {
		minBeam = 0
	}

	visible := false
	allBeyondFar := true
	anyValid := false
	for b := minBeam; b <= maxBeam; b++ {
		if b < 0 || b >= sensor.NumBeams() || !sensor.Valid(b) {
			continue
		}
		anyValid = true
		r := sensor.Range(b)
		if r > nearDist {
			visible = true
		}
		beyondFar := r > farDist || (math.IsInf(r, 1) && d < sensor.LowReflectivityRange())
		if !beyondFar {
			allBeyondFar = false
		}
	}

	if !anyValid {
		return FrustumResult{Culled: true}
	}
	if allBeyondFar {
		return FrustumResult{Empty: true, Culled: true}
	}
	if !visible {
		return FrustumResult{Culled: true}
	}
	return FrustumResult{Visible: true}
}
