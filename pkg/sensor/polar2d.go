// Package sensor implements the polar 2D rangefinder model: range/mask/
// accuracy arrays, a 3×3 homogeneous pose, and a precomputed unit-ray
// matrix that backs both forward ray generation and back-projection
// (spec.md §3 SensorPolar2D, §4.3, §4.4). Grounded on the teacher's
// RayDirections (itohio/EasyRobot pkg/core/math/grid/raycast.go), which
// precomputes per-beam cos/sin once and reuses it across every raycast —
// the same idea generalized here to a full affine sensor pose instead of
// a fixed (px, py, heading) triple.
package sensor

import (
	"fmt"
	"math"

	"github.com/go-obviously/slam2d/internal/vecmat"
)

// Polar2D is a rotating rangefinder: beams evenly spaced by angularRes
// starting at phiMin, in the sensor's own frame.
type Polar2D struct {
	beams      int
	angularRes float64
	phiMin     float64
	minRange   float64
	maxRange   float64
	lowReflectivityRange float64

	ranges   []float64
	mask     []bool
	accuracy []float64 // nil if unused

	pose     vecmat.Pose2D
	unitRays []vecmat.Vector // precomputed, sensor frame
}

// NewPolar2D builds a sensor with identity pose, all ranges at maxRange
// and all beams invalid until SetScan is called.
func NewPolar2D(beams int, angularRes, phiMin, minRange, maxRange float64) *Polar2D {
	s := &Polar2D{
		beams:                beams,
		angularRes:           angularRes,
		phiMin:               phiMin,
		minRange:             minRange,
		maxRange:             maxRange,
		lowReflectivityRange: maxRange,
		ranges:               make([]float64, beams),
		mask:                 make([]bool, beams),
		pose:                 vecmat.Identity(),
		unitRays:             make([]vecmat.Vector, beams),
	}
	for i := 0; i < beams; i++ {
		angle := phiMin + float64(i)*angularRes
		s.ranges[i] = maxRange
		s.unitRays[i] = vecmat.V(math.Cos(angle), math.Sin(angle))
	}
	return s
}

// NumBeams, AngularRes, PhiMin, MinRange, MaxRange and
// LowReflectivityRange expose the sensor's fixed geometry.
func (s *Polar2D) NumBeams() int                   { return s.beams }
func (s *Polar2D) AngularRes() float64              { return s.angularRes }
func (s *Polar2D) PhiMin() float64                  { return s.phiMin }
func (s *Polar2D) MinRange() float64                { return s.minRange }
func (s *Polar2D) MaxRange() float64                { return s.maxRange }
func (s *Polar2D) LowReflectivityRange() float64    { return s.lowReflectivityRange }

// SetLowReflectivityRange overrides the default (maxRange) for the
// frustum test's "no-return" emptiness rule (spec.md §4.3).
func (s *Polar2D) SetLowReflectivityRange(r float64) { s.lowReflectivityRange = r }

// SetScan installs a beam of range/mask/accuracy readings (spec.md §6
// sensor inputs). accuracy may be nil.
func (s *Polar2D) SetScan(ranges []float64, mask []bool, accuracy []float64) error {
	if len(ranges) != s.beams || len(mask) != s.beams {
		return fmt.Errorf("sensor: expected %d beams, got ranges=%d mask=%d", s.beams, len(ranges), len(mask))
	}
	if accuracy != nil && len(accuracy) != s.beams {
		return fmt.Errorf("sensor: expected %d accuracy entries, got %d", s.beams, len(accuracy))
	}
	copy(s.ranges, ranges)
	copy(s.mask, mask)
	s.accuracy = accuracy
	return nil
}

// Range and Valid implement tsdf.RangeSensor.
func (s *Polar2D) Range(beam int) float64 { return s.ranges[beam] }
func (s *Polar2D) Valid(beam int) bool    { return s.mask[beam] }

// Accuracy returns the per-beam accuracy weight, or 1 if none was set.
func (s *Polar2D) Accuracy(beam int) float64 {
	if s.accuracy == nil {
		return 1
	}
	return s.accuracy[beam]
}

// Pose returns the sensor's current pose.
func (s *Polar2D) Pose() vecmat.Pose2D { return s.pose }

// Position returns the sensor's world-frame origin.
func (s *Polar2D) Position() vecmat.Vector { return s.pose.Translation() }

// SetPose replaces the sensor's pose outright (spec.md §6 setPose(T)).
func (s *Polar2D) SetPose(pose vecmat.Pose2D) { s.pose = pose }

// Transform composes an incremental pose onto the current one (spec.md §6
// incremental transform(ΔT)): the sensor moves by delta expressed in its
// own current frame.
func (s *Polar2D) Transform(delta vecmat.Pose2D) { s.pose = s.pose.Mul(delta) }

// WorldRay returns the unit direction of beam in world frame.
func (s *Polar2D) WorldRay(beam int) vecmat.Vector { return s.pose.TransformDir(s.unitRays[beam]) }

// BackProject inverts the polar map: given a world point, returns the
// beam index whose direction it lies closest to, or -1 if the point falls
// outside the sensor's field of view (spec.md §3 backProject).
func (s *Polar2D) BackProject(point vecmat.Vector) int {
	local := s.pose.Inverse().Transform(point)
	if local.SumSqr() < 1e-18 {
		return -1
	}
	angle := local.Angle()
	diff := vecmat.NormalizeAngle(angle - s.phiMin)
	idx := int(math.Round(diff / s.angularRes))
	if idx < 0 || idx >= s.beams {
		return -1
	}
	return idx
}

// BackProjectBatch back-projects a slice of world points, implementing
// tsdf.RangeSensor.
func (s *Polar2D) BackProjectBatch(points []vecmat.Vector) []int {
	out := make([]int, len(points))
	for i, p := range points {
		out[i] = s.BackProject(p)
	}
	return out
}
