// Package raycast implements the polar and axis-aligned raycasters that
// reconstruct synthetic scans from a TSD grid (spec.md §4.4, component E
// and F). Grounded on the teacher's RayDirections/RayCast family
// (itohio/EasyRobot pkg/core/math/grid/raycast.go): precompute per-beam
// directions once, step through the map accumulating a running sample,
// stop on the first sign change. The teacher walks a dense occupancy
// grid by Bresenham steps; this generalizes the stepping loop to a
// partitioned TSD field with a coarse partition-sized skip before the
// fine per-cell walk.
package raycast

import "github.com/go-obviously/slam2d/internal/vecmat"

// Outcome is a raycast's termination reason (spec.md §7.3). Miss and Edge
// are normal outcomes; Timeout indicates a pathological configuration
// (step cap exceeded) and the beam is dropped by the caller.
type Outcome int

const (
	OutcomeHit Outcome = iota
	OutcomeMiss
	OutcomeEdge
	OutcomeTimeout
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHit:
		return "HIT"
	case OutcomeMiss:
		return "MISS"
	case OutcomeEdge:
		return "EDGE"
	case OutcomeTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// Result is one beam's raycast outcome, in world frame.
type Result struct {
	Outcome Outcome
	Point   vecmat.Vector
	Normal  vecmat.Vector
	Range   float64
}
