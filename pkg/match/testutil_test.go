package match

import "github.com/go-obviously/slam2d/internal/vecmat"

// fakePointSet is a minimal match.PointSet for tests: plain slices of
// points, an optional validity mask (defaults all-valid) and optional
// per-point normals.
type fakePointSet struct {
	points  []vecmat.Vector
	valid   []bool
	normals []vecmat.Vector
}

func (s fakePointSet) Len() int               { return len(s.points) }
func (s fakePointSet) Point(i int) vecmat.Vector { return s.points[i] }

func (s fakePointSet) Valid(i int) bool {
	if s.valid == nil {
		return true
	}
	return s.valid[i]
}

func (s fakePointSet) Normal(i int) (vecmat.Vector, bool) {
	if s.normals == nil {
		return vecmat.Vector{}, false
	}
	return s.normals[i], true
}
