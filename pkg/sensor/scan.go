package sensor

import "github.com/go-obviously/slam2d/internal/vecmat"

// Scan is the M/S point set of spec.md §3: an N×2 point set with a
// validity mask, optionally carrying per-point normals for the
// point-to-line estimator (pkg/match).
type Scan struct {
	vecmat.VectorSet
	Normals []vecmat.Vector // nil if this scan carries no normals
}

// NewScan allocates a scan of n points, all valid, with no normals.
func NewScan(n int) Scan {
	return Scan{VectorSet: vecmat.NewVectorSet(n)}
}

// HasNormals reports whether per-point normals are present.
func (s Scan) HasNormals() bool { return s.Normals != nil }

// WithNormals attaches a normal set, which must be the same length as
// Points.
func (s Scan) WithNormals(normals []vecmat.Vector) Scan {
	s.Normals = normals
	return s
}

// Point, Valid and Normal implement match.PointSet. Valid shadows the
// promoted VectorSet.Valid slice field with a same-named method — the
// slice remains reachable as s.VectorSet.Valid.
func (s Scan) Point(i int) vecmat.Vector { return s.Points[i] }
func (s Scan) Valid(i int) bool          { return s.VectorSet.Valid[i] }
func (s Scan) Normal(i int) (vecmat.Vector, bool) {
	if s.Normals == nil {
		return vecmat.Vector{}, false
	}
	return s.Normals[i], true
}
