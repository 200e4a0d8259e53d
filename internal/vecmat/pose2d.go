package vecmat

import "math"

// Pose2D is a 3x3 homogeneous rigid transform in the plane:
//
//	[ cos(h)  -sin(h)  tx ]
//	[ sin(h)   cos(h)  ty ]
//	[   0        0      1 ]
//
// It plays the role of the teacher's Matrix3x3 (mat.Matrix3x3.RotationZ),
// specialized to the one family of matrices this engine ever builds:
// planar rotation + translation.
type Pose2D struct {
	M [3][3]float64
}

// Identity returns the identity transform.
func Identity() Pose2D {
	var p Pose2D
	p.M[0][0], p.M[1][1], p.M[2][2] = 1, 1, 1
	return p
}

// FromRT builds a pose from rotation angle (radians) and translation.
func FromRT(theta float64, t Vector) Pose2D {
	c, s := math.Cos(theta), math.Sin(theta)
	var p Pose2D
	p.M[0][0], p.M[0][1], p.M[0][2] = c, -s, t.X
	p.M[1][0], p.M[1][1], p.M[1][2] = s, c, t.Y
	p.M[2][0], p.M[2][1], p.M[2][2] = 0, 0, 1
	return p
}

// Rotation returns the heading angle encoded by the pose.
func (p Pose2D) Rotation() float64 { return math.Atan2(p.M[1][0], p.M[0][0]) }

// Translation returns the (tx, ty) column.
func (p Pose2D) Translation() Vector { return Vector{p.M[0][2], p.M[1][2]} }

// Transform applies the pose to a point.
func (p Pose2D) Transform(v Vector) Vector {
	return Vector{
		X: p.M[0][0]*v.X + p.M[0][1]*v.Y + p.M[0][2],
		Y: p.M[1][0]*v.X + p.M[1][1]*v.Y + p.M[1][2],
	}
}

// TransformDir applies only the rotational part (no translation) — for
// direction/normal vectors.
func (p Pose2D) TransformDir(v Vector) Vector {
	return Vector{
		X: p.M[0][0]*v.X + p.M[0][1]*v.Y,
		Y: p.M[1][0]*v.X + p.M[1][1]*v.Y,
	}
}

// Mul composes p*o, i.e. applying the result to a point is equivalent to
// applying o then p.
func (p Pose2D) Mul(o Pose2D) Pose2D {
	var r Pose2D
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += p.M[i][k] * o.M[k][j]
			}
			r.M[i][j] = sum
		}
	}
	return r
}

// Inverse returns the inverse rigid transform, exploiting orthogonality of
// the rotation block (R^-1 = R^T) rather than a general 3x3 inverse.
func (p Pose2D) Inverse() Pose2D {
	theta := p.Rotation()
	t := p.Translation()
	inv := FromRT(-theta, Vector{})
	inv.M[0][2] = -(inv.M[0][0]*t.X + inv.M[0][1]*t.Y)
	inv.M[1][2] = -(inv.M[1][0]*t.X + inv.M[1][1]*t.Y)
	return inv
}

// TransformSet applies the pose to every point of a VectorSet, producing a
// new VectorSet sharing the same validity mask.
func (p Pose2D) TransformSet(s VectorSet) VectorSet {
	out := VectorSet{Points: make([]Vector, len(s.Points)), Valid: s.Valid}
	for i, v := range s.Points {
		out.Points[i] = p.Transform(v)
	}
	return out
}
