// Package kdtree implements a 2D k-d tree used for nearest-neighbor pair
// assignment (ICP) and model lookups (RANSAC control-set scoring). It is
// grounded on the teacher's generic k-d tree
// (itohio/EasyRobot pkg/core/math/graph/kd_tree.go), specialized to 2D
// points carrying an integer payload (the originating index into the
// model/scene scan), since every caller in this module needs to recover
// which scan point a tree hit came from.
package kdtree

import (
	"sort"

	"github.com/go-obviously/slam2d/internal/vecmat"
)

// Point is a 2D coordinate tagged with its source index.
type Point struct {
	Coord vecmat.Vector
	Index int
}

type node struct {
	point       Point
	dim         int
	left, right *node
}

// Tree is a static (build-once) 2D k-d tree.
type Tree struct {
	root *node
	n    int
}

// Build constructs a balanced k-d tree from pts. Building is single
// threaded; searches afterwards are read-only and safe for concurrent use
// from multiple goroutines (spec.md §5: "the k-d tree is read-only during
// search; build happens single-threaded before queries").
func Build(pts []Point) *Tree {
	if len(pts) == 0 {
		return &Tree{}
	}
	cp := make([]Point, len(pts))
	copy(cp, pts)
	t := &Tree{n: len(cp)}
	t.root = build(cp, 0)
	return t
}

func build(pts []Point, depth int) *node {
	if len(pts) == 0 {
		return nil
	}
	dim := depth % 2
	sort.Slice(pts, func(i, j int) bool {
		if dim == 0 {
			return pts[i].Coord.X < pts[j].Coord.X
		}
		return pts[i].Coord.Y < pts[j].Coord.Y
	})
	mid := len(pts) / 2
	n := &node{point: pts[mid], dim: dim}
	n.left = build(pts[:mid], depth+1)
	n.right = build(pts[mid+1:], depth+1)
	return n
}

// Len returns the number of points in the tree.
func (t *Tree) Len() int { return t.n }

// Nearest returns the nearest point to query and its squared distance. ok is
// false for an empty tree.
func (t *Tree) Nearest(query vecmat.Vector) (best Point, distSqr float64, ok bool) {
	if t == nil || t.root == nil {
		return Point{}, 0, false
	}
	bestDist := make([]float64, 1)
	bestDist[0] = -1
	var bestPoint *Point
	nearest(t.root, query, &bestPoint, bestDist)
	return *bestPoint, bestDist[0], true
}

func nearest(n *node, q vecmat.Vector, best **Point, bestDist []float64) {
	if n == nil {
		return
	}
	d := q.DistanceSqr(n.point.Coord)
	if bestDist[0] < 0 || d < bestDist[0] {
		bestDist[0] = d
		p := n.point
		*best = &p
	}

	var diff, near, far float64
	var nearChild, farChild *node
	if n.dim == 0 {
		diff = q.X - n.point.Coord.X
	} else {
		diff = q.Y - n.point.Coord.Y
	}
	if diff <= 0 {
		nearChild, farChild = n.left, n.right
	} else {
		nearChild, farChild = n.right, n.left
	}
	near, far = diff, diff

	nearest(nearChild, q, best, bestDist)
	if far*near < bestDist[0] || bestDist[0] < 0 {
		nearest(farChild, q, best, bestDist)
	}
}

// KNN returns the k nearest points to query, ordered nearest-first.
func (t *Tree) KNN(query vecmat.Vector, k int) []Point {
	if t == nil || t.root == nil || k <= 0 {
		return nil
	}
	type cand struct {
		p Point
		d float64
	}
	var all []cand
	var walk func(n *node)
	walk = func(n *node) {
		if n == nil {
			return
		}
		all = append(all, cand{p: n.point, d: query.DistanceSqr(n.point.Coord)})
		walk(n.left)
		walk(n.right)
	}
	walk(t.root)
	sort.Slice(all, func(i, j int) bool { return all[i].d < all[j].d })
	if k > len(all) {
		k = len(all)
	}
	out := make([]Point, k)
	for i := 0; i < k; i++ {
		out[i] = all[i].p
	}
	return out
}
