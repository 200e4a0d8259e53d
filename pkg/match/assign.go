package match

import "github.com/go-obviously/slam2d/internal/kdtree"

// KDTreeAssign matches each scene point to its nearest valid model point
// using internal/kdtree (spec.md §4.5 step 2, §9 "KDTreeAssign").
// MinPoints sets the smallest model point count the assigner will accept;
// below it, Assign returns no pairs rather than building a degenerate
// tree — mirroring AnnPairAssignment's documented minimum in the
// end-to-end scenarios of spec.md §8.
type KDTreeAssign struct {
	MinPoints int
}

// NewKDTreeAssign builds a KDTreeAssign that needs at least minPoints valid
// model points (spec.md §8 scenario 1's AnnPairAssignment(2) passes 2).
func NewKDTreeAssign(minPoints int) *KDTreeAssign {
	return &KDTreeAssign{MinPoints: minPoints}
}

func (a *KDTreeAssign) Assign(scenePairs []Pair, model PointSet) []Pair {
	pts := make([]kdtree.Point, 0, model.Len())
	for i := 0; i < model.Len(); i++ {
		if !model.Valid(i) {
			continue
		}
		pts = append(pts, kdtree.Point{Coord: model.Point(i), Index: i})
	}
	if len(pts) < a.MinPoints {
		return nil
	}
	tree := kdtree.Build(pts)

	out := make([]Pair, 0, len(scenePairs))
	for _, sp := range scenePairs {
		best, distSqr, ok := tree.Nearest(sp.Scene)
		if !ok {
			continue
		}
		p := sp
		p.ModelIdx = best.Index
		p.Model = model.Point(best.Index)
		p.DistSqr = distSqr
		if n, hasN := model.Normal(best.Index); hasN {
			p.ModelNormal = n
			p.HasNormal = true
		}
		out = append(out, p)
	}
	return out
}

var _ PairAssign = (*KDTreeAssign)(nil)
