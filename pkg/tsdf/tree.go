package tsdf

import (
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"

	"github.com/go-obviously/slam2d/internal/vecmat"
)

// leaf is the indexable handle the partition tree stores: a polygon for its
// geometric bounds (the pattern mkelp-inmap uses to feed rtree.Rtree, a
// geom.Polygon's promoted Bounds() method satisfies rtree.Comparable) plus
// the partition's (gi, gj) grid coordinates. The tree never owns partition
// storage — only these lightweight indices — per the "cyclic ownership"
// redesign flag (spec.md §9): the TsdGrid is the sole owner of Partition
// values, the tree is purely a spatial lookup over their coordinates.
type leaf struct {
	geom.Polygon
	gi, gj int
}

// PartitionTree is a spatial index over a grid's partitions, used by the
// frustum test (spec.md §4.3) to cull partitions outside the sensor's
// coverage before a push touches them.
type PartitionTree struct {
	index *rtree.Rtree
}

// NewPartitionTree builds an empty tree.
func NewPartitionTree() *PartitionTree {
	return &PartitionTree{index: rtree.NewTree(25, 50)}
}

// Insert indexes a partition's footprint under its corners.
func (t *PartitionTree) Insert(p *Partition) {
	c := p.Corners()
	poly := geom.Polygon{{
		geom.Point{X: c[0].X, Y: c[0].Y},
		geom.Point{X: c[1].X, Y: c[1].Y},
		geom.Point{X: c[2].X, Y: c[2].Y},
		geom.Point{X: c[3].X, Y: c[3].Y},
		geom.Point{X: c[0].X, Y: c[0].Y},
	}}
	gi, gj := p.GridIndex()
	t.index.Insert(&leaf{Polygon: poly, gi: gi, gj: gj})
}

// Delete removes a partition's footprint (used when a partition's bounds
// change shape — in practice partitions never move, so this exists mainly
// for test symmetry with Insert).
func (t *PartitionTree) Delete(p *Partition) {
	c := p.Corners()
	poly := geom.Polygon{{
		geom.Point{X: c[0].X, Y: c[0].Y},
		geom.Point{X: c[1].X, Y: c[1].Y},
		geom.Point{X: c[2].X, Y: c[2].Y},
		geom.Point{X: c[3].X, Y: c[3].Y},
		geom.Point{X: c[0].X, Y: c[0].Y},
	}}
	gi, gj := p.GridIndex()
	t.index.Delete(&leaf{Polygon: poly, gi: gi, gj: gj})
}

// QueryRadius returns the (gi, gj) indices of every indexed partition whose
// bounding box intersects the square of the given half-extent centered on
// center — the broad phase of the frustum test (spec.md §4.3), narrowed
// afterward by the exact centroid/circumradius check.
func (t *PartitionTree) QueryRadius(center vecmat.Vector, halfExtent float64) [][2]int {
	b := geom.NewBounds()
	b.Extend(geom.Point{X: center.X - halfExtent, Y: center.Y - halfExtent})
	b.Extend(geom.Point{X: center.X + halfExtent, Y: center.Y + halfExtent})

	hits := t.index.SearchIntersect(b)
	out := make([][2]int, 0, len(hits))
	for _, h := range hits {
		l, ok := h.(*leaf)
		if !ok {
			continue
		}
		out = append(out, [2]int{l.gi, l.gj})
	}
	return out
}
