// Package tsdf implements the partitioned truncated signed distance field
// grid: lazily allocated partitions of fixed-size TSD cells, bilinear
// interpolation, weighted fusion and border propagation (spec.md §3, §4.1,
// §4.2). It is grounded on the teacher's occupancy-grid SLAM filter
// (itohio/EasyRobot pkg/core/math/filter/slam) for the ray-casting/
// inverse-sensor-model idiom, generalized from a dense probability grid to
// a hierarchical, lazily-allocated signed distance field.
package tsdf

// MaxWeight caps the running weighted mean so that recent measurements can
// still move a long-observed cell (spec.md §3: "weight' = weight + 1
// clamped at MAXWEIGHT = 32").
const MaxWeight = 32

// Cell is a single TSD cell: a normalized, truncated signed distance and a
// fusion weight (spec.md §3 TsdCell). A cell with Weight == 0 is "unused"
// and carries the +1 sentinel in Tsd.
type Cell struct {
	Tsd    float64
	Weight float64
}

// UnusedCell returns the sentinel value for a never-written cell.
func UnusedCell() Cell { return Cell{Tsd: 1, Weight: 0} }

// IsUnused reports whether the cell has never been fused with a
// measurement.
func (c Cell) IsUnused() bool { return c.Weight == 0 }

// Fuse folds a new normalized signed distance into the cell's running
// weighted mean, per spec.md §4.1 addTsd:
//
//	weight' = min(weight+1, MAXWEIGHT)
//	tsd'    = (tsd*(weight'-1) + newTsd) / weight'
//
// so a saturated cell counts its old value with weight MAXWEIGHT-1.
//
// newTsd must already be clamped to [-1, 1] by the caller (TsdGrid knows
// maxTruncation; Cell does not).
func (c Cell) Fuse(newTsd float64) Cell {
	weight := c.Weight
	if weight >= MaxWeight {
		weight = MaxWeight - 1
	}
	nextWeight := weight + 1
	nextTsd := (c.Tsd*weight + newTsd) / nextWeight
	return Cell{Tsd: nextTsd, Weight: nextWeight}
}
