package raycast

import (
	"github.com/go-obviously/slam2d/internal/vecmat"
	"github.com/go-obviously/slam2d/pkg/tsdf"
)

// AxisAligned enumerates every zero-crossing along the grid's rows and
// columns (spec.md §4.4 "used for visualization and model extraction"),
// rather than along sensor beams. Each crossing uses the same linear
// interpolation and normal estimation as the polar raycaster.
func AxisAligned(grid *tsdf.Grid) []Result {
	cs := grid.CellSize()
	total := grid.PartitionCount() * grid.PartitionSize()

	var out []Result
	for yIdx := 0; yIdx < total; yIdx++ {
		y := (float64(yIdx) + 0.5) * cs
		out = append(out, scanLine(grid, total, cs, func(i int) vecmat.Vector { return vecmat.V((float64(i)+0.5)*cs, y) })...)
	}
	for xIdx := 0; xIdx < total; xIdx++ {
		x := (float64(xIdx) + 0.5) * cs
		out = append(out, scanLine(grid, total, cs, func(i int) vecmat.Vector { return vecmat.V(x, (float64(i)+0.5)*cs) })...)
	}
	return out
}

// scanLine walks one row or column (as produced by at(i)), reporting a
// Result for every sign change found along it.
func scanLine(grid *tsdf.Grid, total int, cellSize float64, at func(i int) vecmat.Vector) []Result {
	var out []Result
	var prevStatus tsdf.Status
	var prevTsd float64
	var prevPoint vecmat.Vector
	havePrev := false

	for i := 0; i < total; i++ {
		p := at(i)
		status, tsd := grid.InterpolateBilinear(p)
		if havePrev && prevStatus == tsdf.StatusSuccess && status == tsdf.StatusSuccess && prevTsd > 0 && tsd < 0 {
			alpha := prevTsd / (prevTsd - tsd)
			surface := prevPoint.Add(p.Sub(prevPoint).Scale(alpha))
			if normal, ok := grid.InterpolateNormal(surface); ok {
				out = append(out, Result{Outcome: OutcomeHit, Point: surface, Normal: normal})
			}
		}
		prevStatus, prevTsd, prevPoint, havePrev = status, tsd, p, true
	}
	return out
}
