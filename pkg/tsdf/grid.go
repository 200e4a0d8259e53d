package tsdf

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/alitto/pond"

	"github.com/go-obviously/slam2d/internal/config"
	"github.com/go-obviously/slam2d/internal/logging"
	"github.com/go-obviously/slam2d/internal/vecmat"
)

// emptyObservationWeight is the initWeight increment applied each time a
// push observes a partition as empty (spec.md §3: "accumulates an
// initWeight"). The source does not name a magnitude; one observation per
// push keeps the counter interpretable as "number of pushes that saw this
// region as empty".
const emptyObservationWeight = 1.0

// Grid is the TsdGrid of spec.md §3/§4.2: an M×M matrix of partitions,
// indexed by a PartitionTree for frustum culling, fused from sensor scans
// via Push. Grounded on the teacher's occupancy grid
// (itohio/EasyRobot x/math/filter/slam), generalized from a single dense
// probability array to a lazily-allocated, partitioned signed-distance
// field, and from the teacher's sequential update loop to a fork-join
// worker pool over partitions (concurrency pattern grounded on
// alitto/pond, as used for IO fan-out in sixy6e-go-gsf/cmd/main.go).
type Grid struct {
	cfg config.GridConfig

	m          int // partitions per side
	p          int // cells per partition side
	cellSize   float64
	maxTrunc   float64

	partitions [][]*Partition // [gi][gj]
	tree       *PartitionTree

	pool *pond.WorkerPool
}

// NewGrid constructs a grid from cfg, clamping maxTruncation to the
// 2*cellSize floor (spec.md §3, §7.1) and eagerly building the (static)
// partition shells and spatial index — only cell storage is lazy.
func NewGrid(cfg config.GridConfig) *Grid {
	m := cfg.PartitionCount()
	p := cfg.PartitionSize()
	cellSize := cfg.CellSize
	maxTrunc := cfg.MaxTruncation

	if floor := 2 * cellSize; maxTrunc < floor {
		logging.Log.Warn().
			Float64("requested", maxTrunc).
			Float64("clamped_to", floor).
			Msg("tsdf: maxTruncation below 2*cellSize, clamping")
		maxTrunc = floor
	}

	g := &Grid{
		cfg:      cfg,
		m:        m,
		p:        p,
		cellSize: cellSize,
		maxTrunc: maxTrunc,
		tree:     NewPartitionTree(),
	}
	workers := workerCount(m)
	g.pool = pond.New(workers, 0, pond.MinWorkers(workers))

	g.partitions = make([][]*Partition, m)
	for gi := 0; gi < m; gi++ {
		g.partitions[gi] = make([]*Partition, m)
		for gj := 0; gj < m; gj++ {
			part := newPartition(gi, gj, p, cellSize)
			g.partitions[gi][gj] = part
			g.tree.Insert(part)
		}
	}
	return g
}

func workerCount(m int) int {
	n := m * m
	if n < 1 {
		return 1
	}
	if n > 32 {
		return 32
	}
	return n
}

// Close releases the worker pool. Safe to call once after the grid is no
// longer needed.
func (g *Grid) Close() { g.pool.StopAndWait() }

// PartitionCount returns M.
func (g *Grid) PartitionCount() int { return g.m }

// PartitionSize returns P.
func (g *Grid) PartitionSize() int { return g.p }

// CellSize returns the grid's cell size.
func (g *Grid) CellSize() float64 { return g.cellSize }

// MaxTruncation returns the (possibly clamped) truncation radius.
func (g *Grid) MaxTruncation() float64 { return g.maxTrunc }

// WorldSize returns the side length of the grid's world-space bounds.
func (g *Grid) WorldSize() float64 { return float64(g.m*g.p) * g.cellSize }

// Coord2Cell maps a world coordinate to (partitionIndex, localX, localY,
// wx, wy) using the "center of cell" rule of spec.md §4.2: the cell index
// is floor(c/cellSize), shifted left/down by one if the query falls below
// its cell's center, so the point always lies inside the quadrilateral of
// four cell centers used for bilinear weights. Returns StatusInvalidIndex
// for a query outside the grid or in its outermost cell ring, so the
// resulting cell and its +1 bilinear neighbor always lie inside the grid.
func (g *Grid) Coord2Cell(c vecmat.Vector) (status Status, px, lx, ly int, wx, wy float64) {
	total := g.m * g.p
	cs := g.cellSize

	xIdx := int(math.Floor(c.X / cs))
	yIdx := int(math.Floor(c.Y / cs))
	if xIdx < 1 || yIdx < 1 || xIdx >= total-1 || yIdx >= total-1 {
		return StatusInvalidIndex, 0, 0, 0, 0, 0
	}

	if c.X < (float64(xIdx)+0.5)*cs {
		xIdx--
	}
	if c.Y < (float64(yIdx)+0.5)*cs {
		yIdx--
	}

	centerX := (float64(xIdx) + 0.5) * cs
	centerY := (float64(yIdx) + 0.5) * cs
	wx = (c.X - centerX) / cs
	wy = (c.Y - centerY) / cs

	gi := xIdx / g.p
	gj := yIdx / g.p
	px = gi*g.m + gj
	lx = xIdx % g.p
	ly = yIdx % g.p
	return StatusSuccess, px, lx, ly, wx, wy
}

// InterpolateBilinear looks up the TSD at a world coordinate (spec.md
// §4.2), reporting StatusEmptyPartition for a never-initialized partition
// and StatusNaN if fusion has somehow produced a non-finite value.
func (g *Grid) InterpolateBilinear(c vecmat.Vector) (Status, float64) {
	status, px, lx, ly, wx, wy := g.Coord2Cell(c)
	if status != StatusSuccess {
		return status, 0
	}
	gi, gj := px/g.m, px%g.m
	part := g.partitions[gi][gj]
	if part.state == Uninitialized {
		return StatusEmptyPartition, 0
	}
	tsd := part.InterpolateBilinear(lx, ly, wx, wy)
	if math.IsNaN(tsd) {
		return StatusNaN, 0
	}
	return StatusSuccess, tsd
}

// InterpolateNormal estimates the surface normal at c via central
// differences of InterpolateBilinear ±cellSize in x then y, L2-normalized
// (spec.md §4.3). ok is false if any of the four samples fails.
func (g *Grid) InterpolateNormal(c vecmat.Vector) (n vecmat.Vector, ok bool) {
	h := g.cellSize
	stX, xPlus := g.InterpolateBilinear(vecmat.V(c.X+h, c.Y))
	stX2, xMinus := g.InterpolateBilinear(vecmat.V(c.X-h, c.Y))
	stY, yPlus := g.InterpolateBilinear(vecmat.V(c.X, c.Y+h))
	stY2, yMinus := g.InterpolateBilinear(vecmat.V(c.X, c.Y-h))
	if stX != StatusSuccess || stX2 != StatusSuccess || stY != StatusSuccess || stY2 != StatusSuccess {
		return vecmat.Vector{}, false
	}
	grad := vecmat.V((xPlus-xMinus)/(2*h), (yPlus-yMinus)/(2*h))
	normalized := grad.Normalized()
	if normalized.SumSqr() == 0 {
		return vecmat.Vector{}, false
	}
	return normalized, true
}

// Push integrates one scan into the grid (spec.md §4.2): partitions are
// frustum-tested (via the tree for M>1, a flat scan otherwise), visible
// partitions are fused in parallel, and a single-threaded border
// propagation pass follows.
func (g *Grid) Push(sensor RangeSensor) {
	candidates := g.selectCandidates(sensor)

	var wg sync.WaitGroup
	for _, part := range candidates {
		part := part
		result := TestFrustum(part.Centroid(), part.Circumradius(), refCorners(part), sensor, g.maxTrunc)
		if result.Culled {
			if result.Empty {
				part.markEmpty(emptyObservationWeight)
			}
			continue
		}
		wg.Add(1)
		g.pool.Submit(func() {
			defer wg.Done()
			g.fusePartition(part, sensor)
		})
	}
	wg.Wait()

	g.propagateBorders()
}

func refCorners(p *Partition) *[4]vecmat.Vector {
	c := p.Corners()
	return &c
}

// selectCandidates returns the partitions worth frustum-testing: every
// partition for a single-partition grid (flat scan, spec.md §4.2), or the
// tree's broad-phase hits for a multi-partition grid.
func (g *Grid) selectCandidates(sensor RangeSensor) []*Partition {
	if g.m == 1 {
		return []*Partition{g.partitions[0][0]}
	}
	radius := sensor.MaxRange() + g.maxTrunc
	hits := g.tree.QueryRadius(sensor.Position(), radius)
	out := make([]*Partition, 0, len(hits))
	for _, h := range hits {
		out = append(out, g.partitions[h[0]][h[1]])
	}
	return out
}

// fusePartition back-projects a partition's P² cell centers through the
// sensor and fuses every cell with a valid, in-mask beam (spec.md §4.2
// step 1-2). Each worker only ever touches its own partition's storage —
// no cross-partition writes happen until border propagation.
func (g *Grid) fusePartition(part *Partition, sensor RangeSensor) {
	p := part.Size()
	centers := make([]vecmat.Vector, 0, p*p)
	for ly := 0; ly < p; ly++ {
		for lx := 0; lx < p; lx++ {
			centers = append(centers, part.CellCenterWorld(lx, ly))
		}
	}
	beams := sensor.BackProjectBatch(centers)
	sensorPos := sensor.Position()

	i := 0
	for ly := 0; ly < p; ly++ {
		for lx := 0; lx < p; lx++ {
			beam := beams[i]
			i++
			if beam < 0 || beam >= sensor.NumBeams() || !sensor.Valid(beam) {
				continue
			}
			d := sensorPos.Distance(centers[i-1])
			signedDistance := sensor.Range(beam) - d
			part.AddTsd(lx, ly, signedDistance, g.maxTrunc)
		}
	}
}

// propagateBorders runs the post-push propagation step (spec.md §4.2 step
// 3): every partition's extended row/column P is refreshed from its
// right/upper/upper-right neighbors' first row/column. All neighbor edges
// are snapshotted before any partition is mutated, so propagation is
// order-independent and idempotent regardless of iteration order (spec.md
// §8 "Border propagation idempotence").
func (g *Grid) propagateBorders() {
	type snapshot struct {
		row0, col0 []Cell
		corner00   Cell
		valid      bool
	}
	snaps := make([][]snapshot, g.m)
	for gi := 0; gi < g.m; gi++ {
		snaps[gi] = make([]snapshot, g.m)
		for gj := 0; gj < g.m; gj++ {
			part := g.partitions[gi][gj]
			if part.state == Uninitialized {
				continue
			}
			row0 := make([]Cell, g.p)
			col0 := make([]Cell, g.p)
			for x := 0; x < g.p; x++ {
				row0[x] = part.CellLocal(x, 0)
			}
			for y := 0; y < g.p; y++ {
				col0[y] = part.CellLocal(0, y)
			}
			snaps[gi][gj] = snapshot{row0: row0, col0: col0, corner00: part.CellLocal(0, 0), valid: true}
		}
	}

	for gi := 0; gi < g.m; gi++ {
		for gj := 0; gj < g.m; gj++ {
			part := g.partitions[gi][gj]

			if gi+1 < g.m && snaps[gi+1][gj].valid {
				s := snaps[gi+1][gj]
				for y := 0; y < g.p; y++ {
					part.setBorderCell(g.p, y, s.col0[y])
				}
			}
			if gj+1 < g.m && snaps[gi][gj+1].valid {
				s := snaps[gi][gj+1]
				for x := 0; x < g.p; x++ {
					part.setBorderCell(x, g.p, s.row0[x])
				}
			}
			if gi+1 < g.m && gj+1 < g.m && snaps[gi+1][gj+1].valid {
				part.setBorderCell(g.p, g.p, snaps[gi+1][gj+1].corner00)
			}
		}
	}
}

// LifecycleCounts tallies partitions by lifecycle state, for diagnostics
// (cmd/gridtool inspect).
func (g *Grid) LifecycleCounts() (uninitialized, empty, content int) {
	for gi := 0; gi < g.m; gi++ {
		for gj := 0; gj < g.m; gj++ {
			switch g.partitions[gi][gj].state {
			case Uninitialized:
				uninitialized++
			case Empty:
				empty++
			case Content:
				content++
			}
		}
	}
	return
}

// Grid2ColorImage rasterizes the TSD field into an RGB image of w×h pixels
// covering the grid's world bounds (spec.md §4.2, §5.1): green proportional
// to positive TSD, TSD ≥ 0.999999 (unknown/far) white, negative TSD red,
// observed-empty partitions mid gray, never-visited partitions black. img
// must be pre-sized to w*h*3 bytes, row-major, RGB triplets.
func (g *Grid) Grid2ColorImage(img []byte, w, h int) {
	worldSize := g.WorldSize()
	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			wx := (float64(px) + 0.5) / float64(w) * worldSize
			wy := (float64(py) + 0.5) / float64(h) * worldSize
			idx := (py*w + px) * 3

			status, pIdx, _, _, _, _ := g.Coord2Cell(vecmat.V(wx, wy))
			gi, gj := pIdx/g.m, pIdx%g.m
			if status != StatusSuccess {
				continue
			}
			part := g.partitions[gi][gj]
			if part.state == Uninitialized {
				img[idx], img[idx+1], img[idx+2] = 0, 0, 0
				continue
			}
			if part.state == Empty {
				img[idx], img[idx+1], img[idx+2] = 128, 128, 128
				continue
			}
			st, tsd := g.InterpolateBilinear(vecmat.V(wx, wy))
			if st != StatusSuccess {
				continue
			}
			switch {
			case tsd >= 0.999999:
				img[idx], img[idx+1], img[idx+2] = 255, 255, 255
			case tsd >= 0:
				img[idx], img[idx+1], img[idx+2] = 0, byte(255*tsd), 0
			default:
				img[idx], img[idx+1], img[idx+2] = byte(255*(-tsd)), 0, 0
			}
		}
	}
}

// StoreGrid writes a textual snapshot of the grid (spec.md §6): a header
// line of (cellSize, layoutPartition, layoutGrid, maxTruncation), then one
// record per partition in row-major order.
func (g *Grid) StoreGrid(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("tsdf: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%s %d %d %s\n",
		strconv.FormatFloat(g.cellSize, 'g', -1, 64),
		g.cfg.PartitionLayout, g.cfg.GridLayout,
		strconv.FormatFloat(g.maxTrunc, 'g', -1, 64))

	for gi := 0; gi < g.m; gi++ {
		for gj := 0; gj < g.m; gj++ {
			part := g.partitions[gi][gj]
			switch {
			case part.state == Uninitialized:
				fmt.Fprintln(w, "0")
			case part.state == Empty:
				fmt.Fprintf(w, "1 %s\n", strconv.FormatFloat(part.initWeight, 'g', -1, 64))
			default:
				fmt.Fprintln(w, "2")
				for y := 0; y <= part.size; y++ {
					for x := 0; x <= part.size; x++ {
						c := part.CellLocal(x, y)
						if x == part.size || y == part.size {
							continue // extended cache cells are not persisted, only P*P owned cells
						}
						fmt.Fprintf(w, "%s %s\n",
							strconv.FormatFloat(c.Tsd, 'g', -1, 64),
							strconv.FormatFloat(c.Weight, 'g', -1, 64))
					}
				}
			}
		}
	}
	return w.Flush()
}

// LoadGrid reads a snapshot written by StoreGrid into a fresh grid,
// validating layout against the header (spec.md §7.1 dimension mismatch).
func LoadGrid(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tsdf: open %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 1<<20), 1<<24)
	if !sc.Scan() {
		return nil, fmt.Errorf("%w: missing header", ErrCorruptSnapshot)
	}
	fields := strings.Fields(sc.Text())
	if len(fields) != 4 {
		return nil, fmt.Errorf("%w: malformed header", ErrCorruptSnapshot)
	}
	cellSize, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return nil, fmt.Errorf("%w: cellSize: %v", ErrCorruptSnapshot, err)
	}
	layoutPartition, err := strconv.ParseUint(fields[1], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("%w: layoutPartition: %v", ErrCorruptSnapshot, err)
	}
	layoutGrid, err := strconv.ParseUint(fields[2], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("%w: layoutGrid: %v", ErrCorruptSnapshot, err)
	}
	maxTrunc, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return nil, fmt.Errorf("%w: maxTruncation: %v", ErrCorruptSnapshot, err)
	}
	if layoutPartition > 15 || layoutGrid > 15 {
		return nil, ErrLayoutOutOfRange
	}
	if layoutGrid < layoutPartition {
		return nil, fmt.Errorf("%w: gridLayout < partitionLayout", ErrDimensionMismatch)
	}

	cfg := config.GridConfig{
		CellSize:        cellSize,
		PartitionLayout: uint(layoutPartition),
		GridLayout:      uint(layoutGrid),
		MaxTruncation:   maxTrunc,
		InitWeight:      0,
	}
	g := NewGrid(cfg)

	for gi := 0; gi < g.m; gi++ {
		for gj := 0; gj < g.m; gj++ {
			part := g.partitions[gi][gj]
			if !sc.Scan() {
				return nil, fmt.Errorf("%w: truncated partition stream", ErrCorruptSnapshot)
			}
			tagFields := strings.Fields(sc.Text())
			if len(tagFields) == 0 {
				return nil, fmt.Errorf("%w: empty partition tag", ErrCorruptSnapshot)
			}
			switch tagFields[0] {
			case "0":
				// uninitialized: nothing further to read
			case "1":
				if len(tagFields) != 2 {
					return nil, fmt.Errorf("%w: malformed EMPTY record", ErrCorruptSnapshot)
				}
				weight, err := strconv.ParseFloat(tagFields[1], 64)
				if err != nil {
					return nil, fmt.Errorf("%w: EMPTY weight: %v", ErrCorruptSnapshot, err)
				}
				part.markEmpty(weight)
			case "2":
				part.Init(0)
				for y := 0; y < part.size; y++ {
					for x := 0; x < part.size; x++ {
						if !sc.Scan() {
							return nil, fmt.Errorf("%w: truncated CONTENT record", ErrCorruptSnapshot)
						}
						cf := strings.Fields(sc.Text())
						if len(cf) != 2 {
							return nil, fmt.Errorf("%w: malformed cell record", ErrCorruptSnapshot)
						}
						tsd, err := strconv.ParseFloat(cf[0], 64)
						if err != nil {
							return nil, fmt.Errorf("%w: cell tsd: %v", ErrCorruptSnapshot, err)
						}
						weight, err := strconv.ParseFloat(cf[1], 64)
						if err != nil {
							return nil, fmt.Errorf("%w: cell weight: %v", ErrCorruptSnapshot, err)
						}
						part.SetCellLocal(x, y, Cell{Tsd: tsd, Weight: weight})
					}
				}
			default:
				return nil, fmt.Errorf("%w: unknown tag %q", ErrCorruptSnapshot, tagFields[0])
			}
		}
	}

	g.propagateBorders()
	return g, nil
}
