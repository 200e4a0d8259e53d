package tsdf

import (
	"math"

	"github.com/go-obviously/slam2d/internal/vecmat"
)

// State is a partition's lifecycle stage (spec.md §3 TsdPartition).
type State int

const (
	// Uninitialized: no cell storage allocated yet.
	Uninitialized State = iota
	// Empty: the sensor has observed the region and every cell lies
	// beyond truncation; initWeight accumulates how strongly.
	Empty
	// Content: at least one cell has been fused with a measurement.
	Content
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "UNINITIALIZED"
	case Empty:
		return "EMPTY"
	case Content:
		return "CONTENT"
	default:
		return "UNKNOWN"
	}
}

// Partition is a square P×P tile of the TSD grid (spec.md §3 TsdPartition,
// §4.1). Its cell storage is a flat (P+1)×(P+1) backing array addressed by
// stride — the "owning 2D buffer" the design notes call for in place of
// raw pointer arithmetic. Row/column P caches the first row/column of the
// right/upper neighbors so bilinear interpolation never needs a
// cross-partition lookup (border propagation, spec.md §3/§4.2).
type Partition struct {
	state State
	size  int // P
	cells []Cell // (P+1)*(P+1), row-major, stride P+1

	gi, gj   int // this partition's (x,y) index within the grid's M×M matrix
	cellSize float64
	origin   vecmat.Vector // world coordinate of local cell (0,0)'s lower-left corner

	initWeight float64

	centroid      vecmat.Vector
	circumradius  float64
	corners       [4]vecmat.Vector
}

// newPartition builds an as-yet-uninitialized partition at grid position
// (gi, gj). Geometric metadata (centroid, circumradius, corners) is cheap
// and needed for frustum tests even before any cell storage is allocated,
// so it is computed here rather than deferred to Init.
func newPartition(gi, gj, size int, cellSize float64) *Partition {
	side := float64(size) * cellSize
	origin := vecmat.V(float64(gi)*side, float64(gj)*side)
	p := &Partition{
		state:    Uninitialized,
		size:     size,
		gi:       gi,
		gj:       gj,
		cellSize: cellSize,
		origin:   origin,
		centroid: origin.Add(vecmat.V(side/2, side/2)),
		// Circumradius of a square with side `side` is half its diagonal.
		circumradius: side * math.Sqrt2 / 2,
		corners: [4]vecmat.Vector{
			origin,
			origin.Add(vecmat.V(side, 0)),
			origin.Add(vecmat.V(side, side)),
			origin.Add(vecmat.V(0, side)),
		},
	}
	return p
}

// stride is the row length of the flat cell backing array.
func (p *Partition) stride() int { return p.size + 1 }

func (p *Partition) at(x, y int) int { return y*p.stride() + x }

// Size returns P.
func (p *Partition) Size() int { return p.size }

// State returns the current lifecycle stage.
func (p *Partition) State() State { return p.state }

// IsInitialized reports whether cell storage has been allocated.
func (p *Partition) IsInitialized() bool { return p.state != Uninitialized }

// IsEmpty reports whether the partition has been observed to contain no
// surface (lifecycle stage Empty).
func (p *Partition) IsEmpty() bool { return p.state == Empty }

// Centroid, Circumradius and Corners expose the precomputed geometric
// metadata used by the frustum test (spec.md §4.3).
func (p *Partition) Centroid() vecmat.Vector       { return p.centroid }
func (p *Partition) Circumradius() float64         { return p.circumradius }
func (p *Partition) Corners() [4]vecmat.Vector     { return p.corners }
func (p *Partition) Origin() vecmat.Vector         { return p.origin }
func (p *Partition) GridIndex() (int, int)         { return p.gi, p.gj }

// ensureStorage allocates the flat cell buffer if it has not been already,
// without touching the lifecycle state — border propagation needs
// somewhere to cache a neighbor's edge cells even for a partition nothing
// has written into yet, and that must not by itself promote the partition
// to CONTENT.
func (p *Partition) ensureStorage() {
	if p.cells != nil {
		return
	}
	n := p.stride() * p.stride()
	p.cells = make([]Cell, n)
	for i := range p.cells {
		p.cells[i] = UnusedCell()
	}
}

// Init allocates cell storage, transitioning Uninitialized→CONTENT; it is
// a no-op in any other state. (The "observed empty" path does not use Init:
// markEmpty allocates storage through ensureStorage.) Every cell is seeded
// with the unused sentinel, its weight bumped to initWeight so later
// emptiness bookkeeping has something to accumulate (spec.md §4.1 init).
func (p *Partition) Init(initWeight float64) {
	if p.state != Uninitialized {
		return
	}
	p.ensureStorage()
	for i := range p.cells {
		p.cells[i] = Cell{Tsd: 1, Weight: initWeight}
	}
	p.initWeight = initWeight
	p.state = Content
}

// markEmpty demotes an initialized-but-never-fused partition to the EMPTY
// lifecycle stage, accumulating the observation strength in initWeight.
// A CONTENT partition is left unchanged.
func (p *Partition) markEmpty(weight float64) {
	if p.state == Content {
		return
	}
	if p.cells == nil {
		p.ensureStorage()
	}
	p.state = Empty
	p.initWeight += weight
}

// InitWeight returns the accumulated emptiness-observation weight (only
// meaningful in the Empty state; see spec.md §6 snapshot format).
func (p *Partition) InitWeight() float64 { return p.initWeight }

// CellLocal returns the cell at local (x, y) within [0, P]. Index P refers
// to the row/column cached from neighbor partitions by border propagation.
func (p *Partition) CellLocal(x, y int) Cell {
	if p.cells == nil {
		return UnusedCell()
	}
	return p.cells[p.at(x, y)]
}

// SetCellLocal overwrites the cell at local (x, y), allocating storage and
// promoting the lifecycle state to CONTENT if needed.
func (p *Partition) SetCellLocal(x, y int, c Cell) {
	if p.state == Uninitialized {
		p.Init(0)
	}
	p.cells[p.at(x, y)] = c
}

// setBorderCell overwrites a cached border cell (index P row/column)
// without promoting the lifecycle state — see ensureStorage.
func (p *Partition) setBorderCell(x, y int, c Cell) {
	p.ensureStorage()
	p.cells[p.at(x, y)] = c
}

// CellCenterWorld returns the world-space center of local cell (x, y):
// origin + (x+0.5, y+0.5)*cellSize.
func (p *Partition) CellCenterWorld(x, y int) vecmat.Vector {
	return p.origin.Add(vecmat.V((float64(x)+0.5)*p.cellSize, (float64(y)+0.5)*p.cellSize))
}

// AddTsd fuses a new measurement at local cell (x, y), per spec.md §4.1:
// truncate/normalize signedDistance by maxTruncation, lazily initialize the
// partition on first write, then fold into the running weighted mean.
// Writes with signedDistance < -maxTruncation are dropped (behind the
// truncation band, no information).
func (p *Partition) AddTsd(x, y int, signedDistance, maxTruncation float64) {
	if signedDistance < -maxTruncation {
		return
	}
	newTsd := signedDistance / maxTruncation
	if newTsd > 1 {
		newTsd = 1
	}

	if p.state == Uninitialized {
		p.Init(0)
	}
	idx := p.at(x, y)
	p.cells[idx] = p.cells[idx].Fuse(newTsd)
	if p.state == Empty {
		p.state = Content
	}
}

// InterpolateBilinear performs a four-neighbor bilinear mix over the local
// fractional coordinate (x+wx, y+wy), x,y in [0, P-1], wx,wy in [0,1]
// (spec.md §4.1).
func (p *Partition) InterpolateBilinear(x, y int, wx, wy float64) float64 {
	c00 := p.CellLocal(x, y).Tsd
	c10 := p.CellLocal(x+1, y).Tsd
	c01 := p.CellLocal(x, y+1).Tsd
	c11 := p.CellLocal(x+1, y+1).Tsd

	top := c00*(1-wx) + c10*wx
	bottom := c01*(1-wx) + c11*wx
	return top*(1-wy) + bottom*wy
}
