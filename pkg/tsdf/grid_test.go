package tsdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-obviously/slam2d/internal/config"
	"github.com/go-obviously/slam2d/internal/vecmat"
)

// fakeSensor is a minimal RangeSensor stub for Push/frustum tests: a single
// beam aimed straight along +X from a fixed position.
type fakeSensor struct {
	pos                  vecmat.Vector
	ranges               []float64
	valid                []bool
	minRange, maxRange   float64
	lowReflectivityRange float64
}

func (s *fakeSensor) Position() vecmat.Vector { return s.pos }
func (s *fakeSensor) Range(beam int) float64  { return s.ranges[beam] }
func (s *fakeSensor) Valid(beam int) bool     { return s.valid[beam] }
func (s *fakeSensor) NumBeams() int           { return len(s.ranges) }
func (s *fakeSensor) MinRange() float64       { return s.minRange }
func (s *fakeSensor) MaxRange() float64       { return s.maxRange }
func (s *fakeSensor) LowReflectivityRange() float64 { return s.lowReflectivityRange }

// BackProjectBatch maps every point to beam 0 if it lies roughly along +X
// of pos, else -1 — just enough geometry for the grid tests below.
func (s *fakeSensor) BackProjectBatch(points []vecmat.Vector) []int {
	out := make([]int, len(points))
	for i, p := range points {
		d := p.Sub(s.pos)
		if d.X >= 0 {
			out[i] = 0
		} else {
			out[i] = -1
		}
	}
	return out
}

func testConfig() config.GridConfig {
	return config.GridConfig{
		CellSize:        0.1,
		PartitionLayout: 3, // P = 8
		GridLayout:      4, // total = 16, M = 2
		MaxTruncation:   0.3,
		InitWeight:      1,
	}
}

func TestNewGridClampsMaxTruncation(t *testing.T) {
	cfg := testConfig()
	cfg.MaxTruncation = 0.01 // below 2*cellSize = 0.2
	g := NewGrid(cfg)
	defer g.Close()
	assert.InDelta(t, 0.2, g.MaxTruncation(), 1e-12)
}

func TestCoord2CellOuterRingIsInvalid(t *testing.T) {
	g := NewGrid(testConfig())
	defer g.Close()

	status, _, _, _, _, _ := g.Coord2Cell(vecmat.V(0.05, 0.8))
	assert.Equal(t, StatusInvalidIndex, status, "a query in the outermost cell ring must be invalid")

	worldSize := g.WorldSize()
	status, _, _, _, _, _ = g.Coord2Cell(vecmat.V(worldSize+1, worldSize+1))
	assert.Equal(t, StatusInvalidIndex, status)
}

func TestCoord2CellInteriorIsValid(t *testing.T) {
	g := NewGrid(testConfig())
	defer g.Close()

	worldSize := g.WorldSize()
	status, px, lx, ly, wx, wy := g.Coord2Cell(vecmat.V(worldSize/2, worldSize/2))
	require.Equal(t, StatusSuccess, status)
	assert.GreaterOrEqual(t, px, 0)
	assert.GreaterOrEqual(t, lx, 0)
	assert.GreaterOrEqual(t, ly, 0)
	assert.GreaterOrEqual(t, wx, -1.0)
	assert.LessOrEqual(t, wx, 1.0)
	assert.GreaterOrEqual(t, wy, -1.0)
	assert.LessOrEqual(t, wy, 1.0)
}

func TestInterpolateBilinearEmptyPartitionReportsStatus(t *testing.T) {
	g := NewGrid(testConfig())
	defer g.Close()

	worldSize := g.WorldSize()
	status, _ := g.InterpolateBilinear(vecmat.V(worldSize/2, worldSize/2))
	assert.Equal(t, StatusEmptyPartition, status)
}

func TestPushWithNoValidBeamsIsNoOp(t *testing.T) {
	g := NewGrid(testConfig())
	defer g.Close()

	sensor := &fakeSensor{
		pos:      vecmat.V(0, 0),
		ranges:   []float64{1.0},
		valid:    []bool{false}, // masked out
		minRange: 0,
		maxRange: 5,
	}
	g.Push(sensor)

	uninitialized, empty, content := g.LifecycleCounts()
	assert.Equal(t, 0, content, "a push with every beam masked invalid must fuse nothing")
	assert.Equal(t, g.PartitionCount()*g.PartitionCount(), uninitialized, "no partition may change lifecycle state (empty=%d)", empty)
}

func TestPushFusesVisiblePartition(t *testing.T) {
	g := NewGrid(testConfig())
	defer g.Close()

	sensor := &fakeSensor{
		pos:      vecmat.V(0, 0),
		ranges:   []float64{0.5},
		valid:    []bool{true},
		minRange: 0,
		maxRange: 5,
	}
	g.Push(sensor)

	_, _, content := g.LifecycleCounts()
	assert.Greater(t, content, 0, "push should have fused at least one partition crossed by the beam")
}

func TestStoreLoadRoundTripPreservesExactValues(t *testing.T) {
	g := NewGrid(testConfig())
	defer g.Close()

	sensor := &fakeSensor{
		pos:      vecmat.V(0, 0),
		ranges:   []float64{0.55555555555},
		valid:    []bool{true},
		minRange: 0,
		maxRange: 5,
	}
	g.Push(sensor)

	path := filepath.Join(t.TempDir(), "snap.tsdf")
	require.NoError(t, g.StoreGrid(path))

	loaded, err := LoadGrid(path)
	require.NoError(t, err)
	defer loaded.Close()

	assert.Equal(t, g.PartitionCount(), loaded.PartitionCount())
	assert.InDelta(t, g.CellSize(), loaded.CellSize(), 1e-12)
	assert.InDelta(t, g.MaxTruncation(), loaded.MaxTruncation(), 1e-12)

	for gi := 0; gi < g.m; gi++ {
		for gj := 0; gj < g.m; gj++ {
			orig := g.partitions[gi][gj]
			got := loaded.partitions[gi][gj]
			require.Equal(t, orig.state, got.state)
			if orig.state != Content {
				continue
			}
			for y := 0; y < orig.size; y++ {
				for x := 0; x < orig.size; x++ {
					oc := orig.CellLocal(x, y)
					lc := got.CellLocal(x, y)
					assert.InDelta(t, oc.Tsd, lc.Tsd, 1e-9)
					assert.InDelta(t, oc.Weight, lc.Weight, 1e-9)
				}
			}
		}
	}
}

func TestLoadGridRejectsLayoutOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.tsdf")
	writeRaw(t, path, "0.1 16 17 0.3\n")

	_, err := LoadGrid(path)
	assert.ErrorIs(t, err, ErrLayoutOutOfRange)
}

func TestLoadGridRejectsDimensionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad2.tsdf")
	writeRaw(t, path, "0.1 8 4 0.3\n") // gridLayout < partitionLayout

	_, err := LoadGrid(path)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestLoadGridRejectsCorruptHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad3.tsdf")
	writeRaw(t, path, "not a header\n")

	_, err := LoadGrid(path)
	assert.ErrorIs(t, err, ErrCorruptSnapshot)
}

func TestPropagateBordersIdempotent(t *testing.T) {
	g := NewGrid(testConfig())
	defer g.Close()

	sensor := &fakeSensor{
		pos:      vecmat.V(0, 0),
		ranges:   []float64{0.8},
		valid:    []bool{true},
		minRange: 0,
		maxRange: 5,
	}
	g.Push(sensor)

	var before [][]Cell
	for gi := 0; gi < g.m; gi++ {
		for gj := 0; gj < g.m; gj++ {
			p := g.partitions[gi][gj]
			if p.cells == nil {
				continue
			}
			row := make([]Cell, len(p.cells))
			copy(row, p.cells)
			before = append(before, row)
		}
	}

	g.propagateBorders()

	i := 0
	for gi := 0; gi < g.m; gi++ {
		for gj := 0; gj < g.m; gj++ {
			p := g.partitions[gi][gj]
			if p.cells == nil {
				continue
			}
			assert.Equal(t, before[i], p.cells, "re-running propagation must be idempotent")
			i++
		}
	}
}

func writeRaw(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
