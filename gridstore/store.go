// Package gridstore implements the spatially-bucketed feature store: every
// tracked stereo feature lives in exactly one grid cell of the current
// image, with per-cell population caps and monotonic feature IDs.
package gridstore

import (
	"sort"
	"sync/atomic"

	"github.com/golang/geo/r2"
)

// FeatureID is a monotonically increasing identifier assigned the first
// time a feature is admitted into the store; never reused.
type FeatureID uint64

// FeatureRecord is one tracked stereo feature: its grid-cell position in
// both cameras, detector response, and lifetime (consecutive frames
// tracked).
type FeatureRecord struct {
	ID       FeatureID
	Response float64
	Lifetime int
	LeftPt   r2.Point
	RightPt  r2.Point
}

// idGenerator hands out globally unique FeatureIDs; atomic so concurrent
// Admit calls from multiple orchestrator instances (e.g. tests) don't race.
var idGenerator atomic.Uint64

func nextFeatureID() FeatureID {
	return FeatureID(idGenerator.Add(1))
}

// GridStore buckets FeatureRecords into a gridRow x gridCol grid sized to
// the current frame's image bounds.
type GridStore struct {
	gridRow, gridCol int
	cells            map[int][]FeatureRecord
}

// NewGridStore returns an empty store with the given grid dimensions.
func NewGridStore(gridRow, gridCol int) *GridStore {
	return &GridStore{
		gridRow: gridRow,
		gridCol: gridCol,
		cells:   make(map[int][]FeatureRecord),
	}
}

// CellSize returns the pixel width/height of one grid cell for an image of
// the given dimensions. It is recomputed from the current frame's bounds on
// every call rather than cached, since a static cache would silently go
// stale if resolution ever changed between frames.
func (g *GridStore) CellSize(imgWidth, imgHeight int) (cellWidth, cellHeight int) {
	return imgWidth / g.gridCol, imgHeight / g.gridRow
}

// Bucket returns the cell code (row*gridCol+col) for a pixel location.
func (g *GridStore) Bucket(p r2.Point, imgWidth, imgHeight int) int {
	cellWidth, cellHeight := g.CellSize(imgWidth, imgHeight)
	if cellWidth <= 0 {
		cellWidth = 1
	}
	if cellHeight <= 0 {
		cellHeight = 1
	}
	row := int(p.Y) / cellHeight
	col := int(p.X) / cellWidth
	if row >= g.gridRow {
		row = g.gridRow - 1
	}
	if col >= g.gridCol {
		col = g.gridCol - 1
	}
	if row < 0 {
		row = 0
	}
	if col < 0 {
		col = 0
	}
	return row*g.gridCol + col
}

// Admit assigns a fresh FeatureID and lifetime 1 to rec and inserts it into
// cell.
func (g *GridStore) Admit(cell int, rec FeatureRecord) FeatureRecord {
	rec.ID = nextFeatureID()
	rec.Lifetime = 1
	g.cells[cell] = append(g.cells[cell], rec)
	return rec
}

// RefreshSurvivor re-inserts a feature that survived tracking into the
// store at its new pixel location, incrementing its lifetime.
func (g *GridStore) RefreshSurvivor(cell int, rec FeatureRecord) {
	rec.Lifetime++
	g.cells[cell] = append(g.cells[cell], rec)
}

// Cell returns a copy of the records currently in the given cell.
func (g *GridStore) Cell(cell int) []FeatureRecord {
	recs := g.cells[cell]
	out := make([]FeatureRecord, len(recs))
	copy(out, recs)
	return out
}

// CellCount returns the number of features currently stored in cell.
func (g *GridStore) CellCount(cell int) int {
	return len(g.cells[cell])
}

// SortByResponse stably sorts cell's features by descending response, used
// to prioritize which new features to keep when a cell has more candidates
// than its cap allows.
func (g *GridStore) SortByResponse(cell int) {
	recs := g.cells[cell]
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Response > recs[j].Response })
}

// SortByLifetime stably sorts cell's features by descending lifetime, used
// to keep the longest-tracked features when a cell is over its cap.
func (g *GridStore) SortByLifetime(cell int) {
	recs := g.cells[cell]
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Lifetime > recs[j].Lifetime })
}

// Prune truncates cell to at most cap features, keeping the current order
// (callers sort first).
func (g *GridStore) Prune(cell int, cap int) {
	recs := g.cells[cell]
	if len(recs) > cap {
		g.cells[cell] = recs[:cap]
	}
}

// Iterate calls fn once per non-empty cell with its current feature slice.
func (g *GridStore) Iterate(fn func(cell int, recs []FeatureRecord)) {
	for cell, recs := range g.cells {
		fn(cell, recs)
	}
}

// Count returns the total number of features across every cell.
func (g *GridStore) Count() int {
	total := 0
	for _, recs := range g.cells {
		total += len(recs)
	}
	return total
}

// NumCells returns gridRow*gridCol, the total number of grid cells.
func (g *GridStore) NumCells() int {
	return g.gridRow * g.gridCol
}
