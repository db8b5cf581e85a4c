package gridstore

import (
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestBucketAssignsRowMajorCode(t *testing.T) {
	g := NewGridStore(4, 4)
	// 640x480 image, 4x4 grid => cell 160x120.
	cell := g.Bucket(r2.Point{X: 170, Y: 10}, 640, 480)
	test.That(t, cell, test.ShouldEqual, 1) // row 0, col 1

	cell2 := g.Bucket(r2.Point{X: 170, Y: 130}, 640, 480)
	test.That(t, cell2, test.ShouldEqual, 5) // row 1, col 1
}

func TestAdmitAssignsMonotonicIDsAndLifetimeOne(t *testing.T) {
	g := NewGridStore(2, 2)
	r1 := g.Admit(0, FeatureRecord{Response: 10})
	r2v := g.Admit(0, FeatureRecord{Response: 20})
	test.That(t, r1.Lifetime, test.ShouldEqual, 1)
	test.That(t, r2v.Lifetime, test.ShouldEqual, 1)
	test.That(t, r2v.ID, test.ShouldNotEqual, r1.ID)
	test.That(t, g.CellCount(0), test.ShouldEqual, 2)
}

func TestSortByResponseDescending(t *testing.T) {
	g := NewGridStore(1, 1)
	g.Admit(0, FeatureRecord{Response: 5})
	g.Admit(0, FeatureRecord{Response: 50})
	g.Admit(0, FeatureRecord{Response: 20})
	g.SortByResponse(0)
	recs := g.Cell(0)
	test.That(t, recs[0].Response, test.ShouldEqual, 50.0)
	test.That(t, recs[1].Response, test.ShouldEqual, 20.0)
	test.That(t, recs[2].Response, test.ShouldEqual, 5.0)
}

func TestPruneTruncatesToCapAfterSortByLifetime(t *testing.T) {
	g := NewGridStore(1, 1)
	for i, lifetime := range []int{1, 10, 3, 7} {
		_ = i
		rec := g.Admit(0, FeatureRecord{Response: 1})
		rec.Lifetime = lifetime
		g.cells[0][len(g.cells[0])-1] = rec
	}
	g.SortByLifetime(0)
	g.Prune(0, 2)
	recs := g.Cell(0)
	test.That(t, len(recs), test.ShouldEqual, 2)
	test.That(t, recs[0].Lifetime, test.ShouldEqual, 10)
	test.That(t, recs[1].Lifetime, test.ShouldEqual, 7)
}

func TestCountSumsAllCells(t *testing.T) {
	g := NewGridStore(2, 2)
	g.Admit(0, FeatureRecord{})
	g.Admit(1, FeatureRecord{})
	g.Admit(1, FeatureRecord{})
	test.That(t, g.Count(), test.ShouldEqual, 3)
}

func TestNumCells(t *testing.T) {
	g := NewGridStore(4, 5)
	test.That(t, g.NumCells(), test.ShouldEqual, 20)
}
