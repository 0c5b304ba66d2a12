package route_test

import (
	"testing"

	"motoroute/pkg/mapgraph"
	"motoroute/pkg/route"
	"motoroute/pkg/testfixture"
)

func pointByID(g *mapgraph.Graph, id uint64) mapgraph.PointRef {
	for i := 0; i < g.NumPoints(); i++ {
		if g.Point(mapgraph.PointRef(i)).ID == id {
			return mapgraph.PointRef(i)
		}
	}
	panic("point not found")
}

func segmentTo(g *mapgraph.Graph, from, to uint64) route.Segment {
	fromRef := pointByID(g, from)
	for _, adj := range g.Adjacent(fromRef) {
		if g.Point(adj.Other).ID == to {
			return route.Segment{Line: adj.Line, End: adj.Other}
		}
	}
	panic("no line between points")
}

func TestRouteLastAndAt(t *testing.T) {
	g := testfixture.Mesh1Graph()
	r := route.Route{segmentTo(g, 1, 2), segmentTo(g, 2, 3)}

	last, ok := r.Last()
	if !ok || g.Point(last.End).ID != 3 {
		t.Fatalf("Last() = %+v, %v; want point 3", last, ok)
	}
	first, ok := r.At(0)
	if !ok || g.Point(first.End).ID != 2 {
		t.Fatalf("At(0) = %+v, %v; want point 2", first, ok)
	}
	if _, ok := r.At(5); ok {
		t.Fatalf("At(5) should be out of range")
	}
}

func TestRouteStepsFromEnd(t *testing.T) {
	g := testfixture.Mesh1Graph()
	r := route.Route{segmentTo(g, 1, 2), segmentTo(g, 2, 3), segmentTo(g, 3, 6)}

	s, ok := r.StepsFromEnd(0)
	if !ok || g.Point(s.End).ID != 6 {
		t.Fatalf("StepsFromEnd(0) = %+v, want point 6", s)
	}
	s, ok = r.StepsFromEnd(2)
	if !ok || g.Point(s.End).ID != 2 {
		t.Fatalf("StepsFromEnd(2) = %+v, want point 2", s)
	}
	if _, ok := r.StepsFromEnd(10); ok {
		t.Fatalf("StepsFromEnd(10) should be out of range")
	}
}

func TestRouteHasLooped(t *testing.T) {
	g := testfixture.Mesh3Graph()
	r := route.Route{segmentTo(g, 1, 3), segmentTo(g, 3, 5), segmentTo(g, 5, 3)}
	if !r.HasLooped() {
		t.Fatalf("expected HasLooped true when the last segment revisits point 3")
	}

	r2 := route.Route{segmentTo(g, 1, 3), segmentTo(g, 3, 5)}
	if r2.HasLooped() {
		t.Fatalf("expected HasLooped false for a simple path")
	}
}

func TestRouteJunctionBeforeLast(t *testing.T) {
	g := testfixture.Mesh1Graph()
	r := route.Route{segmentTo(g, 1, 2), segmentTo(g, 2, 3), segmentTo(g, 3, 4)}

	seg, ok := r.JunctionBeforeLast(g)
	if !ok || g.Point(seg.End).ID != 3 {
		t.Fatalf("JunctionBeforeLast() = %+v, %v; want point 3", seg, ok)
	}
}

func TestRouteClone(t *testing.T) {
	g := testfixture.Mesh1Graph()
	r := route.Route{segmentTo(g, 1, 2)}
	c := r.Clone()
	c[0] = segmentTo(g, 2, 3)
	if r[0] == c[0] {
		t.Fatalf("Clone should not share a backing array with the original")
	}
}

func TestCalcStatsCountsJunctionsAndCategories(t *testing.T) {
	g := testfixture.Mesh1Graph()
	r := route.Route{segmentTo(g, 1, 2), segmentTo(g, 2, 3), segmentTo(g, 3, 4)}

	stats := route.CalcStats(g, r)
	if stats.LenM <= 0 {
		t.Fatalf("expected a positive total length, got %f", stats.LenM)
	}
	if stats.JunctionCount != 1 {
		t.Fatalf("expected exactly 1 junction (point 3), got %d", stats.JunctionCount)
	}
	primary, ok := stats.Highway["primary"]
	if !ok || primary.Percentage != 100 {
		t.Fatalf("expected highway=primary to cover 100%% of the route, got %+v", stats.Highway)
	}
}

func TestCalcStatsEmptyRoute(t *testing.T) {
	g := testfixture.Mesh1Graph()
	stats := route.CalcStats(g, nil)
	if stats.LenM != 0 || stats.JunctionCount != 0 {
		t.Fatalf("expected zero-value stats for an empty route, got %+v", stats)
	}
}

func TestScoreIsNonNegative(t *testing.T) {
	g := testfixture.Mesh1Graph()
	r := route.Route{segmentTo(g, 1, 2), segmentTo(g, 2, 3), segmentTo(g, 3, 4)}
	if score := route.Score(g, r); score < 0 {
		t.Fatalf("expected a non-negative score, got %f", score)
	}
}

func TestScoreEmptyRouteIsZero(t *testing.T) {
	g := testfixture.Mesh1Graph()
	if score := route.Score(g, nil); score != 0 {
		t.Fatalf("expected score 0 for an empty route, got %f", score)
	}
}
