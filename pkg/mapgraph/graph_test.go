package mapgraph_test

import (
	"testing"

	"motoroute/pkg/mapgraph"
	"motoroute/pkg/testfixture"
)

func TestMesh1LineCounts(t *testing.T) {
	g := testfixture.Mesh1Graph()

	// way 1234 (4 points) -> 3 lines, 5367 (4 points) -> 3 lines,
	// 489 (3 points) -> 2 lines, 68 (2 points) -> 1 line,
	// 1112 (2 points) -> 1 line. Total 10.
	if got, want := g.NumLines(), 10; got != want {
		t.Fatalf("NumLines() = %d, want %d", got, want)
	}
	if got, want := g.NumPoints(), 11; got != want {
		t.Fatalf("NumPoints() = %d, want %d", got, want)
	}
}

func lineBetween(g *mapgraph.Graph, p mapgraph.PointRef, other uint64) (mapgraph.LineRef, bool) {
	for _, adj := range g.Adjacent(p) {
		if g.Point(adj.Other).ID == other {
			return adj.Line, true
		}
	}
	return 0, false
}

func pointByID(g *mapgraph.Graph, id uint64) mapgraph.PointRef {
	for i := 0; i < g.NumPoints(); i++ {
		if g.Point(mapgraph.PointRef(i)).ID == id {
			return mapgraph.PointRef(i)
		}
	}
	panic("point not found")
}

func TestMesh1JunctionDetection(t *testing.T) {
	g := testfixture.Mesh1Graph()

	p3 := pointByID(g, 3)
	if !g.Point(p3).IsJunction() {
		t.Fatalf("point 3 has 3 incident lines, expected IsJunction() == true")
	}
	p1 := pointByID(g, 1)
	if g.Point(p1).IsJunction() {
		t.Fatalf("point 1 is a dead end, expected IsJunction() == false")
	}
	if _, ok := lineBetween(g, p3, 2); !ok {
		t.Fatalf("expected a line between point 3 and point 2")
	}
}

func TestMesh2OnewayDirection(t *testing.T) {
	g := testfixture.Mesh2Graph()

	p7 := pointByID(g, 7)
	p6 := pointByID(g, 6)
	lr, ok := lineBetween(g, p7, 6)
	if !ok {
		t.Fatalf("expected a line between point 7 and point 6")
	}
	line := g.Line(lr)
	if line.Direction != mapgraph.OneWay {
		t.Fatalf("way 67 should be OneWay, got %v", line.Direction)
	}
	// Legal direction is first->second in node order: 6 -> 7.
	if line.P1 != p6 || line.P2 != p7 {
		t.Fatalf("line endpoints = (%v, %v), want (%v, %v) matching node order 6,7", line.P1, line.P2, p6, p7)
	}
}

func TestMesh2RoundaboutDirection(t *testing.T) {
	g := testfixture.Mesh2Graph()
	p7 := pointByID(g, 7)
	lr, ok := lineBetween(g, p7, 11)
	if !ok {
		t.Fatalf("expected a line between point 7 and point 11")
	}
	if g.Line(lr).Direction != mapgraph.Roundabout {
		t.Fatalf("way 7111213 should produce Roundabout lines")
	}
}

func TestClosestToCoordsPicksNearestAmongCandidates(t *testing.T) {
	g := mapgraph.New(nil)
	g.InsertNode(1, 57.1640, 24.8652)
	g.InsertNode(2, 57.1740, 24.8630)
	g.InsertNode(3, 57.1641, 24.8653)
	if err := g.InsertWay(1, []uint64{1, 3}, map[string]string{"highway": "primary"}); err != nil {
		t.Fatal(err)
	}
	if err := g.InsertWay(2, []uint64{3, 2}, map[string]string{"highway": "primary"}); err != nil {
		t.Fatal(err)
	}
	g.Finalize()

	ref, ok := g.ClosestToCoords(57.1670, 24.8658)
	if !ok {
		t.Fatalf("expected a closest point")
	}
	if g.Point(ref).ID != 3 {
		t.Fatalf("ClosestToCoords = point %d, want point 3", g.Point(ref).ID)
	}
}

func TestInsertWayMissingPoint(t *testing.T) {
	g := mapgraph.New(nil)
	g.InsertNode(1, 1, 1)
	err := g.InsertWay(1, []uint64{1, 2}, map[string]string{"highway": "primary"})
	if err == nil {
		t.Fatalf("expected MissingPointError for unreferenced node 2")
	}
	if _, ok := err.(*mapgraph.MissingPointError); !ok {
		t.Fatalf("expected *MissingPointError, got %T", err)
	}
}

func TestInsertWayExcludesService(t *testing.T) {
	g := mapgraph.New(nil)
	g.InsertNode(1, 1, 1)
	g.InsertNode(2, 2, 2)
	if err := g.InsertWay(1, []uint64{1, 2}, map[string]string{"highway": "service", "service": "driveway"}); err != nil {
		t.Fatal(err)
	}
	if got := g.NumLines(); got != 0 {
		t.Fatalf("service way should be excluded, NumLines() = %d", got)
	}
}

func TestInsertWayAllowsPathWithMotorcycleYes(t *testing.T) {
	g := mapgraph.New(nil)
	g.InsertNode(1, 1, 1)
	g.InsertNode(2, 2, 2)
	if err := g.InsertWay(1, []uint64{1, 2}, map[string]string{"highway": "path", "motorcycle": "yes"}); err != nil {
		t.Fatal(err)
	}
	if got := g.NumLines(); got != 1 {
		t.Fatalf("path+motorcycle=yes should be admissible, NumLines() = %d", got)
	}
}

func TestInsertRelationNotAllowed(t *testing.T) {
	g := mapgraph.New(nil)
	g.InsertNode(1, 1, 1)
	g.InsertNode(2, 2, 2)
	g.InsertNode(3, 3, 3)
	tags := map[string]string{"highway": "primary"}
	if err := g.InsertWay(10, []uint64{1, 2}, tags); err != nil {
		t.Fatal(err)
	}
	if err := g.InsertWay(20, []uint64{2, 3}, tags); err != nil {
		t.Fatal(err)
	}
	err := g.InsertRelation(1, []mapgraph.Member{
		{Type: mapgraph.MemberWay, Role: "from", Ref: 10},
		{Type: mapgraph.MemberNode, Role: "via", Ref: 2},
		{Type: mapgraph.MemberWay, Role: "to", Ref: 20},
	}, map[string]string{"type": "restriction", "restriction": "no_straight_on"})
	if err != nil {
		t.Fatal(err)
	}
	g.Finalize()

	p2 := pointByID(g, 2)
	if len(g.Point(p2).Rules) != 1 {
		t.Fatalf("expected 1 rule at via point, got %d", len(g.Point(p2).Rules))
	}
	if g.Point(p2).Rules[0].Type != mapgraph.NotAllowed {
		t.Fatalf("expected NotAllowed rule")
	}
}

func TestInsertRelationSkipsMultiVia(t *testing.T) {
	g := mapgraph.New(nil)
	g.InsertNode(1, 1, 1)
	g.InsertNode(2, 2, 2)
	g.InsertNode(3, 3, 3)
	tags := map[string]string{"highway": "primary"}
	if err := g.InsertWay(10, []uint64{1, 2}, tags); err != nil {
		t.Fatal(err)
	}
	if err := g.InsertWay(20, []uint64{2, 3}, tags); err != nil {
		t.Fatal(err)
	}
	err := g.InsertRelation(1, []mapgraph.Member{
		{Type: mapgraph.MemberWay, Role: "from", Ref: 10},
		{Type: mapgraph.MemberNode, Role: "via", Ref: 1},
		{Type: mapgraph.MemberNode, Role: "via", Ref: 2},
		{Type: mapgraph.MemberWay, Role: "to", Ref: 20},
	}, map[string]string{"type": "restriction", "restriction": "no_straight_on"})
	if err != nil {
		t.Fatal(err)
	}
	g.Finalize()
	p1 := pointByID(g, 1)
	p2 := pointByID(g, 2)
	if len(g.Point(p1).Rules) != 0 || len(g.Point(p2).Rules) != 0 {
		t.Fatalf("multi-via relation should be skipped entirely")
	}
}
