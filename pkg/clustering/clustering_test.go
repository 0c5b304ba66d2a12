package clustering_test

import (
	"testing"

	"motoroute/pkg/clustering"
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

func TestFingerprintRouteLength(t *testing.T) {
	g := testfixture.Mesh1Graph()
	r := route.Route{segmentTo(g, 1, 2), segmentTo(g, 2, 3), segmentTo(g, 3, 4)}
	fp := clustering.FingerprintRoute(g, r)
	if len(fp) != 20 {
		t.Fatalf("expected a 20-element fingerprint, got %d", len(fp))
	}
}

func TestFingerprintEmptyRoute(t *testing.T) {
	g := testfixture.Mesh1Graph()
	fp := clustering.FingerprintRoute(g, nil)
	if len(fp) != 20 {
		t.Fatalf("expected a 20-element fingerprint even for an empty route, got %d", len(fp))
	}
}

func TestGenerateGroupsIdenticalRoutesTogether(t *testing.T) {
	g := testfixture.Mesh1Graph()
	routeA := route.Route{segmentTo(g, 1, 2), segmentTo(g, 2, 3), segmentTo(g, 3, 4)}
	routeB := route.Route{segmentTo(g, 1, 2), segmentTo(g, 2, 3), segmentTo(g, 3, 4)}
	routeC := route.Route{segmentTo(g, 1, 2), segmentTo(g, 2, 3), segmentTo(g, 3, 6)}

	result := clustering.Generate(g, []route.Route{routeA, routeB, routeC})
	if len(result.Labels) != 3 {
		t.Fatalf("expected 3 labels, got %d", len(result.Labels))
	}
	if result.Labels[0] != result.Labels[1] {
		t.Fatalf("expected identical routes to share a cluster label, got %v", result.Labels)
	}
}

func TestGenerateEveryRouteGetsALabel(t *testing.T) {
	g := testfixture.Mesh3Graph()
	routes := []route.Route{
		{segmentTo(g, 1, 3), segmentTo(g, 3, 5)},
		{segmentTo(g, 1, 3), segmentTo(g, 3, 6)},
	}
	result := clustering.Generate(g, routes)
	for i, label := range result.Labels {
		if label < 0 {
			t.Fatalf("route %d labeled noise (%d); min-cluster-size 1 should never produce noise", i, label)
		}
	}
}
