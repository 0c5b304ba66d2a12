package itinerary_test

import (
	"testing"

	"motoroute/pkg/itinerary"
	"motoroute/pkg/mapgraph"
)

func pointByID(g *mapgraph.Graph, id uint64) mapgraph.PointRef {
	for i := 0; i < g.NumPoints(); i++ {
		if g.Point(mapgraph.PointRef(i)).ID == id {
			return mapgraph.PointRef(i)
		}
	}
	panic("point not found")
}

func lineGraph() *mapgraph.Graph {
	g := mapgraph.New(nil)
	for _, id := range []uint64{1, 2, 3, 4} {
		g.InsertNode(id, float64(id), float64(id))
	}
	if err := g.InsertWay(1, []uint64{1, 2, 3, 4}, map[string]string{"highway": "primary"}); err != nil {
		panic(err)
	}
	g.Finalize()
	return g
}

func TestIsFinishedWithoutWaypointsAcceptsDestinationImmediately(t *testing.T) {
	g := lineGraph()
	it := itinerary.New(g, pointByID(g, 1), pointByID(g, 4), nil, 10)

	if it.IsFinished(pointByID(g, 1)) {
		t.Fatalf("expected start point not to be accepted as finished")
	}
	if !it.IsFinished(pointByID(g, 4)) {
		t.Fatalf("expected destination to be accepted as finished with no waypoints")
	}
}

func TestIsFinishedRoundTripWithholdsUntilWaypointsVisited(t *testing.T) {
	g := lineGraph()
	start := pointByID(g, 1)
	waypoint := pointByID(g, 3)
	it := itinerary.New(g, start, start, []mapgraph.PointRef{waypoint}, 10).WithVisitAllWaypoints(true)

	if it.IsFinished(start) {
		t.Fatalf("expected round-trip start not to finish before its waypoint is visited")
	}

	it.CheckSetNext(pointByID(g, 2))
	if it.IsFinished(start) {
		t.Fatalf("expected finish to still be withheld before the waypoint itself is reached")
	}

	it.CheckSetNext(waypoint)
	if it.Next() != it.To() {
		t.Fatalf("expected Next to advance to the destination once the only waypoint is passed")
	}
	if !it.IsFinished(start) {
		t.Fatalf("expected finish to be accepted once every waypoint has been visited")
	}
}

func TestIsFinishedRejectsNonDestinationPoint(t *testing.T) {
	g := lineGraph()
	it := itinerary.New(g, pointByID(g, 1), pointByID(g, 4), nil, 10).WithVisitAllWaypoints(true)
	if it.IsFinished(pointByID(g, 2)) {
		t.Fatalf("expected a non-destination point never to be accepted as finished")
	}
}
