// Package itinerary tracks one requested trip: a start and final
// destination, optional waypoints to pass near along the way, and the
// "next" target the heading evaluator steers towards at any given
// moment.
package itinerary

import (
	"motoroute/pkg/geo"
	"motoroute/pkg/mapgraph"
)

// Itinerary is the immutable start/end/waypoints of a trip plus the
// single piece of mutable state a Navigator advances as it travels:
// which waypoint (or the final destination) is currently "next".
type Itinerary struct {
	graph          *mapgraph.Graph
	from           mapgraph.PointRef
	to             mapgraph.PointRef
	waypoints      []mapgraph.PointRef
	next           mapgraph.PointRef
	waypointRadius float64

	// visitAllWaypoints gates Finish on every waypoint having been
	// passed first. Round-trip itineraries set finish == start, so
	// without this a Navigator would accept Finish on its very first
	// step, before ever walking the loop's waypoints.
	visitAllWaypoints bool
}

// New returns an Itinerary from from to to, passing near each
// waypoint (within waypointRadius meters) in order.
func New(g *mapgraph.Graph, from, to mapgraph.PointRef, waypoints []mapgraph.PointRef, waypointRadius float64) *Itinerary {
	next := to
	if len(waypoints) > 0 {
		next = waypoints[0]
	}
	return &Itinerary{
		graph:          g,
		from:           from,
		to:             to,
		waypoints:      waypoints,
		next:           next,
		waypointRadius: waypointRadius,
	}
}

// WithVisitAllWaypoints sets whether Finish requires every waypoint to
// have been visited first, and returns the Itinerary for chaining.
// Round-trip itineraries (spec.md §3) set this; start/finish
// itineraries leave it false, since their waypoints only steer the
// heading evaluator and never gate Finish.
func (it *Itinerary) WithVisitAllWaypoints(v bool) *Itinerary {
	it.visitAllWaypoints = v
	return it
}

// CheckSetNext advances Next past current if current is within
// waypointRadius of it: to the next waypoint in sequence, or to the
// final destination if current was the last waypoint (or wasn't a
// tracked waypoint at all).
func (it *Itinerary) CheckSetNext(current mapgraph.PointRef) mapgraph.PointRef {
	currentP := it.graph.Point(current)
	nextP := it.graph.Point(it.next)
	dist := geo.Haversine(float64(currentP.Lat), float64(currentP.Lon), float64(nextP.Lat), float64(nextP.Lon))
	if dist <= it.waypointRadius {
		idx := -1
		for i, w := range it.waypoints {
			if w == it.next {
				idx = i
				break
			}
		}
		if idx >= 0 && idx+1 < len(it.waypoints) {
			it.next = it.waypoints[idx+1]
		} else {
			it.next = it.to
		}
	}
	return it.next
}

// Next returns the current target point: the next unreached waypoint,
// or the final destination once all waypoints are behind.
func (it *Itinerary) Next() mapgraph.PointRef { return it.next }

// VisitAllWaypoints reports whether this itinerary gates Finish on
// every waypoint having been visited first.
func (it *Itinerary) VisitAllWaypoints() bool { return it.visitAllWaypoints }

// From returns the itinerary's start point.
func (it *Itinerary) From() mapgraph.PointRef { return it.from }

// To returns the itinerary's final destination.
func (it *Itinerary) To() mapgraph.PointRef { return it.to }

// IsFinished reports whether p accepts as the end of the walk: it
// must be the itinerary's final destination, and, if
// visitAllWaypoints is set, every waypoint must already have been
// visited (next must have advanced past the last one, onto to
// itself).
func (it *Itinerary) IsFinished(p mapgraph.PointRef) bool {
	if p != it.to {
		return false
	}
	return !it.visitAllWaypoints || it.next == it.to
}
