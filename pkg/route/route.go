// Package route holds the Route/Segment types realized by a Walker
// and consumed by weight evaluators, the Navigator, clustering, and
// stats/score computation.
package route

import "motoroute/pkg/mapgraph"

// Segment is one (line, end_point) step within a Route: the end point
// is whichever side of the line the walker moved onto.
type Segment struct {
	Line mapgraph.LineRef
	End  mapgraph.PointRef
}

// Route is an ordered list of segments realizing an itinerary. Its
// implicit start is the itinerary's start point; its end is the last
// segment's End (or the start, if empty).
type Route []Segment

// Last returns the final segment, or false if the route is empty.
func (r Route) Last() (Segment, bool) {
	if len(r) == 0 {
		return Segment{}, false
	}
	return r[len(r)-1], true
}

// At returns the segment at idx, or false if out of range.
func (r Route) At(idx int) (Segment, bool) {
	if idx < 0 || idx >= len(r) {
		return Segment{}, false
	}
	return r[idx], true
}

// StepsFromEnd returns the segment n steps before the last one (n=0 is
// the last segment itself), or false if the route is too short.
func (r Route) StepsFromEnd(n int) (Segment, bool) {
	idx := len(r) - 1 - n
	return r.At(idx)
}

// HasLooped reports whether the route's last segment's end point
// already appeared earlier in the route.
func (r Route) HasLooped() bool {
	if len(r) == 0 {
		return false
	}
	last := r[len(r)-1]
	for _, s := range r[:len(r)-1] {
		if s.End == last.End {
			return true
		}
	}
	return false
}

// JunctionBeforeLast returns the most recent segment, other than the
// last one, whose end point is a junction distinct from the last
// segment's end point.
func (r Route) JunctionBeforeLast(g *mapgraph.Graph) (Segment, bool) {
	last, ok := r.Last()
	if !ok {
		return Segment{}, false
	}
	for i := len(r) - 2; i >= 0; i-- {
		s := r[i]
		if g.Point(s.End).IsJunction() && s.End != last.End {
			return s, true
		}
	}
	return Segment{}, false
}

// Clone returns a copy of the route that shares no backing array with r.
func (r Route) Clone() Route {
	out := make(Route, len(r))
	copy(out, r)
	return out
}
