// Package walker drives a single point-by-point traversal of a
// mapgraph.Graph: advancing along the only available line when there
// is no choice, stopping at forks for the caller to pick a branch,
// and backtracking when a chosen branch turns out to be a dead end.
// It understands two special cases besides a plain fork: OSM turn
// restrictions attached to a point, and roundabouts, whose "fork" is
// really the set of non-ring exits reachable by following the ring
// forward.
package walker

import (
	"fmt"

	"motoroute/pkg/mapgraph"
	"motoroute/pkg/route"
)

// ErrWrongForkChoice is returned by MoveForwardToNextFork when a
// previously set fork choice does not match any of the current fork's
// available points.
type ErrWrongForkChoice struct {
	PointID          uint64
	AvailableForkIDs []uint64
}

func (e *ErrWrongForkChoice) Error() string {
	return fmt.Sprintf("walker: point %d is not one of the available fork choices %v", e.PointID, e.AvailableForkIDs)
}

// MoveResultKind distinguishes the three outcomes of advancing a
// Walker to its next decision point.
type MoveResultKind uint8

const (
	Fork MoveResultKind = iota
	DeadEnd
	Finish
)

// MoveResult is the outcome of MoveForwardToNextFork. Choices is only
// populated when Kind == Fork.
type MoveResult struct {
	Kind    MoveResultKind
	Choices []route.Segment
}

// Walker holds one itinerary's traversal state: the graph it moves
// over, its start and end points, the route walked so far, and any
// pending fork choice set by the caller.
type Walker struct {
	graph *mapgraph.Graph
	start mapgraph.PointRef
	end   mapgraph.PointRef

	routeWalked route.Route

	pendingChoice    mapgraph.PointRef
	hasPendingChoice bool

	// isFinished decides whether the current point accepts Finish.
	// Defaults to a plain current == end comparison; a caller can
	// override it (SetIsFinished) to withhold Finish until some other
	// condition holds too, e.g. a round-trip itinerary's waypoints
	// having all been visited.
	isFinished func(mapgraph.PointRef) bool

	// onVisit, if set, is called with every point the walker's main
	// loop considers before checking isFinished — including points
	// passed through on a straight run between forks, not just forks
	// themselves. A caller tracking waypoint proximity (Itinerary)
	// needs this: it can't rely on being notified only at forks, since
	// a waypoint may sit on a fork-free stretch of road.
	onVisit func(mapgraph.PointRef)
}

// New returns a Walker ready to traverse g from start to end.
func New(g *mapgraph.Graph, start, end mapgraph.PointRef) *Walker {
	w := &Walker{graph: g, start: start, end: end}
	w.isFinished = func(p mapgraph.PointRef) bool { return p == end }
	return w
}

// SetIsFinished overrides the walker's finish check, replacing the
// default current == end comparison.
func (w *Walker) SetIsFinished(f func(mapgraph.PointRef) bool) {
	w.isFinished = f
}

// SetOnVisit registers a callback invoked with every point the walker
// considers as it advances, before the finish check runs.
func (w *Walker) SetOnVisit(f func(mapgraph.PointRef)) {
	w.onVisit = f
}

// LastPoint returns the current tail of the route walked so far, or
// the start point if nothing has been walked yet.
func (w *Walker) LastPoint() mapgraph.PointRef {
	if seg, ok := w.routeWalked.Last(); ok {
		return seg.End
	}
	return w.start
}

// Route returns the route walked so far.
func (w *Walker) Route() route.Route { return w.routeWalked }

// SetForkChoicePointRef records the point the caller wants to move
// towards at the next fork. Consumed (and cleared) by the next call
// to MoveForwardToNextFork.
func (w *Walker) SetForkChoicePointRef(p mapgraph.PointRef) {
	w.pendingChoice = p
	w.hasPendingChoice = true
}

// prevPoint returns the point visited immediately before the current
// tail, or the start point if the route is too short to have one.
func (w *Walker) prevPoint() mapgraph.PointRef {
	if seg, ok := w.routeWalked.StepsFromEnd(1); ok {
		return seg.End
	}
	return w.start
}

// forkSegmentsForPoint computes the admissible set when there is no
// preceding line (the very first fork, from the itinerary's start
// point). Turn restrictions can't be evaluated by from-line here, so
// a NotAllowed rule is only honored when doing so would not strand
// every other option: if every other adjacent line is also a target
// of the same rule, the restriction is ignored rather than producing
// a dead end.
func (w *Walker) forkSegmentsForPoint(center mapgraph.PointRef) []route.Segment {
	adjacent := w.graph.Adjacent(center)
	point := w.graph.Point(center)

	var notAllow []mapgraph.Rule
	for _, r := range point.Rules {
		if r.Type == mapgraph.NotAllowed {
			notAllow = append(notAllow, r)
		}
	}

	var out []route.Segment
	for _, adj := range adjacent {
		line := w.graph.Line(adj.Line)
		if line.Direction == mapgraph.OneWay && line.P2 == center {
			continue
		}
		if anyRuleTargets(notAllow, adj.Line) && !ruleWouldStrandEverythingElse(notAllow, adjacent, adj.Line) {
			continue
		}
		out = append(out, route.Segment{Line: adj.Line, End: adj.Other})
	}
	return out
}

func ruleWouldStrandEverythingElse(notAllow []mapgraph.Rule, adjacent []mapgraph.AdjacentPair, candidate mapgraph.LineRef) bool {
	for _, rule := range notAllow {
		if !lineRefIn(rule.To, candidate) {
			continue
		}
		allOthersTargeted := true
		for _, other := range adjacent {
			if other.Line == candidate {
				continue
			}
			if !lineRefIn(rule.To, other.Line) {
				allOthersTargeted = false
				break
			}
		}
		if allOthersTargeted {
			return true
		}
	}
	return false
}

func lineRefIn(s []mapgraph.LineRef, l mapgraph.LineRef) bool {
	for _, x := range s {
		if x == l {
			return true
		}
	}
	return false
}

// forkSegmentsForSegment computes the admissible set after arriving
// via the given segment: never the line just arrived on, never a
// one-way line traversed backwards, and honoring any OnlyAllowed/
// NotAllowed rules whose From set contains the incoming line.
func (w *Walker) forkSegmentsForSegment(seg route.Segment) []route.Segment {
	center := seg.End
	prev := w.graph.Line(seg.Line).Other(center)
	point := w.graph.Point(center)

	var onlyAllow, notAllow []mapgraph.Rule
	for _, r := range point.Rules {
		if !lineRefIn(r.From, seg.Line) {
			continue
		}
		switch r.Type {
		case mapgraph.OnlyAllowed:
			onlyAllow = append(onlyAllow, r)
		case mapgraph.NotAllowed:
			notAllow = append(notAllow, r)
		}
	}

	var out []route.Segment
	for _, adj := range w.graph.Adjacent(center) {
		if adj.Other == prev {
			continue
		}
		line := w.graph.Line(adj.Line)
		if line.Direction == mapgraph.OneWay && line.P2 == center {
			continue
		}
		if len(point.Rules) == 0 {
			out = append(out, route.Segment{Line: adj.Line, End: adj.Other})
			continue
		}
		if anyRuleTargets(notAllow, adj.Line) {
			continue
		}
		if len(onlyAllow) > 0 {
			if anyRuleTargets(onlyAllow, adj.Line) {
				out = append(out, route.Segment{Line: adj.Line, End: adj.Other})
			}
			continue
		}
		out = append(out, route.Segment{Line: adj.Line, End: adj.Other})
	}
	return out
}

func anyRuleTargets(rules []mapgraph.Rule, l mapgraph.LineRef) bool {
	for _, r := range rules {
		if lineRefIn(r.To, l) {
			return true
		}
	}
	return false
}

// roundaboutExits walks the ring forward from seg (whose line must be
// a Roundabout direction line) and collects every non-ring exit found
// along the way, stopping when the ring loops back to seg's own end
// point or has no further roundabout-direction continuation.
func (w *Walker) roundaboutExits(seg route.Segment) []route.Segment {
	if w.graph.Line(seg.Line).Direction != mapgraph.Roundabout {
		return nil
	}

	var exits []route.Segment
	current := seg
	for {
		fork := w.forkSegmentsForSegment(current)
		var ringNext *route.Segment
		for i := range fork {
			if w.graph.Line(fork[i].Line).Direction == mapgraph.Roundabout {
				ringNext = &fork[i]
				continue
			}
			exits = append(exits, fork[i])
		}
		if ringNext == nil {
			break
		}
		if ringNext.End == seg.End {
			break
		}
		current = *ringNext
	}
	return exits
}

// moveToRoundaboutExit replays the ring-hop segments leading from the
// walker's current tail (which must have arrived via a Roundabout
// line) up to, but not including, the segment that exits towards
// exitPoint. The exit segment itself is appended by the caller.
func (w *Walker) moveToRoundaboutExit(exitPoint mapgraph.PointRef) {
	last, ok := w.routeWalked.Last()
	if !ok || w.graph.Line(last.Line).Direction != mapgraph.Roundabout {
		return
	}

	current := last
	for {
		fork := w.forkSegmentsForSegment(current)
		reachesExit := false
		var ringNext *route.Segment
		for i := range fork {
			if fork[i].End == exitPoint {
				reachesExit = true
			}
			if w.graph.Line(fork[i].Line).Direction == mapgraph.Roundabout {
				ringNext = &fork[i]
			}
		}
		if reachesExit {
			break
		}
		if ringNext == nil {
			break
		}
		if ringNext.End == last.End {
			break
		}
		current = *ringNext
		w.routeWalked = append(w.routeWalked, current)
	}
}

// MoveForwardToNextFork advances the walker until it reaches a point
// its finish check accepts (Finish), a point with no admissible
// outgoing line (DeadEnd), or a point offering more than one
// admissible line with no pending fork choice to resolve it (Fork).
func (w *Walker) MoveForwardToNextFork() (MoveResult, error) {
	for {
		current := w.LastPoint()
		if w.onVisit != nil {
			w.onVisit(current)
		}
		if w.isFinished(current) {
			return MoveResult{Kind: Finish}, nil
		}

		var available []route.Segment
		if last, ok := w.routeWalked.Last(); ok {
			if w.graph.Line(last.Line).Direction == mapgraph.Roundabout {
				available = w.roundaboutExits(last)
			} else {
				available = w.forkSegmentsForSegment(last)
			}
		} else {
			available = w.forkSegmentsForPoint(w.start)
		}

		if len(available) > 1 && !w.hasPendingChoice {
			return MoveResult{Kind: Fork, Choices: available}, nil
		}

		var next route.Segment
		haveNext := false
		if w.hasPendingChoice {
			choice := w.pendingChoice
			w.hasPendingChoice = false
			for _, s := range available {
				if s.End == choice {
					next = s
					haveNext = true
					break
				}
			}
			if !haveNext {
				ids := make([]uint64, len(available))
				for i, s := range available {
					ids[i] = w.graph.Point(s.End).ID
				}
				return MoveResult{}, &ErrWrongForkChoice{PointID: w.graph.Point(choice).ID, AvailableForkIDs: ids}
			}
		} else if len(available) == 1 {
			next = available[0]
			haveNext = true
		}

		if !haveNext {
			return MoveResult{Kind: DeadEnd}, nil
		}

		w.moveToRoundaboutExit(next.End)
		w.routeWalked = append(w.routeWalked, next)
	}
}

// MoveBackwardsToPrevFork discards the most recently taken branch and
// backtracks until it finds a junction offering more than one
// admissible line, returning that junction's admissible set (which
// branches were already tried is the caller's to track). Returns
// false if backtracking exhausts the route entirely.
func (w *Walker) MoveBackwardsToPrevFork() ([]route.Segment, bool) {
	w.hasPendingChoice = false
	if len(w.routeWalked) == 0 {
		return nil, false
	}
	w.routeWalked = w.routeWalked[:len(w.routeWalked)-1]

	for {
		last, ok := w.routeWalked.Last()
		if !ok {
			break
		}
		if w.graph.Point(last.End).IsJunction() && len(w.forkSegmentsForSegment(last)) > 1 {
			break
		}
		w.routeWalked = w.routeWalked[:len(w.routeWalked)-1]
	}

	if last, ok := w.routeWalked.Last(); ok {
		return w.forkSegmentsForSegment(last), true
	}
	return nil, false
}
