// Package weights holds the scoring evaluators a Navigator runs over
// every candidate at a fork. Each evaluator is a pure function: given
// the route walked so far, the itinerary, one candidate segment, its
// sibling candidates, a lookahead walker seeded at the candidate, and
// the active rules, it returns either DoNotUse (eliminate the
// candidate) or UseWithWeight(0-255). The Navigator sums weights
// across evaluators unless any eliminates the candidate outright.
package weights

import (
	"math"

	"motoroute/pkg/geo"
	"motoroute/pkg/itinerary"
	"motoroute/pkg/mapgraph"
	"motoroute/pkg/route"
	"motoroute/pkg/rules"
	"motoroute/pkg/walker"
)

// Result is an evaluator's verdict on one candidate.
type Result struct {
	DoNotUse bool
	Weight   uint8
}

// UseWithWeight returns a Result that keeps the candidate with the
// given weight.
func UseWithWeight(w uint8) Result { return Result{Weight: w} }

// DoNotUseResult eliminates the candidate regardless of other evaluators.
var DoNotUseResult = Result{DoNotUse: true}

// Input bundles everything an evaluator needs to score one candidate.
type Input struct {
	Graph            *mapgraph.Graph
	Route            route.Route
	CandidateSegment route.Segment
	AllCandidates    []route.Segment
	Itinerary        *itinerary.Itinerary
	LookaheadWalker  *walker.Walker
	Rules            rules.Router
}

// Calc is one scoring evaluator.
type Calc func(Input) Result

// Default returns the evaluator list a Navigator runs for every fork,
// in the order their weights are summed.
func Default() []Calc {
	return []Calc{
		Heading,
		PreferSameRoad,
		NoLoops,
		DistanceToNext,
		ProgressSpeed,
		RulesHighway,
		RulesSurface,
		RulesSmoothness,
		NoSharpTurns,
		NoShortDetour,
	}
}

func lineBearingAtEnd(g *mapgraph.Graph, seg route.Segment) float64 {
	line := g.Line(seg.Line)
	p1, p2 := g.Point(line.P1), g.Point(line.P2)
	if line.P2 == seg.End {
		return geo.Bearing(float64(p1.Lat), float64(p1.Lon), float64(p2.Lat), float64(p2.Lon))
	}
	return geo.Bearing(float64(p2.Lat), float64(p2.Lon), float64(p1.Lat), float64(p1.Lon))
}

func toSigned(b float64) float64 {
	if b > 180 {
		return b - 360
	}
	return b
}

// Heading steers candidates towards the itinerary's current target:
// it simulates the lookahead walker one fork ahead, then scores how
// closely the resulting heading lines up with the bearing towards
// itinerary.Next(). Finishing the lookahead scores 255; a dead end is
// eliminated.
func Heading(in Input) Result {
	move, err := in.LookaheadWalker.MoveForwardToNextFork()
	if err != nil {
		return DoNotUseResult
	}
	switch move.Kind {
	case walker.DeadEnd:
		return DoNotUseResult
	case walker.Finish:
		return UseWithWeight(255)
	}

	forkSegment := in.CandidateSegment
	if last, ok := in.LookaheadWalker.Route().Last(); ok {
		forkSegment = last
	}

	forkPoint := in.Graph.Point(forkSegment.End)
	nextPoint := in.Graph.Point(in.Itinerary.Next())
	nextBearing := toSigned(geo.Bearing(float64(forkPoint.Lat), float64(forkPoint.Lon), float64(nextPoint.Lat), float64(nextPoint.Lon)))
	forkBearing := toSigned(lineBearingAtEnd(in.Graph, forkSegment))

	degreeOffset := math.Abs((180 - math.Abs(forkBearing)) - (180 - math.Abs(nextBearing)))
	ratio := 255.0 / 180.0
	weight := 255 - int(math.Round(degreeOffset/ratio))
	if weight < 0 {
		weight = 0
	}
	if weight > 255 {
		weight = 255
	}
	return UseWithWeight(uint8(weight))
}

// PreferSameRoad rewards staying on the road just traveled: a shared
// non-empty name or highway ref between the route's last line and the
// candidate's line.
func PreferSameRoad(in Input) Result {
	if !in.Rules.Basic.PreferSameRoad.Enabled {
		return UseWithWeight(0)
	}
	last, ok := in.Route.Last()
	if !ok {
		return UseWithWeight(0)
	}
	lastLine := in.Graph.Line(last.Line)
	forkLine := in.Graph.Line(in.CandidateSegment.Line)

	currentRef := in.Graph.Tags.HwRef(lastLine.Tags)
	currentName := in.Graph.Tags.Name(lastLine.Tags)
	forkRef := in.Graph.Tags.HwRef(forkLine.Tags)
	forkName := in.Graph.Tags.Name(forkLine.Tags)

	if (currentRef != "" && forkRef != "" && currentRef == forkRef) ||
		(currentName != "" && forkName != "" && currentName == forkName) {
		return UseWithWeight(in.Rules.Basic.PreferSameRoad.Priority)
	}
	return UseWithWeight(0)
}

// NoLoops eliminates a candidate that revisits a point already on the
// route (or the itinerary's start).
func NoLoops(in Input) Result {
	if in.CandidateSegment.End == in.Itinerary.From() {
		return DoNotUseResult
	}
	for _, s := range in.Route {
		if s.End == in.CandidateSegment.End {
			return DoNotUseResult
		}
	}
	return UseWithWeight(0)
}

// DistanceToNext eliminates every candidate at the current fork if
// the walk has drifted farther from the itinerary's target than it
// was CheckStepsBack segments ago.
func DistanceToNext(in Input) Result {
	steps := 100
	if in.Rules.Basic.ProgressDirection.CheckStepsBack > 0 {
		steps = in.Rules.Basic.ProgressDirection.CheckStepsBack
	}
	if !in.Rules.Basic.ProgressDirection.Enabled {
		return UseWithWeight(0)
	}

	last, ok := in.Route.Last()
	if !ok {
		return UseWithWeight(0)
	}
	nextPoint := in.Graph.Point(in.Itinerary.Next())
	distCurrent := distanceToPoint(in.Graph, last.End, nextPoint)

	back, ok := in.Route.StepsFromEnd(steps)
	if !ok {
		return UseWithWeight(0)
	}
	distBack := distanceToPoint(in.Graph, back.End, nextPoint)

	if distCurrent > distBack {
		return DoNotUseResult
	}
	return UseWithWeight(0)
}

func distanceToPoint(g *mapgraph.Graph, from mapgraph.PointRef, to *mapgraph.Point) float64 {
	p := g.Point(from)
	return geo.Haversine(float64(p.Lat), float64(p.Lon), float64(to.Lat), float64(to.Lon))
}

// ProgressSpeed computes the ratio of recent to average per-segment
// distance but, matching the source this heuristic was grounded on,
// never eliminates a candidate on it: the ratio is informational
// only until the threshold is tuned against real routes.
func ProgressSpeed(in Input) Result {
	if !in.Rules.Basic.ProgressSpeed.Enabled {
		return UseWithWeight(0)
	}
	steps := in.Rules.Basic.ProgressSpeed.CheckStepsBack
	if steps <= 0 {
		steps = 100
	}
	last, ok := in.Route.Last()
	if !ok {
		return UseWithWeight(0)
	}
	fromP := in.Graph.Point(in.Itinerary.From())
	nextP := in.Graph.Point(in.Itinerary.Next())
	totalDistance := geo.Haversine(float64(fromP.Lat), float64(fromP.Lon), float64(nextP.Lat), float64(nextP.Lon))

	back, ok := in.Route.StepsFromEnd(steps)
	if !ok {
		return UseWithWeight(0)
	}
	avgPerSegment := totalDistance / float64(len(in.Route))
	lastP := in.Graph.Point(last.End)
	backP := in.Graph.Point(back.End)
	distLastPoints := geo.Haversine(float64(backP.Lat), float64(backP.Lon), float64(lastP.Lat), float64(lastP.Lon))
	_ = distLastPoints / float64(steps)
	_ = avgPerSegment * float64(in.Rules.Basic.ProgressSpeed.LastStepDistanceBelowAvgRatio)
	return UseWithWeight(0)
}

func evaluateTagRule(table map[string]rules.TagAction, value string) Result {
	action, ok := rules.Evaluate(table, value)
	if !ok {
		return UseWithWeight(0)
	}
	if action.Action == rules.ActionAvoid {
		return DoNotUseResult
	}
	return UseWithWeight(action.Priority)
}

// RulesHighway applies the configured highway-value action table.
func RulesHighway(in Input) Result {
	line := in.Graph.Line(in.CandidateSegment.Line)
	return evaluateTagRule(in.Rules.Highway, in.Graph.Tags.Highway(line.Tags))
}

// RulesSurface applies the configured surface-value action table.
func RulesSurface(in Input) Result {
	line := in.Graph.Line(in.CandidateSegment.Line)
	return evaluateTagRule(in.Rules.Surface, in.Graph.Tags.Surface(line.Tags))
}

// RulesSmoothness applies the configured smoothness-value action table.
func RulesSmoothness(in Input) Result {
	line := in.Graph.Line(in.CandidateSegment.Line)
	return evaluateTagRule(in.Rules.Smoothness, in.Graph.Tags.Smoothness(line.Tags))
}

// sharpTurnThresholdDeg is the angular delta, measured between the
// bearing of the route's last line and the candidate's line at the
// shared point, beyond which a turn is treated as a near U-turn.
const sharpTurnThresholdDeg = 150.0

// NoSharpTurns eliminates a candidate that reverses direction sharply
// relative to the line just traveled.
func NoSharpTurns(in Input) Result {
	last, ok := in.Route.Last()
	if !ok {
		return UseWithWeight(0)
	}
	incoming := toSigned(lineBearingAtEnd(in.Graph, last))
	outgoing := toSigned(lineBearingAtEnd(in.Graph, in.CandidateSegment))
	delta := math.Abs(incoming - outgoing)
	if delta > 180 {
		delta = 360 - delta
	}
	if delta >= sharpTurnThresholdDeg {
		return DoNotUseResult
	}
	return UseWithWeight(0)
}

// shortDetourLookaheadForks is how many forks the lookahead walker is
// allowed to cross while checking for a short loop back.
const shortDetourLookaheadForks = 3

// shortDetourRadiusMeters is how close a lookahead point has to come
// to the fork's own center point to count as a short detour.
const shortDetourRadiusMeters = 40.0

// NoShortDetour eliminates a candidate whose near-term path loops
// back close to the point the fork is being evaluated from, which
// usually indicates a short dead-end spur or a parking-lot loop
// rather than real progress.
func NoShortDetour(in Input) Result {
	last, ok := in.Route.Last()
	center := in.Itinerary.From()
	if ok {
		center = last.End
	}
	centerPoint := in.Graph.Point(center)

	w := in.LookaheadWalker
	for i := 0; i < shortDetourLookaheadForks; i++ {
		move, err := w.MoveForwardToNextFork()
		if err != nil || move.Kind == walker.DeadEnd {
			return UseWithWeight(0)
		}
		if move.Kind == walker.Finish {
			return UseWithWeight(0)
		}
		// Take the first offered branch that does not lead straight back
		// to the center, purely to keep scanning ahead; this does not
		// affect the real route, only this throwaway walker.
		next, found := route.Segment{}, false
		for _, c := range move.Choices {
			if c.End != center {
				next, found = c, true
				break
			}
		}
		if !found {
			return UseWithWeight(0)
		}
		w.SetForkChoicePointRef(next.End)
		if _, err := w.MoveForwardToNextFork(); err != nil {
			return UseWithWeight(0)
		}
		seg, ok := w.Route().Last()
		if !ok {
			continue
		}
		p := in.Graph.Point(seg.End)
		if geo.Haversine(float64(centerPoint.Lat), float64(centerPoint.Lon), float64(p.Lat), float64(p.Lon)) < shortDetourRadiusMeters {
			return DoNotUseResult
		}
	}
	return UseWithWeight(0)
}
