// Package navigator drives one Walker to completion against one
// Itinerary, picking the heaviest-weighted candidate at every fork
// according to a list of weight evaluators and remembering which
// candidates it has already tried (and abandoned) at each junction so
// it never repeats a dead branch after backtracking.
package navigator

import (
	"context"
	"fmt"
	"sort"

	"motoroute/pkg/debuglog"
	"motoroute/pkg/itinerary"
	"motoroute/pkg/mapgraph"
	"motoroute/pkg/route"
	"motoroute/pkg/rules"
	"motoroute/pkg/walker"
	"motoroute/pkg/weights"
)

// maxIterations bounds a single run so a pathological rule set or map
// defect can't loop forever; runs that hit it come back Stopped with
// whatever partial route was walked.
const maxIterations = 1_000_000

// Kind distinguishes the three ways a navigation run can end.
type Kind uint8

const (
	Finished Kind = iota
	Stuck
	Stopped
)

func (k Kind) String() string {
	switch k {
	case Finished:
		return "finished"
	case Stuck:
		return "stuck"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Result is the outcome of one GenerateRoute run.
type Result struct {
	Kind  Kind
	Route route.Route
}

// Navigator owns one Itinerary, one Walker, and the evaluator list
// used to score every fork's candidates.
type Navigator struct {
	graph      *mapgraph.Graph
	itinerary  *itinerary.Itinerary
	walker     *walker.Walker
	evaluators []weights.Calc
	rules      rules.Router

	discarded map[mapgraph.PointRef]map[mapgraph.PointRef]bool

	// worker scopes this run's debug log streams (the original keys
	// debug files by OS thread id; Go exposes no goroutine identity,
	// so callers fanning out across goroutines assign one explicitly).
	worker int
}

// WithWorker sets the debug-log worker index for this run (see
// pkg/debuglog) and returns the Navigator for chaining. Unset, all
// debug output for this run lands under worker 0.
func (n *Navigator) WithWorker(id int) *Navigator {
	n.worker = id
	return n
}

// New returns a Navigator ready to walk it over g, scoring candidates
// with evaluators (weights.Default() if nil) under the given rules.
func New(g *mapgraph.Graph, it *itinerary.Itinerary, evaluators []weights.Calc, r rules.Router) *Navigator {
	if evaluators == nil {
		evaluators = weights.Default()
	}
	w := walker.New(g, it.From(), it.To())
	w.SetIsFinished(it.IsFinished)
	w.SetOnVisit(func(p mapgraph.PointRef) { it.CheckSetNext(p) })
	return &Navigator{
		graph:      g,
		itinerary:  it,
		walker:     w,
		evaluators: evaluators,
		rules:      r,
		discarded:  make(map[mapgraph.PointRef]map[mapgraph.PointRef]bool),
	}
}

// GenerateRoute walks the navigator's itinerary to completion, a dead
// end it cannot backtrack out of, or the iteration cap.
func (n *Navigator) GenerateRoute(ctx context.Context) (Result, error) {
	for iterations := 0; ; iterations++ {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}
		if iterations >= maxIterations {
			return Result{Kind: Stopped, Route: n.walker.Route().Clone()}, nil
		}

		move, err := n.walker.MoveForwardToNextFork()
		if err != nil {
			return Result{}, fmt.Errorf("navigator: %w", err)
		}
		debuglog.WriteStep(n.worker, n.itineraryID(), iterations, moveKindLabel(move.Kind))

		switch move.Kind {
		case walker.Finish:
			debuglog.WriteStepResult(n.worker, n.itineraryID(), iterations, Finished.String(), nil)
			return Result{Kind: Finished, Route: n.walker.Route().Clone()}, nil

		case walker.DeadEnd:
			if _, ok := n.walker.MoveBackwardsToPrevFork(); !ok {
				debuglog.WriteStepResult(n.worker, n.itineraryID(), iterations, Stuck.String(), nil)
				return Result{Kind: Stuck, Route: n.walker.Route().Clone()}, nil
			}

		case walker.Fork:
			// The walker's onVisit hook (wired in New) has already run
			// CheckSetNext for tail on the way into this fork.
			tail := n.walker.LastPoint()

			candidates := n.withoutDiscarded(tail, move.Choices)
			n.logForkChoices(iterations, tail, move.Choices)
			best, ok := n.pickBest(candidates)
			if !ok {
				if _, ok := n.walker.MoveBackwardsToPrevFork(); !ok {
					debuglog.WriteStepResult(n.worker, n.itineraryID(), iterations, Stuck.String(), nil)
					return Result{Kind: Stuck, Route: n.walker.Route().Clone()}, nil
				}
				continue
			}
			n.discard(tail, best.End)
			chosenID := n.graph.Point(best.End).ID
			debuglog.WriteStepResult(n.worker, n.itineraryID(), iterations, "fork", &chosenID)
			n.walker.SetForkChoicePointRef(best.End)
		}
	}
}

// itineraryID is a stand-in identifier for the debug log's
// "itinerary_id" column: the original stamps each Itinerary with a
// generated id at construction; this port has no such field, so the
// worker index (unique per concurrent run within a batch) serves the
// same disambiguating purpose.
func (n *Navigator) itineraryID() string {
	return fmt.Sprintf("w%d", n.worker)
}

func (n *Navigator) logForkChoices(step int, tail mapgraph.PointRef, choices []route.Segment) {
	lines := make([]mapgraph.LineRef, len(choices))
	ends := make([]mapgraph.PointRef, len(choices))
	for i, c := range choices {
		lines[i] = c.Line
		ends[i] = c.End
	}
	seen := n.discarded[tail]
	debuglog.WriteForkChoices(n.worker, n.itineraryID(), step, n.graph, lines, ends, func(p mapgraph.PointRef) bool {
		return seen[p]
	})
}

func (n *Navigator) withoutDiscarded(tail mapgraph.PointRef, choices []route.Segment) []route.Segment {
	seen := n.discarded[tail]
	if len(seen) == 0 {
		return choices
	}
	out := make([]route.Segment, 0, len(choices))
	for _, c := range choices {
		if !seen[c.End] {
			out = append(out, c)
		}
	}
	return out
}

func (n *Navigator) discard(tail, choice mapgraph.PointRef) {
	if n.discarded[tail] == nil {
		n.discarded[tail] = make(map[mapgraph.PointRef]bool)
	}
	n.discarded[tail][choice] = true
}

// weighedCandidate pairs a candidate segment with its summed weight
// across every evaluator.
type weighedCandidate struct {
	segment route.Segment
	weight  int
}

// pickBest scores every candidate, dropping any an evaluator marks
// DoNotUse, and returns the heaviest survivor. Ties are broken by
// ascending end-point id so runs are reproducible regardless of map
// iteration order.
func (n *Navigator) pickBest(candidates []route.Segment) (route.Segment, bool) {
	weighed := make([]weighedCandidate, 0, len(candidates))
	for _, c := range candidates {
		total, ok := n.score(c, candidates)
		if !ok {
			continue
		}
		weighed = append(weighed, weighedCandidate{segment: c, weight: total})
	}
	if len(weighed) == 0 {
		return route.Segment{}, false
	}

	sort.SliceStable(weighed, func(i, j int) bool {
		if weighed[i].weight != weighed[j].weight {
			return weighed[i].weight > weighed[j].weight
		}
		return n.graph.Point(weighed[i].segment.End).ID < n.graph.Point(weighed[j].segment.End).ID
	})
	return weighed[0].segment, true
}

func (n *Navigator) score(candidate route.Segment, all []route.Segment) (int, bool) {
	lookahead := walker.New(n.graph, candidate.End, n.itinerary.To())
	in := weights.Input{
		Graph:            n.graph,
		Route:            n.walker.Route(),
		CandidateSegment: candidate,
		AllCandidates:    all,
		Itinerary:        n.itinerary,
		LookaheadWalker:  lookahead,
		Rules:            n.rules,
	}

	total := 0
	for _, calc := range n.evaluators {
		res := calc(in)
		if res.DoNotUse {
			return 0, false
		}
		total += int(res.Weight)
	}
	return total, true
}

// Route returns the route walked so far, whether or not the run has
// finished.
func (n *Navigator) Route() route.Route { return n.walker.Route() }

func moveKindLabel(k walker.MoveResultKind) string {
	switch k {
	case walker.Finish:
		return "Finish"
	case walker.DeadEnd:
		return "Dead End"
	case walker.Fork:
		return "Fork"
	default:
		return "Unknown"
	}
}
