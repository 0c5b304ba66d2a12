// Package generator synthesizes a batch of itineraries around a
// requested start/finish (or round-trip) pair, runs one Navigator per
// itinerary in parallel, clusters the resulting routes by shape, and
// returns one representative per cluster plus the best-scoring noise.
package generator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"motoroute/pkg/clustering"
	"motoroute/pkg/debuglog"
	"motoroute/pkg/geo"
	"motoroute/pkg/itinerary"
	"motoroute/pkg/mapgraph"
	"motoroute/pkg/navigator"
	"motoroute/pkg/route"
	"motoroute/pkg/rules"
	"motoroute/pkg/weights"

	"github.com/tidwall/rtree"
)

var startFinishVariationDistancesM = [3]float64{10000, 20000, 30000}
var startFinishVariationDegrees = [8]float64{0, 45, 90, 135, 180, 225, 270, 315}
var roundTripDistanceRatios = [4]float64{1.0, 0.8, 0.6, 0.4}
var roundTripBearingVariation = [4]float64{-25, -10, 10, 25}

// waypointDedupRadiusMeters is the minimum separation two synthesized
// waypoints must have before both are kept; this keeps near-identical
// bearing/distance combinations from spawning redundant Navigator runs
// that would almost certainly converge on the same route.
const waypointDedupRadiusMeters = 200.0

// RoundTrip selects round-trip mode: a loop of roughly distanceM
// meters departing start along bearingDeg.
type RoundTrip struct {
	BearingDeg float64
	DistanceM  float64
}

// RouteWithStats bundles a completed route with its precomputed stats
// and curviness score, the shape the generator returns its output in.
type RouteWithStats struct {
	Route route.Route
	Stats route.Stats
	Score float64
}

// Generator synthesizes itineraries around a start/finish pair (or a
// round trip from start) and runs a Navigator over each.
type Generator struct {
	graph     *mapgraph.Graph
	start     mapgraph.PointRef
	finish    mapgraph.PointRef
	roundTrip *RoundTrip
	rules     rules.Router

	waypointIndex *rtree.RTree[mapgraph.PointRef]
}

// New returns a Generator that will route between start and finish,
// or (if roundTrip is non-nil) a loop departing start.
func New(g *mapgraph.Graph, start, finish mapgraph.PointRef, roundTrip *RoundTrip, r rules.Router) *Generator {
	return &Generator{
		graph:         g,
		start:         start,
		finish:        finish,
		roundTrip:     roundTrip,
		rules:         r,
		waypointIndex: &rtree.RTree[mapgraph.PointRef]{},
	}
}

// snapDedup snaps (lat, lon) to the nearest graph point, discarding it
// if a previously accepted waypoint already sits within
// waypointDedupRadiusMeters.
func (gen *Generator) snapDedup(lat, lon float64) (mapgraph.PointRef, bool) {
	ref, ok := gen.graph.ClosestToCoords(lat, lon)
	if !ok {
		return 0, false
	}
	p := gen.graph.Point(ref)

	degDelta := waypointDedupRadiusMeters / 111_000.0
	min := [2]float64{float64(p.Lon) - degDelta, float64(p.Lat) - degDelta}
	max := [2]float64{float64(p.Lon) + degDelta, float64(p.Lat) + degDelta}

	tooClose := false
	gen.waypointIndex.Search(min, max, func(_, _ [2]float64, data mapgraph.PointRef) bool {
		other := gen.graph.Point(data)
		if geo.Haversine(float64(p.Lat), float64(p.Lon), float64(other.Lat), float64(other.Lon)) < waypointDedupRadiusMeters {
			tooClose = true
			return false
		}
		return true
	})
	if tooClose {
		return 0, false
	}

	pos := [2]float64{float64(p.Lon), float64(p.Lat)}
	gen.waypointIndex.Insert(pos, pos, ref)
	return ref, true
}

// waypointsAround synthesizes candidate waypoints around point at
// each compass bearing more than 20 degrees off excludeBearing, at
// each configured distance, snapped to the graph and deduplicated.
func (gen *Generator) waypointsAround(point mapgraph.PointRef, excludeBearing float64) []mapgraph.PointRef {
	p := gen.graph.Point(point)
	var out []mapgraph.PointRef
	for _, bearing := range startFinishVariationDegrees {
		delta := abs(bearing - excludeBearing)
		if delta > 180 {
			delta = 360 - delta
		}
		if delta <= 20 {
			continue
		}
		for _, dist := range startFinishVariationDistancesM {
			lat, lon := geo.Destination(float64(p.Lat), float64(p.Lon), bearing, dist)
			if ref, ok := gen.snapDedup(lat, lon); ok {
				out = append(out, ref)
			}
		}
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func (gen *Generator) bearingBetween(a, b mapgraph.PointRef) float64 {
	pa, pb := gen.graph.Point(a), gen.graph.Point(b)
	return geo.Bearing(float64(pa.Lat), float64(pa.Lon), float64(pb.Lat), float64(pb.Lon))
}

// itineraryJob pairs a synthesized itinerary with the waypoints it was
// built from, so the debug log can describe it without the itinerary
// package needing to expose its internal waypoint slice.
type itineraryJob struct {
	it        *itinerary.Itinerary
	waypoints []mapgraph.PointRef
}

// generateItineraries synthesizes the full batch: start-finish mode
// produces a baseline direct itinerary plus one per (from, to)
// waypoint pair; round-trip mode produces one per
// (left, tip, right) ratio/bearing-variation combination.
func (gen *Generator) generateItineraries() []itineraryJob {
	if gen.roundTrip != nil {
		return gen.generateRoundTripItineraries(*gen.roundTrip)
	}
	return gen.generateStartFinishItineraries()
}

func (gen *Generator) generateStartFinishItineraries() []itineraryJob {
	fromWaypoints := gen.waypointsAround(gen.start, gen.bearingBetween(gen.finish, gen.start))
	toWaypoints := gen.waypointsAround(gen.finish, gen.bearingBetween(gen.start, gen.finish))

	jobs := []itineraryJob{
		{it: itinerary.New(gen.graph, gen.start, gen.finish, nil, 3000)},
	}
	for _, from := range fromWaypoints {
		for _, to := range toWaypoints {
			waypoints := []mapgraph.PointRef{from, to}
			it := itinerary.New(gen.graph, gen.start, gen.finish, waypoints, 3000)
			jobs = append(jobs, itineraryJob{it: it, waypoints: waypoints})
		}
	}
	return jobs
}

func (gen *Generator) generateRoundTripItineraries(rt RoundTrip) []itineraryJob {
	start := gen.graph.Point(gen.start)
	var jobs []itineraryJob

	for _, leftRatio := range roundTripDistanceRatios {
		for _, tipRatio := range roundTripDistanceRatios {
			for _, rightRatio := range roundTripDistanceRatios {
				for _, variation := range roundTripBearingVariation {
					dist := rt.DistanceM / 5

					tipLat, tipLon := geo.Destination(float64(start.Lat), float64(start.Lon), rt.BearingDeg+variation, dist*tipRatio)
					tip, ok := gen.snapDedup(tipLat, tipLon)
					if !ok {
						continue
					}

					leftLat, leftLon := geo.Destination(float64(start.Lat), float64(start.Lon), rt.BearingDeg+variation-45, dist*leftRatio)
					left, ok := gen.snapDedup(leftLat, leftLon)
					if !ok {
						continue
					}

					rightLat, rightLon := geo.Destination(float64(start.Lat), float64(start.Lon), rt.BearingDeg+variation+45, dist*rightRatio)
					right, ok := gen.snapDedup(rightLat, rightLon)
					if !ok {
						continue
					}

					waypoints := []mapgraph.PointRef{left, tip, right}
					it := itinerary.New(gen.graph, gen.start, gen.finish, waypoints, 3000).
						WithVisitAllWaypoints(true)
					jobs = append(jobs, itineraryJob{it: it, waypoints: waypoints})
				}
			}
		}
	}
	return jobs
}

// GenerateRoutes synthesizes itineraries, runs a Navigator per
// itinerary concurrently, keeps only completed routes, clusters them
// by shape, and returns one representative per cluster plus the
// best-scoring 3 (if any cluster exists) or 10 (otherwise) routes left
// over as noise.
func (gen *Generator) GenerateRoutes(ctx context.Context) ([]RouteWithStats, error) {
	jobs := gen.generateItineraries()
	finished := make([]bool, len(jobs))
	results := make([]route.Route, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			debuglog.WriteItinerary(i, gen.graph, job.it, job.waypoints, 3000)
			nav := navigator.New(gen.graph, job.it, weights.Default(), gen.rules).WithWorker(i)
			res, err := nav.GenerateRoute(gctx)
			if err != nil {
				return err
			}
			if res.Kind == navigator.Finished {
				finished[i] = true
				results[i] = res.Route
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var routes []route.Route
	for i, ok := range finished {
		if ok {
			routes = append(routes, results[i])
		}
	}
	if len(routes) == 0 {
		return nil, nil
	}

	clustered := clustering.Generate(gen.graph, routes)

	withStats := make([]RouteWithStats, len(routes))
	for i, r := range routes {
		withStats[i] = RouteWithStats{
			Route: r,
			Stats: route.CalcStats(gen.graph, r),
			Score: route.Score(gen.graph, r),
		}
	}

	clusterBest := make(map[int]RouteWithStats)
	var noise []RouteWithStats
	for i, rws := range withStats {
		label := clustered.Labels[i]
		if label < 0 {
			noise = append(noise, rws)
			continue
		}
		if best, ok := clusterBest[label]; !ok || rws.Score > best.Score {
			clusterBest[label] = rws
		}
	}

	best := make([]RouteWithStats, 0, len(clusterBest))
	for _, rws := range clusterBest {
		best = append(best, rws)
	}
	sortByScoreDesc(noise)

	noiseCount := 10
	if len(best) > 0 {
		noiseCount = 3
	}
	if noiseCount > len(noise) {
		noiseCount = len(noise)
	}
	best = append(best, noise[:noiseCount]...)
	return best, nil
}

func sortByScoreDesc(rws []RouteWithStats) {
	for i := 1; i < len(rws); i++ {
		for j := i; j > 0 && rws[j-1].Score < rws[j].Score; j-- {
			rws[j-1], rws[j] = rws[j], rws[j-1]
		}
	}
}
