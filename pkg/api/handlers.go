package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"mime"
	"net/http"

	"motoroute/pkg/generator"
	"motoroute/pkg/geo"
	"motoroute/pkg/mapgraph"
	"motoroute/pkg/route"
	"motoroute/pkg/rules"
)

// maxSnapDistMeters bounds how far a requested point may sit from the
// nearest graph point before it's rejected as off the road network.
const maxSnapDistMeters = 500.0

// ErrPointTooFar is returned when a requested point snaps to a graph
// point farther away than maxSnapDistMeters.
var ErrPointTooFar = errors.New("point too far from road")

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	graph        *mapgraph.Graph
	defaultRules rules.Router
	stats        StatsResponse
}

// NewHandlers creates handlers serving routes over g.
func NewHandlers(g *mapgraph.Graph, defaultRules rules.Router, stats StatsResponse) *Handlers {
	return &Handlers{
		graph:        g,
		defaultRules: defaultRules,
		stats:        stats,
	}
}

func (h *Handlers) snap(ll LatLngJSON) (mapgraph.PointRef, error) {
	ref, ok := h.graph.ClosestToCoords(ll.Lat, ll.Lng)
	if !ok {
		return 0, ErrPointTooFar
	}
	p := h.graph.Point(ref)
	if dist := geo.Haversine(ll.Lat, ll.Lng, float64(p.Lat), float64(p.Lon)); dist > maxSnapDistMeters {
		return 0, ErrPointTooFar
	}
	return ref, nil
}

// HandleRoute handles POST /api/v1/route.
func (h *Handlers) HandleRoute(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}

	var req RouteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}

	if err := validateCoord(req.Start); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "start")
		return
	}

	start, err := h.snap(req.Start)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "point_too_far_from_road", "start")
		return
	}

	// Round-trip itineraries depart and return to start; the request's
	// finish field is only meaningful (and validated) for a plain
	// start/finish route.
	finish := start
	if req.RoundTrip == nil {
		if err := validateCoord(req.Finish); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_coordinates", "finish")
			return
		}
		finish, err = h.snap(req.Finish)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "point_too_far_from_road", "finish")
			return
		}
	}

	effectiveRules := h.defaultRules
	if req.Rules != nil {
		effectiveRules = *req.Rules
	}

	var roundTrip *generator.RoundTrip
	if req.RoundTrip != nil {
		roundTrip = &generator.RoundTrip{
			BearingDeg: req.RoundTrip.BearingDeg,
			DistanceM:  req.RoundTrip.DistanceM,
		}
	}

	gen := generator.New(h.graph, start, finish, roundTrip, effectiveRules)
	results, err := gen.GenerateRoutes(r.Context())
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			writeError(w, http.StatusServiceUnavailable, "request_timeout", "")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	if len(results) == 0 {
		writeError(w, http.StatusNotFound, "no_route_found", "")
		return
	}

	resp := RouteResponse{Routes: make([]RouteResultJSON, len(results))}
	for i, rws := range results {
		resp.Routes[i] = RouteResultJSON{
			Segments: buildSegments(h.graph, start, rws.Route),
			Stats:    buildStats(rws.Stats),
			Score:    rws.Score,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.stats)
}

func buildSegments(g *mapgraph.Graph, start mapgraph.PointRef, r route.Route) []SegmentJSON {
	segs := make([]SegmentJSON, len(r))
	from := start
	for i, s := range r {
		fromP, toP := g.Point(from), g.Point(s.End)
		segs[i] = SegmentJSON{
			From: LatLngJSON{Lat: float64(fromP.Lat), Lng: float64(fromP.Lon)},
			To:   LatLngJSON{Lat: float64(toP.Lat), Lng: float64(toP.Lon)},
		}
		from = s.End
	}
	return segs
}

func buildStats(s route.Stats) StatsJSON {
	return StatsJSON{
		LenM:                 s.LenM,
		JunctionCount:        s.JunctionCount,
		Highway:              buildStatElements(s.Highway),
		Surface:              buildStatElements(s.Surface),
		Smoothness:           buildStatElements(s.Smoothness),
		MeanPoint:            LatLngJSON{Lat: s.MeanPoint.Lat, Lng: s.MeanPoint.Lon},
		DirectionChangeRatio: s.DirectionChangeRatio,
	}
}

func buildStatElements(m map[string]route.StatElement) map[string]StatElementJSON {
	out := make(map[string]StatElementJSON, len(m))
	for k, v := range m {
		out[k] = StatElementJSON{LenM: v.LenM, Percentage: v.Percentage}
	}
	return out
}

func validateCoord(ll LatLngJSON) error {
	if math.IsNaN(ll.Lat) || math.IsNaN(ll.Lng) || math.IsInf(ll.Lat, 0) || math.IsInf(ll.Lng, 0) {
		return errors.New("coordinates must be finite numbers")
	}
	if ll.Lat < -90 || ll.Lat > 90 || ll.Lng < -180 || ll.Lng > 180 {
		return errors.New("coordinates out of range")
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, code, field string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: code, Field: field})
}
