// Package mapgraph owns the in-memory road graph: points, lines,
// interned tag sets, and turn-restriction rules. It is built by a
// single ingest goroutine via InsertNode/InsertWay/InsertRelation and
// becomes immutable and safe for concurrent read-only use once
// Finalize returns.
package mapgraph

import (
	"fmt"
	"log"
	"strings"

	"motoroute/pkg/geo"
	"motoroute/pkg/spatialgrid"
	"motoroute/pkg/taginterner"
)

// allowedHighwayValues is the admissible highway tag set for a
// motorcycle-oriented router, per the ingestion rules of the source
// this graph's semantics are grounded on. "path" is handled
// separately: admissible only with motorcycle=yes.
var allowedHighwayValues = map[string]bool{
	"motorway":          true,
	"motorway_link":     true,
	"trunk":             true,
	"trunk_link":        true,
	"primary":           true,
	"primary_link":      true,
	"secondary":         true,
	"secondary_link":    true,
	"tertiary":          true,
	"tertiary_link":     true,
	"unclassified":      true,
	"residential":       true,
	"living_street":     true,
	"track":             true,
	"escape":            true,
	"raceway":           true,
	"road":              true,
}

// MemberType is the kind of element an OSM relation member refers to.
type MemberType uint8

const (
	MemberNode MemberType = iota
	MemberWay
	MemberRelation
)

// Member is one member of an OSM relation, in the shape needed to
// resolve turn-restriction relations. Role follows OSM convention:
// "from", "to", "via".
type Member struct {
	Type MemberType
	Role string
	Ref  int64
}

// MissingPointError is returned by InsertWay when a way references a
// node id that was never ingested via InsertNode.
type MissingPointError struct {
	PointID uint64
}

func (e *MissingPointError) Error() string {
	return fmt.Sprintf("mapgraph: missing point %d referenced by way", e.PointID)
}

// Graph owns all points and lines for the lifetime of the process
// once built. It is not safe for concurrent ingestion, but is safe
// for unlimited concurrent reads after Finalize.
type Graph struct {
	points   []Point
	pointIdx map[uint64]PointRef // node id -> PointRef; dropped after Finalize

	lines []Line

	waysLines map[int64][]LineRef // OSM way id -> line refs; dropped after Finalize

	Tags *taginterner.Interner

	grid      *spatialgrid.Grid
	finalized bool

	Logger *log.Logger
}

// New returns an empty Graph ready for ingestion.
func New(logger *log.Logger) *Graph {
	if logger == nil {
		logger = log.Default()
	}
	return &Graph{
		pointIdx:  make(map[uint64]PointRef),
		waysLines: make(map[int64][]LineRef),
		Tags:      taginterner.New(),
		Logger:    logger,
	}
}

// InsertNode registers a point. Ingestion assumes unique ids;
// duplicate insertion overwrites the previous point's coordinates.
func (g *Graph) InsertNode(id uint64, lat, lon float64) {
	if ref, ok := g.pointIdx[id]; ok {
		g.points[ref].Lat = float32(lat)
		g.points[ref].Lon = float32(lon)
		return
	}
	ref := PointRef(len(g.points))
	g.points = append(g.points, Point{ID: id, Lat: float32(lat), Lon: float32(lon)})
	g.pointIdx[id] = ref
}

func wayIsOK(tags map[string]string) bool {
	if _, ok := tags["service"]; ok {
		return false
	}
	if access := tags["access"]; access == "no" || access == "private" {
		return false
	}
	if mv := tags["motor_vehicle"]; mv == "no" || mv == "private" {
		return false
	}
	highway, ok := tags["highway"]
	if !ok {
		return false
	}
	if highway == "path" {
		return tags["motorcycle"] == "yes"
	}
	return allowedHighwayValues[highway]
}

func directionFromTags(tags map[string]string) Direction {
	if tags["junction"] == "roundabout" {
		return Roundabout
	}
	if tags["oneway"] == "yes" {
		return OneWay
	}
	return BothWays
}

// InsertWay filters the way by admissibility, then creates one Line
// per consecutive pair of point ids. Returns MissingPointError if a
// referenced node id was never ingested via InsertNode.
func (g *Graph) InsertWay(id int64, nodeIDs []uint64, tags map[string]string) error {
	if !wayIsOK(tags) {
		return nil
	}

	tagSet := g.Tags.InternSet(tags["name"], tags["ref"], tags["highway"], tags["surface"], tags["smoothness"])
	direction := directionFromTags(tags)

	var wayLineRefs []LineRef
	var prev PointRef
	havePrev := false

	for _, nodeID := range nodeIDs {
		ref, ok := g.pointIdx[nodeID]
		if !ok {
			return &MissingPointError{PointID: nodeID}
		}
		if havePrev {
			line := Line{P1: prev, P2: ref, Direction: direction, Tags: tagSet}
			lineRef := LineRef(len(g.lines))
			g.lines = append(g.lines, line)
			wayLineRefs = append(wayLineRefs, lineRef)

			g.points[ref].Lines = append(g.points[ref].Lines, lineRef)
			g.points[prev].Lines = append(g.points[prev].Lines, lineRef)
		}
		prev = ref
		havePrev = true
	}

	g.waysLines[id] = wayLineRefs
	return nil
}

var restrictionRuleType = map[string]RuleType{
	"no_right_turn":    NotAllowed,
	"no_left_turn":     NotAllowed,
	"no_u_turn":        NotAllowed,
	"no_straight_on":   NotAllowed,
	"no_entry":         NotAllowed,
	"no_exit":          NotAllowed,
	"only_right_turn":  OnlyAllowed,
	"only_left_turn":   OnlyAllowed,
	"only_u_turn":      OnlyAllowed,
	"only_straight_on": OnlyAllowed,
}

func restrictionIsOK(tags map[string]string) bool {
	relType := tags["type"]
	if !strings.HasPrefix(relType, "restriction") {
		return false
	}
	for _, k := range []string{"restriction", "restriction:motorcycle", "restriction:conditional", "restriction:motorcar"} {
		if _, ok := tags[k]; ok {
			return true
		}
	}
	return false
}

func restrictionValue(tags map[string]string) (string, bool) {
	for _, k := range []string{"restriction", "restriction:motorcycle", "restriction:conditional", "restriction:motorcar"} {
		if v, ok := tags[k]; ok {
			return v, true
		}
	}
	return "", false
}

// InsertRelation interprets a turn-restriction relation and attaches
// the resulting Rule to the via-point. Relations that are not
// restrictions or have no via member are skipped silently; relations
// that name an unrecognized restriction kind, or reference a via-way
// or more than one via member, are logged and skipped — never fatal
// to ingestion, per the error-handling design.
func (g *Graph) InsertRelation(id int64, members []Member, tags map[string]string) error {
	if !restrictionIsOK(tags) {
		return nil
	}
	restriction, ok := restrictionValue(tags)
	if !ok {
		return nil
	}
	token := strings.Fields(restriction)
	if len(token) == 0 {
		return nil
	}
	ruleType, ok := restrictionRuleType[token[0]]
	if !ok {
		g.Logger.Printf("mapgraph: relation %d has unknown restriction kind %q, skipping", id, restriction)
		return nil
	}

	var viaMembers []Member
	for _, m := range members {
		if m.Role == "via" {
			viaMembers = append(viaMembers, m)
		}
	}
	if len(viaMembers) == 0 {
		return nil
	}
	if len(viaMembers) > 1 {
		g.Logger.Printf("mapgraph: relation %d has multiple via members, not yet implemented, skipping", id)
		return nil
	}
	via := viaMembers[0]
	if via.Type != MemberNode {
		g.Logger.Printf("mapgraph: relation %d has a via-way, not yet implemented, skipping", id)
		return nil
	}

	fromLines := g.linesFromWayMembers(members, "from")
	toLines := g.linesFromWayMembers(members, "to")
	// A rule whose "to" ways were all inadmissible keeps an empty To
	// set; for OnlyAllowed that forbids every move onward from its From
	// lines at the via point.
	if len(fromLines) == 0 {
		return nil
	}

	viaRef, ok := g.pointIdx[uint64(via.Ref)]
	if !ok {
		g.Logger.Printf("mapgraph: relation %d via point %d not found, skipping", id, via.Ref)
		return nil
	}

	g.points[viaRef].Rules = append(g.points[viaRef].Rules, Rule{
		From: fromLines,
		To:   toLines,
		Type: ruleType,
	})
	return nil
}

func (g *Graph) linesFromWayMembers(members []Member, role string) []LineRef {
	var out []LineRef
	for _, m := range members {
		if m.Role != role {
			continue
		}
		out = append(out, g.waysLines[m.Ref]...)
	}
	return out
}

// Finalize builds the spatial grid from points with at least one
// incident line and releases ingest-time lookup maps. Queries before
// Finalize are unsupported.
func (g *Graph) Finalize() {
	g.grid = spatialgrid.New()
	for i := range g.points {
		if len(g.points[i].Lines) == 0 {
			continue
		}
		g.grid.Insert(float64(g.points[i].Lat), float64(g.points[i].Lon), spatialgrid.PointRef(i))
	}
	g.Tags.DropIndexes()
	g.pointIdx = nil
	g.waysLines = nil
	g.finalized = true
}

// NumPoints returns the number of ingested points.
func (g *Graph) NumPoints() int { return len(g.points) }

// NumLines returns the number of ingested lines.
func (g *Graph) NumLines() int { return len(g.lines) }

// NumRules returns the total number of turn-restriction rules attached
// across all points.
func (g *Graph) NumRules() int {
	n := 0
	for i := range g.points {
		n += len(g.points[i].Rules)
	}
	return n
}

// Point returns the Point at ref.
func (g *Graph) Point(ref PointRef) *Point { return &g.points[ref] }

// Line returns the Line at ref.
func (g *Graph) Line(ref LineRef) *Line { return &g.lines[ref] }

// AdjacentPair is one (line, other endpoint) pair incident to a point.
type AdjacentPair struct {
	Line  LineRef
	Other PointRef
}

// Adjacent returns every (line, other endpoint) pair incident to p,
// with no admissibility filtering applied (that is the Walker's job).
func (g *Graph) Adjacent(p PointRef) []AdjacentPair {
	point := &g.points[p]
	out := make([]AdjacentPair, len(point.Lines))
	for i, lr := range point.Lines {
		out[i] = AdjacentPair{Line: lr, Other: g.lines[lr].Other(p)}
	}
	return out
}

// ClosestToCoords queries the spatial grid, widening the ring until a
// non-empty candidate set is found, then returns the candidate with
// minimum haversine distance to (lat, lon).
func (g *Graph) ClosestToCoords(lat, lon float64) (PointRef, bool) {
	if !g.finalized {
		panic("mapgraph: ClosestToCoords called before Finalize")
	}
	candidates := g.grid.FindClosestPointRefs(lat, lon)
	if len(candidates) == 0 {
		return 0, false
	}

	best := PointRef(candidates[0])
	bestDist := geo.Haversine(lat, lon, float64(g.points[best].Lat), float64(g.points[best].Lon))
	for _, c := range candidates[1:] {
		ref := PointRef(c)
		d := geo.Haversine(lat, lon, float64(g.points[ref].Lat), float64(g.points[ref].Lon))
		if d < bestDist {
			bestDist = d
			best = ref
		}
	}
	return best, true
}
