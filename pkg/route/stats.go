package route

import (
	"motoroute/pkg/geo"
	"motoroute/pkg/mapgraph"
)

// StatElement is one category's share of a route: absolute length and
// the percentage of the route's total length it accounts for.
type StatElement struct {
	LenM       float64
	Percentage float64
}

// Point is a plain lat/lon pair, used for a route's mean position.
type Point struct {
	Lat float64
	Lon float64
}

// Stats summarizes a completed route: total length, how many segments
// end at a junction, per-tag-value length breakdowns for highway/
// surface/smoothness, the mean end-point position, and how much the
// route's heading wanders per kilometer.
type Stats struct {
	LenM                 float64
	JunctionCount        int
	Highway              map[string]StatElement
	Surface              map[string]StatElement
	Smoothness           map[string]StatElement
	MeanPoint            Point
	DirectionChangeRatio float64
}

func segmentLine(g *mapgraph.Graph, seg Segment) (p1, p2 *mapgraph.Point, endIsP2 bool) {
	line := g.Line(seg.Line)
	return g.Point(line.P1), g.Point(line.P2), line.P2 == seg.End
}

func segmentLenM(g *mapgraph.Graph, seg Segment) float64 {
	p1, p2, _ := segmentLine(g, seg)
	return geo.Haversine(float64(p1.Lat), float64(p1.Lon), float64(p2.Lat), float64(p2.Lon))
}

func segmentBearing(g *mapgraph.Graph, seg Segment) float64 {
	p1, p2, endIsP2 := segmentLine(g, seg)
	if endIsP2 {
		return geo.Bearing(float64(p1.Lat), float64(p1.Lon), float64(p2.Lat), float64(p2.Lon))
	}
	return geo.Bearing(float64(p2.Lat), float64(p2.Lon), float64(p1.Lat), float64(p1.Lon))
}

func tagValueOrUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

func accumulateCategory(m map[string]float64, value string, lenM float64) {
	m[tagValueOrUnknown(value)] += lenM
}

func toStatMap(totalLenM float64, m map[string]float64) map[string]StatElement {
	out := make(map[string]StatElement, len(m))
	for k, lenM := range m {
		pct := 0.0
		if totalLenM > 0 {
			pct = lenM / totalLenM * 100
		}
		out[k] = StatElement{LenM: lenM, Percentage: pct}
	}
	return out
}

// CalcStats computes the full Stats breakdown for a completed route.
func CalcStats(g *mapgraph.Graph, r Route) Stats {
	highway := make(map[string]float64)
	surface := make(map[string]float64)
	smoothness := make(map[string]float64)

	var lenM, latSum, lonSum, totBearingDiff float64
	var junctionCount int
	var prevBearing float64
	havePrevBearing := false

	for _, seg := range r {
		segLen := segmentLenM(g, seg)
		lenM += segLen

		endPoint := g.Point(seg.End)
		if endPoint.IsJunction() {
			junctionCount++
		}

		line := g.Line(seg.Line)
		accumulateCategory(highway, g.Tags.Highway(line.Tags), segLen)
		accumulateCategory(surface, g.Tags.Surface(line.Tags), segLen)
		accumulateCategory(smoothness, g.Tags.Smoothness(line.Tags), segLen)

		latSum += float64(endPoint.Lat)
		lonSum += float64(endPoint.Lon)

		currBearing := segmentBearing(g, seg)
		if havePrevBearing {
			totBearingDiff += abs(prevBearing - currBearing)
		}
		if endPoint.IsJunction() {
			havePrevBearing = false
		} else {
			prevBearing = currBearing
			havePrevBearing = true
		}
	}

	stats := Stats{
		LenM:          lenM,
		JunctionCount: junctionCount,
		Highway:       toStatMap(lenM, highway),
		Surface:       toStatMap(lenM, surface),
		Smoothness:    toStatMap(lenM, smoothness),
	}
	if n := len(r); n > 0 {
		stats.MeanPoint = Point{Lat: latSum / float64(n), Lon: lonSum / float64(n)}
	}
	if lenM > 0 {
		stats.DirectionChangeRatio = totBearingDiff / lenM * 1000
	}
	return stats
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
