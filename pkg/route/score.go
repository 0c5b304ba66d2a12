package route

import "motoroute/pkg/mapgraph"

// sharpTurnThresholdDeg is the bearing delta, between consecutive
// non-junction segments, past which a turn is assumed to be a
// junction rather than part of a curve and is excluded from scoring.
const sharpTurnThresholdDeg = 90.0

// Score rates how curvy a route is: the total heading change across
// consecutive non-junction, non-residential segments, normalized per
// kilometer of route length. Higher is curvier, which this router
// treats as more desirable for its intended use.
func Score(g *mapgraph.Graph, r Route) float64 {
	var lenM, totBearingDiff float64
	var prevBearing float64
	havePrevBearing := false

	for _, seg := range r {
		lenM += segmentLenM(g, seg)

		currBearing := segmentBearing(g, seg)
		if havePrevBearing {
			diff := abs(prevBearing - currBearing)
			if diff < sharpTurnThresholdDeg {
				totBearingDiff += diff
			}
		}

		endPoint := g.Point(seg.End)
		line := g.Line(seg.Line)
		switch {
		case endPoint.IsJunction():
			havePrevBearing = false
		case g.Tags.Highway(line.Tags) == "residential":
			havePrevBearing = false
		default:
			prevBearing = currBearing
			havePrevBearing = true
		}
	}

	if lenM == 0 {
		return 0
	}
	return totBearingDiff / lenM * 1000
}
