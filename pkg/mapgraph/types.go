package mapgraph

import "motoroute/pkg/taginterner"

// PointRef is a dense index into Graph.points. The zero value does not
// mean "absent" here (unlike TagSetRef) — validity is tracked by the
// caller; Graph never hands out an invalid PointRef.
type PointRef uint32

// LineRef is a dense index into Graph.lines.
type LineRef uint32

// Direction describes the legal direction(s) of travel along a Line.
type Direction uint8

const (
	BothWays Direction = iota
	OneWay
	Roundabout
)

// Point is a graph vertex derived from an OSM node that belongs to at
// least one admissible way.
type Point struct {
	ID    uint64
	Lat   float32
	Lon   float32
	Lines []LineRef
	Rules []Rule
}

// IsJunction reports whether p carries 3 or more incident lines.
func (p *Point) IsJunction() bool {
	return len(p.Lines) >= 3
}

// Line is a graph edge connecting two points, derived from a
// consecutive node pair within an admissible way. Lines are never
// deduplicated: each ingested way segment becomes exactly one Line.
type Line struct {
	P1, P2    PointRef
	Direction Direction
	Tags      taginterner.SetRef
}

// Other returns the endpoint of the line opposite from, assuming from
// is one of the line's two endpoints.
func (l *Line) Other(from PointRef) PointRef {
	if l.P1 == from {
		return l.P2
	}
	return l.P1
}

// RuleType distinguishes the two turn-restriction kinds recognized
// from OSM restriction relations.
type RuleType uint8

const (
	OnlyAllowed RuleType = iota
	NotAllowed
)

// Rule is a turn restriction attached to a via-point: From/To are
// line sets contributed by the restriction relation's "from"/"to"
// way members.
type Rule struct {
	From []LineRef
	To   []LineRef
	Type RuleType
}

func containsLine(s []LineRef, l LineRef) bool {
	for _, x := range s {
		if x == l {
			return true
		}
	}
	return false
}
