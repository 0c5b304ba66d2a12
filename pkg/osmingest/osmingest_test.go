package osmingest

import (
	"testing"

	"github.com/paulmach/osm"

	"motoroute/pkg/mapgraph"
)

func TestMemberTypeMapsWayAndRelation(t *testing.T) {
	tests := []struct {
		in   osm.Type
		want mapgraph.MemberType
	}{
		{osm.TypeNode, mapgraph.MemberNode},
		{osm.TypeWay, mapgraph.MemberWay},
		{osm.TypeRelation, mapgraph.MemberRelation},
	}
	for _, tt := range tests {
		if got := memberType(tt.in); got != tt.want {
			t.Errorf("memberType(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
