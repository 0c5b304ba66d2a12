package spatialgrid

import "testing"

func TestGetCellID(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		want     CellID
	}{
		{"typical", 21.211, 54.1113, CellID{Lat: 2121, Lon: 5411}},
		{"north pole / antimeridian", 90.0, 180.0, CellID{Lat: 9000, Lon: 18000}},
		{"south pole / antimeridian", -90.0, -180.0, CellID{Lat: -9000, Lon: -18000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCellID(tt.lat, tt.lon); got != tt.want {
				t.Fatalf("GetCellID(%v, %v) = %+v, want %+v", tt.lat, tt.lon, got, tt.want)
			}
		})
	}
}

func TestOuterRingWraps(t *testing.T) {
	center := CellID{Lat: 9000, Lon: 18000}
	ring := outerRing(center, 1)
	for _, c := range ring {
		if c.Lat > 9000 || c.Lat < -9000 {
			t.Fatalf("ring cell %+v lat out of bounds", c)
		}
		if c.Lon > 18000 || c.Lon < -18000 {
			t.Fatalf("ring cell %+v lon out of bounds", c)
		}
	}
}

func TestFindClosestPointRefsWidensUntilNonEmpty(t *testing.T) {
	g := New()
	g.Insert(10.0, 20.0, PointRef(1))

	// A query far enough away that ring 0 and ring 1 are empty but a
	// wider ring eventually reaches the inserted point's cell.
	got := g.FindClosestPointRefs(10.03, 20.0)
	if len(got) != 1 || got[0] != PointRef(1) {
		t.Fatalf("expected to find the point three rings out, got %v", got)
	}

	empty := New()
	if got := empty.FindClosestPointRefs(0, 0); got != nil {
		t.Fatalf("expected nil for an empty grid, got %v", got)
	}
}
