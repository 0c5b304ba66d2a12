// Package spatialgrid indexes points in a hundredths-of-degree grid
// and finds nearest neighbors by expanding a ring of cells around the
// query point, wrapping at the pole and antimeridian.
package spatialgrid

import "math"

// CellID identifies a grid cell: lat/lon rounded to hundredths of a
// degree. Range is [-9000, 9000] for lat and [-18000, 18000] for lon.
type CellID struct {
	Lat int32
	Lon int32
}

// GetCellID returns the cell containing (lat, lon).
func GetCellID(lat, lon float64) CellID {
	return CellID{
		Lat: int32(math.Round(lat * 100)),
		Lon: int32(math.Round(lon * 100)),
	}
}

// PointRef is an opaque handle stored by the caller; the grid never
// interprets it.
type PointRef uint32

// Grid maps a CellID to the list of point refs registered there.
type Grid struct {
	cells map[CellID][]PointRef
}

// New returns an empty Grid.
func New() *Grid {
	return &Grid{cells: make(map[CellID][]PointRef)}
}

// Insert appends ref to the bucket for (lat, lon).
func (g *Grid) Insert(lat, lon float64, ref PointRef) {
	id := GetCellID(lat, lon)
	g.cells[id] = append(g.cells[id], ref)
}

// wrapLat wraps a latitude cell coordinate at the pole (+-9000).
func wrapLat(v int32) int32 {
	if v > 9000 {
		return v - 9000
	}
	if v < -9000 {
		return v + 9000
	}
	return v
}

// wrapLon wraps a longitude cell coordinate at the antimeridian (+-18000).
func wrapLon(v int32) int32 {
	if v > 18000 {
		return v - 18000
	}
	if v < -18000 {
		return v + 18000
	}
	return v
}

// outerRing returns every cell at Chebyshev distance exactly offset
// from center — the ring, not the filled disc — wrapping lat/lon at
// their respective boundaries. offset=0 returns just the center cell.
func outerRing(center CellID, offset int32) []CellID {
	if offset == 0 {
		return []CellID{center}
	}
	var ring []CellID
	for dLat := -offset; dLat <= offset; dLat++ {
		for dLon := -offset; dLon <= offset; dLon++ {
			if abs32(dLat) != offset && abs32(dLon) != offset {
				continue
			}
			ring = append(ring, CellID{
				Lat: wrapLat(center.Lat + dLat),
				Lon: wrapLon(center.Lon + dLon),
			})
		}
	}
	return ring
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

const maxRingOffset = 10

// FindClosestPointRefs walks rings of increasing radius (0..10)
// around (lat, lon) and returns the union of point refs in the first
// non-empty ring. This is an approximation: the caller must still
// compute exact distances among the candidates and pick the minimum,
// since points just outside the returned ring can be closer than
// points inside it.
func (g *Grid) FindClosestPointRefs(lat, lon float64) []PointRef {
	center := GetCellID(lat, lon)
	for offset := int32(0); offset <= maxRingOffset; offset++ {
		var found []PointRef
		for _, cell := range outerRing(center, offset) {
			found = append(found, g.cells[cell]...)
		}
		if len(found) > 0 {
			return found
		}
	}
	return nil
}
