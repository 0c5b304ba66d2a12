// Package clustering groups a batch of completed routes by shape, so
// the generator can keep one representative route per distinct path
// instead of returning many near-duplicates that only differ by which
// fork they happened to take through a dense grid of streets.
package clustering

import (
	"container/heap"

	"motoroute/pkg/mapgraph"
	"motoroute/pkg/route"
)

// fingerprintPoints is the fixed number of mean points (K) each route
// is reduced to before clustering.
const fingerprintPoints = 10

// epsilon is the maximum fingerprint distance (in degrees, across the
// flattened lat/lon vector) for two routes to be considered the same
// shape.
const epsilon = 0.05

// Fingerprint is a flattened K*2 vector of mean (lat, lon) points, one
// per equal chunk of a route's segment list.
type Fingerprint []float32

// Result is the outcome of clustering a batch of routes: each route's
// fingerprint and an integer cluster label (-1 for noise — unreachable
// with this clusterer's min-cluster-size-1 configuration, but kept so
// callers don't need to special-case it away).
type Result struct {
	Fingerprints []Fingerprint
	Labels       []int
}

// FingerprintRoute reduces a route to fingerprintPoints mean (lat, lon)
// points by splitting its segment list into fingerprintPoints equal
// chunks and averaging each chunk's end-point coordinates.
func FingerprintRoute(g *mapgraph.Graph, r route.Route) Fingerprint {
	out := make(Fingerprint, 0, fingerprintPoints*2)
	if len(r) == 0 {
		return append(out, make([]float32, fingerprintPoints*2)...)
	}

	pointsPerStep := float64(len(r)) / float64(fingerprintPoints)
	for step := 0; step < fingerprintPoints; step++ {
		from := int(float64(step) * pointsPerStep)
		to := int((float64(step) + 1) * pointsPerStep)
		if to > len(r) {
			to = len(r)
		}
		if to <= from {
			to = from + 1
		}
		if to > len(r) {
			to = len(r)
		}

		var latSum, lonSum float32
		count := 0
		for i := from; i < to; i++ {
			p := g.Point(r[i].End)
			latSum += p.Lat
			lonSum += p.Lon
			count++
		}
		if count == 0 {
			out = append(out, 0, 0)
			continue
		}
		out = append(out, latSum/float32(count), lonSum/float32(count))
	}
	return out
}

// Generate fingerprints every route and clusters them by single-
// linkage at the fixed epsilon threshold: two routes merge into the
// same cluster as soon as any chain of pairwise distances at or below
// epsilon connects them. With a minimum cluster size of 1, every
// resulting connected component — including singletons — is a valid
// cluster, so no route is ever labeled noise.
func Generate(g *mapgraph.Graph, routes []route.Route) Result {
	fingerprints := make([]Fingerprint, len(routes))
	raw := make([][]float32, len(routes))
	for i, r := range routes {
		fingerprints[i] = FingerprintRoute(g, r)
		raw[i] = fingerprints[i]
	}

	uf := newUnionFind(len(routes))
	edges := buildEdges(raw, epsilon)
	for edges.Len() > 0 {
		e := heap.Pop(edges).(*edgeEntry)
		uf.union(e.a, e.b)
	}

	labels := make([]int, len(routes))
	rootLabel := make(map[int]int)
	nextLabel := 0
	for i := range routes {
		root := uf.find(i)
		label, ok := rootLabel[root]
		if !ok {
			label = nextLabel
			rootLabel[root] = label
			nextLabel++
		}
		labels[i] = label
	}

	return Result{Fingerprints: fingerprints, Labels: labels}
}
