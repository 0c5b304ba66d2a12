// Package testfixture builds small, hand-verifiable mapgraph.Graph
// instances for use by pkg/mapgraph, pkg/walker, pkg/weights, and
// pkg/navigator tests. Node ids, coordinates, and way topology mirror
// the fixture meshes used upstream to validate walker/fork behavior.
package testfixture

import "motoroute/pkg/mapgraph"

type way struct {
	id      int64
	nodeIDs []uint64
	tags    map[string]string
}

func insert(g *mapgraph.Graph, nodeIDs []uint64, ways []way) {
	for _, id := range nodeIDs {
		g.InsertNode(id, float64(id), float64(id))
	}
	for _, w := range ways {
		if err := g.InsertWay(w.id, w.nodeIDs, w.tags); err != nil {
			panic(err)
		}
	}
}

func primary() map[string]string {
	return map[string]string{"highway": "primary"}
}

// Mesh1Graph returns a fresh Graph populated with:
//
//	      1
//	      |
//	      2
//	      |
//	5 - - 3 - - 6 - - 7
//	      |     |
//	      4 - - 8 - - 9
//
//	11 - 12
//
// All ways are plain two-way `highway=primary`.
func Mesh1Graph() *mapgraph.Graph {
	g := mapgraph.New(nil)
	insert(g, []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9, 11, 12}, []way{
		{id: 1234, nodeIDs: []uint64{1, 2, 3, 4}, tags: primary()},
		{id: 5367, nodeIDs: []uint64{5, 3, 6, 7}, tags: primary()},
		{id: 489, nodeIDs: []uint64{4, 8, 9}, tags: primary()},
		{id: 68, nodeIDs: []uint64{6, 8}, tags: primary()},
		{id: 1112, nodeIDs: []uint64{11, 12}, tags: primary()},
	})
	g.Finalize()
	return g
}

// Mesh2Graph returns a fresh Graph populated with the oneway/roundabout
// mesh:
//
//	1 - - 2 - - 3 - - 4 - - 5
//	      |     |
//	      /\    \/
//	      |     |
//	6 - - 7 -<- 8 - - 9 - - 10
//	     /r
//	    /r
//	111-11     13-131
//	    \r  r/
//	     \rr/
//	      12
//	      |
//	     121
//
// "r" edges belong to the junction=roundabout way 7-11-12-13, which
// is not closed: no line joins 13 back to 7. 6->7,
// 8->7, 7->2, and 3->8 are oneway in the direction listed.
func Mesh2Graph() *mapgraph.Graph {
	g := mapgraph.New(nil)
	oneway := func() map[string]string {
		return map[string]string{"highway": "primary", "oneway": "yes"}
	}
	roundabout := func() map[string]string {
		return map[string]string{"highway": "primary", "junction": "roundabout"}
	}
	insert(g, []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 111, 121, 131}, []way{
		{id: 12345, nodeIDs: []uint64{1, 2, 3, 4, 5}, tags: primary()},
		{id: 67, nodeIDs: []uint64{6, 7}, tags: oneway()},
		{id: 87, nodeIDs: []uint64{8, 7}, tags: oneway()},
		{id: 8910, nodeIDs: []uint64{8, 9, 10}, tags: primary()},
		{id: 72, nodeIDs: []uint64{7, 2}, tags: oneway()},
		{id: 38, nodeIDs: []uint64{3, 8}, tags: oneway()},
		{id: 7111213, nodeIDs: []uint64{7, 11, 12, 13}, tags: roundabout()},
		{id: 11111, nodeIDs: []uint64{111, 11}, tags: primary()},
		{id: 12121, nodeIDs: []uint64{121, 12}, tags: primary()},
		{id: 13131, nodeIDs: []uint64{131, 13}, tags: primary()},
	})
	g.Finalize()
	return g
}

// Mesh3Graph returns a fresh Graph populated with a mesh containing
// two independent cycles sharing node 3 and node 4, useful for
// exercising multi-way forks without any oneway/roundabout direction:
//
//	         1
//	         |
//	   5 - - 3 - - 6
//	  /|     |     |\
//	 | |     |     | |
//	 | \ - - 4 - - / |
//	 |               |
//	 \ - - - 7 - - - /
func Mesh3Graph() *mapgraph.Graph {
	g := mapgraph.New(nil)
	insert(g, []uint64{1, 3, 4, 5, 6, 7}, []way{
		{id: 13, nodeIDs: []uint64{1, 3}, tags: primary()},
		{id: 34, nodeIDs: []uint64{3, 4}, tags: primary()},
		{id: 53, nodeIDs: []uint64{5, 3}, tags: primary()},
		{id: 36, nodeIDs: []uint64{3, 6}, tags: primary()},
		{id: 54, nodeIDs: []uint64{5, 4}, tags: primary()},
		{id: 64, nodeIDs: []uint64{6, 4}, tags: primary()},
		{id: 576, nodeIDs: []uint64{5, 7, 6}, tags: primary()},
	})
	g.Finalize()
	return g
}
