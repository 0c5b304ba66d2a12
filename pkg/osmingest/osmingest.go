// Package osmingest drives a mapgraph.Graph from an OSM PBF file. It
// owns the PBF-parsing mechanics only: admissibility, direction, and
// turn-restriction semantics all live in pkg/mapgraph, which this
// package calls into via InsertNode/InsertWay/InsertRelation exactly
// as any other caller would.
package osmingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"motoroute/pkg/mapgraph"
)

// wayInfo holds one way's raw node id list and tags, collected during
// the first pass and replayed against the graph once all referenced
// node coordinates have been loaded.
type wayInfo struct {
	id      int64
	nodeIDs []uint64
	tags    map[string]string
}

// Ingest reads an OSM PBF file and populates g via InsertNode,
// InsertWay, and InsertRelation. rs is read three times (rewound with
// Seek between passes), so it must implement io.ReadSeeker:
//
//  1. scan ways, recording every node id any way references and
//     caching each way's node list and tags;
//  2. scan nodes, inserting coordinates for referenced node ids only
//     (ways admitted or not by pkg/mapgraph still need their node
//     coordinates present, since admissibility is decided inside
//     InsertWay, not here);
//  3. replay the cached ways against g.InsertWay, then scan relations
//     and replay those against g.InsertRelation.
//
// g.Finalize is left to the caller, so ingestion and finalization can
// be logged and timed separately.
func Ingest(ctx context.Context, logger *log.Logger, g *mapgraph.Graph, rs io.ReadSeeker) error {
	if logger == nil {
		logger = log.Default()
	}

	ways, referencedNodes, err := scanWays(ctx, rs)
	if err != nil {
		return fmt.Errorf("osmingest: pass 1 (ways): %w", err)
	}
	logger.Printf("osmingest: pass 1 complete: %d ways, %d referenced nodes", len(ways), len(referencedNodes))

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("osmingest: seek for pass 2: %w", err)
	}
	nodeCount, err := scanNodes(ctx, rs, referencedNodes, g)
	if err != nil {
		return fmt.Errorf("osmingest: pass 2 (nodes): %w", err)
	}
	logger.Printf("osmingest: pass 2 complete: %d node coordinates inserted", nodeCount)

	var missingPoint, insertedWays int
	for _, w := range ways {
		if err := g.InsertWay(w.id, w.nodeIDs, w.tags); err != nil {
			var mp *mapgraph.MissingPointError
			if errors.As(err, &mp) {
				missingPoint++
				continue
			}
			return fmt.Errorf("osmingest: insert way %d: %w", w.id, err)
		}
		insertedWays++
	}
	logger.Printf("osmingest: inserted %d ways (%d skipped for missing points)", insertedWays, missingPoint)

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("osmingest: seek for pass 3: %w", err)
	}
	relationCount, err := scanRelations(ctx, rs, g)
	if err != nil {
		return fmt.Errorf("osmingest: pass 3 (relations): %w", err)
	}
	logger.Printf("osmingest: pass 3 complete: %d relations processed", relationCount)

	return nil
}

func scanWays(ctx context.Context, rs io.ReadSeeker) ([]wayInfo, map[uint64]struct{}, error) {
	referenced := make(map[uint64]struct{})
	var ways []wayInfo

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipRelations = true
	defer scanner.Close()

	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		if len(w.Nodes) < 2 {
			continue
		}

		nodeIDs := make([]uint64, len(w.Nodes))
		for i, wn := range w.Nodes {
			nodeIDs[i] = uint64(wn.ID)
			referenced[uint64(wn.ID)] = struct{}{}
		}

		ways = append(ways, wayInfo{
			id:      int64(w.ID),
			nodeIDs: nodeIDs,
			tags:    w.Tags.Map(),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return ways, referenced, nil
}

func scanNodes(ctx context.Context, rs io.ReadSeeker, wanted map[uint64]struct{}, g *mapgraph.Graph) (int, error) {
	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true
	defer scanner.Close()

	count := 0
	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := wanted[uint64(n.ID)]; !needed {
			continue
		}
		g.InsertNode(uint64(n.ID), n.Lat, n.Lon)
		count++
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return count, nil
}

func scanRelations(ctx context.Context, rs io.ReadSeeker, g *mapgraph.Graph) (int, error) {
	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipWays = true
	defer scanner.Close()

	count := 0
	for scanner.Scan() {
		rel, ok := scanner.Object().(*osm.Relation)
		if !ok {
			continue
		}

		members := make([]mapgraph.Member, len(rel.Members))
		for i, m := range rel.Members {
			members[i] = mapgraph.Member{
				Type: memberType(m.Type),
				Role: m.Role,
				Ref:  m.Ref,
			}
		}
		if err := g.InsertRelation(int64(rel.ID), members, rel.Tags.Map()); err != nil {
			return 0, err
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return count, nil
}

func memberType(t osm.Type) mapgraph.MemberType {
	switch t {
	case osm.TypeWay:
		return mapgraph.MemberWay
	case osm.TypeRelation:
		return mapgraph.MemberRelation
	default:
		return mapgraph.MemberNode
	}
}
