// Package debuglog optionally records a Navigator's search as a set of
// CSV streams: one file per stream per worker, so concurrent workers
// (one goroutine per itinerary in pkg/generator) never contend on a
// single file. It is off by default — nothing is written unless Init
// is called with a directory.
package debuglog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"motoroute/pkg/itinerary"
	"motoroute/pkg/mapgraph"
)

type stream struct {
	id     string
	header []string
}

var streams = struct {
	stepResult, forkChoiceWeight, forkChoices, steps, itineraries, itineraryWaypoints stream
}{
	stepResult:         stream{"step_result", []string{"itinerary_id", "step_num", "result", "chosen_fork_point_id"}},
	forkChoiceWeight:   stream{"fork_choice_weight", []string{"itinerary_id", "step_num", "end_point_id", "weight_name", "weight_type", "weight_value"}},
	forkChoices:        stream{"fork_choices", []string{"itinerary_id", "step_num", "end_point_id", "line_point_0_lat", "line_point_0_lon", "line_point_1_lat", "line_point_1_lon", "segment_end_point", "discarded"}},
	steps:              stream{"steps", []string{"itinerary_id", "step_num", "move_result"}},
	itineraries:        stream{"itineraries", []string{"itinerary_id", "waypoint_count", "radius", "visit_all"}},
	itineraryWaypoints: stream{"itinerary_waypoints", []string{"itinerary_id", "seq", "lat", "lon"}},
}

var (
	mu      sync.Mutex
	dir     string
	enabled bool
	files   map[string]*fileWriter // key: "<stream>-<worker>"
)

type fileWriter struct {
	mu sync.Mutex
	w  *csv.Writer
	f  *os.File
}

// Init enables debug logging to dir: any existing directory is
// removed and recreated, mirroring a fresh run. Init("") disables
// logging, the default state, at no further cost beyond one
// mutex-guarded boolean check per write.
func Init(d string) error {
	mu.Lock()
	defer mu.Unlock()

	closeAllLocked()
	dir = ""
	enabled = false
	if d == "" {
		return nil
	}

	if _, err := os.Stat(d); err == nil {
		if err := os.RemoveAll(d); err != nil {
			return fmt.Errorf("debuglog: remove existing directory: %w", err)
		}
	}
	if err := os.MkdirAll(d, 0o755); err != nil {
		return fmt.Errorf("debuglog: create directory: %w", err)
	}

	dir = d
	enabled = true
	files = make(map[string]*fileWriter)
	return nil
}

// Close flushes and closes every open stream file.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeAllLocked()
}

func closeAllLocked() {
	for _, fw := range files {
		fw.mu.Lock()
		fw.w.Flush()
		fw.f.Close()
		fw.mu.Unlock()
	}
	files = nil
}

// writer returns (creating if necessary) the CSV writer for s scoped
// to worker, writing its header row on first creation. Returns nil
// when debug logging is disabled.
func writer(s stream, worker int) *fileWriter {
	mu.Lock()
	defer mu.Unlock()
	if !enabled {
		return nil
	}
	key := fmt.Sprintf("%s-%d", s.id, worker)
	if fw, ok := files[key]; ok {
		return fw
	}

	f, err := os.Create(filepath.Join(dir, key+".csv"))
	if err != nil {
		return nil
	}
	w := csv.NewWriter(f)
	if err := w.Write(s.header); err != nil {
		f.Close()
		return nil
	}
	w.Flush()
	fw := &fileWriter{w: w, f: f}
	files[key] = fw
	return fw
}

func writeRow(s stream, worker int, row []string) {
	fw := writer(s, worker)
	if fw == nil {
		return
	}
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if err := fw.w.Write(row); err != nil {
		return
	}
	fw.w.Flush()
}

// WriteStepResult records one Navigator loop iteration's outcome:
// pkg/navigator writes "finished", "stuck", or "fork"; chosenForkPointID
// is nil when the step did not resolve a fork.
func WriteStepResult(worker int, itineraryID string, step int, result string, chosenForkPointID *uint64) {
	id := "0"
	if chosenForkPointID != nil {
		id = strconv.FormatUint(*chosenForkPointID, 10)
	}
	writeRow(streams.stepResult, worker, []string{itineraryID, strconv.Itoa(step), result, id})
}

// WriteStep records one walker move result, keyed the same way as
// the original's "Fork"/"Dead End"/"Finish"/"Error" move-result enum.
func WriteStep(worker int, itineraryID string, step int, moveResult string) {
	writeRow(streams.steps, worker, []string{itineraryID, strconv.Itoa(step), moveResult})
}

// WriteForkChoiceWeight records one weight evaluator's verdict on one
// fork candidate.
func WriteForkChoiceWeight(worker int, itineraryID string, step int, endPointID uint64, weightName string, doNotUse bool, weight uint8) {
	weightType := "UseWithWeight"
	if doNotUse {
		weightType = "DoNotUse"
	}
	writeRow(streams.forkChoiceWeight, worker, []string{
		itineraryID, strconv.Itoa(step), strconv.FormatUint(endPointID, 10),
		weightName, weightType, strconv.Itoa(int(weight)),
	})
}

// WriteForkChoices records every candidate segment considered at one
// fork, including whether it had already been discarded.
func WriteForkChoices(worker int, itineraryID string, step int, g *mapgraph.Graph, candidates []mapgraph.LineRef, ends []mapgraph.PointRef, discarded func(mapgraph.PointRef) bool) {
	for i, lineRef := range candidates {
		line := g.Line(lineRef)
		p1, p2 := g.Point(line.P1), g.Point(line.P2)
		end := ends[i]
		segmentEndIsP2 := 0
		if end == line.P2 {
			segmentEndIsP2 = 1
		}
		writeRow(streams.forkChoices, worker, []string{
			itineraryID, strconv.Itoa(step), strconv.FormatUint(g.Point(end).ID, 10),
			strconv.FormatFloat(float64(p1.Lat), 'f', -1, 64), strconv.FormatFloat(float64(p1.Lon), 'f', -1, 64),
			strconv.FormatFloat(float64(p2.Lat), 'f', -1, 64), strconv.FormatFloat(float64(p2.Lon), 'f', -1, 64),
			strconv.Itoa(segmentEndIsP2),
			strconv.FormatBool(discarded(end)),
		})
	}
}

// WriteItinerary records it's waypoints and radius, scoped to worker
// (the goroutine index pkg/generator assigns it — this port's stand-in
// for the original's OS thread id, since Go goroutines have no
// exposed identity).
func WriteItinerary(worker int, g *mapgraph.Graph, it *itinerary.Itinerary, waypoints []mapgraph.PointRef, radius float64) {
	id := strconv.Itoa(worker)
	writeRow(streams.itineraries, worker, []string{
		id, strconv.Itoa(len(waypoints)), strconv.FormatFloat(radius, 'f', -1, 64),
		strconv.FormatBool(it.VisitAllWaypoints()),
	})
	for i, wp := range waypoints {
		p := g.Point(wp)
		writeRow(streams.itineraryWaypoints, worker, []string{
			id, strconv.Itoa(i),
			strconv.FormatFloat(float64(p.Lat), 'f', -1, 64),
			strconv.FormatFloat(float64(p.Lon), 'f', -1, 64),
		})
	}
}
