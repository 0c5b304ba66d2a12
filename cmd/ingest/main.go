package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"motoroute/pkg/mapgraph"
	"motoroute/pkg/osmingest"
)

func main() {
	input := flag.String("input", "", "Path to .osm.pbf file")
	output := flag.String("output", "graph.bin", "Output binary graph file path")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: ingest --input <file.osm.pbf> [--output graph.bin]")
		os.Exit(1)
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	start := time.Now()

	logger.Printf("Opening OSM file %s...", *input)
	f, err := os.Open(*input)
	if err != nil {
		log.Fatalf("Failed to open input file: %v", err)
	}
	defer f.Close()

	g := mapgraph.New(logger)

	logger.Println("Ingesting OSM data...")
	if err := osmingest.Ingest(context.Background(), logger, g, f); err != nil {
		log.Fatalf("Failed to ingest OSM data: %v", err)
	}

	logger.Println("Finalizing graph...")
	g.Finalize()
	logger.Printf("Graph: %d points, %d lines, %d rules", g.NumPoints(), g.NumLines(), g.NumRules())

	logger.Printf("Writing binary to %s...", *output)
	if err := g.WriteBinary(*output); err != nil {
		log.Fatalf("Failed to write binary: %v", err)
	}

	info, _ := os.Stat(*output)
	elapsed := time.Since(start)
	logger.Printf("Done in %s. Output: %s (%.1f MB)", elapsed.Round(time.Second), *output, float64(info.Size())/(1024*1024))
}
