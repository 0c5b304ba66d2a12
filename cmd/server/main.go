package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"motoroute/pkg/api"
	"motoroute/pkg/mapgraph"
	"motoroute/pkg/rules"
)

func main() {
	graphPath := flag.String("graph", "graph.bin", "Path to preprocessed graph binary")
	rulesPath := flag.String("rules", "", "Path to rules JSON file (empty = built-in default rules)")
	port := flag.Int("port", 8080, "HTTP port")
	corsOrigin := flag.String("cors-origin", "", "CORS allowed origin (empty = same-origin)")
	flag.Parse()

	start := time.Now()
	logger := log.New(os.Stderr, "", log.LstdFlags)

	logger.Printf("Loading graph from %s...", *graphPath)
	g, err := mapgraph.ReadBinary(*graphPath, logger)
	if err != nil {
		log.Fatalf("Failed to load graph: %v", err)
	}
	logger.Printf("Loaded: %d points, %d lines, %d rules", g.NumPoints(), g.NumLines(), g.NumRules())

	var defaultRules rules.Router
	if *rulesPath != "" {
		defaultRules, err = rules.ReadFile(*rulesPath)
		if err != nil {
			log.Fatalf("Failed to load rules: %v", err)
		}
	} else {
		defaultRules = rules.Default()
	}

	// Reclaim memory from init-time temporaries. Without this, Go's heap
	// retains peak RSS from graph construction (GC doubles heap each cycle:
	// 120→240→480→960→1920 MB). This returns unused pages to the OS.
	runtime.GC()
	debug.FreeOSMemory()

	loadTime := time.Since(start)
	logger.Printf("Ready in %s", loadTime.Round(time.Millisecond))

	addr := fmt.Sprintf(":%d", *port)
	cfg := api.DefaultConfig(addr)
	cfg.CORSOrigin = *corsOrigin

	stats := api.StatsResponse{
		NumNodes: g.NumPoints(),
		NumLines: g.NumLines(),
		NumRules: g.NumRules(),
	}

	handlers := api.NewHandlers(g, defaultRules, stats)
	srv := api.NewServer(cfg, handlers)

	if err := api.ListenAndServe(srv); err != nil {
		log.Printf("Server stopped: %v", err)
		os.Exit(1)
	}
}
