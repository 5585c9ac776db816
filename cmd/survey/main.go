// Command survey runs a single detection scan against an elevation tile
// service and prints the result as JSON. It can optionally write diagnostic
// plots and a coherence heatmap for offline inspection.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/banshee-data/terrain.report/internal/config"
	"github.com/banshee-data/terrain.report/internal/terrain"
	"github.com/banshee-data/terrain.report/internal/terrain/monitor"
	"github.com/banshee-data/terrain.report/internal/terrain/provider"
	"github.com/banshee-data/terrain.report/internal/terrain/visualiser"
)

var (
	elevationURL = flag.String("elevation-url", "http://localhost:9090", "Base URL of the elevation tile service")
	configPath   = flag.String("config", "", "Path to a tuning config JSON file")
	latMin       = flag.Float64("lat-min", 52.4730, "Southern edge of the scan region")
	latMax       = flag.Float64("lat-max", 52.4790, "Northern edge of the scan region")
	lonMin       = flag.Float64("lon-min", 4.8135, "Western edge of the scan region")
	lonMax       = flag.Float64("lon-max", 4.8200, "Eastern edge of the scan region")
	plotDir      = flag.String("plots", "", "Directory for diagnostic plots (disabled when empty)")
	timeout      = flag.Duration("timeout", 5*time.Minute, "Scan deadline")
)

func main() {
	flag.Parse()

	bounds := terrain.Bounds{LatMin: *latMin, LatMax: *latMax, LonMin: *lonMin, LonMax: *lonMax}
	if !bounds.Valid() {
		log.Fatalf("invalid bounds: (%f, %f) to (%f, %f)", *latMin, *lonMin, *latMax, *lonMax)
	}

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		loaded, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
		cfg = loaded
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	tiles := provider.NewTileClient(*elevationURL, nil)
	session := terrain.NewSession(tiles, provider.ExtractFeatures, cfg.ToParams())

	result, err := session.RunScan(ctx, bounds, terrain.KnownTrainingSites(), terrain.KnownValidationSites())
	if err != nil {
		log.Fatalf("scan failed: %v", err)
	}

	if *plotDir != "" {
		writePlots(session, result, cfg.ToParams())
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Fatalf("failed to encode result: %v", err)
	}
}

func writePlots(session *terrain.Session, result *terrain.DetectionResult, params terrain.Params) {
	snapshot := session.CoherenceSnapshot()
	grid := session.LastGrid()
	if snapshot == nil || grid == nil {
		log.Printf("no coherence snapshot available, skipping plots")
		return
	}

	if file, err := monitor.WriteCoherenceProfile(*plotDir, snapshot); err != nil {
		log.Printf("coherence profile plot failed: %v", err)
	} else {
		log.Printf("wrote %s", file)
	}

	if file, err := monitor.WriteValidationScores(*plotDir, result.Candidates, params.Validation.PassScore); err != nil {
		log.Printf("validation score plot failed: %v", err)
	} else {
		log.Printf("wrote %s", file)
	}

	heatmapFile := filepath.Join(*plotDir, "coherence_heatmap.html")
	f, err := os.Create(heatmapFile)
	if err != nil {
		log.Printf("failed to create heatmap file: %v", err)
		return
	}
	defer f.Close()
	if err := visualiser.RenderCoherence(f, snapshot, grid.Bounds, result.Candidates, 0); err != nil {
		log.Printf("heatmap render failed: %v", err)
		return
	}
	log.Printf("wrote %s", heatmapFile)
}
