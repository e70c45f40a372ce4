// Command teiserve serves the TEI facsimile and shape dump of a project over
// HTTP, reloading them when the project file changes.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"image-annotator/internal/app"
	"image-annotator/internal/config"
	"image-annotator/internal/logger"
)

// ============================================================
// Preview Service
// ============================================================

func main() {
	configPath := flag.String("config", "annotator.yaml", "Path to the YAML configuration")
	addr := flag.String("addr", "", "Listen address (overrides the config)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Println("Usage: teiserve [-config annotator.yaml] [-addr :8088] <project.ima>")
		os.Exit(1)
	}
	path := flag.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	logr, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()

	// ============================================================
	// Project Snapshot
	// ============================================================

	snap, err := app.LoadSnapshot(path, logr)
	if err != nil {
		log.Fatalf("Failed to load project: %v", err)
	}

	watcher, err := app.NewFileWatcher(path, cfg.Server.WatchInterval)
	if err != nil {
		log.Fatalf("Failed to watch project: %v", err)
	}
	watcher.OnChange(func() {
		if err := snap.Reload(); err != nil {
			logr.Warn("reload failed, serving previous export", "path", path, "error", err)
		}
	})
	watcher.Start()
	defer watcher.Stop()

	// ============================================================
	// Server Start
	// ============================================================

	srv := app.NewPreviewServer(snap, cfg.Server)
	logr.Info("starting preview server", "addr", cfg.Server.Addr, "project", path)

	if err := srv.Listen(cfg.Server.Addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
