package main

import (
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wfunc/voxelworld/config"
	"github.com/wfunc/voxelworld/journal"
	"github.com/wfunc/voxelworld/logger"
	"github.com/wfunc/voxelworld/monitor"
	"github.com/wfunc/voxelworld/server"
	"github.com/wfunc/voxelworld/world"
)

func main() {
	// Initialize logger
	logger.Init()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Generate the starting terrain
	seed := cfg.World.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	w := world.NewWorld()
	w.Generate(cfg.World.HalfExtent, cfg.World.StoneChance, rand.New(rand.NewSource(seed)))
	logger.Log.Infof("World generated: %d blocks (half extent %d, seed %d)", w.Len(), cfg.World.HalfExtent, seed)

	// Metrics endpoint
	mon := monitor.NewMonitor("voxelworld")
	mon.StartServer(cfg.Server.MetricsAddress)
	mon.SetWorldBlocks(w.Len())

	// Optional event journal
	var jw *journal.Writer
	if cfg.Journal.Dir != "" {
		jw = journal.NewWriter(cfg.Journal.Dir, "events")
		logger.Log.Infof("Event journal enabled in %s", cfg.Journal.Dir)
	}

	// Initialize Game Server
	gameServer := server.NewGameServer(cfg.Server, w, mon, jw)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Log.Info("Shutting down...")
		gameServer.Shutdown()
		if jw != nil {
			jw.Close()
		}
		logger.Sync()
		os.Exit(0)
	}()

	// Start Server
	logger.Log.Infof("Starting voxel world server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
