package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"frag-arena/internal/api"
	"frag-arena/internal/config"
	"frag-arena/internal/game"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🎮 ================================")
	log.Println("🎮  FRAG ARENA - MATCH SERVER")
	log.Println("🎮 ================================")

	// Load centralized configuration (SSOT - Single Source of Truth)
	appConfig := config.Load()
	gameCfg := appConfig.Game
	serverCfg := appConfig.Server

	log.Printf("🎮 Config: %d ticks/s, arena ±%.0f, %d max players/room, %s matches",
		gameCfg.TickRate, gameCfg.ArenaHalfExtent, gameCfg.MaxRoomPlayers, gameCfg.DefaultDuration)

	// Event log
	events := game.NewEventLog()
	if appConfig.EventLog.Enabled {
		if err := events.Start(appConfig.EventLog.Path); err != nil {
			log.Printf("⚠️ Event log disabled: %v", err)
		} else {
			log.Printf("📝 Event log: %s", appConfig.EventLog.Path)
		}
	}

	// Room manager with prometheus instrumentation
	mgr := game.NewManager(gameCfg, events, api.Collector{})

	// Debug server (pprof + metrics, localhost only)
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(api.DefaultObservabilityConfig()); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		}
	}

	server := api.NewServer(mgr, serverCfg)

	// Start API server in goroutine
	addr := ":" + strconv.Itoa(serverCfg.Port)
	go func() {
		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ Shutdown error: %v", err)
	}
	events.Stop()
	log.Println("👋 Goodbye!")
}
