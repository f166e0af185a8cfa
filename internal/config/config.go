// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all server and match settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// MATCH / ARENA CONFIGURATION
// =============================================================================

// GameConfig holds all match and arena related settings.
// These values are shared between the room manager and the tick loop.
type GameConfig struct {
	TickRate        int           // Snapshot broadcasts per second
	ArenaHalfExtent float64       // Positions are clamped to ±this on x and z
	MaxRoomPlayers  int           // Hard cap on human capacity per room
	DefaultDuration time.Duration // Match length when the client sends none
	DefaultBots     int           // Bot count for quick-match created rooms
	RespawnDelay    time.Duration // Death to respawn
	CleanupGrace    time.Duration // Ended room to deletion
}

// DefaultGame returns the default match configuration.
func DefaultGame() GameConfig {
	return GameConfig{
		TickRate:        20,
		ArenaHalfExtent: 50,
		MaxRoomPlayers:  16,
		DefaultDuration: 300 * time.Second,
		DefaultBots:     3,
		RespawnDelay:    3 * time.Second,
		CleanupGrace:    30 * time.Second,
	}
}

// GameFromEnv returns match configuration with environment variable overrides.
// Environment variables take precedence over defaults.
func GameFromEnv() GameConfig {
	cfg := DefaultGame()

	if tr := getEnvInt("TICK_RATE", 0); tr > 0 {
		cfg.TickRate = tr
	}
	if he := getEnvFloat("ARENA_HALF_EXTENT", 0); he > 0 {
		cfg.ArenaHalfExtent = he
	}
	if mp := getEnvInt("MAX_ROOM_PLAYERS", 0); mp > 0 {
		cfg.MaxRoomPlayers = mp
	}
	if d := getEnvInt("DEFAULT_MATCH_SECONDS", 0); d > 0 {
		cfg.DefaultDuration = time.Duration(d) * time.Second
	}
	if b := getEnvInt("DEFAULT_BOTS", -1); b >= 0 {
		cfg.DefaultBots = b
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP/WebSocket server settings.
type ServerConfig struct {
	Port            int
	MaxConnsTotal   int     // Hard cap on concurrent WebSocket connections
	MaxConnsPerIP   int     // Per-IP WebSocket connection cap
	MsgsPerSecond   float64 // Inbound message budget per connection
	MsgBurst        int
	AllowAllOrigins bool     // Dev mode: skip origin checks
	AllowedOrigins  []string // Extra origins beyond localhost
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:          3000,
		MaxConnsTotal: 500,
		MaxConnsPerIP: 10,
		MsgsPerSecond: 60, // player_update at tick rate plus headroom
		MsgBurst:      120,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if mc := getEnvInt("MAX_WS_CONNECTIONS", 0); mc > 0 {
		cfg.MaxConnsTotal = mc
	}
	if mi := getEnvInt("MAX_WS_PER_IP", 0); mi > 0 {
		cfg.MaxConnsPerIP = mi
	}
	if os.Getenv("ALLOW_ALL_ORIGINS") == "true" {
		cfg.AllowAllOrigins = true
	}
	if ao := os.Getenv("ALLOWED_ORIGINS"); ao != "" {
		for _, o := range strings.Split(ao, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	return cfg
}

// =============================================================================
// EVENT LOG CONFIGURATION
// =============================================================================

// EventLogConfig holds match event log settings.
type EventLogConfig struct {
	Path    string // JSONL output path, empty disables file output
	Enabled bool
}

// EventLogFromEnv returns event log configuration from the environment.
func EventLogFromEnv() EventLogConfig {
	cfg := EventLogConfig{
		Path:    "events.jsonl",
		Enabled: true,
	}
	if p := os.Getenv("EVENT_LOG_PATH"); p != "" {
		cfg.Path = p
	}
	if os.Getenv("EVENT_LOG_DISABLED") == "true" {
		cfg.Enabled = false
	}
	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Game     GameConfig
	Server   ServerConfig
	EventLog EventLogConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Game:     GameFromEnv(),
		Server:   ServerFromEnv(),
		EventLog: EventLogFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
