package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"frag-arena/internal/game"
)

// ManagerInterface defines the room manager methods the API layer consumes.
// This interface enables mocking for tests without spinning up rooms.
// Keep this minimal - only include methods the API layer actually calls.
type ManagerInterface interface {
	// ListRooms returns summaries of all rooms, oldest first
	ListRooms() []game.RoomInfo
	// Get returns a room by id (may be nil)
	Get(id string) *game.Room
	// Leaderboard returns human players across all rooms ranked by kills
	Leaderboard(limit int) []game.LeaderboardRow
	// GetStats returns process-wide population counters
	GetStats() game.Stats
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
// This struct is designed for dependency injection and testability.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Manager: mgr,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Manager is the room manager (required)
	Manager ManagerInterface

	// WebSocketHandler handles GET /ws. Optional: REST-only routers (tests)
	// may leave it nil.
	WebSocketHandler http.HandlerFunc

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, uses localhost defaults.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler functions for the router.
type routerHandlers struct {
	mgr ManagerInterface
}

// httpMetrics records per-route latency and status counts. The endpoint
// label is the chi route pattern, not the raw path, so cardinality stays
// bounded.
func httpMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := chi.RouteContext(r.Context()).RoutePattern()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordRequest(r.Method, endpoint, status, time.Since(start))
	})
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE - it has no side effects:
//   - No goroutines are started
//   - No network listeners are opened
//   - No background workers are launched
//
// This makes it safe to use in tests with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	// CORS configuration
	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	// Request metrics after admission control, so only served requests count.
	r.Use(httpMetrics)

	h := &routerHandlers{mgr: cfg.Manager}

	// Read-only query surface. All mutation goes through the WebSocket.
	r.Route("/api", func(r chi.Router) {
		r.Get("/rooms", h.handleListRooms)
		r.Get("/rooms/{roomID}", h.handleGetRoom)
		r.Get("/leaderboard", h.handleLeaderboard)
		r.Get("/stats", h.handleGetStats)

		// Static game data
		r.Get("/weapons", h.handleGetWeapons)
		r.Get("/ranks", h.handleGetRanks)
	})

	if cfg.WebSocketHandler != nil {
		r.Get("/ws", cfg.WebSocketHandler)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
