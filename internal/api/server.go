package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"frag-arena/internal/config"
	"frag-arena/internal/game"
)

// Server is the HTTP API server with WebSocket support. It combines the
// read-only REST router with the WebSocket hub that carries all mutation.
type Server struct {
	mgr         *game.Manager
	router      *chi.Mux
	hub         *Hub
	rateLimiter *IPRateLimiter

	httpServer *http.Server
}

// NewServer creates a new API server with production configuration.
//
// IMPORTANT: No listeners are opened and no goroutines started until
// Start() is called. For testing REST endpoints without WebSocket support,
// use NewRouter() directly.
func NewServer(mgr *game.Manager, cfg config.ServerConfig) *Server {
	s := &Server{
		mgr: mgr,
		hub: NewHub(mgr, cfg),
	}

	// Track the rate limiter for cleanup on shutdown
	s.rateLimiter = NewIPRateLimiter(DefaultRateLimitConfig)

	s.router = NewRouter(RouterConfig{
		Manager:          mgr,
		WebSocketHandler: s.hub.HandleWebSocket,
		RateLimiter:      s.rateLimiter,
		CORSOrigins:      corsOrigins(cfg),
	})

	return s
}

func corsOrigins(cfg config.ServerConfig) []string {
	if cfg.AllowAllOrigins {
		return []string{"*"}
	}
	origins := []string{"http://localhost:*", "http://127.0.0.1:*"}
	return append(origins, cfg.AllowedOrigins...)
}

// Start opens the listener and blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("🌐 API server starting on %s", addr)
	log.Printf("🎯 WebSocket: ws://localhost%s/ws", addr)

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.Stop()
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Router returns the HTTP handler for use with httptest.
//
// Example:
//
//	server := api.NewServer(mgr, cfg)
//	ts := httptest.NewServer(server.Router())
//	defer ts.Close()
//	resp, _ := http.Get(ts.URL + "/api/rooms")
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub exposes the WebSocket hub, mainly for stats.
func (s *Server) Hub() *Hub {
	return s.hub
}
