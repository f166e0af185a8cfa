package api

import (
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics with bounded cardinality (no per-player labels to prevent DoS)
var (
	// Match simulation metrics
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "game_tick_duration_seconds",
		Help:    "Time spent in a room tick",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
	})

	roomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "game_rooms_active",
		Help: "Current number of rooms",
	})

	playersConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "game_players_connected",
		Help: "Current number of human players across all rooms",
	})

	botsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "game_bots_active",
		Help: "Current number of bots across all rooms",
	})

	killsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_kills_total",
		Help: "Total kills across all matches",
	})

	broadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_broadcasts_total",
		Help: "Total room-wide event broadcasts",
	})

	// Anti-cheat metrics - use ONLY bounded label values
	shotsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "game_shots_rejected_total",
		Help: "Shots dropped by server-side validation",
	}, []string{"reason"}) // Bounded: "rate", "range"

	// DoS detection metrics
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // Bounded: "rate_limit", "origin", "invalid", "ws_limit"

	// HTTP metrics with bounded labels
	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is path pattern, not full URL

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	// WebSocket metrics
	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket messages received",
	})
)

// Collector bridges game instrumentation hooks to Prometheus.
// It satisfies game.Metrics.
type Collector struct{}

func (Collector) ObserveTick(seconds float64)   { tickDuration.Observe(seconds) }
func (Collector) IncKill()                       { killsTotal.Inc() }
func (Collector) IncShotRejected(reason string)  { shotsRejected.WithLabelValues(reason).Inc() }
func (Collector) IncBroadcast()                  { broadcastsTotal.Inc() }
func (Collector) SetRooms(n int)                 { roomsActive.Set(float64(n)) }
func (Collector) SetPopulation(players, bots int) {
	playersConnected.Set(float64(players))
	botsActive.Set(float64(bots))
}

// ObservabilityConfig configures the debug server
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string // MUST be "127.0.0.1:6060" in production
	BasicAuthUser string // Optional basic auth
	BasicAuthPass string
}

// DefaultObservabilityConfig returns safe defaults
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060", // Localhost only - NEVER expose externally
	}
}

// StartDebugServer starts the internal observability server
// CRITICAL: This MUST bind to localhost only to prevent pprof-based DoS
func StartDebugServer(cfg ObservabilityConfig) error {
	if !cfg.Enabled {
		log.Println("📊 Debug server disabled")
		return nil
	}

	// SECURITY: Validate address is localhost
	if cfg.ListenAddr != "127.0.0.1:6060" && cfg.ListenAddr != "localhost:6060" {
		// Only allow external binding if explicitly enabled via env
		if os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
			log.Println("⚠️ Debug server forced to localhost for security")
			cfg.ListenAddr = "127.0.0.1:6060"
		}
	}

	mux := http.NewServeMux()

	// pprof endpoints for profiling
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Optional basic auth wrapper
	var handler http.Handler = mux
	if cfg.BasicAuthUser != "" {
		handler = basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}

	go func() {
		log.Printf("📊 Debug server starting on %s", cfg.ListenAddr)
		log.Printf("   - pprof:   http://%s/debug/pprof/", cfg.ListenAddr)
		log.Printf("   - metrics: http://%s/metrics", cfg.ListenAddr)

		if err := http.ListenAndServe(cfg.ListenAddr, handler); err != nil {
			log.Printf("⚠️ Debug server error: %v", err)
		}
	}()

	return nil
}

// basicAuthMiddleware adds basic authentication to the handler
func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RecordConnectionRejected increments the rejection counter
// reason must be one of: "rate_limit", "origin", "invalid", "ws_limit"
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}

// UpdateWSConnections updates WebSocket connection count
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages increments WebSocket message counter
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}
