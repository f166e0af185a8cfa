package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"frag-arena/internal/game"
)

// Handler methods for routerHandlers
// These are used by both the standalone router (for testing) and the full Server.

func (h *routerHandlers) handleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.mgr.ListRooms())
}

func (h *routerHandlers) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	room := h.mgr.Get(roomID)
	if room == nil {
		writeError(w, "Room not found", http.StatusNotFound)
		return
	}

	writeJSON(w, room.Detail())
}

func (h *routerHandlers) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	writeJSON(w, h.mgr.Leaderboard(limit))
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.mgr.GetStats())
}

func (h *routerHandlers) handleGetWeapons(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, game.GetAllWeapons())
}

func (h *routerHandlers) handleGetRanks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, game.RankTable)
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
