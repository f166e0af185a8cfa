package game

import (
	"log"
	"math"
	"sort"
	"sync"

	"frag-arena/internal/config"
)

// Metrics is the hook the transport layer implements with prometheus.
// The core never imports the metrics library directly.
type Metrics interface {
	ObserveTick(seconds float64)
	IncKill()
	IncShotRejected(reason string)
	IncBroadcast()
	SetRooms(n int)
	SetPopulation(players, bots int)
}

// NopMetrics is the default when no collector is wired (tests, tools).
type NopMetrics struct{}

func (NopMetrics) ObserveTick(float64)       {}
func (NopMetrics) IncKill()                  {}
func (NopMetrics) IncShotRejected(string)    {}
func (NopMetrics) IncBroadcast()             {}
func (NopMetrics) SetRooms(int)              {}
func (NopMetrics) SetPopulation(int, int)    {}

// Manager is the process-scoped room registry. It owns the rooms map;
// each room owns its own state. Lock order is always manager before room.
type Manager struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	cfg     config.GameConfig
	metrics Metrics
	events  *EventLog
}

// NewManager creates a manager. A nil metrics collector or event log is
// replaced with inert defaults.
func NewManager(cfg config.GameConfig, events *EventLog, metrics Metrics) *Manager {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if events == nil {
		events = NewEventLog()
	}
	return &Manager{
		rooms:   make(map[string]*Room),
		cfg:     cfg,
		metrics: metrics,
		events:  events,
	}
}

// Config exposes the game configuration to collaborators.
func (m *Manager) Config() config.GameConfig { return m.cfg }

// CreateRoom builds a room from client options and joins the creator as
// host. The creator's connection receives room_created.
func (m *Manager) CreateRoom(opts RoomOptions, host *Player) (*Room, ErrorCode) {
	r := newRoom(m, opts)

	m.mu.Lock()
	m.rooms[r.ID] = r
	m.mu.Unlock()

	if code := r.Join(host); code != "" {
		// Cannot happen for a fresh room, but do not leak one if it does.
		m.cleanupRoom(r.ID, true)
		return nil, code
	}

	host.Send(Envelope{Event: EvRoomCreated, Data: r.Detail()})
	m.events.EmitSimple(EventTypeRoomCreated, r.ID, host.ID, MatchPayload{
		RoomID: r.ID, Players: 1, Bots: len(r.bots),
	})
	log.Printf("room %s created by %s (%s, max %d, %d bots)",
		r.ID, host.Name, r.Mode, r.MaxPlayers, len(r.bots))
	return r, ""
}

// QuickMatch places the player in the oldest joinable room, or creates a
// new one with the default bot count. The placement that brings a lobby
// to two humans starts the match.
func (m *Manager) QuickMatch(p *Player) (*Room, ErrorCode) {
	m.mu.RLock()
	candidates := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		candidates = append(candidates, r)
	}
	m.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})

	for _, r := range candidates {
		if !r.Joinable() {
			continue
		}
		if code := r.JoinQuick(p); code == "" {
			return r, ""
		}
	}

	return m.CreateRoom(RoomOptions{Bots: m.cfg.DefaultBots}, p)
}

// Get returns a room by id.
func (m *Manager) Get(id string) *Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rooms[id]
}

// cleanupRoom deletes a room. Called from cleanup timers, so unless
// forced it re-validates that the room is still ended: a fresh match in
// a recycled id must not be torn down by a stale timer.
func (m *Manager) cleanupRoom(id string, force bool) {
	m.mu.Lock()

	r, ok := m.rooms[id]
	if !ok {
		m.mu.Unlock()
		return
	}

	r.mu.Lock()
	if !force && r.State != StateEnded {
		r.mu.Unlock()
		m.mu.Unlock()
		return
	}
	r.stopTickLocked()
	r.mu.Unlock()

	delete(m.rooms, id)
	m.mu.Unlock()

	m.RefreshGauges()
	log.Printf("room %s deleted", id)
}

// respawnActor is the respawn timer target: everything is looked up by id
// and re-validated because the room may be gone or no longer playing.
func (m *Manager) respawnActor(roomID, actorID string) {
	m.mu.RLock()
	r := m.rooms[roomID]
	m.mu.RUnlock()

	if r == nil {
		return
	}
	r.respawn(actorID)
}

// =============================================================================
// READ-ONLY PROJECTIONS (REST surface)
// =============================================================================

// RoomInfo is the listing projection of a room.
type RoomInfo struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Mode       Mode       `json:"mode"`
	State      RoomState  `json:"state"`
	Players    int        `json:"players"`
	MaxPlayers int        `json:"maxPlayers"`
	Bots       int        `json:"bots"`
	Difficulty Difficulty `json:"difficulty"`
	HostID     string     `json:"hostId"`
	HostName   string     `json:"hostName"`
	TimeLeft   int        `json:"timeLeft"`
}

// RoomDetailView adds live actors and the recent kill feed to RoomInfo.
type RoomDetailView struct {
	RoomInfo
	Actors   []ActorState    `json:"actors"`
	KillFeed []KillFeedEntry `json:"killFeed"`
}

// LeaderboardRow is one human on the cross-room leaderboard.
type LeaderboardRow struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Rank     string `json:"rank"`
	RoomID   string `json:"roomId"`
	RoomName string `json:"roomName"`
	Kills    int    `json:"kills"`
	Deaths   int    `json:"deaths"`
	MatchXP  int    `json:"matchXp"`
}

// Joinable reports whether the room accepts another human.
func (r *Room) Joinable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.State != StateEnded && len(r.players) < r.MaxPlayers
}

// Info returns the listing projection.
func (r *Room) Info() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.infoLocked()
}

func (r *Room) infoLocked() RoomInfo {
	hostName := ""
	if h, ok := r.players[r.HostID]; ok {
		hostName = h.Name
	}
	return RoomInfo{
		ID:         r.ID,
		Name:       r.Name,
		Mode:       r.Mode,
		State:      r.State,
		Players:    len(r.players),
		MaxPlayers: r.MaxPlayers,
		Bots:       len(r.bots),
		Difficulty: r.Difficulty,
		HostID:     r.HostID,
		HostName:   hostName,
		TimeLeft:   int(math.Ceil(r.TimeLeft)),
	}
}

// Detail returns the full projection, including actors and kill feed.
func (r *Room) Detail() RoomDetailView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.detailLocked()
}

func (r *Room) detailLocked() RoomDetailView {
	actors := make([]ActorState, 0, len(r.players)+len(r.bots))
	for _, a := range r.actors() {
		actors = append(actors, a.State())
	}
	return RoomDetailView{
		RoomInfo: r.infoLocked(),
		Actors:   actors,
		KillFeed: append([]KillFeedEntry(nil), r.feed...),
	}
}

// ListRooms returns a snapshot of every active room, oldest first.
func (m *Manager) ListRooms() []RoomInfo {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})

	out := make([]RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Info())
	}
	return out
}

// Leaderboard ranks every connected human across all rooms by kills
// descending, deaths ascending on ties.
func (m *Manager) Leaderboard(limit int) []LeaderboardRow {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	rows := make([]LeaderboardRow, 0)
	for _, r := range rooms {
		r.mu.Lock()
		for _, p := range r.players {
			rows = append(rows, LeaderboardRow{
				PlayerID: p.ID,
				Name:     p.Name,
				Rank:     p.Rank(),
				RoomID:   r.ID,
				RoomName: r.Name,
				Kills:    p.Kills,
				Deaths:   p.Deaths,
				MatchXP:  p.MatchXP,
			})
		}
		r.mu.Unlock()
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Kills != rows[j].Kills {
			return rows[i].Kills > rows[j].Kills
		}
		return rows[i].Deaths < rows[j].Deaths
	})

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

// Stats summarizes the whole process for the /api/stats endpoint.
type Stats struct {
	Rooms   int `json:"rooms"`
	Playing int `json:"playing"`
	Players int `json:"players"`
	Bots    int `json:"bots"`
}

// GetStats returns process-wide counts.
func (m *Manager) GetStats() Stats {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	s := Stats{Rooms: len(rooms)}
	for _, r := range rooms {
		r.mu.Lock()
		if r.State == StatePlaying {
			s.Playing++
		}
		s.Players += len(r.players)
		s.Bots += len(r.bots)
		r.mu.Unlock()
	}
	return s
}

// RefreshGauges pushes current population numbers to the metrics hook.
func (m *Manager) RefreshGauges() {
	s := m.GetStats()
	m.metrics.SetRooms(s.Rooms)
	m.metrics.SetPopulation(s.Players, s.Bots)
}
