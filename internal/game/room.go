package game

import (
	"log"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RoomState is the match lifecycle state. Transitions are monotonic:
// lobby -> playing -> ended, never backwards.
type RoomState string

const (
	StateLobby   RoomState = "lobby"
	StatePlaying RoomState = "playing"
	StateEnded   RoomState = "ended"
)

// Mode selects the match ruleset.
type Mode string

const (
	ModeFFA  Mode = "ffa"
	ModeTeam Mode = "team"
)

const (
	// KillFeedCap bounds the in-room kill feed; oldest entries are evicted.
	KillFeedCap = 50

	// MatchEndFeedTail is how many recent feed entries ship with match_ended.
	MatchEndFeedTail = 20
)

// KillFeedEntry is an immutable record of one kill.
type KillFeedEntry struct {
	KillerID   string    `json:"killerId"`
	KillerName string    `json:"killerName"`
	VictimID   string    `json:"victimId"`
	VictimName string    `json:"victimName"`
	Weapon     string    `json:"weapon"`
	Headshot   bool      `json:"headshot"`
	PvP        bool      `json:"pvp"`
	Time       time.Time `json:"time"`
}

// RoomOptions are the client-supplied parameters for room creation.
// Zero values fall back to manager defaults.
type RoomOptions struct {
	Name       string
	Mode       Mode
	MaxPlayers int
	Bots       int
	Difficulty Difficulty
	Duration   time.Duration
}

// Room is one isolated match instance. All state below the mutex is owned
// exclusively by this room; every handler and the tick serialize on mu.
type Room struct {
	ID        string
	Name      string
	Mode      Mode
	CreatedAt time.Time

	mu         sync.Mutex
	HostID     string
	MaxPlayers int
	Difficulty Difficulty
	Duration   time.Duration
	State      RoomState
	TimeLeft   float64 // seconds, fractional
	StartedAt  time.Time

	players map[string]*Player
	bots    []*Bot
	feed    []KillFeedEntry

	stop     chan struct{}
	lastTick time.Time
	rng      *rand.Rand
	mgr      *Manager
}

func newRoom(mgr *Manager, opts RoomOptions) *Room {
	if opts.Name == "" {
		opts.Name = "Arena " + uuid.NewString()[:8]
	}
	if opts.Mode != ModeTeam {
		opts.Mode = ModeFFA
	}
	if opts.MaxPlayers <= 0 || opts.MaxPlayers > mgr.cfg.MaxRoomPlayers {
		opts.MaxPlayers = mgr.cfg.MaxRoomPlayers
	}
	if opts.Duration <= 0 {
		opts.Duration = mgr.cfg.DefaultDuration
	}
	if !opts.Difficulty.valid() {
		opts.Difficulty = DifficultyNormal
	}

	r := &Room{
		ID:         uuid.New().String(),
		Name:       opts.Name,
		Mode:       opts.Mode,
		CreatedAt:  time.Now(),
		MaxPlayers: opts.MaxPlayers,
		Difficulty: opts.Difficulty,
		Duration:   opts.Duration,
		State:      StateLobby,
		TimeLeft:   opts.Duration.Seconds(),
		players:    make(map[string]*Player),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		mgr:        mgr,
	}

	for i := 0; i < opts.Bots; i++ {
		r.bots = append(r.bots, NewBot(i, r.rng, mgr.cfg.ArenaHalfExtent))
	}

	return r
}

// Join adds a human to the room. The first human becomes host. Returns a
// non-empty error code and mutates nothing on rejection.
func (r *Room) Join(p *Player) ErrorCode {
	r.mu.Lock()
	code := r.joinLocked(p)
	r.mu.Unlock()

	if code == "" {
		r.mgr.RefreshGauges()
	}
	return code
}

func (r *Room) joinLocked(p *Player) ErrorCode {
	if r.State == StateEnded {
		return ErrBadState
	}
	if len(r.players) >= r.MaxPlayers {
		return ErrRoomFull
	}

	r.players[p.ID] = p
	if r.HostID == "" {
		r.HostID = p.ID
	}

	r.broadcastExcept(p.ID, Envelope{Event: EvPlayerJoined, Data: p.State()})
	p.Send(Envelope{Event: EvRoomJoined, Data: r.detailLocked()})

	r.mgr.events.EmitSimple(EventTypeJoin, r.ID, p.ID, JoinPayload{
		PlayerID: p.ID, PlayerName: p.Name,
	})
	log.Printf("room %s: %s joined (%d/%d)", r.ID, p.Name, len(r.players), r.MaxPlayers)
	return ""
}

// JoinQuick is Join plus the quick-match auto-start rule: the placement
// that brings a lobby to two or more humans starts the match.
func (r *Room) JoinQuick(p *Player) ErrorCode {
	if code := r.Join(p); code != "" {
		return code
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.State == StateLobby && len(r.players) >= 2 {
		r.startMatchLocked()
	}
	return ""
}

// Start begins the match. Only the host may start, and only from the lobby.
func (r *Room) Start(requesterID string) ErrorCode {
	r.mu.Lock()
	defer r.mu.Unlock()

	if requesterID != r.HostID {
		return ErrNotHost
	}
	if r.State != StateLobby {
		return ErrBadState
	}

	r.startMatchLocked()
	return ""
}

// startMatchLocked performs the lobby -> playing transition: fresh combat
// state and spawn points for everyone, cleared counters and feed, full
// clock, tick loop started.
func (r *Room) startMatchLocked() {
	half := r.mgr.cfg.ArenaHalfExtent
	for _, p := range r.players {
		p.ResetMatch()
		p.ResetCombat(randomSpawn(half, PlayerEyeHeight))
	}
	for _, b := range r.bots {
		b.ResetMatch()
		b.ResetCombat(randomBotSpawn(r.rng, half))
		b.resetAI()
	}

	r.feed = r.feed[:0]
	r.TimeLeft = r.Duration.Seconds()
	r.State = StatePlaying
	r.StartedAt = time.Now()
	r.lastTick = r.StartedAt
	r.stop = make(chan struct{})

	go r.run()

	r.broadcast(Envelope{Event: EvMatchStarted, Data: r.snapshotLocked()})
	r.mgr.events.EmitSimple(EventTypeMatchStart, r.ID, "", MatchPayload{
		RoomID: r.ID, Players: len(r.players), Bots: len(r.bots),
	})
	log.Printf("room %s: match started (%d players, %d bots, %.0fs)",
		r.ID, len(r.players), len(r.bots), r.TimeLeft)
}

// run is the per-room tick loop. It exits when the match ends or the room
// is torn down; both paths are synchronous with the transition.
func (r *Room) run() {
	interval := time.Second / time.Duration(r.mgr.cfg.TickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !r.tick() {
				return
			}
		case <-r.stop:
			return
		}
	}
}

// tick advances one frame: clock, bots, snapshot broadcast. Returns false
// once the room leaves the playing state so the loop can exit.
func (r *Room) tick() bool {
	start := time.Now()
	r.mu.Lock()
	defer func() {
		r.mu.Unlock()
		r.mgr.metrics.ObserveTick(time.Since(start).Seconds())
	}()

	if r.State != StatePlaying {
		return false
	}

	now := time.Now()
	dt := now.Sub(r.lastTick).Seconds()
	r.lastTick = now

	r.TimeLeft -= dt
	if r.TimeLeft <= 0 {
		r.TimeLeft = 0
		r.endMatchLocked()
		return false
	}

	for _, b := range r.bots {
		r.advanceBot(b, dt, now)
	}

	r.broadcast(Envelope{Event: EvGameState, Data: r.snapshotLocked()})
	return true
}

// endMatchLocked performs the playing -> ended transition exactly once:
// scoreboard publication and scheduled deletion.
func (r *Room) endMatchLocked() {
	r.State = StateEnded

	rows := make([]ScoreboardRow, 0, len(r.players)+len(r.bots))
	for _, a := range r.actors() {
		rows = append(rows, ScoreboardRow{
			ID: a.ID, Name: a.Name, IsBot: a.IsBot,
			Kills: a.Kills, Deaths: a.Deaths, XP: a.MatchXP,
		})
	}
	// Kills descending, ties left stable.
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Kills > rows[j].Kills })

	tail := r.feed
	if len(tail) > MatchEndFeedTail {
		tail = tail[len(tail)-MatchEndFeedTail:]
	}
	feed := append([]KillFeedEntry(nil), tail...)

	r.broadcast(Envelope{Event: EvMatchEnded, Data: MatchEndedData{
		RoomID:     r.ID,
		Scoreboard: rows,
		KillFeed:   feed,
	}})

	r.mgr.events.EmitSimple(EventTypeMatchEnd, r.ID, "", MatchPayload{
		RoomID: r.ID, Players: len(r.players), Bots: len(r.bots),
	})
	log.Printf("room %s: match ended", r.ID)

	grace := r.mgr.cfg.CleanupGrace
	if len(r.players) == 0 {
		grace = 0
	}
	roomID := r.ID
	mgr := r.mgr
	time.AfterFunc(grace, func() { mgr.cleanupRoom(roomID, false) })
}

// Leave removes a human from the room, migrating the host role or tearing
// the room down when the last human departs.
func (r *Room) Leave(playerID string) {
	r.mu.Lock()
	removed := r.leaveLocked(playerID)
	r.mu.Unlock()

	if removed {
		r.mgr.RefreshGauges()
	}
}

func (r *Room) leaveLocked(playerID string) bool {
	p, ok := r.players[playerID]
	if !ok {
		return false
	}
	delete(r.players, playerID)

	r.broadcast(Envelope{Event: EvPlayerLeft, Data: map[string]string{
		"id": p.ID, "name": p.Name,
	}})
	r.mgr.events.EmitSimple(EventTypeLeave, r.ID, p.ID, JoinPayload{
		PlayerID: p.ID, PlayerName: p.Name,
	})

	if len(r.players) == 0 {
		// Last human out: stop the loop and delete immediately,
		// whatever state the match is in.
		r.stopTickLocked()
		roomID := r.ID
		mgr := r.mgr
		time.AfterFunc(0, func() { mgr.cleanupRoom(roomID, true) })
		return true
	}

	if playerID == r.HostID {
		for _, next := range r.players {
			r.HostID = next.ID
			r.broadcast(Envelope{Event: EvHostChanged, Data: HostChangedData{
				RoomID: r.ID, HostID: next.ID, HostName: next.Name,
			}})
			log.Printf("room %s: host migrated to %s", r.ID, next.Name)
			break
		}
	}
	return true
}

// stopTickLocked halts the tick loop if it is running. Safe to call twice.
func (r *Room) stopTickLocked() {
	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
}

// UpdatePlayer accepts a periodic position/rotation/loadout report.
// Positions are clamped to the arena; out-of-bounds reports are corrected,
// not surfaced. An empty or unknown weapon key keeps the current weapon.
func (r *Room) UpdatePlayer(playerID string, pos Vec3, yaw, pitch float64, weapon string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[playerID]
	if !ok || !p.Alive || r.State != StatePlaying {
		return
	}

	p.Pos = pos
	p.ClampPosition(r.mgr.cfg.ArenaHalfExtent)
	p.Yaw = yaw
	p.Pitch = pitch
	if _, known := GetWeapon(weapon); known {
		p.Weapon = weapon
	}
	p.LastUpdate = time.Now()
}

// Shoot routes a declared hit through combat resolution.
func (r *Room) Shoot(playerID, targetID string, headshot bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[playerID]
	if !ok {
		return
	}
	r.handleShoot(p, targetID, headshot, time.Now())
}

// Explode applies splash damage from a player's projectile detonation.
func (r *Room) Explode(playerID string, center Vec3) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[playerID]
	if !ok || !p.Alive {
		return
	}
	r.handleSplash(&p.Actor, center)
}

// Chat relays a chat line to everyone in the room.
func (r *Room) Chat(playerID, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[playerID]
	if !ok || message == "" {
		return
	}
	r.broadcast(Envelope{Event: EvChatMessage, Data: ChatData{
		SenderID: p.ID, SenderName: p.Name, Message: message,
	}})
}

// handleKill runs the bookkeeping for a confirmed kill: counters, streaks,
// XP, feed, broadcast, and the delayed respawn.
func (r *Room) handleKill(killer, victim *Actor, weaponID string, headshot bool) {
	victim.Alive = false
	victim.Deaths++
	victim.Streak = 0

	killer.Kills++
	killer.Streak++
	if killer.Streak > killer.BestStreak {
		killer.BestStreak = killer.Streak
	}

	pvp := !victim.IsBot
	xp := killXP(headshot, killer.Streak, pvp)
	killer.MatchXP += xp

	r.feed = append(r.feed, KillFeedEntry{
		KillerID:   killer.ID,
		KillerName: killer.Name,
		VictimID:   victim.ID,
		VictimName: victim.Name,
		Weapon:     weaponID,
		Headshot:   headshot,
		PvP:        pvp,
		Time:       time.Now(),
	})
	if len(r.feed) > KillFeedCap {
		r.feed = r.feed[len(r.feed)-KillFeedCap:]
	}

	r.broadcast(Envelope{Event: EvPlayerKilled, Data: KillData{
		KillerID:   killer.ID,
		KillerName: killer.Name,
		VictimID:   victim.ID,
		VictimName: victim.Name,
		Weapon:     weaponID,
		Headshot:   headshot,
		PvP:        pvp,
		Streak:     killer.Streak,
		XPGained:   xp,
	}})

	r.mgr.events.EmitSimple(EventTypeKill, r.ID, killer.ID, KillPayload{
		KillerID: killer.ID, VictimID: victim.ID,
		Weapon: weaponID, Headshot: headshot, PvP: pvp, XP: xp,
	})
	r.mgr.metrics.IncKill()
	log.Printf("room %s: %s killed %s with %s (streak %d, +%d xp)",
		r.ID, killer.Name, victim.Name, weaponID, killer.Streak, xp)

	// Respawn re-validates by id when it fires; the room or the match may
	// be gone by then.
	roomID := r.ID
	victimID := victim.ID
	mgr := r.mgr
	time.AfterFunc(mgr.cfg.RespawnDelay, func() { mgr.respawnActor(roomID, victimID) })
}

// respawn brings a dead actor back if the room is still playing. Fired
// from a timer, so everything is re-checked under the lock.
func (r *Room) respawn(actorID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.State != StatePlaying {
		return
	}
	a := r.findActor(actorID)
	if a == nil || a.Alive {
		return
	}

	half := r.mgr.cfg.ArenaHalfExtent
	spawn := randomSpawn(half, PlayerEyeHeight)
	if a.IsBot {
		spawn = randomBotSpawn(r.rng, half)
	}
	a.ResetCombat(spawn)

	r.broadcast(Envelope{Event: EvPlayerRespawned, Data: RespawnData{
		ID: a.ID, X: a.Pos.X, Y: a.Pos.Y, Z: a.Pos.Z,
		Health: a.Health, Armor: a.Armor,
	}})
	r.mgr.events.EmitSimple(EventTypeRespawn, r.ID, a.ID, RespawnPayload{
		ActorID: a.ID, X: a.Pos.X, Y: a.Pos.Y, Z: a.Pos.Z,
	})
}

// broadcast sends an envelope to every connected human in the room.
// Caller holds the lock; sends never block.
func (r *Room) broadcast(msg Envelope) {
	for _, p := range r.players {
		p.Send(msg)
	}
	r.mgr.metrics.IncBroadcast()
}

func (r *Room) broadcastExcept(exceptID string, msg Envelope) {
	for id, p := range r.players {
		if id != exceptID {
			p.Send(msg)
		}
	}
}

// actors returns every entity in the room, players first. Caller holds
// the lock; the slice is rebuilt per call and safe to sort.
func (r *Room) actors() []*Actor {
	out := make([]*Actor, 0, len(r.players)+len(r.bots))
	for _, p := range r.players {
		out = append(out, &p.Actor)
	}
	for _, b := range r.bots {
		out = append(out, &b.Actor)
	}
	return out
}

func (r *Room) findActor(id string) *Actor {
	if p, ok := r.players[id]; ok {
		return &p.Actor
	}
	for _, b := range r.bots {
		if b.ID == id {
			return &b.Actor
		}
	}
	return nil
}

// snapshotLocked builds the full game_state payload. Display time is
// rounded up so the clock never shows 0 while the match is live.
func (r *Room) snapshotLocked() GameStateData {
	states := make([]ActorState, 0, len(r.players)+len(r.bots))
	for _, a := range r.actors() {
		states = append(states, a.State())
	}
	return GameStateData{
		RoomID:   r.ID,
		TimeLeft: int(math.Ceil(r.TimeLeft)),
		Players:  states,
	}
}

// livingHumans returns the connected, alive humans. Caller holds the lock.
func (r *Room) livingHumans() []*Player {
	out := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		if p.Alive {
			out = append(out, p)
		}
	}
	return out
}

func (r *Room) rejectShot(reason string) {
	r.mgr.metrics.IncShotRejected(reason)
}
