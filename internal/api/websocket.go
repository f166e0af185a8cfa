package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"frag-arena/internal/config"
	"frag-arena/internal/game"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	// sendBufferSize is the per-connection outbound queue. A client that
	// cannot drain snapshots gets frames dropped, never a stalled room.
	sendBufferSize = 64
)

// Hub owns WebSocket admission and the per-connection sessions.
type Hub struct {
	mgr *game.Manager
	cfg config.ServerConfig

	upgrader  websocket.Upgrader
	wsLimiter *WebSocketRateLimiter

	connCount int64 // atomic
}

// NewHub creates the WebSocket hub.
func NewHub(mgr *game.Manager, cfg config.ServerConfig) *Hub {
	h := &Hub{
		mgr:       mgr,
		cfg:       cfg,
		wsLimiter: NewWebSocketRateLimiter(cfg.MaxConnsPerIP),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if IsAllowedOrigin(origin, cfg.AllowAllOrigins, cfg.AllowedOrigins) {
				return true
			}
			log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// ConnectionCount returns the number of live sessions.
func (h *Hub) ConnectionCount() int {
	return int(atomic.LoadInt64(&h.connCount))
}

// session is one client connection. It implements game.Conn: the room layer
// hands it envelopes and the write pump ships them.
type session struct {
	hub  *Hub
	conn *websocket.Conn
	ip   string

	send      chan game.Envelope
	closeOnce sync.Once

	// Owned by the read pump; nil until the client joins a room.
	player *game.Player
	room   *game.Room
}

// Send queues an envelope for delivery. Never blocks: when the buffer is
// full the frame is dropped.
func (s *session) Send(msg game.Envelope) {
	select {
	case s.send <- msg:
	default:
		// Slow client, drop.
	}
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.send)
	})
}

// HandleWebSocket admits one connection with DoS protection and runs its
// pumps until the client goes away.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if int(atomic.LoadInt64(&h.connCount)) >= h.cfg.MaxConnsTotal {
		log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", h.cfg.MaxConnsTotal)
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	if !h.wsLimiter.Allow(ip) {
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip)
		return
	}

	s := &session{
		hub:  h,
		conn: conn,
		ip:   ip,
		send: make(chan game.Envelope, sendBufferSize),
	}

	count := atomic.AddInt64(&h.connCount, 1)
	UpdateWSConnections(int(count))
	log.Printf("📱 Client connected from %s (%d total)", ip, count)

	go s.writePump()

	s.Send(game.Envelope{Event: game.EvConnected, Data: map[string]interface{}{
		"serverTime": time.Now().UnixMilli(),
	}})

	s.readPump()
}

// readPump consumes inbound frames until the connection dies, then tears
// the session down (leaving the room if joined).
func (s *session) readPump() {
	defer func() {
		if s.room != nil && s.player != nil {
			s.room.Leave(s.player.ID)
		}
		s.close()
		s.conn.Close()
		s.hub.wsLimiter.Release(s.ip)

		count := atomic.AddInt64(&s.hub.connCount, -1)
		UpdateWSConnections(int(count))
		log.Printf("📱 Client disconnected (%d remaining)", count)
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Per-connection inbound budget. Over-budget frames are dropped, not
	// disconnected: movement spam should not kill the session.
	limiter := rate.NewLimiter(rate.Limit(s.hub.cfg.MsgsPerSecond), s.hub.cfg.MsgBurst)

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}

		if !limiter.Allow() {
			continue
		}
		IncrementWSMessages()

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.Send(game.ErrorEnvelope(game.ErrInvalid, "malformed message"))
			continue
		}

		s.dispatch(msg)
	}
}

// writePump ships queued envelopes and keeps the connection alive with pings.
func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch routes one client action. Room-scoped actions require a joined
// session; lobby actions require a free one.
func (s *session) dispatch(msg clientMessage) {
	switch msg.Action {
	case "create_room":
		s.handleCreateRoom(msg.Data)
	case "join_room":
		s.handleJoinRoom(msg.Data)
	case "quick_match":
		s.handleQuickMatch(msg.Data)
	case "start_match":
		s.handleStartMatch()
	case "player_update":
		s.handlePlayerUpdate(msg.Data)
	case "shoot":
		s.handleShoot(msg.Data)
	case "rocket_explode":
		s.handleRocketExplode(msg.Data)
	case "game_chat":
		s.handleChat(msg.Data)
	case "leave_room":
		s.handleLeaveRoom()
	default:
		s.Send(game.ErrorEnvelope(game.ErrInvalid, "unknown action: "+msg.Action))
	}
}

func (s *session) handleCreateRoom(data json.RawMessage) {
	if s.room != nil {
		s.Send(game.ErrorEnvelope(game.ErrBadState, "already in a room"))
		return
	}

	var p createRoomPayload
	if err := json.Unmarshal(data, &p); err != nil || p.PlayerName == "" {
		s.Send(game.ErrorEnvelope(game.ErrInvalid, "playerName is required"))
		return
	}

	player := game.NewPlayer(p.PlayerName, p.ProgressionID, p.TotalXP, s, s.hub.mgr.Config().ArenaHalfExtent)
	room, code := s.hub.mgr.CreateRoom(game.RoomOptions{
		Name:       p.RoomName,
		Mode:       game.Mode(p.Mode),
		MaxPlayers: p.MaxPlayers,
		Bots:       p.Bots,
		Difficulty: game.Difficulty(p.Difficulty),
		Duration:   time.Duration(p.Duration * float64(time.Second)),
	}, player)
	if code != "" {
		s.Send(game.ErrorEnvelope(code, "could not create room"))
		return
	}

	s.player = player
	s.room = room
}

func (s *session) handleJoinRoom(data json.RawMessage) {
	if s.room != nil {
		s.Send(game.ErrorEnvelope(game.ErrBadState, "already in a room"))
		return
	}

	var p joinRoomPayload
	if err := json.Unmarshal(data, &p); err != nil || p.PlayerName == "" || p.RoomID == "" {
		s.Send(game.ErrorEnvelope(game.ErrInvalid, "roomId and playerName are required"))
		return
	}

	room := s.hub.mgr.Get(p.RoomID)
	if room == nil {
		s.Send(game.ErrorEnvelope(game.ErrNotFound, "room not found"))
		return
	}

	player := game.NewPlayer(p.PlayerName, p.ProgressionID, p.TotalXP, s, s.hub.mgr.Config().ArenaHalfExtent)
	if code := room.Join(player); code != "" {
		s.Send(game.ErrorEnvelope(code, "could not join room"))
		return
	}

	s.player = player
	s.room = room
}

func (s *session) handleQuickMatch(data json.RawMessage) {
	if s.room != nil {
		s.Send(game.ErrorEnvelope(game.ErrBadState, "already in a room"))
		return
	}

	var p quickMatchPayload
	if err := json.Unmarshal(data, &p); err != nil || p.PlayerName == "" {
		s.Send(game.ErrorEnvelope(game.ErrInvalid, "playerName is required"))
		return
	}

	player := game.NewPlayer(p.PlayerName, p.ProgressionID, p.TotalXP, s, s.hub.mgr.Config().ArenaHalfExtent)
	room, code := s.hub.mgr.QuickMatch(player)
	if code != "" {
		s.Send(game.ErrorEnvelope(code, "quick match failed"))
		return
	}

	s.player = player
	s.room = room
}

func (s *session) handleStartMatch() {
	if s.room == nil {
		s.Send(game.ErrorEnvelope(game.ErrBadState, "not in a room"))
		return
	}
	if code := s.room.Start(s.player.ID); code != "" {
		s.Send(game.ErrorEnvelope(code, "could not start match"))
	}
}

func (s *session) handlePlayerUpdate(data json.RawMessage) {
	if s.room == nil {
		return // movement before joining is just noise
	}

	var p playerUpdatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}

	s.room.UpdatePlayer(s.player.ID, game.Vec3{X: p.X, Y: p.Y, Z: p.Z}, p.Yaw, p.Pitch, p.Weapon)
}

func (s *session) handleShoot(data json.RawMessage) {
	if s.room == nil {
		return
	}

	var p shootPayload
	if err := json.Unmarshal(data, &p); err != nil || p.TargetID == "" {
		return
	}

	s.room.Shoot(s.player.ID, p.TargetID, p.Headshot)
}

func (s *session) handleRocketExplode(data json.RawMessage) {
	if s.room == nil {
		return
	}

	var p rocketExplodePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}

	s.room.Explode(s.player.ID, game.Vec3{X: p.X, Y: p.Y, Z: p.Z})
}

func (s *session) handleChat(data json.RawMessage) {
	if s.room == nil {
		s.Send(game.ErrorEnvelope(game.ErrBadState, "not in a room"))
		return
	}

	var p chatPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Message == "" {
		s.Send(game.ErrorEnvelope(game.ErrInvalid, "message is required"))
		return
	}

	s.room.Chat(s.player.ID, p.Message)
}

func (s *session) handleLeaveRoom() {
	if s.room == nil {
		s.Send(game.ErrorEnvelope(game.ErrBadState, "not in a room"))
		return
	}

	s.room.Leave(s.player.ID)
	s.room = nil
	s.player = nil
}
