package game

// Envelope is the unit of outbound traffic: every server-to-client message
// is an event name plus a JSON-serializable payload.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Conn is the transport handle the game core holds per player. Sends are
// fire-and-forget: implementations must never block room mutation (the
// websocket client buffers and drops on backpressure).
type Conn interface {
	Send(msg Envelope)
}

// Outbound event names.
const (
	EvConnected       = "connected"
	EvRoomCreated     = "room_created"
	EvRoomJoined      = "room_joined"
	EvPlayerJoined    = "player_joined"
	EvMatchStarted    = "match_started"
	EvGameState       = "game_state"
	EvPlayerDamaged   = "player_damaged"
	EvHitConfirmed    = "hit_confirmed"
	EvPlayerKilled    = "player_killed"
	EvPlayerRespawned = "player_respawned"
	EvPlayerLeft      = "player_left"
	EvHostChanged     = "host_changed"
	EvChatMessage     = "chat_message"
	EvMatchEnded      = "match_ended"
	EvError           = "error"
)

// ErrorCode classifies client-visible failures. Anti-cheat rejections are
// deliberately NOT represented here: those are silent drops.
type ErrorCode string

const (
	ErrNotFound ErrorCode = "NOT_FOUND"
	ErrRoomFull ErrorCode = "ROOM_FULL"
	ErrNotHost  ErrorCode = "NOT_HOST"
	ErrBadState ErrorCode = "BAD_STATE"
	ErrInvalid  ErrorCode = "INVALID"
)

// ErrorData is the payload of an "error" event.
type ErrorData struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ErrorEnvelope builds an error event in one call.
func ErrorEnvelope(code ErrorCode, message string) Envelope {
	return Envelope{Event: EvError, Data: ErrorData{Code: code, Message: message}}
}

// Typed payloads for outbound events.

// ActorState is the per-entity slice of a game_state snapshot. It is also
// reused by player_joined and the REST room detail projection.
type ActorState struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Rank    string  `json:"rank"`
	IsBot   bool    `json:"isBot"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z"`
	Yaw     float64 `json:"yaw"`
	Pitch   float64 `json:"pitch"`
	Health  int     `json:"health"`
	Armor   int     `json:"armor"`
	Alive   bool    `json:"alive"`
	Weapon  string  `json:"weapon"`
	Kills   int     `json:"kills"`
	Deaths  int     `json:"deaths"`
	Streak  int     `json:"streak"`
	MatchXP int     `json:"matchXp"`
}

// GameStateData is the per-tick snapshot broadcast to everyone in a room.
type GameStateData struct {
	RoomID   string       `json:"roomId"`
	TimeLeft int          `json:"timeLeft"` // whole seconds, rounded up
	Players  []ActorState `json:"players"`
}

// DamageData notifies the room of a successful damage application.
type DamageData struct {
	TargetID   string `json:"targetId"`
	AttackerID string `json:"attackerId"`
	Health     int    `json:"health"`
	Armor      int    `json:"armor"`
}

// HitConfirmData is sent privately to the shooter.
type HitConfirmData struct {
	TargetID string `json:"targetId"`
	Damage   int    `json:"damage"`
	Headshot bool   `json:"headshot"`
	Lethal   bool   `json:"lethal"`
}

// KillData announces a kill to the room.
type KillData struct {
	KillerID   string `json:"killerId"`
	KillerName string `json:"killerName"`
	VictimID   string `json:"victimId"`
	VictimName string `json:"victimName"`
	Weapon     string `json:"weapon"`
	Headshot   bool   `json:"headshot"`
	PvP        bool   `json:"pvp"`
	Streak     int    `json:"streak"`
	XPGained   int    `json:"xpGained"`
}

// RespawnData announces an entity coming back to life.
type RespawnData struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	Health int     `json:"health"`
	Armor  int     `json:"armor"`
}

// HostChangedData announces host migration.
type HostChangedData struct {
	RoomID   string `json:"roomId"`
	HostID   string `json:"hostId"`
	HostName string `json:"hostName"`
}

// ChatData relays an in-game chat line.
type ChatData struct {
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Message    string `json:"message"`
}

// ScoreboardRow is one line of the final scoreboard.
type ScoreboardRow struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsBot  bool   `json:"isBot"`
	Kills  int    `json:"kills"`
	Deaths int    `json:"deaths"`
	XP     int    `json:"xp"`
}

// MatchEndedData carries the scoreboard and the tail of the kill feed.
type MatchEndedData struct {
	RoomID     string          `json:"roomId"`
	Scoreboard []ScoreboardRow `json:"scoreboard"`
	KillFeed   []KillFeedEntry `json:"killFeed"`
}
