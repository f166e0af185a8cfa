package game

import (
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

const (
	MaxHealth    = 100
	MaxArmor     = 100
	RespawnArmor = 50 // armor granted on (re)spawn

	PlayerEyeHeight = 1.7 // players report eye-level positions
	BotGroundHeight = 0   // bots live on the floor
)

// Vec3 is a point or direction in arena space. Y is vertical; combat and
// movement happen on the XZ plane.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Len returns the euclidean length of v.
func (v Vec3) Len() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// DistanceTo returns the straight-line distance between two points.
func (v Vec3) DistanceTo(o Vec3) float64 { return o.Sub(v).Len() }

// Actor is the combat-relevant state shared by players and bots. All
// mutation happens under the owning room's lock.
type Actor struct {
	ID    string
	Name  string
	IsBot bool

	Health int
	Armor  int
	Alive  bool
	Weapon string

	Pos   Vec3
	Yaw   float64
	Pitch float64

	Kills      int
	Deaths     int
	Streak     int
	BestStreak int

	// TotalXP is lifetime progression provided at join time; MatchXP is
	// earned this match. Rank derives from their sum, nothing stores it.
	TotalXP int
	MatchXP int

	LastShot time.Time
}

// Rank returns the display rank derived from lifetime plus match XP.
func (a *Actor) Rank() string { return RankForXP(a.TotalXP + a.MatchXP) }

// ResetCombat restores full combat state at a spawn point. Used on match
// start and on respawn; match counters are NOT touched here.
func (a *Actor) ResetCombat(spawn Vec3) {
	a.Health = MaxHealth
	a.Armor = RespawnArmor
	a.Alive = true
	a.Pos = spawn
	a.LastShot = time.Time{}
}

// ResetMatch zeroes the per-match counters. Called on match start.
func (a *Actor) ResetMatch() {
	a.Kills = 0
	a.Deaths = 0
	a.Streak = 0
	a.BestStreak = 0
	a.MatchXP = 0
}

// ClampPosition keeps the actor inside the arena. Y is left alone: the
// server does not simulate gravity, it only bounds the plane.
func (a *Actor) ClampPosition(halfExtent float64) {
	a.Pos.X = clamp(a.Pos.X, -halfExtent, halfExtent)
	a.Pos.Z = clamp(a.Pos.Z, -halfExtent, halfExtent)
}

// State projects the actor into its broadcast form.
func (a *Actor) State() ActorState {
	return ActorState{
		ID:      a.ID,
		Name:    a.Name,
		Rank:    a.Rank(),
		IsBot:   a.IsBot,
		X:       a.Pos.X,
		Y:       a.Pos.Y,
		Z:       a.Pos.Z,
		Yaw:     a.Yaw,
		Pitch:   a.Pitch,
		Health:  a.Health,
		Armor:   a.Armor,
		Alive:   a.Alive,
		Weapon:  a.Weapon,
		Kills:   a.Kills,
		Deaths:  a.Deaths,
		Streak:  a.Streak,
		MatchXP: a.MatchXP,
	}
}

// Player is a connected human in a room.
type Player struct {
	Actor

	Conn          Conn
	ProgressionID string // external progression identity, opaque to the core

	JoinedAt   time.Time
	LastUpdate time.Time
}

// NewPlayer creates a player at a random spawn point.
func NewPlayer(name, progressionID string, totalXP int, conn Conn, halfExtent float64) *Player {
	p := &Player{
		Actor: Actor{
			ID:      uuid.New().String(),
			Name:    name,
			Weapon:  DefaultWeapon,
			TotalXP: totalXP,
		},
		Conn:          conn,
		ProgressionID: progressionID,
		JoinedAt:      time.Now(),
	}
	p.ResetCombat(randomSpawn(halfExtent, PlayerEyeHeight))
	return p
}

// Send delivers an envelope to the player's connection, tolerating players
// whose transport has already gone away.
func (p *Player) Send(msg Envelope) {
	if p.Conn != nil {
		p.Conn.Send(msg)
	}
}

// Bot is a synthetic entity: the same combat shape as a player plus the
// scratch state its decision loop needs.
type Bot struct {
	Actor

	dir        Vec3    // unit movement direction on the XZ plane
	retargetIn float64 // seconds until the next direction/target roll
	fireIn     float64 // seconds until the next fire decision
	targetID   string  // current chase target, empty when wandering
}

var botNames = []string{
	"Viper", "Havoc", "Bullet", "Ghost", "Razor", "Titan",
	"Spectre", "Onyx", "Fang", "Blitz", "Echo", "Reaper",
}

// NewBot creates a bot at a random ground-level spawn. Bots carry a random
// bit of lifetime XP so their ranks look lived-in on the scoreboard.
func NewBot(index int, rng *rand.Rand, halfExtent float64) *Bot {
	b := &Bot{
		Actor: Actor{
			ID:      uuid.New().String(),
			Name:    botNames[index%len(botNames)],
			IsBot:   true,
			Weapon:  DefaultWeapon,
			TotalXP: rng.Intn(5000),
		},
	}
	b.ResetCombat(randomBotSpawn(rng, halfExtent))
	return b
}

func randomSpawn(halfExtent, height float64) Vec3 {
	return Vec3{
		X: (rand.Float64()*2 - 1) * (halfExtent - 2),
		Y: height,
		Z: (rand.Float64()*2 - 1) * (halfExtent - 2),
	}
}

func randomBotSpawn(rng *rand.Rand, halfExtent float64) Vec3 {
	return Vec3{
		X: (rng.Float64()*2 - 1) * (halfExtent - 2),
		Y: BotGroundHeight,
		Z: (rng.Float64()*2 - 1) * (halfExtent - 2),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
