package game

import (
	"math"
	"time"
)

// Difficulty selects bot accuracy.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyNormal Difficulty = "normal"
	DifficultyHard   Difficulty = "hard"
	DifficultyInsane Difficulty = "insane"
)

func (d Difficulty) valid() bool {
	switch d {
	case DifficultyEasy, DifficultyNormal, DifficultyHard, DifficultyInsane:
		return true
	}
	return false
}

// botAccuracy is the per-decision hit probability for each tier.
var botAccuracy = map[Difficulty]float64{
	DifficultyEasy:   0.15,
	DifficultyNormal: 0.30,
	DifficultyHard:   0.50,
	DifficultyInsane: 0.70,
}

const (
	botSpeed           = 4.0  // units per second
	botDetectionRange  = 35.0 // fire decisions only consider humans inside this
	botArenaMargin     = 1.0  // bots stay a step inside the walls
	botChaseChance     = 0.6  // odds a retarget roll chases a human
	botRetargetMin     = 1.5  // seconds
	botRetargetMax     = 4.5
	botRefireMin       = 0.8 // seconds
	botRefireMax       = 2.3
	botDamageMin       = 8
	botDamageMax       = 15
)

// resetAI clears the scratch state so a fresh match starts with an
// immediate decision roll.
func (b *Bot) resetAI() {
	b.dir = Vec3{}
	b.retargetIn = 0
	b.fireIn = 0
	b.targetID = ""
}

// advanceBot runs one tick of a bot's decision loop. Caller holds the
// room lock; dt is the measured tick delta in seconds.
func (r *Room) advanceBot(b *Bot, dt float64, now time.Time) {
	if !b.Alive {
		return
	}

	b.retargetIn -= dt
	if b.retargetIn <= 0 {
		r.retargetBot(b)
		b.retargetIn = botRetargetMin + r.rng.Float64()*(botRetargetMax-botRetargetMin)
	}

	// If chasing, keep the heading pointed at the target's latest position.
	if b.targetID != "" {
		if t := r.findActor(b.targetID); t != nil && t.Alive {
			b.dir = headingTo(b.Pos, t.Pos)
		} else {
			b.targetID = ""
		}
	}

	b.Pos.X += b.dir.X * botSpeed * dt
	b.Pos.Z += b.dir.Z * botSpeed * dt
	b.ClampPosition(r.mgr.cfg.ArenaHalfExtent - botArenaMargin)
	if b.dir.X != 0 || b.dir.Z != 0 {
		b.Yaw = math.Atan2(b.dir.X, b.dir.Z)
	}

	b.fireIn -= dt
	if b.fireIn <= 0 {
		r.botFire(b, now)
		b.fireIn = botRefireMin + r.rng.Float64()*(botRefireMax-botRefireMin)
	}
}

// retargetBot rolls a new movement decision: usually chase a living human,
// otherwise wander in a random direction. The chase target is a uniformly
// random living human, not the nearest one; it reads as "nearest enough"
// in play and keeps bots from all piling onto one player.
func (r *Room) retargetBot(b *Bot) {
	humans := r.livingHumans()
	if len(humans) > 0 && r.rng.Float64() < botChaseChance {
		t := humans[r.rng.Intn(len(humans))]
		b.targetID = t.ID
		b.dir = headingTo(b.Pos, t.Pos)
		return
	}

	angle := r.rng.Float64() * 2 * math.Pi
	b.dir = Vec3{X: math.Sin(angle), Z: math.Cos(angle)}
	b.targetID = ""
}

// botFire picks the nearest living human in detection range and rolls the
// difficulty's accuracy. Bot shots skip the rate and range validation the
// player path runs: the fire timer and detection radius already bound
// them. Damage flows through the shared armor/health/kill path.
func (r *Room) botFire(b *Bot, now time.Time) {
	var target *Player
	best := botDetectionRange
	for _, p := range r.livingHumans() {
		if d := b.Pos.DistanceTo(p.Pos); d <= best {
			best = d
			target = p
		}
	}
	if target == nil {
		return
	}

	b.Yaw = math.Atan2(target.Pos.X-b.Pos.X, target.Pos.Z-b.Pos.Z)
	b.LastShot = now

	if r.rng.Float64() >= botAccuracy[r.Difficulty] {
		return
	}

	damage := botDamageMin + r.rng.Intn(botDamageMax-botDamageMin+1)
	r.applyDamage(&target.Actor, &b.Actor, damage, b.Weapon, false)
}

// headingTo returns the unit XZ direction from a toward t.
func headingTo(a, t Vec3) Vec3 {
	dx := t.X - a.X
	dz := t.Z - a.Z
	dist := math.Sqrt(dx*dx + dz*dz)
	if dist == 0 {
		return Vec3{}
	}
	return Vec3{X: dx / dist, Z: dz / dist}
}
