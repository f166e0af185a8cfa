package game

import (
	"math"
	"time"
)

const (
	// MinShotInterval is the per-shooter floor between accepted shots.
	// Faster fire is silently dropped to stop fire-rate cheating.
	MinShotInterval = 50 * time.Millisecond

	// RangeTolerance widens weapon range to absorb client/server drift.
	RangeTolerance = 1.2

	// ArmorAbsorb is the fraction of incoming damage armor soaks up.
	ArmorAbsorb = 0.6
)

// computeDamage applies headshot multiplication and linear falloff, then
// rounds to the nearest whole point. No reduction below half range, 50%
// reduction at or beyond full range.
func computeDamage(w Weapon, dist float64, headshot bool) int {
	dmg := float64(w.Damage)
	if headshot {
		dmg *= w.HeadshotMult
	}

	half := w.Range / 2
	if dist > half {
		t := (dist - half) / half
		if t > 1 {
			t = 1
		}
		dmg *= 1 - 0.5*t
	}

	return int(math.Round(dmg))
}

// splitDamage divides incoming damage between armor and health. Armor
// absorbs 60%, rounded, capped at whatever armor is actually left.
func splitDamage(damage, armor int) (absorbed, toHealth int) {
	absorbed = int(math.Round(float64(damage) * ArmorAbsorb))
	if absorbed > armor {
		absorbed = armor
	}
	return absorbed, damage - absorbed
}

// splashDamageAt returns the splash damage at distance d from the
// explosion center: full at the center, linearly decaying, zero at or
// beyond the radius.
func splashDamageAt(w Weapon, d float64) int {
	if w.SplashRadius <= 0 || d >= w.SplashRadius {
		return 0
	}
	return int(math.Round(float64(w.SplashDamage) * (1 - d/w.SplashRadius)))
}

// killXP computes the XP award for a kill: base 25, +10 headshot, streak
// bonus (+20 at streak>=5, else +10 at streak>=3, not cumulative), all
// doubled for a human victim. Streak is the killer's streak AFTER the kill.
func killXP(headshot bool, streak int, pvp bool) int {
	xp := 25
	if headshot {
		xp += 10
	}
	switch {
	case streak >= 5:
		xp += 20
	case streak >= 3:
		xp += 10
	}
	if pvp {
		xp *= 2
	}
	return xp
}

// handleShoot validates and applies a declared hit. Precondition failures
// that smell like cheating (rate, range) are silently dropped; the rest
// are just dropped too; a missed shot is not an error. Caller holds the
// room lock.
func (r *Room) handleShoot(shooter *Player, targetID string, headshot bool, now time.Time) {
	if r.State != StatePlaying || !shooter.Alive {
		return
	}

	weapon, ok := GetWeapon(shooter.Weapon)
	if !ok {
		return
	}

	if !shooter.LastShot.IsZero() && now.Sub(shooter.LastShot) < MinShotInterval {
		r.rejectShot("rate")
		return
	}

	target := r.findActor(targetID)
	if target == nil || !target.Alive || target == &shooter.Actor {
		return
	}

	dist := shooter.Pos.DistanceTo(target.Pos)
	if dist > weapon.Range*RangeTolerance {
		r.rejectShot("range")
		return
	}

	shooter.LastShot = now

	damage := computeDamage(weapon, dist, headshot)
	r.applyDamage(target, &shooter.Actor, damage, weapon.ID, headshot)
}

// handleSplash applies area damage around an explosion center. Splash is a
// secondary effect of an already-validated projectile: no rate or range
// checks, but it still flows through the armor/health/kill path. The
// source never damages itself. Caller holds the room lock.
func (r *Room) handleSplash(source *Actor, center Vec3) {
	if r.State != StatePlaying {
		return
	}

	weapon, ok := GetWeapon(source.Weapon)
	if !ok || weapon.SplashRadius <= 0 {
		return
	}

	for _, target := range r.actors() {
		if target == source || !target.Alive {
			continue
		}
		dmg := splashDamageAt(weapon, center.DistanceTo(target.Pos))
		if dmg > 0 {
			r.applyDamage(target, source, dmg, weapon.ID, false)
		}
	}
}

// applyDamage runs the armor/health split, broadcasts the result, and
// triggers kill handling when health hits zero. Caller holds the room lock.
func (r *Room) applyDamage(target, attacker *Actor, damage int, weaponID string, headshot bool) {
	if damage <= 0 || !target.Alive {
		return
	}

	absorbed, toHealth := splitDamage(damage, target.Armor)
	target.Armor -= absorbed
	target.Health -= toHealth
	if target.Health < 0 {
		target.Health = 0
	}

	lethal := target.Health == 0

	r.broadcast(Envelope{Event: EvPlayerDamaged, Data: DamageData{
		TargetID:   target.ID,
		AttackerID: attacker.ID,
		Health:     target.Health,
		Armor:      target.Armor,
	}})

	// Private confirmation for human shooters.
	if p := r.players[attacker.ID]; p != nil {
		p.Send(Envelope{Event: EvHitConfirmed, Data: HitConfirmData{
			TargetID: target.ID,
			Damage:   damage,
			Headshot: headshot,
			Lethal:   lethal,
		}})
	}

	r.mgr.events.EmitSimple(EventTypeDamage, r.ID, attacker.ID, DamagePayload{
		AttackerID: attacker.ID,
		VictimID:   target.ID,
		Damage:     damage,
		VictimHP:   target.Health,
		WeaponID:   weaponID,
	})

	if lethal {
		r.handleKill(attacker, target, weaponID, headshot)
	}
}
