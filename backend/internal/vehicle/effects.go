package vehicle

import (
	"math"

	"bikerace/backend/internal/powerup"
	"bikerace/backend/internal/shared/vecmath"
)

// Effect is the single power-up currently held or running on a vehicle.
type Effect struct {
	Type      powerup.Type `json:"type"`
	Remaining float64      `json:"remaining"`
}

// Action is what a UsePowerUp call asks the race to do.
type Action int

const (
	ActionNone Action = iota
	ActionNitro
	ActionJump
	ActionMissile
	ActionOilSlick
)

func (a Action) String() string {
	switch a {
	case ActionNitro:
		return "nitro"
	case ActionJump:
		return "jump"
	case ActionMissile:
		return "missile"
	case ActionOilSlick:
		return "oil_slick"
	}
	return "none"
}

// ActiveEffect returns the current effect, if any.
func (v *Vehicle) ActiveEffect() (Effect, bool) {
	return v.effect, v.hasEffect
}

// ApplyEffect starts t at full duration. Picking up the type already active
// refreshes it; a different type replaces it. Invalid types are ignored.
func (v *Vehicle) ApplyEffect(t powerup.Type) bool {
	if !t.Valid() {
		return false
	}
	v.effect = Effect{Type: t, Remaining: t.Duration()}
	v.hasEffect = true
	v.nitroLatched = false
	v.nitroActive = false
	v.nitroFuel = 0
	if t == powerup.NitroBoost {
		v.nitroFuel = MaxNitro
	}
	v.velocity = v.velocity.ClampLength(v.SpeedCeiling())
	return true
}

// RemoveEffect clears the active effect and restores baseline handling.
func (v *Vehicle) RemoveEffect() {
	v.effect = Effect{}
	v.hasEffect = false
	v.nitroFuel = 0
	v.nitroLatched = false
	v.nitroActive = false
	v.velocity = v.velocity.ClampLength(v.SpeedCeiling())
}

func (v *Vehicle) HasShield() bool {
	return v.hasEffect && v.effect.Type == powerup.Shield
}

// UsePowerUp triggers the active effect. Held items are consumed; nitro is
// latched on until its fuel or time runs out. Passive effects, stunned and
// wrecked vehicles return ActionNone.
func (v *Vehicle) UsePowerUp() Action {
	if !v.hasEffect || !v.controllable() {
		return ActionNone
	}
	switch v.effect.Type {
	case powerup.NitroBoost:
		v.nitroLatched = true
		return ActionNitro
	case powerup.JumpBoost:
		v.RemoveEffect()
		v.grounded = false
		v.verticalVelocity += powerup.JumpBoostPower
		return ActionJump
	case powerup.Missile:
		v.RemoveEffect()
		return ActionMissile
	case powerup.OilSlick:
		v.RemoveEffect()
		return ActionOilSlick
	}
	return ActionNone
}

// TakeDamage applies an impact. A shield absorbs the whole hit and is used
// up. Hits of StunDamageThreshold or more stun the rider, and reaching zero
// health wrecks the vehicle. It returns the health actually lost.
func (v *Vehicle) TakeDamage(amount float64) (applied float64, absorbed bool) {
	if !(amount > 0) || v.wrecked {
		return 0, false
	}
	if v.HasShield() {
		v.RemoveEffect()
		return 0, true
	}
	applied = v.damage(amount)
	if !v.wrecked && amount >= StunDamageThreshold {
		v.Stun(math.Min(amount*StunPerDamage, MaxImpactStun))
	}
	return applied, false
}

// ApplyHazardDamage is environmental damage that ignores shields and does
// not stun.
func (v *Vehicle) ApplyHazardDamage(amount float64) float64 {
	if !(amount > 0) || v.wrecked {
		return 0
	}
	return v.damage(amount)
}

func (v *Vehicle) damage(amount float64) float64 {
	applied := math.Min(amount, v.health)
	v.health -= applied
	if v.health <= 0 {
		v.health = 0
		v.wreck()
	}
	return applied
}

func (v *Vehicle) wreck() {
	v.wrecked = true
	v.velocity = vecmath.Zero()
	v.force = vecmath.Zero()
	v.stunned = false
	v.stunRemaining = 0
	v.RemoveEffect()
}

// Stun ignores input for d seconds. A shorter stun never cuts a longer one.
func (v *Vehicle) Stun(d float64) {
	if !(d > 0) || math.IsInf(d, 0) || v.wrecked {
		return
	}
	v.stunned = true
	v.stunRemaining = math.Max(v.stunRemaining, d)
}

// Respawn restores a wrecked (or any) vehicle at p with full health and a
// short stun. Race progress is kept.
func (v *Vehicle) Respawn(p vecmath.Vector2D, heading float64) {
	v.position = p
	v.rotation = normalizeAngle(heading)
	v.velocity = vecmath.Zero()
	v.force = vecmath.Zero()
	v.grounded = true
	v.verticalVelocity = 0
	v.health = MaxHealth
	v.wrecked = false
	v.RemoveEffect()
	v.Stun(RespawnStun)
}

// PassCheckpoint records checkpoint idx of a total-checkpoint lap. Only the
// next expected index advances the counters. lapDone is true when idx closed
// the lap.
func (v *Vehicle) PassCheckpoint(idx, total int) (advanced, lapDone bool) {
	if total <= 0 || idx != v.nextCheckpoint {
		return false, false
	}
	v.checkpointsPassed++
	v.lastCheckpoint = idx
	v.nextCheckpoint++
	if v.nextCheckpoint == total {
		v.nextCheckpoint = 0
		v.lap++
		return true, true
	}
	return true, false
}

// Lap is the number of completed laps.
func (v *Vehicle) Lap() int { return v.lap }

// NextCheckpoint is the index the vehicle must reach next.
func (v *Vehicle) NextCheckpoint() int { return v.nextCheckpoint }

// LastCheckpoint is the index most recently passed, or -1 before the first.
func (v *Vehicle) LastCheckpoint() int { return v.lastCheckpoint }

func (v *Vehicle) CheckpointsPassed() int { return v.checkpointsPassed }
