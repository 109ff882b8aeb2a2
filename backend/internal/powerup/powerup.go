package powerup

import (
	"fmt"
	"strings"
	"sync/atomic"

	"bikerace/backend/internal/shared/vecmath"
)

// Type identifies a power-up and the effect it grants.
type Type int

const (
	NitroBoost Type = iota
	Shield
	SpeedBurst
	JumpBoost
	Missile
	OilSlick
)

const (
	NitroBoostDuration = 3.0
	ShieldDuration     = 5.0
	SpeedBurstDuration = 2.0
	// HoldDuration is how long a held item stays available before it is lost.
	HoldDuration = 10.0

	JumpBoostPower = 15.0

	OilSlickDuration  = 4.0
	OilSlickRadius    = 2.5
	OilSlickIntensity = 0.9

	MissileDamage = 25.0
	MissileStun   = 1.5
	MissileRange  = 40.0

	// HalfSize is the half extent of a pickup's collision box.
	HalfSize = 0.75
	// RespawnDelay is how long a collected pickup stays gone.
	RespawnDelay = 8.0
)

var typeNames = [...]string{
	NitroBoost: "nitro_boost",
	Shield:     "shield",
	SpeedBurst: "speed_burst",
	JumpBoost:  "jump_boost",
	Missile:    "missile",
	OilSlick:   "oil_slick",
}

func (t Type) Valid() bool {
	return t >= NitroBoost && t <= OilSlick
}

func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("powerup(%d)", int(t))
	}
	return typeNames[t]
}

// Held reports whether the effect waits for an explicit use rather than
// acting as soon as it is picked up.
func (t Type) Held() bool {
	switch t {
	case JumpBoost, Missile, OilSlick:
		return true
	}
	return false
}

// Duration is the effect lifetime once applied to a vehicle.
func (t Type) Duration() float64 {
	switch t {
	case NitroBoost:
		return NitroBoostDuration
	case Shield:
		return ShieldDuration
	case SpeedBurst:
		return SpeedBurstDuration
	case JumpBoost, Missile, OilSlick:
		return HoldDuration
	}
	return 0
}

// ParseType accepts names like "NITRO_BOOST", "nitro-boost" or "shield".
func ParseType(s string) (Type, error) {
	s = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for i, n := range typeNames {
		if n == s {
			return Type(i), nil
		}
	}
	return NitroBoost, fmt.Errorf("unknown power-up %q", s)
}

// All lists every power-up type in declaration order.
func All() []Type {
	return []Type{NitroBoost, Shield, SpeedBurst, JumpBoost, Missile, OilSlick}
}

// PowerUp is a pickup lying on the track.
type PowerUp struct {
	ID       int
	Type     Type
	Position vecmath.Vector2D

	collected atomic.Bool
	respawnIn float64
}

func New(id int, t Type, pos vecmath.Vector2D) *PowerUp {
	return &PowerUp{ID: id, Type: t, Position: pos}
}

// Collect marks the pickup as taken. It returns true only for the call that
// actually collected it; later calls leave the state unchanged.
func (p *PowerUp) Collect() bool {
	if !p.collected.CompareAndSwap(false, true) {
		return false
	}
	p.respawnIn = RespawnDelay
	return true
}

func (p *PowerUp) IsCollected() bool {
	return p.collected.Load()
}

// CollisionBox is the pickup's bounds in track space.
func (p *PowerUp) CollisionBox() vecmath.Rect {
	return vecmath.RectAround(p.Position, HalfSize, HalfSize)
}

// Update counts down the respawn timer. It returns true on the tick the
// pickup becomes available again.
func (p *PowerUp) Update(dt float64) bool {
	if !p.collected.Load() || !(dt > 0) {
		return false
	}
	p.respawnIn -= dt
	if p.respawnIn > 0 {
		return false
	}
	p.respawnIn = 0
	p.collected.Store(false)
	return true
}
