// Package collision resolves one vehicle's contacts for a tick: obstacles
// first, then power-up pickups, then hazard zones and surface wear.
//
// Resolve only mutates the vehicle it is given and the pickups it collects.
// Track changes are returned as requests in the Outcome so the caller can
// apply them once every vehicle has been resolved.
package collision

import (
	"math"

	"bikerace/backend/internal/powerup"
	"bikerace/backend/internal/shared/types"
	"bikerace/backend/internal/shared/vecmath"
	"bikerace/backend/internal/track"
	"bikerace/backend/internal/vehicle"
)

const (
	Restitution = 0.3
	// DamagePerSpeed converts approach speed into rider damage.
	DamagePerSpeed = 1.5
	// MinDamageSpeed is the slowest impact that hurts.
	MinDamageSpeed = 1.0
	// ObstacleDamagePerSpeed converts approach speed into damage dealt to a
	// destructible obstacle.
	ObstacleDamagePerSpeed = 4.0
	MinObstacleDamage      = 1.0

	impactRutRadius   = 1.5
	impactRutPerSpeed = 0.05
	skidRutRadius     = 0.8
	skidRutPerSecond  = 1.2
	skidRutMinSpeed   = 2.0
)

// ObstacleHit is damage owed to a destructible obstacle.
type ObstacleHit struct {
	ObstacleID int
	Damage     float64
}

// Deformation is a rut or patch to lay on the track.
type Deformation struct {
	Position  vecmath.Vector2D
	Radius    float64
	Intensity float64
	// Lifetime is the time to fade out completely. Zero means the default
	// decay rate.
	Lifetime float64
}

// Outcome collects what one vehicle's pass produced.
type Outcome struct {
	Events       []types.GameplayEvent
	Deformations []Deformation
	ObstacleHits []ObstacleHit
	// Contacts counts obstacles the vehicle was pushed out of.
	Contacts int
}

// Surface is the read-only track view the pass needs.
type Surface interface {
	Obstacles() []track.Obstacle
	DangerAt(bounds vecmath.Rect) float64
}

// Resolve runs the collision pass for vehicle id. nowMS stamps the events.
func Resolve(id string, v *vehicle.Vehicle, s Surface, pickups []*powerup.PowerUp, dt float64, nowMS int64) Outcome {
	var out Outcome
	if v.IsWrecked() {
		return out
	}
	emit := func(ev types.GameplayEvent) {
		ev.PlayerID = id
		ev.OccurredMS = nowMS
		out.Events = append(out.Events, ev)
	}

	for _, o := range s.Obstacles() {
		if o.Removed {
			continue
		}
		resolveObstacle(v, o, &out, emit)
		if v.IsWrecked() {
			emit(types.GameplayEvent{Type: types.EventWrecked, ObstacleID: o.ID})
			return out
		}
	}

	for _, p := range pickups {
		if p.IsCollected() || !v.Bounds().Intersects(p.CollisionBox()) {
			continue
		}
		if !p.Collect() {
			continue
		}
		v.ApplyEffect(p.Type)
		emit(types.GameplayEvent{Type: types.EventPowerUpCollected, PowerUpID: p.ID, PowerUp: p.Type.String()})
	}

	if dps := s.DangerAt(v.Bounds()); dps > 0 && dt > 0 {
		if applied := v.ApplyHazardDamage(dps * dt); applied > 0 {
			emit(types.GameplayEvent{Type: types.EventHazardDamage, Amount: applied})
		}
		if v.IsWrecked() {
			emit(types.GameplayEvent{Type: types.EventWrecked})
			return out
		}
	}

	in := v.Input()
	if v.IsGrounded() && in.Handbrake && v.Terrain().Loose() && v.Speed() > skidRutMinSpeed && dt > 0 {
		out.Deformations = append(out.Deformations, Deformation{
			Position:  v.Position(),
			Radius:    skidRutRadius,
			Intensity: skidRutPerSecond * dt,
		})
	}
	return out
}

func resolveObstacle(v *vehicle.Vehicle, o track.Obstacle, out *Outcome, emit func(types.GameplayEvent)) {
	mtv, ok := v.Bounds().Overlap(o.Bounds())
	if !ok {
		return
	}
	out.Contacts++
	normal := mtv.Normalized()
	v.SetPosition(v.Position().Add(mtv))

	vel := v.Velocity()
	approach := -vel.Dot(normal)
	if approach <= 0 {
		return
	}
	v.SetVelocity(vel.Add(normal.Scale(approach * (1 + Restitution))))

	if o.Destructible {
		dmg := math.Max(MinObstacleDamage, approach*ObstacleDamagePerSpeed)
		out.ObstacleHits = append(out.ObstacleHits, ObstacleHit{ObstacleID: o.ID, Damage: dmg})
		emit(types.GameplayEvent{Type: types.EventObstacleHit, ObstacleID: o.ID, Amount: dmg})
		return
	}
	if approach < MinDamageSpeed {
		return
	}
	out.Deformations = append(out.Deformations, Deformation{
		Position:  v.Position(),
		Radius:    impactRutRadius,
		Intensity: math.Min(1, approach*impactRutPerSpeed),
	})
	applied, absorbed := v.TakeDamage(approach * DamagePerSpeed)
	if absorbed {
		emit(types.GameplayEvent{Type: types.EventShieldAbsorbed, ObstacleID: o.ID, Amount: approach * DamagePerSpeed})
		return
	}
	emit(types.GameplayEvent{Type: types.EventDamage, ObstacleID: o.ID, Amount: applied})
}
