// Package vehicle implements the per-rider dynamics: engine and brake forces,
// terrain resistance, grip, airborne motion, and the health, stun and
// power-up state machine.
package vehicle

import (
	"fmt"
	"math"

	"bikerace/backend/internal/powerup"
	"bikerace/backend/internal/shared/vecmath"
	"bikerace/backend/internal/terrain"
)

const (
	Gravity         = 9.81
	DragCoefficient = 0.3

	MaxHealth = 100.0
	MaxNitro  = 100.0

	NitroDrainRate   = 25.0
	StunRecoveryRate = 1.0

	NitroSpeedMultiplier      = 1.5
	NitroForceMultiplier      = 1.5
	SpeedBurstSpeedMultiplier = 1.35

	// StunDamageThreshold is the smallest single hit that stuns.
	StunDamageThreshold = 10.0
	// StunPerDamage converts a stunning hit into seconds of stun.
	StunPerDamage = 0.05
	MaxImpactStun = 2.0
	RespawnStun   = 1.0

	// MaxGroundTilt is the sine of the steepest slope a bike stays planted on.
	MaxGroundTilt   = 0.42
	AirGravityScale = 1.5
	// AirSteerFactor scales the turn rate while airborne.
	AirSteerFactor = 0.25

	// lateralDamping is the rate at which full grip kills sideways sliding.
	lateralDamping     = 8.0
	handbrakeGrip      = 0.5
	handbrakeTurnBoost = 1.35
	handbrakeBrake     = 0.5

	HalfLength = 1.0
	HalfWidth  = 0.4
)

// Surface is what the dynamics step needs to know about the ground.
type Surface interface {
	GetFrictionAt(p vecmath.Vector2D) float64
	GetTerrainAt(p vecmath.Vector2D) terrain.Type
	GetElevationAt(p vecmath.Vector2D) float64
	GetTrackNormalAt(p vecmath.Vector2D) vecmath.Vector2D
}

// Tuning holds the world constants a vehicle integrates with.
type Tuning struct {
	Gravity float64
	Drag    float64
}

func DefaultTuning() Tuning {
	return Tuning{Gravity: Gravity, Drag: DragCoefficient}
}

// Input is the rider's control state. It is latched by HandleInput and read
// on every Update until replaced.
type Input struct {
	Throttle  float64 `json:"throttle"` // -1..1, against the motion it brakes
	Steer     float64 `json:"steer"`    // -1..1, positive turns anticlockwise
	Boost     bool    `json:"boost"`
	Handbrake bool    `json:"handbrake"`
}

type Option func(*Vehicle)

func WithTuning(t Tuning) Option {
	return func(v *Vehicle) { v.tuning = t }
}

// WithPlacement puts the vehicle at p facing heading.
func WithPlacement(p vecmath.Vector2D, heading float64) Option {
	return func(v *Vehicle) {
		v.position = p
		v.rotation = normalizeAngle(heading)
	}
}

type Vehicle struct {
	name      string
	archetype Archetype
	stats     Stats
	tuning    Tuning

	position vecmath.Vector2D
	velocity vecmath.Vector2D
	rotation float64
	force    vecmath.Vector2D
	input    Input

	grounded         bool
	altitude         float64
	verticalVelocity float64
	surface          terrain.Type

	health        float64
	stunned       bool
	stunRemaining float64
	wrecked       bool

	lap               int
	nextCheckpoint    int
	lastCheckpoint    int
	checkpointsPassed int

	effect       Effect
	hasEffect    bool
	nitroFuel    float64
	nitroLatched bool
	nitroActive  bool
}

// New builds a vehicle at rest at the origin. Unknown archetypes fail with
// ErrUnknownArchetype.
func New(name string, a Archetype, opts ...Option) (*Vehicle, error) {
	stats, ok := a.Stats()
	if !ok {
		return nil, fmt.Errorf("vehicle %q: %w: %d", name, ErrUnknownArchetype, int(a))
	}
	v := &Vehicle{
		name:           name,
		archetype:      a,
		stats:          stats,
		tuning:         DefaultTuning(),
		grounded:       true,
		health:         MaxHealth,
		lastCheckpoint: -1,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

func (v *Vehicle) controllable() bool {
	return !v.stunned && !v.wrecked
}

// HandleInput latches the control state, clamping axes to [-1,1].
func (v *Vehicle) HandleInput(in Input) {
	in.Throttle = clampAxis(in.Throttle)
	in.Steer = clampAxis(in.Steer)
	v.input = in
}

// ApplyForce queues a force for the next Update. Non-finite forces are dropped.
func (v *Vehicle) ApplyForce(f vecmath.Vector2D) {
	if !f.IsFinite() {
		return
	}
	v.force = v.force.Add(f)
}

// SpeedCeiling is the current cap on horizontal speed.
func (v *Vehicle) SpeedCeiling() float64 {
	switch {
	case v.nitroActive:
		return v.stats.MaxSpeed * NitroSpeedMultiplier
	case v.hasEffect && v.effect.Type == powerup.SpeedBurst:
		return v.stats.MaxSpeed * SpeedBurstSpeedMultiplier
	}
	return v.stats.MaxSpeed
}

// Update advances the vehicle by dt seconds over s.
func (v *Vehicle) Update(dt float64, s Surface) {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return
	}
	in := v.input
	if !v.controllable() {
		in = Input{}
	}
	v.nitroActive = v.controllable() && v.hasEffect && v.effect.Type == powerup.NitroBoost &&
		v.nitroFuel > 0 && (in.Boost || v.nitroLatched)
	v.updateTimers(dt)
	if v.wrecked {
		v.velocity = vecmath.Zero()
		v.force = vecmath.Zero()
		return
	}

	friction := s.GetFrictionAt(v.position)
	if !(friction >= 0) || math.IsInf(friction, 0) {
		friction = terrain.Asphalt.Friction()
	}
	v.surface = s.GetTerrainAt(v.position)
	mass := v.stats.Mass
	forward := vecmath.FromAngle(v.rotation)
	forwardSpeed := v.velocity.Dot(forward)

	force := v.force
	v.force = vecmath.Zero()
	braking := 0.0
	if v.grounded {
		switch {
		case in.Throttle*forwardSpeed < 0:
			braking = math.Abs(in.Throttle) * v.stats.BrakePower
		case v.nitroActive && in.Throttle >= 0:
			force = force.Add(forward.Scale(v.stats.EnginePower * NitroForceMultiplier))
		default:
			force = force.Add(forward.Scale(in.Throttle * v.stats.EnginePower))
		}
		normal := s.GetTrackNormalAt(v.position)
		if normal.IsFinite() {
			force = force.Add(normal.Scale(mass * v.tuning.Gravity))
		}
	}
	v.velocity = v.velocity.Add(force.Scale(dt / mass))

	// Resistances only ever shorten the velocity vector.
	speed := v.velocity.Length()
	loss := v.tuning.Drag * speed * speed / mass
	if v.grounded {
		resistance := friction * v.tuning.Gravity
		if v.surface.Loose() {
			resistance *= v.stats.LooseResistance
		}
		loss += resistance
		if in.Handbrake {
			braking += handbrakeBrake * v.stats.BrakePower
		}
		loss += braking / mass
	}
	if speed > 0 {
		v.velocity = v.velocity.Scale(math.Max(0, speed-loss*dt) / speed)
		speed = v.velocity.Length()
	}

	if in.Steer != 0 {
		turnScale := 1 - math.Min(speed/v.stats.MaxSpeed, 0.75)
		rate := v.stats.Handling * (0.55 + turnScale)
		if in.Handbrake && v.grounded {
			rate *= handbrakeTurnBoost
		}
		if !v.grounded {
			rate *= AirSteerFactor
		}
		v.rotation = normalizeAngle(v.rotation + in.Steer*rate*dt)
	}

	if v.grounded {
		forward = vecmath.FromAngle(v.rotation)
		right := vecmath.New(-forward.Y, forward.X)
		grip := v.stats.Grip * terrain.GripFactor(friction)
		if in.Handbrake {
			grip *= handbrakeGrip
		}
		lateral := v.velocity.Dot(right) * math.Exp(-lateralDamping*grip*dt)
		v.velocity = forward.Scale(v.velocity.Dot(forward)).Add(right.Scale(lateral))
	}

	v.velocity = v.velocity.ClampLength(v.SpeedCeiling())
	v.position = v.position.Add(v.velocity.Scale(dt))
	v.updateVertical(dt, s)
}

// updateVertical settles the vehicle on the surface at its new position or
// carries it through the air.
func (v *Vehicle) updateVertical(dt float64, s Surface) {
	ground := s.GetElevationAt(v.position)
	if math.IsNaN(ground) || math.IsInf(ground, 0) {
		ground = v.altitude
	}
	normal := s.GetTrackNormalAt(v.position)
	if !normal.IsFinite() {
		normal = vecmath.Zero()
	}

	if v.grounded {
		v.altitude = ground
		v.verticalVelocity = 0
		if normal.Length() <= MaxGroundTilt {
			return
		}
		v.grounded = false
		// normal points downhill, so moving against it is climbing.
		if climb := -v.velocity.Dot(normal); climb > 0 {
			v.verticalVelocity = climb
		}
	}

	v.verticalVelocity -= v.tuning.Gravity * AirGravityScale * dt
	v.altitude += v.verticalVelocity * dt
	if v.altitude <= ground && v.verticalVelocity <= 0 {
		v.altitude = ground
		v.verticalVelocity = 0
		v.grounded = true
	}
}

func (v *Vehicle) updateTimers(dt float64) {
	if v.stunned {
		v.stunRemaining -= StunRecoveryRate * dt
		if v.stunRemaining <= 0 {
			v.stunRemaining = 0
			v.stunned = false
		}
	}
	if !v.hasEffect {
		return
	}
	if v.nitroActive {
		v.nitroFuel = math.Max(0, v.nitroFuel-NitroDrainRate*dt)
	}
	v.effect.Remaining -= dt
	if v.effect.Remaining <= 0 || (v.effect.Type == powerup.NitroBoost && v.nitroFuel == 0) {
		v.RemoveEffect()
	}
}

// Bounds is the axis-aligned box enclosing the rotated vehicle footprint.
func (v *Vehicle) Bounds() vecmath.Rect {
	c, s := math.Abs(math.Cos(v.rotation)), math.Abs(math.Sin(v.rotation))
	return vecmath.RectAround(v.position, c*HalfLength+s*HalfWidth, s*HalfLength+c*HalfWidth)
}

func (v *Vehicle) Name() string               { return v.name }
func (v *Vehicle) Archetype() Archetype       { return v.archetype }
func (v *Vehicle) Stats() Stats               { return v.stats }
func (v *Vehicle) Position() vecmath.Vector2D { return v.position }
func (v *Vehicle) Velocity() vecmath.Vector2D { return v.velocity }
func (v *Vehicle) Speed() float64             { return v.velocity.Length() }
func (v *Vehicle) Rotation() float64          { return v.rotation }
func (v *Vehicle) Input() Input               { return v.input }
func (v *Vehicle) IsGrounded() bool           { return v.grounded }
func (v *Vehicle) Altitude() float64          { return v.altitude }
func (v *Vehicle) VerticalVelocity() float64  { return v.verticalVelocity }

// Terrain is the surface type under the vehicle at its last Update.
func (v *Vehicle) Terrain() terrain.Type { return v.surface }

func (v *Vehicle) Health() float64        { return v.health }
func (v *Vehicle) IsStunned() bool        { return v.stunned }
func (v *Vehicle) StunRemaining() float64 { return v.stunRemaining }
func (v *Vehicle) IsWrecked() bool        { return v.wrecked }
func (v *Vehicle) NitroFuel() float64     { return v.nitroFuel }
func (v *Vehicle) NitroEngaged() bool     { return v.nitroActive }

// SetPosition moves the vehicle without touching its velocity.
func (v *Vehicle) SetPosition(p vecmath.Vector2D) {
	if p.IsFinite() {
		v.position = p
	}
}

// SetVelocity replaces the velocity, capped at the current speed ceiling.
func (v *Vehicle) SetVelocity(vel vecmath.Vector2D) {
	if !vel.IsFinite() {
		return
	}
	v.velocity = vel.ClampLength(v.SpeedCeiling())
}

func (v *Vehicle) SetRotation(r float64) {
	if !math.IsNaN(r) && !math.IsInf(r, 0) {
		v.rotation = normalizeAngle(r)
	}
}

// SetHealth sets health clamped to [0, MaxHealth]. It does not wreck or
// revive the vehicle.
func (v *Vehicle) SetHealth(h float64) {
	if math.IsNaN(h) {
		return
	}
	v.health = math.Max(0, math.Min(MaxHealth, h))
}

func clampAxis(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(-1, math.Min(1, x))
}

// normalizeAngle wraps a to (-pi, pi].
func normalizeAngle(a float64) float64 {
	a = math.Remainder(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
