package types

import (
	"time"

	"bikerace/backend/internal/shared/vecmath"
)

// Gameplay event types.
const (
	EventRaceStart        = "race_start"
	EventPlayerJoin       = "player_join"
	EventPlayerLeave      = "player_leave"
	EventDamage           = "damage"
	EventShieldAbsorbed   = "shield_absorbed"
	EventHazardDamage     = "hazard_damage"
	EventObstacleHit      = "obstacle_hit"
	EventObstacleDestroy  = "obstacle_destroyed"
	EventPowerUpCollected = "powerup_collected"
	EventPowerUpRespawned = "powerup_respawned"
	EventEffectExpired    = "effect_expired"
	EventNitro            = "nitro"
	EventJump             = "jump"
	EventMissileHit       = "missile_hit"
	EventMissileMiss      = "missile_miss"
	EventOilDeployed      = "oil_deployed"
	EventCheckpoint       = "checkpoint"
	EventLap              = "lap"
	EventLapRecord        = "lap_record"
	EventWrecked          = "wrecked"
	EventRespawn          = "respawn"
	EventFinish           = "finish"
)

// RiderInput is the per-tick control input of one rider.
type RiderInput struct {
	PlayerID   string  `json:"player_id"`
	Sequence   uint64  `json:"sequence"`
	Throttle   float64 `json:"throttle"` // -1..1
	Steer      float64 `json:"steer"`    // -1..1
	Boost      bool    `json:"boost"`
	Handbrake  bool    `json:"handbrake"`
	UsePowerUp bool    `json:"use_powerup"`
	ClientMS   int64   `json:"client_ms"`
}

// RiderState is the replicated state of one vehicle.
type RiderState struct {
	PlayerID          string           `json:"player_id"`
	DisplayName       string           `json:"display_name"`
	Archetype         string           `json:"archetype"`
	IsBot             bool             `json:"is_bot"`
	Position          vecmath.Vector2D `json:"position"`
	Velocity          vecmath.Vector2D `json:"velocity"`
	Rotation          float64          `json:"rotation"`
	Altitude          float64          `json:"altitude"`
	IsGrounded        bool             `json:"is_grounded"`
	Terrain           string           `json:"terrain"`
	Health            float64          `json:"health"`
	IsStunned         bool             `json:"is_stunned"`
	StunRemaining     float64          `json:"stun_remaining"`
	IsWrecked         bool             `json:"is_wrecked"`
	Effect            string           `json:"effect,omitempty"`
	EffectRemaining   float64          `json:"effect_remaining,omitempty"`
	NitroFuel         float64          `json:"nitro_fuel"`
	Lap               int              `json:"lap"`
	NextCheckpoint    int              `json:"next_checkpoint"`
	CheckpointsPassed int              `json:"checkpoints_passed"`
	Progress          float64          `json:"progress"`
	Place             int              `json:"place"`
	BestLapMS         int64            `json:"best_lap_ms,omitempty"`
	Finished          bool             `json:"finished"`
	FinishMS          int64            `json:"finish_ms,omitempty"`
	LastInput         RiderInput       `json:"last_input"`
}

// PowerUpState is a pickup lying on the track.
type PowerUpState struct {
	ID        int              `json:"id"`
	Type      string           `json:"type"`
	Position  vecmath.Vector2D `json:"position"`
	Collected bool             `json:"collected"`
}

type ObstacleState struct {
	ID           int              `json:"id"`
	Kind         string           `json:"kind"`
	Position     vecmath.Vector2D `json:"position"`
	Rotation     float64          `json:"rotation"`
	HalfExtents  vecmath.Vector2D `json:"half_extents"`
	Destructible bool             `json:"destructible"`
	Health       float64          `json:"health"`
	Removed      bool             `json:"removed"`
}

type DeformationState struct {
	Position  vecmath.Vector2D `json:"position"`
	Radius    float64          `json:"radius"`
	Intensity float64          `json:"intensity"`
}

// RaceState is replicated to spectators and drivers.
type RaceState struct {
	RaceID           string                `json:"race_id"`
	Track            string                `json:"track"`
	Tick             uint64                `json:"tick"`
	CreatedAt        time.Time             `json:"created_at"`
	ElapsedMS        int64                 `json:"elapsed_ms"`
	Laps             int                   `json:"laps"`
	Weather          string                `json:"weather"`
	WeatherIntensity float64               `json:"weather_intensity"`
	Riders           map[string]RiderState `json:"riders"`
	PowerUps         []PowerUpState        `json:"powerups"`
	Obstacles        []ObstacleState       `json:"obstacles"`
	Deformation      []DeformationState    `json:"deformation"`
	Finished         bool                  `json:"finished"`
	Events           []GameplayEvent       `json:"events"`
}

// GameplayEvent tracks state changes worth UI/audio feedback.
type GameplayEvent struct {
	Type       string  `json:"type"`
	PlayerID   string  `json:"player_id,omitempty"`
	TargetID   string  `json:"target_id,omitempty"`
	ObstacleID int     `json:"obstacle_id,omitempty"`
	PowerUpID  int     `json:"powerup_id,omitempty"`
	PowerUp    string  `json:"powerup,omitempty"`
	Amount     float64 `json:"amount,omitempty"`
	Checkpoint int     `json:"checkpoint,omitempty"`
	Lap        int     `json:"lap,omitempty"`
	OccurredMS int64   `json:"occurred_ms"`
}

// ClientEnvelope is sent from client to server.
type ClientEnvelope struct {
	Type      string      `json:"type"` // hello|input|ping
	Name      string      `json:"name,omitempty"`
	Archetype string      `json:"archetype,omitempty"`
	Input     *RiderInput `json:"input,omitempty"`
}

// ServerEnvelope is sent from server to client.
type ServerEnvelope struct {
	Type     string     `json:"type"` // welcome|state|ack|pong|error
	Tick     uint64     `json:"tick,omitempty"`
	State    *RaceState `json:"state,omitempty"`
	ServerMS int64      `json:"server_ms,omitempty"`
	Message  string     `json:"message,omitempty"`
	AckSeq   uint64     `json:"ack_seq,omitempty"`
}
