package track

import (
	"math"

	"bikerace/backend/internal/shared/vecmath"
)

// Obstacle is a solid object on the track. Destructible obstacles lose health
// when hit and are flagged Removed once it reaches zero; the record itself
// stays in the arena so IDs remain stable.
type Obstacle struct {
	ID           int              `json:"id"`
	Kind         string           `json:"kind"`
	Position     vecmath.Vector2D `json:"position"`
	Rotation     float64          `json:"rotation"`
	HalfExtents  vecmath.Vector2D `json:"half_extents"`
	Destructible bool             `json:"destructible"`
	Health       float64          `json:"health"`
	Removed      bool             `json:"removed"`
}

// Bounds is the axis-aligned box enclosing the (possibly rotated) obstacle.
func (o Obstacle) Bounds() vecmath.Rect {
	c, s := math.Abs(math.Cos(o.Rotation)), math.Abs(math.Sin(o.Rotation))
	hw := c*o.HalfExtents.X + s*o.HalfExtents.Y
	hh := s*o.HalfExtents.X + c*o.HalfExtents.Y
	return vecmath.RectAround(o.Position, hw, hh)
}

// DangerZone hurts any vehicle overlapping it, shields notwithstanding.
type DangerZone struct {
	Bounds          vecmath.Rect `json:"bounds"`
	DamagePerSecond float64      `json:"damage_per_second"`
}

// Spawn is a fixed location where the race places a power-up pickup.
type Spawn struct {
	Position vecmath.Vector2D `json:"position"`
	Type     string           `json:"type"`
}

// CheckCollision reports whether bounds overlaps any obstacle still standing.
func (t *Track) CheckCollision(bounds vecmath.Rect) bool {
	for _, o := range t.obstacles {
		if !o.Removed && o.Bounds().Intersects(bounds) {
			return true
		}
	}
	return false
}

// Obstacles returns a copy of the arena, removed records included.
func (t *Track) Obstacles() []Obstacle {
	out := make([]Obstacle, len(t.obstacles))
	copy(out, t.obstacles)
	return out
}

// Obstacle looks up a record by ID. IDs start at 1.
func (t *Track) Obstacle(id int) (Obstacle, bool) {
	if id < 1 || id > len(t.obstacles) {
		return Obstacle{}, false
	}
	return t.obstacles[id-1], true
}

// DamageObstacle subtracts amount from a destructible obstacle and reports
// whether this call destroyed it. Indestructible, removed or unknown
// obstacles are left untouched.
func (t *Track) DamageObstacle(id int, amount float64) bool {
	if id < 1 || id > len(t.obstacles) || !(amount > 0) {
		return false
	}
	o := &t.obstacles[id-1]
	if !o.Destructible || o.Removed {
		return false
	}
	o.Health = math.Max(0, o.Health-amount)
	if o.Health == 0 {
		o.Removed = true
		return true
	}
	return false
}

func (t *Track) DangerZones() []DangerZone {
	out := make([]DangerZone, len(t.dangerZones))
	copy(out, t.dangerZones)
	return out
}

// DangerAt sums the damage rate of every zone bounds overlaps.
func (t *Track) DangerAt(bounds vecmath.Rect) float64 {
	sum := 0.0
	for _, z := range t.dangerZones {
		if z.Bounds.Intersects(bounds) {
			sum += z.DamagePerSecond
		}
	}
	return sum
}

func (t *Track) PowerUpSpawns() []Spawn {
	out := make([]Spawn, len(t.spawns))
	copy(out, t.spawns)
	return out
}
