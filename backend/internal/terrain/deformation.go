package terrain

import (
	"math"

	"bikerace/backend/internal/shared/vecmath"
)

const (
	// DefaultDecayRate is the intensity lost per second by a rut.
	DefaultDecayRate = 0.1
	// MinIntensity is the level below which a deformation point is removed.
	MinIntensity = 0.01
	MaxIntensity = 1.0
	// MaxFrictionLoss is the friction fraction removed at full influence.
	MaxFrictionLoss = 0.9
	// Depth is the elevation drop at full influence.
	Depth = 0.5
	// mergeFraction of the radius within which a new point reinforces an old one.
	mergeFraction = 0.5
)

// DeformationPoint is a transient local modifier of friction and elevation.
type DeformationPoint struct {
	ID        int              `json:"id"`
	Position  vecmath.Vector2D `json:"position"`
	Radius    float64          `json:"radius"`
	Intensity float64          `json:"intensity"`
	DecayRate float64          `json:"decay_rate"`
}

func (d DeformationPoint) falloff(p vecmath.Vector2D) float64 {
	dist := vecmath.Distance(d.Position, p)
	if dist >= d.Radius {
		return 0
	}
	return 1 - dist/d.Radius
}

// Field is an arena of deformation points. IDs are stable for the lifetime
// of a point; removal keeps the relative order of the survivors.
type Field struct {
	points []DeformationPoint
	nextID int
}

func NewField() *Field {
	return &Field{}
}

// Apply adds a deformation that decays at DefaultDecayRate.
func (f *Field) Apply(pos vecmath.Vector2D, radius, intensity float64) int {
	return f.add(pos, radius, intensity, DefaultDecayRate)
}

// ApplyFor adds a deformation that fades out completely over lifetime seconds.
func (f *Field) ApplyFor(pos vecmath.Vector2D, radius, intensity, lifetime float64) int {
	if !(lifetime > 0) {
		return f.Apply(pos, radius, intensity)
	}
	return f.add(pos, radius, intensity, math.Min(intensity, MaxIntensity)/lifetime)
}

// add returns the ID of the created or reinforced point, or -1 when the
// request is degenerate.
func (f *Field) add(pos vecmath.Vector2D, radius, intensity, decay float64) int {
	if !pos.IsFinite() || !(radius > 0) || !(intensity > 0) || math.IsInf(radius, 0) {
		return -1
	}
	intensity = math.Min(intensity, MaxIntensity)
	for i := range f.points {
		p := &f.points[i]
		if p.DecayRate != decay {
			continue
		}
		if vecmath.Distance(p.Position, pos) <= math.Min(p.Radius, radius)*mergeFraction {
			p.Intensity = math.Min(MaxIntensity, p.Intensity+intensity)
			p.Radius = math.Max(p.Radius, radius)
			return p.ID
		}
	}
	id := f.nextID
	f.nextID++
	f.points = append(f.points, DeformationPoint{
		ID:        id,
		Position:  pos,
		Radius:    radius,
		Intensity: intensity,
		DecayRate: decay,
	})
	return id
}

// Update decays every point and drops the ones that faded out.
func (f *Field) Update(dt float64) {
	if !(dt > 0) {
		return
	}
	kept := f.points[:0]
	for _, p := range f.points {
		p.Intensity -= p.DecayRate * dt
		if p.Intensity >= MinIntensity {
			kept = append(kept, p)
		}
	}
	f.points = kept
}

// Influence is the summed, distance-weighted intensity at pos, clamped to [0,1].
func (f *Field) Influence(pos vecmath.Vector2D) float64 {
	sum := 0.0
	for _, p := range f.points {
		sum += p.Intensity * p.falloff(pos)
	}
	return math.Min(sum, 1)
}

// FrictionFactor is the multiplier applied to the base friction at pos.
func (f *Field) FrictionFactor(pos vecmath.Vector2D) float64 {
	return 1 - MaxFrictionLoss*f.Influence(pos)
}

// ElevationOffset is the (non-positive) height change at pos.
func (f *Field) ElevationOffset(pos vecmath.Vector2D) float64 {
	return -Depth * f.Influence(pos)
}

func (f *Field) Len() int {
	return len(f.points)
}

// Points returns a copy of the live points.
func (f *Field) Points() []DeformationPoint {
	out := make([]DeformationPoint, len(f.points))
	copy(out, f.points)
	return out
}
