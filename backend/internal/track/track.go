// Package track models the drivable surface of a race: terrain segments,
// checkpoints, start grid, obstacles, hazards and transient deformation.
//
// The physics step only reads from a Track while vehicles are being
// resolved. Mutations (deformation, obstacle damage, weather) are made by the
// race between ticks or after the collision barrier.
package track

import (
	"math"
	"sort"

	"github.com/peterstace/simplefeatures/geom"

	"bikerace/backend/internal/shared/vecmath"
	"bikerace/backend/internal/terrain"
)

const (
	// normalStep is the sampling distance used to differentiate elevation.
	normalStep = 0.25
	// StaggerSpacing separates extra grid slots behind the last configured one.
	StaggerSpacing = 8.0
)

// Segment is one polygon of drivable surface.
type Segment struct {
	Points    []vecmath.Vector2D
	Terrain   terrain.Type
	Friction  float64
	Elevation float64
	// Gradient is the elevation change per unit distance in x and y,
	// measured from the segment centroid.
	Gradient vecmath.Vector2D

	centroid vecmath.Vector2D
	poly     geom.Polygon
}

type Track struct {
	name     string
	segments []Segment

	centerline []vecmath.Vector2D
	cumulative []float64
	length     float64

	checkpoints  []vecmath.Rect
	starts       []vecmath.Vector2D
	startHeading float64

	obstacles   []Obstacle
	spawns      []Spawn
	dangerZones []DangerZone

	deformation      *terrain.Field
	weather          terrain.Weather
	weatherIntensity float64

	records []LapRecord
}

func (t *Track) Name() string { return t.name }

// Segments returns the surface polygons in lookup order.
func (t *Track) Segments() []Segment {
	out := make([]Segment, len(t.segments))
	copy(out, t.segments)
	return out
}

func pointGeom(p vecmath.Vector2D) geom.Geometry {
	return geom.NewPoint(geom.Coordinates{XY: geom.XY{X: p.X, Y: p.Y}, Type: geom.DimXY}).AsGeometry()
}

// segmentAt returns the first segment containing p, or the nearest one when p
// is off the track. Non-finite positions resolve to the first segment.
func (t *Track) segmentAt(p vecmath.Vector2D) *Segment {
	if !p.IsFinite() {
		return &t.segments[0]
	}
	pt := pointGeom(p)
	for i := range t.segments {
		if geom.Intersects(t.segments[i].poly.AsGeometry(), pt) {
			return &t.segments[i]
		}
	}
	best, bestDist := 0, math.Inf(1)
	for i := range t.segments {
		d, ok := geom.Distance(t.segments[i].poly.AsGeometry(), pt)
		if ok && d < bestDist {
			best, bestDist = i, d
		}
	}
	return &t.segments[best]
}

func (t *Track) GetTerrainAt(p vecmath.Vector2D) terrain.Type {
	return t.segmentAt(p).Terrain
}

// GetFrictionAt is the segment friction scaled by the weather and by any
// deformation covering p.
func (t *Track) GetFrictionAt(p vecmath.Vector2D) float64 {
	f := t.segmentAt(p).Friction
	f *= t.weather.FrictionMultiplier(t.weatherIntensity)
	if p.IsFinite() {
		f *= t.deformation.FrictionFactor(p)
	}
	return f
}

func (t *Track) GetElevationAt(p vecmath.Vector2D) float64 {
	if !p.IsFinite() {
		return t.segments[0].Elevation
	}
	s := t.segmentAt(p)
	return s.Elevation + s.Gradient.Dot(p.Sub(s.centroid)) + t.deformation.ElevationOffset(p)
}

// GetTrackNormalAt returns the horizontal part of the unit surface normal at
// p. It points downhill and its length is the sine of the surface tilt, so a
// flat surface yields the zero vector.
func (t *Track) GetTrackNormalAt(p vecmath.Vector2D) vecmath.Vector2D {
	if !p.IsFinite() {
		return vecmath.Zero()
	}
	dx := vecmath.New(normalStep, 0)
	dy := vecmath.New(0, normalStep)
	gx := (t.GetElevationAt(p.Add(dx)) - t.GetElevationAt(p.Sub(dx))) / (2 * normalStep)
	gy := (t.GetElevationAt(p.Add(dy)) - t.GetElevationAt(p.Sub(dy))) / (2 * normalStep)
	n := math.Sqrt(gx*gx + gy*gy + 1)
	return vecmath.New(-gx/n, -gy/n)
}

func (t *Track) IsPointInTrack(p vecmath.Vector2D) bool {
	if !p.IsFinite() {
		return false
	}
	pt := pointGeom(p)
	for i := range t.segments {
		if geom.Intersects(t.segments[i].poly.AsGeometry(), pt) {
			return true
		}
	}
	return false
}

// GetNearestTrackPoint returns p itself when it is on the track, otherwise
// the closest point on any segment boundary.
func (t *Track) GetNearestTrackPoint(p vecmath.Vector2D) vecmath.Vector2D {
	if !p.IsFinite() {
		return t.segments[0].centroid
	}
	if t.IsPointInTrack(p) {
		return p
	}
	best, bestDist := p, math.Inf(1)
	for _, s := range t.segments {
		for i := range s.Points {
			a, b := s.Points[i], s.Points[(i+1)%len(s.Points)]
			q, _ := closestOnSegment(p, a, b)
			if d := vecmath.Distance(p, q); d < bestDist {
				best, bestDist = q, d
			}
		}
	}
	return best
}

// closestOnSegment projects p onto ab and returns the point together with
// its parameter in [0,1].
func closestOnSegment(p, a, b vecmath.Vector2D) (vecmath.Vector2D, float64) {
	ab := b.Sub(a)
	l2 := ab.LengthSquared()
	if l2 == 0 {
		return a, 0
	}
	u := p.Sub(a).Dot(ab) / l2
	u = math.Max(0, math.Min(1, u))
	return a.Add(ab.Scale(u)), u
}

// GetProgress maps p to the fraction of the closed centerline travelled from
// its first point, in [0,1).
func (t *Track) GetProgress(p vecmath.Vector2D) float64 {
	if t.length == 0 || !p.IsFinite() {
		return 0
	}
	n := len(t.centerline)
	bestDist, bestAt := math.Inf(1), 0.0
	for i := range n {
		a, b := t.centerline[i], t.centerline[(i+1)%n]
		q, u := closestOnSegment(p, a, b)
		if d := vecmath.Distance(p, q); d < bestDist {
			bestDist = d
			bestAt = t.cumulative[i] + u*vecmath.Distance(a, b)
		}
	}
	progress := bestAt / t.length
	if progress >= 1 {
		return 0
	}
	return math.Max(0, progress)
}

// PointAt is the centerline point at the given fraction of a lap. Values
// outside [0,1) wrap.
func (t *Track) PointAt(progress float64) vecmath.Vector2D {
	p, _ := t.sample(progress)
	return p
}

// HeadingAt is the direction of travel along the centerline at progress.
func (t *Track) HeadingAt(progress float64) float64 {
	_, h := t.sample(progress)
	return h
}

func (t *Track) sample(progress float64) (vecmath.Vector2D, float64) {
	if t.length == 0 || math.IsNaN(progress) || math.IsInf(progress, 0) {
		return t.centerline[0], t.startHeading
	}
	progress -= math.Floor(progress)
	at := progress * t.length
	n := len(t.centerline)
	i := sort.SearchFloat64s(t.cumulative, at)
	if i >= n || t.cumulative[i] > at {
		i--
	}
	i = max(i, 0)
	a, b := t.centerline[i], t.centerline[(i+1)%n]
	seg := vecmath.Distance(a, b)
	if seg == 0 {
		return a, t.startHeading
	}
	return vecmath.Lerp(a, b, (at-t.cumulative[i])/seg), b.Sub(a).Angle()
}

// Length is the closed centerline length.
func (t *Track) Length() float64 { return t.length }

func (t *Track) Centerline() []vecmath.Vector2D {
	out := make([]vecmath.Vector2D, len(t.centerline))
	copy(out, t.centerline)
	return out
}

func (t *Track) CheckpointCount() int { return len(t.checkpoints) }

// Checkpoint returns the region of checkpoint i.
func (t *Track) Checkpoint(i int) (vecmath.Rect, bool) {
	if i < 0 || i >= len(t.checkpoints) {
		return vecmath.Rect{}, false
	}
	return t.checkpoints[i], true
}

// IsCheckpointReached reports whether bounds overlaps checkpoint i. Unknown
// indices are never reached.
func (t *Track) IsCheckpointReached(i int, bounds vecmath.Rect) bool {
	cp, ok := t.Checkpoint(i)
	return ok && cp.Intersects(bounds)
}

// GetStartPosition returns grid slot i. Slots past the configured grid line
// up behind the last one, StaggerSpacing apart.
func (t *Track) GetStartPosition(i int) vecmath.Vector2D {
	if i < 0 {
		i = 0
	}
	if i < len(t.starts) {
		return t.starts[i]
	}
	last := t.starts[len(t.starts)-1]
	back := vecmath.FromAngle(t.startHeading).Scale(-StaggerSpacing * float64(i-len(t.starts)+1))
	return last.Add(back)
}

// StartHeading is the rotation vehicles face on the grid.
func (t *Track) StartHeading() float64 { return t.startHeading }

// ApplyDeformation leaves a rut that fades at the default rate.
func (t *Track) ApplyDeformation(p vecmath.Vector2D, radius, intensity float64) int {
	return t.deformation.Apply(p, radius, intensity)
}

// ApplyDeformationFor leaves a patch that is gone after lifetime seconds.
func (t *Track) ApplyDeformationFor(p vecmath.Vector2D, radius, intensity, lifetime float64) int {
	return t.deformation.ApplyFor(p, radius, intensity, lifetime)
}

func (t *Track) UpdateDeformation(dt float64) {
	t.deformation.Update(dt)
}

func (t *Track) Deformation() []terrain.DeformationPoint {
	return t.deformation.Points()
}

// SetWeather changes the track-wide condition. intensity is clamped to [0,1].
func (t *Track) SetWeather(w terrain.Weather, intensity float64) {
	if !(intensity > 0) {
		intensity = 0
	}
	t.weather = w
	t.weatherIntensity = math.Min(1, intensity)
}

func (t *Track) Weather() (terrain.Weather, float64) {
	return t.weather, t.weatherIntensity
}
