package track

import (
	"math"
	"strings"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"bikerace/backend/internal/powerup"
	"bikerace/backend/internal/shared/vecmath"
	"bikerace/backend/internal/terrain"
)

// ErrInvalidTrack is wrapped by every validation failure returned from New.
var ErrInvalidTrack = errors.New("invalid track")

// Definition is the serialisable description of a track.
type Definition struct {
	Name             string             `mapstructure:"name"`
	Segments         []SegmentDef       `mapstructure:"segments"`
	Centerline       []vecmath.Vector2D `mapstructure:"centerline"`
	Checkpoints      []vecmath.Rect     `mapstructure:"checkpoints"`
	StartPositions   []vecmath.Vector2D `mapstructure:"startPositions"`
	StartHeading     float64            `mapstructure:"startHeading"`
	Obstacles        []ObstacleDef      `mapstructure:"obstacles"`
	PowerUpSpawns    []Spawn            `mapstructure:"powerUpSpawns"`
	DangerZones      []DangerZone       `mapstructure:"dangerZones"`
	Weather          string             `mapstructure:"weather"`
	WeatherIntensity float64            `mapstructure:"weatherIntensity"`
}

type SegmentDef struct {
	Points  []vecmath.Vector2D `mapstructure:"points"`
	Terrain string             `mapstructure:"terrain"`
	// Friction overrides the terrain default when positive.
	Friction  float64          `mapstructure:"friction"`
	Elevation float64          `mapstructure:"elevation"`
	Gradient  vecmath.Vector2D `mapstructure:"gradient"`
}

type ObstacleDef struct {
	Kind         string           `mapstructure:"kind"`
	Position     vecmath.Vector2D `mapstructure:"position"`
	Rotation     float64          `mapstructure:"rotation"`
	HalfExtents  vecmath.Vector2D `mapstructure:"halfExtents"`
	Destructible bool             `mapstructure:"destructible"`
	Health       float64          `mapstructure:"health"`
}

// Load reads a track definition from a JSON, YAML or TOML file.
func Load(path string) (*Track, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "read track file %s", path)
	}
	var def Definition
	if err := v.Unmarshal(&def); err != nil {
		return nil, errors.Wrapf(err, "decode track file %s", path)
	}
	t, err := New(def)
	if err != nil {
		return nil, errors.Wrapf(err, "track file %s", path)
	}
	return t, nil
}

func invalid(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidTrack, format, args...)
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// New validates def and builds a Track.
func New(def Definition) (*Track, error) {
	if len(def.Segments) == 0 {
		return nil, invalid("no segments")
	}
	t := &Track{
		name:         def.Name,
		startHeading: def.StartHeading,
		deformation:  terrain.NewField(),
	}
	for i, sd := range def.Segments {
		s, err := buildSegment(sd)
		if err != nil {
			return nil, errors.Wrapf(err, "segment %d", i)
		}
		t.segments = append(t.segments, s)
	}

	t.centerline = def.Centerline
	if len(t.centerline) == 0 {
		for _, s := range t.segments {
			t.centerline = append(t.centerline, s.centroid)
		}
	}
	for i, p := range t.centerline {
		if !p.IsFinite() {
			return nil, invalid("centerline point %d is not finite", i)
		}
	}
	t.cumulative = make([]float64, len(t.centerline))
	if len(t.centerline) > 1 {
		for i := range t.centerline {
			t.cumulative[i] = t.length
			t.length += vecmath.Distance(t.centerline[i], t.centerline[(i+1)%len(t.centerline)])
		}
	}

	for i, cp := range def.Checkpoints {
		if !cp.Valid() || !finite(cp.MinX, cp.MinY, cp.MaxX, cp.MaxY) {
			return nil, invalid("checkpoint %d has no area", i)
		}
	}
	t.checkpoints = def.Checkpoints

	if !finite(def.StartHeading) {
		return nil, invalid("start heading is not finite")
	}
	t.starts = def.StartPositions
	if len(t.starts) == 0 {
		t.starts = []vecmath.Vector2D{t.centerline[0]}
	}
	for i, p := range t.starts {
		if !p.IsFinite() {
			return nil, invalid("start position %d is not finite", i)
		}
	}

	for i, od := range def.Obstacles {
		if !od.Position.IsFinite() || !finite(od.Rotation) || !(od.HalfExtents.X > 0) || !(od.HalfExtents.Y > 0) {
			return nil, invalid("obstacle %d has bad geometry", i)
		}
		if od.Destructible && !(od.Health > 0) {
			return nil, invalid("destructible obstacle %d needs positive health", i)
		}
		kind := od.Kind
		if kind == "" {
			kind = "barrier"
		}
		t.obstacles = append(t.obstacles, Obstacle{
			ID:           i + 1,
			Kind:         kind,
			Position:     od.Position,
			Rotation:     od.Rotation,
			HalfExtents:  od.HalfExtents,
			Destructible: od.Destructible,
			Health:       od.Health,
		})
	}

	for i, sp := range def.PowerUpSpawns {
		if !sp.Position.IsFinite() {
			return nil, invalid("power-up spawn %d is not finite", i)
		}
		if _, err := powerup.ParseType(sp.Type); err != nil {
			return nil, errors.Wrapf(ErrInvalidTrack, "power-up spawn %d: %v", i, err)
		}
	}
	t.spawns = def.PowerUpSpawns

	for i, z := range def.DangerZones {
		if !z.Bounds.Valid() || !(z.DamagePerSecond >= 0) {
			return nil, invalid("danger zone %d is malformed", i)
		}
	}
	t.dangerZones = def.DangerZones

	w, err := terrain.ParseWeather(def.Weather)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidTrack, "%v", err)
	}
	if !finite(def.WeatherIntensity) {
		return nil, invalid("weather intensity is not finite")
	}
	t.SetWeather(w, def.WeatherIntensity)
	return t, nil
}

func buildSegment(sd SegmentDef) (Segment, error) {
	if len(sd.Points) < 3 {
		return Segment{}, invalid("need at least 3 points, got %d", len(sd.Points))
	}
	ty := terrain.Asphalt
	if strings.TrimSpace(sd.Terrain) != "" {
		var err error
		if ty, err = terrain.Parse(sd.Terrain); err != nil {
			return Segment{}, errors.Wrapf(ErrInvalidTrack, "%v", err)
		}
	}
	friction := sd.Friction
	switch {
	case !finite(friction) || friction < 0:
		return Segment{}, invalid("friction %v out of range", friction)
	case friction == 0:
		friction = ty.Friction()
	}
	if !finite(sd.Elevation) || !sd.Gradient.IsFinite() {
		return Segment{}, invalid("elevation is not finite")
	}

	pts := sd.Points
	if pts[0].Equal(pts[len(pts)-1]) {
		pts = pts[:len(pts)-1]
	}
	if len(pts) < 3 {
		return Segment{}, invalid("ring collapses to %d points", len(pts))
	}
	flat := make([]float64, 0, 2*(len(pts)+1))
	var sum vecmath.Vector2D
	for i, p := range pts {
		if !p.IsFinite() {
			return Segment{}, invalid("point %d is not finite", i)
		}
		flat = append(flat, p.X, p.Y)
		sum = sum.Add(p)
	}
	flat = append(flat, pts[0].X, pts[0].Y)
	ring := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	poly := geom.NewPolygon([]geom.LineString{ring})
	if err := poly.Validate(); err != nil {
		return Segment{}, errors.Wrapf(ErrInvalidTrack, "polygon: %v", err)
	}

	return Segment{
		Points:    pts,
		Terrain:   ty,
		Friction:  friction,
		Elevation: sd.Elevation,
		Gradient:  sd.Gradient,
		centroid:  sum.Scale(1 / float64(len(pts))),
		poly:      poly,
	}, nil
}

func rectSegment(minX, minY, maxX, maxY float64, ty terrain.Type) SegmentDef {
	return SegmentDef{
		Points: []vecmath.Vector2D{
			vecmath.New(minX, minY),
			vecmath.New(maxX, minY),
			vecmath.New(maxX, maxY),
			vecmath.New(minX, maxY),
		},
		Terrain: ty.String(),
	}
}

// DefaultDefinition is a 200x100 rectangular circuit run anticlockwise from
// the start line on the south straight. The east straight climbs 4 units to
// the north straight and the west straight brings the field back down. An ice
// patch sits in the middle of the north straight.
func DefaultDefinition() Definition {
	climb := vecmath.New(0, 0.05)
	east := rectSegment(190, 10, 210, 90, terrain.Dirt)
	east.Elevation, east.Gradient = 2, climb
	west := rectSegment(-10, 10, 10, 90, terrain.Grass)
	west.Elevation, west.Gradient = 2, climb
	ice := rectSegment(80, 90, 120, 110, terrain.Ice)
	ice.Elevation = 4
	north := rectSegment(-10, 90, 210, 110, terrain.Asphalt)
	north.Elevation = 4
	return Definition{
		Name: "oval",
		Segments: []SegmentDef{
			rectSegment(-10, -10, 210, 10, terrain.Asphalt),
			east,
			ice,
			north,
			west,
		},
		Centerline: []vecmath.Vector2D{
			vecmath.New(0, 0), vecmath.New(200, 0), vecmath.New(200, 100), vecmath.New(0, 100),
		},
		Checkpoints: []vecmath.Rect{
			{MinX: 98, MinY: -10, MaxX: 102, MaxY: 10},
			{MinX: 190, MinY: 48, MaxX: 210, MaxY: 52},
			{MinX: 98, MinY: 90, MaxX: 102, MaxY: 110},
			{MinX: -10, MinY: 48, MaxX: 10, MaxY: 52},
			{MinX: 28, MinY: -10, MaxX: 32, MaxY: 10},
		},
		StartPositions: []vecmath.Vector2D{
			vecmath.New(24, -4), vecmath.New(24, 4), vecmath.New(16, -4), vecmath.New(16, 4),
		},
		Obstacles: []ObstacleDef{
			{Kind: "rock", Position: vecmath.New(150, 7), HalfExtents: vecmath.New(1.5, 1.5)},
			{Kind: "crate", Position: vecmath.New(60, -7), HalfExtents: vecmath.New(1, 1), Destructible: true, Health: 30},
		},
		PowerUpSpawns: []Spawn{
			{Position: vecmath.New(80, 0), Type: "nitro_boost"},
			{Position: vecmath.New(140, -4), Type: "speed_burst"},
			{Position: vecmath.New(200, 30), Type: "shield"},
			{Position: vecmath.New(200, 75), Type: "jump_boost"},
			{Position: vecmath.New(140, 100), Type: "missile"},
			{Position: vecmath.New(0, 75), Type: "oil_slick"},
		},
		DangerZones: []DangerZone{
			{Bounds: vecmath.Rect{MinX: -10, MinY: 20, MaxX: -4, MaxY: 40}, DamagePerSecond: 10},
		},
	}
}

// Default builds the built-in circuit.
func Default() *Track {
	t, err := New(DefaultDefinition())
	if err != nil {
		panic(err)
	}
	return t
}
