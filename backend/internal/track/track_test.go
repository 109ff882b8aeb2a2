package track

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikerace/backend/internal/shared/vecmath"
	"bikerace/backend/internal/terrain"
)

func TestTerrainLookupWithNearestFallback(t *testing.T) {
	tr := Default()
	assert.Equal(t, terrain.Asphalt, tr.GetTerrainAt(vecmath.New(100, 0)))
	assert.Equal(t, terrain.Ice, tr.GetTerrainAt(vecmath.New(100, 100)))
	assert.Equal(t, terrain.Dirt, tr.GetTerrainAt(vecmath.New(200, 50)))
	assert.Equal(t, terrain.Grass, tr.GetTerrainAt(vecmath.New(0, 50)))

	// Off the track the closest segment answers.
	assert.Equal(t, terrain.Asphalt, tr.GetTerrainAt(vecmath.New(100, 30)))
	assert.Equal(t, terrain.Dirt, tr.GetTerrainAt(vecmath.New(250, 50)))
	assert.Equal(t, terrain.Asphalt, tr.GetTerrainAt(vecmath.New(math.NaN(), 0)))
}

func TestFrictionCombinesWeatherAndDeformation(t *testing.T) {
	tr := Default()
	p := vecmath.New(100, 0)
	assert.InDelta(t, 0.30, tr.GetFrictionAt(p), 1e-9)
	assert.InDelta(t, 0.05, tr.GetFrictionAt(vecmath.New(100, 100)), 1e-9)

	tr.SetWeather(terrain.Rain, 1)
	assert.InDelta(t, 0.24, tr.GetFrictionAt(p), 1e-9)

	tr.SetWeather(terrain.Clear, 0)
	tr.ApplyDeformation(p, 2, 0.5)
	assert.InDelta(t, 0.30*0.55, tr.GetFrictionAt(p), 1e-9)
	assert.InDelta(t, 0.30, tr.GetFrictionAt(vecmath.New(110, 0)), 1e-9)

	tr.UpdateDeformation(10)
	assert.Empty(t, tr.Deformation())
	assert.InDelta(t, 0.30, tr.GetFrictionAt(p), 1e-9)
}

func TestElevationAndNormalOnSlope(t *testing.T) {
	tr := Default()
	assert.InDelta(t, 2.0, tr.GetElevationAt(vecmath.New(200, 50)), 1e-9)
	assert.InDelta(t, 3.0, tr.GetElevationAt(vecmath.New(200, 70)), 1e-9)
	assert.InDelta(t, 0.0, tr.GetElevationAt(vecmath.New(200, 10)), 1e-9)
	assert.InDelta(t, 4.0, tr.GetElevationAt(vecmath.New(200, 90)), 1e-9)

	n := tr.GetTrackNormalAt(vecmath.New(200, 50))
	assert.InDelta(t, 0, n.X, 1e-9)
	assert.InDelta(t, -0.05/math.Sqrt(1.0025), n.Y, 1e-9)

	flat := tr.GetTrackNormalAt(vecmath.New(100, 0))
	assert.InDelta(t, 0, flat.Length(), 1e-12)
}

func TestProgressFollowsCenterline(t *testing.T) {
	tr := Default()
	require.InDelta(t, 600, tr.Length(), 1e-9)

	points := []vecmath.Vector2D{
		vecmath.New(0, 0),
		vecmath.New(100, 0),
		vecmath.New(200, 50),
		vecmath.New(100, 100),
		vecmath.New(0, 50),
	}
	want := []float64{0, 100.0 / 600, 250.0 / 600, 400.0 / 600, 550.0 / 600}
	prev := -1.0
	for i, p := range points {
		got := tr.GetProgress(p)
		assert.InDelta(t, want[i], got, 1e-9)
		assert.Greater(t, got, prev)
		prev = got
	}
	got := tr.GetProgress(vecmath.New(100, 4))
	assert.GreaterOrEqual(t, got, 0.0)
	assert.Less(t, got, 1.0)
}

func TestPointAndHeadingAlongCenterline(t *testing.T) {
	tr := Default()
	assert.True(t, tr.PointAt(0).Equal(vecmath.New(0, 0)))
	assert.True(t, tr.PointAt(250.0/600).Equal(vecmath.New(200, 50)))
	assert.True(t, tr.PointAt(1+100.0/600).Equal(vecmath.New(100, 0)), "wraps past one lap")
	assert.True(t, tr.PointAt(-50.0/600).Equal(vecmath.New(0, 50)))

	assert.InDelta(t, 0, tr.HeadingAt(0.1), 1e-9)
	assert.InDelta(t, math.Pi/2, tr.HeadingAt(250.0/600), 1e-9)
	assert.InDelta(t, math.Pi, math.Abs(tr.HeadingAt(400.0/600)), 1e-9)
	assert.True(t, tr.PointAt(math.NaN()).Equal(vecmath.New(0, 0)))
}

func TestPointInTrackAndNearestPoint(t *testing.T) {
	tr := Default()
	assert.True(t, tr.IsPointInTrack(vecmath.New(100, 0)))
	assert.True(t, tr.IsPointInTrack(vecmath.New(210, 0)), "boundary counts as inside")
	assert.False(t, tr.IsPointInTrack(vecmath.New(100, 50)))

	inside := vecmath.New(100, 0)
	assert.Equal(t, inside, tr.GetNearestTrackPoint(inside))
	assert.True(t, tr.GetNearestTrackPoint(vecmath.New(100, 30)).Equal(vecmath.New(100, 10)))
}

func TestCheckpointsAndStartGrid(t *testing.T) {
	tr := Default()
	require.Equal(t, 5, tr.CheckpointCount())

	bike := vecmath.RectAround(vecmath.New(100, 0), 1, 0.5)
	assert.True(t, tr.IsCheckpointReached(0, bike))
	assert.False(t, tr.IsCheckpointReached(1, bike))
	assert.False(t, tr.IsCheckpointReached(-1, bike))
	assert.False(t, tr.IsCheckpointReached(5, bike))

	assert.Equal(t, vecmath.New(24, -4), tr.GetStartPosition(0))
	assert.Equal(t, vecmath.New(24, -4), tr.GetStartPosition(-3))
	assert.Equal(t, vecmath.New(16, 4), tr.GetStartPosition(3))
	assert.True(t, tr.GetStartPosition(4).Equal(vecmath.New(8, 4)))
	assert.True(t, tr.GetStartPosition(6).Equal(vecmath.New(-8, 4)))
}

func TestObstacleCollisionAndDestruction(t *testing.T) {
	tr := Default()
	assert.True(t, tr.CheckCollision(vecmath.RectAround(vecmath.New(150, 7), 1, 1)))
	assert.False(t, tr.CheckCollision(vecmath.RectAround(vecmath.New(150, -5), 1, 1)))

	crate := vecmath.RectAround(vecmath.New(60, -7), 0.5, 0.5)
	require.True(t, tr.CheckCollision(crate))

	assert.False(t, tr.DamageObstacle(2, 20))
	o, ok := tr.Obstacle(2)
	require.True(t, ok)
	assert.InDelta(t, 10, o.Health, 1e-9)

	assert.True(t, tr.DamageObstacle(2, 15))
	assert.False(t, tr.DamageObstacle(2, 15), "already removed")
	assert.False(t, tr.CheckCollision(crate))

	assert.False(t, tr.DamageObstacle(1, 1000), "rocks are indestructible")
	assert.False(t, tr.DamageObstacle(0, 1))
	assert.False(t, tr.DamageObstacle(42, 1))
	assert.Len(t, tr.Obstacles(), 2)
}

func TestRotatedObstacleBounds(t *testing.T) {
	o := Obstacle{Position: vecmath.New(0, 0), Rotation: math.Pi / 2, HalfExtents: vecmath.New(2, 1)}
	b := o.Bounds()
	assert.InDelta(t, 2, b.Width(), 1e-9)
	assert.InDelta(t, 4, b.Height(), 1e-9)
}

func TestDangerZones(t *testing.T) {
	tr := Default()
	assert.Equal(t, 10.0, tr.DangerAt(vecmath.RectAround(vecmath.New(-5, 30), 1, 1)))
	assert.Equal(t, 0.0, tr.DangerAt(vecmath.RectAround(vecmath.New(5, 30), 0.5, 0.5)))
}

func TestLapRecordsKeepTopTen(t *testing.T) {
	tr := Default()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 12 {
		tr.RecordLap("rider", float64(60-i), now)
	}
	laps := tr.BestLaps()
	require.Len(t, laps, MaxLapRecords)
	assert.Equal(t, 49.0, laps[0].Seconds)
	for i := 1; i < len(laps); i++ {
		assert.LessOrEqual(t, laps[i-1].Seconds, laps[i].Seconds)
	}

	assert.Equal(t, -1, tr.RecordLap("slow", 100, now))
	assert.Equal(t, 0, tr.RecordLap("fast", 10, now))
	assert.Equal(t, "fast", tr.BestLaps()[0].Player)
	assert.Equal(t, -1, tr.RecordLap("broken", 0, now))
}

const yamlTrack = `
name: figure
weather: rain
weatherIntensity: 0.5
segments:
  - terrain: asphalt
    points:
      - {x: 0, y: 0}
      - {x: 50, y: 0}
      - {x: 50, y: 20}
      - {x: 0, y: 20}
  - terrain: MUD
    friction: 0.6
    points:
      - {x: 50, y: 0}
      - {x: 80, y: 0}
      - {x: 80, y: 20}
checkpoints:
  - {minX: 20, minY: 0, maxX: 22, maxY: 20}
startPositions:
  - {x: 5, y: 10}
obstacles:
  - kind: crate
    position: {x: 30, y: 5}
    halfExtents: {x: 1, y: 1}
    destructible: true
    health: 10
powerUpSpawns:
  - position: {x: 40, y: 10}
    type: SHIELD
`

func TestLoadYAMLTrack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "figure.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlTrack), 0o600))

	tr, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "figure", tr.Name())
	assert.Len(t, tr.Segments(), 2)
	assert.Equal(t, terrain.Mud, tr.GetTerrainAt(vecmath.New(70, 5)))

	w, intensity := tr.Weather()
	assert.Equal(t, terrain.Rain, w)
	assert.InDelta(t, 0.5, intensity, 1e-9)
	assert.InDelta(t, 0.6*0.9, tr.GetFrictionAt(vecmath.New(70, 5)), 1e-9)

	assert.Equal(t, vecmath.New(5, 10), tr.GetStartPosition(0))
	assert.Equal(t, 1, tr.CheckpointCount())
	require.Len(t, tr.PowerUpSpawns(), 1)
	assert.True(t, tr.CheckCollision(vecmath.RectAround(vecmath.New(30, 5), 0.5, 0.5)))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func square() []vecmath.Vector2D {
	return []vecmath.Vector2D{vecmath.New(0, 0), vecmath.New(10, 0), vecmath.New(10, 10), vecmath.New(0, 10)}
}

func TestMalformedDefinitionsAreRejected(t *testing.T) {
	cases := map[string]Definition{
		"no segments": {},
		"too few points": {Segments: []SegmentDef{
			{Points: []vecmath.Vector2D{vecmath.New(0, 0), vecmath.New(1, 0)}},
		}},
		"unknown terrain": {Segments: []SegmentDef{{Points: square(), Terrain: "lava"}}},
		"negative friction": {Segments: []SegmentDef{{Points: square(), Friction: -1}}},
		"self intersecting": {Segments: []SegmentDef{{Points: []vecmath.Vector2D{
			vecmath.New(0, 0), vecmath.New(10, 10), vecmath.New(10, 0), vecmath.New(0, 10),
		}}}},
		"flat checkpoint": {
			Segments:    []SegmentDef{{Points: square()}},
			Checkpoints: []vecmath.Rect{{MinX: 1, MinY: 1, MaxX: 1, MaxY: 5}},
		},
		"destructible without health": {
			Segments: []SegmentDef{{Points: square()}},
			Obstacles: []ObstacleDef{
				{Position: vecmath.New(5, 5), HalfExtents: vecmath.New(1, 1), Destructible: true},
			},
		},
		"unknown power-up": {
			Segments:      []SegmentDef{{Points: square()}},
			PowerUpSpawns: []Spawn{{Position: vecmath.New(5, 5), Type: "banana"}},
		},
		"unknown weather": {
			Segments: []SegmentDef{{Points: square()}},
			Weather:  "hail",
		},
	}
	for name, def := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(def)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidTrack), "got %v", err)
		})
	}
}

func TestDerivedCenterlineAndStart(t *testing.T) {
	tr, err := New(Definition{Segments: []SegmentDef{
		{Points: square()},
		{Points: []vecmath.Vector2D{vecmath.New(10, 0), vecmath.New(20, 0), vecmath.New(20, 10), vecmath.New(10, 10)}},
	}})
	require.NoError(t, err)
	assert.Equal(t, []vecmath.Vector2D{vecmath.New(5, 5), vecmath.New(15, 5)}, tr.Centerline())
	assert.Equal(t, vecmath.New(5, 5), tr.GetStartPosition(0))
	assert.InDelta(t, 20, tr.Length(), 1e-9)
	assert.Equal(t, terrain.Asphalt, tr.GetTerrainAt(vecmath.New(5, 5)))
}
