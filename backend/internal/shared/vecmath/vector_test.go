package vecmath

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizedHasUnitLength(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for range 500 {
		v := New(rng.Float64()*200-100, rng.Float64()*200-100)
		if v.LengthSquared() == 0 {
			continue
		}
		assert.InDelta(t, 1.0, v.Normalized().Length(), Epsilon, "v=%s", v)
	}
}

func TestNormalizeZeroIsNoop(t *testing.T) {
	var v Vector2D
	v.Normalize()
	assert.Equal(t, Vector2D{}, v)
	assert.Equal(t, Vector2D{}, Zero().Normalized())
	assert.False(t, math.IsNaN(v.X) || math.IsNaN(v.Y))
}

func TestRotateIsInvertible(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for range 500 {
		v := New(rng.Float64()*50-25, rng.Float64()*50-25)
		theta := rng.Float64()*4*math.Pi - 2*math.Pi
		back := v.Rotated(theta).Rotated(-theta)
		assert.True(t, back.Equal(v), "theta=%f v=%s back=%s", theta, v, back)
	}
}

func TestRotateQuarterTurn(t *testing.T) {
	v := New(1, 0)
	v.Rotate(math.Pi / 2)
	assert.True(t, v.Equal(New(0, 1)), "got %s", v)
}

func TestFromAngleIsUnit(t *testing.T) {
	for _, a := range []float64{0, 0.3, math.Pi / 2, math.Pi, -2.5, 7} {
		v := FromAngle(a)
		assert.InDelta(t, 1.0, v.Length(), Epsilon)
		assert.InDelta(t, math.Remainder(a, 2*math.Pi), v.Angle(), Epsilon)
	}
}

func TestLerpClampsT(t *testing.T) {
	a, b := New(0, 0), New(10, -10)
	assert.True(t, Lerp(a, b, 0.5).Equal(New(5, -5)))
	assert.True(t, Lerp(a, b, -3).Equal(a))
	assert.True(t, Lerp(a, b, 42).Equal(b))
}

func TestDistanceAndProducts(t *testing.T) {
	assert.InDelta(t, 5.0, Distance(New(1, 1), New(4, 5)), Epsilon)
	assert.InDelta(t, 11.0, New(1, 2).Dot(New(3, 4)), Epsilon)
	assert.InDelta(t, -2.0, New(1, 2).Cross(New(3, 4)), Epsilon)
}

func TestEqualUsesEpsilon(t *testing.T) {
	assert.True(t, New(1, 1).Equal(New(1+Epsilon/2, 1-Epsilon/2)))
	assert.False(t, New(1, 1).Equal(New(1+2*Epsilon, 1)))
}

func TestClampLength(t *testing.T) {
	v := New(30, 40).ClampLength(5)
	assert.InDelta(t, 5.0, v.Length(), Epsilon)
	assert.True(t, v.Equal(New(3, 4)))
	assert.Equal(t, New(1, 1), New(1, 1).ClampLength(5))
	assert.Equal(t, New(9, 9), New(9, 9).ClampLength(0))
}

func TestRectOverlapPushesOutAlongShallowAxis(t *testing.T) {
	obstacle := RectAround(New(0, 0), 1, 1)

	mtv, ok := RectAround(New(1.5, 0.2), 1, 1).Overlap(obstacle)
	require.True(t, ok)
	assert.True(t, mtv.Equal(New(0.5, 0)), "mtv=%s", mtv)

	mtv, ok = RectAround(New(0.1, -1.8), 1, 1).Overlap(obstacle)
	require.True(t, ok)
	assert.True(t, mtv.Equal(New(0, -0.2)), "mtv=%s", mtv)

	_, ok = RectAround(New(5, 5), 1, 1).Overlap(obstacle)
	assert.False(t, ok)
}

func TestRectEdgesTouchingDoNotIntersect(t *testing.T) {
	a := Rect{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}
	b := Rect{MinX: 1, MinY: 0, MaxX: 2, MaxY: 1}
	assert.False(t, a.Intersects(b))
	assert.True(t, a.Contains(New(1, 1)))
	assert.True(t, a.Center().Equal(New(0.5, 0.5)))
}
