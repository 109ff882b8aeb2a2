package vecmath

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Epsilon is the per-component tolerance used by Equal.
const Epsilon = 1e-4

// Vector2D is a 2D vector in track space. Values are passed by copy.
type Vector2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// New returns the vector (x, y).
func New(x, y float64) Vector2D {
	return Vector2D{X: x, Y: y}
}

// Zero is the zero vector.
func Zero() Vector2D {
	return Vector2D{}
}

// FromAngle returns the unit vector pointing at angle radians.
func FromAngle(angle float64) Vector2D {
	return Vector2D{X: math.Cos(angle), Y: math.Sin(angle)}
}

func (v Vector2D) Add(o Vector2D) Vector2D {
	return Vector2D{X: v.X + o.X, Y: v.Y + o.Y}
}

func (v Vector2D) Sub(o Vector2D) Vector2D {
	return Vector2D{X: v.X - o.X, Y: v.Y - o.Y}
}

func (v Vector2D) Scale(s float64) Vector2D {
	return Vector2D{X: v.X * s, Y: v.Y * s}
}

func (v Vector2D) Dot(o Vector2D) float64 {
	return v.X*o.X + v.Y*o.Y
}

// Cross returns the z component of the 3D cross product.
func (v Vector2D) Cross(o Vector2D) float64 {
	return v.X*o.Y - v.Y*o.X
}

func (v Vector2D) Length() float64 {
	return v.vec().Len()
}

func (v Vector2D) LengthSquared() float64 {
	return v.X*v.X + v.Y*v.Y
}

// Normalize scales v to unit length in place. A zero vector is left unchanged.
func (v *Vector2D) Normalize() {
	l := v.Length()
	if l > 0 {
		v.X /= l
		v.Y /= l
	}
}

// Normalized returns a unit copy of v, or v itself when it has zero length.
func (v Vector2D) Normalized() Vector2D {
	v.Normalize()
	return v
}

// Angle returns the heading of v in radians.
func (v Vector2D) Angle() float64 {
	return math.Atan2(v.Y, v.X)
}

// Rotate rotates v counter-clockwise by angle radians in place.
func (v *Vector2D) Rotate(angle float64) {
	*v = v.Rotated(angle)
}

// Rotated returns v rotated counter-clockwise by angle radians.
func (v Vector2D) Rotated(angle float64) Vector2D {
	return fromVec(mgl64.Rotate2D(angle).Mul2x1(v.vec()))
}

// ClampLength returns v scaled down so its length does not exceed limit.
// A non-positive limit leaves v unchanged.
func (v Vector2D) ClampLength(limit float64) Vector2D {
	if !(limit > 0) {
		return v
	}
	lsq := v.LengthSquared()
	if lsq == 0 || lsq <= limit*limit {
		return v
	}
	return v.Scale(limit / math.Sqrt(lsq))
}

// IsFinite reports whether both components are finite numbers.
func (v Vector2D) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

// Equal compares component-wise within Epsilon.
func (v Vector2D) Equal(o Vector2D) bool {
	return math.Abs(v.X-o.X) < Epsilon && math.Abs(v.Y-o.Y) < Epsilon
}

func (v Vector2D) String() string {
	return fmt.Sprintf("Vector2D(%g, %g)", v.X, v.Y)
}

// Lerp interpolates from start to end; t is clamped to [0,1].
func Lerp(start, end Vector2D, t float64) Vector2D {
	return start.Add(end.Sub(start).Scale(mgl64.Clamp(t, 0, 1)))
}

// Distance returns the length of b - a.
func Distance(a, b Vector2D) float64 {
	return b.Sub(a).Length()
}

func (v Vector2D) vec() mgl64.Vec2 {
	return mgl64.Vec2{v.X, v.Y}
}

func fromVec(m mgl64.Vec2) Vector2D {
	return Vector2D{X: m[0], Y: m[1]}
}
